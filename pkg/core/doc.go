// Package core defines the shared language of the leapconf system.
//
// This package contains:
//   - Resource kinds (model, seed, snapshot, test, ...)
//   - Materialization names and the option sets config fields accept
//   - Hook type names used as wire keys
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
