// Package state persists the effective config of every resolved resource so a
// later resolution can tell which resources changed. Change detection uses the
// compare projection of the config: fields excluded from comparison never make
// a resource count as changed.
package state

import (
	"errors"
	"time"

	"github.com/leapstack-labs/leapconf/pkg/core"
)

// ErrNotFound is returned when no config is stored for a resource.
var ErrNotFound = errors.New("state: not found")

// ErrNotOpen is returned by every operation on a store that is not open.
var ErrNotOpen = errors.New("database not opened")

// Invocation is one resolution batch. Every config saved during the batch
// records the invocation's id.
type Invocation struct {
	ID        string
	Project   string
	StartedAt time.Time
}

// StoredConfig is the last saved effective config of a resource.
type StoredConfig struct {
	UniqueID     string
	ResourceType core.ResourceKind
	// ConfigType is the record type name, e.g. "ModelConfig".
	ConfigType string
	// Config is the raw form of the record.
	Config       map[string]any
	CompareHash  string
	InvocationID string
	UpdatedAt    time.Time
}

// HistoryEntry records whether a resource's config changed in an invocation.
type HistoryEntry struct {
	InvocationID string
	CompareHash  string
	Changed      bool
	RecordedAt   time.Time
}
