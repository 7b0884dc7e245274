// Package resource defines the records of parsed project resources: identity,
// checksum, dependencies, the effective config, and fields specific to each kind.
//
// Records are built once from raw form with FromRaw, which resolves the embedded
// config through the nodeconfig dispatch table, and are not modified afterwards
// except for re-finalizing a snapshot config before compilation.
package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// MacroDependsOn lists the macros a resource calls, in first-seen order.
type MacroDependsOn struct {
	Macros []string `mapstructure:"macros"`
}

// AddMacro records a macro dependency. Adding one that is already present is a no-op.
func (d *MacroDependsOn) AddMacro(id string) {
	if !slices.Contains(d.Macros, id) {
		d.Macros = append(d.Macros, id)
	}
}

// DependsOn lists the nodes and macros a resource references.
// Both lists are insertion-ordered and free of duplicates.
type DependsOn struct {
	MacroDependsOn `mapstructure:",squash"`

	Nodes []string `mapstructure:"nodes"`
}

// AddNode records a node dependency. Adding one that is already present
// leaves the list unchanged.
func (d *DependsOn) AddNode(id string) {
	if !slices.Contains(d.Nodes, id) {
		d.Nodes = append(d.Nodes, id)
	}
}

// Merge returns d with every dependency of other added in order.
// Neither d nor other is modified.
func (d DependsOn) Merge(other DependsOn) DependsOn {
	out := DependsOn{
		MacroDependsOn: MacroDependsOn{Macros: slices.Clone(d.Macros)},
		Nodes:          slices.Clone(d.Nodes),
	}
	for _, n := range other.Nodes {
		out.AddNode(n)
	}
	for _, m := range other.Macros {
		out.AddMacro(m)
	}
	return out
}

func (d DependsOn) raw() map[string]any {
	return map[string]any{"macros": strList(d.Macros), "nodes": strList(d.Nodes)}
}

// RefArgs identifies a reference to another resource.
type RefArgs struct {
	Name    string `mapstructure:"name"`
	Package string `mapstructure:"package"`
	// Version is a string or a number, as written in the project.
	Version any `mapstructure:"version"`
}

// PositionalArgs returns the arguments of the rendered ref() call.
func (r RefArgs) PositionalArgs() []string {
	if r.Package != "" {
		return []string{r.Package, r.Name}
	}
	return []string{r.Name}
}

// KeywordArgs returns the keyword arguments of the rendered ref() call.
func (r RefArgs) KeywordArgs() map[string]any {
	if r.Version == nil || r.Version == "" {
		return map[string]any{}
	}
	return map[string]any{"version": r.Version}
}

func (r RefArgs) raw() map[string]any {
	m := map[string]any{"name": r.Name}
	if r.Package != "" {
		m["package"] = r.Package
	}
	if r.Version != nil {
		m["version"] = r.Version
	}
	return m
}

// FileHash is the content hash of a resource's source.
type FileHash struct {
	Name     string `mapstructure:"name"`
	Checksum string `mapstructure:"checksum"`
}

// Hash algorithm names used in FileHash.Name.
const (
	HashSHA256 = "sha256"
	HashNone   = "none"
	HashPath   = "path"
)

// HashContents returns the sha256 FileHash of contents.
func HashContents(contents []byte) FileHash {
	sum := sha256.Sum256(contents)
	return FileHash{Name: HashSHA256, Checksum: hex.EncodeToString(sum[:])}
}

// EmptyHash is the checksum of a resource without source contents.
func EmptyHash() FileHash { return FileHash{Name: HashNone} }

// PathHash identifies a resource by path when its contents are loaded lazily.
func PathHash(path string) FileHash { return FileHash{Name: HashPath, Checksum: path} }

func (h FileHash) raw() map[string]any {
	return map[string]any{"name": h.Name, "checksum": h.Checksum}
}

// TestMetadata describes the generic test a test node was built from.
type TestMetadata struct {
	Name string `mapstructure:"name"`
	// Kwargs are the test arguments left after config keys were removed.
	Kwargs    map[string]any `mapstructure:"kwargs"`
	Namespace string         `mapstructure:"namespace"`
}

func (m TestMetadata) raw() map[string]any {
	out := map[string]any{"name": m.Name, "kwargs": anyMap(m.Kwargs)}
	if m.Namespace != "" {
		out["namespace"] = m.Namespace
	}
	return out
}

func strList(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func anyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mapList(ms []map[string]any) []any {
	out := make([]any, len(ms))
	for i, m := range ms {
		out[i] = anyMap(m)
	}
	return out
}
