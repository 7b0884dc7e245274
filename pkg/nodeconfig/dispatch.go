package nodeconfig

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapconf/pkg/core"
)

var (
	dispatchMu sync.RWMutex
	fullTable  = map[core.ResourceKind]*RecordType{
		core.KindModel:         ModelConfigType,
		core.KindSeed:          SeedConfigType,
		core.KindSnapshot:      SnapshotConfigType,
		core.KindTest:          TestConfigType,
		core.KindSource:        SourceConfigType,
		core.KindExposure:      ExposureConfigType,
		core.KindMetric:        MetricConfigType,
		core.KindSemanticModel: SemanticModelConfigType,
		core.KindSavedQuery:    SavedQueryConfigType,
		core.KindUnitTest:      UnitTestConfigType,
	}
	baseTable = baseVariants(fullTable)
)

// baseVariants derives the base table from the full one. Snapshots are the only
// kind whose base variant differs.
func baseVariants(full map[core.ResourceKind]*RecordType) map[core.ResourceKind]*RecordType {
	base := make(map[core.ResourceKind]*RecordType, len(full))
	for k, t := range full {
		base[k] = t
	}
	base[core.KindSnapshot] = EmptySnapshotConfigType
	return base
}

// ConfigFor returns the config record type for a resource kind. With base set,
// it returns the variant used while scopes are still being folded in. Kind
// names are matched case-insensitively. Unknown kinds get NodeConfigType.
func ConfigFor(kind core.ResourceKind, base bool) *RecordType {
	if k, ok := core.ParseResourceKind(string(kind)); ok {
		kind = k
	}
	dispatchMu.RLock()
	defer dispatchMu.RUnlock()
	table := fullTable
	if base {
		table = baseTable
	}
	if t, ok := table[kind]; ok {
		return t
	}
	return NodeConfigType
}

// Register adds the config record types for a kind that has no entry yet. A
// nil base uses full for both variants. Built-in kinds cannot be replaced. It
// is meant to be called during program initialization.
func Register(kind core.ResourceKind, full, base *RecordType) error {
	if kind == "" {
		return fmt.Errorf("register config type: empty resource kind")
	}
	if full == nil {
		return fmt.Errorf("register config type for %s: nil record type", kind)
	}
	if base == nil {
		base = full
	}
	if k, ok := core.ParseResourceKind(string(kind)); ok {
		kind = k
	}
	dispatchMu.Lock()
	defer dispatchMu.Unlock()
	if existing, ok := fullTable[kind]; ok {
		return fmt.Errorf("register config type for %s: already registered as %s", kind, existing.Name)
	}
	fullTable[kind] = full
	baseTable[kind] = base
	return nil
}

// RegisteredKinds returns the kinds with an explicit entry (sorted).
func RegisteredKinds() []core.ResourceKind {
	dispatchMu.RLock()
	defer dispatchMu.RUnlock()
	kinds := make([]core.ResourceKind, 0, len(fullTable))
	for k := range fullTable {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// RecordTypes returns every built-in record type in a stable order.
func RecordTypes() []*RecordType {
	return []*RecordType{
		NodeAndTestConfigType, NodeConfigType, ModelConfigType, SeedConfigType,
		EmptySnapshotConfigType, SnapshotConfigType, TestConfigType, UnitTestNodeConfigType,
		SourceConfigType, ExposureConfigType, MetricConfigType, SemanticModelConfigType,
		SavedQueryConfigType, UnitTestConfigType,
	}
}
