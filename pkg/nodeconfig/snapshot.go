package nodeconfig

import (
	"fmt"

	"github.com/leapstack-labs/leapconf/pkg/behavior"
	"github.com/leapstack-labs/leapconf/pkg/core"
)

// EmptySnapshotConfig is the snapshot config used before every scope is folded in.
// None of its fields are mandatory.
type EmptySnapshotConfig struct {
	NodeConfig `mapstructure:",squash"`
}

// EmptySnapshotConfigType describes EmptySnapshotConfig, the base snapshot variant.
var EmptySnapshotConfigType = &RecordType{
	Name:           "EmptySnapshotConfig",
	Fields:         behavior.MustFields(nodeAndTestFields, nodeFields),
	newRecord:      func() Record { return NewEmptySnapshotConfig() },
	validateRecord: nodeRecordRules,
}

// NewEmptySnapshotConfig returns an EmptySnapshotConfig with every field at its default.
func NewEmptySnapshotConfig() *EmptySnapshotConfig {
	c := &EmptySnapshotConfig{NodeConfig: newNodeConfig()}
	c.Materialized = core.MaterializationSnapshot
	return c
}

// Type implements Record.
func (c *EmptySnapshotConfig) Type() *RecordType { return EmptySnapshotConfigType }

// SnapshotConfig is the fully validated snapshot config.
type SnapshotConfig struct {
	EmptySnapshotConfig `mapstructure:",squash"`

	Strategy       string `mapstructure:"strategy"`
	TargetSchema   string `mapstructure:"target_schema"`
	TargetDatabase string `mapstructure:"target_database"`
	UpdatedAt      string `mapstructure:"updated_at"`
	// CheckCols is either the sentinel "all" or an explicit column list.
	CheckCols StringOrList `mapstructure:"check_cols"`
}

// SnapshotConfigType describes SnapshotConfig.
var SnapshotConfigType = &RecordType{
	Name: "SnapshotConfig",
	Fields: behavior.MustFields(nodeAndTestFields, nodeFields, []behavior.Field{
		{Name: "strategy"},
		{Name: "target_schema"},
		{Name: "target_database"},
		{Name: "updated_at"},
		{Name: "check_cols"},
	}),
	newRecord:      func() Record { return NewSnapshotConfig() },
	validateRaw:    []func(*RecordType, map[string]any) error{validateSnapshotRaw},
	validateRecord: nodeRecordRules,
}

// NewSnapshotConfig returns a SnapshotConfig with every field at its default.
// The result is not valid until strategy, unique_key and target_schema are set.
func NewSnapshotConfig() *SnapshotConfig {
	return &SnapshotConfig{EmptySnapshotConfig: *NewEmptySnapshotConfig()}
}

// Type implements Record.
func (c *SnapshotConfig) Type() *RecordType { return SnapshotConfigType }

func (c *SnapshotConfig) writeRaw(m map[string]any) {
	c.NodeConfig.writeRaw(m)
	m["strategy"] = c.Strategy
	m["target_schema"] = c.TargetSchema
	m["target_database"] = c.TargetDatabase
	m["updated_at"] = c.UpdatedAt
	m["check_cols"] = c.CheckCols.raw()
}

// FinalizeAndValidate re-projects the record to raw form and validates it again.
// Scope folding can only be checked once all scopes are in, so this runs after
// the last merge. It returns a new record equal to c when nothing is violated.
func (c *SnapshotConfig) FinalizeAndValidate() (*SnapshotConfig, error) {
	rec, err := Finalize(c)
	if err != nil {
		return nil, err
	}
	return rec.(*SnapshotConfig), nil
}

// validateSnapshotRaw checks the merged raw form of a snapshot config.
// Strategies other than check and timestamp are custom and only need the common keys.
func validateSnapshotRaw(t *RecordType, raw map[string]any) error {
	if !truthy(raw["strategy"]) || !truthy(raw["unique_key"]) || !truthy(raw["target_schema"]) {
		return invalid(t, "Snapshots must be configured with a 'strategy', 'unique_key', and 'target_schema'",
			"strategy", "unique_key", "target_schema")
	}

	switch raw["strategy"] {
	case core.SnapshotStrategyCheck:
		cols, ok := raw["check_cols"]
		if !ok || !truthy(cols) {
			return invalid(t, "A snapshot configured with the check strategy must specify a check_cols configuration", "check_cols")
		}
		if s, isString := cols.(string); isString && s != core.CheckColsAll {
			return invalidValue(t, s, fmt.Sprintf("Invalid value for 'check_cols': %s. Expected 'all' or a list of strings", s), "check_cols")
		}
	case core.SnapshotStrategyTimestamp:
		if !truthy(raw["updated_at"]) {
			return invalid(t, "A snapshot configured with the timestamp strategy must specify an updated_at configuration", "updated_at")
		}
		if truthy(raw["check_cols"]) {
			return invalidValue(t, raw["check_cols"], "A 'timestamp' snapshot should not have 'check_cols'", "check_cols")
		}
	}

	if m := raw["materialized"]; truthy(m) && m != core.MaterializationSnapshot {
		return invalidValue(t, m, "A snapshot must have a materialized value of 'snapshot'", "materialized")
	}
	return nil
}
