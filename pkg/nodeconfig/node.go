package nodeconfig

import (
	"github.com/leapstack-labs/leapconf/pkg/behavior"
	"github.com/leapstack-labs/leapconf/pkg/core"
)

var (
	appendField = behavior.Merging(behavior.Append)
	updateField = behavior.Merging(behavior.Update)
)

// Identity fields (alias, schema, database, group) are part of the relation,
// not the config proper, so change detection ignores them.
var nodeAndTestFields = []behavior.Field{
	{Name: "enabled"},
	{Name: "alias", Behavior: behavior.Of(behavior.ExcludeFromCompare)},
	{Name: "schema", Behavior: behavior.Of(behavior.ExcludeFromCompare)},
	{Name: "database", Behavior: behavior.Of(behavior.ExcludeFromCompare)},
	{Name: "tags", Behavior: behavior.Of(behavior.Hidden, appendField, behavior.ExcludeFromCompare)},
	{Name: "meta", Behavior: behavior.Of(updateField)},
	{Name: "group", Behavior: behavior.Of(behavior.ExcludeFromCompare)},
}

var nodeFields = []behavior.Field{
	{Name: "materialized"},
	{Name: "incremental_strategy"},
	{Name: "persist_docs"},
	{Name: "post_hook", Alias: string(core.HookPost), Behavior: behavior.Of(appendField)},
	{Name: "pre_hook", Alias: string(core.HookPre), Behavior: behavior.Of(appendField)},
	{Name: "quoting", Behavior: behavior.Of(updateField)},
	{Name: "column_types", Behavior: behavior.Of(updateField)},
	{Name: "full_refresh"},
	{Name: "unique_key"},
	{Name: "on_schema_change"},
	{Name: "on_configuration_change"},
	{Name: "grants", Behavior: behavior.Of(behavior.Merging(behavior.DictKeyAppend))},
	{Name: "packages", Behavior: behavior.Of(appendField)},
	{Name: "docs", Nested: true, Behavior: behavior.Of(updateField)},
	{Name: "contract", Nested: true, Behavior: behavior.Of(updateField)},
}

// NodeAndTestConfig holds the fields shared by node configs and test configs.
type NodeAndTestConfig struct {
	BaseConfig `mapstructure:",squash"`

	Enabled  bool           `mapstructure:"enabled"`
	Alias    string         `mapstructure:"alias"`
	Schema   string         `mapstructure:"schema"`
	Database string         `mapstructure:"database"`
	Tags     []string       `mapstructure:"tags"`
	Meta     map[string]any `mapstructure:"meta"`
	Group    string         `mapstructure:"group"`
}

// NodeAndTestConfigType describes NodeAndTestConfig.
var NodeAndTestConfigType = &RecordType{
	Name:      "NodeAndTestConfig",
	Fields:    behavior.MustFields(nodeAndTestFields),
	newRecord: func() Record { c := newNodeAndTestConfig(); return &c },
}

func newNodeAndTestConfig() NodeAndTestConfig {
	return NodeAndTestConfig{
		Enabled: true,
		Tags:    []string{},
		Meta:    map[string]any{},
	}
}

// Type implements Record.
func (c *NodeAndTestConfig) Type() *RecordType { return NodeAndTestConfigType }

func (c *NodeAndTestConfig) writeRaw(m map[string]any) {
	m["enabled"] = c.Enabled
	m["alias"] = c.Alias
	m["schema"] = c.Schema
	m["database"] = c.Database
	m["tags"] = strList(c.Tags)
	m["meta"] = anyMap(c.Meta)
	m["group"] = c.Group
}

// NodeConfig is the config of a buildable node: materialization, hooks,
// grants, docs and contract settings.
type NodeConfig struct {
	NodeAndTestConfig `mapstructure:",squash"`

	Materialized          string              `mapstructure:"materialized"`
	IncrementalStrategy   string              `mapstructure:"incremental_strategy"`
	PersistDocs           map[string]any      `mapstructure:"persist_docs"`
	PostHook              []Hook              `mapstructure:"post-hook"`
	PreHook               []Hook              `mapstructure:"pre-hook"`
	Quoting               map[string]any      `mapstructure:"quoting"`
	ColumnTypes           map[string]any      `mapstructure:"column_types"`
	FullRefresh           *bool               `mapstructure:"full_refresh"`
	UniqueKey             StringOrList        `mapstructure:"unique_key"`
	OnSchemaChange        string              `mapstructure:"on_schema_change"`
	OnConfigurationChange string              `mapstructure:"on_configuration_change"`
	Grants                map[string][]string `mapstructure:"grants"`
	Packages              []string            `mapstructure:"packages"`
	Docs                  Docs                `mapstructure:"docs"`
	Contract              ContractConfig      `mapstructure:"contract"`
}

// NodeConfigType describes NodeConfig. It is also the fallback for unknown resource kinds.
var NodeConfigType = &RecordType{
	Name:           "NodeConfig",
	Fields:         behavior.MustFields(nodeAndTestFields, nodeFields),
	newRecord:      func() Record { return NewNodeConfig() },
	validateRecord: nodeRecordRules,
}

var nodeRecordRules = []func(*RecordType, Record) error{validateNodeRecord}

// NewNodeConfig returns a NodeConfig with every field at its default.
func NewNodeConfig() *NodeConfig {
	c := newNodeConfig()
	return &c
}

func newNodeConfig() NodeConfig {
	return NodeConfig{
		NodeAndTestConfig:     newNodeAndTestConfig(),
		Materialized:          core.MaterializationView,
		PersistDocs:           map[string]any{},
		PostHook:              []Hook{},
		PreHook:               []Hook{},
		Quoting:               map[string]any{},
		ColumnTypes:           map[string]any{},
		OnSchemaChange:        core.OnSchemaChangeIgnore,
		OnConfigurationChange: core.OnConfigurationChangeApply,
		Grants:                map[string][]string{},
		Packages:              []string{},
		Docs:                  DefaultDocs(),
		Contract:              DefaultContract(),
	}
}

// Type implements Record.
func (c *NodeConfig) Type() *RecordType { return NodeConfigType }

// Node returns the embedded NodeConfig. Every node-derived record implements it.
func (c *NodeConfig) Node() *NodeConfig { return c }

func (c *NodeConfig) writeRaw(m map[string]any) {
	c.NodeAndTestConfig.writeRaw(m)
	m["materialized"] = c.Materialized
	m["incremental_strategy"] = c.IncrementalStrategy
	m["persist_docs"] = anyMap(c.PersistDocs)
	m[string(core.HookPost)] = hookList(c.PostHook)
	m[string(core.HookPre)] = hookList(c.PreHook)
	m["quoting"] = anyMap(c.Quoting)
	m["column_types"] = anyMap(c.ColumnTypes)
	m["full_refresh"] = optBool(c.FullRefresh)
	m["unique_key"] = c.UniqueKey.raw()
	m["on_schema_change"] = c.OnSchemaChange
	m["on_configuration_change"] = c.OnConfigurationChange
	m["grants"] = grantMap(c.Grants)
	m["packages"] = strList(c.Packages)
	m["docs"] = c.Docs.raw()
	m["contract"] = c.Contract.raw()
}

// ModelConfig is the config of a model node.
type ModelConfig struct {
	NodeConfig `mapstructure:",squash"`

	Access core.AccessType `mapstructure:"access"`
}

// ModelConfigType describes ModelConfig.
var ModelConfigType = &RecordType{
	Name: "ModelConfig",
	Fields: behavior.MustFields(nodeAndTestFields, nodeFields, []behavior.Field{
		{Name: "access"},
	}),
	newRecord:      func() Record { return NewModelConfig() },
	validateRecord: append(nodeRecordRules, validateModelRecord),
}

// NewModelConfig returns a ModelConfig with every field at its default.
func NewModelConfig() *ModelConfig {
	return &ModelConfig{NodeConfig: newNodeConfig(), Access: core.AccessProtected}
}

// Type implements Record.
func (c *ModelConfig) Type() *RecordType { return ModelConfigType }

func (c *ModelConfig) writeRaw(m map[string]any) {
	c.NodeConfig.writeRaw(m)
	m["access"] = string(c.Access)
}

// SeedConfig is the config of a seed node.
type SeedConfig struct {
	NodeConfig `mapstructure:",squash"`

	Delimiter    string `mapstructure:"delimiter"`
	QuoteColumns *bool  `mapstructure:"quote_columns"`
}

// SeedConfigType describes SeedConfig.
var SeedConfigType = &RecordType{
	Name: "SeedConfig",
	Fields: behavior.MustFields(nodeAndTestFields, nodeFields, []behavior.Field{
		{Name: "delimiter"},
		{Name: "quote_columns"},
	}),
	newRecord:      func() Record { return NewSeedConfig() },
	validateRaw:    []func(*RecordType, map[string]any) error{validateSeedRaw},
	validateRecord: nodeRecordRules,
}

// NewSeedConfig returns a SeedConfig with every field at its default.
func NewSeedConfig() *SeedConfig {
	c := &SeedConfig{NodeConfig: newNodeConfig(), Delimiter: ","}
	c.Materialized = core.MaterializationSeed
	return c
}

// Type implements Record.
func (c *SeedConfig) Type() *RecordType { return SeedConfigType }

func (c *SeedConfig) writeRaw(m map[string]any) {
	c.NodeConfig.writeRaw(m)
	m["delimiter"] = c.Delimiter
	m["quote_columns"] = optBool(c.QuoteColumns)
}

// UnitTestNodeConfig is the config of the node a unit test compiles to.
type UnitTestNodeConfig struct {
	NodeConfig `mapstructure:",squash"`

	ExpectedRows []map[string]any `mapstructure:"expected_rows"`
}

// UnitTestNodeConfigType describes UnitTestNodeConfig.
var UnitTestNodeConfigType = &RecordType{
	Name: "UnitTestNodeConfig",
	Fields: behavior.MustFields(nodeAndTestFields, nodeFields, []behavior.Field{
		{Name: "expected_rows"},
	}),
	newRecord:      func() Record { return NewUnitTestNodeConfig() },
	validateRecord: nodeRecordRules,
}

// NewUnitTestNodeConfig returns a UnitTestNodeConfig with every field at its default.
func NewUnitTestNodeConfig() *UnitTestNodeConfig {
	return &UnitTestNodeConfig{NodeConfig: newNodeConfig(), ExpectedRows: []map[string]any{}}
}

// Type implements Record.
func (c *UnitTestNodeConfig) Type() *RecordType { return UnitTestNodeConfigType }

func (c *UnitTestNodeConfig) writeRaw(m map[string]any) {
	c.NodeConfig.writeRaw(m)
	m["expected_rows"] = rowList(c.ExpectedRows)
}

// NodeRecord is implemented by every record that embeds NodeConfig.
type NodeRecord interface {
	Record
	Node() *NodeConfig
}
