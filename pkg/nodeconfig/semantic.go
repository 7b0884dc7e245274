package nodeconfig

import (
	"github.com/leapstack-labs/leapconf/pkg/behavior"
)

var (
	enabledField = behavior.Field{Name: "enabled"}
	groupField   = behavior.Field{Name: "group", Behavior: behavior.Of(behavior.ExcludeFromCompare)}
	metaField    = behavior.Field{Name: "meta", Behavior: behavior.Of(updateField)}
)

// SourceConfig is the config of a source table.
type SourceConfig struct {
	BaseConfig `mapstructure:",squash"`

	Enabled bool `mapstructure:"enabled"`
}

// SourceConfigType describes SourceConfig.
var SourceConfigType = &RecordType{
	Name:      "SourceConfig",
	Fields:    behavior.MustFields([]behavior.Field{enabledField}),
	newRecord: func() Record { return NewSourceConfig() },
}

// NewSourceConfig returns a SourceConfig with every field at its default.
func NewSourceConfig() *SourceConfig { return &SourceConfig{Enabled: true} }

// Type implements Record.
func (c *SourceConfig) Type() *RecordType { return SourceConfigType }

func (c *SourceConfig) writeRaw(m map[string]any) {
	m["enabled"] = c.Enabled
}

// ExposureConfig is the config of an exposure.
type ExposureConfig struct {
	BaseConfig `mapstructure:",squash"`

	Enabled bool           `mapstructure:"enabled"`
	Tags    []string       `mapstructure:"tags"`
	Meta    map[string]any `mapstructure:"meta"`
}

// ExposureConfigType describes ExposureConfig.
var ExposureConfigType = &RecordType{
	Name: "ExposureConfig",
	Fields: behavior.MustFields([]behavior.Field{
		enabledField,
		{Name: "tags", Behavior: behavior.Of(behavior.Hidden, appendField, behavior.ExcludeFromCompare)},
		metaField,
	}),
	newRecord: func() Record { return NewExposureConfig() },
}

// NewExposureConfig returns an ExposureConfig with every field at its default.
func NewExposureConfig() *ExposureConfig {
	return &ExposureConfig{Enabled: true, Tags: []string{}, Meta: map[string]any{}}
}

// Type implements Record.
func (c *ExposureConfig) Type() *RecordType { return ExposureConfigType }

func (c *ExposureConfig) writeRaw(m map[string]any) {
	m["enabled"] = c.Enabled
	m["tags"] = strList(c.Tags)
	m["meta"] = anyMap(c.Meta)
}

// semanticConfig is the shape shared by metric and semantic model configs.
type semanticConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Group   string         `mapstructure:"group"`
	Meta    map[string]any `mapstructure:"meta"`
}

func newSemanticConfig() semanticConfig {
	return semanticConfig{Enabled: true, Meta: map[string]any{}}
}

func (c *semanticConfig) write(m map[string]any) {
	m["enabled"] = c.Enabled
	m["group"] = c.Group
	m["meta"] = anyMap(c.Meta)
}

var semanticFields = []behavior.Field{enabledField, groupField, metaField}

// MetricConfig is the config of a metric.
type MetricConfig struct {
	BaseConfig     `mapstructure:",squash"`
	semanticConfig `mapstructure:",squash"`
}

// MetricConfigType describes MetricConfig.
var MetricConfigType = &RecordType{
	Name:      "MetricConfig",
	Fields:    behavior.MustFields(semanticFields),
	newRecord: func() Record { return NewMetricConfig() },
}

// NewMetricConfig returns a MetricConfig with every field at its default.
func NewMetricConfig() *MetricConfig { return &MetricConfig{semanticConfig: newSemanticConfig()} }

// Type implements Record.
func (c *MetricConfig) Type() *RecordType { return MetricConfigType }

func (c *MetricConfig) writeRaw(m map[string]any) { c.write(m) }

// SemanticModelConfig is the config of a semantic model.
type SemanticModelConfig struct {
	BaseConfig     `mapstructure:",squash"`
	semanticConfig `mapstructure:",squash"`
}

// SemanticModelConfigType describes SemanticModelConfig.
var SemanticModelConfigType = &RecordType{
	Name:      "SemanticModelConfig",
	Fields:    behavior.MustFields(semanticFields),
	newRecord: func() Record { return NewSemanticModelConfig() },
}

// NewSemanticModelConfig returns a SemanticModelConfig with every field at its default.
func NewSemanticModelConfig() *SemanticModelConfig {
	return &SemanticModelConfig{semanticConfig: newSemanticConfig()}
}

// Type implements Record.
func (c *SemanticModelConfig) Type() *RecordType { return SemanticModelConfigType }

func (c *SemanticModelConfig) writeRaw(m map[string]any) { c.write(m) }

// SavedQueryConfig is the config of a saved query.
type SavedQueryConfig struct {
	BaseConfig     `mapstructure:",squash"`
	semanticConfig `mapstructure:",squash"`

	// ExportAs is the default export destination type: "table" or "view".
	ExportAs string          `mapstructure:"export_as"`
	Schema   string          `mapstructure:"schema"`
	Cache    SavedQueryCache `mapstructure:"cache"`
}

// SavedQueryConfigType describes SavedQueryConfig.
var SavedQueryConfigType = &RecordType{
	Name: "SavedQueryConfig",
	Fields: behavior.MustFields(semanticFields, []behavior.Field{
		{Name: "export_as"},
		{Name: "schema"},
		{Name: "cache", Nested: true, Behavior: behavior.Of(updateField)},
	}),
	newRecord:   func() Record { return NewSavedQueryConfig() },
	validateRaw: []func(*RecordType, map[string]any) error{validateSavedQueryRaw},
}

// NewSavedQueryConfig returns a SavedQueryConfig with every field at its default.
func NewSavedQueryConfig() *SavedQueryConfig {
	return &SavedQueryConfig{semanticConfig: newSemanticConfig()}
}

// Type implements Record.
func (c *SavedQueryConfig) Type() *RecordType { return SavedQueryConfigType }

func (c *SavedQueryConfig) writeRaw(m map[string]any) {
	c.write(m)
	m["export_as"] = c.ExportAs
	m["schema"] = c.Schema
	m["cache"] = c.Cache.raw()
}

func validateSavedQueryRaw(t *RecordType, raw map[string]any) error {
	v, ok := raw["export_as"]
	if !ok || !truthy(v) {
		return nil
	}
	if v != "table" && v != "view" {
		return invalidValue(t, v, "Invalid value for 'export_as'. Expected 'table' or 'view'", "export_as")
	}
	return nil
}
