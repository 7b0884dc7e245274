package nodeconfig

import (
	"fmt"
	"regexp"

	"github.com/leapstack-labs/leapconf/pkg/behavior"
	"github.com/leapstack-labs/leapconf/pkg/core"
)

// DefaultTestSchema is where failing test rows are stored unless configured otherwise.
const DefaultTestSchema = "dbt_test__audit"

var severityPattern = insensitivePatterns("warn", "error")

// TestConfig is the config of data tests (singular and generic).
type TestConfig struct {
	NodeAndTestConfig `mapstructure:",squash"`

	Materialized    string `mapstructure:"materialized"`
	Severity        string `mapstructure:"severity"`
	StoreFailures   *bool  `mapstructure:"store_failures"`
	StoreFailuresAs string `mapstructure:"store_failures_as"`
	Where           string `mapstructure:"where"`
	Limit           *int   `mapstructure:"limit"`
	FailCalc        string `mapstructure:"fail_calc"`
	WarnIf          string `mapstructure:"warn_if"`
	ErrorIf         string `mapstructure:"error_if"`
}

// TestConfigType describes TestConfig.
var TestConfigType = &RecordType{
	Name: "TestConfig",
	Fields: behavior.MustFields(nodeAndTestFields, []behavior.Field{
		{Name: "schema", Behavior: behavior.Of(behavior.ExcludeFromCompare)},
		{Name: "materialized"},
		{Name: "severity"},
		{Name: "store_failures"},
		{Name: "store_failures_as"},
		{Name: "where"},
		{Name: "limit"},
		{Name: "fail_calc"},
		{Name: "warn_if"},
		{Name: "error_if"},
	}),
	newRecord:   func() Record { return NewTestConfig() },
	validateRaw: []func(*RecordType, map[string]any) error{validateTestRaw},
}

// NewTestConfig returns a TestConfig with every field at its default.
func NewTestConfig() *TestConfig {
	c := &TestConfig{
		NodeAndTestConfig: newNodeAndTestConfig(),
		Materialized:      core.MaterializationTest,
		Severity:          "ERROR",
		FailCalc:          "count(*)",
		WarnIf:            "!= 0",
		ErrorIf:           "!= 0",
	}
	c.Schema = DefaultTestSchema
	return c
}

// Type implements Record.
func (c *TestConfig) Type() *RecordType { return TestConfigType }

func (c *TestConfig) writeRaw(m map[string]any) {
	c.NodeAndTestConfig.writeRaw(m)
	m["materialized"] = c.Materialized
	m["severity"] = c.Severity
	m["store_failures"] = optBool(c.StoreFailures)
	m["store_failures_as"] = c.StoreFailuresAs
	m["where"] = c.Where
	m["limit"] = optInt(c.Limit)
	m["fail_calc"] = c.FailCalc
	m["warn_if"] = c.WarnIf
	m["error_if"] = c.ErrorIf
}

func validateTestRaw(t *RecordType, raw map[string]any) error {
	if m := raw["materialized"]; truthy(m) && m != core.MaterializationTest {
		return invalidValue(t, m, "A test must have a materialized value of 'test'", "materialized")
	}
	if sev, ok := raw["severity"]; ok {
		s, isString := sev.(string)
		if !isString || !severityPattern.MatchString(s) {
			return invalidValue(t, sev, fmt.Sprintf("Invalid severity %v. Expected 'warn' or 'error'", sev), "severity")
		}
	}
	if sfa, ok := raw["store_failures_as"]; ok && truthy(sfa) {
		switch sfa {
		case core.StoreFailuresEphemeral, core.StoreFailuresTable, core.StoreFailuresView:
		default:
			return invalidValue(t, sfa, fmt.Sprintf("Invalid value for 'store_failures_as': %v. Expected one of: ephemeral, table, view", sfa), "store_failures_as")
		}
	}
	return nil
}

// insensitivePatterns builds an anchored regexp matching any of the words in any letter case.
func insensitivePatterns(words ...string) *regexp.Regexp {
	pattern := "^(?i:"
	for i, w := range words {
		if i > 0 {
			pattern += "|"
		}
		pattern += regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(pattern + ")$")
}

// UnitTestConfig is the config of a unit test definition.
type UnitTestConfig struct {
	BaseConfig `mapstructure:",squash"`

	Tags []string       `mapstructure:"tags"`
	Meta map[string]any `mapstructure:"meta"`
}

// UnitTestConfigType describes UnitTestConfig.
var UnitTestConfigType = &RecordType{
	Name: "UnitTestConfig",
	Fields: behavior.MustFields([]behavior.Field{
		{Name: "tags", Behavior: behavior.Of(behavior.Hidden, appendField, behavior.ExcludeFromCompare)},
		{Name: "meta", Behavior: behavior.Of(updateField)},
	}),
	newRecord: func() Record { return NewUnitTestConfig() },
}

// NewUnitTestConfig returns a UnitTestConfig with every field at its default.
func NewUnitTestConfig() *UnitTestConfig {
	return &UnitTestConfig{Tags: []string{}, Meta: map[string]any{}}
}

// Type implements Record.
func (c *UnitTestConfig) Type() *RecordType { return UnitTestConfigType }

func (c *UnitTestConfig) writeRaw(m map[string]any) {
	m["tags"] = strList(c.Tags)
	m["meta"] = anyMap(c.Meta)
}
