package nodeconfig

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"

	"github.com/leapstack-labs/leapconf/pkg/core"
)

// ValidateRaw runs t's rules over a normalized raw form.
func ValidateRaw(t *RecordType, raw map[string]any) error {
	for _, rule := range t.validateRaw {
		if err := rule(t, raw); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRecord runs the record rules of rec's type.
func ValidateRecord(rec Record) error {
	t := rec.Type()
	for _, rule := range t.validateRecord {
		if err := rule(t, rec); err != nil {
			return err
		}
	}
	return nil
}

func validateNodeRecord(t *RecordType, r Record) error {
	nr, ok := r.(NodeRecord)
	if !ok {
		return nil
	}
	c := nr.Node()

	if color := c.Docs.NodeColor; color != "" && !ValidColor(color) {
		return invalidValue(t, color, fmt.Sprintf("Invalid color name for docs.node_color: %s. "+
			"It is neither a valid HTML color name nor a valid HEX code.", color), "docs.node_color")
	}

	if occ := c.OnConfigurationChange; occ != "" && !core.IsOnConfigurationChange(occ) {
		return invalidValue(t, occ, fmt.Sprintf("Invalid value for on_configuration_change: %s. "+
			"Expected one of: apply, continue, fail", occ), "on_configuration_change")
	}

	if c.Contract.Enforced && c.Materialized == core.MaterializationIncremental {
		switch c.OnSchemaChange {
		case core.OnSchemaChangeAppendNewColumns, core.OnSchemaChangeFail:
		default:
			return invalidValue(t, c.OnSchemaChange, fmt.Sprintf("Invalid value for on_schema_change: %s. Models "+
				"materialized as incremental with contracts enabled must set "+
				"on_schema_change to 'append_new_columns' or 'fail'", c.OnSchemaChange),
				"on_schema_change", "contract.enforced", "materialized")
		}
	}
	return nil
}

func validateModelRecord(t *RecordType, r Record) error {
	m, ok := r.(*ModelConfig)
	if !ok {
		return nil
	}
	if !m.Access.IsValid() {
		return invalidValue(t, string(m.Access), fmt.Sprintf("Invalid access type %q. Expected one of: private, protected, public", m.Access), "access")
	}
	return nil
}

func validateSeedRaw(t *RecordType, raw map[string]any) error {
	if m := raw["materialized"]; truthy(m) && m != core.MaterializationSeed {
		return invalidValue(t, m, "A seed must have a materialized value of 'seed'", "materialized")
	}
	return nil
}

// ValidColor reports whether s is an HTML color name or a #rgb / #rrggbb hex code.
func ValidColor(s string) bool {
	if _, ok := colornames.Map[strings.ToLower(s)]; ok {
		return true
	}
	if !strings.HasPrefix(s, "#") || (len(s) != 4 && len(s) != 7) {
		return false
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return false
	}
	want := strings.ToLower(s)
	if len(want) == 4 {
		want = string([]byte{'#', want[1], want[1], want[2], want[2], want[3], want[3]})
	}
	return c.Hex() == want
}

// truthy mirrors how config files treat presence: nil, false, zero, "" and
// empty collections all count as absent.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
