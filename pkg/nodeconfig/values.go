package nodeconfig

import (
	"fmt"
)

// StringOrList holds a value given either as one string or as a list of strings.
// The two forms stay distinct: check_cols: "all" is not the same as check_cols: ["all"].
type StringOrList struct {
	scalar string
	list   []string
	form   solForm
}

type solForm uint8

const (
	solUnset solForm = iota
	solScalar
	solList
)

// Scalar returns a StringOrList holding one string.
func Scalar(s string) StringOrList { return StringOrList{scalar: s, form: solScalar} }

// List returns a StringOrList holding a list of strings.
func List(items ...string) StringOrList {
	l := make([]string, len(items))
	copy(l, items)
	return StringOrList{list: l, form: solList}
}

// IsSet reports whether a value was given.
func (v StringOrList) IsSet() bool { return v.form != solUnset }

// IsList reports whether the value was given as a list.
func (v StringOrList) IsList() bool { return v.form == solList }

// String returns the scalar form, or "" for lists and unset values.
func (v StringOrList) String() string { return v.scalar }

// Values returns the value as a list: a scalar becomes a one-element list.
func (v StringOrList) Values() []string {
	switch v.form {
	case solScalar:
		return []string{v.scalar}
	case solList:
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	}
	return nil
}

func (v StringOrList) raw() any {
	switch v.form {
	case solScalar:
		return v.scalar
	case solList:
		return strList(v.list)
	}
	return nil
}

func parseStringOrList(data any) (StringOrList, error) {
	switch x := data.(type) {
	case nil:
		return StringOrList{}, nil
	case StringOrList:
		return x, nil
	case string:
		return Scalar(x), nil
	case []string:
		return List(x...), nil
	case []any:
		items := make([]string, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return StringOrList{}, fmt.Errorf("expected a string or a list of strings, got element %v (%T)", e, e)
			}
			items[i] = s
		}
		return List(items...), nil
	}
	return StringOrList{}, fmt.Errorf("expected a string or a list of strings, got %T", data)
}

// Hook is one SQL statement run before or after a resource is built.
// Order is significant and survives Append merges.
type Hook struct {
	SQL         string `mapstructure:"sql"`
	Transaction bool   `mapstructure:"transaction"`
	Index       *int   `mapstructure:"index"`
}

func (h Hook) raw() map[string]any {
	m := map[string]any{"sql": h.SQL, "transaction": h.Transaction}
	if h.Index != nil {
		m["index"] = *h.Index
	}
	return m
}

// Docs controls how a resource appears in generated documentation.
type Docs struct {
	Show bool `mapstructure:"show"`
	// NodeColor must be a CSS color name or a hex code when set.
	NodeColor string `mapstructure:"node_color"`
}

// DefaultDocs returns the docs settings of a fresh record.
func DefaultDocs() Docs { return Docs{Show: true} }

func (d Docs) raw() map[string]any {
	m := map[string]any{"show": d.Show}
	if d.NodeColor != "" {
		m["node_color"] = d.NodeColor
	}
	return m
}

// ContractConfig declares whether a model's output shape is enforced.
type ContractConfig struct {
	Enforced   bool `mapstructure:"enforced"`
	AliasTypes bool `mapstructure:"alias_types"`
}

// DefaultContract returns the contract settings of a fresh record.
func DefaultContract() ContractConfig { return ContractConfig{AliasTypes: true} }

func (c ContractConfig) raw() map[string]any {
	return map[string]any{"enforced": c.Enforced, "alias_types": c.AliasTypes}
}

// SavedQueryCache controls result caching for a saved query.
type SavedQueryCache struct {
	Enabled bool `mapstructure:"enabled"`
}

func (c SavedQueryCache) raw() map[string]any {
	return map[string]any{"enabled": c.Enabled}
}

func strList(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func hookList(hs []Hook) []any {
	out := make([]any, len(hs))
	for i, h := range hs {
		out[i] = h.raw()
	}
	return out
}

func grantMap(m map[string][]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = strList(v)
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

func rowList(rows []map[string]any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = anyMap(r)
	}
	return out
}

func optBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

func optInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
