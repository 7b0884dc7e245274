package behavior

import "fmt"

// Field declares one config field: its name, optional wire alias, and behavior.
type Field struct {
	// Name is the declared field name (e.g. "post_hook").
	Name string
	// Alias is the wire key used in raw form when it differs from Name (e.g. "post-hook").
	Alias string
	// Nested marks fields whose value is a record of sub-fields (docs, contract).
	// Raw projection tracks explicitness of their sub-keys individually.
	Nested bool
	Behavior FieldBehavior
}

// Key returns the wire key for the field.
func (f Field) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Fields is an ordered, immutable behavior table for one record type.
type Fields struct {
	list   []Field
	byName map[string]int
	byKey  map[string]int
}

// NewFields builds a table from groups of field declarations. A later declaration
// with the same name replaces an earlier one in place, which is how a narrower
// record overrides a field inherited from the record it embeds.
func NewFields(groups ...[]Field) *Fields {
	t := &Fields{byName: make(map[string]int), byKey: make(map[string]int)}
	for _, g := range groups {
		for _, f := range g {
			if i, ok := t.byName[f.Name]; ok {
				delete(t.byKey, t.list[i].Key())
				t.list[i] = f
				t.byKey[f.Key()] = i
				continue
			}
			t.byName[f.Name] = len(t.list)
			t.byKey[f.Key()] = len(t.list)
			t.list = append(t.list, f)
		}
	}
	return t
}

// MustFields is NewFields that panics on a wire-key collision between two different fields.
// Used for package-level tables.
func MustFields(groups ...[]Field) *Fields {
	t := NewFields(groups...)
	seen := make(map[string]string, len(t.list))
	for _, f := range t.list {
		if other, ok := seen[f.Key()]; ok {
			panic(fmt.Sprintf("behavior: fields %q and %q share wire key %q", other, f.Name, f.Key()))
		}
		seen[f.Key()] = f.Name
	}
	return t
}

// Len returns the number of declared fields.
func (t *Fields) Len() int { return len(t.list) }

// All returns a copy of the declarations in order.
func (t *Fields) All() []Field {
	out := make([]Field, len(t.list))
	copy(out, t.list)
	return out
}

// Lookup finds a field by declared name.
func (t *Fields) Lookup(name string) (Field, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Field{}, false
	}
	return t.list[i], true
}

// ByKey finds a field by wire key, falling back to the declared name.
func (t *Fields) ByKey(key string) (Field, bool) {
	if i, ok := t.byKey[key]; ok {
		return t.list[i], true
	}
	return t.Lookup(key)
}

// Behavior returns the behavior for a field. Undeclared names get the default triple.
func (t *Fields) Behavior(name string) FieldBehavior {
	if f, ok := t.Lookup(name); ok {
		return f.Behavior
	}
	return FieldBehavior{}
}

// Names returns the declared names in order.
func (t *Fields) Names() []string {
	out := make([]string, len(t.list))
	for i, f := range t.list {
		out[i] = f.Name
	}
	return out
}

// Keys returns the wire keys in order.
func (t *Fields) Keys() []string {
	out := make([]string, len(t.list))
	for i, f := range t.list {
		out[i] = f.Key()
	}
	return out
}

// Filter returns the fields for which keep reports true, in order.
func (t *Fields) Filter(keep func(Field) bool) []Field {
	var out []Field
	for _, f := range t.list {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Compared returns the fields that participate in change detection.
func (t *Fields) Compared() []Field {
	return t.Filter(func(f Field) bool { return f.Behavior.Compare == Include })
}

// Shown returns the fields surfaced in generated documentation.
func (t *Fields) Shown() []Field {
	return t.Filter(func(f Field) bool { return f.Behavior.Show == Show })
}
