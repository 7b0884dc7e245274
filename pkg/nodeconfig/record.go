// Package nodeconfig models the configuration records of every resource kind,
// converts them to and from raw key-value form, and merges and validates them.
//
// A record is built through an explicit pipeline:
//
//	Normalize -> ValidateRaw -> Construct -> ValidateRecord
//
// FromRaw runs all four stages. Scopes are folded least to most specific with
// Merge (or Fold), and the result is checked once more with Finalize.
//
// Records are values: no function in this package mutates its inputs, so
// configs of independent resources can be resolved concurrently.
package nodeconfig

import (
	"reflect"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapconf/pkg/behavior"
)

// Record is a config record of one concrete type.
type Record interface {
	// Type returns the record's type descriptor. Records of different types never merge.
	Type() *RecordType
	// Extras returns undeclared keys carried by the record. The map must not be modified.
	Extras() map[string]any

	state() *BaseConfig
	writeRaw(m map[string]any)
}

// RecordType describes a concrete config record type: its name, behavior table,
// constructor and validators.
type RecordType struct {
	Name   string
	Fields *behavior.Fields

	newRecord      func() Record
	validateRaw    []func(t *RecordType, raw map[string]any) error
	validateRecord []func(t *RecordType, r Record) error

	once     sync.Once
	defaults map[string]any
}

// New returns a record of this type with every field at its declared default.
func (t *RecordType) New() Record { return t.newRecord() }

func (t *RecordType) String() string { return t.Name }

// Defaults returns the full raw form of a default record.
func (t *RecordType) Defaults() map[string]any {
	t.once.Do(func() {
		m := make(map[string]any, t.Fields.Len())
		t.newRecord().writeRaw(m)
		t.defaults = m
	})
	return t.defaults
}

// BaseConfig carries the state every record shares: undeclared keys and the set
// of keys the raw input set explicitly. Concrete records embed it at the root.
type BaseConfig struct {
	// Extra holds keys that are not declared fields of the record type.
	Extra map[string]any `mapstructure:"-"`

	explicit map[string]struct{}
}

// Extras returns undeclared keys carried by the record.
func (b *BaseConfig) Extras() map[string]any { return b.Extra }

// IsSet reports whether the raw input set the wire key explicitly.
// Nested sub-keys are addressed as "docs.node_color".
func (b *BaseConfig) IsSet(key string) bool {
	_, ok := b.explicit[key]
	return ok
}

// MarkSet records key as explicitly set, so Clobber merges and raw projection
// treat it as set even when it holds the default value.
func (b *BaseConfig) MarkSet(keys ...string) {
	if b.explicit == nil {
		b.explicit = make(map[string]struct{}, len(keys))
	}
	for _, k := range keys {
		b.explicit[k] = struct{}{}
	}
}

func (b *BaseConfig) state() *BaseConfig { return b }

// Keys returns the wire keys present in rec's raw form: declared fields in
// declaration order, then extras sorted by name.
func Keys(rec Record) []string {
	raw := ToRaw(rec)
	t := rec.Type()
	keys := make([]string, 0, len(raw))
	for _, k := range t.Fields.Keys() {
		if _, ok := raw[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range rec.Extras() {
		if _, declared := t.Fields.ByKey(k); !declared {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// Equal reports whether two records have the same type and the same raw form.
func Equal(a, b Record) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	return reflect.DeepEqual(ToRaw(a), ToRaw(b))
}
