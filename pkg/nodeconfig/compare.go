package nodeconfig

import (
	"reflect"

	"github.com/leapstack-labs/leapconf/pkg/behavior"
)

// Comparable returns the raw form of rec, defaults included, restricted to the
// fields that take part in change detection. Extras are kept.
func Comparable(rec Record) map[string]any {
	return project(rec, func(f behavior.Field) bool { return f.Behavior.Compare == behavior.Exclude })
}

// SameContents reports whether a and b are the same type and agree on every
// compared field. Fields such as tags and schema are ignored.
func SameContents(a, b Record) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	return reflect.DeepEqual(Comparable(a), Comparable(b))
}

// Documented returns the raw form of rec, defaults included, without the fields
// hidden from generated documentation.
func Documented(rec Record) map[string]any {
	return project(rec, func(f behavior.Field) bool { return f.Behavior.Show == behavior.Hide })
}

func project(rec Record, drop func(behavior.Field) bool) map[string]any {
	m := fullRaw(rec)
	for _, f := range rec.Type().Fields.Filter(drop) {
		delete(m, f.Key())
	}
	return m
}
