// Package merge combines raw configuration maps from two scopes into one,
// field by field, following the behavior table of the record type.
//
// Raw maps are keyed by wire key. Keys that the table does not declare are
// merged with Clobber. Inputs are never mutated: both sides are deep-copied
// before any value reaches the result.
package merge

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/leapstack-labs/leapconf/pkg/behavior"
	"github.com/mitchellh/copystructure"
)

// ErrShape is the category of every value-shape mismatch reported by Raw.
var ErrShape = errors.New("merge: incompatible value shape")

// ShapeError reports a value whose shape does not fit the field's merge behavior,
// e.g. a dict under an Append field.
type ShapeError struct {
	Field    string
	Behavior behavior.MergeKind
	Got      any
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("cannot %s-merge field %q: unsupported value of type %T", e.Behavior, e.Field, e.Got)
}

func (e *ShapeError) Unwrap() error { return ErrShape }

// Raw merges override onto base and returns a new map.
//
// Per field:
//   - Clobber: the override value when the override has the key, else the base value.
//   - Append: base sequence followed by override sequence. Scalars count as one-element sequences.
//   - Update: base dict updated with override dict; override keys win.
//   - DictKeyAppend: union of keys; per key, base sequence followed by override sequence.
//     A leading "+" on an override key is stripped.
//
// Keys absent from both sides stay absent so the record's declared default applies.
func Raw(fields *behavior.Fields, base, override map[string]any) (map[string]any, error) {
	b, err := deepCopy(base)
	if err != nil {
		return nil, err
	}
	o, err := deepCopy(override)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(b)+len(o))
	for k, v := range b {
		out[k] = v
	}

	for key, ov := range o {
		kind := behavior.Clobber
		name := key
		if f, ok := fields.ByKey(key); ok {
			kind = f.Behavior.Merge
			name = f.Name
		}

		bv, inBase := out[key]
		if !inBase {
			bv = nil
		}

		merged, err := value(name, kind, bv, ov)
		if err != nil {
			return nil, err
		}
		out[key] = merged
	}

	// Fields only present in base still need their shape normalized for
	// Append/DictKeyAppend so the result is uniform.
	for key, bv := range b {
		if _, seen := o[key]; seen {
			continue
		}
		f, ok := fields.ByKey(key)
		if !ok {
			continue
		}
		switch f.Behavior.Merge {
		case behavior.Append, behavior.DictKeyAppend:
			merged, err := value(f.Name, f.Behavior.Merge, nil, bv)
			if err != nil {
				return nil, err
			}
			out[key] = merged
		}
	}

	return out, nil
}

// Fold merges scopes left to right, least specific first, starting from an empty map.
// The engine cannot tell if scopes are misordered; ordering is the caller's job.
func Fold(fields *behavior.Fields, scopes ...map[string]any) (map[string]any, error) {
	acc := map[string]any{}
	for i, s := range scopes {
		next, err := Raw(fields, acc, s)
		if err != nil {
			return nil, fmt.Errorf("scope %d: %w", i, err)
		}
		acc = next
	}
	return acc, nil
}

func value(name string, kind behavior.MergeKind, base, override any) (any, error) {
	switch kind {
	case behavior.Append:
		bs, err := listify(name, kind, base)
		if err != nil {
			return nil, err
		}
		ovs, err := listify(name, kind, override)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(bs)+len(ovs))
		out = append(out, bs...)
		return append(out, ovs...), nil

	case behavior.Update:
		bm, err := asMap(name, kind, base)
		if err != nil {
			return nil, err
		}
		om, err := asMap(name, kind, override)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(bm)+len(om))
		for k, v := range bm {
			out[k] = v
		}
		for k, v := range om {
			out[k] = v
		}
		return out, nil

	case behavior.DictKeyAppend:
		bm, err := asMap(name, kind, base)
		if err != nil {
			return nil, err
		}
		om, err := asMap(name, kind, override)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(bm)+len(om))
		for k, v := range bm {
			seq, err := listify(name, kind, v)
			if err != nil {
				return nil, err
			}
			out[strings.TrimPrefix(k, "+")] = seq
		}
		for k, v := range om {
			seq, err := listify(name, kind, v)
			if err != nil {
				return nil, err
			}
			key := strings.TrimPrefix(k, "+")
			prev, _ := out[key].([]any)
			joined := make([]any, 0, len(prev)+len(seq))
			joined = append(joined, prev...)
			out[key] = append(joined, seq...)
		}
		return out, nil
	}

	return override, nil
}

// listify turns a raw value into a sequence: nil is empty, scalars are wrapped,
// slices of any element type are converted to []any. Dicts are rejected.
func listify(name string, kind behavior.MergeKind, v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Map, reflect.Struct, reflect.Func, reflect.Chan:
		return nil, &ShapeError{Field: name, Behavior: kind, Got: v}
	}
	return []any{v}, nil
}

// asMap accepts string-keyed dicts. nil is an empty dict.
func asMap(name string, kind behavior.MergeKind, v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, &ShapeError{Field: name, Behavior: kind, Got: v}
			}
			out[ks] = val
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, nil
	}
	return nil, &ShapeError{Field: name, Behavior: kind, Got: v}
}

func deepCopy(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	c, err := copystructure.Copy(m)
	if err != nil {
		return nil, fmt.Errorf("merge: copy raw config: %w", err)
	}
	return c.(map[string]any), nil
}
