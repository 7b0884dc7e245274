package nodeconfig

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mitchellh/copystructure"
)

// ToRaw projects rec to its raw form. A declared field is emitted when the raw
// input set it explicitly or its value differs from the type's default; nested
// fields are filtered the same way per sub-key. Extras are always emitted.
// The result shares no memory with rec.
func ToRaw(rec Record) map[string]any {
	t := rec.Type()
	st := rec.state()
	full := make(map[string]any, t.Fields.Len())
	rec.writeRaw(full)
	defaults := t.Defaults()

	out := make(map[string]any, len(full)+len(st.Extra))
	for _, f := range t.Fields.All() {
		k := f.Key()
		v, ok := full[k]
		if !ok {
			continue
		}
		if f.Nested {
			if sub := nestedRaw(st, k, v, defaults[k]); sub != nil {
				out[k] = sub
			}
			continue
		}
		if st.IsSet(k) || (v != nil && !reflect.DeepEqual(v, defaults[k])) {
			out[k] = v
		}
	}
	for k, v := range st.Extra {
		out[k] = v
	}
	return clone(out)
}

func nestedRaw(st *BaseConfig, key string, v, def any) map[string]any {
	sub, _ := v.(map[string]any)
	dsub, _ := def.(map[string]any)
	keep := make(map[string]any, len(sub))
	for sk, sv := range sub {
		if st.IsSet(key+"."+sk) || !reflect.DeepEqual(sv, dsub[sk]) {
			keep[sk] = sv
		}
	}
	if len(keep) == 0 && !st.IsSet(key) {
		return nil
	}
	return keep
}

// fullRaw is the raw form with every declared field present, defaults included.
func fullRaw(rec Record) map[string]any {
	m := make(map[string]any, rec.Type().Fields.Len())
	rec.writeRaw(m)
	for k, v := range rec.Extras() {
		m[k] = v
	}
	return clone(m)
}

// Construct builds a record of type t from an already normalized raw form.
// Keys that are not declared fields are kept as extras. Every key present in
// raw counts as explicitly set. Values that cannot be coerced to the field's
// type fail with ErrMalformedValue.
func Construct(t *RecordType, raw map[string]any) (Record, error) {
	raw = clone(raw)
	rec := t.New()
	st := rec.state()

	declared := make(map[string]any, len(raw))
	for k, v := range raw {
		f, ok := t.Fields.ByKey(k)
		if !ok {
			if st.Extra == nil {
				st.Extra = make(map[string]any)
			}
			st.Extra[k] = v
			continue
		}
		declared[k] = v
		st.MarkSet(k)
		if f.Nested {
			if sub, ok := v.(map[string]any); ok {
				for sk := range sub {
					st.MarkSet(k + "." + sk)
				}
			}
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringOrListHook,
			hookValueHook,
			scalarListHook,
		),
		Result:    rec,
		Squash:    true,
		MatchName: func(mapKey, fieldName string) bool { return mapKey == fieldName },
	})
	if err != nil {
		return nil, fmt.Errorf("building decoder for %s: %w", t.Name, err)
	}
	if err := dec.Decode(declared); err != nil {
		return nil, malformed(t, err, "could not decode raw config", sortedKeys(declared)...)
	}
	return rec, nil
}

// FromRaw runs the whole construction pipeline:
// Normalize, ValidateRaw, Construct and ValidateRecord.
func FromRaw(t *RecordType, raw map[string]any) (Record, error) {
	norm, err := Normalize(t, raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateRaw(t, norm); err != nil {
		return nil, err
	}
	rec, err := Construct(t, norm)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

var (
	stringOrListType = reflect.TypeOf(StringOrList{})
	hookType         = reflect.TypeOf(Hook{})
	stringSliceType  = reflect.TypeOf([]string(nil))
)

func stringOrListHook(from, to reflect.Type, data any) (any, error) {
	if to != stringOrListType {
		return data, nil
	}
	return parseStringOrList(data)
}

// hookValueHook lets Construct accept hooks that skipped Normalize.
func hookValueHook(from, to reflect.Type, data any) (any, error) {
	if to != hookType {
		return data, nil
	}
	return hookRaw(data)
}

// scalarListHook wraps a lone string given for a list of strings, e.g. tags: nightly.
func scalarListHook(from, to reflect.Type, data any) (any, error) {
	if to != stringSliceType || from.Kind() != reflect.String {
		return data, nil
	}
	return []string{reflect.ValueOf(data).String()}, nil
}

func clone(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return copystructure.Must(copystructure.Copy(m)).(map[string]any)
}
