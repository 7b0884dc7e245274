package nodeconfig

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapconf/pkg/behavior"
	"github.com/leapstack-labs/leapconf/pkg/core"
)

// Normalize rewrites raw input into the canonical raw form of t. It returns a
// new map and leaves raw untouched.
//
//   - a leading "+" on a key is dropped ("+materialized" is "materialized")
//   - a declared field name with a wire alias is renamed ("post_hook" to "post-hook")
//   - hook values become lists of {sql, transaction, index} maps; a bare string
//     is the SQL, unless it is itself a JSON object
//   - "+" prefixes on grant keys are dropped
func Normalize(t *RecordType, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, k := range sortedKeys(raw) {
		key := strings.TrimPrefix(k, "+")
		if f, ok := t.Fields.Lookup(key); ok {
			key = f.Key()
		}
		if _, dup := out[key]; dup {
			return nil, malformed(t, fmt.Errorf("key %q given more than once", key), "duplicate config key", key)
		}
		out[key] = raw[k]
	}

	for _, ht := range core.HookTypes {
		key := string(ht)
		v, ok := out[key]
		if !ok {
			continue
		}
		if _, declared := t.Fields.ByKey(key); !declared {
			continue
		}
		hooks, err := normalizeHooks(v)
		if err != nil {
			return nil, malformed(t, err, "invalid hook", key)
		}
		out[key] = hooks
	}

	for _, f := range t.Fields.Filter(func(f behavior.Field) bool { return f.Behavior.Merge == behavior.DictKeyAppend }) {
		v, ok := out[f.Key()].(map[string]any)
		if !ok {
			continue
		}
		stripped := make(map[string]any, len(v))
		for gk, gv := range v {
			stripped[strings.TrimPrefix(gk, "+")] = gv
		}
		out[f.Key()] = stripped
	}

	return clone(out), nil
}

func normalizeHooks(v any) ([]any, error) {
	if v == nil {
		return []any{}, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		h, err := hookRaw(v)
		if err != nil {
			return nil, err
		}
		return []any{h}, nil
	}
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		h, err := hookRaw(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("hook %d: %w", i, err)
		}
		out[i] = h
	}
	return out, nil
}

// hookRaw coerces one hook value into its map form. A missing transaction
// defaults to true.
func hookRaw(v any) (map[string]any, error) {
	var m map[string]any
	switch x := v.(type) {
	case string:
		m = parseHookString(x)
	case Hook:
		m = x.raw()
	case map[string]any:
		m = make(map[string]any, len(x)+1)
		for k, e := range x {
			m[k] = e
		}
	case map[any]any:
		m = make(map[string]any, len(x)+1)
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("hook key %v is not a string", k)
			}
			m[ks] = e
		}
	default:
		return nil, fmt.Errorf("expected a string or a mapping, got %T", v)
	}
	if _, ok := m["transaction"]; !ok {
		m["transaction"] = true
	}
	return m, nil
}

func parseHookString(s string) map[string]any {
	if trimmed := strings.TrimSpace(s); strings.HasPrefix(trimmed, "{") {
		var m map[string]any
		if err := json.Unmarshal([]byte(trimmed), &m); err == nil {
			// JSON numbers arrive as float64; index is an int.
			if f, ok := m["index"].(float64); ok && f == float64(int(f)) {
				m["index"] = int(f)
			}
			return m
		}
	}
	return map[string]any{"sql": s}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
