package resource

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mitchellh/copystructure"

	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
)

// ErrUnknownKind is returned for a resource kind that has no record type.
var ErrUnknownKind = errors.New("unknown resource kind")

// New returns an empty record for kind. Tests are singular unless generic is set.
func New(kind core.ResourceKind, generic bool) (Resource, error) {
	k, ok := core.ParseResourceKind(string(kind))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	var r Resource
	switch k {
	case core.KindModel:
		r = &ModelNode{Access: core.AccessProtected}
	case core.KindAnalysis:
		r = &AnalysisNode{}
	case core.KindOperation:
		r = &HookNode{}
	case core.KindSeed:
		r = &SeedNode{}
	case core.KindSnapshot:
		r = &SnapshotNode{}
	case core.KindTest:
		if generic {
			r = &GenericTestNode{}
		} else {
			r = &SingularTestNode{}
		}
	case core.KindSource:
		r = &SourceDefinition{}
	case core.KindExposure:
		r = &Exposure{}
	case core.KindMetric:
		r = &Metric{}
	case core.KindSemanticModel:
		r = &SemanticModel{}
	case core.KindSavedQuery:
		r = &SavedQuery{}
	case core.KindUnitTest:
		r = &UnitTestDefinition{}
	}
	n := r.Base()
	n.ResourceType = k
	n.Checksum = EmptyHash()
	n.Config = nodeconfig.ConfigFor(k, false).New()
	return r, nil
}

// FromRaw builds the record of kind from raw form. The "config" entry is run
// through the full config pipeline of the kind's config type; a missing
// "database" on a relation-shaped kind is treated as explicitly empty.
// A test with "test_metadata" is a generic test. raw is not modified.
func FromRaw(kind core.ResourceKind, raw map[string]any) (Resource, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	raw = copystructure.Must(copystructure.Copy(raw)).(map[string]any)

	k, ok := core.ParseResourceKind(string(kind))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if rt, ok := raw["resource_type"].(string); ok {
		if parsed, _ := core.ParseResourceKind(rt); parsed != k {
			return nil, fmt.Errorf("%w: resource_type %q does not match %q", nodeconfig.ErrMalformedValue, rt, k)
		}
	}
	delete(raw, "resource_type")
	id, _ := raw["unique_id"].(string)

	_, generic := raw["test_metadata"]
	r, err := New(k, generic)
	if err != nil {
		return nil, err
	}
	if hasRelation(k) {
		if _, ok := raw["database"]; !ok {
			raw["database"] = nil
		}
	}

	cfgRaw, err := configRaw(raw["config"])
	if err != nil {
		return nil, nodeconfig.WithResource(err, id)
	}
	delete(raw, "config")

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  timeHook,
		Result:      r,
		Squash:      true,
		ErrorUnused: true,
		MatchName:   func(mapKey, fieldName string) bool { return mapKey == fieldName },
	})
	if err != nil {
		return nil, fmt.Errorf("building decoder for %s: %w", k, err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, nodeconfig.WithResource(fmt.Errorf("%w: %s: %w", nodeconfig.ErrMalformedValue, k, err), id)
	}

	cfg, err := nodeconfig.FromRaw(nodeconfig.ConfigFor(k, false), cfgRaw)
	if err != nil {
		return nil, nodeconfig.WithResource(err, id)
	}
	r.Base().Config = cfg
	return r, nil
}

// ToRaw projects r to raw form. The result shares no memory with r.
func ToRaw(r Resource) map[string]any {
	m := make(map[string]any)
	r.writeRaw(m)
	return copystructure.Must(copystructure.Copy(m)).(map[string]any)
}

func configRaw(v any) (map[string]any, error) {
	switch c := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return c, nil
	}
	return nil, fmt.Errorf("%w: config must be a mapping, got %T", nodeconfig.ErrMalformedValue, v)
}

var timeType = reflect.TypeOf(time.Time{})

// timeHook parses timestamps and plain dates.
func timeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	for _, layout := range []string{time.RFC3339, time.DateOnly, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as a timestamp", s)
}
