package core

import (
	"fmt"
	"strings"
)

// ResourceKind identifies the type of a configurable resource.
type ResourceKind string

// Resource kind constants. The values match the wire form of resource_type.
const (
	KindModel         ResourceKind = "model"
	KindAnalysis      ResourceKind = "analysis"
	KindOperation     ResourceKind = "operation"
	KindSeed          ResourceKind = "seed"
	KindSnapshot      ResourceKind = "snapshot"
	KindTest          ResourceKind = "test"
	KindSource        ResourceKind = "source"
	KindExposure      ResourceKind = "exposure"
	KindMetric        ResourceKind = "metric"
	KindSemanticModel ResourceKind = "semantic_model"
	KindSavedQuery    ResourceKind = "saved_query"
	KindUnitTest      ResourceKind = "unit_test"
)

// ResourceKinds lists every known kind.
var ResourceKinds = []ResourceKind{
	KindModel, KindAnalysis, KindOperation, KindSeed, KindSnapshot, KindTest,
	KindSource, KindExposure, KindMetric, KindSemanticModel, KindSavedQuery, KindUnitTest,
}

// ParseResourceKind parses a kind name case-insensitively.
// "SemanticModel", "semantic-model" and "semantic_model" all parse to KindSemanticModel.
// Unknown names are returned as-is with ok=false so callers can still fall back.
func ParseResourceKind(s string) (ResourceKind, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	for _, k := range ResourceKinds {
		if norm == string(k) || norm == strings.ReplaceAll(string(k), "_", "") {
			return k, true
		}
	}
	// "unit" is accepted as the short name of unit tests
	if norm == "unit" {
		return KindUnitTest, true
	}
	return ResourceKind(norm), false
}

// Section returns the plural project-file section name for the kind
// (e.g. "models", "semantic_models").
func (k ResourceKind) Section() string {
	switch k {
	case KindAnalysis:
		return "analyses"
	case KindSavedQuery:
		return "saved_queries"
	case "":
		return ""
	}
	return string(k) + "s"
}

// KindForSection maps a project-file section name back to its kind.
func KindForSection(section string) (ResourceKind, error) {
	for _, k := range ResourceKinds {
		if k.Section() == section {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown project section %q", section)
}
