package resource

import (
	"time"

	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
)

// Resource is implemented by every resource record.
type Resource interface {
	// Base returns the identity and config shared by all kinds.
	Base() *Node

	writeRaw(m map[string]any)
}

// RelationMetadata locates the relation a resource builds or reads.
type RelationMetadata struct {
	// Database is nil when the raw form did not name one.
	Database *string `mapstructure:"database"`
	Schema   string  `mapstructure:"schema"`
}

// DeferRelation points at a previously built copy of a resource that is used
// when the resource is not rebuilt in the current run.
type DeferRelation struct {
	RelationMetadata `mapstructure:",squash"`

	Alias        string            `mapstructure:"alias"`
	RelationName string            `mapstructure:"relation_name"`
	ResourceType core.ResourceKind `mapstructure:"resource_type"`
	Name         string            `mapstructure:"name"`
	Description  string            `mapstructure:"description"`
}

// Identifier returns the relation's table name.
func (d *DeferRelation) Identifier() string { return d.Alias }

func (d *DeferRelation) raw() any {
	if d == nil {
		return nil
	}
	return map[string]any{
		"database":      optString(d.Database),
		"schema":        d.Schema,
		"alias":         d.Alias,
		"relation_name": d.RelationName,
		"resource_type": string(d.ResourceType),
		"name":          d.Name,
		"description":   d.Description,
	}
}

// Node holds what every resource record carries.
type Node struct {
	RelationMetadata `mapstructure:",squash"`

	Name             string            `mapstructure:"name"`
	ResourceType     core.ResourceKind `mapstructure:"resource_type"`
	PackageName      string            `mapstructure:"package_name"`
	Path             string            `mapstructure:"path"`
	OriginalFilePath string            `mapstructure:"original_file_path"`
	UniqueID         string            `mapstructure:"unique_id"`
	FQN              []string          `mapstructure:"fqn"`
	Alias            string            `mapstructure:"alias"`
	Checksum         FileHash          `mapstructure:"checksum"`
	Description      string            `mapstructure:"description"`
	Tags             []string          `mapstructure:"tags"`
	Meta             map[string]any    `mapstructure:"meta"`
	DependsOn        DependsOn         `mapstructure:"depends_on"`
	Refs             []RefArgs         `mapstructure:"refs"`
	Sources          [][]string        `mapstructure:"sources"`
	RawCode          string            `mapstructure:"raw_code"`
	Language         string            `mapstructure:"language"`
	UnrenderedConfig map[string]any    `mapstructure:"unrendered_config"`

	// Config is the effective config, already folded and validated.
	Config nodeconfig.Record `mapstructure:"-"`
}

// Base implements Resource.
func (n *Node) Base() *Node { return n }

// Identifier returns the name of the relation the resource builds.
func (n *Node) Identifier() string { return n.Alias }

// QuotingDict returns the quoting flags set in the config, with unset ones omitted.
func (n *Node) QuotingDict() map[string]bool {
	out := map[string]bool{}
	nr, ok := n.Config.(nodeconfig.NodeRecord)
	if !ok {
		return out
	}
	for k, v := range nr.Node().Quoting {
		if b, ok := v.(bool); ok {
			out[k] = b
		}
	}
	return out
}

func (n *Node) writeRaw(m map[string]any) {
	if hasRelation(n.ResourceType) {
		m["database"] = optString(n.Database)
		m["schema"] = n.Schema
	}
	if isParsedNode(n.ResourceType) {
		m["alias"] = n.Alias
		m["checksum"] = n.Checksum.raw()
	}
	m["name"] = n.Name
	m["resource_type"] = string(n.ResourceType)
	m["package_name"] = n.PackageName
	m["path"] = n.Path
	m["original_file_path"] = n.OriginalFilePath
	m["unique_id"] = n.UniqueID
	m["fqn"] = strList(n.FQN)
	m["description"] = n.Description
	m["tags"] = strList(n.Tags)
	m["meta"] = anyMap(n.Meta)
	m["depends_on"] = n.DependsOn.raw()
	refs := make([]any, len(n.Refs))
	for i, r := range n.Refs {
		refs[i] = r.raw()
	}
	m["refs"] = refs
	sources := make([]any, len(n.Sources))
	for i, s := range n.Sources {
		sources[i] = strList(s)
	}
	m["sources"] = sources
	m["raw_code"] = n.RawCode
	m["language"] = n.Language
	m["unrendered_config"] = anyMap(n.UnrenderedConfig)
	if n.Config != nil {
		m["config"] = nodeconfig.ToRaw(n.Config)
	} else {
		m["config"] = map[string]any{}
	}
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// hasRelation reports whether resources of kind live in the warehouse and so
// carry a database and schema.
func hasRelation(kind core.ResourceKind) bool {
	return kind == core.KindSource || isParsedNode(kind)
}

// isParsedNode reports whether kind is parsed from a source file into a
// relation with its own alias and checksum.
func isParsedNode(kind core.ResourceKind) bool {
	switch kind {
	case core.KindModel, core.KindAnalysis, core.KindOperation, core.KindSeed,
		core.KindSnapshot, core.KindTest:
		return true
	}
	return false
}
