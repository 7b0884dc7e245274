package resource

import (
	"time"

	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
)

// AnalysisNode is an analysis: compiled SQL that is never materialized.
type AnalysisNode struct {
	Node `mapstructure:",squash"`
}

// HookNode is an on-run-start or on-run-end operation.
type HookNode struct {
	Node `mapstructure:",squash"`

	// Index is the hook's position within its project-level list.
	Index *int `mapstructure:"index"`
}

func (h *HookNode) writeRaw(m map[string]any) {
	h.Node.writeRaw(m)
	if h.Index != nil {
		m["index"] = *h.Index
	} else {
		m["index"] = nil
	}
}

// ModelNode is a model.
type ModelNode struct {
	Node `mapstructure:",squash"`

	Access          core.AccessType  `mapstructure:"access"`
	Constraints     []map[string]any `mapstructure:"constraints"`
	Version         any              `mapstructure:"version"`
	LatestVersion   any              `mapstructure:"latest_version"`
	DeprecationDate *time.Time       `mapstructure:"deprecation_date"`
	DeferRelation   *DeferRelation   `mapstructure:"defer_relation"`
}

// ModelConfig returns the model's effective config.
func (n *ModelNode) ModelConfig() *nodeconfig.ModelConfig {
	c, _ := n.Config.(*nodeconfig.ModelConfig)
	return c
}

func (n *ModelNode) writeRaw(m map[string]any) {
	n.Node.writeRaw(m)
	m["access"] = string(n.Access)
	m["constraints"] = mapList(n.Constraints)
	m["version"] = n.Version
	m["latest_version"] = n.LatestVersion
	m["deprecation_date"] = optTime(n.DeprecationDate)
	m["defer_relation"] = n.DeferRelation.raw()
}

// SeedNode is a CSV seed. Seeds only depend on macros.
type SeedNode struct {
	Node `mapstructure:",squash"`

	// RootPath is where the seed file is loaded from later; contents are not
	// read at parse time.
	RootPath      string         `mapstructure:"root_path"`
	DeferRelation *DeferRelation `mapstructure:"defer_relation"`
}

func (n *SeedNode) writeRaw(m map[string]any) {
	n.Node.writeRaw(m)
	m["root_path"] = n.RootPath
	m["defer_relation"] = n.DeferRelation.raw()
}

// SnapshotNode is a snapshot.
type SnapshotNode struct {
	Node `mapstructure:",squash"`

	DeferRelation *DeferRelation `mapstructure:"defer_relation"`
}

// SnapshotConfig returns the snapshot's effective config.
func (n *SnapshotNode) SnapshotConfig() *nodeconfig.SnapshotConfig {
	c, _ := n.Config.(*nodeconfig.SnapshotConfig)
	return c
}

// Refinalize re-validates the snapshot config and replaces it with the result.
// It is the one sanctioned mutation of a built resource.
func (n *SnapshotNode) Refinalize() error {
	c := n.SnapshotConfig()
	if c == nil {
		return nil
	}
	final, err := c.FinalizeAndValidate()
	if err != nil {
		return nodeconfig.WithResource(err, n.UniqueID)
	}
	n.Config = final
	return nil
}

func (n *SnapshotNode) writeRaw(m map[string]any) {
	n.Node.writeRaw(m)
	m["defer_relation"] = n.DeferRelation.raw()
}

// SingularTestNode is a data test written as a standalone SQL file.
type SingularTestNode struct {
	Node `mapstructure:",squash"`
}

// GenericTestNode is a data test instantiated from a generic test definition.
type GenericTestNode struct {
	Node `mapstructure:",squash"`

	ColumnName   string       `mapstructure:"column_name"`
	FileKeyName  string       `mapstructure:"file_key_name"`
	AttachedNode string       `mapstructure:"attached_node"`
	TestMetadata TestMetadata `mapstructure:"test_metadata"`
}

func (n *GenericTestNode) writeRaw(m map[string]any) {
	n.Node.writeRaw(m)
	m["column_name"] = n.ColumnName
	m["file_key_name"] = n.FileKeyName
	m["attached_node"] = n.AttachedNode
	m["test_metadata"] = n.TestMetadata.raw()
}

// SourceDefinition is a table declared in a sources block.
type SourceDefinition struct {
	Node `mapstructure:",squash"`

	SourceName        string         `mapstructure:"source_name"`
	SourceDescription string         `mapstructure:"source_description"`
	Loader            string         `mapstructure:"loader"`
	// Table is the physical table name. Empty means the source's name.
	Table         string         `mapstructure:"identifier"`
	LoadedAtField string         `mapstructure:"loaded_at_field"`
	Freshness     map[string]any `mapstructure:"freshness"`
	Quoting       map[string]any `mapstructure:"quoting"`
	Columns       map[string]any `mapstructure:"columns"`
}

// Identifier returns the physical table name.
func (s *SourceDefinition) Identifier() string {
	if s.Table != "" {
		return s.Table
	}
	return s.Name
}

// QuotingDict returns the source's quoting flags, with unset ones omitted.
func (s *SourceDefinition) QuotingDict() map[string]bool {
	out := map[string]bool{}
	for k, v := range s.Quoting {
		if b, ok := v.(bool); ok {
			out[k] = b
		}
	}
	return out
}

func (s *SourceDefinition) writeRaw(m map[string]any) {
	s.Node.writeRaw(m)
	m["source_name"] = s.SourceName
	m["source_description"] = s.SourceDescription
	m["loader"] = s.Loader
	m["identifier"] = s.Table
	m["loaded_at_field"] = s.LoadedAtField
	m["freshness"] = anyMap(s.Freshness)
	m["quoting"] = anyMap(s.Quoting)
	m["columns"] = anyMap(s.Columns)
}

// ExposureOwner is who to contact about an exposure.
type ExposureOwner struct {
	Email string `mapstructure:"email"`
	Name  string `mapstructure:"name"`
}

// Exposure is a downstream use of the project, such as a dashboard.
type Exposure struct {
	Node `mapstructure:",squash"`

	Type     string        `mapstructure:"type"`
	Owner    ExposureOwner `mapstructure:"owner"`
	Label    string        `mapstructure:"label"`
	Maturity string        `mapstructure:"maturity"`
	URL      string        `mapstructure:"url"`
}

func (e *Exposure) writeRaw(m map[string]any) {
	e.Node.writeRaw(m)
	m["type"] = e.Type
	m["owner"] = map[string]any{"email": e.Owner.Email, "name": e.Owner.Name}
	m["label"] = e.Label
	m["maturity"] = e.Maturity
	m["url"] = e.URL
}

// Metric is a semantic-layer metric.
type Metric struct {
	Node `mapstructure:",squash"`

	Label           string         `mapstructure:"label"`
	Type            string         `mapstructure:"type"`
	TypeParams      map[string]any `mapstructure:"type_params"`
	Filter          any            `mapstructure:"filter"`
	TimeGranularity string         `mapstructure:"time_granularity"`
	Group           string         `mapstructure:"group"`
}

func (x *Metric) writeRaw(m map[string]any) {
	x.Node.writeRaw(m)
	m["label"] = x.Label
	m["type"] = x.Type
	m["type_params"] = anyMap(x.TypeParams)
	m["filter"] = x.Filter
	m["time_granularity"] = x.TimeGranularity
	m["group"] = x.Group
}

// SemanticModel maps a model onto entities, dimensions and measures.
type SemanticModel struct {
	Node `mapstructure:",squash"`

	Model         string           `mapstructure:"model"`
	Label         string           `mapstructure:"label"`
	PrimaryEntity string           `mapstructure:"primary_entity"`
	Entities      []map[string]any `mapstructure:"entities"`
	Dimensions    []map[string]any `mapstructure:"dimensions"`
	Measures      []map[string]any `mapstructure:"measures"`
	Defaults      map[string]any   `mapstructure:"defaults"`
	Group         string           `mapstructure:"group"`
}

func (x *SemanticModel) writeRaw(m map[string]any) {
	x.Node.writeRaw(m)
	m["model"] = x.Model
	m["label"] = x.Label
	m["primary_entity"] = x.PrimaryEntity
	m["entities"] = mapList(x.Entities)
	m["dimensions"] = mapList(x.Dimensions)
	m["measures"] = mapList(x.Measures)
	m["defaults"] = anyMap(x.Defaults)
	m["group"] = x.Group
}

// SavedQuery is a named semantic-layer query with optional exports.
type SavedQuery struct {
	Node `mapstructure:",squash"`

	Label       string           `mapstructure:"label"`
	QueryParams map[string]any   `mapstructure:"query_params"`
	Exports     []map[string]any `mapstructure:"exports"`
	Group       string           `mapstructure:"group"`
}

func (x *SavedQuery) writeRaw(m map[string]any) {
	x.Node.writeRaw(m)
	m["label"] = x.Label
	m["query_params"] = anyMap(x.QueryParams)
	m["exports"] = mapList(x.Exports)
	m["group"] = x.Group
}

// UnitTestDefinition is a unit test of one model against fixed inputs.
type UnitTestDefinition struct {
	Node `mapstructure:",squash"`

	Model     string           `mapstructure:"model"`
	Given     []map[string]any `mapstructure:"given"`
	Expect    map[string]any   `mapstructure:"expect"`
	Overrides map[string]any   `mapstructure:"overrides"`
	Versions  map[string]any   `mapstructure:"versions"`
}

func (x *UnitTestDefinition) writeRaw(m map[string]any) {
	x.Node.writeRaw(m)
	m["model"] = x.Model
	m["given"] = mapList(x.Given)
	m["expect"] = anyMap(x.Expect)
	m["overrides"] = anyMap(x.Overrides)
	m["versions"] = anyMap(x.Versions)
}
