package common

// EntityType is the closed set of node types the pipeline can produce.
// Every extracted entity carries exactly one of these.
type EntityType string

const (
	EntityProduct        EntityType = "Product"
	EntityBuild          EntityType = "Build"
	EntityComponent      EntityType = "Component"
	EntityTestCase       EntityType = "TestCase"
	EntityTestStep       EntityType = "TestStep"
	EntityTestResult     EntityType = "TestResult"
	EntityAnomaly        EntityType = "Anomaly"
	EntitySymptom        EntityType = "Symptom"
	EntityRootCause      EntityType = "RootCause"
	EntityCountermeasure EntityType = "Countermeasure"
	EntityOwner          EntityType = "Owner"
	EntitySupplier       EntityType = "Supplier"
	EntityDoc            EntityType = "Doc"
	EntityFactory        EntityType = "Factory"
	EntityProject        EntityType = "Project"
	EntityMaterial       EntityType = "Material"
	EntityTool           EntityType = "Tool"
	EntityProcess        EntityType = "Process"
	EntityMetric         EntityType = "Metric"
	EntityRole           EntityType = "Role"
	EntityTag            EntityType = "Tag"
	EntityCategory       EntityType = "Category"
	EntityTerm           EntityType = "Term"
	EntityAlias          EntityType = "Alias"
)

// EntityTypes lists every member of the closed type set.
var EntityTypes = []EntityType{
	EntityProduct, EntityBuild, EntityComponent, EntityTestCase,
	EntityTestStep, EntityTestResult, EntityAnomaly, EntitySymptom,
	EntityRootCause, EntityCountermeasure, EntityOwner, EntitySupplier,
	EntityDoc, EntityFactory, EntityProject, EntityMaterial, EntityTool,
	EntityProcess, EntityMetric, EntityRole, EntityTag, EntityCategory,
	EntityTerm, EntityAlias,
}

// Entity is a typed business object extracted from a document.
//
// Key is the stable business identity ("{Type}:{identity}") and is the only
// field the graph store upserts by: two entities with the same Key are the
// same logical node, and merging never rewrites Key.
type Entity struct {
	ID             string         `json:"id"`
	Key            string         `json:"key"`
	Name           string         `json:"name"`
	Type           EntityType     `json:"type"`
	Properties     map[string]any `json:"properties"`
	SourceFile     string         `json:"source_file"`
	SourceLocation string         `json:"source_location"`
}

// Relation is a directed typed edge between two entities.
//
// During extraction SourceID/TargetID reference candidate entity IDs from
// the same record; after deduplication they are resolved to the surviving
// entities' business keys in SourceKey/TargetKey. The triple
// (SourceKey, TargetKey, Type) is unique after merging.
type Relation struct {
	SourceID   string         `json:"source_id,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	SourceKey  string         `json:"source_key"`
	TargetKey  string         `json:"target_key"`
	Type       string         `json:"relation_type"`
	Confidence float64        `json:"confidence"`
	Properties map[string]any `json:"properties"`
	SourceFile string         `json:"source_file"`
}

// Record is one normalized raw record from a document: a flat field->value
// mapping for tabular sources, or a single text block for unstructured ones.
type Record struct {
	Fields     map[string]string `json:"fields,omitempty"`
	Text       string            `json:"text,omitempty"`
	SourceFile string            `json:"source_file"`
	Location   string            `json:"location"`
	Index      int               `json:"index"`
}

// IsText reports whether the record carries unstructured text rather than
// tabular fields.
func (r Record) IsText() bool {
	return len(r.Fields) == 0 && r.Text != ""
}

// ExtractionResult collects everything extracted from one document before
// deduplication. Errors holds recovered per-field/per-record failures; a
// non-empty Errors list does not invalidate the rest of the result.
type ExtractionResult struct {
	SourceFile string         `json:"source_file"`
	Entities   []Entity       `json:"entities"`
	Relations  []Relation     `json:"relations"`
	Metadata   map[string]any `json:"metadata"`
	Errors     []string       `json:"errors"`
}

// LoadResult reports what a graph load actually wrote.
type LoadResult struct {
	NodesUpserted     int      `json:"nodes_upserted"`
	RelationsUpserted int      `json:"relations_upserted"`
	RelationsSkipped  int      `json:"relations_skipped"`
	Errors            []string `json:"errors"`
}

// TaggedNode is a persisted node with its tag set, as fetched for the
// inference pass.
type TaggedNode struct {
	Key  string     `json:"key"`
	Name string     `json:"name"`
	Type EntityType `json:"type"`
	Tags []string   `json:"tags"`
}

// GraphStats summarizes the persisted graph.
type GraphStats struct {
	TotalNodes      int            `json:"total_nodes"`
	TotalRelations  int            `json:"total_relations"`
	NodesByType     map[string]int `json:"nodes_by_type"`
	RelationsByType map[string]int `json:"relations_by_type"`
	SourceFiles     []string       `json:"source_files"`
}
