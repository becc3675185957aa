package graph

import (
	"fmt"
	"sort"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/vocab"
)

// maxFieldLength bounds a single field value; longer values are almost
// always a parsing artifact (merged cells, embedded documents) and are
// skipped rather than turned into entity names.
const maxFieldLength = 1024

// Extractor turns normalized records into candidate entities and relations.
// It never writes to storage and never fails a whole document over a single
// bad field.
type Extractor struct {
	vocab      *vocab.Store
	classifier *Classifier
}

// NewExtractorParams configures an Extractor.
type NewExtractorParams struct {
	Vocab     *vocab.Store
	Overrides ColumnOverrides
}

// NewExtractor builds an Extractor. A nil vocabulary store is replaced with
// an empty one so standardization degrades to identity.
func NewExtractor(params NewExtractorParams) *Extractor {
	v := params.Vocab
	if v == nil {
		v = vocab.NewEmptyStore()
	}
	return &Extractor{
		vocab:      v,
		classifier: NewClassifier(params.Overrides),
	}
}

// Extract processes all records of one document. Field-level failures are
// collected on the result and do not stop extraction.
func (e *Extractor) Extract(records []common.Record) *common.ExtractionResult {
	result := &common.ExtractionResult{
		Metadata: map[string]any{"record_count": len(records)},
	}
	if len(records) > 0 {
		result.SourceFile = records[0].SourceFile
	}
	for _, record := range records {
		var entities []common.Entity
		var relations []common.Relation
		if record.IsText() {
			entities, relations = e.extractText(record)
		} else {
			var errs []string
			entities, relations, errs = e.extractRecord(record)
			result.Errors = append(result.Errors, errs...)
		}
		result.Entities = append(result.Entities, entities...)
		result.Relations = append(result.Relations, relations...)
	}
	return result
}

// extractRecord handles one tabular record: classify each column, emit one
// candidate entity per non-empty classified value, then apply the relation
// rules over the entities of this record only.
func (e *Extractor) extractRecord(record common.Record) ([]common.Entity, []common.Relation, []string) {
	columns := make([]string, 0, len(record.Fields))
	for column := range record.Fields {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	var entities []common.Entity
	var errs []string
	byType := make(map[common.EntityType][]common.Entity)
	for _, column := range columns {
		entityType, ok := e.classifier.ClassifyColumn(column)
		if !ok {
			continue
		}
		value := strings.TrimSpace(record.Fields[column])
		if value == "" {
			continue
		}
		if len(value) > maxFieldLength {
			errs = append(errs, fmt.Sprintf("%s row %d: field %q value too long (%d bytes), skipped",
				record.SourceFile, record.Index, column, len(value)))
			continue
		}
		entity := e.newEntity(entityType, value, record, column)
		entities = append(entities, entity)
		byType[entityType] = append(byType[entityType], entity)
	}
	return entities, recordRelations(byType, record.SourceFile), errs
}

// newEntity standardizes the raw value, derives the business key, and
// attaches provenance properties.
func (e *Extractor) newEntity(entityType common.EntityType, rawValue string, record common.Record, column string) common.Entity {
	name := e.vocab.Standardize(entityType, rawValue)
	key := MakeKey(entityType, name, record.Fields)
	if strings.HasSuffix(key, ":") {
		key = string(entityType) + ":" + FallbackIdentity(record)
	}
	return common.Entity{
		ID:   gonanoid.Must(),
		Key:  key,
		Name: name,
		Type: entityType,
		Properties: map[string]any{
			"original_value": rawValue,
			"column":         column,
			"row":            record.Index,
		},
		SourceFile:     record.SourceFile,
		SourceLocation: record.Location,
	}
}

// relationRule derives directed edges between two entity types that co-occur
// in one record.
type relationRule struct {
	sourceType   common.EntityType
	targetType   common.EntityType
	relationType string
	confidence   float64
}

// recordRules is the fixed per-record relation table. BELONGS_TO carries a
// lower confidence than INCLUDES: it is implied by co-occurrence rather than
// stated.
var recordRules = []relationRule{
	{common.EntityProduct, common.EntityComponent, RelationIncludes, 0.9},
	{common.EntityComponent, common.EntityProduct, RelationBelongsTo, 0.8},
	{common.EntityAnomaly, common.EntitySymptom, RelationHasSymptom, 0.9},
	{common.EntityAnomaly, common.EntityCountermeasure, RelationResolvedBy, 0.8},
	{common.EntityRootCause, common.EntityAnomaly, RelationCauses, 0.85},
}

func recordRelations(byType map[common.EntityType][]common.Entity, sourceFile string) []common.Relation {
	var relations []common.Relation
	for _, rule := range recordRules {
		for _, source := range byType[rule.sourceType] {
			for _, target := range byType[rule.targetType] {
				relations = append(relations, common.Relation{
					SourceID:   source.ID,
					TargetID:   target.ID,
					Type:       rule.relationType,
					Confidence: rule.confidence,
					Properties: map[string]any{"rule": "record_co_occurrence"},
					SourceFile: sourceFile,
				})
			}
		}
	}
	return relations
}

// extractText handles one unstructured text block: pattern-match each
// sentence, emit entities once per (type, name) within the block, and link
// entities sharing a sentence with a low-confidence co_occurs edge.
func (e *Extractor) extractText(record common.Record) ([]common.Entity, []common.Relation) {
	var entities []common.Entity
	var relations []common.Relation
	byKey := make(map[string]common.Entity)
	for i, sentence := range SplitSentences(record.Text) {
		var inSentence []common.Entity
		for _, mention := range matchSentence(sentence) {
			name := e.vocab.Standardize(mention.entityType, mention.name)
			key := MakeKey(mention.entityType, name, nil)
			entity, ok := byKey[key]
			if !ok {
				entity = common.Entity{
					ID:   gonanoid.Must(),
					Key:  key,
					Name: name,
					Type: mention.entityType,
					Properties: map[string]any{
						"original_value": mention.name,
						"sentence":       i,
					},
					SourceFile:     record.SourceFile,
					SourceLocation: record.Location,
				}
				byKey[key] = entity
				entities = append(entities, entity)
			}
			inSentence = append(inSentence, entity)
		}
		for a := 0; a < len(inSentence); a++ {
			for b := a + 1; b < len(inSentence); b++ {
				relations = append(relations, common.Relation{
					SourceID:   inSentence[a].ID,
					TargetID:   inSentence[b].ID,
					Type:       RelationCoOccurs,
					Confidence: 0.6,
					Properties: map[string]any{"rule": "sentence_co_occurrence", "sentence": i},
					SourceFile: record.SourceFile,
				})
			}
		}
	}
	return entities, relations
}
