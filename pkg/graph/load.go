package graph

import (
	"context"
	"strings"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/logger"
	"github.com/defectgraph/backend/pkg/store"
)

// Canonical relation types. Everything written to the graph store is one of
// these.
const (
	RelationIncludes     = "INCLUDES"
	RelationBelongsTo    = "BELONGS_TO"
	RelationHasSymptom   = "HAS_SYMPTOM"
	RelationCauses       = "CAUSES"
	RelationResolvedBy   = "RESOLVED_BY"
	RelationSuppliedBy   = "SUPPLIED_BY"
	RelationOwnedBy      = "OWNED_BY"
	RelationDocumentedIn = "DOCUMENTED_IN"
	RelationResultOf     = "RESULT_OF"
	RelationAffects      = "AFFECTS"
	RelationRelatedTo    = "RELATED_TO"
	RelationHasRootCause = "HAS_ROOTCAUSE"
	RelationHappenedIn   = "HAPPENED_IN"
	RelationUsesTool     = "USES_TOOL"
	RelationMeasures     = "MEASURES"
	RelationConsumes     = "CONSUMES"

	// Extraction-time synonyms, canonicalized on load.
	RelationCoOccurs = "co_occurs"
)

// relationSynonyms maps extraction-time relation names to the canonical
// vocabulary written to the store.
var relationSynonyms = map[string]string{
	"CONTAINS":   RelationIncludes,
	"TESTS":      RelationResultOf,
	"CO_OCCURS":  RelationDocumentedIn,
	"RELATED_TO": RelationDocumentedIn,
}

// CanonicalRelationType uppercases a relation type and resolves synonyms.
func CanonicalRelationType(relationType string) string {
	upper := strings.ToUpper(strings.TrimSpace(relationType))
	if canonical, ok := relationSynonyms[upper]; ok {
		return canonical
	}
	return upper
}

// Load writes a deduplicated entity/relation batch into the graph store.
//
// It performs no deduplication of its own: the merge engine's output is
// trusted as minimal. Relations pointing at a key absent from the batch are
// skipped and counted, never fatal. Store failures abort the load and are
// marked retryable.
func Load(ctx context.Context, storage store.GraphStorage, entities []common.Entity, relations []common.Relation) (*common.LoadResult, error) {
	result := &common.LoadResult{}

	nodes, err := storage.UpsertEntities(ctx, entities)
	if err != nil {
		return nil, StoreError(err)
	}
	result.NodesUpserted = nodes

	known := make(map[string]struct{}, len(entities))
	for _, entity := range entities {
		known[entity.Key] = struct{}{}
	}

	writable := make([]common.Relation, 0, len(relations))
	for _, relation := range relations {
		if _, ok := known[relation.SourceKey]; !ok {
			logger.Warn("Skipping relation with dangling source", "source", relation.SourceKey, "type", relation.Type)
			result.RelationsSkipped++
			continue
		}
		if _, ok := known[relation.TargetKey]; !ok {
			logger.Warn("Skipping relation with dangling target", "target", relation.TargetKey, "type", relation.Type)
			result.RelationsSkipped++
			continue
		}
		relation.Type = CanonicalRelationType(relation.Type)
		writable = append(writable, relation)
	}

	upserted, err := storage.UpsertRelations(ctx, writable)
	if err != nil {
		return nil, StoreError(err)
	}
	result.RelationsUpserted = upserted
	return result, nil
}
