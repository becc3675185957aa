package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/logger"
	"github.com/defectgraph/backend/pkg/store"
)

// inferencePair configures one type pair the tag-overlap pass considers.
type inferencePair struct {
	sourceType   common.EntityType
	targetType   common.EntityType
	relationType string
}

// inferencePairs is the fixed pair table of the inference pass.
var inferencePairs = []inferencePair{
	{common.EntityComponent, common.EntitySymptom, RelationHasSymptom},
	{common.EntityTestCase, common.EntityTool, RelationUsesTool},
	{common.EntityTestCase, common.EntityMetric, RelationMeasures},
	{common.EntityProcess, common.EntityMaterial, RelationConsumes},
	{common.EntityProcess, common.EntityTool, RelationUsesTool},
	{common.EntityComponent, common.EntityComponent, RelationRelatedTo},
}

// Inference thresholds: a pair of nodes needs at least minCommonTags shared
// tags and a tag-set Jaccard of at least minTagJaccard.
const (
	minCommonTags = 2
	minTagJaccard = 0.3
)

// RunInference computes tag-overlap relations between already-persisted
// nodes and upserts them. Re-running is idempotent: the same pair recomputes
// the same confidence and refreshes the existing edge instead of creating a
// duplicate. Returns the number of relations written.
func RunInference(ctx context.Context, storage store.GraphStorage) (int, error) {
	cache := make(map[common.EntityType][]common.TaggedNode)
	fetch := func(entityType common.EntityType) ([]common.TaggedNode, error) {
		if nodes, ok := cache[entityType]; ok {
			return nodes, nil
		}
		nodes, err := storage.TaggedNodes(ctx, entityType)
		if err != nil {
			return nil, fmt.Errorf("fetch tagged %s nodes: %w", entityType, err)
		}
		cache[entityType] = nodes
		return nodes, nil
	}

	var relations []common.Relation
	for _, pair := range inferencePairs {
		sources, err := fetch(pair.sourceType)
		if err != nil {
			return 0, err
		}
		targets, err := fetch(pair.targetType)
		if err != nil {
			return 0, err
		}
		relations = append(relations, inferPair(pair, sources, targets)...)
	}

	if len(relations) == 0 {
		logger.Info("Inference pass produced no relations")
		return 0, nil
	}
	written, err := storage.UpsertInferredRelations(ctx, relations)
	if err != nil {
		return 0, StoreError(err)
	}
	logger.Info("Inference pass complete", "relations", written)
	return written, nil
}

// inferPair evaluates one type pair. For a same-type pair each unordered
// node pair is considered once, with the lexicographically smaller key as
// the source, so re-runs always produce the same single edge.
func inferPair(pair inferencePair, sources, targets []common.TaggedNode) []common.Relation {
	var relations []common.Relation
	for _, source := range sources {
		for _, target := range targets {
			if source.Key == target.Key {
				continue
			}
			if pair.sourceType == pair.targetType && source.Key > target.Key {
				continue
			}
			commonTags, jaccard := tagOverlap(source.Tags, target.Tags)
			if len(commonTags) < minCommonTags || jaccard < minTagJaccard {
				continue
			}
			relations = append(relations, common.Relation{
				SourceKey:  source.Key,
				TargetKey:  target.Key,
				Type:       pair.relationType,
				Confidence: jaccard,
				Properties: map[string]any{
					"inferred":     true,
					"rule":         "tag_overlap",
					"common_tags":  commonTags,
					"common_count": len(commonTags),
				},
			})
		}
	}
	return relations
}

// tagOverlap returns the sorted shared tags and the Jaccard similarity of
// two tag sets.
func tagOverlap(a, b []string) ([]string, float64) {
	setA := make(map[string]struct{}, len(a))
	for _, tag := range a {
		setA[tag] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, tag := range b {
		setB[tag] = struct{}{}
	}
	var shared []string
	for tag := range setA {
		if _, ok := setB[tag]; ok {
			shared = append(shared, tag)
		}
	}
	union := len(setA) + len(setB) - len(shared)
	if union == 0 {
		return nil, 0
	}
	sort.Strings(shared)
	return shared, float64(len(shared)) / float64(union)
}
