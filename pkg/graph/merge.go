package graph

import (
	"github.com/defectgraph/backend/pkg/common"
)

// ResolveRelations rewrites candidate relations onto surviving entity keys
// and deduplicates them by (source_key, target_key, type). Duplicates keep
// the maximum confidence and union their properties.
//
// Relations whose endpoints resolve to the same key (self-loops created by a
// merge) are dropped.
func ResolveRelations(relations []common.Relation, idToKey map[string]string) []common.Relation {
	type triple struct {
		source string
		target string
		kind   string
	}

	index := make(map[triple]int)
	var merged []common.Relation
	for _, relation := range relations {
		sourceKey := relation.SourceKey
		if sourceKey == "" {
			sourceKey = idToKey[relation.SourceID]
		}
		targetKey := relation.TargetKey
		if targetKey == "" {
			targetKey = idToKey[relation.TargetID]
		}
		if sourceKey == "" || targetKey == "" || sourceKey == targetKey {
			continue
		}

		key := triple{source: sourceKey, target: targetKey, kind: relation.Type}
		if i, ok := index[key]; ok {
			if relation.Confidence > merged[i].Confidence {
				merged[i].Confidence = relation.Confidence
			}
			for k, v := range relation.Properties {
				if merged[i].Properties == nil {
					merged[i].Properties = make(map[string]any)
				}
				merged[i].Properties[k] = v
			}
			continue
		}

		resolved := relation
		resolved.SourceKey = sourceKey
		resolved.TargetKey = targetKey
		index[key] = len(merged)
		merged = append(merged, resolved)
	}
	return merged
}
