package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/logger"
)

// mergePolicy decides when two candidate entities of the same type are the
// same logical entity.
type mergePolicy struct {
	exactKey  bool
	threshold float64
}

// mergePolicies is the per-type strategy table, fixed at startup. Types with
// composite business keys merge only on identical keys; names alone cannot
// distinguish two builds or two results of the same case.
var mergePolicies = map[common.EntityType]mergePolicy{
	common.EntityTestCase:   {exactKey: true},
	common.EntityTestStep:   {exactKey: true},
	common.EntityTestResult: {exactKey: true},
	common.EntityBuild:      {exactKey: true},
	common.EntityDoc:        {exactKey: true},
	common.EntityComponent:  {threshold: 0.8},
	common.EntityProduct:    {threshold: 0.9},
	common.EntityAnomaly:    {threshold: 0.85},
}

var defaultMergePolicy = mergePolicy{threshold: 0.8}

// borderlineMargin flags merges whose similarity barely cleared the
// threshold; they proceed, but get logged for review.
const borderlineMargin = 0.05

// NameSimilarity is the Jaccard similarity over whitespace-tokenized
// lowercase name tokens. It is symmetric and returns 1.0 when both names
// are empty.
func NameSimilarity(a, b string) float64 {
	tokensA := strings.Fields(strings.ToLower(a))
	tokensB := strings.Fields(strings.ToLower(b))
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}
	setA := make(map[string]struct{}, len(tokensA))
	for _, token := range tokensA {
		setA[token] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, token := range tokensB {
		setB[token] = struct{}{}
	}
	shared := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 1.0
	}
	return float64(shared) / float64(union)
}

// DedupeEntities collapses candidate entities into one entity per logical
// identity and returns the survivors plus a mapping from every candidate ID
// to its surviving entity key, used to resolve relation endpoints.
func DedupeEntities(entities []common.Entity) ([]common.Entity, map[string]string) {
	byType := make(map[common.EntityType][]common.Entity)
	var typeOrder []common.EntityType
	for _, entity := range entities {
		if _, ok := byType[entity.Type]; !ok {
			typeOrder = append(typeOrder, entity.Type)
		}
		byType[entity.Type] = append(byType[entity.Type], entity)
	}

	var merged []common.Entity
	idToKey := make(map[string]string, len(entities))
	for _, entityType := range typeOrder {
		policy, ok := mergePolicies[entityType]
		if !ok {
			policy = defaultMergePolicy
		}
		for _, group := range groupByPolicy(byType[entityType], policy) {
			survivor := mergeGroup(group)
			merged = append(merged, survivor)
			for _, member := range group {
				idToKey[member.ID] = survivor.Key
			}
		}
	}
	return merged, idToKey
}

// groupByPolicy partitions same-typed entities into merge groups. Exact-key
// types group by key; similarity types greedily attach each entity to the
// first existing group whose representative name clears the threshold.
func groupByPolicy(entities []common.Entity, policy mergePolicy) [][]common.Entity {
	if policy.exactKey {
		byKey := make(map[string]int)
		var groups [][]common.Entity
		for _, entity := range entities {
			if idx, ok := byKey[entity.Key]; ok {
				groups[idx] = append(groups[idx], entity)
				continue
			}
			byKey[entity.Key] = len(groups)
			groups = append(groups, []common.Entity{entity})
		}
		return groups
	}

	var groups [][]common.Entity
	for _, entity := range entities {
		placed := false
		for i, group := range groups {
			score := NameSimilarity(entity.Name, group[0].Name)
			if score >= policy.threshold {
				if score < policy.threshold+borderlineMargin && score < 1.0 {
					logger.Warn("Borderline entity merge",
						"type", entity.Type, "name", entity.Name,
						"into", group[0].Name, "similarity", fmt.Sprintf("%.3f", score))
				}
				groups[i] = append(groups[i], entity)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []common.Entity{entity})
		}
	}
	return groups
}

// mergeGroup collapses one merge group. The member with the most properties
// becomes the base (first wins on ties); properties are unioned with later
// members overwriting earlier values; the contributing source files become a
// sorted set property. The base key is never recomputed.
func mergeGroup(group []common.Entity) common.Entity {
	if len(group) == 1 {
		return group[0]
	}

	base := group[0]
	for _, member := range group[1:] {
		if len(member.Properties) > len(base.Properties) {
			base = member
		}
	}

	properties := make(map[string]any)
	sources := make(map[string]struct{})
	for _, member := range group {
		for k, v := range member.Properties {
			properties[k] = v
		}
		if member.SourceFile != "" {
			sources[member.SourceFile] = struct{}{}
		}
	}

	merged := base
	merged.Properties = properties
	merged.Properties["merged_from"] = len(group)
	if len(sources) > 0 {
		files := make([]string, 0, len(sources))
		for file := range sources {
			files = append(files, file)
		}
		sort.Strings(files)
		merged.Properties["all_source_files"] = files
	}
	return merged
}
