package memory

import (
	"context"
	"sync"
	"time"

	"github.com/defectgraph/backend/pkg/common"
)

// GraphStore is an in-memory store.GraphStorage used in tests and local
// development. It mirrors the MERGE semantics of the Neo4j store: nodes are
// unique by key, relations by (source, target, type), and re-upserting only
// bumps updated_at.
type GraphStore struct {
	mu        sync.RWMutex
	nodes     map[string]*node
	relations map[relationKey]*edge
}

type node struct {
	entity    common.Entity
	createdAt time.Time
	updatedAt time.Time
}

type relationKey struct {
	source string
	target string
	kind   string
}

type edge struct {
	relation  common.Relation
	createdAt time.Time
	updatedAt time.Time
}

// NewGraphStore creates an empty in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		nodes:     make(map[string]*node),
		relations: make(map[relationKey]*edge),
	}
}

func (s *GraphStore) Ping(ctx context.Context) error       { return nil }
func (s *GraphStore) InitSchema(ctx context.Context) error { return nil }
func (s *GraphStore) Close(ctx context.Context) error      { return nil }

// UpsertEntities merges entities by key. Properties of an existing node are
// overwritten field by field, matching SET e += props.
func (s *GraphStore) UpsertEntities(ctx context.Context, entities []common.Entity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, entity := range entities {
		existing, ok := s.nodes[entity.Key]
		if !ok {
			copied := entity
			copied.Properties = copyProps(entity.Properties)
			s.nodes[entity.Key] = &node{entity: copied, createdAt: now, updatedAt: now}
			continue
		}
		if existing.entity.Properties == nil {
			existing.entity.Properties = make(map[string]any)
		}
		for k, v := range entity.Properties {
			existing.entity.Properties[k] = v
		}
		existing.entity.Name = entity.Name
		existing.entity.SourceFile = entity.SourceFile
		existing.entity.SourceLocation = entity.SourceLocation
		existing.updatedAt = now
	}
	return len(entities), nil
}

// UpsertRelations merges relations by triple. Relations referencing a key
// not present in the store are skipped, like a failed MATCH.
func (s *GraphStore) UpsertRelations(ctx context.Context, relations []common.Relation) (int, error) {
	return s.upsertRelations(relations)
}

// UpsertInferredRelations behaves like UpsertRelations; confidence and
// properties are refreshed in place on re-runs.
func (s *GraphStore) UpsertInferredRelations(ctx context.Context, relations []common.Relation) (int, error) {
	return s.upsertRelations(relations)
}

func (s *GraphStore) upsertRelations(relations []common.Relation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	written := 0
	for _, relation := range relations {
		if _, ok := s.nodes[relation.SourceKey]; !ok {
			continue
		}
		if _, ok := s.nodes[relation.TargetKey]; !ok {
			continue
		}
		key := relationKey{source: relation.SourceKey, target: relation.TargetKey, kind: relation.Type}
		existing, ok := s.relations[key]
		if !ok {
			copied := relation
			copied.Properties = copyProps(relation.Properties)
			s.relations[key] = &edge{relation: copied, createdAt: now, updatedAt: now}
			written++
			continue
		}
		existing.relation.Confidence = relation.Confidence
		if existing.relation.Properties == nil {
			existing.relation.Properties = make(map[string]any)
		}
		for k, v := range relation.Properties {
			existing.relation.Properties[k] = v
		}
		existing.updatedAt = now
		written++
	}
	return written, nil
}

// TaggedNodes returns nodes of entityType whose "tags" property is a
// non-empty string list.
func (s *GraphStore) TaggedNodes(ctx context.Context, entityType common.EntityType) ([]common.TaggedNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nodes []common.TaggedNode
	for _, n := range s.nodes {
		if n.entity.Type != entityType {
			continue
		}
		tags := stringList(n.entity.Properties["tags"])
		if len(tags) == 0 {
			continue
		}
		nodes = append(nodes, common.TaggedNode{
			Key:  n.entity.Key,
			Name: n.entity.Name,
			Type: entityType,
			Tags: tags,
		})
	}
	return nodes, nil
}

// Stats summarizes the stored graph.
func (s *GraphStore) Stats(ctx context.Context) (*common.GraphStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &common.GraphStats{
		TotalNodes:      len(s.nodes),
		TotalRelations:  len(s.relations),
		NodesByType:     make(map[string]int),
		RelationsByType: make(map[string]int),
	}
	files := make(map[string]struct{})
	for _, n := range s.nodes {
		stats.NodesByType[string(n.entity.Type)]++
		if n.entity.SourceFile != "" {
			files[n.entity.SourceFile] = struct{}{}
		}
	}
	for key := range s.relations {
		stats.RelationsByType[key.kind]++
	}
	for file := range files {
		stats.SourceFiles = append(stats.SourceFiles, file)
	}
	return stats, nil
}

// Entity returns the stored entity for key, for test assertions.
func (s *GraphStore) Entity(key string) (common.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[key]
	if !ok {
		return common.Entity{}, false
	}
	return n.entity, true
}

// Relation returns the stored relation for the triple, for test assertions.
func (s *GraphStore) Relation(sourceKey, targetKey, relationType string) (common.Relation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.relations[relationKey{source: sourceKey, target: targetKey, kind: relationType}]
	if !ok {
		return common.Relation{}, false
	}
	return e.relation, true
}

func copyProps(props map[string]any) map[string]any {
	copied := make(map[string]any, len(props))
	for k, v := range props {
		copied[k] = v
	}
	return copied
}

func stringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		var tags []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}
