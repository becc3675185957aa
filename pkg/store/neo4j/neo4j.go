package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/logger"
)

// GraphStore is the Neo4j-backed store.GraphStorage implementation. All
// writes are MERGE upserts keyed by the entity business key, so retries of
// the same batch converge to the same graph.
type GraphStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewGraphStoreParams configures the Neo4j connection.
type NewGraphStoreParams struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
	MaxPool  int
}

// NewGraphStore connects to Neo4j and verifies connectivity.
func NewGraphStore(ctx context.Context, params NewGraphStoreParams) (*GraphStore, error) {
	if params.Username == "" {
		params.Username = "neo4j"
	}
	if params.Timeout <= 0 {
		params.Timeout = 10 * time.Second
	}
	if params.MaxPool <= 0 {
		params.MaxPool = 50
	}

	driver, err := neo4j.NewDriverWithContext(params.URI, neo4j.BasicAuth(params.Username, params.Password, ""), func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = params.MaxPool
		cfg.SocketConnectTimeout = params.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("init neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &GraphStore{
		driver:   driver,
		database: params.Database,
	}, nil
}

// Ping verifies the connection is still alive.
func (s *GraphStore) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close shuts down the driver.
func (s *GraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *GraphStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// InitSchema creates the key constraint and lookup indexes. Failures are
// logged and not fatal: the pipeline works without them, just slower.
func (s *GraphStore) InitSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT entity_key_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.key IS UNIQUE`,
		`CREATE INDEX entity_name IF NOT EXISTS FOR (e:Entity) ON (e.name)`,
		`CREATE INDEX entity_type IF NOT EXISTS FOR (e:Entity) ON (e.type)`,
	}
	for _, stmt := range stmts {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			logger.Warn("Schema init statement failed, continuing", "error", err)
			continue
		}
		_, _ = result.Consume(ctx)
	}
	return nil
}

var validEntityLabels = func() map[common.EntityType]struct{} {
	labels := make(map[common.EntityType]struct{}, len(common.EntityTypes))
	for _, entityType := range common.EntityTypes {
		labels[entityType] = struct{}{}
	}
	return labels
}()

// relationTypePattern validates relation types before they are interpolated
// into Cypher; types come from the pipeline's closed vocabulary, this is a
// backstop.
var relationTypePattern = regexp.MustCompile(`^[A-Z][A-Z_]*$`)

// UpsertEntities MERGEs entities by key, one UNWIND batch per type label.
// created_at is set only on first write; updated_at is bumped every time.
func (s *GraphStore) UpsertEntities(ctx context.Context, entities []common.Entity) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}

	byType := make(map[common.EntityType][]map[string]any)
	for _, entity := range entities {
		if _, ok := validEntityLabels[entity.Type]; !ok {
			logger.Warn("Skipping entity with unknown type", "type", entity.Type, "key", entity.Key)
			continue
		}
		byType[entity.Type] = append(byType[entity.Type], map[string]any{
			"key":             entity.Key,
			"name":            entity.Name,
			"type":            string(entity.Type),
			"source_file":     entity.SourceFile,
			"source_location": entity.SourceLocation,
			"props":           entity.Properties,
		})
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	written := 0
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for entityType, rows := range byType {
			query := fmt.Sprintf(`
UNWIND $rows AS row
MERGE (e:Entity {key: row.key})
SET e += row.props,
    e.name = row.name,
    e.type = row.type,
    e.source_file = row.source_file,
    e.source_location = row.source_location,
    e.created_at = coalesce(e.created_at, datetime()),
    e.updated_at = datetime()
SET e:%s
`, entityType)
			result, err := tx.Run(ctx, query, map[string]any{"rows": rows})
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
			written += len(rows)
		}
		return nil, nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert entities: %w", err)
	}
	return written, nil
}

// UpsertRelations MERGEs relations by (source key, target key, type), one
// UNWIND batch per relation type. Rows whose endpoints do not exist in the
// store fall out of the MATCH and are not written.
func (s *GraphStore) UpsertRelations(ctx context.Context, relations []common.Relation) (int, error) {
	return s.upsertRelations(ctx, relations)
}

// UpsertInferredRelations MERGEs inference-produced relations. The shared
// MERGE path refreshes confidence and overlap properties, so re-running the
// inference pass updates edges in place.
func (s *GraphStore) UpsertInferredRelations(ctx context.Context, relations []common.Relation) (int, error) {
	return s.upsertRelations(ctx, relations)
}

func (s *GraphStore) upsertRelations(ctx context.Context, relations []common.Relation) (int, error) {
	if len(relations) == 0 {
		return 0, nil
	}

	byType := make(map[string][]map[string]any)
	for _, relation := range relations {
		if !relationTypePattern.MatchString(relation.Type) {
			logger.Warn("Skipping relation with invalid type", "type", relation.Type)
			continue
		}
		byType[relation.Type] = append(byType[relation.Type], map[string]any{
			"source_key": relation.SourceKey,
			"target_key": relation.TargetKey,
			"confidence": relation.Confidence,
			"props":      relation.Properties,
		})
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	written := 0
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for relationType, rows := range byType {
			query := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (s:Entity {key: row.source_key})
MATCH (t:Entity {key: row.target_key})
MERGE (s)-[r:%s]->(t)
SET r += row.props,
    r.confidence = row.confidence,
    r.created_at = coalesce(r.created_at, datetime()),
    r.updated_at = datetime()
RETURN count(r) AS written
`, relationType)
			result, err := tx.Run(ctx, query, map[string]any{"rows": rows})
			if err != nil {
				return nil, err
			}
			record, err := result.Single(ctx)
			if err != nil {
				return nil, err
			}
			if count, ok := record.Get("written"); ok {
				written += int(count.(int64))
			}
		}
		return nil, nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert relations: %w", err)
	}
	return written, nil
}

// TaggedNodes fetches nodes of one type carrying a non-empty tag set.
func (s *GraphStore) TaggedNodes(ctx context.Context, entityType common.EntityType) ([]common.TaggedNode, error) {
	if _, ok := validEntityLabels[entityType]; !ok {
		return nil, fmt.Errorf("unknown entity type: %s", entityType)
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
MATCH (n:Entity:%s)
WHERE n.tags IS NOT NULL AND size(n.tags) > 0
RETURN n.key AS key, n.name AS name, n.tags AS tags
`, entityType)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		var nodes []common.TaggedNode
		for res.Next(ctx) {
			record := res.Record()
			node := common.TaggedNode{Type: entityType}
			if v, ok := record.Get("key"); ok {
				node.Key, _ = v.(string)
			}
			if v, ok := record.Get("name"); ok {
				node.Name, _ = v.(string)
			}
			if v, ok := record.Get("tags"); ok {
				if raw, ok := v.([]any); ok {
					for _, tag := range raw {
						if str, ok := tag.(string); ok {
							node.Tags = append(node.Tags, str)
						}
					}
				}
			}
			nodes = append(nodes, node)
		}
		return nodes, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("fetch tagged nodes: %w", err)
	}
	return result.([]common.TaggedNode), nil
}

// Stats summarizes the persisted graph.
func (s *GraphStore) Stats(ctx context.Context) (*common.GraphStats, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		stats := &common.GraphStats{
			NodesByType:     make(map[string]int),
			RelationsByType: make(map[string]int),
		}

		res, err := tx.Run(ctx, `
MATCH (n:Entity)
RETURN n.type AS type, count(n) AS count
`, nil)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			record := res.Record()
			entityType, _ := record.Get("type")
			count, _ := record.Get("count")
			name, _ := entityType.(string)
			n := int(count.(int64))
			if name != "" {
				stats.NodesByType[name] = n
			}
			stats.TotalNodes += n
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, `
MATCH (:Entity)-[r]->(:Entity)
RETURN type(r) AS type, count(r) AS count
`, nil)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			record := res.Record()
			relationType, _ := record.Get("type")
			count, _ := record.Get("count")
			name, _ := relationType.(string)
			n := int(count.(int64))
			stats.RelationsByType[name] = n
			stats.TotalRelations += n
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, `
MATCH (n:Entity)
WHERE n.source_file IS NOT NULL AND n.source_file <> ''
RETURN DISTINCT n.source_file AS source_file
`, nil)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			record := res.Record()
			if v, ok := record.Get("source_file"); ok {
				if file, ok := v.(string); ok {
					stats.SourceFiles = append(stats.SourceFiles, file)
				}
			}
		}
		return stats, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("graph stats: %w", err)
	}
	return result.(*common.GraphStats), nil
}
