package store

import (
	"context"

	"github.com/defectgraph/backend/pkg/common"
)

// GraphStorage is the persistence contract of the pipeline. Every write is
// an idempotent upsert keyed by business key, so retrying a whole document
// load is always safe.
type GraphStorage interface {
	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// InitSchema creates constraints and indexes. Best effort on stores
	// without schema support.
	InitSchema(ctx context.Context) error

	// UpsertEntities MERGEs entities by key and returns how many rows were
	// written. created_at is set once; updated_at is bumped on every write.
	UpsertEntities(ctx context.Context, entities []common.Entity) (int, error)

	// UpsertRelations MERGEs relations by (source key, target key, type).
	// Endpoints missing from the store are skipped silently.
	UpsertRelations(ctx context.Context, relations []common.Relation) (int, error)

	// UpsertInferredRelations MERGEs inference-produced relations,
	// refreshing confidence and overlap properties on re-runs.
	UpsertInferredRelations(ctx context.Context, relations []common.Relation) (int, error)

	// TaggedNodes returns all nodes of entityType that carry a non-empty
	// tag set.
	TaggedNodes(ctx context.Context, entityType common.EntityType) ([]common.TaggedNode, error)

	// Stats summarizes the persisted graph.
	Stats(ctx context.Context) (*common.GraphStats, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
