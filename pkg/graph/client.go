package graph

import (
	"context"

	"github.com/defectgraph/backend/internal/util"
	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/loader"
	"github.com/defectgraph/backend/pkg/logger"
	"github.com/defectgraph/backend/pkg/store"
	"github.com/defectgraph/backend/pkg/vocab"
)

// GraphClient runs the document-to-graph pipeline: read records, extract
// candidates, deduplicate, load. One client is safe for sequential use per
// document; the graph store is the only shared state.
type GraphClient struct {
	extractor *Extractor
}

// NewGraphClientParams configures a GraphClient.
type NewGraphClientParams struct {
	Vocab     *vocab.Store
	Overrides ColumnOverrides
}

// NewGraphClient creates a pipeline client.
func NewGraphClient(params NewGraphClientParams) *GraphClient {
	return &GraphClient{
		extractor: NewExtractor(NewExtractorParams{
			Vocab:     params.Vocab,
			Overrides: params.Overrides,
		}),
	}
}

// maxReportedErrors bounds the error list surfaced to callers; the full list
// is still logged.
const maxReportedErrors = 10

// ProcessDocument runs the whole pipeline for one document and returns the
// load counts plus a bounded list of recovered extraction errors.
//
// A reader failure aborts before any write. A store failure aborts the load;
// the job stays retryable because every write is an idempotent upsert.
func (g *GraphClient) ProcessDocument(ctx context.Context, source loader.RecordSource, storage store.GraphStorage) (*common.LoadResult, error) {
	records, err := source.Records(ctx)
	if err != nil {
		return nil, ReadError(err)
	}

	extraction := g.extractor.Extract(records)
	logger.Info("Extraction complete",
		"file", source.SourceFile(),
		"records", len(records),
		"entities", len(extraction.Entities),
		"relations", len(extraction.Relations),
		"errors", len(extraction.Errors))

	entities, idToKey := DedupeEntities(extraction.Entities)
	relations := ResolveRelations(extraction.Relations, idToKey)
	logger.Debug("Deduplication complete",
		"file", source.SourceFile(),
		"entities", len(entities),
		"relations", len(relations))

	result, err := Load(ctx, storage, entities, relations)
	if err != nil {
		return nil, err
	}

	for _, message := range extraction.Errors {
		logger.Warn("Recovered extraction error", "file", source.SourceFile(), "error", message)
	}
	result.Errors = extraction.Errors[:util.Min(len(extraction.Errors), maxReportedErrors)]
	return result, nil
}
