package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/defectgraph/backend/internal/status"
	"github.com/defectgraph/backend/pkg/graph"
	"github.com/defectgraph/backend/pkg/loader"
	csvloader "github.com/defectgraph/backend/pkg/loader/csv"
	docloader "github.com/defectgraph/backend/pkg/loader/doc"
	excelloader "github.com/defectgraph/backend/pkg/loader/excel"
	textloader "github.com/defectgraph/backend/pkg/loader/text"
	"github.com/defectgraph/backend/pkg/logger"
	"github.com/defectgraph/backend/pkg/store"
)

// ExtractJob is the message published to the extract queue per uploaded
// file.
type ExtractJob struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Path     string `json:"path"`
}

// ExtractDeps bundles what the extract handler needs.
type ExtractDeps struct {
	Status  *status.Store
	Storage store.GraphStorage
	Graph   *graph.GraphClient
	Loader  loader.FileLoader
}

// processingTTL guards the in-flight flag against dead workers.
const processingTTL = 30 * time.Minute

// NewRecordSource builds the record source matching the document type.
func NewRecordSource(file loader.DocumentFile) (loader.RecordSource, error) {
	switch file.Type {
	case loader.DocumentTypeCSV:
		return csvloader.NewCSVRecordSource(file), nil
	case loader.DocumentTypeExcel:
		return excelloader.NewExcelRecordSource(file), nil
	case loader.DocumentTypeDocx:
		return docloader.NewDocxRecordSource(file), nil
	case loader.DocumentTypeText:
		return textloader.NewTextRecordSource(file), nil
	default:
		return nil, fmt.Errorf("no record source for type %q", file.Type)
	}
}

// ProcessExtractMessage handles one extract job: claim the in-flight flag,
// run the pipeline, record the outcome.
//
// A returned error means the message should be retried; terminal failures
// (unreadable document) are recorded on the status store and the message is
// treated as handled.
func ProcessExtractMessage(ctx context.Context, deps ExtractDeps, body []byte) error {
	var job ExtractJob
	if err := json.Unmarshal(body, &job); err != nil {
		logger.Error("Dropping malformed extract job", "err", err)
		return nil
	}

	acquired, err := deps.Status.TryAcquire(ctx, job.FileID, processingTTL)
	if err != nil {
		return fmt.Errorf("acquire in-flight flag: %w", err)
	}
	if !acquired {
		logger.Warn("Extract already in flight, skipping", "file_id", job.FileID)
		return nil
	}
	defer func() {
		if err := deps.Status.Release(context.WithoutCancel(ctx), job.FileID); err != nil {
			logger.Error("Failed to release in-flight flag", "file_id", job.FileID, "err", err)
		}
	}()

	if err := deps.Status.Set(ctx, status.FileStatus{
		ID:    job.FileID,
		Name:  job.FileName,
		Path:  job.Path,
		State: status.StateProcessing,
	}); err != nil {
		return err
	}

	file, err := loader.NewDocumentFile(loader.NewDocumentFileParams{
		ID:       job.FileID,
		FilePath: job.Path,
		Loader:   deps.Loader,
	})
	if err != nil {
		return failJob(ctx, deps, job, err)
	}
	source, err := NewRecordSource(file)
	if err != nil {
		return failJob(ctx, deps, job, err)
	}

	result, err := deps.Graph.ProcessDocument(ctx, source, deps.Storage)
	if errors.Is(err, graph.ErrRead) {
		// The document itself is broken; retrying cannot help.
		return failJob(ctx, deps, job, err)
	}
	if err != nil {
		if setErr := deps.Status.Set(ctx, status.FileStatus{
			ID:     job.FileID,
			Name:   job.FileName,
			Path:   job.Path,
			State:  status.StateFailed,
			Errors: []string{err.Error()},
		}); setErr != nil {
			logger.Error("Failed to record job failure", "file_id", job.FileID, "err", setErr)
		}
		return err
	}

	return deps.Status.Set(ctx, status.FileStatus{
		ID:                job.FileID,
		Name:              job.FileName,
		Path:              job.Path,
		State:             status.StateDone,
		NodesUpserted:     result.NodesUpserted,
		RelationsUpserted: result.RelationsUpserted,
		RelationsSkipped:  result.RelationsSkipped,
		Errors:            result.Errors,
	})
}

func failJob(ctx context.Context, deps ExtractDeps, job ExtractJob, cause error) error {
	logger.Error("Extract job failed terminally", "file_id", job.FileID, "err", cause)
	return deps.Status.Set(ctx, status.FileStatus{
		ID:     job.FileID,
		Name:   job.FileName,
		Path:   job.Path,
		State:  status.StateFailed,
		Errors: []string{cause.Error()},
	})
}
