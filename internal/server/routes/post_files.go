package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/defectgraph/backend/internal/queue"
	"github.com/defectgraph/backend/internal/server/middleware"
	"github.com/defectgraph/backend/internal/status"
	"github.com/defectgraph/backend/pkg/loader"
	"github.com/defectgraph/backend/pkg/logger"
)

// UploadFileHandler accepts a multipart document upload, stores the blob on
// disk, creates the status record and enqueues the extract job.
func UploadFileHandler(c echo.Context) error {
	type uploadResponse struct {
		Message string `json:"message"`
		FileID  string `json:"file_id,omitempty"`
	}

	upload, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Missing file field",
		})
	}

	if _, err := loader.DetectType(upload.Filename); err != nil {
		return c.JSON(http.StatusUnsupportedMediaType, uploadResponse{
			Message: err.Error(),
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	fileID, err := gonanoid.New()
	if err != nil {
		logger.Error("Failed to generate file ID", "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	path := filepath.Join(app.UploadDir, fileID+filepath.Ext(upload.Filename))
	src, err := upload.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{
			Message: "Invalid upload",
		})
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		logger.Error("Failed to create upload blob", "path", path, "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		logger.Error("Failed to write upload blob", "path", path, "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	if err := app.Status.Set(ctx, status.FileStatus{
		ID:    fileID,
		Name:  upload.Filename,
		Path:  path,
		State: status.StateUploaded,
	}); err != nil {
		logger.Error("Failed to create status record", "file_id", fileID, "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	job, err := json.Marshal(queue.ExtractJob{
		FileID:   fileID,
		FileName: upload.Filename,
		Path:     path,
	})
	if err != nil {
		logger.Error("Failed to marshal extract job", "file_id", fileID, "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.ExtractQueue, job); err != nil {
		logger.Error("Failed to enqueue extract job", "file_id", fileID, "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, uploadResponse{
		Message: "File accepted for processing",
		FileID:  fileID,
	})
}
