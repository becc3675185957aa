package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/defectgraph/backend/internal/server/middleware"
	"github.com/defectgraph/backend/internal/status"
	"github.com/defectgraph/backend/pkg/logger"
)

// GetFileHandler returns the status record for an uploaded file.
func GetFileHandler(c echo.Context) error {
	type getFileResponse struct {
		Message string             `json:"message,omitempty"`
		File    *status.FileStatus `json:"file,omitempty"`
	}

	fileID := c.Param("id")
	if fileID == "" {
		return c.JSON(http.StatusBadRequest, getFileResponse{
			Message: "Missing file id",
		})
	}

	app := c.(*middleware.AppContext).App
	fileStatus, err := app.Status.Get(c.Request().Context(), fileID)
	if errors.Is(err, status.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getFileResponse{
			Message: "File not found",
		})
	}
	if err != nil {
		logger.Error("Failed to read file status", "file_id", fileID, "err", err)
		return c.JSON(http.StatusInternalServerError, getFileResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getFileResponse{File: fileStatus})
}
