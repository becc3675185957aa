package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/defectgraph/backend/internal/server/middleware"
	"github.com/defectgraph/backend/pkg/graph"
	"github.com/defectgraph/backend/pkg/logger"
)

// RunInferenceHandler triggers a synchronous tag-overlap inference pass.
// The pass is idempotent, so triggering it repeatedly is harmless.
func RunInferenceHandler(c echo.Context) error {
	type inferResponse struct {
		Message           string `json:"message"`
		RelationsUpserted int    `json:"relations_upserted"`
	}

	app := c.(*middleware.AppContext).App
	written, err := graph.RunInference(c.Request().Context(), app.Storage)
	if err != nil {
		logger.Error("Inference pass failed", "err", err)
		return c.JSON(http.StatusInternalServerError, inferResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, inferResponse{
		Message:           "Inference pass complete",
		RelationsUpserted: written,
	})
}
