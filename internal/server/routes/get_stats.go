package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/defectgraph/backend/internal/server/middleware"
	"github.com/defectgraph/backend/pkg/common"
	"github.com/defectgraph/backend/pkg/logger"
)

// GetStatsHandler returns node/relation counts of the persisted graph.
func GetStatsHandler(c echo.Context) error {
	type getStatsResponse struct {
		Message string             `json:"message,omitempty"`
		Stats   *common.GraphStats `json:"stats,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	stats, err := app.Storage.Stats(c.Request().Context())
	if err != nil {
		logger.Error("Failed to read graph stats", "err", err)
		return c.JSON(http.StatusInternalServerError, getStatsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getStatsResponse{Stats: stats})
}
