package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/defectgraph/backend/internal/server/middleware"
	"github.com/defectgraph/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		app := c.(*middleware.AppContext).App
		if err := app.Storage.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	api.POST("/files", routes.UploadFileHandler)
	api.GET("/files/:id", routes.GetFileHandler)
	api.GET("/stats", routes.GetStatsHandler)
	api.POST("/infer", routes.RunInferenceHandler)
}
