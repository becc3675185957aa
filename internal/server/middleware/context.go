package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/defectgraph/backend/internal/status"
	"github.com/defectgraph/backend/pkg/store"
)

// App bundles the shared service clients every handler needs.
type App struct {
	Queue     *amqp091.Channel
	Status    *status.Store
	Storage   store.GraphStorage
	UploadDir string
}

// AppContext wraps the echo context with the application clients.
type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware attaches the shared App to every request.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}
