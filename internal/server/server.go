package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/defectgraph/backend/internal/queue"
	mid "github.com/defectgraph/backend/internal/server/middleware"
	"github.com/defectgraph/backend/internal/status"
	"github.com/defectgraph/backend/internal/util"
	"github.com/defectgraph/backend/pkg/logger"
	neo4jstore "github.com/defectgraph/backend/pkg/store/neo4j"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusStore, err := status.NewStore(ctx, status.NewStoreParams{
		Addr:     util.GetEnvString("REDIS_ADDR", "localhost:6379"),
		Password: util.GetEnv("REDIS_PASSWORD"),
		DB:       util.GetEnvInt("REDIS_DB", 0),
	})
	if err != nil {
		logger.Fatal("Failed to connect to redis", "err", err)
	}
	defer statusStore.Close()

	storage, err := neo4jstore.NewGraphStore(ctx, neo4jstore.NewGraphStoreParams{
		URI:      util.GetEnv("NEO4J_URI"),
		Username: util.GetEnv("NEO4J_USER"),
		Password: util.GetEnv("NEO4J_PASSWORD"),
		Database: util.GetEnv("NEO4J_DATABASE"),
		Timeout:  time.Duration(util.GetEnvInt("NEO4J_TIMEOUT_SECONDS", 10)) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to connect to neo4j", "err", err)
	}
	defer storage.Close(ctx)
	if err := storage.InitSchema(ctx); err != nil {
		logger.Warn("Schema init failed", "err", err)
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	uploadDir := util.GetEnvString("UPLOAD_DIR", "uploads")
	if err := os.MkdirAll(uploadDir, 0o750); err != nil {
		logger.Fatal("Failed to create upload directory", "dir", uploadDir, "err", err)
	}

	app := &mid.App{
		Queue:     ch,
		Status:    statusStore,
		Storage:   storage,
		UploadDir: uploadDir,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("512M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
