package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/defectgraph/backend/internal/util"
	"github.com/defectgraph/backend/pkg/graph"
	"github.com/defectgraph/backend/pkg/logger"
	"github.com/defectgraph/backend/pkg/logger/console"
	neo4jstore "github.com/defectgraph/backend/pkg/store/neo4j"
)

// One-shot inference pass over the graph. Intended to run from cron or by
// hand after a batch of documents has been loaded.
func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	startTime := time.Now()
	written, err := graph.RunInference(ctx, storage)
	if err != nil {
		logger.Fatal("Inference pass failed", "err", err)
	}

	logger.Info("Inference pass complete",
		"relations_upserted", written,
		"duration", time.Since(startTime).Round(time.Millisecond).String())
}
