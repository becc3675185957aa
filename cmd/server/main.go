package main

import (
	"github.com/defectgraph/backend/internal/server"
	"github.com/defectgraph/backend/internal/util"
	"github.com/defectgraph/backend/pkg/logger"
	"github.com/defectgraph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
