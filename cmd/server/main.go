package main

import (
	"github.com/afriplan/takeoff/internal/server"
	"github.com/afriplan/takeoff/internal/util"
	"github.com/afriplan/takeoff/pkg/logger"
	"github.com/afriplan/takeoff/pkg/logger/console"
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
