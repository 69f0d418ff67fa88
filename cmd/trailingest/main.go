package main

import (
	"context"
	"log"

	"trailingest/internal/app"
	"trailingest/internal/cli"
	"trailingest/internal/config"
)

func main() {
	// Inside Lambda there is no command line; the function configuration is
	// the whole configuration and the runtime must come up immediately.
	if config.IsLambda() {
		runLambda()
		return
	}

	cli.Execute()
}

func runLambda() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Adapters.Runtime = "lambda"

	application, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}
	defer application.Close()

	if err := application.Start(); err != nil {
		log.Fatalf("Runtime exited: %v", err)
	}
}
