package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lyzr/lineage/cmd/lineage-api/container"
	"github.com/lyzr/lineage/cmd/lineage-api/routes"
	"github.com/lyzr/lineage/common/bootstrap"
	"github.com/lyzr/lineage/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (logger, cache, upstream client, engine, telemetry)
	components, err := bootstrap.Setup(ctx, "lineage-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap lineage-api: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := routes.NewRouter(serviceContainer)

	cfg := components.Config
	srv := server.New("lineage-api", cfg.Service.Port, e, cfg.Service.RequestTimeout, components.Logger)
	if err := srv.Start(ctx); err != nil {
		components.Logger.Error("Server error", "error", err)
		components.Shutdown(ctx)
		os.Exit(1)
	}
}
