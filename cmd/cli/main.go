package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/migrainelog/internal/buildinfo"
	"github.com/dmitrijs2005/migrainelog/internal/client/cli"
	"github.com/dmitrijs2005/migrainelog/internal/client/config"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig(os.Args[1:])
	logger := logging.NewConsoleLogger(os.Stderr, cfg.LogLevel)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
