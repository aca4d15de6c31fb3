// Command worklog is the command-line client of the worklog API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"
	"github.com/yukikurage/consultant-worklog/internal/cli"
	"github.com/yukikurage/consultant-worklog/internal/config"
	"github.com/yukikurage/consultant-worklog/internal/logging"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return cli.NewRootCommand(cfg, logger, version).ExecuteContext(ctx)
}
