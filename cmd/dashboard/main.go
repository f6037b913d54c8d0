// Package main provides the entry point for the terminal dashboard client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	colorable "github.com/mattn/go-colorable"

	"github.com/narvanalabs/builder-dashboard/internal/cli"
	"github.com/narvanalabs/builder-dashboard/internal/shutdown"
	"github.com/narvanalabs/builder-dashboard/pkg/config"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}

	stdout := colorable.NewColorableStdout()
	opts, exit, err := cli.Parse(args, cfg, stdout)
	if err != nil || exit {
		return err
	}

	// Logs go to stderr so they never interleave with rendered frames.
	log := logger.NewWithWriter(os.Stderr, logger.ParseLevel(cfg.Log.Level), cfg.Log.JSONLogs())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewFuncComponent("dashboard", func(context.Context) error {
		cancel()
		return nil
	}))
	go coordinator.Run(ctx)

	return cli.NewApp(cfg, opts, stdout, log).Run(ctx)
}
