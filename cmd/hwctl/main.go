package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"homework/internal/apiclient"
	"homework/internal/config"
	"homework/internal/console"
	"homework/internal/logging"
	"homework/internal/view"
)

func main() {
	yes := flag.Bool("y", false, "Answer yes to every confirmation.")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr; the UI owns stdout.
	log := logging.Must(cfg.Production(), "warn")
	defer func() { _ = log.Sync() }()

	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	api.Token = cfg.APIToken

	ui := console.New(os.Stdin, os.Stdout)
	ui.AssumeYes = *yes

	cli := &commandLine{api: api, ui: ui, out: os.Stdout, log: log, loc: loc, now: time.Now}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := append([]string{os.Args[0]}, flag.Args()...)
	if err := cli.run(ctx, args); err != nil {
		switch {
		case errors.Is(err, errHelp):
			os.Exit(2)
		case errors.Is(err, view.ErrCancelled):
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
