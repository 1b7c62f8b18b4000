package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
)

func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	verbose := fs.Bool("verbose", false, "log per-file progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := rootArg(fs.Args())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(root, *verbose)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.pipeline.Bootstrap(ctx)
	if err != nil {
		return err
	}
	printStats(stats)
	return nil
}
