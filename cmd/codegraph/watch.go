package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/codegraph/internal/watcher"
)

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
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

	w, err := watcher.New(root, watcher.Options{
		Debounce:  a.cfg.Watch.Debounce(),
		QueueSize: a.cfg.Watch.QueueSize,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Println("watching for changes, ^C to stop")
	if err := a.pipeline.Run(ctx, w); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	snap := a.pipeline.Stats()
	fmt.Printf("changes: %d processed, %d failed\n", snap.EventsProcessed, snap.EventsFailed)
	return nil
}
