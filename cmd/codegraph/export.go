package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/codegraph/internal/archive"
	"github.com/dusk-indust/codegraph/internal/export"
)

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", "codegraph.json", "output path for the JSON snapshot")
	mermaidPath := fs.String("mermaid", "", "also write a Mermaid diagram to this path")
	kuzuPath := fs.String("kuzu", "", "also archive the graph to a KuzuDB database at this path")
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

	if _, err := a.pipeline.Bootstrap(ctx); err != nil {
		return err
	}

	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}

	if err := archive.WriteJSON(*out, a.repoID, snap, stats); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d nodes, %d edges)\n", *out, stats.Nodes, stats.Edges)

	if *mermaidPath != "" {
		diagram := export.GenerateMermaid(snap)
		if err := os.WriteFile(*mermaidPath, []byte(diagram), 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *mermaidPath)
	}

	if *kuzuPath != "" {
		if err := saveKuzu(ctx, *kuzuPath, snap); err != nil {
			return err
		}
		fmt.Printf("archived to %s\n", *kuzuPath)
	}
	return nil
}
