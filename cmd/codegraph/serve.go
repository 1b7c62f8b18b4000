package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/codegraph/internal/mcptools"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	httpAddr := fs.String("http", "", "serve MCP over HTTP at this address instead of stdio")
	skipIndex := fs.Bool("no-index", false, "start with an empty graph; use the index_repository tool later")
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

	if !*skipIndex {
		if _, err := a.pipeline.Bootstrap(ctx); err != nil {
			return err
		}
	}

	svc := mcptools.NewService(a.store, a.search)
	if *httpAddr != "" {
		fmt.Printf("serving MCP on %s\n", *httpAddr)
		return mcptools.RunHTTP(ctx, svc, *httpAddr)
	}
	return mcptools.RunStdio(ctx, svc)
}
