//go:build cgo

package main

import (
	"context"

	"github.com/dusk-indust/codegraph/internal/archive"
	"github.com/dusk-indust/codegraph/internal/graph"
)

func saveKuzu(ctx context.Context, path string, snap *graph.Snapshot) error {
	a, err := archive.NewKuzuFileArchive(path)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Save(ctx, snap)
}
