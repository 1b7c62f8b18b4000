//go:build !cgo

package main

import (
	"context"
	"errors"

	"github.com/dusk-indust/codegraph/internal/graph"
)

func saveKuzu(context.Context, string, *graph.Snapshot) error {
	return errors.New("kuzu archiving requires a cgo-enabled build")
}
