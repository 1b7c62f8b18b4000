package main

import (
	"fmt"
	"os"
)

// version is set by goreleaser at build time.
var version = "dev"

const usage = `usage: codegraph <command> [flags]

commands:
  index    bulk-index a repository and print graph statistics
  watch    index a repository and re-index on file changes
  serve    index a repository and expose the graph over MCP
  export   index a repository and write a graph snapshot
  status   summarize a previously exported snapshot
  version  print version and exit
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "index":
		return runIndex(rest)
	case "watch":
		return runWatch(rest)
	case "serve":
		return runServe(rest)
	case "export":
		return runExport(rest)
	case "status":
		return runStatus(rest)
	case "version", "-version", "--version":
		fmt.Println(version)
		return nil
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
