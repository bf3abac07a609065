// portalctl inspects and edits the login slot of a portal storage backend.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "portalctl:", err)
		if err == errUsage {
			usage(os.Stderr)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	const usageStr = `Usage: portalctl [-config <path>] [-device <id>] <command> [<args>]
Commands:
  status
        Print whether a login is stored.
  show
        Print the stored login record as JSON.
  set -file <path> | -token <jwt>
        Store a login record read from a JSON file or a hand-off token.
  logout
        Remove the stored login record.
  token -file <path>
        Sign a hand-off token for a record, as the auth service would.
  help
        Print usage.
`
	fmt.Fprint(w, usageStr)
}
