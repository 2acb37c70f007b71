package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	xerrors "github.com/xrel-dev/xrel/internal/errors"
	"github.com/xrel-dev/xrel/pkg/cmd/factory"
	"github.com/xrel-dev/xrel/pkg/cmd/root"
)

// set with -ldflags "-X main.version=..."
var version = "DEV"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := factory.New(version)
	rootCmd, err := root.NewCmdRoot(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return xerrors.ExitCodeInternalError
	}
	rootCmd.SetContext(ctx)

	return xerrors.ExecuteWithErrorHandling(rootCmd, verboseRequested(os.Args[1:]))
}

// verboseRequested looks for --verbose before flags are parsed, so errors
// raised during parsing are reported in full too
func verboseRequested(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--":
			return false
		case "-v", "--verbose", "--verbose=true":
			return true
		}
	}
	return false
}
