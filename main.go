// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/macpilot-cli/cmd"
)

// main is the entry point for the macpilot CLI application.
func main() {
	// A SIGINT/SIGTERM cancels the context so in-flight subprocesses are
	// reaped and a running batch stops between chunks.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
