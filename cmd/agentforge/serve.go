package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Boot the dispatch loop and block",
	Long: `serve loads the agent roster and settings, starts the dispatch
and recharge tickers, and blocks until interrupted. Ctrl-C (or SIGTERM)
triggers a graceful shutdown: in-flight task executions are allowed to
finish before the process exits.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nagentforge: received interrupt, shutting down...")
		cancel()
	}()

	fmt.Printf("agentforge: serving with concurrency cap %d, workspace %q\n", a.settings.ConcurrencyCap, a.settings.WorkspaceRoot)
	return a.orchestrator.Run(ctx)
}
