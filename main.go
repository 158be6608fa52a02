package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/audit-scripts/azaudit/cli"
	"github.com/audit-scripts/azaudit/globals"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:     os.Args[0],
		Version: globals.AZAUDIT_VERSION,
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.AddCommand(cli.AzCommands)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
