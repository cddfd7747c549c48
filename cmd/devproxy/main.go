package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	rulescmder "github.com/papercomputeco/devproxy/cmd/devproxy/rules"
	servecmder "github.com/papercomputeco/devproxy/cmd/devproxy/serve"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "devproxy",
		Short:        "Development server that proxies API paths to a local backend",
		SilenceUsage: true,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(rulescmder.NewRulesCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
