package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/evgeny-myasishchev/statements-connector/pkg/app"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/statements-connector/pkg/version"
)

var logger = diag.CreateLogger()

var injector app.Injector

func bootstrap(cmd *cobra.Command, _ []string) error {
	appCfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	injector = app.BootstrapServices(cmd.Context(), appCfg)
	return nil
}

func shutdown(ctx context.Context) {
	if injector == nil {
		return
	}
	if err := injector(func(closer *app.Closer) {
		closer.Close(ctx)
	}); err != nil {
		logger.WithError(err).Warn(ctx, "Failed to release resources")
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               version.AppName,
		Short:             "Ingests bank statements into a log or event store",
		SilenceUsage:      true,
		PersistentPreRunE: bootstrap,
	}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(windowCmd())
	rootCmd.AddCommand(setupCmd())
	return rootCmd
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Failed to load .env file:", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	shutdown(context.Background())
	cancel()

	if err != nil {
		logger.WithError(err).Error(ctx, "Command failed")
		os.Exit(1)
	}
}
