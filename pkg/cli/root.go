// Package cli wires the commands of the scan-in-analytics binary.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scan-in-analytics/pkg/config"
	"scan-in-analytics/pkg/services/reporting"
	"scan-in-analytics/pkg/store"
	"scan-in-analytics/pkg/store/postgres"
)

// Backend is what the commands need from a store.
type Backend interface {
	store.Store
	reporting.Reader
	Close() error
}

// openBackend connects to the configured database. Tests replace it.
var openBackend = func(cfg *config.Config, logg *logrus.Logger) (Backend, error) {
	return postgres.Open(cfg, logg)
}

type app struct {
	envFile  string
	logLevel string

	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "scan-in-analytics",
		Short: "Load extracted invoice data into the analytics store",
		Long: `Reads JSON exports of the document extraction service, normalizes the
records into vendors, customers, invoices, line items, payments and documents,
and writes them to PostgreSQL. The serve command exposes read-only analytics.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load environment variables from this file (default .env)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newIngestCmd(a), newResetCmd(a), newServeCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.envFile != "" {
		config.LoadEnv(a.envFile)
	} else {
		config.LoadEnv()
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	a.logger = config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	a.logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

func (a *app) entry(module string) *logrus.Entry {
	return logrus.NewEntry(a.logger).WithField("module", module)
}

// Execute runs the command line and returns the process exit status.
func Execute() int {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
