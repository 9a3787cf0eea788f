package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
)

// app holds what every subcommand needs once the root pre-run has opened
// the ledger.
type app struct {
	cfg    *config.Config
	logger *applog.Logger
	res    *backend.BackendResult
}

func (a *app) store() *ledger.Store {
	return a.res.Ledger
}

// close releases the backend opened by the pre-run, if any.
func (a *app) close() error {
	if a.res == nil {
		return nil
	}
	err := a.res.Cleanup()
	a.res = nil
	return err
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	var (
		backendFlag string
		dbFlag      string
		verbose     bool
	)

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Administer the personal finance ledger",
		Long:          `ledgerctl reads and edits the ledger's transactions and categories directly in the configured backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cli.LoadEnvFile()
			cfg := config.Load()
			if backendFlag != "" {
				cfg.DataBackend = backendFlag
			}
			if dbFlag != "" {
				switch cfg.DataBackend {
				case config.BackendSQLite:
					cfg.SQLiteDBPath = dbFlag
				case config.BackendPostgres:
					cfg.DatabaseURL = dbFlag
				case config.BackendMemory:
					cfg.DataDir = dbFlag
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			a.logger = applog.New(applog.Config{
				Level:     level,
				Component: applog.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			if cfg.DataBackend == config.BackendMemory {
				a.logger.Warn("Memory backend: changes are discarded when the command exits")
			}

			bc, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			res, err := backend.NewFactory(a.logger.Logger).CreateBackend(cmd.Context(), bc)
			if err != nil {
				return err
			}
			a.cfg, a.res = cfg, res
			return nil
		},
	}

	root.PersistentFlags().StringVar(&backendFlag, "backend", "", "data backend (memory, sqlite, postgres); overrides DATA_BACKEND")
	root.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite path, PostgreSQL URL or memory seed directory for the chosen backend")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(statsCmd(a))
	root.AddCommand(transactionsCmd(a))
	root.AddCommand(categoriesCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(importCmd(a))
	return root, a
}

// run executes one command line and always closes the backend.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
