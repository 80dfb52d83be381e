// Package cli implements invoicectl, a command line client for the invoice
// snapshot store. Every command reads through the same Container the HTTP
// server uses.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gymcoding/invoice-web/internal/config"
	"github.com/gymcoding/invoice-web/internal/logging"
	"github.com/gymcoding/invoice-web/pkg/di"
	"github.com/gymcoding/invoice-web/remote/sqlstore"
)

var (
	version = "dev"
	commit  = "none"
)

type globalFlags struct {
	dsn        string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "invoicectl",
		Short:         "Inspect and seed the invoice snapshot store",
		Long:          "invoicectl imports invoice fixtures into the snapshot store and reads them back through the cached repository.",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "Snapshot store DSN (defaults to STORE_DSN)")
	cmd.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newSeedCmd(flags))
	cmd.AddCommand(newGetCmd(flags))
	cmd.AddCommand(newListCmd(flags))
	cmd.AddCommand(newSearchCmd(flags))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the command line with ctx as the base context.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// env is what a command needs to talk to the store.
type env struct {
	config    *config.Config
	store     *sqlstore.Store
	container *di.Container
}

func (f *globalFlags) open(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if f.dsn != "" {
		cfg.Store.DSN = f.dsn
	}

	logger := logging.New(cfg.App.Env, cfg.App.LogLevel, cmd.ErrOrStderr())

	store, err := sqlstore.Open(cmd.Context(), cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	container, err := di.NewContainer(store, cfg, di.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &env{config: cfg, store: store, container: container}, nil
}

func (e *env) Close() error {
	return errors.Join(e.container.Close(), e.store.Close())
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
