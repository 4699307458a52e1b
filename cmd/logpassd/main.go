// Command logpassd is the thin process entrypoint for the Logpass state
// engine: flag parsing and logger/database bootstrap only. Networking,
// consensus participation, and the eventloop's task scheduling are out
// of scope here (spec.md §1) — this binary exists so the engine can be
// exercised from the command line during development.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/state"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dataDir        string
		configOverride string
		rollbackDepth  uint32
		verbose        bool
	)

	root := &cobra.Command{
		Use:   "logpassd",
		Short: "Logpass state engine node",
	}

	flags := pflag.NewFlagSet("logpassd", pflag.ExitOnError)
	flags.StringVar(&dataDir, "datadir", "./data", "database directory")
	flags.StringVar(&configOverride, "config", "", "optional TOML constant-table override")
	flags.Uint32Var(&rollbackDepth, "rollback-depth", 0, "rollback this many blocks on startup and exit")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().AddFlagSet(flags)

	root.RunE = func(cmd *cobra.Command, args []string) error {
		return run(dataDir, configOverride, rollbackDepth, verbose)
	}

	return root
}

func run(dataDir, configOverride string, rollbackDepth uint32, verbose bool) error {
	log, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	cfg := config.Default()
	if configOverride != "" {
		cfg, err = config.LoadOverrides(configOverride, cfg)
		if err != nil {
			return err
		}
	}

	db, err := state.Open(dataDir, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info("opened database",
		zap.String("dataDir", dataDir),
		zap.Uint32("latestBlockId", db.LatestBlockId()),
		zap.Uint32("maxRollbackDepth", db.MaxRollbackDepth()),
	)

	if rollbackDepth > 0 {
		ok, err := db.Rollback(rollbackDepth)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("logpassd: rollback of %d blocks refused (exceeds available frontier)", rollbackDepth)
		}
		log.Info("rolled back", zap.Uint32("blocks", rollbackDepth), zap.Uint32("newLatestBlockId", db.LatestBlockId()))
	}

	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
