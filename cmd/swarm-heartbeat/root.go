package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dreschagin/swarm-heartbeat/pkg/config"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

// rootOptions общие флаги всех команд
type rootOptions struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "swarm-heartbeat",
		Short: "Heartbeat agent for an autonomous coding-agent swarm",
		Long: `swarm-heartbeat periodically collects host resources, agent process activity
and GitHub project progress, delivers the snapshot to a remote monitor and
appends it to a local JSONL log.

Commands:
  run        Run the scheduler and the REST API until interrupted
  once       Run a single heartbeat cycle; exit code 1 when delivery fails
  snapshot   Collect a snapshot and print it as JSON without delivering it`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil,
		"dotenv file(s) loaded before reading the environment (default: .env if present)")

	root.AddCommand(
		newRunCmd(opts),
		newOnceCmd(opts),
		newSnapshotCmd(opts),
	)

	return root
}

// load читает конфигурацию и создает logger
func (o *rootOptions) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, nil, err
	}

	log := logger.NewWithWriter(cfg.Logging.Level, os.Stderr).With("swarm_id", cfg.Heartbeat.SwarmID)
	return cfg, log, nil
}
