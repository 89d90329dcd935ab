package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type snapshotOptions struct {
	output string
	pretty bool
}

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	snapOpts := &snapshotOptions{}

	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"ss"},
		Short:   "Collect a snapshot and print it as JSON",
		Long: `Snapshot runs the collectors once and prints the result. Nothing is
delivered or persisted.

Example:
  swarm-heartbeat snapshot
  swarm-heartbeat snapshot --pretty=false -o snapshot.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd.Context(), opts, snapOpts)
		},
	}

	cmd.Flags().StringVarP(&snapOpts.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&snapOpts.pretty, "pretty", true, "Indent JSON output")

	return cmd
}

func runSnapshot(ctx context.Context, opts *rootOptions, snapOpts *snapshotOptions) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}

	// Без CloudWatch: снимок не должен уходить за пределы хоста
	cfg.CloudWatch.LogsEnabled = false
	cfg.CloudWatch.MetricsEnabled = false

	ctx = contextOrBackground(ctx)
	a, err := newAgent(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	snapshot := a.collect.Execute(ctx)

	var data []byte
	if snapOpts.pretty {
		data, err = json.MarshalIndent(snapshot, "", "  ")
	} else {
		data, err = json.Marshal(snapshot)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if snapOpts.output == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(snapOpts.output, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Snapshot saved to %s\n", snapOpts.output)
	return nil
}
