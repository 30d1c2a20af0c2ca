package main

import (
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func runCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one live sync cycle and exit",
		Long:  "Run one live sync cycle. A cycle skipped by the run lock exits 0; an unrecoverable failure exits 1.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.app.LiveSync.Run(ctx)
			if err != nil {
				rt.logger.ErrorContext(ctx, "live sync run failed", "run_id", result.RunID, "error", err)
				return fmt.Errorf("live sync run: %w", err)
			}

			if !jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", result.Status, result.Message)
				return nil
			}
			return sonic.ConfigDefault.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the run result as JSON")
	return cmd
}
