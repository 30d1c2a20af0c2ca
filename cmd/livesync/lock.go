package main

import (
	sonic "github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func lockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Print the run lock state without claiming it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer rt.close()

			status, err := rt.app.LockInspector().Inspect(ctx)
			if err != nil {
				return err
			}
			return sonic.ConfigDefault.NewEncoder(cmd.OutOrStdout()).Encode(status)
		},
	}
}
