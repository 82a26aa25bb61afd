package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <sql>...",
	Short: "Run statements in order without returning results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		coord, closeConn, err := openCoordinator(ctx, nil)
		if err != nil {
			return err
		}
		defer closeConn()

		if err := coord.Exec(ctx, args...); err != nil {
			return err
		}
		pterm.Success.Printfln("%d statements executed", len(args))
		return nil
	},
}
