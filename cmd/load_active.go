package cmd

import (
	"fmt"

	"keyenv/internal/shell"

	"github.com/spf13/cobra"
)

func newLoadActiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "load-active",
		Short: "Print export statements for the last applied environment",
		Long:  "Print the last applied environment as export statements, for shells that do not source the managed profile. Use: eval \"$(keyenv load-active)\"",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), shell.ExportLines(app.syncer.Previous()))
			return nil
		},
	}
}
