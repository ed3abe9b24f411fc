package cmd

import (
	"fmt"

	"keyenv/internal/envmap"
	"keyenv/internal/shell"

	"github.com/spf13/cobra"
)

func newClearCmd(app *App) *cobra.Command {
	var printExports bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every variable keyenv applied",
		Long: `Unset the variables of the last selection, remove the managed block from the
profile and forget the remembered selection. To clear the current shell too:
  eval "$(keyenv clear --print)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.syncer.ApplyEnv(envmap.EnvMap{})
			if err != nil {
				return err
			}

			app.prefs.Selection = nil
			if err := app.savePrefs(); err != nil {
				printWarning(cmd.ErrOrStderr(), "failed to forget selection: %v", err)
			}

			if printExports {
				fmt.Fprint(cmd.OutOrStdout(), shell.UnsetLines(res.Unset))
			}
			printSuccess(cmd.ErrOrStderr(), "Cleared %d variables", len(res.Unset))
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&printExports, "print", "p", false, "print unset statements for eval")
	return clearCmd
}
