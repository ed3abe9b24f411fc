package cmd

import (
	"fmt"
	"strings"

	"keyenv/internal/utils"

	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied environment and where it was written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			prev := app.syncer.Previous()
			targets := app.syncer.TargetPaths()

			fmt.Fprintln(out, headerStyle.Render("Configuration"))
			fmt.Fprintf(out, "  directory: %s\n", app.paths.Dir)
			fmt.Fprintf(out, "  layout:    %s\n", app.resolver.Layout())
			if len(app.prefs.Selection) > 0 {
				fmt.Fprintf(out, "  selection: %s\n", strings.Join(app.prefs.Selection, "/"))
			}

			fmt.Fprintln(out, headerStyle.Render("\nApplied environment"))
			if prev.Len() == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			prev.Each(func(k, v string) bool {
				fmt.Fprintf(out, "  %s=%s\n", k, utils.MaskValue(k, v))
				return true
			})

			fmt.Fprintln(out, headerStyle.Render("\nTargets"))
			fmt.Fprintf(out, "  profile:   %s\n", targets.Profile)
			fmt.Fprintf(out, "  state:     %s\n", targets.State)
			for _, s := range targets.Settings {
				fmt.Fprintf(out, "  settings:  %s\n", s)
			}

			block, found, err := app.syncer.InspectProfile()
			switch {
			case err != nil:
				printWarning(cmd.ErrOrStderr(), "%v", err)
			case !found && prev.Len() > 0:
				printWarning(cmd.ErrOrStderr(), "the profile has no keyenv block; run 'keyenv use' to restore it")
			case found && !block.Equal(prev):
				printWarning(cmd.ErrOrStderr(), "the profile block differs from the applied state")
			}
			return nil
		},
	}
}
