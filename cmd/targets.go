package cmd

import (
	"fmt"
	"path/filepath"

	"keyenv/config"
	"keyenv/config/validation"
	"keyenv/internal/shell"

	"github.com/spf13/cobra"
)

func newTargetsCmd(app *App) *cobra.Command {
	targetsCmd := &cobra.Command{
		Use:   "targets",
		Short: "Show or change the files keyenv writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			targets := app.syncer.TargetPaths()

			fmt.Fprintf(out, "profile:  %s", targets.Profile)
			if app.prefs.Profile == "" {
				fmt.Fprint(out, dimStyle.Render(" (detected from $SHELL)"))
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "state:    %s\n", targets.State)
			for _, s := range targets.Settings {
				fmt.Fprintf(out, "settings: %s\n", s)
			}

			home, err := userHome()
			if err != nil {
				return nil
			}
			fmt.Fprintln(out, headerStyle.Render("\nKnown profiles"))
			for _, c := range shell.Candidates(home) {
				mark := " "
				if c.Exists {
					mark = "*"
				}
				fmt.Fprintf(out, "  %s %-5s %s\n", mark, c.Shell, c.Path)
			}
			return nil
		},
	}

	targetsCmd.AddCommand(
		&cobra.Command{
			Use:   "set-profile <path>",
			Short: "Write the managed block to path instead of the detected profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := absPath(args[0])
				if err != nil {
					return err
				}
				if err := validation.NewInputValidator().ValidateProfilePath(path); err != nil {
					return err
				}
				app.prefs.Profile = path
				if err := app.savePrefs(); err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "Profile set to %s", path)
				printWarning(cmd.ErrOrStderr(), "the block in the previous profile is not moved; run 'keyenv use' to write the new one")
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset-profile",
			Short: "Go back to the profile detected from $SHELL",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				app.prefs.Profile = ""
				if err := app.savePrefs(); err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "Profile reset to %s", app.syncer.TargetPaths().Profile)
				return nil
			},
		},
		&cobra.Command{
			Use:   "restore-profile",
			Short: "Restore the profile from its most recent backup",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := app.syncer.RestoreProfile()
				if err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "Restored %s from backup", path)
				printWarning(cmd.ErrOrStderr(), "run 'keyenv use' to write the current selection again")
				return nil
			},
		},
		&cobra.Command{
			Use:   "add-settings <path>",
			Short: "Keep the \"env\" object of a JSON settings file in step",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := absPath(args[0])
				if err != nil {
					return err
				}
				if !app.prefs.AddSettingsFile(path) {
					printWarning(cmd.ErrOrStderr(), "%s is already a target", path)
					return nil
				}
				if err := app.savePrefs(); err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "Added settings file %s", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove-settings <path>",
			Short: "Stop syncing a JSON settings file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := absPath(args[0])
				if err != nil {
					return err
				}
				if !app.prefs.RemoveSettingsFile(path) {
					return fmt.Errorf("%s is not a target", path)
				}
				if err := app.savePrefs(); err != nil {
					return err
				}
				printSuccess(cmd.ErrOrStderr(), "Removed settings file %s", path)
				return nil
			},
		},
	)
	return targetsCmd
}

func absPath(path string) (string, error) {
	expanded, err := config.ExpandHome(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

func userHome() (string, error) {
	return config.ExpandHome("~")
}
