package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree around app
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "keyenv",
		Short: "Switch API credentials between providers, products and accounts",
		Long: `keyenv resolves a provider/product/account selection from its configuration
files into environment variables and applies them to the current process,
a managed block in your shell profile, and optional JSON settings files.`,
		Version:       app.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	// 设置版本输出格式
	rootCmd.SetVersionTemplate(`keyenv {{.Version}}
Commit: ` + app.commit + `
Date: ` + app.date + `
`)

	rootCmd.PersistentFlags().StringVar(&app.configDir, "config-dir", "", "configuration directory (default $KEYENV_HOME or ~/.config/keyenv)")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newListCmd(app),
		newEnvCmd(app),
		newUseCmd(app),
		newClearCmd(app),
		newStatusCmd(app),
		newLoadActiveCmd(app),
		newTargetsCmd(app),
		newWatchCmd(app),
	)
	return rootCmd
}
