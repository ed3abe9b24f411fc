package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"keyenv/config"
	"keyenv/internal/envmap"
	"keyenv/internal/shell"
	"keyenv/internal/utils"

	"github.com/spf13/cobra"
)

func newEnvCmd(app *App) *cobra.Command {
	var asJSON bool
	envCmd := &cobra.Command{
		Use:   "env <provider|product> <product|model> <account>",
		Short: "Print the environment a selection resolves to",
		Long: `Print the environment variables of a selection without applying them.

The output is eval-able:
  eval "$(keyenv env openai codex work)"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.resolver.Build(config.SelectionFromKeys(args))
			if err != nil {
				return err
			}
			warnInvalidURLs(cmd.ErrOrStderr(), env)

			if asJSON {
				data, err := json.MarshalIndent(env, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), shell.ExportLines(env))
			return nil
		},
	}
	envCmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON object instead of export statements")
	return envCmd
}

// warnInvalidURLs flags *_URL values that are not http(s) URLs; they usually
// point at a typo in default_config
func warnInvalidURLs(w io.Writer, env envmap.EnvMap) {
	env.Each(func(key, value string) bool {
		if strings.HasSuffix(key, "_URL") && !utils.ValidateURL(value) {
			printWarning(w, "%s is not a valid http(s) URL: %q", key, value)
		}
		return true
	})
}
