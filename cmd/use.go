package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"keyenv/config"
	"keyenv/config/models"
	"keyenv/internal/envsync"
	"keyenv/internal/shell"

	"github.com/spf13/cobra"
)

func newUseCmd(app *App) *cobra.Command {
	var printExports, noPrompt bool
	useCmd := &cobra.Command{
		Use:   "use [provider|product] [product|model] [account]",
		Short: "Apply a selection to this process, your shell profile and settings files",
		Long: `Resolve a selection and apply it.

Missing levels are asked for interactively on a terminal. Without arguments
outside a terminal the last applied selection is used again.

Already running shells do not see the change. New shells pick it up from the
profile; to update the current shell use:
  eval "$(keyenv use --print openai codex work)"`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := app.completeSelection(args, !noPrompt && app.interactive(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			env, err := app.resolver.Build(sel)
			if err != nil {
				return err
			}
			warnInvalidURLs(cmd.ErrOrStderr(), env)

			res, err := app.syncer.ApplyEnv(env)
			if err != nil {
				return err
			}

			app.prefs.Selection = sel.Keys()
			if err := app.savePrefs(); err != nil {
				printWarning(cmd.ErrOrStderr(), "failed to remember selection: %v", err)
			}

			if printExports {
				fmt.Fprint(cmd.OutOrStdout(), shell.UnsetLines(res.Unset)+shell.ExportLines(res.Applied))
			}
			reportApply(cmd.ErrOrStderr(), config.Describe(sel), res)
			return nil
		},
	}
	useCmd.Flags().BoolVarP(&printExports, "print", "p", false, "print unset/export statements for eval")
	useCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "never ask for missing levels")
	return useCmd
}

func reportApply(w io.Writer, what string, res *envsync.Result) {
	printSuccess(w, "Applied %s (%d variables)", what, res.Applied.Len())
	if res.ProfileChanged {
		fmt.Fprintln(w, dimStyle.Render("  profile: "+res.ProfilePath))
	}
	if len(res.Unset) > 0 {
		fmt.Fprintln(w, dimStyle.Render("  unset:   "+strings.Join(res.Unset, " ")))
	}
	for _, p := range res.SettingsUpdated {
		fmt.Fprintln(w, dimStyle.Render("  synced:  "+p))
	}
}

// completeSelection fills in the levels missing from keys, by prompting when
// allowed and otherwise from the remembered selection
func (a *App) completeSelection(keys []string, prompt bool, out io.Writer) (config.Selection, error) {
	if len(keys) == 3 {
		return config.SelectionFromKeys(keys), nil
	}

	remembered := a.prefs.Selection
	if !prompt {
		if len(keys) == 0 && a.prefs.HasSelection() {
			return config.SelectionFromKeys(remembered), nil
		}
		names := make([]string, 0, 3)
		for _, l := range a.resolver.Levels() {
			names = append(names, string(l))
		}
		return config.Selection{}, fmt.Errorf("%w: expected %s", ErrInvalidSelection, strings.Join(names, ", "))
	}

	selector := NewSelector(a.stdin, out)
	levels := a.resolver.Levels()
	keys = slices.Clone(keys)
	for i := len(keys); i < 3; i++ {
		items, err := a.levelItems(i, keys)
		if err != nil {
			return config.Selection{}, err
		}

		current := ""
		if len(remembered) == 3 && slices.Equal(remembered[:i], keys[:i]) {
			current = remembered[i]
		}
		key, err := selector.PromptSimple(string(levels[i]), items, current)
		if err != nil {
			return config.Selection{}, err
		}
		keys = append(keys, key)
	}
	return config.SelectionFromKeys(keys), nil
}

func (a *App) levelItems(level int, keys []string) ([]models.Item, error) {
	switch level {
	case 0:
		return a.resolver.Groups()
	case 1:
		return a.resolver.Units(keys[0])
	default:
		accounts, err := a.resolver.Accounts(keys[0], keys[1])
		if err != nil {
			return nil, err
		}
		items := make([]models.Item, 0, len(accounts))
		for _, acc := range accounts {
			items = append(items, models.Item{Key: acc.Key, Name: acc.Name})
		}
		return items, nil
	}
}
