package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"keyenv/config"
	"keyenv/internal/watch"

	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-apply the remembered selection whenever the configuration changes",
		Long: `Watch the configuration directory and re-apply the last selection after every
change, so that edited tokens or defaults reach the profile without running
'keyenv use' again. Send SIGHUP to force a re-apply; SIGINT or SIGTERM stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.prefs.HasSelection() {
				return ErrNoSelection
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.watch(ctx, cmd)
		},
	}
}

func (a *App) watch(ctx context.Context, cmd *cobra.Command) error {
	w, err := watch.New(watch.Options{
		Dir:    a.paths.Dir,
		Files:  []string{config.ConfigFileName, config.ProductsFileName, config.TokensFileName, config.PrefsFileName},
		Apply:  a.reapply,
		Logger: &a.logger,
		OnApply: func(err error) {
			if err != nil {
				PrintError(cmd.ErrOrStderr(), err)
			}
		},
	})
	if err != nil {
		return err
	}
	printSuccess(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)", a.paths.Dir)
	return w.Run(ctx)
}

// reapply resolves the remembered selection from the current files and
// applies it. Preferences are re-read so that targets changed by another
// keyenv process are honoured.
func (a *App) reapply() error {
	if err := a.reloadPrefs(); err != nil {
		return err
	}
	if err := a.buildSyncer(); err != nil {
		return err
	}
	if !a.prefs.HasSelection() {
		return ErrNoSelection
	}
	sel := config.SelectionFromKeys(a.prefs.Selection)
	env, err := a.resolver.Build(sel)
	if err != nil {
		return err
	}
	res, err := a.syncer.ApplyEnv(env)
	if err != nil {
		return err
	}
	a.logger.Info().Str("selection", config.Describe(sel)).Int("variables", res.Applied.Len()).Msg("re-applied")
	return nil
}
