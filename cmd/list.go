package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"keyenv/config/models"
	"keyenv/internal/utils"

	"github.com/spf13/cobra"
)

func newListCmd(app *App) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured providers, products, models or accounts",
		Long: `List the entries of the configuration.

Provider layout (config.toml):
  keyenv list providers
  keyenv list products <provider>
  keyenv list accounts <provider>

Product layout (products.toml + tokens.toml):
  keyenv list products
  keyenv list models <product>
  keyenv list accounts <model>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := app.resolver.Groups()
			if err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), groups)
		},
	}

	listCmd.AddCommand(
		&cobra.Command{
			Use:   "providers",
			Short: "List providers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if app.resolver.Layout() != models.LayoutProvider {
					return errors.New("the product layout has no providers; use 'keyenv list products'")
				}
				items, err := app.resolver.ListProviders()
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), items)
			},
		},
		&cobra.Command{
			Use:   "products [provider]",
			Short: "List products of a provider, or every product in the product layout",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if app.resolver.Layout() == models.LayoutProduct {
					if len(args) > 0 {
						return errors.New("the product layout lists products without a provider")
					}
					keys, err := app.resolver.ListProductKeys()
					if err != nil {
						return err
					}
					for _, k := range keys {
						fmt.Fprintln(cmd.OutOrStdout(), k)
					}
					return nil
				}
				if len(args) == 0 {
					return fmt.Errorf("%w: provider is required", ErrInvalidSelection)
				}
				items, err := app.resolver.ListProducts(args[0])
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), items)
			},
		},
		&cobra.Command{
			Use:   "models <product>",
			Short: "List models of a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				items, err := app.resolver.ListModels(args[0])
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), items)
			},
		},
		&cobra.Command{
			Use:   "accounts <provider|model>",
			Short: "List accounts that have both a name and a token",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var accounts []models.Account
				var err error
				if app.resolver.Layout() == models.LayoutProduct {
					accounts, err = app.resolver.ListAccountsForModel(args[0])
				} else {
					accounts, err = app.resolver.ListAccounts(args[0])
				}
				if err != nil {
					return err
				}
				return printAccounts(cmd.OutOrStdout(), accounts)
			},
		},
	)
	return listCmd
}

func printItems(w io.Writer, items []models.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\n", item.Key, item.Name)
	}
	return tw.Flush()
}

func printAccounts(w io.Writer, accounts []models.Account) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Key, a.Name, utils.MaskAPIKey(a.Token))
	}
	return tw.Flush()
}
