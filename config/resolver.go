package config

import (
	"fmt"

	"keyenv/config/models"
	"keyenv/config/validation"
	"keyenv/internal/envmap"

	"github.com/rs/zerolog"
)

// Selection identifies one environment: provider/product/account in the
// provider layout, product/model/account in the product layout.
type Selection struct {
	Group   string
	Unit    string
	Account string
}

// Keys returns the selection in level order
func (s Selection) Keys() []string {
	return []string{s.Group, s.Unit, s.Account}
}

// SelectionFromKeys builds a Selection from up to three keys
func SelectionFromKeys(keys []string) Selection {
	var s Selection
	if len(keys) > 0 {
		s.Group = keys[0]
	}
	if len(keys) > 1 {
		s.Unit = keys[1]
	}
	if len(keys) > 2 {
		s.Account = keys[2]
	}
	return s
}

// Resolver projects the configuration documents onto environment maps. It
// holds no document state: every call reads the files again, so edits made
// while the tool runs are always picked up. Safe for concurrent use.
type Resolver struct {
	paths     Paths
	layout    models.Layout
	validator *validation.Validator
	logger    zerolog.Logger
}

// NewResolver creates a resolver for the given layout
func NewResolver(paths Paths, layout models.Layout, logger zerolog.Logger) *Resolver {
	return &Resolver{
		paths:     paths,
		layout:    layout,
		validator: validation.NewValidator(),
		logger:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Layout returns the hierarchy this resolver serves
func (r *Resolver) Layout() models.Layout {
	return r.layout
}

// Paths returns the files this resolver reads
func (r *Resolver) Paths() Paths {
	return r.paths
}

// Levels names the three selection levels for the active layout
func (r *Resolver) Levels() []Level {
	if r.layout == models.LayoutProduct {
		return []Level{LevelProduct, LevelModel, LevelAccount}
	}
	return []Level{LevelProvider, LevelProduct, LevelAccount}
}

func (r *Resolver) providerCatalog() (*models.Catalog, error) {
	r.logger.Debug().Str("path", r.paths.ConfigFile).Msg("reading provider configuration")
	return loadProviderCatalog(r.paths.ConfigFile)
}

func (r *Resolver) productCatalog() (*models.Catalog, error) {
	r.logger.Debug().
		Str("products", r.paths.ProductsFile).
		Str("tokens", r.paths.TokensFile).
		Msg("reading product configuration")
	return loadProductCatalog(r.paths.ProductsFile, r.paths.TokensFile)
}

// ListProviders returns every provider that has a display name
func (r *Resolver) ListProviders() ([]models.Item, error) {
	cat, err := r.providerCatalog()
	if err != nil {
		return nil, err
	}
	items := []models.Item{}
	for _, g := range cat.Groups {
		if g.Name == "" {
			continue
		}
		items = append(items, models.Item{Key: g.Key, Name: g.Name})
	}
	return items, nil
}

// ListProducts returns the products of a provider. An unknown provider or
// one without products yields an empty slice.
func (r *Resolver) ListProducts(provider string) ([]models.Item, error) {
	cat, err := r.providerCatalog()
	if err != nil {
		return nil, err
	}
	return unitItems(cat, provider), nil
}

// ListAccounts returns the configured accounts of a provider
func (r *Resolver) ListAccounts(provider string) ([]models.Account, error) {
	cat, err := r.providerCatalog()
	if err != nil {
		return nil, err
	}
	g, ok := cat.Group(provider)
	if !ok {
		return []models.Account{}, nil
	}
	return configured(g.Accounts), nil
}

// BuildEnv resolves provider/product/account to an environment map
func (r *Resolver) BuildEnv(provider, product, account string) (envmap.EnvMap, error) {
	if err := r.validator.ValidateSelection(
		[]string{string(LevelProvider), string(LevelProduct), string(LevelAccount)},
		provider, product, account,
	); err != nil {
		return envmap.EnvMap{}, err
	}
	cat, err := r.providerCatalog()
	if err != nil {
		return envmap.EnvMap{}, err
	}
	return resolve(cat, Selection{Group: provider, Unit: product, Account: account},
		[]Level{LevelProvider, LevelProduct, LevelAccount})
}

// ListProductKeys returns the product keys of the product layout
func (r *Resolver) ListProductKeys() ([]string, error) {
	cat, err := r.productCatalog()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(cat.Groups))
	for _, g := range cat.Groups {
		keys = append(keys, g.Key)
	}
	return keys, nil
}

// ListModels returns the models of a product, or an empty slice
func (r *Resolver) ListModels(product string) ([]models.Item, error) {
	cat, err := r.productCatalog()
	if err != nil {
		return nil, err
	}
	return unitItems(cat, product), nil
}

// ListAccountsForModel returns the configured accounts for a model. Account
// namespaces are per model, shared by every product offering it.
func (r *Resolver) ListAccountsForModel(model string) ([]models.Account, error) {
	cat, err := r.productCatalog()
	if err != nil {
		return nil, err
	}
	return configured(cat.ModelAccounts[model]), nil
}

// BuildModelEnv resolves product/model/account to an environment map
func (r *Resolver) BuildModelEnv(product, model, account string) (envmap.EnvMap, error) {
	if err := r.validator.ValidateSelection(
		[]string{string(LevelProduct), string(LevelModel), string(LevelAccount)},
		product, model, account,
	); err != nil {
		return envmap.EnvMap{}, err
	}
	cat, err := r.productCatalog()
	if err != nil {
		return envmap.EnvMap{}, err
	}
	return resolve(cat, Selection{Group: product, Unit: model, Account: account},
		[]Level{LevelProduct, LevelModel, LevelAccount})
}

// Groups lists the top level of the active layout
func (r *Resolver) Groups() ([]models.Item, error) {
	if r.layout == models.LayoutProvider {
		return r.ListProviders()
	}
	cat, err := r.productCatalog()
	if err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(cat.Groups))
	for _, g := range cat.Groups {
		items = append(items, models.Item{Key: g.Key, Name: g.Name})
	}
	return items, nil
}

// Units lists the second level below group
func (r *Resolver) Units(group string) ([]models.Item, error) {
	if r.layout == models.LayoutProduct {
		return r.ListModels(group)
	}
	return r.ListProducts(group)
}

// Accounts lists the configured accounts selectable for group/unit
func (r *Resolver) Accounts(group, unit string) ([]models.Account, error) {
	if r.layout == models.LayoutProduct {
		return r.ListAccountsForModel(unit)
	}
	return r.ListAccounts(group)
}

// Build resolves a selection in the active layout
func (r *Resolver) Build(sel Selection) (envmap.EnvMap, error) {
	if r.layout == models.LayoutProduct {
		return r.BuildModelEnv(sel.Group, sel.Unit, sel.Account)
	}
	return r.BuildEnv(sel.Group, sel.Unit, sel.Account)
}

func unitItems(cat *models.Catalog, group string) []models.Item {
	items := []models.Item{}
	g, ok := cat.Group(group)
	if !ok {
		return items
	}
	for _, u := range g.Units {
		items = append(items, models.Item{Key: u.Key, Name: u.Name})
	}
	return items
}

func configured(accounts []models.Account) []models.Account {
	out := []models.Account{}
	for _, a := range accounts {
		if a.Configured() {
			out = append(out, a)
		}
	}
	return out
}

// resolve walks the catalog for sel. levels names the three tiers for error
// reporting.
func resolve(cat *models.Catalog, sel Selection, levels []Level) (envmap.EnvMap, error) {
	g, ok := cat.Group(sel.Group)
	if !ok {
		return envmap.EnvMap{}, &SelectionNotFoundError{Level: levels[0], Key: sel.Group}
	}
	u, ok := g.Unit(sel.Unit)
	if !ok {
		return envmap.EnvMap{}, &SelectionNotFoundError{Level: levels[1], Key: sel.Unit}
	}
	a, ok := cat.Account(g, sel.Unit, sel.Account)
	if !ok {
		return envmap.EnvMap{}, &SelectionNotFoundError{Level: levels[2], Key: sel.Account}
	}
	if a.Token == "" {
		return envmap.EnvMap{}, &TokenMissingError{Account: a.Key}
	}
	if u.TokenField == "" {
		return envmap.EnvMap{}, &TokenFieldMissingError{Level: levels[1], Key: u.Key}
	}

	env := u.DefaultConfig.Clone()
	env.Set(u.TokenField, a.Token)
	return env, nil
}

// Describe renders a selection for messages, e.g. "openai/codex/work"
func Describe(sel Selection) string {
	return fmt.Sprintf("%s/%s/%s", sel.Group, sel.Unit, sel.Account)
}
