package models

import "keyenv/internal/envmap"

// Layout identifies which configuration hierarchy a catalog came from
type Layout int

const (
	// LayoutProvider is provider → product/account (config.toml, version 1)
	LayoutProvider Layout = iota + 1
	// LayoutProduct is product → model, with accounts per model (products.toml + tokens.toml, version 2)
	LayoutProduct
)

func (l Layout) String() string {
	switch l {
	case LayoutProvider:
		return "provider"
	case LayoutProduct:
		return "product"
	default:
		return "unknown"
	}
}

// Version returns the document version tag that selects this layout
func (l Layout) Version() int {
	return int(l)
}

// ProviderFile is the provider-centric document. The provider table is named
// "models" for compatibility with existing configuration files.
type ProviderFile struct {
	Version   int                       `toml:"version"`
	Providers map[string]ProviderConfig `toml:"models"`
}

// ProviderConfig is one credential vendor with its products and accounts
type ProviderConfig struct {
	Name     string                  `toml:"name"`
	Products map[string]ProductEntry `toml:"products"`
	Accounts map[string]AccountEntry `toml:"accounts"`
}

// ProductEntry is a product requiring a token in TokenField
type ProductEntry struct {
	Name          string         `toml:"name"`
	DefaultConfig map[string]any `toml:"default_config"`
	TokenField    string         `toml:"token_field"`
}

// AccountEntry holds one named token
type AccountEntry struct {
	Name  string `toml:"name"`
	Token string `toml:"token"`
}

// ProductFile is the product-centric document
type ProductFile struct {
	Version  int                     `toml:"version"`
	Products map[string]ProductGroup `toml:"products"`
}

// ProductGroup is a product offering several models
type ProductGroup struct {
	Name   string                `toml:"name"`
	Models map[string]ModelEntry `toml:"models"`
}

// ModelEntry carries its own defaults and token variable
type ModelEntry struct {
	Name          string         `toml:"name"`
	DefaultConfig map[string]any `toml:"default_config"`
	TokenField    string         `toml:"token_field"`
}

// TokenFile maps model key → account key → account
type TokenFile map[string]map[string]AccountEntry

// Item is a selectable key with its display name
type Item struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Account is a resolved credential holder
type Account struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Configured reports whether the account has both a display name and a token
func (a Account) Configured() bool {
	return a.Name != "" && a.Token != ""
}

// Unit is the level that owns default_config and token_field:
// a product in the provider layout, a model in the product layout.
type Unit struct {
	Key           string
	Name          string
	TokenField    string
	DefaultConfig envmap.EnvMap
}

// Group is the top level: a provider or a product
type Group struct {
	Key   string
	Name  string
	Units []Unit
	// Accounts is only populated in the provider layout
	Accounts []Account
}

// Unit returns the unit with the given key
func (g *Group) Unit(key string) (*Unit, bool) {
	for i := range g.Units {
		if g.Units[i].Key == key {
			return &g.Units[i], true
		}
	}
	return nil, false
}

// Catalog is the layout-neutral view of the configuration documents
type Catalog struct {
	Layout Layout
	Groups []Group
	// ModelAccounts holds accounts by model key in the product layout
	ModelAccounts map[string][]Account
}

// Group returns the group with the given key
func (c *Catalog) Group(key string) (*Group, bool) {
	for i := range c.Groups {
		if c.Groups[i].Key == key {
			return &c.Groups[i], true
		}
	}
	return nil, false
}

// AccountsFor returns the accounts selectable for a unit of a group. In the
// provider layout accounts belong to the provider; in the product layout
// they are looked up by model key alone.
func (c *Catalog) AccountsFor(group *Group, unitKey string) []Account {
	if c.Layout == LayoutProduct {
		return c.ModelAccounts[unitKey]
	}
	if group == nil {
		return nil
	}
	return group.Accounts
}

// Account finds an account by key among the accounts selectable for a unit
func (c *Catalog) Account(group *Group, unitKey, accountKey string) (*Account, bool) {
	accounts := c.AccountsFor(group, unitKey)
	for i := range accounts {
		if accounts[i].Key == accountKey {
			return &accounts[i], true
		}
	}
	return nil, false
}
