package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"keyenv/config/models"
	"keyenv/internal/envmap"

	"github.com/BurntSushi/toml"
)

//go:embed default_products.toml
var defaultProducts string

// bundledProductsPath labels errors coming from the embedded catalog.
const bundledProductsPath = "<bundled products.toml>"

// keyOrder recovers document order from TOML metadata. Go maps lose it, and
// the order of default_config entries is the order of exports in the profile.
type keyOrder map[string][]string

func newKeyOrder(md toml.MetaData) keyOrder {
	ko := make(keyOrder)
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		for i := range key {
			parent := strings.Join(key[:i], "\x00")
			id := parent + "\x01" + key[i]
			if seen[id] {
				continue
			}
			seen[id] = true
			ko[parent] = append(ko[parent], key[i])
		}
	}
	return ko
}

// children orders present (the keys of a decoded map) as they appear under
// path in the document. Keys the metadata does not know come last, sorted.
func (ko keyOrder) children(present []string, path ...string) []string {
	want := make(map[string]bool, len(present))
	for _, k := range present {
		want[k] = true
	}

	out := make([]string, 0, len(present))
	for _, k := range ko[strings.Join(path, "\x00")] {
		if want[k] {
			out = append(out, k)
			delete(want, k)
		}
	}
	var rest []string
	for k := range want {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func decodeFile(path string, v any) (toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return toml.MetaData{}, &ConfigUnreadableError{Path: path, Err: err}
	}
	md, err := toml.Decode(string(data), v)
	if err != nil {
		return toml.MetaData{}, &ConfigUnreadableError{Path: path, Err: err}
	}
	return md, nil
}

func checkVersion(path string, got int, layout models.Layout) error {
	if got != 0 && got != layout.Version() {
		return &ConfigUnreadableError{
			Path: path,
			Err:  fmt.Errorf("unsupported version %d for the %s layout (want %d)", got, layout, layout.Version()),
		}
	}
	return nil
}

// loadProviderCatalog reads the provider-layout document.
func loadProviderCatalog(path string) (*models.Catalog, error) {
	var doc models.ProviderFile
	md, err := decodeFile(path, &doc)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(path, doc.Version, models.LayoutProvider); err != nil {
		return nil, err
	}

	ko := newKeyOrder(md)
	cat := &models.Catalog{Layout: models.LayoutProvider}
	for _, pk := range ko.children(mapKeys(doc.Providers), "models") {
		p := doc.Providers[pk]
		g := models.Group{Key: pk, Name: p.Name}

		for _, uk := range ko.children(mapKeys(p.Products), "models", pk, "products") {
			e := p.Products[uk]
			defaults, err := defaultConfig(e.DefaultConfig, ko, "models", pk, "products", uk, "default_config")
			if err != nil {
				return nil, &ConfigUnreadableError{Path: path, Err: err}
			}
			g.Units = append(g.Units, models.Unit{
				Key:           uk,
				Name:          nameOr(e.Name, uk),
				TokenField:    strings.TrimSpace(e.TokenField),
				DefaultConfig: defaults,
			})
		}

		for _, ak := range ko.children(mapKeys(p.Accounts), "models", pk, "accounts") {
			a := p.Accounts[ak]
			g.Accounts = append(g.Accounts, models.Account{Key: ak, Name: a.Name, Token: a.Token})
		}
		cat.Groups = append(cat.Groups, g)
	}
	return cat, nil
}

// loadProductCatalog reads the product-layout documents. A missing products
// file falls back to the bundled catalog; a missing tokens file means no
// accounts.
func loadProductCatalog(productsPath, tokensPath string) (*models.Catalog, error) {
	var doc models.ProductFile
	source := productsPath
	md, err := decodeFile(productsPath, &doc)
	if errors.Is(err, fs.ErrNotExist) {
		source = bundledProductsPath
		doc = models.ProductFile{}
		md, err = toml.Decode(defaultProducts, &doc)
		if err != nil {
			err = &ConfigUnreadableError{Path: source, Err: err}
		}
	}
	if err != nil {
		return nil, err
	}
	if err := checkVersion(source, doc.Version, models.LayoutProduct); err != nil {
		return nil, err
	}

	ko := newKeyOrder(md)
	cat := &models.Catalog{Layout: models.LayoutProduct, ModelAccounts: make(map[string][]models.Account)}
	for _, gk := range ko.children(mapKeys(doc.Products), "products") {
		p := doc.Products[gk]
		g := models.Group{Key: gk, Name: nameOr(p.Name, gk)}
		for _, mk := range ko.children(mapKeys(p.Models), "products", gk, "models") {
			m := p.Models[mk]
			defaults, err := defaultConfig(m.DefaultConfig, ko, "products", gk, "models", mk, "default_config")
			if err != nil {
				return nil, &ConfigUnreadableError{Path: source, Err: err}
			}
			g.Units = append(g.Units, models.Unit{
				Key:           mk,
				Name:          nameOr(m.Name, mk),
				TokenField:    strings.TrimSpace(m.TokenField),
				DefaultConfig: defaults,
			})
		}
		cat.Groups = append(cat.Groups, g)
	}

	var tokens models.TokenFile
	tmd, err := decodeFile(tokensPath, &tokens)
	if errors.Is(err, fs.ErrNotExist) {
		return cat, nil
	}
	if err != nil {
		return nil, err
	}
	tko := newKeyOrder(tmd)
	for _, mk := range tko.children(mapKeys(tokens)) {
		for _, ak := range tko.children(mapKeys(tokens[mk]), mk) {
			a := tokens[mk][ak]
			cat.ModelAccounts[mk] = append(cat.ModelAccounts[mk], models.Account{
				Key:   ak,
				Name:  nameOr(a.Name, ak),
				Token: a.Token,
			})
		}
	}
	return cat, nil
}

func nameOr(name, key string) string {
	if name == "" {
		return key
	}
	return name
}

// defaultConfig converts a decoded default_config table into an ordered
// EnvMap. Scalars are stringified; nested tables and arrays are rejected.
func defaultConfig(raw map[string]any, ko keyOrder, path ...string) (envmap.EnvMap, error) {
	var env envmap.EnvMap
	for _, k := range ko.children(mapKeys(raw), path...) {
		v, err := stringifyValue(raw[k])
		if err != nil {
			return envmap.EnvMap{}, fmt.Errorf("%s.%s: %w", strings.Join(path, "."), k, err)
		}
		env.Set(k, v)
	}
	return env, nil
}

func stringifyValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}
