// Package pricing holds the storefront price tables and the cake customizer
// price calculator.
package pricing

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Option struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type SizeOption struct {
	Inches   int             `json:"inches"`
	Servings int             `json:"servings"`
	Price    decimal.Decimal `json:"price"`
}

// MenuItem is a fixed storefront product. A nil Price means the bakery prices
// it after review, which puts the order line in the pending state.
type MenuItem struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Description string           `json:"description,omitempty"`
	Image       string           `json:"image,omitempty"`
}

type Catalog struct {
	Menu             []MenuItem   `json:"menu"`
	Shapes           []Option     `json:"shapes"`
	Sizes            []SizeOption `json:"sizes"`
	Flavors          []Option     `json:"flavors"`
	Colors           []Option     `json:"colors"`
	Fillings         []Option     `json:"fillings"`
	Decorations      []Option     `json:"decorations"`
	DefaultLayerSize int          `json:"default_layer"`
	MaxQuantity      int          `json:"max_quantity"`

	menu        map[string]MenuItem
	shapes      map[string]Option
	sizes       map[int]SizeOption
	flavors     map[string]Option
	colors      map[string]Option
	fillings    map[string]Option
	decorations map[string]Option
}

type rawOption struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

type rawCatalog struct {
	Menu []struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Category    string `yaml:"category"`
		Price       string `yaml:"price"`
		Description string `yaml:"description"`
		Image       string `yaml:"image"`
	} `yaml:"menu"`
	Cake struct {
		DefaultLayer int         `yaml:"default_layer"`
		MaxQuantity  int         `yaml:"max_quantity"`
		Shapes       []rawOption `yaml:"shapes"`
		Sizes        []struct {
			Inches   int    `yaml:"inches"`
			Servings int    `yaml:"servings"`
			Price    string `yaml:"price"`
		} `yaml:"sizes"`
		Flavors     []rawOption `yaml:"flavors"`
		Colors      []rawOption `yaml:"colors"`
		Fillings    []rawOption `yaml:"fillings"`
		Decorations []rawOption `yaml:"decorations"`
	} `yaml:"cake"`
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("pricing: embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pricing: read catalog %q: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("pricing: parse catalog: %w", err)
	}

	c := &Catalog{
		DefaultLayerSize: raw.Cake.DefaultLayer,
		MaxQuantity:      raw.Cake.MaxQuantity,
		menu:             map[string]MenuItem{},
		sizes:            map[int]SizeOption{},
	}
	if c.MaxQuantity <= 0 {
		c.MaxQuantity = 50
	}

	for _, m := range raw.Menu {
		item := MenuItem{ID: m.ID, Name: m.Name, Category: m.Category, Description: m.Description, Image: m.Image}
		if m.Price != "" {
			p, err := decimal.NewFromString(m.Price)
			if err != nil {
				return nil, fmt.Errorf("pricing: menu item %q: bad price %q: %w", m.ID, m.Price, err)
			}
			item.Price = &p
		}
		if _, dup := c.menu[item.ID]; dup {
			return nil, fmt.Errorf("pricing: duplicate menu item %q", item.ID)
		}
		c.menu[item.ID] = item
		c.Menu = append(c.Menu, item)
	}

	for _, s := range raw.Cake.Sizes {
		p, err := decimal.NewFromString(s.Price)
		if err != nil {
			return nil, fmt.Errorf("pricing: size %d: bad price %q: %w", s.Inches, s.Price, err)
		}
		opt := SizeOption{Inches: s.Inches, Servings: s.Servings, Price: p}
		c.sizes[opt.Inches] = opt
		c.Sizes = append(c.Sizes, opt)
	}
	sort.Slice(c.Sizes, func(i, j int) bool { return c.Sizes[i].Inches < c.Sizes[j].Inches })

	var err error
	if c.Shapes, c.shapes, err = options("shape", raw.Cake.Shapes); err != nil {
		return nil, err
	}
	if c.Flavors, c.flavors, err = options("flavor", raw.Cake.Flavors); err != nil {
		return nil, err
	}
	if c.Colors, c.colors, err = options("color", raw.Cake.Colors); err != nil {
		return nil, err
	}
	if c.Fillings, c.fillings, err = options("filling", raw.Cake.Fillings); err != nil {
		return nil, err
	}
	if c.Decorations, c.decorations, err = options("decoration", raw.Cake.Decorations); err != nil {
		return nil, err
	}

	if len(c.Shapes) == 0 || len(c.Sizes) == 0 {
		return nil, fmt.Errorf("pricing: catalog needs at least one shape and one size")
	}
	if _, ok := c.sizes[c.DefaultLayerSize]; !ok {
		c.DefaultLayerSize = c.Sizes[0].Inches
	}
	return c, nil
}

func options(kind string, raw []rawOption) ([]Option, map[string]Option, error) {
	list := make([]Option, 0, len(raw))
	index := make(map[string]Option, len(raw))
	for _, r := range raw {
		p, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, nil, fmt.Errorf("pricing: %s %q: bad price %q: %w", kind, r.ID, r.Price, err)
		}
		if _, dup := index[r.ID]; dup {
			return nil, nil, fmt.Errorf("pricing: duplicate %s %q", kind, r.ID)
		}
		o := Option{ID: r.ID, Name: r.Name, Price: p}
		index[r.ID] = o
		list = append(list, o)
	}
	return list, index, nil
}

func (c *Catalog) MenuItem(id string) (MenuItem, bool) {
	m, ok := c.menu[id]
	return m, ok
}

func (c *Catalog) Shape(id string) (Option, bool) {
	o, ok := c.shapes[id]
	return o, ok
}

func (c *Catalog) Size(inches int) (SizeOption, bool) {
	s, ok := c.sizes[inches]
	return s, ok
}
