package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/bakery-storefront/internal/bakery/domain"
)

// Source yields the catalog in effect. *Store implements it with hot reload.
type Source interface {
	Current() *Catalog
}

// Static wraps a fixed catalog as a Source.
type Static struct{ C *Catalog }

func (s Static) Current() *Catalog { return s.C }

type Breakdown struct {
	Layers      []domain.Layer  `json:"layers"`
	Shape       decimal.Decimal `json:"shape"`
	Flavors     decimal.Decimal `json:"flavors"`
	Colors      decimal.Decimal `json:"colors"`
	Fillings    decimal.Decimal `json:"fillings"`
	Decorations decimal.Decimal `json:"decorations"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

type Calculator struct {
	source Source
}

func NewCalculator(source Source) *Calculator {
	return &Calculator{source: source}
}

func (c *Calculator) Catalog() *Catalog { return c.source.Current() }

// NewSelection starts a customizer session with one default layer so the
// layer list is never empty.
func (c *Calculator) NewSelection() domain.CakeSelection {
	cat := c.source.Current()
	size := cat.DefaultLayerSize
	s, _ := cat.Size(size)
	return domain.CakeSelection{
		Shape:     cat.Shapes[0].ID,
		Layers:    []domain.Layer{{Size: size, Price: s.Price}},
		ColorMode: domain.ColorModeSolid,
	}
}

// SetLayerSize reassigns the size of layer i and re-prices that layer from
// the size table.
func (c *Calculator) SetLayerSize(sel *domain.CakeSelection, i, inches int) error {
	if i < 0 || i >= len(sel.Layers) {
		return domain.Invalid("layers", "layer %d does not exist", i+1)
	}
	s, ok := c.source.Current().Size(inches)
	if !ok {
		return domain.Invalid("layers", "unknown size %d\"", inches)
	}
	sel.Layers[i] = domain.Layer{Size: inches, Price: s.Price}
	return nil
}

// Price computes
//
//	(Σ layers + shape + Σ flavors + Σ colors + Σ fillings + Σ decorations) × quantity
//
// re-pricing every layer from the catalog. sel is left untouched; the
// re-priced layers are returned in the breakdown.
func (c *Calculator) Price(sel *domain.CakeSelection, quantity int) (Breakdown, error) {
	cat := c.source.Current()
	if err := sel.Validate(); err != nil {
		return Breakdown{}, err
	}
	if quantity < 1 || quantity > cat.MaxQuantity {
		return Breakdown{}, domain.Invalid("quantity", "quantity must be between 1 and %d", cat.MaxQuantity)
	}

	shape, ok := cat.Shape(sel.Shape)
	if !ok {
		return Breakdown{}, domain.Invalid("shape", "unknown shape %q", sel.Shape)
	}

	b := Breakdown{Shape: shape.Price, Quantity: quantity}
	unit := shape.Price
	b.Layers = make([]domain.Layer, len(sel.Layers))
	for i, l := range sel.Layers {
		s, ok := cat.Size(l.Size)
		if !ok {
			return Breakdown{}, domain.Invalid("layers", "unknown size %d\"", l.Size)
		}
		b.Layers[i] = domain.Layer{Size: l.Size, Price: s.Price}
		unit = unit.Add(s.Price)
	}

	var err error
	if b.Flavors, err = sum("flavors", cat.flavors, sel.Flavors); err != nil {
		return Breakdown{}, err
	}
	if b.Colors, err = sum("colors", cat.colors, sel.Colors); err != nil {
		return Breakdown{}, err
	}
	if b.Fillings, err = sum("fillings", cat.fillings, sel.Fillings); err != nil {
		return Breakdown{}, err
	}
	if b.Decorations, err = sum("decorations", cat.decorations, sel.Decorations); err != nil {
		return Breakdown{}, err
	}
	unit = unit.Add(b.Flavors).Add(b.Colors).Add(b.Fillings).Add(b.Decorations)

	b.UnitPrice = unit.Round(2)
	b.Total = unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	return b, nil
}

func sum(field string, table map[string]Option, ids []string) (decimal.Decimal, error) {
	total := decimal.Zero
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return decimal.Zero, domain.Invalid(field, "%q selected twice", id)
		}
		seen[id] = true
		o, ok := table[id]
		if !ok {
			return decimal.Zero, domain.Invalid(field, "unknown option %q", id)
		}
		total = total.Add(o.Price)
	}
	return total, nil
}

// Flatten renders a priced selection as an order line item.
func (c *Calculator) Flatten(sel domain.CakeSelection, b Breakdown, photoPath string) domain.LineItem {
	cat := c.source.Current()
	shape, _ := cat.Shape(sel.Shape)

	sizes := make([]string, len(sel.Layers))
	for i, l := range sel.Layers {
		sizes[i] = fmt.Sprintf("%d\"", l.Size)
	}

	var parts []string
	parts = append(parts, "Layers: "+strings.Join(sizes, " / "))
	add := func(label string, table map[string]Option, ids []string) {
		if len(ids) == 0 {
			return
		}
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = table[id].Name
		}
		parts = append(parts, label+": "+strings.Join(names, ", "))
	}
	add("Flavors", cat.flavors, sel.Flavors)
	if len(sel.Colors) > 0 {
		mode := sel.ColorMode
		if mode == "" {
			mode = domain.ColorModeSolid
		}
		add("Colors ("+mode+")", cat.colors, sel.Colors)
	}
	add("Fillings", cat.fillings, sel.Fillings)
	add("Decorations", cat.decorations, sel.Decorations)
	if sel.Inscription != "" {
		parts = append(parts, fmt.Sprintf("Inscription: %q", sel.Inscription))
	}

	unit := b.UnitPrice
	return domain.LineItem{
		Name:      fmt.Sprintf("Custom Cake (%s)", shape.Name),
		Quantity:  b.Quantity,
		Price:     &unit,
		Details:   strings.Join(parts, "; "),
		PhotoPath: photoPath,
	}
}
