package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SellMode says how a product may be sold.
type SellMode string

const (
	// SellSealed products are sold whole, one unit at a time.
	SellSealed SellMode = "sealed"
	// SellPrepared products are sold as portions with a per-portion price.
	SellPrepared SellMode = "prepared"
	// SellBoth products support either mode; the cashier chooses at sale time.
	SellBoth SellMode = "both"
)

// Product is a catalog record. Read-only within the sale workflow; sourced
// from the products service.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Mode         SellMode        `json:"sell_mode"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	PortionPrice decimal.Decimal `json:"portion_price"`
	Stock        int             `json:"stock"`
	Portions     int             `json:"portions_available"`
}

// productRecord is the upstream wire shape. It is validated into a Product
// instead of being trusted as-is: a record whose declared sell type implies
// portion data must actually carry it.
type productRecord struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	SellType     string          `json:"sellType"`
	Price        decimal.Decimal `json:"price"`
	PortionPrice decimal.Decimal `json:"portionPrice"`
	Stock        int             `json:"stock"`
	Portions     int             `json:"availablePortions"`
}

func (r productRecord) toProduct() (Product, error) {
	if r.ID == "" {
		return Product{}, fmt.Errorf("missing product id")
	}
	if strings.TrimSpace(r.Name) == "" {
		return Product{}, fmt.Errorf("missing product name")
	}

	mode := SellMode(r.SellType)
	switch mode {
	case SellSealed, SellPrepared, SellBoth:
	default:
		return Product{}, fmt.Errorf("unknown sell type %q", r.SellType)
	}

	// Los precios se validan según el modo de venta declarado.
	if mode == SellSealed || mode == SellBoth {
		if !r.Price.IsPositive() {
			return Product{}, fmt.Errorf("sell type %q requires a positive unit price", r.SellType)
		}
	}
	if mode == SellPrepared || mode == SellBoth {
		if !r.PortionPrice.IsPositive() {
			return Product{}, fmt.Errorf("sell type %q requires a positive portion price", r.SellType)
		}
	}

	return Product{
		ID:           r.ID,
		Name:         r.Name,
		Mode:         mode,
		UnitPrice:    r.Price,
		PortionPrice: r.PortionPrice,
		Stock:        r.Stock,
		Portions:     r.Portions,
	}, nil
}

// Filter applies the case-insensitive substring match over an already fetched
// catalog. Empty or whitespace-only queries yield an empty result without any
// further work.
func Filter(products []Product, query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Product{}
	}

	matched := make([]Product, 0)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			matched = append(matched, p)
		}
	}
	return matched
}
