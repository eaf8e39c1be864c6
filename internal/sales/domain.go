package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the composed payload posted to the sales service. The total is
// always derived by the caller from the item groups, never entered directly.
type Sale struct {
	ItemGroups []ItemGroup     `json:"itemGroups"`
	Total      decimal.Decimal `json:"total"`
	ClientID   *string         `json:"client_id"`
	ClubID     string          `json:"clubId"`
}

// ItemGroup is one named cart of the sale.
type ItemGroup struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Item is a single sale line. Portions is present only for prepared items.
type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SellType    string          `json:"type"`
	Portions    *Portions       `json:"portions,omitempty"`
	CustomPrice bool            `json:"custom_price"`
}

// Portions holds the prepared-variant data of an item.
type Portions struct {
	Count int             `json:"count"`
	Price decimal.Decimal `json:"price"`
}

// CreatedSale is the sales service's acknowledgement of a submitted sale.
type CreatedSale struct {
	ID        string          `json:"id"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}
