package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is the availability reported by an extraction.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockUnknown    StockStatus = "unknown"
)

// ParseStockStatus normalizes free-form stock text from the extraction
// service into the enum. Anything unrecognized maps to StockUnknown.
func ParseStockStatus(s string) StockStatus {
	switch s {
	case "in_stock", "in stock", "instock", "available":
		return StockInStock
	case "out_of_stock", "out of stock", "outofstock", "unavailable", "sold out":
		return StockOutOfStock
	default:
		return StockUnknown
	}
}

// PricePoint is one observation of a product's price on one marketplace.
// Points are immutable once appended; ObservedAt is assigned by the history
// store at ingestion, never trusted from the external source.
type PricePoint struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	Marketplace Marketplace     `json:"marketplace"`
	Price       decimal.Decimal `json:"price"`
	Shipping    decimal.Decimal `json:"shipping"`
	Stock       StockStatus     `json:"stock"`
	Seller      string          `json:"seller,omitempty"`
	PageRef     string          `json:"page_ref"`
	ObservedAt  time.Time       `json:"observed_at"`
	Provenance  string          `json:"provenance"` // scan id, or "manual"
}

// TotalCost is price plus shipping, the landed cost of buying at this point.
func (p PricePoint) TotalCost() decimal.Decimal {
	return p.Price.Add(p.Shipping)
}

// PriceDraft is an extraction result before the history store stamps identity
// and observation time onto it.
type PriceDraft struct {
	Price      decimal.Decimal
	Shipping   decimal.Decimal
	Stock      StockStatus
	Seller     string
	PageRef    string
	Provenance string
}
