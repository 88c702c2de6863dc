package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity is the single best buy/sell marketplace pairing for a product
// that clears the configured profit thresholds. It is derived entirely from
// the two price points it references and is recomputed, not patched, whenever
// either side's current price changes.
type Opportunity struct {
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	BuyMarketplace  Marketplace     `json:"buy_marketplace"`
	SellMarketplace Marketplace     `json:"sell_marketplace"`
	Buy             PricePoint      `json:"buy"`
	Sell            PricePoint      `json:"sell"`
	LandedBuyCost   decimal.Decimal `json:"landed_buy_cost"`
	GrossMargin     decimal.Decimal `json:"gross_margin"`
	FeeAmount       decimal.Decimal `json:"fee_amount"`
	NetMargin       decimal.Decimal `json:"net_margin"`
	ROI             decimal.Decimal `json:"roi"`
	RiskScore       float64         `json:"risk_score"`
	RiskFactors     []string        `json:"risk_factors,omitempty"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// Stats summarizes the opportunity cache for the dashboard.
type Stats struct {
	TrackedProducts  int             `json:"tracked_product_count"`
	Opportunities    int             `json:"opportunity_count"`
	AverageNetMargin decimal.Decimal `json:"average_net_margin"`
	BestNetMargin    decimal.Decimal `json:"best_net_margin"`
}
