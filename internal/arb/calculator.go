// Package arb computes fee-adjusted arbitrage opportunities and maintains the
// materialized ranked view the dashboard reads.
package arb

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

// Config holds the calculator thresholds and per-marketplace seller fee
// rates. Fee rates are fractions of sale price (0.15 == 15%).
type Config struct {
	MinNetMargin decimal.Decimal
	MinROI       decimal.Decimal
	FeeRates     map[domain.Marketplace]decimal.Decimal
}

// NewConfig builds a Config from plain float thresholds as they appear in the
// TOML configuration.
func NewConfig(minNetMargin, minROI float64, feeRates map[string]float64) Config {
	rates := make(map[domain.Marketplace]decimal.Decimal, len(feeRates))
	for tag, rate := range feeRates {
		rates[domain.Marketplace(tag)] = decimal.NewFromFloat(rate)
	}
	return Config{
		MinNetMargin: decimal.NewFromFloat(minNetMargin),
		MinROI:       decimal.NewFromFloat(minROI),
		FeeRates:     rates,
	}
}

func (c Config) feeRate(mkt domain.Marketplace) decimal.Decimal {
	if rate, ok := c.FeeRates[mkt]; ok {
		return rate
	}
	return decimal.Zero
}

// Calculate is a pure function over the current price point per marketplace.
// It evaluates every ordered (buy, sell) pair, keeps pairs where both sides
// are not out of stock, the fee-adjusted net margin clears MinNetMargin, and
// net_margin / landed_buy_cost clears MinROI, and returns the pair with the
// highest net margin. One opportunity per product at a time: the many-
// marketplace case collapses into the single best recommendation.
func Calculate(product domain.Product, currents map[domain.Marketplace]domain.PricePoint, cfg Config, now time.Time) (domain.Opportunity, bool) {
	marketplaces := make([]domain.Marketplace, 0, len(currents))
	for mkt := range currents {
		marketplaces = append(marketplaces, mkt)
	}
	sort.Slice(marketplaces, func(i, j int) bool { return marketplaces[i] < marketplaces[j] })

	var best domain.Opportunity
	found := false

	for _, buyMkt := range marketplaces {
		for _, sellMkt := range marketplaces {
			if buyMkt == sellMkt {
				continue
			}
			buy, sell := currents[buyMkt], currents[sellMkt]
			if buy.Stock == domain.StockOutOfStock || sell.Stock == domain.StockOutOfStock {
				continue
			}

			landed := buy.TotalCost()
			if landed.Sign() <= 0 {
				// ROI is undefined with a free buy side; treat as noise.
				continue
			}

			gross := sell.Price.Sub(landed)
			fee := sell.Price.Mul(cfg.feeRate(sellMkt))
			net := gross.Sub(fee)
			roi := net.Div(landed)

			if net.Cmp(cfg.MinNetMargin) <= 0 || roi.Cmp(cfg.MinROI) <= 0 {
				continue
			}
			if found && net.Cmp(best.NetMargin) <= 0 {
				continue
			}

			riskScore, riskFactors := assessRisk(buy, sell, roi)
			best = domain.Opportunity{
				ProductID:       product.ID,
				ProductName:     product.Name,
				BuyMarketplace:  buyMkt,
				SellMarketplace: sellMkt,
				Buy:             buy,
				Sell:            sell,
				LandedBuyCost:   landed,
				GrossMargin:     gross,
				FeeAmount:       fee,
				NetMargin:       net,
				ROI:             roi,
				RiskScore:       riskScore,
				RiskFactors:     riskFactors,
				ComputedAt:      now,
			}
			found = true
		}
	}

	return best, found
}

// assessRisk scores an opportunity 0-10 (lower is safer) from additive
// heuristics on the buy and sell points.
func assessRisk(buy, sell domain.PricePoint, roi decimal.Decimal) (float64, []string) {
	score := 5.0
	var factors []string

	marginPct, _ := roi.Mul(decimal.NewFromInt(100)).Float64()

	if buy.Stock == domain.StockUnknown {
		score += 1.5
		factors = append(factors, "stock status unverified at buy source")
	}
	if buy.Seller != "" && !firstPartySeller(buy.Seller, buy.Marketplace) {
		score += 1.0
		factors = append(factors, "third-party seller")
	}
	if marginPct > 50 {
		score += 2.0
		factors = append(factors, "unusually high margin - verify prices")
	}
	if marginPct < 10 {
		score += 1.0
		factors = append(factors, "thin margin - price sensitive")
	}
	if buy.Shipping.Sign() > 0 {
		score += 0.5
		factors = append(factors, "shipping costs reduce margin")
	}

	score = math.Min(10, math.Max(0, score))
	return math.Round(score*10) / 10, factors
}

// firstPartySeller reports whether the seller name is the marketplace itself
// ("Amazon.com" on amazon) rather than a third party.
func firstPartySeller(seller string, mkt domain.Marketplace) bool {
	s := strings.ToLower(strings.TrimSpace(seller))
	tag := strings.ToLower(string(mkt))
	return s == tag || s == tag+".com"
}
