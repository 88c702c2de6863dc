// Package notify pushes arbitrage alerts to operator channels (Discord,
// Telegram). Alerts fan out to every registered sender; one channel failing
// never blocks the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

// Sender is one delivery channel for alerts.
type Sender interface {
	// Send delivers an alert with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel ("discord", "telegram").
	Name() string
}

const sendTimeout = 15 * time.Second

// Alerter turns opportunity cache updates into operator alerts. It alerts
// when an opportunity first surfaces for a product and when an existing one
// improves; clears are logged but not alerted.
type Alerter struct {
	senders []Sender
	logger  *slog.Logger
}

// NewAlerter creates an Alerter delivering to the given senders. With no
// senders it is inert.
func NewAlerter(senders []Sender, logger *slog.Logger) *Alerter {
	return &Alerter{
		senders: senders,
		logger:  logger.With(slog.String("component", "alerter")),
	}
}

// OpportunityUpdate is the cache observer hook. prev is the previously cached
// opportunity for the product, opp the new one; either may be nil.
func (a *Alerter) OpportunityUpdate(productID string, prev, opp *domain.Opportunity) {
	if len(a.senders) == 0 {
		return
	}

	var title string
	switch {
	case opp == nil:
		a.logger.Debug("opportunity cleared, no alert",
			slog.String("product_id", productID),
		)
		return
	case prev == nil:
		title = "New arbitrage opportunity"
	case opp.NetMargin.GreaterThan(prev.NetMargin):
		title = "Arbitrage opportunity improved"
	default:
		return
	}

	// Deliver off the recompute path so slow webhooks cannot stall scans.
	go a.send(title, formatOpportunity(opp))
}

func (a *Alerter) send(title, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	for _, s := range a.senders {
		if err := s.Send(ctx, title, message); err != nil {
			a.logger.Error("alert delivery failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.logger.Debug("alert delivered",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}

// formatOpportunity renders an opportunity as a short plain-text summary.
func formatOpportunity(o *domain.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", o.ProductName)
	fmt.Fprintf(&b, "Buy on %s at %s (landed %s)\n",
		o.BuyMarketplace, o.Buy.Price.StringFixed(2), o.LandedBuyCost.StringFixed(2))
	fmt.Fprintf(&b, "Sell on %s at %s\n", o.SellMarketplace, o.Sell.Price.StringFixed(2))
	fmt.Fprintf(&b, "Net margin %s (ROI %s%%), risk %.1f/10",
		o.NetMargin.StringFixed(2),
		o.ROI.Mul(decimal.NewFromInt(100)).StringFixed(1),
		o.RiskScore)
	if len(o.RiskFactors) > 0 {
		fmt.Fprintf(&b, "\nRisk factors: %s", strings.Join(o.RiskFactors, ", "))
	}
	return b.String()
}
