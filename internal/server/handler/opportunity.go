package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

// OpportunitySource is the cache boundary the opportunity handler requires.
type OpportunitySource interface {
	List() []domain.Opportunity
	Get(productID string) (domain.Opportunity, bool)
	Stats() domain.Stats
}

// OpportunityHandler serves the ranked opportunity view and aggregate stats.
type OpportunityHandler struct {
	cache  OpportunitySource
	intake NotificationIntake
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(cache OpportunitySource, intake NotificationIntake, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{cache: cache, intake: intake, logger: logger}
}

// List returns current opportunities ranked by net margin, optionally
// filtered by minimum net margin and maximum risk score.
// GET /api/opportunities?min_margin=5&max_risk=7
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	opps := h.cache.List()

	if minMargin, ok := queryFloat(r, "min_margin"); ok {
		threshold := decimal.NewFromFloat(minMargin)
		filtered := opps[:0]
		for _, o := range opps {
			if o.NetMargin.Cmp(threshold) >= 0 {
				filtered = append(filtered, o)
			}
		}
		opps = filtered
	}
	if maxRisk, ok := queryFloat(r, "max_risk"); ok {
		filtered := opps[:0]
		for _, o := range opps {
			if o.RiskScore <= maxRisk {
				filtered = append(filtered, o)
			}
		}
		opps = filtered
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": opps})
}

// Get returns one product's current opportunity, if any.
// GET /api/products/{id}/opportunity
func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	opp, ok := h.cache.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "no current opportunity for product")
		return
	}
	writeJSON(w, http.StatusOK, opp)
}

// Stats returns dashboard aggregates plus notification intake counters.
// GET /api/stats
func (h *OpportunityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"tracked_product_count": stats.TrackedProducts,
		"opportunity_count":     stats.Opportunities,
		"average_net_margin":    stats.AverageNetMargin,
		"best_net_margin":       stats.BestNetMargin,
		"notifications":         h.intake.Counts(),
		"last_updated":          time.Now().UTC().Format(time.RFC3339),
	})
}
