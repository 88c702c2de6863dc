package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

// ProductRegistry is the registry boundary the product handler requires.
type ProductRegistry interface {
	Register(name string, refs map[domain.Marketplace]string) (domain.Product, bool, error)
	Deactivate(id string) error
	Get(id string) (domain.Product, error)
	List(activeOnly bool) []domain.Product
}

// ScanTrigger starts scans and reports on them.
type ScanTrigger interface {
	Trigger(productID, provenance string) (bool, error)
	LastReport(productID string) (domain.ScanReport, bool)
}

// HistorySource reads price series.
type HistorySource interface {
	Series(productID string, marketplace domain.Marketplace, since time.Time) []domain.PricePoint
}

// OpportunityEvictor drops a product's cached opportunity on deactivation.
type OpportunityEvictor interface {
	Evict(productID string)
}

// ProductHandler serves product registration, history, and scan endpoints.
type ProductHandler struct {
	registry ProductRegistry
	scans    ScanTrigger
	history  HistorySource
	evictor  OpportunityEvictor
	logger   *slog.Logger
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(registry ProductRegistry, scans ScanTrigger, history HistorySource, evictor OpportunityEvictor, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		registry: registry,
		scans:    scans,
		history:  history,
		evictor:  evictor,
		logger:   logger,
	}
}

type registerRequest struct {
	Name string                        `json:"name"`
	Refs map[domain.Marketplace]string `json:"refs"`
}

// Register starts tracking a product and triggers its initial scan.
// Re-registering an active product with identical references is a no-op
// answering 200 instead of 201.
// POST /api/products
func (h *ProductHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	product, created, err := h.registry.Register(req.Name, req.Refs)
	switch {
	case errors.Is(err, domain.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, "at least two marketplace references are required")
		return
	case errors.Is(err, domain.ErrDuplicateSource):
		writeError(w, http.StatusConflict, "a reference is already tracked by another product")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "handler: register product failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to register product")
		return
	}

	status := http.StatusOK // idempotent re-register
	if created {
		status = http.StatusCreated
		if _, err := h.scans.Trigger(product.ID, "register"); err != nil {
			h.logger.WarnContext(r.Context(), "initial scan trigger failed",
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	writeJSON(w, status, product)
}

// Deactivate soft-deletes a product and drops its cached opportunity.
// DELETE /api/products/{id}
func (h *ProductHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.registry.Deactivate(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to deactivate product")
		return
	}
	h.evictor.Evict(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated", "product_id": id})
}

// List returns tracked products. ?active=true filters to active ones.
// GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	writeJSON(w, http.StatusOK, map[string]any{"products": h.registry.List(activeOnly)})
}

// Get returns one product.
// GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// History returns the price series for one product and marketplace.
// GET /api/products/{id}/history?marketplace=amazon&since=2026-08-01T00:00:00Z&limit=50
func (h *ProductHandler) History(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.registry.Get(id); err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	marketplace := domain.Marketplace(r.URL.Query().Get("marketplace"))
	if marketplace == "" {
		writeError(w, http.StatusBadRequest, "marketplace query parameter is required")
		return
	}

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = t
	}

	points := h.history.Series(id, marketplace, since)
	limit := queryInt(r, "limit", 50)
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}
	if points == nil {
		points = []domain.PricePoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

// TriggerScan requests an immediate scan, equivalent to a synthetic
// notification. A scan already in flight satisfies the request.
// POST /api/products/{id}/scan
func (h *ProductHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	started, err := h.scans.Trigger(id, "manual")
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
		return
	case errors.Is(err, domain.ErrInactive):
		writeError(w, http.StatusConflict, "product is inactive")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to trigger scan")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "scanning",
		"started": started, // false: coalesced with an in-flight scan
	})
}

// LastScan returns the most recent scan report for the product.
// GET /api/products/{id}/scan
func (h *ProductHandler) LastScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.registry.Get(id); err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	report, ok := h.scans.LastReport(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no scan recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ScanAll triggers a scan for every active product.
// POST /api/scan
func (h *ProductHandler) ScanAll(w http.ResponseWriter, r *http.Request) {
	products := h.registry.List(true)
	for _, p := range products {
		if _, err := h.scans.Trigger(p.ID, "manual"); err != nil {
			h.logger.WarnContext(r.Context(), "scan-all trigger failed",
				slog.String("product_id", p.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":         "scanning",
		"products_count": len(products),
	})
}
