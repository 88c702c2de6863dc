package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

// NotificationIntake is the intake boundary the webhook handler requires.
type NotificationIntake interface {
	Handle(n domain.Notification) domain.NotificationOutcome
	Counts() map[domain.NotificationOutcome]int
	Records(limit int) []domain.NotificationRecord
}

// WebhookHandler receives change notifications from the external
// change-detection service.
type WebhookHandler struct {
	intake NotificationIntake
	logger *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(intake NotificationIntake, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{intake: intake, logger: logger}
}

type webhookRequest struct {
	SourceID       string     `json:"source_id"`
	PageReference  string     `json:"page_reference"`
	ChangeDetected bool       `json:"change_detected"`
	Timestamp      *time.Time `json:"timestamp"`
}

// HandleChange processes one notification. Accepted and coalesced
// notifications answer 202; everything dropped answers 200 with the outcome
// so replaying webhooks stays idempotent from the sender's point of view.
// POST /api/webhooks/change
func (h *WebhookHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.SourceID == "" || req.PageReference == "" {
		writeError(w, http.StatusBadRequest, "source_id and page_reference are required")
		return
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	outcome := h.intake.Handle(domain.Notification{
		SourceID:       req.SourceID,
		PageRef:        req.PageReference,
		ChangeDetected: req.ChangeDetected,
		Timestamp:      ts,
	})

	status := http.StatusOK
	if outcome == domain.OutcomeAccepted || outcome == domain.OutcomeCoalesced {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]string{"status": string(outcome)})
}

// ListRecords returns recent notification records for debugging dedup.
// GET /api/webhooks/records?limit=50
func (h *WebhookHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	records := h.intake.Records(limit)
	if records == nil {
		records = []domain.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}
