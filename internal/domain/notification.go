package domain

import "time"

// Notification is the inbound signal from the change-detection service that a
// monitored page may have changed.
type Notification struct {
	SourceID       string    `json:"source_id"`
	PageRef        string    `json:"page_reference"`
	ChangeDetected bool      `json:"change_detected"`
	Timestamp      time.Time `json:"timestamp"`
}

// NotificationOutcome classifies what intake did with a notification.
type NotificationOutcome string

const (
	// OutcomeAccepted means the notification triggered a new scan.
	OutcomeAccepted NotificationOutcome = "accepted"
	// OutcomeCoalesced means a scan was already in flight for the product;
	// its result satisfies this notification.
	OutcomeCoalesced NotificationOutcome = "coalesced"
	// OutcomeDuplicate means a replayed notification (same external
	// timestamp as the newest accepted one for the pair).
	OutcomeDuplicate NotificationOutcome = "duplicate"
	// OutcomeStale means the external timestamp is older than one already
	// accepted for the pair.
	OutcomeStale NotificationOutcome = "stale"
	// OutcomeUnresolved means no active product matches the page reference.
	OutcomeUnresolved NotificationOutcome = "unresolved"
	// OutcomeIgnored means change_detected was false.
	OutcomeIgnored NotificationOutcome = "ignored"
)

// NotificationRecord is dedup bookkeeping kept for a bounded recent window.
type NotificationRecord struct {
	SourceID    string              `json:"source_id"`
	ProductID   string              `json:"product_id,omitempty"`
	Marketplace Marketplace         `json:"marketplace,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	Outcome     NotificationOutcome `json:"outcome"`
	ReceivedAt  time.Time           `json:"received_at"`
}
