// Package intake receives change notifications, resolves them to tracked
// products, drops duplicates and stale replays idempotently, and triggers
// scans for the rest.
package intake

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

// Resolver maps a page reference to the active product tracking it.
type Resolver interface {
	ResolveRef(pageRef string) (domain.Product, domain.Marketplace, bool)
}

// Scanner starts scans. Trigger returns false with a nil error when a scan is
// already in flight and the request was coalesced.
type Scanner interface {
	Trigger(productID, provenance string) (bool, error)
}

type pairKey struct {
	productID   string
	marketplace domain.Marketplace
}

// Intake deduplicates notifications per (product, marketplace): a
// notification is a duplicate or stale when its external timestamp is not
// newer than the newest accepted one for the pair. The newest-timestamp map
// is permanent (two words per tracked pair); the record ring keeps the last
// window entries for observability.
type Intake struct {
	resolver Resolver
	scanner  Scanner
	logger   *slog.Logger
	window   int

	mu      sync.Mutex
	newest  map[pairKey]time.Time
	records []domain.NotificationRecord
	counts  map[domain.NotificationOutcome]int
}

// New creates an Intake keeping the last window NotificationRecords.
func New(resolver Resolver, scanner Scanner, window int, logger *slog.Logger) *Intake {
	if window <= 0 {
		window = 1024
	}
	return &Intake{
		resolver: resolver,
		scanner:  scanner,
		logger:   logger.With(slog.String("component", "intake")),
		window:   window,
		newest:   make(map[pairKey]time.Time),
		counts:   make(map[domain.NotificationOutcome]int),
	}
}

// Handle processes one notification and returns what was done with it.
// Replayed and out-of-order notifications are discarded idempotently; an
// accepted notification triggers at most one scan for the product, coalescing
// with any scan already in flight.
func (i *Intake) Handle(n domain.Notification) domain.NotificationOutcome {
	if !n.ChangeDetected {
		i.record(domain.NotificationRecord{
			SourceID:   n.SourceID,
			Timestamp:  n.Timestamp,
			Outcome:    domain.OutcomeIgnored,
			ReceivedAt: time.Now().UTC(),
		})
		return domain.OutcomeIgnored
	}

	product, marketplace, ok := i.resolver.ResolveRef(n.PageRef)
	if !ok {
		i.logger.Warn("notification for untracked page",
			slog.String("source_id", n.SourceID),
			slog.String("page_ref", n.PageRef),
		)
		i.record(domain.NotificationRecord{
			SourceID:   n.SourceID,
			Timestamp:  n.Timestamp,
			Outcome:    domain.OutcomeUnresolved,
			ReceivedAt: time.Now().UTC(),
		})
		return domain.OutcomeUnresolved
	}

	key := pairKey{product.ID, marketplace}

	i.mu.Lock()
	latest, seen := i.newest[key]
	var outcome domain.NotificationOutcome
	switch {
	case seen && n.Timestamp.Equal(latest):
		outcome = domain.OutcomeDuplicate
	case seen && n.Timestamp.Before(latest):
		outcome = domain.OutcomeStale
	default:
		i.newest[key] = n.Timestamp
		outcome = domain.OutcomeAccepted
	}
	i.mu.Unlock()

	if outcome == domain.OutcomeAccepted {
		started, err := i.scanner.Trigger(product.ID, "notify:"+n.SourceID)
		if err != nil {
			// The product raced to inactive between resolution and
			// trigger; nothing to scan.
			i.logger.Warn("scan trigger failed",
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
		} else if !started {
			outcome = domain.OutcomeCoalesced
		}
	} else {
		i.logger.Debug("notification dropped",
			slog.String("source_id", n.SourceID),
			slog.String("product_id", product.ID),
			slog.String("marketplace", string(marketplace)),
			slog.String("outcome", string(outcome)),
		)
	}

	i.record(domain.NotificationRecord{
		SourceID:    n.SourceID,
		ProductID:   product.ID,
		Marketplace: marketplace,
		Timestamp:   n.Timestamp,
		Outcome:     outcome,
		ReceivedAt:  time.Now().UTC(),
	})
	return outcome
}

func (i *Intake) record(r domain.NotificationRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.counts[r.Outcome]++
	i.records = append(i.records, r)
	if len(i.records) > i.window {
		i.records = i.records[len(i.records)-i.window:]
	}
}

// Records returns up to limit recent records, newest first.
func (i *Intake) Records(limit int) []domain.NotificationRecord {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := len(i.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.NotificationRecord, limit)
	for j := 0; j < limit; j++ {
		out[j] = i.records[n-1-j]
	}
	return out
}

// Counts returns per-outcome totals since startup.
func (i *Intake) Counts() map[domain.NotificationOutcome]int {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(map[domain.NotificationOutcome]int, len(i.counts))
	for k, v := range i.counts {
		out[k] = v
	}
	return out
}
