package intake

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

type fakeResolver struct {
	refs map[string]struct {
		product     domain.Product
		marketplace domain.Marketplace
	}
}

func (f *fakeResolver) ResolveRef(pageRef string) (domain.Product, domain.Marketplace, bool) {
	entry, ok := f.refs[pageRef]
	return entry.product, entry.marketplace, ok
}

type fakeScanner struct {
	mu       sync.Mutex
	inFlight bool
	triggers []string // provenance of each started scan
}

func (f *fakeScanner) Trigger(productID, provenance string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return false, nil
	}
	f.triggers = append(f.triggers, provenance)
	return true, nil
}

func (f *fakeScanner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.triggers)
}

func notif(source, ref string, ts time.Time) domain.Notification {
	return domain.Notification{
		SourceID:       source,
		PageRef:        ref,
		ChangeDetected: true,
		Timestamp:      ts,
	}
}

func newFixture() (*Intake, *fakeScanner) {
	product := domain.Product{ID: "p1", Name: "widget", Active: true}
	resolver := &fakeResolver{refs: map[string]struct {
		product     domain.Product
		marketplace domain.Marketplace
	}{
		"ref-a": {product, "amazon"},
		"ref-b": {product, "bestbuy"},
	}}
	scanner := &fakeScanner{}
	return New(resolver, scanner, 1024, slog.Default()), scanner
}

func TestHandleIgnoresNoChange(t *testing.T) {
	in, scanner := newFixture()
	n := notif("s1", "ref-a", time.Now())
	n.ChangeDetected = false
	if got := in.Handle(n); got != domain.OutcomeIgnored {
		t.Errorf("outcome = %s, want ignored", got)
	}
	if scanner.count() != 0 {
		t.Error("ignored notification must not trigger a scan")
	}
}

func TestHandleUnresolved(t *testing.T) {
	in, scanner := newFixture()
	if got := in.Handle(notif("s1", "ref-unknown", time.Now())); got != domain.OutcomeUnresolved {
		t.Errorf("outcome = %s, want unresolved", got)
	}
	if scanner.count() != 0 {
		t.Error("unresolved notification must not trigger a scan")
	}
}

func TestHandleAcceptTriggersScan(t *testing.T) {
	in, scanner := newFixture()
	if got := in.Handle(notif("s1", "ref-a", time.Now())); got != domain.OutcomeAccepted {
		t.Errorf("outcome = %s, want accepted", got)
	}
	if scanner.count() != 1 {
		t.Fatalf("trigger count = %d, want 1", scanner.count())
	}
	if scanner.triggers[0] != "notify:s1" {
		t.Errorf("provenance = %q", scanner.triggers[0])
	}
}

func TestHandleDuplicateAndStale(t *testing.T) {
	in, scanner := newFixture()
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	if got := in.Handle(notif("s1", "ref-a", base)); got != domain.OutcomeAccepted {
		t.Fatalf("first = %s", got)
	}
	// Replayed webhook: same external timestamp.
	if got := in.Handle(notif("s1", "ref-a", base)); got != domain.OutcomeDuplicate {
		t.Errorf("replay = %s, want duplicate", got)
	}
	// Out-of-order webhook: older external timestamp.
	if got := in.Handle(notif("s2", "ref-a", base.Add(-time.Minute))); got != domain.OutcomeStale {
		t.Errorf("out-of-order = %s, want stale", got)
	}
	// Genuinely newer change.
	if got := in.Handle(notif("s3", "ref-a", base.Add(time.Minute))); got != domain.OutcomeAccepted {
		t.Errorf("newer = %s, want accepted", got)
	}

	if scanner.count() != 2 {
		t.Errorf("trigger count = %d, want 2 (one per distinct accepted change)", scanner.count())
	}
}

func TestHandleDedupIsPerMarketplace(t *testing.T) {
	in, scanner := newFixture()
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	in.Handle(notif("s1", "ref-a", ts))
	// Same product, different marketplace, same timestamp: not a duplicate.
	if got := in.Handle(notif("s2", "ref-b", ts)); got == domain.OutcomeDuplicate || got == domain.OutcomeStale {
		t.Errorf("outcome = %s, dedup must be per (product, marketplace)", got)
	}
	// Both accepted, but the second may have coalesced with the first
	// scan depending on scanner state; with the fake it starts fresh.
	if scanner.count() != 2 {
		t.Errorf("trigger count = %d, want 2", scanner.count())
	}
}

func TestHandleCoalesced(t *testing.T) {
	in, scanner := newFixture()
	scanner.inFlight = true

	got := in.Handle(notif("s1", "ref-a", time.Now()))
	if got != domain.OutcomeCoalesced {
		t.Fatalf("outcome = %s, want coalesced", got)
	}
	// The coalesced notification still advances the dedup watermark: a
	// replay of it is a duplicate, not a second accept.
	scanner.inFlight = false
	if got := in.Handle(notif("s1", "ref-a", time.Now().Add(-time.Hour))); got != domain.OutcomeStale {
		t.Errorf("outcome = %s, want stale", got)
	}
}

func TestRecordWindowBound(t *testing.T) {
	product := domain.Product{ID: "p1", Active: true}
	resolver := &fakeResolver{refs: map[string]struct {
		product     domain.Product
		marketplace domain.Marketplace
	}{"ref-a": {product, "amazon"}}}
	in := New(resolver, &fakeScanner{}, 10, slog.Default())

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		in.Handle(notif(fmt.Sprintf("s%d", i), "ref-a", base.Add(time.Duration(i)*time.Second)))
	}

	records := in.Records(0)
	if len(records) != 10 {
		t.Fatalf("record count = %d, want window of 10", len(records))
	}
	if records[0].SourceID != "s49" {
		t.Errorf("newest record = %s, want s49", records[0].SourceID)
	}

	counts := in.Counts()
	if counts[domain.OutcomeAccepted] != 50 {
		t.Errorf("accepted count = %d, want 50", counts[domain.OutcomeAccepted])
	}
}

func TestHandleConcurrentBurst(t *testing.T) {
	in, scanner := newFixture()
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in.Handle(notif("s1", "ref-a", ts))
		}()
	}
	wg.Wait()

	// Exactly one of the identical notifications is accepted; the rest are
	// duplicates.
	if scanner.count() != 1 {
		t.Errorf("trigger count = %d, want 1", scanner.count())
	}
	if got := in.Counts()[domain.OutcomeDuplicate]; got != 19 {
		t.Errorf("duplicate count = %d, want 19", got)
	}
}
