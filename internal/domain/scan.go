package domain

import "time"

// MarketplaceOutcome is the per-marketplace result of one scan.
type MarketplaceOutcome string

const (
	MarketplaceOK     MarketplaceOutcome = "ok"
	MarketplaceFailed MarketplaceOutcome = "failed"
)

// MarketplaceResult records how one marketplace's extraction went within a
// scan, including how many attempts the retry policy spent on it.
type MarketplaceResult struct {
	Outcome  MarketplaceOutcome `json:"outcome"`
	Attempts int                `json:"attempts"`
	Error    string             `json:"error,omitempty"`
}

// ScanReport summarizes one orchestrated refresh of a product's marketplaces.
// A scan succeeds overall if at least one marketplace extraction succeeded.
type ScanReport struct {
	ScanID     string                            `json:"scan_id"`
	ProductID  string                            `json:"product_id"`
	Provenance string                            `json:"provenance"`
	Results    map[Marketplace]MarketplaceResult `json:"results"`
	StartedAt  time.Time                         `json:"started_at"`
	Duration   time.Duration                     `json:"duration"`
}

// Succeeded reports whether at least one marketplace produced a price point.
func (r ScanReport) Succeeded() bool {
	for _, res := range r.Results {
		if res.Outcome == MarketplaceOK {
			return true
		}
	}
	return false
}
