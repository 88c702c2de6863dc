package domain

import "time"

// Marketplace identifies one of the retail sources being compared for a
// product, e.g. "amazon" or "bestbuy". The set is open-ended; fee rates are
// configured per tag.
type Marketplace string

// Product is a tracked item with one page reference per marketplace.
// Products are never physically deleted while history references them;
// deactivation excludes them from scans and opportunities but keeps the
// series intact.
type Product struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Refs          map[Marketplace]string `json:"refs"` // marketplace -> page reference
	Active        bool                  `json:"active"`
	CreatedAt     time.Time             `json:"created_at"`
	LastScannedAt time.Time             `json:"last_scanned_at,omitzero"`
}

// Marketplaces returns the product's marketplace tags in unspecified order.
func (p Product) Marketplaces() []Marketplace {
	out := make([]Marketplace, 0, len(p.Refs))
	for m := range p.Refs {
		out = append(out, m)
	}
	return out
}
