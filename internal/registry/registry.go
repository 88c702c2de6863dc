// Package registry owns the set of tracked products and their
// per-marketplace source references.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

type refKey struct {
	marketplace domain.Marketplace
	ref         string
}

// Registry is an in-memory product registry. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	// byRef indexes active products by (marketplace, page reference) so no
	// two active products can share a source.
	byRef map[refKey]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		products: make(map[string]domain.Product),
		byRef:    make(map[refKey]string),
	}
}

// Register adds a product to track. At least two marketplace references are
// required (arbitrage needs two price sources). Re-registering an active
// product with an identical name and reference set is a no-op returning the
// existing product with created=false. A reference already held by a
// different active product fails with ErrDuplicateSource.
func (r *Registry) Register(name string, refs map[domain.Marketplace]string) (domain.Product, bool, error) {
	if len(refs) < 2 {
		return domain.Product{}, false, fmt.Errorf("register %q: %w", name, domain.ErrInvalidReference)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for mkt, ref := range refs {
		ownerID, taken := r.byRef[refKey{mkt, ref}]
		if !taken {
			continue
		}
		owner := r.products[ownerID]
		if owner.Name == name && sameRefs(owner.Refs, refs) {
			return cloneProduct(owner), false, nil
		}
		return domain.Product{}, false, fmt.Errorf("register %q: marketplace %s reference %q: %w",
			name, mkt, ref, domain.ErrDuplicateSource)
	}

	p := domain.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Refs:      cloneRefs(refs),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	r.products[p.ID] = p
	for mkt, ref := range p.Refs {
		r.byRef[refKey{mkt, ref}] = p.ID
	}
	return cloneProduct(p), true, nil
}

// Deactivate soft-deletes a product: it keeps its history but is excluded
// from scans, opportunities, and reference resolution. Deactivating an
// already-inactive product is a no-op.
func (r *Registry) Deactivate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return fmt.Errorf("deactivate %s: %w", id, domain.ErrNotFound)
	}
	if !p.Active {
		return nil
	}
	p.Active = false
	r.products[id] = p
	for mkt, ref := range p.Refs {
		delete(r.byRef, refKey{mkt, ref})
	}
	return nil
}

// Get returns the product with the given id.
func (r *Registry) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("get %s: %w", id, domain.ErrNotFound)
	}
	return cloneProduct(p), nil
}

// List returns registered products ordered by creation time, optionally
// filtered to active ones.
func (r *Registry) List(activeOnly bool) []domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ResolveRef maps a page reference to the active product tracking it and the
// marketplace the reference belongs to.
func (r *Registry) ResolveRef(pageRef string) (domain.Product, domain.Marketplace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key, id := range r.byRef {
		if key.ref != pageRef {
			continue
		}
		p := r.products[id]
		if !p.Active {
			continue
		}
		return cloneProduct(p), key.marketplace, true
	}
	return domain.Product{}, "", false
}

// MarkScanned records the completion time of a scan on the product.
func (r *Registry) MarkScanned(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return
	}
	p.LastScannedAt = at
	r.products[id] = p
}

func sameRefs(a, b map[domain.Marketplace]string) bool {
	if len(a) != len(b) {
		return false
	}
	for mkt, ref := range a {
		if b[mkt] != ref {
			return false
		}
	}
	return true
}

func cloneRefs(refs map[domain.Marketplace]string) map[domain.Marketplace]string {
	out := make(map[domain.Marketplace]string, len(refs))
	for mkt, ref := range refs {
		out[mkt] = ref
	}
	return out
}

func cloneProduct(p domain.Product) domain.Product {
	p.Refs = cloneRefs(p.Refs)
	return p
}
