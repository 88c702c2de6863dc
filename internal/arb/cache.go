package arb

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

// ProductSource is the slice of the registry the cache needs.
type ProductSource interface {
	Get(id string) (domain.Product, error)
	List(activeOnly bool) []domain.Product
}

// PriceSource is the slice of the history store the cache needs.
type PriceSource interface {
	Current(productID string, marketplace domain.Marketplace) (domain.PricePoint, bool)
}

// UpdateFunc observes cache changes: opp is the new opportunity, or nil when
// the product's opportunity was cleared. prev is the previously cached one,
// nil when there was none. Called outside cache locks.
type UpdateFunc func(productID string, prev, opp *domain.Opportunity)

// Cache maintains the current opportunity per active product, recomputed
// synchronously after every accepted price append so dashboard reads never
// observe a result older than the latest price change.
type Cache struct {
	products ProductSource
	prices   PriceSource
	cfg      Config
	logger   *slog.Logger
	onUpdate UpdateFunc

	mu   sync.RWMutex
	opps map[string]domain.Opportunity

	// perProduct serializes recomputation per product so an opportunity is
	// never derived from a half-written pair of concurrent appends.
	perProductMu sync.Mutex
	perProduct   map[string]*sync.Mutex
}

// NewCache creates an empty opportunity cache.
func NewCache(products ProductSource, prices PriceSource, cfg Config, logger *slog.Logger) *Cache {
	return &Cache{
		products:   products,
		prices:     prices,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "opportunity_cache")),
		opps:       make(map[string]domain.Opportunity),
		perProduct: make(map[string]*sync.Mutex),
	}
}

// OnUpdate registers a single observer for cache changes. Must be called
// before the cache sees traffic.
func (c *Cache) OnUpdate(fn UpdateFunc) {
	c.onUpdate = fn
}

func (c *Cache) productLock(productID string) *sync.Mutex {
	c.perProductMu.Lock()
	defer c.perProductMu.Unlock()
	mu, ok := c.perProduct[productID]
	if !ok {
		mu = &sync.Mutex{}
		c.perProduct[productID] = mu
	}
	return mu
}

// Refresh recomputes the product's opportunity from the current price per
// marketplace. The snapshot of currents is taken under the product's own
// recompute lock, atomically with respect to that product's writes (the scan
// orchestrator finishes all of a scan's appends before calling Refresh, and
// at most one scan runs per product).
func (c *Cache) Refresh(productID string) {
	mu := c.productLock(productID)
	mu.Lock()
	defer mu.Unlock()

	product, err := c.products.Get(productID)
	if err != nil || !product.Active {
		c.evictLocked(productID)
		return
	}

	currents := make(map[domain.Marketplace]domain.PricePoint, len(product.Refs))
	for mkt := range product.Refs {
		if point, ok := c.prices.Current(productID, mkt); ok {
			currents[mkt] = point
		}
	}

	opp, found := Calculate(product, currents, c.cfg, time.Now().UTC())

	c.mu.Lock()
	prev, had := c.opps[productID]
	if found {
		c.opps[productID] = opp
	} else {
		delete(c.opps, productID)
	}
	c.mu.Unlock()

	switch {
	case found:
		c.logger.Info("opportunity updated",
			slog.String("product_id", productID),
			slog.String("buy", string(opp.BuyMarketplace)),
			slog.String("sell", string(opp.SellMarketplace)),
			slog.String("net_margin", opp.NetMargin.String()),
		)
	case had:
		c.logger.Info("opportunity cleared", slog.String("product_id", productID))
	}

	if c.onUpdate != nil && (found || had) {
		var prevPtr, oppPtr *domain.Opportunity
		if had {
			prevPtr = &prev
		}
		if found {
			oppPtr = &opp
		}
		c.onUpdate(productID, prevPtr, oppPtr)
	}
}

// Evict removes a product's opportunity, e.g. after deactivation. It takes
// the product's recompute lock so a Refresh racing the deactivation cannot
// write the opportunity back after it is removed.
func (c *Cache) Evict(productID string) {
	mu := c.productLock(productID)
	mu.Lock()
	defer mu.Unlock()
	c.evictLocked(productID)
}

// evictLocked is Evict's body; callers hold the product's recompute lock.
func (c *Cache) evictLocked(productID string) {
	c.mu.Lock()
	_, had := c.opps[productID]
	delete(c.opps, productID)
	c.mu.Unlock()

	if had && c.onUpdate != nil {
		c.onUpdate(productID, nil, nil)
	}
}

// Get returns the product's current opportunity.
func (c *Cache) Get(productID string) (domain.Opportunity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	opp, ok := c.opps[productID]
	return opp, ok
}

// List returns all current opportunities ranked by net margin, best first.
func (c *Cache) List() []domain.Opportunity {
	c.mu.RLock()
	out := make([]domain.Opportunity, 0, len(c.opps))
	for _, opp := range c.opps {
		out = append(out, opp)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		cmp := out[i].NetMargin.Cmp(out[j].NetMargin)
		if cmp == 0 {
			return out[i].ProductID < out[j].ProductID
		}
		return cmp > 0
	})
	return out
}

// Stats summarizes the cache for the dashboard.
func (c *Cache) Stats() domain.Stats {
	c.mu.RLock()
	count := len(c.opps)
	sum := decimal.Zero
	best := decimal.Zero
	for _, opp := range c.opps {
		sum = sum.Add(opp.NetMargin)
		if opp.NetMargin.Cmp(best) > 0 {
			best = opp.NetMargin
		}
	}
	c.mu.RUnlock()

	avg := decimal.Zero
	if count > 0 {
		avg = sum.Div(decimal.NewFromInt(int64(count))).Round(2)
	}
	return domain.Stats{
		TrackedProducts:  len(c.products.List(true)),
		Opportunities:    count,
		AverageNetMargin: avg,
		BestNetMargin:    best,
	}
}
