// Package scan orchestrates price refreshes: for each scan request it fans
// extraction calls out across the product's marketplaces with bounded global
// concurrency, per-call retry, and partial-failure tolerance.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/shelfwatch/shelfarb/internal/domain"
	"github.com/shelfwatch/shelfarb/internal/extract"
)

// ProductSource is the slice of the registry the orchestrator needs.
type ProductSource interface {
	Get(id string) (domain.Product, error)
	MarkScanned(id string, at time.Time)
}

// PriceSink receives accepted extraction results.
type PriceSink interface {
	Append(productID string, marketplace domain.Marketplace, draft domain.PriceDraft) domain.PricePoint
}

// Recomputer is notified once a scan has written all its successful points.
type Recomputer interface {
	Refresh(productID string)
}

// Orchestrator runs at most one scan per product at a time and bounds the
// number of concurrent extraction calls across all scans.
type Orchestrator struct {
	products ProductSource
	client   extract.Client
	sink     PriceSink
	recomp   Recomputer
	policy   extract.RetryPolicy
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   *slog.Logger

	ctx context.Context
	wg  sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
	reports  map[string]domain.ScanReport
}

// Options configures an Orchestrator.
type Options struct {
	// GlobalConcurrency caps concurrent extraction calls across all
	// products.
	GlobalConcurrency int
	// CallTimeout bounds each extraction attempt.
	CallTimeout time.Duration
	Policy      extract.RetryPolicy
}

// New creates an Orchestrator. Start must be called before Trigger.
func New(products ProductSource, client extract.Client, sink PriceSink, recomp Recomputer, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.GlobalConcurrency <= 0 {
		opts.GlobalConcurrency = 1
	}
	return &Orchestrator{
		products: products,
		client:   client,
		sink:     sink,
		recomp:   recomp,
		policy:   opts.Policy,
		sem:      semaphore.NewWeighted(int64(opts.GlobalConcurrency)),
		timeout:  opts.CallTimeout,
		logger:   logger.With(slog.String("component", "scan_orchestrator")),
		inFlight: make(map[string]struct{}),
		reports:  make(map[string]domain.ScanReport),
	}
}

// Start binds the orchestrator to its lifecycle context. Scans spawned after
// cancellation fail fast; in-flight scans abort at the next extraction call.
func (o *Orchestrator) Start(ctx context.Context) {
	o.ctx = ctx
}

// Wait blocks until all in-flight scans have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Trigger requests a scan of the product. It returns false with a nil error
// when a scan is already in flight: the duplicate request is coalesced and
// the running scan's result satisfies it. At most one scan is in flight per
// product at any instant.
func (o *Orchestrator) Trigger(productID, provenance string) (bool, error) {
	product, err := o.products.Get(productID)
	if err != nil {
		return false, err
	}
	if !product.Active {
		return false, fmt.Errorf("scan %s: %w", productID, domain.ErrInactive)
	}

	o.mu.Lock()
	if _, running := o.inFlight[productID]; running {
		o.mu.Unlock()
		o.logger.Debug("scan coalesced",
			slog.String("product_id", productID),
			slog.String("provenance", provenance),
		)
		return false, nil
	}
	o.inFlight[productID] = struct{}{}
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(product, provenance)
	return true, nil
}

// InFlight reports whether a scan is currently running for the product.
func (o *Orchestrator) InFlight(productID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, running := o.inFlight[productID]
	return running
}

// LastReport returns the most recent scan report for the product.
func (o *Orchestrator) LastReport(productID string) (domain.ScanReport, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.reports[productID]
	return r, ok
}

func (o *Orchestrator) run(product domain.Product, provenance string) {
	defer o.wg.Done()

	report := domain.ScanReport{
		ScanID:     uuid.NewString(),
		ProductID:  product.ID,
		Provenance: provenance,
		Results:    make(map[domain.Marketplace]domain.MarketplaceResult, len(product.Refs)),
		StartedAt:  time.Now().UTC(),
	}
	log := o.logger.With(
		slog.String("scan_id", report.ScanID),
		slog.String("product_id", product.ID),
	)

	// Fan out one extraction per marketplace. A failing marketplace never
	// aborts its siblings; results are collected under resMu.
	var (
		resMu sync.Mutex
		calls sync.WaitGroup
	)
	for mkt, ref := range product.Refs {
		calls.Add(1)
		go func(mkt domain.Marketplace, ref string) {
			defer calls.Done()

			result, attempts, err := o.extractOne(ref)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				report.Results[mkt] = domain.MarketplaceResult{
					Outcome:  domain.MarketplaceFailed,
					Attempts: attempts,
					Error:    err.Error(),
				}
				log.Warn("marketplace extraction failed",
					slog.String("marketplace", string(mkt)),
					slog.Int("attempts", attempts),
					slog.String("error", err.Error()),
				)
				return
			}
			o.sink.Append(product.ID, mkt, domain.PriceDraft{
				Price:      result.Price,
				Shipping:   result.Shipping,
				Stock:      result.Stock,
				Seller:     result.Seller,
				PageRef:    ref,
				Provenance: report.ScanID,
			})
			report.Results[mkt] = domain.MarketplaceResult{
				Outcome:  domain.MarketplaceOK,
				Attempts: attempts,
			}
		}(mkt, ref)
	}
	calls.Wait()
	report.Duration = time.Since(report.StartedAt)

	if report.Succeeded() {
		o.products.MarkScanned(product.ID, time.Now().UTC())
		o.recomp.Refresh(product.ID)
		log.Info("scan finished",
			slog.Int("marketplaces", len(product.Refs)),
			slog.Int("failures", len(product.Refs)-okCount(report)),
			slog.Duration("duration", report.Duration),
		)
	} else {
		log.Error("scan failed on every marketplace",
			slog.Duration("duration", report.Duration),
		)
	}

	// Completion releases the in-flight lock whatever the outcome, so the
	// next notification can start a fresh scan.
	o.mu.Lock()
	o.reports[product.ID] = report
	delete(o.inFlight, product.ID)
	o.mu.Unlock()
}

// extractOne performs one marketplace extraction under the retry policy. Each
// attempt takes a global semaphore slot only for the duration of the call, so
// backoff sleeps do not starve other scans.
func (o *Orchestrator) extractOne(ref string) (extract.Result, int, error) {
	ctx := o.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var result extract.Result
	attempts, err := o.policy.Do(ctx, func(ctx context.Context) error {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrContextDone, err)
		}
		defer o.sem.Release(1)

		callCtx := ctx
		if o.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, o.timeout)
			defer cancel()
		}
		r, err := o.client.Extract(callCtx, ref)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, attempts, err
}

func okCount(r domain.ScanReport) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == domain.MarketplaceOK {
			n++
		}
	}
	return n
}
