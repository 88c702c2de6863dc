// Package history implements the append-only price history store, the single
// source of truth for "current price" per product and marketplace.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

type seriesKey struct {
	productID   string
	marketplace domain.Marketplace
}

// series is one (product, marketplace) price sequence. Each series carries
// its own lock so appends to unrelated keys never contend.
type series struct {
	mu     sync.RWMutex
	points []domain.PricePoint
}

// Store holds per-(product, marketplace) append-only price series.
// Observation timestamps are assigned here at ingestion and are strictly
// increasing within a series regardless of what the external source reported.
type Store struct {
	mu     sync.RWMutex
	series map[seriesKey]*series
}

// New creates an empty Store.
func New() *Store {
	return &Store{series: make(map[seriesKey]*series)}
}

func (s *Store) get(key seriesKey, create bool) *series {
	s.mu.RLock()
	ser := s.series[key]
	s.mu.RUnlock()
	if ser != nil || !create {
		return ser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ser = s.series[key]; ser == nil {
		ser = &series{}
		s.series[key] = ser
	}
	return ser
}

// Append stamps the draft with an id and a monotonic observation time and
// adds it to the series. It returns the stored point. Appends are the sole
// mutation path; points are never changed or removed afterwards.
func (s *Store) Append(productID string, marketplace domain.Marketplace, draft domain.PriceDraft) domain.PricePoint {
	ser := s.get(seriesKey{productID, marketplace}, true)

	ser.mu.Lock()
	defer ser.mu.Unlock()

	ts := time.Now().UTC()
	if n := len(ser.points); n > 0 && !ts.After(ser.points[n-1].ObservedAt) {
		// Clock went backwards or two appends landed in the same tick;
		// keep the series strictly increasing.
		ts = ser.points[n-1].ObservedAt.Add(time.Nanosecond)
	}

	point := domain.PricePoint{
		ID:          uuid.NewString(),
		ProductID:   productID,
		Marketplace: marketplace,
		Price:       draft.Price,
		Shipping:    draft.Shipping,
		Stock:       draft.Stock,
		Seller:      draft.Seller,
		PageRef:     draft.PageRef,
		ObservedAt:  ts,
		Provenance:  draft.Provenance,
	}
	ser.points = append(ser.points, point)
	return point
}

// Current returns the usable current price for the pair: the latest point
// that is not out of stock, or the latest point overall if every point is out
// of stock, or false if the series is empty.
func (s *Store) Current(productID string, marketplace domain.Marketplace) (domain.PricePoint, bool) {
	ser := s.get(seriesKey{productID, marketplace}, false)
	if ser == nil {
		return domain.PricePoint{}, false
	}

	ser.mu.RLock()
	defer ser.mu.RUnlock()

	if len(ser.points) == 0 {
		return domain.PricePoint{}, false
	}
	for i := len(ser.points) - 1; i >= 0; i-- {
		if ser.points[i].Stock != domain.StockOutOfStock {
			return ser.points[i], true
		}
	}
	return ser.points[len(ser.points)-1], true
}

// Series returns the pair's points in insertion order. When since is nonzero
// only points observed at or after it are returned. The result is a copy.
func (s *Store) Series(productID string, marketplace domain.Marketplace, since time.Time) []domain.PricePoint {
	ser := s.get(seriesKey{productID, marketplace}, false)
	if ser == nil {
		return nil
	}

	ser.mu.RLock()
	defer ser.mu.RUnlock()

	start := 0
	if !since.IsZero() {
		for start < len(ser.points) && ser.points[start].ObservedAt.Before(since) {
			start++
		}
	}
	if start == len(ser.points) {
		return nil
	}
	out := make([]domain.PricePoint, len(ser.points)-start)
	copy(out, ser.points[start:])
	return out
}

// Len returns the number of points stored for the pair.
func (s *Store) Len(productID string, marketplace domain.Marketplace) int {
	ser := s.get(seriesKey{productID, marketplace}, false)
	if ser == nil {
		return 0
	}
	ser.mu.RLock()
	defer ser.mu.RUnlock()
	return len(ser.points)
}
