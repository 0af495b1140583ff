// Package refresher keeps depot pricing current with a background re-fetch.
package refresher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

// CatalogFetcher is the slice of the catalog service the refresher drives.
type CatalogFetcher interface {
	Fetch(ctx context.Context, depotID string) ([]domain.ProductWithPricing, error)
}

// Refresher owns the recurring catalog re-fetch for the active depot. A failed
// refresh records the error and leaves the last good catalog in place; stale
// prices beat no prices. Overlapping triggers coalesce into a no-op.
type Refresher struct {
	catalog  CatalogFetcher
	onUpdate func(depotID string, products []domain.ProductWithPricing)

	mu          sync.Mutex
	depotID     string
	inFlight    bool
	refreshing  bool
	lastRefresh time.Time
	refreshErr  *domain.PricingError

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  bool
}

func New(catalog CatalogFetcher, onUpdate func(depotID string, products []domain.ProductWithPricing)) *Refresher {
	return &Refresher{
		catalog:  catalog,
		onUpdate: onUpdate,
	}
}

// SetDepot points the schedule at a new depot. It does not refresh by itself;
// the caller decides when the first fetch happens.
func (r *Refresher) SetDepot(depotID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.depotID = depotID
}

// Start schedules the recurring refresh. Calling Start on a running refresher
// is a no-op.
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stop = make(chan struct{})
	r.stopOnce = sync.Once{}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop(ctx, interval)
}

func (r *Refresher) loop(ctx context.Context, interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RefreshNow(ctx)
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop tears the schedule down and waits for a refresh in flight to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stop := r.stop
	r.mu.Unlock()

	r.stopOnce.Do(func() { close(stop) })
	r.wg.Wait()
}

// RefreshNow fetches out of band without resetting the schedule. When a
// refresh is already in flight the call is coalesced into a no-op.
func (r *Refresher) RefreshNow(ctx context.Context) {
	r.mu.Lock()
	if r.inFlight || r.depotID == "" {
		r.mu.Unlock()
		return
	}
	r.inFlight = true
	r.refreshing = true
	depotID := r.depotID
	r.mu.Unlock()

	products, err := r.catalog.Fetch(ctx, depotID)

	r.mu.Lock()
	r.inFlight = false
	r.refreshing = false
	if err != nil {
		// Keep the previously displayed catalog; only the error slot moves.
		r.refreshErr = domain.AsPricingError(err)
		r.mu.Unlock()
		log.Warn().Err(err).Str("depot_id", depotID).Msg("background refresh failed")
		return
	}
	r.refreshErr = nil
	r.lastRefresh = time.Now()
	r.mu.Unlock()

	if r.onUpdate != nil {
		r.onUpdate(depotID, products)
	}
}

// IsRefreshing reports whether a refresh is in flight.
func (r *Refresher) IsRefreshing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshing
}

// LastRefresh returns the time of the last successful refresh; the zero time
// means none has succeeded yet.
func (r *Refresher) LastRefresh() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRefresh
}

// Err returns the error of the last refresh, nil after a success.
func (r *Refresher) Err() *domain.PricingError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshErr
}
