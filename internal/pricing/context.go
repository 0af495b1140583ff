// Package pricing composes location, depot, catalog, refresh and cart into the
// single state surface the presentation layer consumes.
package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SanmishaTech/snf-sub001/internal/cart"
	"github.com/SanmishaTech/snf-sub001/internal/catalog"
	"github.com/SanmishaTech/snf-sub001/internal/domain"
	"github.com/SanmishaTech/snf-sub001/internal/locationstore"
	"github.com/SanmishaTech/snf-sub001/internal/refresher"
	"github.com/SanmishaTech/snf-sub001/internal/resolver"
)

// Snapshot is the aggregate state published to presentation.
type Snapshot struct {
	Location        *domain.DeliveryLocation    `json:"location"`
	Depot           *domain.Depot               `json:"depot"`
	Availability    *domain.ServiceAvailability `json:"service_availability"`
	Products        []domain.ProductWithPricing `json:"products"`
	IsLoading       bool                        `json:"is_loading"`
	Error           *domain.PricingError        `json:"error"`
	IsRefreshing    bool                        `json:"is_refreshing"`
	LastRefreshTime *time.Time                  `json:"last_refresh_time"`
	RefreshError    *domain.PricingError        `json:"refresh_error"`
}

// Context owns the engine state for one session. All depot transitions funnel
// through applyLocation, which serializes them under one mutex; that is the
// single-writer guarantee the consistency engine relies on.
type Context struct {
	locations *resolver.LocationResolver
	depots    *resolver.DepotResolver
	catalog   *catalog.Service
	refresh   *refresher.Refresher
	cartStore *cart.Store
	engine    *cart.ConsistencyEngine
	store     locationstore.Store

	// transitionMu serializes depot transitions end to end so the consistency
	// engine never sees two interleaved revalidation passes.
	transitionMu sync.Mutex

	mu           sync.RWMutex
	location     *domain.DeliveryLocation
	depot        *domain.Depot
	availability *domain.ServiceAvailability
	products     []domain.ProductWithPricing
	loading      bool
	err          *domain.PricingError
}

func NewContext(
	locations *resolver.LocationResolver,
	depots *resolver.DepotResolver,
	catalogSvc *catalog.Service,
	store locationstore.Store,
) *Context {
	c := &Context{
		locations: locations,
		depots:    depots,
		catalog:   catalogSvc,
		cartStore: cart.NewStore(),
		store:     store,
	}
	c.engine = cart.NewConsistencyEngine(c.cartStore, catalogSvc)
	c.refresh = refresher.New(catalogSvc, c.onRefreshed)
	return c
}

// Run restores any persisted location, starts the background price refresh and
// follows location changes made by other instances until ctx is cancelled.
func (c *Context) Run(ctx context.Context, refreshInterval time.Duration) error {
	if loc, err := c.locations.CurrentLocation(ctx); err != nil {
		log.Warn().Err(err).Msg("persisted location unreadable, starting without one")
	} else if loc != nil {
		if err := c.applyLocation(ctx, loc); err != nil {
			log.Warn().Err(err).Msg("could not restore persisted location")
		}
	}

	events, cancel, err := c.store.Subscribe(ctx)
	if err != nil {
		return err
	}

	c.refresh.Start(ctx, refreshInterval)

	go func() {
		defer cancel()
		defer c.refresh.Stop()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := c.applyLocation(ctx, ev.New); err != nil {
					log.Warn().Err(err).Msg("could not apply cross-instance location change")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// ResolvePincode resolves a manually entered pincode and applies the result.
func (c *Context) ResolvePincode(ctx context.Context, pincode string) (*domain.DeliveryLocation, error) {
	loc, err := c.locations.ResolveByPincode(ctx, pincode)
	if err != nil {
		c.SetError(domain.AsPricingError(err))
		return nil, err
	}
	if err := c.applyLocation(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// ResolveGeolocation resolves via the positioning capability and applies the
// result. Platform failures are surfaced but leave the previous state intact;
// the caller falls back to manual pincode entry.
func (c *Context) ResolveGeolocation(ctx context.Context) (*domain.DeliveryLocation, error) {
	loc, err := c.locations.ResolveByGeolocation(ctx)
	if err != nil {
		c.SetError(domain.AsPricingError(err))
		return nil, err
	}
	if err := c.applyLocation(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// SetLocation applies an externally resolved location.
func (c *Context) SetLocation(ctx context.Context, loc *domain.DeliveryLocation) error {
	return c.applyLocation(ctx, loc)
}

// ClearLocation removes the persisted location and resets depot-scoped state.
// The cart is kept; its lines revalidate when the next depot is resolved.
func (c *Context) ClearLocation(ctx context.Context) error {
	if err := c.locations.ClearLocation(ctx); err != nil {
		return err
	}
	return c.applyLocation(ctx, nil)
}

// SetDepot overrides the active depot directly, bypassing pincode resolution.
func (c *Context) SetDepot(ctx context.Context, depot *domain.Depot) error {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	c.mu.Lock()
	prevID := ""
	if c.depot != nil {
		prevID = c.depot.ID
	}
	c.depot = depot
	c.availability = &domain.ServiceAvailability{IsAvailable: depot.IsOnline}
	if !depot.IsOnline {
		c.availability.Message = resolver.OfflineMessage
	}
	c.mu.Unlock()

	if depot.ID == prevID {
		return nil
	}
	return c.activateDepot(ctx, depot.ID)
}

// applyLocation is the depot-change funnel. A nil location resets the
// depot-scoped state; a location whose depot id matches the active depot
// updates the location record only, with no catalog re-fetch and no cart
// revalidation.
func (c *Context) applyLocation(ctx context.Context, loc *domain.DeliveryLocation) error {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	if loc == nil {
		c.mu.Lock()
		c.location = nil
		c.depot = nil
		c.availability = nil
		c.products = nil
		c.err = nil
		c.mu.Unlock()
		c.refresh.SetDepot("")
		return nil
	}

	c.mu.Lock()
	prevDepotID := ""
	if c.depot != nil {
		prevDepotID = c.depot.ID
	}
	c.location = loc
	c.loading = true
	c.mu.Unlock()

	depot, availability, err := c.depots.ResolveDepot(ctx, loc.Pincode)
	if err != nil {
		c.finishLoading(domain.AsPricingError(err))
		return err
	}

	c.mu.Lock()
	c.depot = depot
	c.availability = availability
	c.mu.Unlock()

	// De-duplication happens on depot id, not on location identity: a rewrite
	// of the location record that lands on the same depot must not refetch
	// the catalog or touch the cart.
	if depot.ID == prevDepotID {
		c.finishLoading(nil)
		return nil
	}

	return c.activateDepot(ctx, depot.ID)
}

// activateDepot fetches the new depot's catalog, revalidates the cart against
// it and retargets the background refresh.
func (c *Context) activateDepot(ctx context.Context, depotID string) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	products, err := c.catalog.Fetch(ctx, depotID)
	if err != nil {
		// Initial catalog load failed: product display is blocked by the
		// error state, unlike a background refresh failure.
		c.finishLoading(domain.AsPricingError(err))
		return err
	}

	if err := c.engine.DepotChanged(ctx, depotID); err != nil {
		c.finishLoading(domain.AsPricingError(err))
		return err
	}

	c.refresh.SetDepot(depotID)

	c.mu.Lock()
	c.products = products
	c.loading = false
	c.err = nil
	c.mu.Unlock()

	log.Info().Str("depot_id", depotID).Int("products", len(products)).Msg("depot activated")
	return nil
}

func (c *Context) finishLoading(err *domain.PricingError) {
	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.err = err
	}
	c.mu.Unlock()
}

// onRefreshed receives catalogs from the background refresher. A refresh that
// raced a depot change is dropped instead of overwriting the new depot's
// products.
func (c *Context) onRefreshed(depotID string, products []domain.ProductWithPricing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.depot == nil || c.depot.ID != depotID {
		return
	}
	c.products = products
}

// RefreshPrices triggers an out-of-band refresh; coalesced if one is running.
func (c *Context) RefreshPrices(ctx context.Context) {
	c.refresh.RefreshNow(ctx)
}

// SetError sets or clears the aggregate error slot.
func (c *Context) SetError(err *domain.PricingError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// State returns the aggregate snapshot for presentation.
func (c *Context) State() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Location:     c.location,
		Depot:        c.depot,
		Availability: c.availability,
		Products:     c.products,
		IsLoading:    c.loading,
		Error:        c.err,
		IsRefreshing: c.refresh.IsRefreshing(),
		RefreshError: c.refresh.Err(),
	}
	if last := c.refresh.LastRefresh(); !last.IsZero() {
		snap.LastRefreshTime = &last
	}
	return snap
}

// Cart exposes the session cart store.
func (c *Context) Cart() *cart.Store {
	return c.cartStore
}

// ValidateCart revalidates the cart against a depot's catalog on demand. It
// takes the transition lock so an on-demand pass never interleaves with a
// depot change.
func (c *Context) ValidateCart(ctx context.Context, depotID string) error {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()
	return c.engine.ValidateCart(ctx, depotID)
}

// ActiveDepot returns the current depot, nil when none is resolved.
func (c *Context) ActiveDepot() *domain.Depot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.depot
}

// ResidentProduct finds a product and variant in the active depot's catalog;
// the add-to-cart path uses it so every cart line starts from the depot the
// shopper is actually browsing.
func (c *Context) ResidentProduct(variantID string) (domain.Product, domain.DepotVariant, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		for _, v := range p.Variants {
			if v.ID == variantID {
				return p.Product, v, true
			}
		}
	}
	return domain.Product{}, domain.DepotVariant{}, false
}
