package refresher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

type mockCatalog struct {
	m        sync.Mutex
	products []domain.ProductWithPricing
	err      error
	calls    int
	gate     chan struct{}
}

func (c *mockCatalog) Fetch(_ context.Context, _ string) ([]domain.ProductWithPricing, error) {
	c.m.Lock()
	c.calls++
	gate := c.gate
	err := c.err
	products := c.products
	c.m.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (c *mockCatalog) callCount() int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.calls
}

func sampleProducts() []domain.ProductWithPricing {
	return []domain.ProductWithPricing{
		{Product: domain.Product{ID: "7", Name: "A2 Milk"}, BestPrice: 60},
	}
}

func TestRefreshNow_SuccessUpdatesStateAndNotifies(t *testing.T) {
	catalog := &mockCatalog{products: sampleProducts()}

	var got []domain.ProductWithPricing
	var gotDepot string
	r := New(catalog, func(depotID string, products []domain.ProductWithPricing) {
		gotDepot = depotID
		got = products
	})
	r.SetDepot("A")

	r.RefreshNow(context.Background())

	assert.Equal(t, "A", gotDepot)
	require.Len(t, got, 1)
	assert.Nil(t, r.Err())
	assert.False(t, r.LastRefresh().IsZero())
	assert.False(t, r.IsRefreshing())
}

func TestRefreshNow_FailureKeepsDataAndSetsError(t *testing.T) {
	catalog := &mockCatalog{products: sampleProducts()}

	updates := 0
	r := New(catalog, func(string, []domain.ProductWithPricing) { updates++ })
	r.SetDepot("A")

	ctx := context.Background()
	r.RefreshNow(ctx)
	require.Equal(t, 1, updates)
	stamp := r.LastRefresh()

	catalog.m.Lock()
	catalog.err = domain.NewError(domain.ErrNetworkError, "backend down")
	catalog.m.Unlock()

	r.RefreshNow(ctx)

	assert.Equal(t, 1, updates, "a failed refresh must not push an update")
	require.NotNil(t, r.Err())
	assert.Equal(t, domain.ErrNetworkError, r.Err().Type)
	assert.Equal(t, stamp, r.LastRefresh(), "failure must not move the last-refresh stamp")
	assert.False(t, r.IsRefreshing(), "refreshing flag must return to false after failure")
}

func TestRefreshNow_SuccessClearsPreviousError(t *testing.T) {
	catalog := &mockCatalog{err: domain.NewError(domain.ErrAPIError, "boom")}
	r := New(catalog, nil)
	r.SetDepot("A")

	ctx := context.Background()
	r.RefreshNow(ctx)
	require.NotNil(t, r.Err())

	catalog.m.Lock()
	catalog.err = nil
	catalog.products = sampleProducts()
	catalog.m.Unlock()

	r.RefreshNow(ctx)
	assert.Nil(t, r.Err())
	assert.False(t, r.LastRefresh().IsZero())
}

func TestRefreshNow_SuccessStampsTimeEvenWhenUnchanged(t *testing.T) {
	catalog := &mockCatalog{products: sampleProducts()}
	r := New(catalog, nil)
	r.SetDepot("A")

	ctx := context.Background()
	r.RefreshNow(ctx)
	first := r.LastRefresh()

	time.Sleep(5 * time.Millisecond)
	r.RefreshNow(ctx)
	assert.True(t, r.LastRefresh().After(first), "identical catalog still updates the stamp")
}

func TestRefreshNow_OverlappingTriggersCoalesce(t *testing.T) {
	catalog := &mockCatalog{products: sampleProducts(), gate: make(chan struct{})}
	r := New(catalog, nil)
	r.SetDepot("A")

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		r.RefreshNow(ctx)
		close(done)
	}()

	// Wait for the first refresh to be in flight.
	require.Eventually(t, r.IsRefreshing, time.Second, time.Millisecond)

	// These must be swallowed, not queued.
	r.RefreshNow(ctx)
	r.RefreshNow(ctx)

	close(catalog.gate)
	<-done

	assert.Equal(t, 1, catalog.callCount())
}

func TestRefreshNow_NoDepotIsANoOp(t *testing.T) {
	catalog := &mockCatalog{products: sampleProducts()}
	r := New(catalog, nil)

	r.RefreshNow(context.Background())
	assert.Equal(t, 0, catalog.callCount())
}

func TestStartStop_ScheduleRunsAndTearsDown(t *testing.T) {
	catalog := &mockCatalog{products: sampleProducts()}
	r := New(catalog, nil)
	r.SetDepot("A")

	ctx := context.Background()
	r.Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool { return catalog.callCount() >= 2 }, time.Second, time.Millisecond)

	r.Stop()
	calls := catalog.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, catalog.callCount(), "no refreshes after Stop")

	// Stop twice is safe.
	r.Stop()
}

func TestStart_Twice_IsANoOp(t *testing.T) {
	catalog := &mockCatalog{products: sampleProducts()}
	r := New(catalog, nil)
	r.SetDepot("A")

	ctx := context.Background()
	r.Start(ctx, time.Hour)
	r.Start(ctx, time.Millisecond) // must not spawn a second schedule
	defer r.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, catalog.callCount())
}
