// Package catalog fetches and holds depot-scoped product pricing.
package catalog

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/SanmishaTech/snf-sub001/internal/backend"
	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

// Fetcher is the backend slice the service needs.
type Fetcher interface {
	ListCatalog(ctx context.Context, depotID string) ([]backend.CatalogEntry, error)
}

// Service fetches one catalog per depot id and keeps the last good result
// resident in memory. Catalogs are never merged across depots and never
// persisted; a restart rebuilds them from the backend.
type Service struct {
	fetcher Fetcher
	sfg     singleflight.Group // collapses concurrent fetches for the same depot

	mu       sync.RWMutex
	resident map[string][]domain.ProductWithPricing
}

func NewService(fetcher Fetcher) *Service {
	return &Service{
		fetcher:  fetcher,
		resident: make(map[string][]domain.ProductWithPricing),
	}
}

// Fetch retrieves the catalog for a depot from the backend. An empty catalog
// is a valid result. Concurrent calls for the same depot share one round trip.
func (s *Service) Fetch(ctx context.Context, depotID string) ([]domain.ProductWithPricing, error) {
	v, err, shared := s.sfg.Do(depotID, func() (interface{}, error) {
		entries, err := s.fetcher.ListCatalog(ctx, depotID)
		if err != nil {
			return nil, err
		}

		products := make([]domain.ProductWithPricing, len(entries))
		for i, e := range entries {
			products[i] = domain.ProductWithPricing{
				Product:   e.Product,
				Variants:  e.Variants,
				BestPrice: domain.ComputeBestPrice(e.Variants),
			}
		}

		s.mu.Lock()
		s.resident[depotID] = products
		s.mu.Unlock()
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("depot_id", depotID).Msg("catalog fetch coalesced")
	}
	return v.([]domain.ProductWithPricing), nil
}

// Ensure returns the resident catalog for the depot, fetching it first when
// none is held.
func (s *Service) Ensure(ctx context.Context, depotID string) ([]domain.ProductWithPricing, error) {
	if products, ok := s.Resident(depotID); ok {
		return products, nil
	}
	return s.Fetch(ctx, depotID)
}

// Resident returns the in-memory catalog for a depot, if one was fetched.
func (s *Service) Resident(depotID string) ([]domain.ProductWithPricing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products, ok := s.resident[depotID]
	return products, ok
}
