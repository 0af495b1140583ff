package cart

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

// CatalogSource hands the engine the variant set of a depot, fetching it when
// it is not already resident.
type CatalogSource interface {
	Ensure(ctx context.Context, depotID string) ([]domain.ProductWithPricing, error)
}

// ConsistencyEngine revalidates cart lines when the active depot changes.
// The previous depot id is held as first-class state: a notification that does
// not actually change the depot id never triggers a revalidation pass. That
// guard is what keeps unrelated location rewrites from looping the cart
// through classify/reclassify cycles.
type ConsistencyEngine struct {
	cart    *Store
	catalog CatalogSource

	lastDepotID string
}

func NewConsistencyEngine(cart *Store, catalog CatalogSource) *ConsistencyEngine {
	return &ConsistencyEngine{
		cart:    cart,
		catalog: catalog,
	}
}

// DepotChanged feeds the engine a new active depot id. When the id matches the
// previous known value nothing runs; otherwise every cart line is revalidated
// against the new depot's catalog.
//
// Not safe for concurrent use; the orchestrator serializes depot transitions.
func (e *ConsistencyEngine) DepotChanged(ctx context.Context, depotID string) error {
	if depotID == "" || depotID == e.lastDepotID {
		return nil
	}
	if err := e.ValidateCart(ctx, depotID); err != nil {
		return err
	}
	e.lastDepotID = depotID
	return nil
}

// ValidateCart classifies every line against the depot's catalog: lines
// already stamped with the depot stay untouched, lines from another depot are
// hot-swapped to the same product's purchasable variant when one exists, and
// invalidated otherwise. Classification runs atomically against the store, so
// a concurrent add or removal is never overwritten by the pass. Safe to call
// repeatedly; once every line is classified further calls change nothing.
func (e *ConsistencyEngine) ValidateCart(ctx context.Context, depotID string) error {
	products, err := e.catalog.Ensure(ctx, depotID)
	if err != nil {
		return err
	}

	variantsByProduct := make(map[string][]domain.DepotVariant, len(products))
	closingByVariant := make(map[string]int)
	for _, p := range products {
		variantsByProduct[p.Product.ID] = p.Variants
		for _, v := range p.Variants {
			closingByVariant[v.ID] = v.ClosingQty
		}
	}

	swapped, dropped, merged := 0, 0, 0
	e.cart.revalidate(func(items []domain.CartItem) []domain.CartItem {
		out := make([]domain.CartItem, 0, len(items))
		index := make(map[string]int, len(items))
		for _, item := range items {
			if item.DepotID != depotID {
				if replacement, ok := domain.CheapestPurchasableVariant(variantsByProduct[item.ProductID]); ok {
					item.VariantID = replacement.ID
					item.DepotID = replacement.DepotID
					item.VariantName = replacement.Name
					item.Price = replacement.EffectivePrice()
					item.Quantity = domain.ClampQuantity(item.Quantity, replacement.ClosingQty)
					item.Available = true
					item.UnavailableReason = ""
					swapped++
				} else {
					// No purchasable variant in the new depot: keep the line
					// as a historical record but exclude it from the
					// available subtotal.
					item.Available = false
					item.UnavailableReason = domain.UnavailableReasonDepot
					dropped++
				}
			}

			// Two lines of the same product can hot-swap onto the same
			// replacement variant. Lines stay keyed by variant id, so a
			// collision merges quantities instead of duplicating the line.
			if j, ok := index[item.VariantID]; ok && item.Available && out[j].Available {
				out[j].Quantity = domain.ClampQuantity(out[j].Quantity+item.Quantity, closingByVariant[item.VariantID])
				merged++
				continue
			}
			index[item.VariantID] = len(out)
			out = append(out, item)
		}
		return out
	})

	if swapped > 0 || dropped > 0 || merged > 0 {
		log.Info().
			Str("depot_id", depotID).
			Int("hot_swapped", swapped).
			Int("invalidated", dropped).
			Int("merged", merged).
			Msg("cart revalidated")
	}
	return nil
}

// ActiveDepotID returns the last depot id the engine applied.
func (e *ConsistencyEngine) ActiveDepotID() string {
	return e.lastDepotID
}
