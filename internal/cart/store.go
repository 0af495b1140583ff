// Package cart holds the in-memory cart and keeps it consistent across depot
// changes. Nothing here is persisted; a restart rebuilds the cart empty.
package cart

import (
	"errors"
	"sync"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

var ErrItemNotFound = errors.New("cart item not found")

// Store is the per-session cart. Lines are keyed by variant id; adding a
// variant already in the cart increments its quantity instead of duplicating
// the line.
type Store struct {
	mu    sync.RWMutex
	items []domain.CartItem
}

func NewStore() *Store {
	return &Store{}
}

// AddItem puts a variant in the cart, stamped with the depot it was added
// under. Quantity is clamped to the variant's closing quantity.
func (s *Store) AddItem(product domain.Product, variant domain.DepotVariant, qty int) domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].VariantID == variant.ID {
			s.items[i].Quantity = domain.ClampQuantity(s.items[i].Quantity+qty, variant.ClosingQty)
			return s.items[i]
		}
	}

	item := domain.CartItem{
		VariantID:   variant.ID,
		ProductID:   product.ID,
		DepotID:     variant.DepotID,
		Name:        product.Name,
		VariantName: variant.Name,
		Price:       variant.EffectivePrice(),
		Quantity:    domain.ClampQuantity(qty, variant.ClosingQty),
		Available:   true,
	}
	s.items = append(s.items, item)
	return item
}

// UpdateQuantity sets a line's quantity, clamped to [1, closingQty] by the
// caller-supplied ceiling; pass 0 when the variant reports none.
func (s *Store) UpdateQuantity(variantID string, qty, closingQty int) (domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].VariantID == variantID {
			s.items[i].Quantity = domain.ClampQuantity(qty, closingQty)
			return s.items[i], nil
		}
	}
	return domain.CartItem{}, ErrItemNotFound
}

// RemoveItem drops a line from the cart.
func (s *Store) RemoveItem(variantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].VariantID == variantID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// Items returns a copy of every line.
func (s *Store) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// AvailableItems returns the lines the active depot can serve.
func (s *Store) AvailableItems() []domain.CartItem {
	return s.filter(true)
}

// UnavailableItems returns the lines the active depot cannot serve.
func (s *Store) UnavailableItems() []domain.CartItem {
	return s.filter(false)
}

func (s *Store) filter(available bool) []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CartItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Available == available {
			out = append(out, item)
		}
	}
	return out
}

// Subtotal sums every line, available or not.
func (s *Store) Subtotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for _, item := range s.items {
		total += item.LineTotal()
	}
	return total
}

// AvailableSubtotal sums only the lines the active depot can serve.
func (s *Store) AvailableSubtotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for _, item := range s.items {
		if item.Available {
			total += item.LineTotal()
		}
	}
	return total
}

// revalidate hands the consistency engine the line set under the write lock
// and installs whatever it returns. Mutations racing a revalidation pass land
// before or after it, never inside it.
func (s *Store) revalidate(classify func(items []domain.CartItem) []domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = classify(s.items)
}
