package locationstore

import (
	"context"
	"errors"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

// ErrNoLocation means no delivery location has been persisted yet.
var ErrNoLocation = errors.New("no delivery location set")

// ChangeEvent describes one replacement of the persisted location record.
// New is nil when the location was cleared.
type ChangeEvent struct {
	Old *domain.DeliveryLocation `json:"old"`
	New *domain.DeliveryLocation `json:"new"`
}

// Store owns the single persisted delivery location. Writes are last-writer-wins
// and every write is broadcast to subscribers in other instances sharing the
// same backing store; an instance never receives its own writes back.
type Store interface {
	Get(ctx context.Context) (*domain.DeliveryLocation, error)
	Put(ctx context.Context, loc *domain.DeliveryLocation) error
	Clear(ctx context.Context) error
	Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error)
}
