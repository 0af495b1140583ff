package resolver

import (
	"context"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

// OfflineMessage is the fallback shown when a depot is offline and the
// directory supplied no message of its own.
const OfflineMessage = "delivery is temporarily paused in your area"

// DepotResolver maps a pincode to its serving depot and a service verdict.
type DepotResolver struct {
	directory Directory
}

func NewDepotResolver(directory Directory) *DepotResolver {
	return &DepotResolver{directory: directory}
}

// ResolveDepot looks up the depot assigned to the pincode. Availability is
// derived fresh on every call, never carried over from a previous depot.
func (r *DepotResolver) ResolveDepot(ctx context.Context, pincode string) (*domain.Depot, *domain.ServiceAvailability, error) {
	if !pincodeRe.MatchString(pincode) {
		return nil, nil, domain.NewError(domain.ErrInvalidPincode, "pincode must be exactly 6 digits")
	}

	area, err := r.directory.LookupPincode(ctx, pincode)
	if err != nil {
		return nil, nil, err
	}

	depot := &domain.Depot{
		ID:       area.DepotID,
		Name:     area.DepotName,
		IsOnline: area.IsOnline,
	}

	availability := &domain.ServiceAvailability{
		IsAvailable:           area.IsOnline,
		EstimatedDeliveryTime: area.EstimatedDeliveryTime,
		DeliveryCharges:       area.DeliveryCharges,
		MinimumOrderAmount:    area.MinimumOrderAmount,
		Message:               area.Message,
	}
	// An offline depot is unavailable no matter what the other fields say.
	if !area.IsOnline && availability.Message == "" {
		availability.Message = OfflineMessage
	}

	return depot, availability, nil
}
