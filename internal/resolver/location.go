// Package resolver turns shopper input (coordinates or a typed pincode) into a
// persisted delivery location and a serving depot.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SanmishaTech/snf-sub001/internal/backend"
	"github.com/SanmishaTech/snf-sub001/internal/domain"
	"github.com/SanmishaTech/snf-sub001/internal/locationstore"
)

var pincodeRe = regexp.MustCompile(`^\d{6}$`)

// Geolocator is the platform positioning capability.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (domain.Coordinates, error)
}

// Directory is the slice of the backend the resolvers need.
type Directory interface {
	LookupPincode(ctx context.Context, pincode string) (*backend.ServiceArea, error)
	ReverseGeocode(ctx context.Context, coords domain.Coordinates) (string, error)
}

// LocationResolver writes every successful resolution through the location
// store, which persists it and broadcasts the change.
type LocationResolver struct {
	locator   Geolocator
	directory Directory
	store     locationstore.Store
}

func NewLocationResolver(locator Geolocator, directory Directory, store locationstore.Store) *LocationResolver {
	return &LocationResolver{
		locator:   locator,
		directory: directory,
		store:     store,
	}
}

// ResolveByGeolocation asks the positioning capability for coordinates,
// reverse-resolves them to a pincode and persists the result.
func (r *LocationResolver) ResolveByGeolocation(ctx context.Context) (*domain.DeliveryLocation, error) {
	coords, err := r.locator.CurrentPosition(ctx)
	if err != nil {
		return nil, err
	}

	pincode, err := r.directory.ReverseGeocode(ctx, coords)
	if err != nil {
		return nil, err
	}
	if !pincodeRe.MatchString(pincode) {
		return nil, domain.NewError(domain.ErrPositionUnavailable,
			fmt.Sprintf("geocoder returned unusable pincode %q", pincode))
	}

	return r.resolve(ctx, pincode, domain.SourceGeolocation)
}

// ResolveByPincode validates the pincode before any network call; malformed
// input fails fast with INVALID_PINCODE and zero round trips.
func (r *LocationResolver) ResolveByPincode(ctx context.Context, pincode string) (*domain.DeliveryLocation, error) {
	if !pincodeRe.MatchString(pincode) {
		return nil, domain.NewError(domain.ErrInvalidPincode, "pincode must be exactly 6 digits")
	}
	return r.resolve(ctx, pincode, domain.SourceManual)
}

func (r *LocationResolver) resolve(ctx context.Context, pincode string, source domain.LocationSource) (*domain.DeliveryLocation, error) {
	area, err := r.directory.LookupPincode(ctx, pincode)
	if err != nil {
		return nil, err
	}

	loc := &domain.DeliveryLocation{
		Pincode:    pincode,
		AreaName:   area.AreaName,
		DepotID:    area.DepotID,
		DepotName:  area.DepotName,
		Source:     source,
		ResolvedAt: time.Now(),
	}

	if err := r.store.Put(ctx, loc); err != nil {
		return nil, err
	}

	log.Info().
		Str("pincode", pincode).
		Str("depot_id", area.DepotID).
		Str("source", string(source)).
		Msg("delivery location resolved")
	return loc, nil
}

// CurrentLocation reads the persisted location; nil means none is set.
func (r *LocationResolver) CurrentLocation(ctx context.Context) (*domain.DeliveryLocation, error) {
	loc, err := r.store.Get(ctx)
	if errors.Is(err, locationstore.ErrNoLocation) {
		return nil, nil
	}
	return loc, err
}

// ClearLocation removes the persisted location.
func (r *LocationResolver) ClearLocation(ctx context.Context) error {
	return r.store.Clear(ctx)
}
