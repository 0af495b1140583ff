package domain

import "time"

// LocationSource says how a delivery location was resolved.
type LocationSource string

const (
	SourceGeolocation LocationSource = "geolocation"
	SourceManual      LocationSource = "manual"
)

// DeliveryLocation is the shopper's resolved delivery point. It is immutable:
// re-resolution replaces the whole record, it is never patched in place.
type DeliveryLocation struct {
	Pincode    string         `json:"pincode"`
	AreaName   string         `json:"area_name,omitempty"`
	DepotID    string         `json:"depot_id,omitempty"`
	DepotName  string         `json:"depot_name,omitempty"`
	Source     LocationSource `json:"source"`
	ResolvedAt time.Time      `json:"resolved_at"`
}

// Depot is a read-only projection of the serving depot.
type Depot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsOnline bool   `json:"is_online"`
}

// ServiceAvailability is derived per (depot, location) pair and recomputed
// whenever either changes. It is never cached across depot changes.
type ServiceAvailability struct {
	IsAvailable           bool    `json:"is_available"`
	EstimatedDeliveryTime string  `json:"estimated_delivery_time,omitempty"`
	DeliveryCharges       float64 `json:"delivery_charges,omitempty"`
	MinimumOrderAmount    float64 `json:"minimum_order_amount,omitempty"`
	Message               string  `json:"message,omitempty"`
}

// Coordinates as reported by the positioning capability.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
