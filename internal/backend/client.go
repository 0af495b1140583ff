// Package backend talks to the geocoding/depot-lookup/catalog collaborators.
// All failures leave this package as *domain.PricingError so callers dispatch
// on one tagged shape.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/SanmishaTech/snf-sub001/internal/domain"
)

// ServiceArea is the backend's answer to "which depot serves this pincode".
type ServiceArea struct {
	Pincode               string  `json:"pincode"`
	AreaName              string  `json:"area_name"`
	DepotID               string  `json:"depot_id"`
	DepotName             string  `json:"depot_name"`
	IsOnline              bool    `json:"is_online"`
	DeliveryCharges       float64 `json:"delivery_charges"`
	MinimumOrderAmount    float64 `json:"minimum_order_amount"`
	EstimatedDeliveryTime string  `json:"estimated_delivery_time"`
	Message               string  `json:"message"`
}

// CatalogEntry is one product with its variants in a single depot.
type CatalogEntry struct {
	Product  domain.Product        `json:"product"`
	Variants []domain.DepotVariant `json:"variants"`
}

// Client is the HTTP collaborator client. Calls run behind a circuit breaker
// so a dead backend trips fast instead of tying up every request in timeouts.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "pricing-backend",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
	}
}

// LookupPincode resolves the depot assigned to a pincode. An unserved pincode
// comes back as DEPOT_NOT_FOUND.
func (c *Client) LookupPincode(ctx context.Context, pincode string) (*ServiceArea, error) {
	var area ServiceArea
	err := c.getJSON(ctx, "/api/public/service-areas/"+url.PathEscape(pincode), &area)
	if err != nil {
		if domain.IsErrorType(err, domain.ErrDepotNotFound) {
			return nil, domain.NewError(domain.ErrDepotNotFound, fmt.Sprintf("no depot serves pincode %s", pincode))
		}
		return nil, err
	}
	return &area, nil
}

// ReverseGeocode maps coordinates to a pincode.
func (c *Client) ReverseGeocode(ctx context.Context, coords domain.Coordinates) (string, error) {
	path := fmt.Sprintf("/api/public/geocode/reverse?lat=%f&lng=%f", coords.Latitude, coords.Longitude)
	var resp struct {
		Pincode string `json:"pincode"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return "", err
	}
	return resp.Pincode, nil
}

// ListCatalog fetches the full product/variant set for one depot. An empty
// list is a valid answer, not a failure.
func (c *Client) ListCatalog(ctx context.Context, depotID string) ([]CatalogEntry, error) {
	var resp struct {
		Products []CatalogEntry `json:"products"`
	}
	if err := c.getJSON(ctx, "/api/public/depots/"+url.PathEscape(depotID)+"/catalog", &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path)
	})
	if err != nil {
		return classify(err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewError(domain.ErrAPIError, fmt.Sprintf("malformed response: %v", err))
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrAPIError, err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewError(domain.ErrDepotNotFound, "not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewError(domain.ErrAPIError, fmt.Sprintf("backend returned %d", resp.StatusCode))
	}
	return body, nil
}

// transportError maps an http.Client failure to the error taxonomy.
func transportError(err error) *domain.PricingError {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.ErrTimeout, "backend call timed out")
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return domain.NewError(domain.ErrTimeout, "backend call timed out")
	}
	return domain.NewError(domain.ErrNetworkError, err.Error())
}

// classify folds breaker rejections in with transport failures; anything that
// already carries a tag passes through untouched.
func classify(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewError(domain.ErrNetworkError, "backend circuit open")
	}
	var pe *domain.PricingError
	if errors.As(err, &pe) {
		return pe
	}
	return domain.NewError(domain.ErrNetworkError, err.Error())
}
