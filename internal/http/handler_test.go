package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanmishaTech/snf-sub001/internal/backend"
	"github.com/SanmishaTech/snf-sub001/internal/catalog"
	"github.com/SanmishaTech/snf-sub001/internal/domain"
	"github.com/SanmishaTech/snf-sub001/internal/locationstore"
	"github.com/SanmishaTech/snf-sub001/internal/pricing"
	"github.com/SanmishaTech/snf-sub001/internal/resolver"
)

type directoryMock struct {
	areas map[string]*backend.ServiceArea
}

func (d *directoryMock) LookupPincode(_ context.Context, pincode string) (*backend.ServiceArea, error) {
	area, ok := d.areas[pincode]
	if !ok {
		return nil, domain.NewError(domain.ErrDepotNotFound, "no depot")
	}
	return area, nil
}

func (d *directoryMock) ReverseGeocode(context.Context, domain.Coordinates) (string, error) {
	return "411038", nil
}

type locatorMock struct{ err error }

func (l locatorMock) CurrentPosition(context.Context) (domain.Coordinates, error) {
	if l.err != nil {
		return domain.Coordinates{}, l.err
	}
	return domain.Coordinates{Latitude: 18.5, Longitude: 73.8}, nil
}

type fetcherMock struct {
	byDepot map[string][]backend.CatalogEntry
}

func (f *fetcherMock) ListCatalog(_ context.Context, depotID string) ([]backend.CatalogEntry, error) {
	return f.byDepot[depotID], nil
}

type storeMock struct {
	m   sync.Mutex
	loc *domain.DeliveryLocation
}

func (s *storeMock) Get(context.Context) (*domain.DeliveryLocation, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.loc == nil {
		return nil, locationstore.ErrNoLocation
	}
	return s.loc, nil
}

func (s *storeMock) Put(_ context.Context, loc *domain.DeliveryLocation) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.loc = loc
	return nil
}

func (s *storeMock) Clear(context.Context) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.loc = nil
	return nil
}

func (s *storeMock) Subscribe(context.Context) (<-chan locationstore.ChangeEvent, func(), error) {
	return make(chan locationstore.ChangeEvent), func() {}, nil
}

func testRouter(t *testing.T, locator resolver.Geolocator) (*chi.Mux, *pricing.Context) {
	t.Helper()

	dir := &directoryMock{areas: map[string]*backend.ServiceArea{
		"411038": {Pincode: "411038", AreaName: "Kothrud", DepotID: "A", DepotName: "Kothrud Depot", IsOnline: true},
	}}
	fetcher := &fetcherMock{byDepot: map[string][]backend.CatalogEntry{
		"A": {
			{
				Product: domain.Product{ID: "7", Name: "A2 Milk", Description: "Fresh farm milk", CategoryID: "dairy"},
				Variants: []domain.DepotVariant{
					{ID: "101", ProductID: "7", DepotID: "A", Name: "500ml", MRP: 70, BuyOncePrice: 60, ClosingQty: 5},
				},
			},
			{
				Product: domain.Product{ID: "9", Name: "Ghee", CategoryID: "dairy"},
				Variants: []domain.DepotVariant{
					{ID: "150", ProductID: "9", DepotID: "A", Name: "1l", MRP: 450, ClosingQty: 2},
				},
			},
		},
	}}
	store := &storeMock{}

	engine := pricing.NewContext(
		resolver.NewLocationResolver(locator, dir, store),
		resolver.NewDepotResolver(dir),
		catalog.NewService(fetcher),
		store,
	)

	r := chi.NewRouter()
	r.Route("/api/v1", NewHandler(engine).Routes)
	return r, engine
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestResolvePincode_OK(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/location/pincode", pincodeRequest{Pincode: "411038"})
	require.Equal(t, http.StatusOK, rec.Code)

	var loc domain.DeliveryLocation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
	assert.Equal(t, "A", loc.DepotID)
	assert.Equal(t, domain.SourceManual, loc.Source)
}

func TestResolvePincode_Invalid(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/location/pincode", pincodeRequest{Pincode: "12ab"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrInvalidPincode, resp.Error.Type)
	assert.Equal(t, "Invalid pincode", resp.Title)
}

func TestResolvePincode_NotServed(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/location/pincode", pincodeRequest{Pincode: "560001"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrDepotNotFound, resp.Error.Type)
	assert.True(t, resp.Error.Recoverable)
}

func TestResolveGeolocation_PermissionDenied(t *testing.T) {
	router, _ := testRouter(t, locatorMock{err: domain.NewError(domain.ErrPermissionDenied, "denied")})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/location/geolocate", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrPermissionDenied, resp.Error.Type)
	assert.NotEmpty(t, resp.Description)
}

func TestListProducts_SearchAndSort(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})
	rec := doJSON(t, router, http.MethodPost, "/api/v1/location/pincode", pincodeRequest{Pincode: "411038"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/?search=milk", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Products []domain.ProductWithPricing `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "A2 Milk", resp.Products[0].Product.Name)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/?sort=price_desc", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "Ghee", resp.Products[0].Product.Name)
}

func TestCartFlow(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})
	rec := doJSON(t, router, http.MethodPost, "/api/v1/location/pincode", pincodeRequest{Pincode: "411038"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Add.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/cart/items", addItemRequest{VariantID: "101", Quantity: 3})
	require.Equal(t, http.StatusCreated, rec.Code)

	var cartResp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cartResp))
	require.Len(t, cartResp.Items, 1)
	assert.Equal(t, 180.0, cartResp.Subtotal)
	assert.Equal(t, cartResp.Subtotal, cartResp.AvailableSubtotal)

	// Update quantity, clamped by closing qty 5.
	rec = doJSON(t, router, http.MethodPut, "/api/v1/cart/items/101", updateQuantityRequest{Quantity: 9})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cartResp))
	assert.Equal(t, 5, cartResp.Items[0].Quantity)

	// Remove.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/cart/items/101", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cartResp))
	assert.Empty(t, cartResp.Items)
}

func TestAddItem_RequiresLocation(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", addItemRequest{VariantID: "101", Quantity: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddItem_UnknownVariant(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})
	doJSON(t, router, http.MethodPost, "/api/v1/location/pincode", pincodeRequest{Pincode: "411038"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", addItemRequest{VariantID: "999", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateCart_RequiresDepotID(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/validate", validateCartRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLocation_NoneSet(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/location/", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// An unset location is an empty slot, not a resolution failure; the body
	// must not carry a tagged error.
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "error")
	assert.Equal(t, "no delivery location set", body["message"])
}

func TestClearLocation(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})
	doJSON(t, router, http.MethodPost, "/api/v1/location/pincode", pincodeRequest{Pincode: "411038"})

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/location/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/location/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetState(t *testing.T) {
	router, _ := testRouter(t, locatorMock{})
	doJSON(t, router, http.MethodPost, "/api/v1/location/pincode", pincodeRequest{Pincode: "411038"})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state pricing.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.NotNil(t, state.Depot)
	assert.Equal(t, "A", state.Depot.ID)
	assert.False(t, state.IsLoading)
}
