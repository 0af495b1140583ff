// Package http exposes the pricing engine to the presentation layer.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SanmishaTech/snf-sub001/internal/cart"
	"github.com/SanmishaTech/snf-sub001/internal/catalog"
	"github.com/SanmishaTech/snf-sub001/internal/domain"
	"github.com/SanmishaTech/snf-sub001/internal/pricing"
)

type Handler struct {
	engine *pricing.Context
}

func NewHandler(engine *pricing.Context) *Handler {
	return &Handler{engine: engine}
}

// Routes mounts the engine API.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/state", h.GetState)

	r.Route("/location", func(r chi.Router) {
		r.Get("/", h.GetLocation)
		r.Delete("/", h.ClearLocation)
		r.Post("/pincode", h.ResolvePincode)
		r.Post("/geolocate", h.ResolveGeolocation)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/refresh", h.RefreshPrices)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{variantID}", h.UpdateQuantity)
		r.Delete("/items/{variantID}", h.RemoveItem)
		r.Post("/validate", h.ValidateCart)
	})
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.State())
}

func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	state := h.engine.State()
	if state.Location == nil {
		// Not an error in the taxonomy, just an empty slot.
		respondJSON(w, http.StatusNotFound, map[string]string{"message": "no delivery location set"})
		return
	}
	respondJSON(w, http.StatusOK, state.Location)
}

func (h *Handler) ClearLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearLocation(r.Context()); err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type pincodeRequest struct {
	Pincode string `json:"pincode"`
}

func (h *Handler) ResolvePincode(w http.ResponseWriter, r *http.Request) {
	var req pincodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, domain.NewError(domain.ErrInvalidPincode, "invalid request body"))
		return
	}

	loc, err := h.engine.ResolvePincode(r.Context(), strings.TrimSpace(req.Pincode))
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

func (h *Handler) ResolveGeolocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.engine.ResolveGeolocation(r.Context())
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	state := h.engine.State()
	if state.Error != nil && len(state.Products) == 0 {
		// Initial load failed; product display is blocked by the error state.
		handleEngineError(w, state.Error)
		return
	}

	products := state.Products
	products = catalog.Search(products, r.URL.Query().Get("search"))
	if categories := r.URL.Query().Get("categories"); categories != "" {
		products = catalog.FilterByCategory(products, strings.Split(categories, ","))
	}
	if sortKey := r.URL.Query().Get("sort"); sortKey != "" {
		products = catalog.SortBy(products, catalog.SortKey(sortKey))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"products":          products,
		"last_refresh_time": state.LastRefreshTime,
		"refresh_error":     state.RefreshError,
	})
}

func (h *Handler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	h.engine.RefreshPrices(r.Context())
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "refresh triggered"})
}

type cartResponse struct {
	Items             []domain.CartItem `json:"items"`
	AvailableItems    []domain.CartItem `json:"available_items"`
	UnavailableItems  []domain.CartItem `json:"unavailable_items"`
	Subtotal          float64           `json:"subtotal"`
	AvailableSubtotal float64           `json:"available_subtotal"`
}

func (h *Handler) cartState() cartResponse {
	c := h.engine.Cart()
	return cartResponse{
		Items:             c.Items(),
		AvailableItems:    c.AvailableItems(),
		UnavailableItems:  c.UnavailableItems(),
		Subtotal:          c.Subtotal(),
		AvailableSubtotal: c.AvailableSubtotal(),
	}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cartState())
}

type addItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, domain.NewError(domain.ErrAPIError, "invalid request body"))
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, domain.NewError(domain.ErrAPIError, "quantity must be at least 1"))
		return
	}
	if h.engine.ActiveDepot() == nil {
		respondError(w, http.StatusConflict, domain.NewError(domain.ErrDepotNotFound, "resolve a delivery location first"))
		return
	}

	// Only variants from the active depot's displayed catalog can enter the
	// cart; that is what keeps every available line stamped with the active
	// depot id.
	product, variant, ok := h.engine.ResidentProduct(req.VariantID)
	if !ok {
		respondError(w, http.StatusNotFound, domain.NewError(domain.ErrAPIError, "variant not in the active catalog"))
		return
	}
	if !variant.Purchasable() {
		respondError(w, http.StatusConflict, domain.NewError(domain.ErrAPIError, "variant is not purchasable"))
		return
	}

	h.engine.Cart().AddItem(product, variant, req.Quantity)
	respondJSON(w, http.StatusCreated, h.cartState())
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantID")

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, domain.NewError(domain.ErrAPIError, "invalid request body"))
		return
	}

	closingQty := 0
	if _, variant, ok := h.engine.ResidentProduct(variantID); ok {
		closingQty = variant.ClosingQty
	}

	if _, err := h.engine.Cart().UpdateQuantity(variantID, req.Quantity, closingQty); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			respondError(w, http.StatusNotFound, domain.NewError(domain.ErrAPIError, "item not in cart"))
			return
		}
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.cartState())
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantID")
	if err := h.engine.Cart().RemoveItem(variantID); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			respondError(w, http.StatusNotFound, domain.NewError(domain.ErrAPIError, "item not in cart"))
			return
		}
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.cartState())
}

type validateCartRequest struct {
	DepotID string `json:"depot_id"`
}

func (h *Handler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	var req validateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, domain.NewError(domain.ErrAPIError, "invalid request body"))
		return
	}
	if req.DepotID == "" {
		respondError(w, http.StatusBadRequest, domain.NewError(domain.ErrAPIError, "depot_id is required"))
		return
	}

	if err := h.engine.ValidateCart(r.Context(), req.DepotID); err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.cartState())
}
