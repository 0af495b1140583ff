package domain

// UnavailableReasonDepot is stamped on cart lines the active depot cannot serve.
const UnavailableReasonDepot = "not available in this depot"

// MaxLineQuantity caps a line when the variant reports no closing quantity.
const MaxLineQuantity = 99

// CartItem is one cart line. While Available is true its DepotID must equal the
// active depot id; invalidated lines keep their original depot and variant ids
// as a historical record.
type CartItem struct {
	VariantID         string  `json:"variant_id"`
	ProductID         string  `json:"product_id"`
	DepotID           string  `json:"depot_id"`
	Name              string  `json:"name"`
	VariantName       string  `json:"variant_name"`
	Price             float64 `json:"price"`
	Quantity          int     `json:"quantity"`
	Available         bool    `json:"available"`
	UnavailableReason string  `json:"unavailable_reason,omitempty"`
}

// LineTotal is the line's contribution to the cart subtotal.
func (i CartItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// ClampQuantity bounds qty to [1, closingQty] when the variant reports a
// positive closing quantity, and to [1, MaxLineQuantity] otherwise.
func ClampQuantity(qty, closingQty int) int {
	ceiling := MaxLineQuantity
	if closingQty > 0 {
		ceiling = closingQty
	}
	if qty < 1 {
		return 1
	}
	if qty > ceiling {
		return ceiling
	}
	return qty
}
