package domain

// DepotVariant is a sellable variant scoped to exactly one depot. The same
// logical product carries a different variant id in every depot that stocks it.
type DepotVariant struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	DepotID      string  `json:"depot_id"`
	Name         string  `json:"name"`
	MRP          float64 `json:"mrp"`
	BuyOncePrice float64 `json:"buy_once_price"`
	ClosingQty   int     `json:"closing_qty"`
	NotInStock   bool    `json:"not_in_stock"`
	IsHidden     bool    `json:"is_hidden"`
}

// Purchasable reports whether the variant can be added to a cart.
func (v DepotVariant) Purchasable() bool {
	return !v.IsHidden && !v.NotInStock
}

// EffectivePrice is the price a shopper pays for one unit: the buy-once price
// when set, the MRP otherwise.
func (v DepotVariant) EffectivePrice() float64 {
	if v.BuyOncePrice > 0 {
		return v.BuyOncePrice
	}
	return v.MRP
}

// Product is the depot-independent part of a catalog entry.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	CategoryID    string `json:"category_id,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

// ProductWithPricing pairs a product with its variants in the active depot.
type ProductWithPricing struct {
	Product   Product        `json:"product"`
	Variants  []DepotVariant `json:"variants"`
	BestPrice float64        `json:"best_price"`
}

// ComputeBestPrice returns the minimum effective price over purchasable
// variants, or 0 when none is purchasable.
func ComputeBestPrice(variants []DepotVariant) float64 {
	best := 0.0
	for _, v := range variants {
		if !v.Purchasable() {
			continue
		}
		price := v.EffectivePrice()
		if best == 0 || price < best {
			best = price
		}
	}
	return best
}

// CheapestPurchasableVariant returns the purchasable variant with the lowest
// effective price, or false when the product has none.
func CheapestPurchasableVariant(variants []DepotVariant) (DepotVariant, bool) {
	var best DepotVariant
	found := false
	for _, v := range variants {
		if !v.Purchasable() {
			continue
		}
		if !found || v.EffectivePrice() < best.EffectivePrice() {
			best = v
			found = true
		}
	}
	return best, found
}
