package domain

// CartLineItem is one entry of a server-side cart. CartEntryID is the
// backend's own row id for the entry; ProductID addresses mutations.
type CartLineItem struct {
	CartEntryID int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url,omitempty"`

	// Syncing marks an optimistic quantity change whose backend call
	// has not resolved yet. UI feedback only, never sent on the wire.
	Syncing bool `json:"-"`
}

// CloneItems deep-copies a line-item slice. Rollback snapshots and
// checkout snapshots must not alias live store state.
func CloneItems(items []CartLineItem) []CartLineItem {
	if items == nil {
		return nil
	}
	out := make([]CartLineItem, len(items))
	copy(out, items)
	return out
}
