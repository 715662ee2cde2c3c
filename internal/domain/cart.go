package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CartLine is one (color, size, quantity) selection within an order. UnitPrice
// travels with the line on the wire but totals are never computed from it; the
// validator only checks it against the catalog.
type CartLine struct {
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"pricePerUnit"`
}

// Cart is the ordered, non-empty sequence of lines a customer intends to buy.
// It is ephemeral: carts exist only for the duration of a request or a
// payment-intent lifecycle.
type Cart []CartLine

// EncodeItems serialises the cart to the JSON text stored in payment-intent
// metadata and in the persisted order's items column.
func EncodeItems(cart Cart) (string, error) {
	if len(cart) == 0 {
		return "", errors.New("cart is empty")
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return "", fmt.Errorf("encode cart items: %w", err)
	}
	return string(data), nil
}

// DecodeItems reconstructs a cart from its serialised form. The result
// round-trips exactly with EncodeItems.
func DecodeItems(items string) (Cart, error) {
	var cart Cart
	if err := json.Unmarshal([]byte(items), &cart); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	if len(cart) == 0 {
		return nil, errors.New("cart is empty")
	}
	return cart, nil
}
