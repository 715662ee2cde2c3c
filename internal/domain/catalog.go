package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

const (
	minLineQuantity = 1
	maxLineQuantity = 10
	minPhoneDigits  = 10
)

// Catalog is the immutable product configuration injected into the pricer and
// the cart validator. The storefront sells a single product, so the catalog is
// one unit price plus the permitted color and size values.
type Catalog struct {
	UnitPrice int64
	Colors    []string
	Sizes     []string
}

// DefaultCatalog returns the production hoodie catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		UnitPrice: 65,
		Colors:    []string{"black", "red", "navy-blue", "dark-grey", "sapphire-blue", "purple"},
		Sizes:     []string{"youth-medium", "youth-large", "medium", "large", "xl", "xxl", "xxxl"},
	}
}

// ValidationError reports the first invalid field encountered while checking
// client-supplied input. It is always caused by the client.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ValidateCart checks cart structure and bounds against the catalog: the cart
// must be non-empty, every line must reference a known color and size, carry a
// quantity within bounds, and declare the catalog unit price. Validation stops
// at the first violation.
func (c Catalog) ValidateCart(cart Cart) error {
	if len(cart) == 0 {
		return ValidationError{Field: "items", Reason: "cart cannot be empty"}
	}
	for i, line := range cart {
		if !containsValue(c.Colors, line.Color) {
			return ValidationError{
				Field:  fmt.Sprintf("items[%d].color", i),
				Reason: fmt.Sprintf("unknown color %q", line.Color),
			}
		}
		if !containsValue(c.Sizes, line.Size) {
			return ValidationError{
				Field:  fmt.Sprintf("items[%d].size", i),
				Reason: fmt.Sprintf("unknown size %q", line.Size),
			}
		}
		if line.Quantity < minLineQuantity || line.Quantity > maxLineQuantity {
			return ValidationError{
				Field:  fmt.Sprintf("items[%d].quantity", i),
				Reason: fmt.Sprintf("quantity must be between %d and %d", minLineQuantity, maxLineQuantity),
			}
		}
		if line.UnitPrice != c.UnitPrice {
			return ValidationError{
				Field:  fmt.Sprintf("items[%d].pricePerUnit", i),
				Reason: fmt.Sprintf("unit price must be %d", c.UnitPrice),
			}
		}
	}
	return nil
}

// ValidateCustomer checks the contact fields supplied with an order: non-empty
// names, an RFC-shaped email address, and a phone number carrying at least ten
// digits.
func ValidateCustomer(customer CustomerInfo) error {
	if strings.TrimSpace(customer.FirstName) == "" {
		return ValidationError{Field: "firstName", Reason: "first name is required"}
	}
	if strings.TrimSpace(customer.LastName) == "" {
		return ValidationError{Field: "lastName", Reason: "last name is required"}
	}
	email := strings.TrimSpace(customer.Email)
	if email == "" {
		return ValidationError{Field: "email", Reason: "email is required"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return ValidationError{Field: "email", Reason: "email address is not valid"}
	}
	if digitCount(customer.Phone) < minPhoneDigits {
		return ValidationError{Field: "phone", Reason: "phone number must contain at least 10 digits"}
	}
	return nil
}

func containsValue(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func digitCount(value string) int {
	count := 0
	for _, r := range value {
		if unicode.IsDigit(r) {
			count++
		}
	}
	return count
}
