// Package textutil normalises the string maps the storefront sends to and
// reads back from payment-intent metadata.
package textutil

import "strings"

// Stripe rejects metadata keys over 40 characters and values over 500
// characters, and the serialized cart must survive the round trip byte for
// byte, so values are never truncated here.
const (
	MaxMetadataKeyLen   = 40
	MaxMetadataValueLen = 500
)

// NormalizeMetadata trims keys and values and drops entries the processor
// would reject outright: empty keys and keys over MaxMetadataKeyLen.
func NormalizeMetadata(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for key, value := range values {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || len(trimmedKey) > MaxMetadataKeyLen {
			continue
		}
		result[trimmedKey] = strings.TrimSpace(value)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// OversizedValues reports the keys whose values exceed MaxMetadataValueLen.
// Callers surface these as errors instead of truncating, since a clipped
// items value would silently corrupt the cart snapshot.
func OversizedValues(values map[string]string) []string {
	var keys []string
	for key, value := range values {
		if len(value) > MaxMetadataValueLen {
			keys = append(keys, key)
		}
	}
	return keys
}
