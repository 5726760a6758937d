// Package ton holds the wallet-address rules for payouts.
package ton

import (
	"regexp"
	"strings"
)

const (
	MinAddressLength = 40
	MaxAddressLength = 100
)

var addressCharset = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// ValidateAddress checks the payout address shape: 40 to 100 characters
// of the base64url alphabet. No checksum is verified.
func ValidateAddress(address string) bool {
	if len(address) < MinAddressLength || len(address) > MaxAddressLength {
		return false
	}
	return addressCharset.MatchString(address)
}

// NormalizeAddress trims whitespace around a pasted address.
func NormalizeAddress(address string) string {
	return strings.TrimSpace(address)
}
