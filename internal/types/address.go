package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address
func IsValidAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// NormalizeAddress lowercases and trims an address for use as a storage key
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ShortenAddress shortens an address to the form 0x28...bcad.
// Addresses shorter than start+end are returned unchanged.
func ShortenAddress(address string, start, end int) string {
	if address == "" || len(address) < start+end {
		return address
	}
	return fmt.Sprintf("%s...%s", address[:start], address[len(address)-end:])
}

// EtherscanURL returns the explorer page for an address on the given network
func EtherscanURL(address, network string) string {
	base := "https://etherscan.io"
	if network != "" && network != "mainnet" {
		base = fmt.Sprintf("https://%s.etherscan.io", network)
	}
	return fmt.Sprintf("%s/address/%s", base, address)
}
