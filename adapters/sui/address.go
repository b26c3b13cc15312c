package sui

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/dealguard/core"
)

// AddressLength is the size of a Sui address in bytes
const AddressLength = 32

// NormalizeAddress lowercases and left-pads an address to 32 bytes
func NormalizeAddress(addr string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(addr))
	s = strings.TrimPrefix(s, "0x")
	if s == "" || len(s) > AddressLength*2 {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidAddress, addr)
	}
	s = "0x" + strings.Repeat("0", AddressLength*2-len(s)) + s

	if _, err := hexutil.Decode(s); err != nil {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidAddress, addr)
	}
	return s, nil
}

// IsValidAddress reports whether addr normalizes to a Sui address
func IsValidAddress(addr string) bool {
	_, err := NormalizeAddress(addr)
	return err == nil
}
