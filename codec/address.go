// Package codec implements the byte-stable cross-chain protocol surface:
// the canonical address form, the fixed-width notify payload and the fill
// hash. Any change to field order or width here is a protocol version bump.
package codec

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"

	"github.com/RozoAI/rozo-intents/models"
)

// ErrInvalidAddress indicates a native address that cannot be mapped to the
// 32-byte canonical form.
var ErrInvalidAddress = errors.New("invalid address format")

// HexToBytes32 parses a 0x-prefixed 64-character hex string into a fixed
// 32-byte value.
func HexToBytes32(s string) (models.Bytes32, error) {
	var out models.Bytes32

	clean := strings.TrimPrefix(s, "0x")
	if len(clean) != 64 {
		return out, errors.Wrapf(ErrInvalidAddress, "expected 32 bytes, got %d hex chars", len(clean))
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return out, errors.Wrap(ErrInvalidAddress, err.Error())
	}

	copy(out[:], raw)
	return out, nil
}

// Bytes32Hex renders a 32-byte value as a 0x-prefixed hex string.
func Bytes32Hex(b models.Bytes32) string {
	return "0x" + hex.EncodeToString(b[:])
}

// AddressToCanonical converts a chain-native account identifier to its
// canonical 32-byte form. 20-byte addresses are left-padded with zeros;
// 32-byte identifiers pass through unchanged. The account/contract
// discriminant is not derivable from the bytes and travels alongside them.
func AddressToCanonical(address string, isAccount bool) (models.CanonicalAddress, error) {
	clean := strings.TrimPrefix(address, "0x")

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return models.CanonicalAddress{}, errors.Wrap(ErrInvalidAddress, err.Error())
	}

	var value models.Bytes32
	switch len(raw) {
	case 20:
		copy(value[12:], raw)
	case 32:
		copy(value[:], raw)
	default:
		return models.CanonicalAddress{}, errors.Wrapf(ErrInvalidAddress, "unsupported address length %d", len(raw))
	}

	return models.CanonicalAddress{Value: value, IsAccount: isAccount}, nil
}

// CanonicalToAddress reconstructs the native form of a canonical address.
// Values whose first 12 bytes are zero round-trip back to the short 20-byte
// form they were padded from.
func CanonicalToAddress(c models.CanonicalAddress) string {
	for _, b := range c.Value[:12] {
		if b != 0 {
			return "0x" + hex.EncodeToString(c.Value[:])
		}
	}
	return "0x" + hex.EncodeToString(c.Value[12:])
}
