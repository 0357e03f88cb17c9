package codec

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/RozoAI/rozo-intents/models"
)

const (
	// PayloadLength is the exact wire size of a fill notification: five
	// 32-byte fields.
	PayloadLength = 160

	// fieldSize is the width of each payload slot.
	fieldSize = 32

	// amountBytes is the width of the i128 amount inside its 32-byte slot.
	amountBytes = 16
)

var (
	// ErrInvalidPayload indicates a notify payload whose length is not
	// exactly PayloadLength. Partial decoding is never attempted.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrAmountOverflow indicates an amount outside the signed 128-bit range.
	ErrAmountOverflow = errors.New("amount exceeds 128 bits")

	int128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	int128Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// NotifyPayload is the decoded form of the 160-byte fill notification sent
// from the destination chain back to the source chain.
type NotifyPayload struct {
	IntentID         models.Bytes32
	FillHash         models.Bytes32
	RepaymentAddress models.Bytes32
	Relayer          models.Bytes32
	Amount           *big.Int
}

// EncodePayload serializes a fill notification into exactly 160 bytes:
// intent_id, fill_hash, repayment_address, relayer, then the amount as an
// i128 right-aligned big-endian in the final 32-byte slot.
func EncodePayload(p *NotifyPayload) ([]byte, error) {
	amount, err := encodeInt128(p.Amount)
	if err != nil {
		return nil, err
	}

	out := make([]byte, PayloadLength)
	copy(out[0:32], p.IntentID[:])
	copy(out[32:64], p.FillHash[:])
	copy(out[64:96], p.RepaymentAddress[:])
	copy(out[96:128], p.Relayer[:])
	copy(out[128+fieldSize-amountBytes:160], amount)
	return out, nil
}

// DecodePayload parses a fill notification. Any buffer whose length differs
// from PayloadLength is rejected outright.
func DecodePayload(raw []byte) (*NotifyPayload, error) {
	if len(raw) != PayloadLength {
		return nil, errors.Wrapf(ErrInvalidPayload, "expected %d bytes, got %d", PayloadLength, len(raw))
	}

	p := &NotifyPayload{}
	copy(p.IntentID[:], raw[0:32])
	copy(p.FillHash[:], raw[32:64])
	copy(p.RepaymentAddress[:], raw[64:96])
	copy(p.Relayer[:], raw[96:128])
	p.Amount = decodeInt128(raw[128+fieldSize-amountBytes : 160])
	return p, nil
}

// encodeInt128 renders a signed amount as 16 big-endian two's-complement
// bytes, rejecting values outside the i128 range.
func encodeInt128(v *big.Int) ([]byte, error) {
	if v == nil {
		v = big.NewInt(0)
	}
	if v.Cmp(int128Max) > 0 || v.Cmp(int128Min) < 0 {
		return nil, errors.Wrapf(ErrAmountOverflow, "value %s", v.String())
	}

	out := make([]byte, amountBytes)
	if v.Sign() >= 0 {
		v.FillBytes(out)
		return out, nil
	}

	// Two's complement: 2^128 + v for negative values.
	twos := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 128), v)
	twos.FillBytes(out)
	return out, nil
}

// decodeInt128 interprets 16 big-endian bytes as a signed 128-bit value.
func decodeInt128(raw []byte) *big.Int {
	v := new(big.Int).SetBytes(raw)
	if len(raw) == amountBytes && raw[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return v
}
