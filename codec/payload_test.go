package codec

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RozoAI/rozo-intents/models"
)

func testBytes32(fill byte) models.Bytes32 {
	var b models.Bytes32
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestEncodeDecodePayload(t *testing.T) {
	p := &NotifyPayload{
		IntentID:         testBytes32(0x11),
		FillHash:         testBytes32(0x22),
		RepaymentAddress: testBytes32(0x33),
		Relayer:          testBytes32(0x44),
		Amount:           big.NewInt(1_000_000),
	}

	raw, err := EncodePayload(p)
	require.NoError(t, err)
	require.Len(t, raw, PayloadLength)

	decoded, err := DecodePayload(raw)
	require.NoError(t, err)

	assert.Equal(t, p.IntentID, decoded.IntentID)
	assert.Equal(t, p.FillHash, decoded.FillHash)
	assert.Equal(t, p.RepaymentAddress, decoded.RepaymentAddress)
	assert.Equal(t, p.Relayer, decoded.Relayer)
	assert.Zero(t, p.Amount.Cmp(decoded.Amount))
}

func TestEncodePayloadFieldOffsets(t *testing.T) {
	p := &NotifyPayload{
		IntentID: testBytes32(0xAA),
		Amount:   big.NewInt(1),
	}

	raw, err := EncodePayload(p)
	require.NoError(t, err)

	// First slot carries the intent id, last byte carries the amount.
	assert.Equal(t, byte(0xAA), raw[0])
	assert.Equal(t, byte(0xAA), raw[31])
	assert.Equal(t, byte(0x00), raw[32])
	assert.Equal(t, byte(0x01), raw[159])

	// The first 16 bytes of the amount slot stay zero.
	for i := 128; i < 144; i++ {
		assert.Equal(t, byte(0x00), raw[i])
	}
}

func TestDecodePayloadRejectsWrongLength(t *testing.T) {
	for _, size := range []int{0, 1, 159, 161, 320} {
		_, err := DecodePayload(make([]byte, size))
		assert.True(t, errors.Is(err, ErrInvalidPayload), "size %d should be rejected", size)
	}
}

func TestEncodePayloadNegativeAmount(t *testing.T) {
	p := &NotifyPayload{Amount: big.NewInt(-42)}

	raw, err := EncodePayload(p)
	require.NoError(t, err)

	decoded, err := DecodePayload(raw)
	require.NoError(t, err)
	assert.Zero(t, decoded.Amount.Cmp(big.NewInt(-42)))
}

func TestEncodePayloadAmountBounds(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))

	for _, v := range []*big.Int{max, min, big.NewInt(0)} {
		raw, err := EncodePayload(&NotifyPayload{Amount: v})
		require.NoError(t, err)

		decoded, err := DecodePayload(raw)
		require.NoError(t, err)
		assert.Zero(t, decoded.Amount.Cmp(v))
	}

	over := new(big.Int).Add(max, big.NewInt(1))
	_, err := EncodePayload(&NotifyPayload{Amount: over})
	assert.True(t, errors.Is(err, ErrAmountOverflow))

	under := new(big.Int).Sub(min, big.NewInt(1))
	_, err = EncodePayload(&NotifyPayload{Amount: under})
	assert.True(t, errors.Is(err, ErrAmountOverflow))
}

func TestEncodePayloadNilAmount(t *testing.T) {
	raw, err := EncodePayload(&NotifyPayload{})
	require.NoError(t, err)

	decoded, err := DecodePayload(raw)
	require.NoError(t, err)
	assert.Zero(t, decoded.Amount.Sign())
}
