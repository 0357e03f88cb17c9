package codec

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/RozoAI/rozo-intents/models"
)

// hashedFieldsSize is the exact preimage length: seven 32-byte fields, two
// 16-byte amounts, four 8-byte integers.
const hashedFieldsSize = 7*32 + 2*16 + 4*8

// FillHash computes the keccak-256 digest binding a destination-side fill to
// exactly one source-side intent. Field order and widths are fixed protocol
// surface; both chains must produce identical preimages or verification
// fails silently everywhere.
func FillHash(d *models.IntentData) (models.Bytes32, error) {
	srcAmount, err := encodeInt128(d.SourceAmount)
	if err != nil {
		return models.Bytes32{}, err
	}
	dstAmount, err := encodeInt128(d.DestinationAmount)
	if err != nil {
		return models.Bytes32{}, err
	}

	buf := make([]byte, 0, hashedFieldsSize)
	buf = append(buf, d.IntentID[:]...)
	buf = append(buf, d.Sender[:]...)
	buf = append(buf, d.RefundAddress[:]...)
	buf = append(buf, d.SourceToken[:]...)
	buf = append(buf, srcAmount...)
	buf = binary.BigEndian.AppendUint64(buf, d.SourceChainID)
	buf = binary.BigEndian.AppendUint64(buf, d.DestinationChainID)
	buf = append(buf, d.DestinationToken[:]...)
	buf = append(buf, d.Receiver[:]...)
	buf = append(buf, dstAmount...)
	buf = binary.BigEndian.AppendUint64(buf, d.Deadline)
	buf = binary.BigEndian.AppendUint64(buf, d.CreatedAt)
	buf = append(buf, d.Relayer[:]...)

	var out models.Bytes32
	copy(out[:], crypto.Keccak256(buf))
	return out, nil
}
