package models

import (
	"math/big"
	"time"
)

// Bytes32 is a fixed 32-byte identifier used for intent IDs, fill hashes and
// canonical cross-chain addresses.
type Bytes32 = [32]byte

// ZeroBytes32 is the all-zero value. An intent whose relayer field equals
// ZeroBytes32 is open to any authorized relayer.
var ZeroBytes32 Bytes32

// IntentStatus represents the possible states of an intent
type IntentStatus string

const (
	// IntentStatusPending indicates the intent has been created and escrowed
	// but not yet finalized
	IntentStatusPending IntentStatus = "pending"

	// IntentStatusFilled indicates the fill was verified and the relayer paid
	IntentStatusFilled IntentStatus = "filled"

	// IntentStatusFailed indicates fill verification failed (hash mismatch or
	// underpayment); funds remain in escrow pending admin intervention
	IntentStatusFailed IntentStatus = "failed"

	// IntentStatusRefunded indicates the escrow was returned after the deadline
	IntentStatusRefunded IntentStatus = "refunded"
)

// Terminal reports whether the status admits no further normal-flow transition.
func (s IntentStatus) Terminal() bool {
	return s == IntentStatusFilled || s == IntentStatusFailed || s == IntentStatusRefunded
}

// RelayerType categorizes relayers for fill access control
type RelayerType string

const (
	// RelayerTypeNone marks an address that may not fill at all
	RelayerTypeNone RelayerType = "none"

	// RelayerTypeFallback marks the operator relayer allowed to fill an
	// assigned intent once the fallback threshold has elapsed
	RelayerTypeFallback RelayerType = "fallback"

	// RelayerTypeExternal marks a third-party relayer
	RelayerTypeExternal RelayerType = "external"
)

// CanonicalAddress is a chain-agnostic 32-byte address paired with the
// native-chain discriminant. The 32 bytes alone are not enough to reconstruct
// a native address, so the account flag travels with them at every boundary.
type CanonicalAddress struct {
	Value     Bytes32 `json:"value"`
	IsAccount bool    `json:"is_account"`
}

// Intent is the source-chain record of a cross-chain payment request.
// Escrow fields and the deadline are immutable after creation; only Status
// and Relayer change, and only through the defined transitions.
type Intent struct {
	ID                 Bytes32      `json:"id"`
	Sender             string       `json:"sender"`
	RefundAddress      string       `json:"refund_address"`
	SourceToken        string       `json:"source_token"`
	SourceAmount       *big.Int     `json:"source_amount"`
	DestinationChainID uint64       `json:"destination_chain_id"`
	DestinationToken   Bytes32      `json:"destination_token"`
	Receiver           Bytes32      `json:"receiver"`
	ReceiverIsAccount  bool         `json:"receiver_is_account"`
	DestinationAmount  *big.Int     `json:"destination_amount"`
	Deadline           time.Time    `json:"deadline"`
	CreatedAt          time.Time    `json:"created_at"`
	Status             IntentStatus `json:"status"`
	Relayer            Bytes32      `json:"relayer"`
}

// FillRecord is the destination-chain record of a performed fill, keyed by
// fill hash. Its existence is the double-fill guard; it is never mutated.
type FillRecord struct {
	Relayer            string    `json:"relayer"`
	RepaymentAddress   Bytes32   `json:"repayment_address"`
	RepaymentIsAccount bool      `json:"repayment_is_account"`
	CreatedAt          time.Time `json:"created_at"`
}

// OutboundMessage is a captured cross-chain dispatch, retained by the memory
// messenger for inspection and tests.
type OutboundMessage struct {
	DestinationChain   string `json:"destination_chain"`
	DestinationAddress string `json:"destination_address"`
	Payload            []byte `json:"payload"`
}
