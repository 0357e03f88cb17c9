package models

import "math/big"

// IntentData is the hash-stable snapshot of the fields that determine a fill
// hash. It must reconstruct byte-for-byte identically on the chain that
// filled and on the chain that verifies, so every address is carried in
// canonical 32-byte form and the source chain id is part of the snapshot.
type IntentData struct {
	IntentID           Bytes32  `json:"intent_id"`
	Sender             Bytes32  `json:"sender"`
	RefundAddress      Bytes32  `json:"refund_address"`
	SourceToken        Bytes32  `json:"source_token"`
	SourceAmount       *big.Int `json:"source_amount"`
	SourceChainID      uint64   `json:"source_chain_id"`
	DestinationChainID uint64   `json:"destination_chain_id"`
	DestinationToken   Bytes32  `json:"destination_token"`
	Receiver           Bytes32  `json:"receiver"`
	ReceiverIsAccount  bool     `json:"receiver_is_account"`
	DestinationAmount  *big.Int `json:"destination_amount"`
	Deadline           uint64   `json:"deadline"`
	CreatedAt          uint64   `json:"created_at"`
	Relayer            Bytes32  `json:"relayer"`
}
