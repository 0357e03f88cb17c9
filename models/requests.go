package models

// CreateIntentRequest represents the request body for creating a new intent.
// Byte fields are 0x-prefixed hex; amounts are decimal strings.
type CreateIntentRequest struct {
	ID                 string `json:"id" binding:"required"`
	Sender             string `json:"sender" binding:"required"`
	SourceToken        string `json:"source_token" binding:"required"`
	SourceAmount       string `json:"source_amount" binding:"required"`
	DestinationChainID uint64 `json:"destination_chain_id" binding:"required"`
	DestinationToken   string `json:"destination_token" binding:"required"`
	Receiver           string `json:"receiver" binding:"required"`
	ReceiverIsAccount  bool   `json:"receiver_is_account"`
	DestinationAmount  string `json:"destination_amount" binding:"required"`
	Deadline           int64  `json:"deadline" binding:"required"`
	RefundAddress      string `json:"refund_address" binding:"required"`
	Relayer            string `json:"relayer"`
}

// RefundRequest represents the request body for refunding an expired intent
type RefundRequest struct {
	Caller string `json:"caller" binding:"required"`
}

// IntentDataRequest carries the full intent snapshot a relayer reports when
// filling on the destination chain
type IntentDataRequest struct {
	IntentID           string `json:"intent_id" binding:"required"`
	Sender             string `json:"sender" binding:"required"`
	RefundAddress      string `json:"refund_address" binding:"required"`
	SourceToken        string `json:"source_token" binding:"required"`
	SourceAmount       string `json:"source_amount" binding:"required"`
	SourceChainID      uint64 `json:"source_chain_id" binding:"required"`
	DestinationChainID uint64 `json:"destination_chain_id" binding:"required"`
	DestinationToken   string `json:"destination_token" binding:"required"`
	Receiver           string `json:"receiver" binding:"required"`
	ReceiverIsAccount  bool   `json:"receiver_is_account"`
	DestinationAmount  string `json:"destination_amount" binding:"required"`
	Deadline           int64  `json:"deadline" binding:"required"`
	CreatedAt          int64  `json:"created_at" binding:"required"`
	Relayer            string `json:"relayer"`
}

// FillRequest represents the request body for fill_and_notify
type FillRequest struct {
	Relayer            string            `json:"relayer" binding:"required"`
	Intent             IntentDataRequest `json:"intent" binding:"required"`
	RepaymentAddress   string            `json:"repayment_address" binding:"required"`
	RepaymentIsAccount bool              `json:"repayment_is_account"`
	MessengerID        uint32            `json:"messenger_id"`
}

// NotifyRequest represents a cross-chain fill notification delivered by a
// registered messenger adapter
type NotifyRequest struct {
	Caller        string `json:"caller" binding:"required"`
	MessengerID   uint32 `json:"messenger_id"`
	SourceChainID uint64 `json:"source_chain_id" binding:"required"`
	SourceAddress string `json:"source_address" binding:"required"`
	Payload       string `json:"payload" binding:"required"`
}
