package models

import "encoding/hex"

// IntentResponse is the JSON shape of an intent. Byte fields are rendered as
// 0x-prefixed hex, amounts as decimal strings, times as unix seconds.
type IntentResponse struct {
	ID                 string `json:"id"`
	Sender             string `json:"sender"`
	RefundAddress      string `json:"refund_address"`
	SourceToken        string `json:"source_token"`
	SourceAmount       string `json:"source_amount"`
	DestinationChainID uint64 `json:"destination_chain_id"`
	DestinationToken   string `json:"destination_token"`
	Receiver           string `json:"receiver"`
	ReceiverIsAccount  bool   `json:"receiver_is_account"`
	DestinationAmount  string `json:"destination_amount"`
	Deadline           int64  `json:"deadline"`
	CreatedAt          int64  `json:"created_at"`
	Status             string `json:"status"`
	Relayer            string `json:"relayer"`
}

// ToResponse converts an Intent to its JSON representation
func (i *Intent) ToResponse() *IntentResponse {
	return &IntentResponse{
		ID:                 hexBytes32(i.ID),
		Sender:             i.Sender,
		RefundAddress:      i.RefundAddress,
		SourceToken:        i.SourceToken,
		SourceAmount:       i.SourceAmount.String(),
		DestinationChainID: i.DestinationChainID,
		DestinationToken:   hexBytes32(i.DestinationToken),
		Receiver:           hexBytes32(i.Receiver),
		ReceiverIsAccount:  i.ReceiverIsAccount,
		DestinationAmount:  i.DestinationAmount.String(),
		Deadline:           i.Deadline.Unix(),
		CreatedAt:          i.CreatedAt.Unix(),
		Status:             string(i.Status),
		Relayer:            hexBytes32(i.Relayer),
	}
}

// FillRecordResponse is the JSON shape of a fill record
type FillRecordResponse struct {
	FillHash           string `json:"fill_hash"`
	Relayer            string `json:"relayer"`
	RepaymentAddress   string `json:"repayment_address"`
	RepaymentIsAccount bool   `json:"repayment_is_account"`
	CreatedAt          int64  `json:"created_at"`
}

// ToResponse converts a FillRecord to its JSON representation
func (f *FillRecord) ToResponse(fillHash Bytes32) *FillRecordResponse {
	return &FillRecordResponse{
		FillHash:           hexBytes32(fillHash),
		Relayer:            f.Relayer,
		RepaymentAddress:   hexBytes32(f.RepaymentAddress),
		RepaymentIsAccount: f.RepaymentIsAccount,
		CreatedAt:          f.CreatedAt.Unix(),
	}
}

func hexBytes32(b Bytes32) string {
	return "0x" + hex.EncodeToString(b[:])
}
