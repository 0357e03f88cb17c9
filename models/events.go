package models

import (
	"math/big"
	"time"
)

// Event names published to the notification sink. Delivery is fire-and-forget:
// the engine never depends on a sink acknowledging an event.
const (
	EventIntentCreated        = "intent_created"
	EventIntentFilled         = "intent_filled"
	EventIntentFailed         = "intent_failed"
	EventIntentRefunded       = "intent_refunded"
	EventFillAndNotifySent    = "fill_and_notify_sent"
	EventNotifyRetried        = "notify_retried"
	EventIntentStatusChanged  = "intent_status_changed"
	EventIntentRelayerChanged = "intent_relayer_changed"
	EventProtocolFeeSet       = "protocol_fee_set"
	EventFeeRecipientSet      = "fee_recipient_set"
	EventRelayerAdded         = "relayer_added"
	EventRelayerRemoved       = "relayer_removed"
	EventMessengerRegistered  = "messenger_registered"
	EventTrustedContractSet   = "trusted_contract_set"
	EventFeesWithdrawn        = "fees_withdrawn"
)

// Event is an envelope for a single engine notification.
type Event struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Fields    map[string]interface{} `json:"fields"`
}

// IntentFailedEvent carries both hashes for forensic comparison when a fill
// verification fails.
type IntentFailedEvent struct {
	IntentID       Bytes32
	Reason         string
	ClaimedHash    Bytes32
	RecomputedHash Bytes32
	AmountPaid     *big.Int
}
