package services

import (
	"bytes"
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/RozoAI/rozo-intents/codec"
	"github.com/RozoAI/rozo-intents/db"
	"github.com/RozoAI/rozo-intents/logging"
	"github.com/RozoAI/rozo-intents/models"
)

// CustodyAccount is the ledger identity holding escrowed funds on this chain.
const CustodyAccount = "custody"

// CreateIntentParams bundles the inputs of intent creation
type CreateIntentParams struct {
	Sender             string
	IntentID           models.Bytes32
	SourceToken        string
	SourceAmount       *big.Int
	DestinationChainID uint64
	DestinationToken   models.Bytes32
	Receiver           models.Bytes32
	ReceiverIsAccount  bool
	DestinationAmount  *big.Int
	Deadline           time.Time
	RefundAddress      string
	Relayer            models.Bytes32
}

// IntentService owns the source-chain side of the intent lifecycle: creation
// with escrow, refund after deadline, and finalization of incoming fill
// notifications. Pending is the only non-terminal state; Filled, Failed and
// Refunded are reached at most once and only through these paths.
type IntentService struct {
	db       db.Database
	transfer AssetTransferor
	emitter  Emitter
	metrics  *Metrics
	chainID  uint64
	logger   zerolog.Logger

	now func() time.Time
}

// NewIntentService creates a new IntentService instance
func NewIntentService(
	database db.Database,
	transfer AssetTransferor,
	emitter Emitter,
	metrics *Metrics,
	chainID uint64,
	logger zerolog.Logger,
) *IntentService {
	return &IntentService{
		db:       database,
		transfer: transfer,
		emitter:  emitter,
		metrics:  metrics,
		chainID:  chainID,
		logger:   logger.With().Uint64(logging.FieldChain, chainID).Str(logging.FieldModule, "intent").Logger(),
		now:      time.Now,
	}
}

// CreateIntent validates and persists a new intent, escrowing the source
// amount from the sender before the record is written.
func (s *IntentService) CreateIntent(ctx context.Context, params CreateIntentParams) (*models.Intent, error) {
	if params.SourceAmount == nil || params.SourceAmount.Sign() <= 0 ||
		params.DestinationAmount == nil || params.DestinationAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	now := s.now()
	if !params.Deadline.After(now) {
		return nil, ErrInvalidDeadline
	}

	exists, err := s.db.HasIntent(ctx, params.IntentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check intent existence")
	}
	if exists {
		return nil, ErrIntentAlreadyExists
	}

	// Escrow before the record is written; a failed transfer leaves no trace.
	if err := s.transfer.Transfer(ctx, params.SourceToken, params.Sender, CustodyAccount, params.SourceAmount); err != nil {
		return nil, errors.Wrap(err, "failed to escrow source amount")
	}

	intent := &models.Intent{
		ID:                 params.IntentID,
		Sender:             params.Sender,
		RefundAddress:      params.RefundAddress,
		SourceToken:        params.SourceToken,
		SourceAmount:       params.SourceAmount,
		DestinationChainID: params.DestinationChainID,
		DestinationToken:   params.DestinationToken,
		Receiver:           params.Receiver,
		ReceiverIsAccount:  params.ReceiverIsAccount,
		DestinationAmount:  params.DestinationAmount,
		Deadline:           params.Deadline,
		CreatedAt:          now,
		Status:             models.IntentStatusPending,
		Relayer:            params.Relayer,
	}

	if err := s.db.CreateIntent(ctx, intent); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			return nil, ErrIntentAlreadyExists
		}
		return nil, errors.Wrap(err, "failed to store intent")
	}

	s.emitter.Emit(models.EventIntentCreated, map[string]interface{}{
		"intent_id":            codec.Bytes32Hex(intent.ID),
		"sender":               intent.Sender,
		"source_token":         intent.SourceToken,
		"source_amount":        intent.SourceAmount.String(),
		"destination_chain_id": intent.DestinationChainID,
		"receiver":             codec.Bytes32Hex(intent.Receiver),
		"destination_amount":   intent.DestinationAmount.String(),
		"deadline":             intent.Deadline.Unix(),
	})
	s.metrics.IncIntentsCreated()

	s.logger.Info().
		Str(logging.FieldIntent, codec.Bytes32Hex(intent.ID)).
		Str("sender", intent.Sender).
		Msg("intent created")

	return intent, nil
}

// Refund returns the escrow of an expired pending intent to its refund
// address. Only the sender or the refund address may trigger it, and only
// after the deadline.
func (s *IntentService) Refund(ctx context.Context, caller string, intentID models.Bytes32) error {
	intent, err := s.getIntent(ctx, intentID)
	if err != nil {
		return err
	}

	if intent.Status != models.IntentStatusPending {
		return ErrInvalidStatus
	}
	if s.now().Before(intent.Deadline) {
		return ErrIntentNotExpired
	}
	if caller != intent.Sender && caller != intent.RefundAddress {
		return ErrNotAuthorized
	}

	intent.Status = models.IntentStatusRefunded
	if err := s.db.UpdateIntent(ctx, intent); err != nil {
		return errors.Wrap(err, "failed to update intent")
	}

	if err := s.transfer.Transfer(ctx, intent.SourceToken, CustodyAccount, intent.RefundAddress, intent.SourceAmount); err != nil {
		// The escrow never moved, so the intent must stay refundable.
		intent.Status = models.IntentStatusPending
		if restoreErr := s.db.UpdateIntent(ctx, intent); restoreErr != nil {
			s.logger.Error().Err(restoreErr).
				Str(logging.FieldIntent, codec.Bytes32Hex(intent.ID)).
				Msg("failed to restore intent status after transfer failure")
		}
		return errors.Wrap(err, "failed to return escrow")
	}

	s.emitter.Emit(models.EventIntentRefunded, map[string]interface{}{
		"intent_id":      codec.Bytes32Hex(intent.ID),
		"refund_address": intent.RefundAddress,
		"amount":         intent.SourceAmount.String(),
	})
	s.metrics.IncIntentsRefunded()

	s.logger.Info().
		Str(logging.FieldIntent, codec.Bytes32Hex(intent.ID)).
		Msg("intent refunded")

	return nil
}

// Notify is the messenger callback finalizing an intent. Only the adapter
// registered under messengerID may invoke it, and the upstream contract must
// match the trusted remote for the source chain. The adapter is trusted to
// have authenticated the cross-chain message itself.
func (s *IntentService) Notify(
	ctx context.Context,
	caller string,
	messengerID uint32,
	sourceChainID uint64,
	sourceAddress string,
	payload []byte,
) error {
	adapter, err := s.db.GetMessengerAdapter(ctx, messengerID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotMessenger
		}
		return errors.Wrap(err, "failed to look up messenger adapter")
	}
	if caller != adapter {
		return ErrNotMessenger
	}

	chainName, err := s.db.GetChainName(ctx, sourceChainID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrChainNotFound
		}
		return errors.Wrap(err, "failed to resolve chain name")
	}

	trusted, err := s.db.GetTrustedContract(ctx, chainName)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUntrustedSource
		}
		return errors.Wrap(err, "failed to resolve trusted contract")
	}
	if trusted != sourceAddress {
		return ErrUntrustedSource
	}

	decoded, err := codec.DecodePayload(payload)
	if err != nil {
		return err
	}

	return s.completeFill(ctx, decoded)
}

// completeFill runs the fill verification engine: it recomputes the fill
// hash from the stored intent and finalizes the record. A mismatch or an
// underpayment is a legitimate terminal outcome, recorded as Failed and
// returned as success; only infrastructure faults surface as errors.
func (s *IntentService) completeFill(ctx context.Context, p *codec.NotifyPayload) error {
	intent, err := s.getIntent(ctx, p.IntentID)
	if err != nil {
		return err
	}

	if intent.Status != models.IntentStatusPending {
		return ErrInvalidStatus
	}

	recomputed, err := s.recomputeFillHash(intent)
	if err != nil {
		return err
	}

	if !bytes.Equal(recomputed[:], p.FillHash[:]) {
		return s.markFailed(ctx, intent, "MISMATCH", p.FillHash, recomputed, p.Amount)
	}
	if p.Amount.Cmp(intent.DestinationAmount) < 0 {
		return s.markFailed(ctx, intent, "AMOUNT", p.FillHash, recomputed, p.Amount)
	}

	feeBps, err := s.db.GetProtocolFee(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read protocol fee")
	}
	fee, payout := CalculateFee(intent.SourceAmount, feeBps)

	accumulated, err := s.db.GetAccumulatedFees(ctx, intent.SourceToken)
	if err != nil {
		return errors.Wrap(err, "failed to read accumulated fees")
	}
	if err := s.db.SetAccumulatedFees(ctx, intent.SourceToken, new(big.Int).Add(accumulated, fee)); err != nil {
		return errors.Wrap(err, "failed to update accumulated fees")
	}

	prevRelayer := intent.Relayer
	intent.Status = models.IntentStatusFilled
	if intent.Relayer == models.ZeroBytes32 {
		intent.Relayer = p.Relayer
	}
	if err := s.db.UpdateIntent(ctx, intent); err != nil {
		if restoreErr := s.db.SetAccumulatedFees(ctx, intent.SourceToken, accumulated); restoreErr != nil {
			s.logger.Error().Err(restoreErr).
				Str(logging.FieldIntent, codec.Bytes32Hex(intent.ID)).
				Msg("failed to restore fee accumulator after update failure")
		}
		return errors.Wrap(err, "failed to update intent")
	}

	repayment := codec.CanonicalToAddress(models.CanonicalAddress{Value: p.RepaymentAddress})
	if err := s.transfer.Transfer(ctx, intent.SourceToken, CustodyAccount, repayment, payout); err != nil {
		// Nothing was paid out; undo the status and fee writes so the
		// notification can be processed again.
		intent.Status = models.IntentStatusPending
		intent.Relayer = prevRelayer
		if restoreErr := s.db.UpdateIntent(ctx, intent); restoreErr != nil {
			s.logger.Error().Err(restoreErr).
				Str(logging.FieldIntent, codec.Bytes32Hex(intent.ID)).
				Msg("failed to restore intent status after transfer failure")
		}
		if restoreErr := s.db.SetAccumulatedFees(ctx, intent.SourceToken, accumulated); restoreErr != nil {
			s.logger.Error().Err(restoreErr).
				Str(logging.FieldIntent, codec.Bytes32Hex(intent.ID)).
				Msg("failed to restore fee accumulator after transfer failure")
		}
		return errors.Wrap(err, "failed to pay relayer")
	}

	s.emitter.Emit(models.EventIntentFilled, map[string]interface{}{
		"intent_id":   codec.Bytes32Hex(intent.ID),
		"relayer":     codec.Bytes32Hex(p.Relayer),
		"repayment":   repayment,
		"amount_paid": p.Amount.String(),
		"fee":         fee.String(),
		"payout":      payout.String(),
	})
	s.metrics.IncIntentsFilled()

	s.logger.Info().
		Str(logging.FieldIntent, codec.Bytes32Hex(intent.ID)).
		Str("payout", payout.String()).
		Msg("intent filled")

	return nil
}

// markFailed records a verification failure. Both hashes are preserved for
// forensic comparison; the escrow stays put pending admin intervention.
func (s *IntentService) markFailed(
	ctx context.Context,
	intent *models.Intent,
	reason string,
	claimed, recomputed models.Bytes32,
	amountPaid *big.Int,
) error {
	intent.Status = models.IntentStatusFailed
	if err := s.db.UpdateIntent(ctx, intent); err != nil {
		return errors.Wrap(err, "failed to update intent")
	}

	s.emitter.Emit(models.EventIntentFailed, map[string]interface{}{
		"intent_id":       codec.Bytes32Hex(intent.ID),
		"reason":          reason,
		"claimed_hash":    codec.Bytes32Hex(claimed),
		"recomputed_hash": codec.Bytes32Hex(recomputed),
		"amount_paid":     amountPaid.String(),
	})
	s.metrics.IncIntentsFailed()

	s.logger.Warn().
		Str(logging.FieldIntent, codec.Bytes32Hex(intent.ID)).
		Str("reason", reason).
		Str("claimed_hash", codec.Bytes32Hex(claimed)).
		Str("recomputed_hash", codec.Bytes32Hex(recomputed)).
		Msg("fill verification failed")

	return nil
}

// recomputeFillHash rebuilds the canonical snapshot from the stored intent,
// substituting this chain's own id as the source chain id so the hash cannot
// be replayed against a different chain pair.
func (s *IntentService) recomputeFillHash(intent *models.Intent) (models.Bytes32, error) {
	sender, err := codec.AddressToCanonical(intent.Sender, true)
	if err != nil {
		return models.Bytes32{}, errors.Wrap(err, "invalid stored sender")
	}
	refund, err := codec.AddressToCanonical(intent.RefundAddress, true)
	if err != nil {
		return models.Bytes32{}, errors.Wrap(err, "invalid stored refund address")
	}
	token, err := codec.AddressToCanonical(intent.SourceToken, false)
	if err != nil {
		return models.Bytes32{}, errors.Wrap(err, "invalid stored source token")
	}

	data := &models.IntentData{
		IntentID:           intent.ID,
		Sender:             sender.Value,
		RefundAddress:      refund.Value,
		SourceToken:        token.Value,
		SourceAmount:       intent.SourceAmount,
		SourceChainID:      s.chainID,
		DestinationChainID: intent.DestinationChainID,
		DestinationToken:   intent.DestinationToken,
		Receiver:           intent.Receiver,
		ReceiverIsAccount:  intent.ReceiverIsAccount,
		DestinationAmount:  intent.DestinationAmount,
		Deadline:           uint64(intent.Deadline.Unix()),
		CreatedAt:          uint64(intent.CreatedAt.Unix()),
		Relayer:            intent.Relayer,
	}
	return codec.FillHash(data)
}

// GetIntent retrieves an intent by ID
func (s *IntentService) GetIntent(ctx context.Context, intentID models.Bytes32) (*models.Intent, error) {
	return s.getIntent(ctx, intentID)
}

// ListIntents returns all stored intents
func (s *IntentService) ListIntents(ctx context.Context) ([]*models.Intent, error) {
	intents, err := s.db.ListIntents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list intents")
	}
	return intents, nil
}

func (s *IntentService) getIntent(ctx context.Context, intentID models.Bytes32) (*models.Intent, error) {
	intent, err := s.db.GetIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, errors.Wrap(err, "failed to get intent")
	}
	return intent, nil
}
