package services

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/RozoAI/rozo-intents/codec"
	"github.com/RozoAI/rozo-intents/db"
	"github.com/RozoAI/rozo-intents/logging"
	"github.com/RozoAI/rozo-intents/models"
)

// ErrFillNotFound is returned when a retry references a fill hash with no
// stored record.
var ErrFillNotFound = errors.New("fill record not found")

// FillService owns the destination-chain side: performing fills, guarding
// against double fills, and dispatching (or re-dispatching) the notification
// back to the source chain. The transfer and the fill record commit together;
// the notification is fire-and-forget and retryable.
type FillService struct {
	db         db.Database
	transfer   AssetTransferor
	messengers *MessengerRegistry
	emitter    Emitter
	metrics    *Metrics
	chainID    uint64
	logger     zerolog.Logger

	now func() time.Time
}

// NewFillService creates a new FillService instance
func NewFillService(
	database db.Database,
	transfer AssetTransferor,
	messengers *MessengerRegistry,
	emitter Emitter,
	metrics *Metrics,
	chainID uint64,
	logger zerolog.Logger,
) *FillService {
	return &FillService{
		db:         database,
		transfer:   transfer,
		messengers: messengers,
		emitter:    emitter,
		metrics:    metrics,
		chainID:    chainID,
		logger:     logger.With().Uint64(logging.FieldChain, chainID).Str(logging.FieldModule, "fill").Logger(),
		now:        time.Now,
	}
}

// FillAndNotify pays the receiver on this chain and dispatches the fill
// notification to the source chain. The fill hash computed here must match
// what the source chain recomputes from its stored intent, or the source
// side will record the intent as Failed.
func (s *FillService) FillAndNotify(
	ctx context.Context,
	relayer string,
	data *models.IntentData,
	repayment models.CanonicalAddress,
	messengerID uint32,
) (models.Bytes32, error) {
	var zero models.Bytes32

	if data.DestinationAmount == nil || data.DestinationAmount.Sign() <= 0 {
		return zero, ErrInvalidAmount
	}

	relayerCanonical, err := codec.AddressToCanonical(relayer, true)
	if err != nil {
		return zero, err
	}

	createdAt := time.Unix(int64(data.CreatedAt), 0)
	if err := AuthorizeFill(ctx, s.db, relayer, relayerCanonical.Value, data.Relayer, createdAt, s.now()); err != nil {
		return zero, err
	}

	fillHash, err := codec.FillHash(data)
	if err != nil {
		return zero, err
	}

	// Double-fill guard: an existing record means the transfer already
	// happened; refuse before moving any funds.
	exists, err := s.db.HasFillRecord(ctx, fillHash)
	if err != nil {
		return zero, errors.Wrap(err, "failed to check fill record")
	}
	if exists {
		s.metrics.IncDoubleFillRejections()
		return zero, ErrAlreadyFilled
	}

	chainName, remote, err := s.resolveSource(ctx, data.SourceChainID)
	if err != nil {
		return zero, err
	}

	receiver := codec.CanonicalToAddress(models.CanonicalAddress{Value: data.Receiver, IsAccount: data.ReceiverIsAccount})
	token := codec.CanonicalToAddress(models.CanonicalAddress{Value: data.DestinationToken})

	// Reserve the fill hash before funds move. The unique insert is the
	// guard that holds under concurrency; the Has check above is only a
	// fast path.
	record := &models.FillRecord{
		Relayer:            relayer,
		RepaymentAddress:   repayment.Value,
		RepaymentIsAccount: repayment.IsAccount,
		CreatedAt:          s.now(),
	}
	if err := s.db.CreateFillRecord(ctx, fillHash, record); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			s.metrics.IncDoubleFillRejections()
			return zero, ErrAlreadyFilled
		}
		return zero, errors.Wrap(err, "failed to store fill record")
	}

	if err := s.transfer.Transfer(ctx, token, relayer, receiver, data.DestinationAmount); err != nil {
		// Release the reservation so the fill can be retried after the
		// transfer problem is resolved.
		if delErr := s.db.DeleteFillRecord(ctx, fillHash); delErr != nil {
			s.logger.Error().Err(delErr).
				Str(logging.FieldFillHash, codec.Bytes32Hex(fillHash)).
				Msg("failed to release fill record after transfer failure")
		}
		return zero, errors.Wrap(err, "failed to pay receiver")
	}
	s.metrics.IncFillsPerformed()

	payload, err := codec.EncodePayload(&codec.NotifyPayload{
		IntentID:         data.IntentID,
		FillHash:         fillHash,
		RepaymentAddress: repayment.Value,
		Relayer:          relayerCanonical.Value,
		Amount:           data.DestinationAmount,
	})
	if err != nil {
		return zero, err
	}

	s.dispatch(ctx, messengerID, chainName, remote, payload, fillHash)

	s.emitter.Emit(models.EventFillAndNotifySent, map[string]interface{}{
		"intent_id": codec.Bytes32Hex(data.IntentID),
		"fill_hash": codec.Bytes32Hex(fillHash),
		"relayer":   relayer,
		"receiver":  receiver,
		"amount":    data.DestinationAmount.String(),
	})

	return fillHash, nil
}

// RetryNotify re-dispatches the notification for an already-performed fill
// through the chosen messenger. Only the recorded filler may retry, and the
// payload is rebuilt from the stored record so the monetary terms cannot
// drift between attempts.
func (s *FillService) RetryNotify(
	ctx context.Context,
	relayer string,
	data *models.IntentData,
	messengerID uint32,
) error {
	fillHash, err := codec.FillHash(data)
	if err != nil {
		return err
	}

	record, err := s.db.GetFillRecord(ctx, fillHash)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrFillNotFound
		}
		return errors.Wrap(err, "failed to get fill record")
	}
	if record.Relayer != relayer {
		return ErrNotAssignedRelayer
	}

	chainName, remote, err := s.resolveSource(ctx, data.SourceChainID)
	if err != nil {
		return err
	}

	relayerCanonical, err := codec.AddressToCanonical(record.Relayer, true)
	if err != nil {
		return err
	}

	payload, err := codec.EncodePayload(&codec.NotifyPayload{
		IntentID:         data.IntentID,
		FillHash:         fillHash,
		RepaymentAddress: record.RepaymentAddress,
		Relayer:          relayerCanonical.Value,
		Amount:           data.DestinationAmount,
	})
	if err != nil {
		return err
	}

	messenger, ok := s.messengers.Get(messengerID)
	if !ok {
		return ErrNotMessenger
	}
	if err := messenger.Deliver(ctx, chainName, remote, payload); err != nil {
		return errors.Wrap(err, "failed to re-dispatch notification")
	}
	s.metrics.IncDispatches(strconv.FormatUint(uint64(messengerID), 10))

	s.emitter.Emit(models.EventNotifyRetried, map[string]interface{}{
		"intent_id":    codec.Bytes32Hex(data.IntentID),
		"fill_hash":    codec.Bytes32Hex(fillHash),
		"messenger_id": messengerID,
	})

	s.logger.Info().
		Str(logging.FieldFillHash, codec.Bytes32Hex(fillHash)).
		Uint32(logging.FieldMessenger, messengerID).
		Msg("notification re-dispatched")

	return nil
}

// GetFillRecord retrieves a fill record by fill hash
func (s *FillService) GetFillRecord(ctx context.Context, fillHash models.Bytes32) (*models.FillRecord, error) {
	record, err := s.db.GetFillRecord(ctx, fillHash)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrFillNotFound
		}
		return nil, errors.Wrap(err, "failed to get fill record")
	}
	return record, nil
}

// resolveSource maps a source chain id to its registered name and trusted
// remote contract.
func (s *FillService) resolveSource(ctx context.Context, sourceChainID uint64) (chainName, remote string, err error) {
	chainName, err = s.db.GetChainName(ctx, sourceChainID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", "", ErrChainNotFound
		}
		return "", "", errors.Wrap(err, "failed to resolve chain name")
	}

	remote, err = s.db.GetTrustedContract(ctx, chainName)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", "", ErrUntrustedSource
		}
		return "", "", errors.Wrap(err, "failed to resolve trusted contract")
	}
	return chainName, remote, nil
}

// dispatch sends the payload through the chosen adapter. The fill already
// committed locally, so a delivery failure is logged and left to the retry
// path rather than unwinding the call.
func (s *FillService) dispatch(ctx context.Context, messengerID uint32, chainName, remote string, payload []byte, fillHash models.Bytes32) {
	messenger, ok := s.messengers.Get(messengerID)
	if !ok {
		s.logger.Warn().
			Uint32(logging.FieldMessenger, messengerID).
			Str(logging.FieldFillHash, codec.Bytes32Hex(fillHash)).
			Msg("no messenger registered, notification not dispatched")
		return
	}

	if err := messenger.Deliver(ctx, chainName, remote, payload); err != nil {
		s.logger.Warn().
			Err(err).
			Uint32(logging.FieldMessenger, messengerID).
			Str(logging.FieldFillHash, codec.Bytes32Hex(fillHash)).
			Msg("notification dispatch failed, retry available")
		return
	}
	s.metrics.IncDispatches(strconv.FormatUint(uint64(messengerID), 10))
}
