package services

import (
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

// AdminService owns the owner-gated configuration surface: initialization,
// fee parameters, relayer and messenger registration, cross-chain trust
// anchors, and the manual recovery operations for stuck intents.
type AdminService struct {
	db         db.Database
	transfer   AssetTransferor
	messengers *MessengerRegistry
	emitter    Emitter
	logger     zerolog.Logger
}

// NewAdminService creates a new AdminService instance
func NewAdminService(
	database db.Database,
	transfer AssetTransferor,
	messengers *MessengerRegistry,
	emitter Emitter,
	logger zerolog.Logger,
) *AdminService {
	return &AdminService{
		db:         database,
		transfer:   transfer,
		messengers: messengers,
		emitter:    emitter,
		logger:     logger.With().Str(logging.FieldModule, "admin").Logger(),
	}
}

// Initialize records the owner. It may run exactly once; every owner-gated
// operation fails until it has.
func (s *AdminService) Initialize(ctx context.Context, owner string) error {
	existing, err := s.db.GetOwner(ctx)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return errors.Wrap(err, "failed to check owner")
	}
	if existing != "" {
		return ErrAlreadyInitialized
	}
	if err := s.db.SetOwner(ctx, owner); err != nil {
		return errors.Wrap(err, "failed to set owner")
	}
	s.logger.Info().Str("owner", owner).Msg("engine initialized")
	return nil
}

func (s *AdminService) requireOwner(ctx context.Context, caller string) error {
	owner, err := s.db.GetOwner(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotInitialized
		}
		return errors.Wrap(err, "failed to get owner")
	}
	if owner == "" {
		return ErrNotInitialized
	}
	if caller != owner {
		return ErrNotOwner
	}
	return nil
}

// SetProtocolFee sets the protocol fee in basis points. Values above
// MaxFeeBps are rejected here so the fill path never has to re-validate.
func (s *AdminService) SetProtocolFee(ctx context.Context, caller string, feeBps uint32) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if feeBps > MaxFeeBps {
		return ErrInvalidFee
	}
	if err := s.db.SetProtocolFee(ctx, feeBps); err != nil {
		return errors.Wrap(err, "failed to set protocol fee")
	}
	s.emitter.Emit(models.EventProtocolFeeSet, map[string]interface{}{
		"fee_bps": feeBps,
	})
	return nil
}

// SetFeeRecipient sets the address accumulated fees are withdrawn to.
func (s *AdminService) SetFeeRecipient(ctx context.Context, caller, recipient string) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.db.SetFeeRecipient(ctx, recipient); err != nil {
		return errors.Wrap(err, "failed to set fee recipient")
	}
	s.emitter.Emit(models.EventFeeRecipientSet, map[string]interface{}{
		"recipient": recipient,
	})
	return nil
}

// AddRelayer registers a relayer with the given type.
func (s *AdminService) AddRelayer(ctx context.Context, caller, relayer string, relayerType models.RelayerType) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.db.SetRelayerType(ctx, relayer, relayerType); err != nil {
		return errors.Wrap(err, "failed to set relayer type")
	}
	s.emitter.Emit(models.EventRelayerAdded, map[string]interface{}{
		"relayer": relayer,
		"type":    string(relayerType),
	})
	return nil
}

// RemoveRelayer revokes a relayer's authorization.
func (s *AdminService) RemoveRelayer(ctx context.Context, caller, relayer string) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.db.SetRelayerType(ctx, relayer, models.RelayerTypeNone); err != nil {
		return errors.Wrap(err, "failed to remove relayer")
	}
	s.emitter.Emit(models.EventRelayerRemoved, map[string]interface{}{
		"relayer": relayer,
	})
	return nil
}

// RegisterMessenger binds a numeric adapter id to the adapter's inbound
// address and, when a transport is supplied, to a live dispatch transport.
func (s *AdminService) RegisterMessenger(ctx context.Context, caller string, messengerID uint32, address string, transport Messenger) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.db.SetMessengerAdapter(ctx, messengerID, address); err != nil {
		return errors.Wrap(err, "failed to register messenger adapter")
	}
	if transport != nil {
		s.messengers.Register(messengerID, transport)
	}
	s.emitter.Emit(models.EventMessengerRegistered, map[string]interface{}{
		"messenger_id": messengerID,
		"address":      address,
	})
	s.logger.Info().
		Uint32(logging.FieldMessenger, messengerID).
		Str("address", address).
		Msg("messenger adapter registered")
	return nil
}

// SetChainName maps a numeric chain id to the name messengers route by.
func (s *AdminService) SetChainName(ctx context.Context, caller string, chainID uint64, name string) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.db.SetChainName(ctx, chainID, name); err != nil {
		return errors.Wrap(err, "failed to set chain name")
	}
	return nil
}

// SetTrustedContract records the counterpart engine address on a remote
// chain. Inbound notifications from that chain must originate from it.
func (s *AdminService) SetTrustedContract(ctx context.Context, caller, chainName, address string) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.db.SetTrustedContract(ctx, chainName, address); err != nil {
		return errors.Wrap(err, "failed to set trusted contract")
	}
	s.emitter.Emit(models.EventTrustedContractSet, map[string]interface{}{
		"chain":   chainName,
		"address": address,
	})
	return nil
}

// SetFallbackRelayer designates the relayer allowed to fill assigned intents
// once the fallback threshold has elapsed.
func (s *AdminService) SetFallbackRelayer(ctx context.Context, caller, relayer string) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.db.SetFallbackRelayer(ctx, relayer); err != nil {
		return errors.Wrap(err, "failed to set fallback relayer")
	}
	return nil
}

// SetFallbackThreshold sets how long an assigned intent stays exclusive.
// Zero disables the fallback path entirely.
func (s *AdminService) SetFallbackThreshold(ctx context.Context, caller string, threshold time.Duration) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.db.SetFallbackThreshold(ctx, threshold); err != nil {
		return errors.Wrap(err, "failed to set fallback threshold")
	}
	return nil
}

// SetIntentStatus overrides an intent's status. This is a recovery tool; the
// change is audited through the event sink.
func (s *AdminService) SetIntentStatus(ctx context.Context, caller string, intentID models.Bytes32, status models.IntentStatus) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	intent, err := s.db.GetIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrIntentNotFound
		}
		return errors.Wrap(err, "failed to get intent")
	}
	previous := intent.Status
	intent.Status = status
	if err := s.db.UpdateIntent(ctx, intent); err != nil {
		return errors.Wrap(err, "failed to update intent")
	}
	s.emitter.Emit(models.EventIntentStatusChanged, map[string]interface{}{
		"intent_id": codec.Bytes32Hex(intentID),
		"previous":  string(previous),
		"status":    string(status),
		"caller":    caller,
	})
	return nil
}

// SetIntentRelayer overrides an intent's assigned relayer.
func (s *AdminService) SetIntentRelayer(ctx context.Context, caller string, intentID models.Bytes32, relayer models.Bytes32) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	intent, err := s.db.GetIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrIntentNotFound
		}
		return errors.Wrap(err, "failed to get intent")
	}
	intent.Relayer = relayer
	if err := s.db.UpdateIntent(ctx, intent); err != nil {
		return errors.Wrap(err, "failed to update intent")
	}
	s.emitter.Emit(models.EventIntentRelayerChanged, map[string]interface{}{
		"intent_id": codec.Bytes32Hex(intentID),
		"relayer":   codec.Bytes32Hex(relayer),
		"caller":    caller,
	})
	return nil
}

// ForceRefund refunds an intent regardless of its deadline. It refuses
// intents that already reached Filled or Refunded, since funds for those
// have already left custody.
func (s *AdminService) ForceRefund(ctx context.Context, caller string, intentID models.Bytes32) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	intent, err := s.db.GetIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrIntentNotFound
		}
		return errors.Wrap(err, "failed to get intent")
	}
	if intent.Status == models.IntentStatusFilled || intent.Status == models.IntentStatusRefunded {
		return ErrInvalidStatus
	}

	prevStatus := intent.Status
	intent.Status = models.IntentStatusRefunded
	if err := s.db.UpdateIntent(ctx, intent); err != nil {
		return errors.Wrap(err, "failed to update intent")
	}
	if err := s.transfer.Transfer(ctx, intent.SourceToken, CustodyAccount, intent.RefundAddress, intent.SourceAmount); err != nil {
		// The escrow never moved; keep the intent recoverable.
		intent.Status = prevStatus
		if restoreErr := s.db.UpdateIntent(ctx, intent); restoreErr != nil {
			s.logger.Error().Err(restoreErr).
				Str(logging.FieldIntent, codec.Bytes32Hex(intentID)).
				Msg("failed to restore intent status after transfer failure")
		}
		return errors.Wrap(err, "failed to refund escrow")
	}

	s.emitter.Emit(models.EventIntentRefunded, map[string]interface{}{
		"intent_id": codec.Bytes32Hex(intentID),
		"forced":    true,
		"caller":    caller,
	})
	s.logger.Warn().
		Str(logging.FieldIntent, codec.Bytes32Hex(intentID)).
		Msg("intent force refunded")
	return nil
}

// WithdrawFees moves the accumulated fees for a token to the configured fee
// recipient and resets the accumulator.
func (s *AdminService) WithdrawFees(ctx context.Context, caller, token string) (*big.Int, error) {
	if err := s.requireOwner(ctx, caller); err != nil {
		return nil, err
	}
	recipient, err := s.db.GetFeeRecipient(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, errors.Wrap(err, "failed to get fee recipient")
	}
	if recipient == "" {
		return nil, ErrNotInitialized
	}
	amount, err := s.db.GetAccumulatedFees(ctx, token)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, errors.Wrap(err, "failed to get accumulated fees")
	}
	if amount == nil || amount.Sign() == 0 {
		return nil, ErrInvalidAmount
	}

	if err := s.db.SetAccumulatedFees(ctx, token, big.NewInt(0)); err != nil {
		return nil, errors.Wrap(err, "failed to reset accumulated fees")
	}
	if err := s.transfer.Transfer(ctx, token, CustodyAccount, recipient, amount); err != nil {
		// Nothing left custody; put the balance back so it stays withdrawable.
		if restoreErr := s.db.SetAccumulatedFees(ctx, token, amount); restoreErr != nil {
			s.logger.Error().Err(restoreErr).
				Str("token", token).
				Msg("failed to restore fee accumulator after transfer failure")
		}
		return nil, errors.Wrap(err, "failed to transfer fees")
	}

	s.emitter.Emit(models.EventFeesWithdrawn, map[string]interface{}{
		"token":     token,
		"recipient": recipient,
		"amount":    amount.String(),
	})
	return amount, nil
}

// GetOwner returns the configured owner address.
func (s *AdminService) GetOwner(ctx context.Context) (string, error) {
	owner, err := s.db.GetOwner(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", ErrNotInitialized
		}
		return "", errors.Wrap(err, "failed to get owner")
	}
	return owner, nil
}

// GetProtocolFee returns the current fee in basis points.
func (s *AdminService) GetProtocolFee(ctx context.Context) (uint32, error) {
	fee, err := s.db.GetProtocolFee(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to get protocol fee")
	}
	return fee, nil
}

// GetFeeRecipient returns the configured fee recipient.
func (s *AdminService) GetFeeRecipient(ctx context.Context) (string, error) {
	recipient, err := s.db.GetFeeRecipient(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to get fee recipient")
	}
	return recipient, nil
}

// GetRelayerType returns the registered type for a relayer address.
func (s *AdminService) GetRelayerType(ctx context.Context, relayer string) (models.RelayerType, error) {
	return s.db.GetRelayerType(ctx, relayer)
}

// GetAccumulatedFees returns the undistributed fee balance for a token.
func (s *AdminService) GetAccumulatedFees(ctx context.Context, token string) (*big.Int, error) {
	amount, err := s.db.GetAccumulatedFees(ctx, token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return big.NewInt(0), nil
		}
		return nil, errors.Wrap(err, "failed to get accumulated fees")
	}
	return amount, nil
}
