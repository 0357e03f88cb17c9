package db

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/RozoAI/rozo-intents/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when a create collides with an existing key
var ErrAlreadyExists = errors.New("record already exists")

// Database is the state store the settlement engine runs against. Every
// operation of the engine executes as a single serialized transaction on its
// host chain, so implementations only need per-call consistency, not
// cross-call coordination.
type Database interface {
	// Connection management
	Close() error
	Ping() error

	// Intent records (source chain)
	CreateIntent(ctx context.Context, intent *models.Intent) error
	GetIntent(ctx context.Context, id models.Bytes32) (*models.Intent, error)
	HasIntent(ctx context.Context, id models.Bytes32) (bool, error)
	UpdateIntent(ctx context.Context, intent *models.Intent) error
	ListIntents(ctx context.Context) ([]*models.Intent, error)

	// Fill records (destination chain), keyed by fill hash
	CreateFillRecord(ctx context.Context, hash models.Bytes32, record *models.FillRecord) error
	GetFillRecord(ctx context.Context, hash models.Bytes32) (*models.FillRecord, error)
	HasFillRecord(ctx context.Context, hash models.Bytes32) (bool, error)
	DeleteFillRecord(ctx context.Context, hash models.Bytes32) error

	// Protocol configuration
	GetOwner(ctx context.Context) (string, error)
	SetOwner(ctx context.Context, owner string) error
	GetProtocolFee(ctx context.Context) (uint32, error)
	SetProtocolFee(ctx context.Context, bps uint32) error
	GetFeeRecipient(ctx context.Context) (string, error)
	SetFeeRecipient(ctx context.Context, recipient string) error
	GetRelayerType(ctx context.Context, address string) (models.RelayerType, error)
	SetRelayerType(ctx context.Context, address string, relayerType models.RelayerType) error
	GetFallbackRelayer(ctx context.Context) (string, error)
	SetFallbackRelayer(ctx context.Context, address string) error
	GetFallbackThreshold(ctx context.Context) (time.Duration, error)
	SetFallbackThreshold(ctx context.Context, threshold time.Duration) error
	GetMessengerAdapter(ctx context.Context, messengerID uint32) (string, error)
	SetMessengerAdapter(ctx context.Context, messengerID uint32, address string) error
	GetChainName(ctx context.Context, chainID uint64) (string, error)
	SetChainName(ctx context.Context, chainID uint64, name string) error
	GetTrustedContract(ctx context.Context, chainName string) (string, error)
	SetTrustedContract(ctx context.Context, chainName, address string) error

	// Accumulated protocol fees per source token
	GetAccumulatedFees(ctx context.Context, token string) (*big.Int, error)
	SetAccumulatedFees(ctx context.Context, token string, amount *big.Int) error
}
