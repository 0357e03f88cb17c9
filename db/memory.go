package db

import (
	"bytes"
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/RozoAI/rozo-intents/models"
)

// MemoryDB implements the Database interface with in-process maps. It backs
// tests and single-node deployments where Postgres is not configured.
type MemoryDB struct {
	mu sync.RWMutex

	intents     map[models.Bytes32]*models.Intent
	fillRecords map[models.Bytes32]*models.FillRecord
	relayers    map[string]models.RelayerType
	messengers  map[uint32]string
	chainNames  map[uint64]string
	trusted     map[string]string
	fees        map[string]*big.Int

	owner             string
	ownerSet          bool
	protocolFee       uint32
	feeRecipient      string
	fallbackRelayer   string
	fallbackThreshold time.Duration
}

// NewMemoryDB creates an empty in-memory state store
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		intents:     make(map[models.Bytes32]*models.Intent),
		fillRecords: make(map[models.Bytes32]*models.FillRecord),
		relayers:    make(map[string]models.RelayerType),
		messengers:  make(map[uint32]string),
		chainNames:  make(map[uint64]string),
		trusted:     make(map[string]string),
		fees:        make(map[string]*big.Int),
	}
}

// Close implements the Database interface
func (m *MemoryDB) Close() error { return nil }

// Ping implements the Database interface
func (m *MemoryDB) Ping() error { return nil }

func copyIntent(in *models.Intent) *models.Intent {
	out := *in
	if in.SourceAmount != nil {
		out.SourceAmount = new(big.Int).Set(in.SourceAmount)
	}
	if in.DestinationAmount != nil {
		out.DestinationAmount = new(big.Int).Set(in.DestinationAmount)
	}
	return &out
}

// CreateIntent stores a new intent, rejecting duplicate IDs
func (m *MemoryDB) CreateIntent(_ context.Context, intent *models.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.intents[intent.ID]; ok {
		return ErrAlreadyExists
	}
	m.intents[intent.ID] = copyIntent(intent)
	return nil
}

// GetIntent retrieves an intent by ID
func (m *MemoryDB) GetIntent(_ context.Context, id models.Bytes32) (*models.Intent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	intent, ok := m.intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyIntent(intent), nil
}

// HasIntent reports whether an intent exists
func (m *MemoryDB) HasIntent(_ context.Context, id models.Bytes32) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.intents[id]
	return ok, nil
}

// UpdateIntent replaces a stored intent
func (m *MemoryDB) UpdateIntent(_ context.Context, intent *models.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.intents[intent.ID]; !ok {
		return ErrNotFound
	}
	m.intents[intent.ID] = copyIntent(intent)
	return nil
}

// ListIntents returns all stored intents, newest first. The order is stable
// so paginated reads do not skip or repeat entries.
func (m *MemoryDB) ListIntents(_ context.Context) ([]*models.Intent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Intent, 0, len(m.intents))
	for _, intent := range m.intents {
		out = append(out, copyIntent(intent))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

// CreateFillRecord stores a fill record, rejecting duplicate hashes
func (m *MemoryDB) CreateFillRecord(_ context.Context, hash models.Bytes32, record *models.FillRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fillRecords[hash]; ok {
		return ErrAlreadyExists
	}
	cp := *record
	m.fillRecords[hash] = &cp
	return nil
}

// GetFillRecord retrieves a fill record by fill hash
func (m *MemoryDB) GetFillRecord(_ context.Context, hash models.Bytes32) (*models.FillRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.fillRecords[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *record
	return &cp, nil
}

// HasFillRecord reports whether a fill record exists for the hash
func (m *MemoryDB) HasFillRecord(_ context.Context, hash models.Bytes32) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.fillRecords[hash]
	return ok, nil
}

// DeleteFillRecord removes a fill record
func (m *MemoryDB) DeleteFillRecord(_ context.Context, hash models.Bytes32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fillRecords[hash]; !ok {
		return ErrNotFound
	}
	delete(m.fillRecords, hash)
	return nil
}

// GetOwner returns the configured owner
func (m *MemoryDB) GetOwner(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.ownerSet {
		return "", ErrNotFound
	}
	return m.owner, nil
}

// SetOwner stores the owner address
func (m *MemoryDB) SetOwner(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.owner = owner
	m.ownerSet = true
	return nil
}

// GetProtocolFee returns the configured fee in basis points (0 when unset)
func (m *MemoryDB) GetProtocolFee(_ context.Context) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.protocolFee, nil
}

// SetProtocolFee stores the fee in basis points
func (m *MemoryDB) SetProtocolFee(_ context.Context, bps uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.protocolFee = bps
	return nil
}

// GetFeeRecipient returns the configured fee recipient
func (m *MemoryDB) GetFeeRecipient(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.feeRecipient == "" {
		return "", ErrNotFound
	}
	return m.feeRecipient, nil
}

// SetFeeRecipient stores the fee recipient
func (m *MemoryDB) SetFeeRecipient(_ context.Context, recipient string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeRecipient = recipient
	return nil
}

// GetRelayerType returns the relayer class of an address, RelayerTypeNone
// when the address was never registered
func (m *MemoryDB) GetRelayerType(_ context.Context, address string) (models.RelayerType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.relayers[address]
	if !ok {
		return models.RelayerTypeNone, nil
	}
	return t, nil
}

// SetRelayerType stores the relayer class of an address
func (m *MemoryDB) SetRelayerType(_ context.Context, address string, relayerType models.RelayerType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if relayerType == models.RelayerTypeNone {
		delete(m.relayers, address)
		return nil
	}
	m.relayers[address] = relayerType
	return nil
}

// GetFallbackRelayer returns the fallback relayer address ("" when unset)
func (m *MemoryDB) GetFallbackRelayer(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallbackRelayer, nil
}

// SetFallbackRelayer stores the fallback relayer address
func (m *MemoryDB) SetFallbackRelayer(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackRelayer = address
	return nil
}

// GetFallbackThreshold returns the fallback wait threshold (0 disables)
func (m *MemoryDB) GetFallbackThreshold(_ context.Context) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallbackThreshold, nil
}

// SetFallbackThreshold stores the fallback wait threshold
func (m *MemoryDB) SetFallbackThreshold(_ context.Context, threshold time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackThreshold = threshold
	return nil
}

// GetMessengerAdapter returns the address registered under a messenger ID
func (m *MemoryDB) GetMessengerAdapter(_ context.Context, messengerID uint32) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	address, ok := m.messengers[messengerID]
	if !ok {
		return "", ErrNotFound
	}
	return address, nil
}

// SetMessengerAdapter registers an adapter address under a messenger ID
func (m *MemoryDB) SetMessengerAdapter(_ context.Context, messengerID uint32, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messengers[messengerID] = address
	return nil
}

// GetChainName resolves a chain ID to its registered name
func (m *MemoryDB) GetChainName(_ context.Context, chainID uint64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := m.chainNames[chainID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

// SetChainName registers a chain ID to name mapping
func (m *MemoryDB) SetChainName(_ context.Context, chainID uint64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chainNames[chainID] = name
	return nil
}

// GetTrustedContract returns the trusted remote contract for a chain name
func (m *MemoryDB) GetTrustedContract(_ context.Context, chainName string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	address, ok := m.trusted[chainName]
	if !ok {
		return "", ErrNotFound
	}
	return address, nil
}

// SetTrustedContract registers the trusted remote contract for a chain name
func (m *MemoryDB) SetTrustedContract(_ context.Context, chainName, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trusted[chainName] = address
	return nil
}

// GetAccumulatedFees returns the running fee total for a token (0 when unset)
func (m *MemoryDB) GetAccumulatedFees(_ context.Context, token string) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total, ok := m.fees[token]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(total), nil
}

// SetAccumulatedFees stores the running fee total for a token
func (m *MemoryDB) SetAccumulatedFees(_ context.Context, token string, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fees[token] = new(big.Int).Set(amount)
	return nil
}
