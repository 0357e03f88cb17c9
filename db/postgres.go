package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/RozoAI/rozo-intents/models"
)

// Configuration keys in the protocol_config table
const (
	configKeyOwner             = "owner"
	configKeyProtocolFee       = "protocol_fee"
	configKeyFeeRecipient      = "fee_recipient"
	configKeyFallbackRelayer   = "fallback_relayer"
	configKeyFallbackThreshold = "fallback_threshold"
)

// PostgresDB implements the Database interface using PostgreSQL
type PostgresDB struct {
	db *sql.DB
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error
// (SQLSTATE 23505). Unique inserts are the concurrency guard, so callers
// must see ErrAlreadyExists for these.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// NewPostgresDB creates a new PostgreSQL state store and initializes the
// schema.
func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	p := &PostgresDB{db: sqlDB}
	if err := p.InitDB(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	return p, nil
}

// NewPostgresDBWithConn wraps an existing connection without touching the
// schema. Used by tests running against sqlmock.
func NewPostgresDBWithConn(sqlDB *sql.DB) *PostgresDB {
	return &PostgresDB{db: sqlDB}
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping checks if the database connection is alive
func (p *PostgresDB) Ping() error {
	return p.db.Ping()
}

// InitDB creates the schema if it does not exist
func (p *PostgresDB) InitDB(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS intents (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			refund_address TEXT NOT NULL,
			source_token TEXT NOT NULL,
			source_amount TEXT NOT NULL,
			destination_chain_id BIGINT NOT NULL,
			destination_token TEXT NOT NULL,
			receiver TEXT NOT NULL,
			receiver_is_account BOOLEAN NOT NULL,
			destination_amount TEXT NOT NULL,
			deadline TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			relayer TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS fill_records (
			fill_hash TEXT PRIMARY KEY,
			relayer TEXT NOT NULL,
			repayment_address TEXT NOT NULL,
			repayment_is_account BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS relayers (
			address TEXT PRIMARY KEY,
			relayer_type TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messenger_adapters (
			messenger_id BIGINT PRIMARY KEY,
			address TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chain_names (
			chain_id BIGINT PRIMARY KEY,
			name TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS trusted_contracts (
			chain_name TEXT PRIMARY KEY,
			address TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS accumulated_fees (
			token TEXT PRIMARY KEY,
			amount TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS protocol_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_intents_status ON intents(status);
	`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error executing schema: %v", err)
	}
	return nil
}

func bytes32ToHex(b models.Bytes32) string {
	return hex.EncodeToString(b[:])
}

func hexToBytes32(s string) (models.Bytes32, error) {
	var out models.Bytes32
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("error decoding stored bytes32: %v", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("stored bytes32 has length %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("error parsing stored amount %q", s)
	}
	return v, nil
}

// CreateIntent inserts a new intent
func (p *PostgresDB) CreateIntent(ctx context.Context, intent *models.Intent) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO intents (id, sender, refund_address, source_token, source_amount,
			destination_chain_id, destination_token, receiver, receiver_is_account,
			destination_amount, deadline, created_at, status, relayer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		bytes32ToHex(intent.ID),
		intent.Sender,
		intent.RefundAddress,
		intent.SourceToken,
		intent.SourceAmount.String(),
		intent.DestinationChainID,
		bytes32ToHex(intent.DestinationToken),
		bytes32ToHex(intent.Receiver),
		intent.ReceiverIsAccount,
		intent.DestinationAmount.String(),
		intent.Deadline,
		intent.CreatedAt,
		intent.Status,
		bytes32ToHex(intent.Relayer),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("error inserting intent: %v", err)
	}
	return nil
}

func (p *PostgresDB) scanIntent(row *sql.Row) (*models.Intent, error) {
	var (
		intent                           models.Intent
		id, destToken, receiver, relayer string
		sourceAmount, destAmount         string
	)
	err := row.Scan(
		&id,
		&intent.Sender,
		&intent.RefundAddress,
		&intent.SourceToken,
		&sourceAmount,
		&intent.DestinationChainID,
		&destToken,
		&receiver,
		&intent.ReceiverIsAccount,
		&destAmount,
		&intent.Deadline,
		&intent.CreatedAt,
		&intent.Status,
		&relayer,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying intent: %v", err)
	}

	if intent.ID, err = hexToBytes32(id); err != nil {
		return nil, err
	}
	if intent.DestinationToken, err = hexToBytes32(destToken); err != nil {
		return nil, err
	}
	if intent.Receiver, err = hexToBytes32(receiver); err != nil {
		return nil, err
	}
	if intent.Relayer, err = hexToBytes32(relayer); err != nil {
		return nil, err
	}
	if intent.SourceAmount, err = parseAmount(sourceAmount); err != nil {
		return nil, err
	}
	if intent.DestinationAmount, err = parseAmount(destAmount); err != nil {
		return nil, err
	}
	return &intent, nil
}

const intentColumns = `id, sender, refund_address, source_token, source_amount,
	destination_chain_id, destination_token, receiver, receiver_is_account,
	destination_amount, deadline, created_at, status, relayer`

// GetIntent retrieves an intent by ID
func (p *PostgresDB) GetIntent(ctx context.Context, id models.Bytes32) (*models.Intent, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM intents WHERE id = $1`, bytes32ToHex(id))
	return p.scanIntent(row)
}

// HasIntent reports whether an intent exists
func (p *PostgresDB) HasIntent(ctx context.Context, id models.Bytes32) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM intents WHERE id = $1)`, bytes32ToHex(id)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking intent existence: %v", err)
	}
	return exists, nil
}

// UpdateIntent updates the mutable fields of an intent
func (p *PostgresDB) UpdateIntent(ctx context.Context, intent *models.Intent) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE intents SET status = $1, relayer = $2 WHERE id = $3`,
		intent.Status, bytes32ToHex(intent.Relayer), bytes32ToHex(intent.ID))
	if err != nil {
		return fmt.Errorf("error updating intent: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIntents retrieves all intents ordered by creation time
func (p *PostgresDB) ListIntents(ctx context.Context) ([]*models.Intent, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+intentColumns+` FROM intents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying intents: %v", err)
	}
	defer rows.Close()

	var intents []*models.Intent
	for rows.Next() {
		var (
			intent                           models.Intent
			id, destToken, receiver, relayer string
			sourceAmount, destAmount         string
		)
		err := rows.Scan(
			&id,
			&intent.Sender,
			&intent.RefundAddress,
			&intent.SourceToken,
			&sourceAmount,
			&intent.DestinationChainID,
			&destToken,
			&receiver,
			&intent.ReceiverIsAccount,
			&destAmount,
			&intent.Deadline,
			&intent.CreatedAt,
			&intent.Status,
			&relayer,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning intent: %v", err)
		}
		if intent.ID, err = hexToBytes32(id); err != nil {
			return nil, err
		}
		if intent.DestinationToken, err = hexToBytes32(destToken); err != nil {
			return nil, err
		}
		if intent.Receiver, err = hexToBytes32(receiver); err != nil {
			return nil, err
		}
		if intent.Relayer, err = hexToBytes32(relayer); err != nil {
			return nil, err
		}
		if intent.SourceAmount, err = parseAmount(sourceAmount); err != nil {
			return nil, err
		}
		if intent.DestinationAmount, err = parseAmount(destAmount); err != nil {
			return nil, err
		}
		intents = append(intents, &intent)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intents: %v", err)
	}
	return intents, nil
}

// CreateFillRecord inserts a new fill record
func (p *PostgresDB) CreateFillRecord(ctx context.Context, hash models.Bytes32, record *models.FillRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO fill_records (fill_hash, relayer, repayment_address, repayment_is_account, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		bytes32ToHex(hash),
		record.Relayer,
		bytes32ToHex(record.RepaymentAddress),
		record.RepaymentIsAccount,
		record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("error inserting fill record: %v", err)
	}
	return nil
}

// GetFillRecord retrieves a fill record by fill hash
func (p *PostgresDB) GetFillRecord(ctx context.Context, hash models.Bytes32) (*models.FillRecord, error) {
	var (
		record    models.FillRecord
		repayment string
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT relayer, repayment_address, repayment_is_account, created_at
		FROM fill_records WHERE fill_hash = $1`, bytes32ToHex(hash)).
		Scan(&record.Relayer, &repayment, &record.RepaymentIsAccount, &record.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying fill record: %v", err)
	}
	if record.RepaymentAddress, err = hexToBytes32(repayment); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteFillRecord removes a fill record
func (p *PostgresDB) DeleteFillRecord(ctx context.Context, hash models.Bytes32) error {
	result, err := p.db.ExecContext(ctx,
		`DELETE FROM fill_records WHERE fill_hash = $1`, bytes32ToHex(hash))
	if err != nil {
		return fmt.Errorf("error deleting fill record: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking delete result: %v", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// HasFillRecord reports whether a fill record exists for the hash
func (p *PostgresDB) HasFillRecord(ctx context.Context, hash models.Bytes32) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM fill_records WHERE fill_hash = $1)`, bytes32ToHex(hash)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking fill record existence: %v", err)
	}
	return exists, nil
}

func (p *PostgresDB) getConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM protocol_config WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error querying config %s: %v", key, err)
	}
	return value, nil
}

func (p *PostgresDB) setConfig(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO protocol_config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2`, key, value)
	if err != nil {
		return fmt.Errorf("error setting config %s: %v", key, err)
	}
	return nil
}

// GetOwner returns the configured owner
func (p *PostgresDB) GetOwner(ctx context.Context) (string, error) {
	return p.getConfig(ctx, configKeyOwner)
}

// SetOwner stores the owner address
func (p *PostgresDB) SetOwner(ctx context.Context, owner string) error {
	return p.setConfig(ctx, configKeyOwner, owner)
}

// GetProtocolFee returns the configured fee in basis points (0 when unset)
func (p *PostgresDB) GetProtocolFee(ctx context.Context) (uint32, error) {
	value, err := p.getConfig(ctx, configKeyProtocolFee)
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	bps, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("error parsing stored fee: %v", err)
	}
	return uint32(bps), nil
}

// SetProtocolFee stores the fee in basis points
func (p *PostgresDB) SetProtocolFee(ctx context.Context, bps uint32) error {
	return p.setConfig(ctx, configKeyProtocolFee, strconv.FormatUint(uint64(bps), 10))
}

// GetFeeRecipient returns the configured fee recipient
func (p *PostgresDB) GetFeeRecipient(ctx context.Context) (string, error) {
	return p.getConfig(ctx, configKeyFeeRecipient)
}

// SetFeeRecipient stores the fee recipient
func (p *PostgresDB) SetFeeRecipient(ctx context.Context, recipient string) error {
	return p.setConfig(ctx, configKeyFeeRecipient, recipient)
}

// GetRelayerType returns the relayer class of an address, RelayerTypeNone
// when the address was never registered
func (p *PostgresDB) GetRelayerType(ctx context.Context, address string) (models.RelayerType, error) {
	var relayerType string
	err := p.db.QueryRowContext(ctx,
		`SELECT relayer_type FROM relayers WHERE address = $1`, address).Scan(&relayerType)
	if err == sql.ErrNoRows {
		return models.RelayerTypeNone, nil
	}
	if err != nil {
		return models.RelayerTypeNone, fmt.Errorf("error querying relayer type: %v", err)
	}
	return models.RelayerType(relayerType), nil
}

// SetRelayerType stores the relayer class of an address
func (p *PostgresDB) SetRelayerType(ctx context.Context, address string, relayerType models.RelayerType) error {
	if relayerType == models.RelayerTypeNone {
		if _, err := p.db.ExecContext(ctx,
			`DELETE FROM relayers WHERE address = $1`, address); err != nil {
			return fmt.Errorf("error removing relayer: %v", err)
		}
		return nil
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO relayers (address, relayer_type) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET relayer_type = $2`, address, string(relayerType))
	if err != nil {
		return fmt.Errorf("error setting relayer type: %v", err)
	}
	return nil
}

// GetFallbackRelayer returns the fallback relayer address ("" when unset)
func (p *PostgresDB) GetFallbackRelayer(ctx context.Context) (string, error) {
	value, err := p.getConfig(ctx, configKeyFallbackRelayer)
	if err == ErrNotFound {
		return "", nil
	}
	return value, err
}

// SetFallbackRelayer stores the fallback relayer address
func (p *PostgresDB) SetFallbackRelayer(ctx context.Context, address string) error {
	return p.setConfig(ctx, configKeyFallbackRelayer, address)
}

// GetFallbackThreshold returns the fallback wait threshold (0 disables)
func (p *PostgresDB) GetFallbackThreshold(ctx context.Context) (time.Duration, error) {
	value, err := p.getConfig(ctx, configKeyFallbackThreshold)
	if err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing stored threshold: %v", err)
	}
	return time.Duration(seconds) * time.Second, nil
}

// SetFallbackThreshold stores the fallback wait threshold
func (p *PostgresDB) SetFallbackThreshold(ctx context.Context, threshold time.Duration) error {
	return p.setConfig(ctx, configKeyFallbackThreshold,
		strconv.FormatInt(int64(threshold/time.Second), 10))
}

// GetMessengerAdapter returns the address registered under a messenger ID
func (p *PostgresDB) GetMessengerAdapter(ctx context.Context, messengerID uint32) (string, error) {
	var address string
	err := p.db.QueryRowContext(ctx,
		`SELECT address FROM messenger_adapters WHERE messenger_id = $1`, messengerID).Scan(&address)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error querying messenger adapter: %v", err)
	}
	return address, nil
}

// SetMessengerAdapter registers an adapter address under a messenger ID
func (p *PostgresDB) SetMessengerAdapter(ctx context.Context, messengerID uint32, address string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO messenger_adapters (messenger_id, address) VALUES ($1, $2)
		ON CONFLICT (messenger_id) DO UPDATE SET address = $2`, messengerID, address)
	if err != nil {
		return fmt.Errorf("error setting messenger adapter: %v", err)
	}
	return nil
}

// GetChainName resolves a chain ID to its registered name
func (p *PostgresDB) GetChainName(ctx context.Context, chainID uint64) (string, error) {
	var name string
	err := p.db.QueryRowContext(ctx,
		`SELECT name FROM chain_names WHERE chain_id = $1`, chainID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error querying chain name: %v", err)
	}
	return name, nil
}

// SetChainName registers a chain ID to name mapping
func (p *PostgresDB) SetChainName(ctx context.Context, chainID uint64, name string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO chain_names (chain_id, name) VALUES ($1, $2)
		ON CONFLICT (chain_id) DO UPDATE SET name = $2`, chainID, name)
	if err != nil {
		return fmt.Errorf("error setting chain name: %v", err)
	}
	return nil
}

// GetTrustedContract returns the trusted remote contract for a chain name
func (p *PostgresDB) GetTrustedContract(ctx context.Context, chainName string) (string, error) {
	var address string
	err := p.db.QueryRowContext(ctx,
		`SELECT address FROM trusted_contracts WHERE chain_name = $1`, chainName).Scan(&address)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error querying trusted contract: %v", err)
	}
	return address, nil
}

// SetTrustedContract registers the trusted remote contract for a chain name
func (p *PostgresDB) SetTrustedContract(ctx context.Context, chainName, address string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO trusted_contracts (chain_name, address) VALUES ($1, $2)
		ON CONFLICT (chain_name) DO UPDATE SET address = $2`, chainName, address)
	if err != nil {
		return fmt.Errorf("error setting trusted contract: %v", err)
	}
	return nil
}

// GetAccumulatedFees returns the running fee total for a token (0 when unset)
func (p *PostgresDB) GetAccumulatedFees(ctx context.Context, token string) (*big.Int, error) {
	var amount string
	err := p.db.QueryRowContext(ctx,
		`SELECT amount FROM accumulated_fees WHERE token = $1`, token).Scan(&amount)
	if err == sql.ErrNoRows {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying accumulated fees: %v", err)
	}
	return parseAmount(amount)
}

// SetAccumulatedFees stores the running fee total for a token
func (p *PostgresDB) SetAccumulatedFees(ctx context.Context, token string, amount *big.Int) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO accumulated_fees (token, amount) VALUES ($1, $2)
		ON CONFLICT (token) DO UPDATE SET amount = $2`, token, amount.String())
	if err != nil {
		return fmt.Errorf("error setting accumulated fees: %v", err)
	}
	return nil
}
