package services

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RozoAI/rozo-intents/codec"
	"github.com/RozoAI/rozo-intents/db"
	"github.com/RozoAI/rozo-intents/models"
)

const (
	testSourceChainID = uint64(1)
	testDestChainID   = uint64(7000)
	testDestChainName = "ZETACHAIN"

	testSender       = "0x4444444444444444444444444444444444444444"
	testRefundAddr   = "0x5555555555555555555555555555555555555555"
	testSourceToken  = "0x6666666666666666666666666666666666666666"
	testDestToken    = "0x7777777777777777777777777777777777777777"
	testReceiver     = "0x8888888888888888888888888888888888888888"
	testRepaymentTo  = "0x9999999999999999999999999999999999999999"
	testAdapterAddr  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testRemoteEngine = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	testMessengerID = uint32(1)
)

type intentFixture struct {
	svc     *IntentService
	db      *db.MemoryDB
	ledger  *LedgerTransferor
	emitter *CaptureEmitter
	now     time.Time
}

func newIntentFixture(t *testing.T) *intentFixture {
	t.Helper()
	ctx := context.Background()

	database := db.NewMemoryDB()
	ledger := NewLedgerTransferor()
	emitter := &CaptureEmitter{}

	require.NoError(t, database.SetProtocolFee(ctx, 30))
	require.NoError(t, database.SetMessengerAdapter(ctx, testMessengerID, testAdapterAddr))
	require.NoError(t, database.SetChainName(ctx, testDestChainID, testDestChainName))
	require.NoError(t, database.SetTrustedContract(ctx, testDestChainName, testRemoteEngine))

	ledger.Mint(testSourceToken, testSender, big.NewInt(10_000_000))

	svc := NewIntentService(database, ledger, emitter, NewMetrics(), testSourceChainID, zerolog.Nop())

	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }

	return &intentFixture{svc: svc, db: database, ledger: ledger, emitter: emitter, now: now}
}

func (f *intentFixture) createParams(t *testing.T) CreateIntentParams {
	t.Helper()
	destToken, err := codec.AddressToCanonical(testDestToken, false)
	require.NoError(t, err)
	receiver, err := codec.AddressToCanonical(testReceiver, true)
	require.NoError(t, err)

	return CreateIntentParams{
		Sender:             testSender,
		IntentID:           testIntentID(),
		SourceToken:        testSourceToken,
		SourceAmount:       big.NewInt(1_000_000),
		DestinationChainID: testDestChainID,
		DestinationToken:   destToken.Value,
		Receiver:           receiver.Value,
		ReceiverIsAccount:  true,
		DestinationAmount:  big.NewInt(990_000),
		Deadline:           f.now.Add(time.Hour),
		RefundAddress:      testRefundAddr,
		Relayer:            models.ZeroBytes32,
	}
}

func testIntentID() models.Bytes32 {
	var id models.Bytes32
	id[0] = 0xDE
	id[31] = 0x01
	return id
}

// intentData builds the snapshot a destination-side fill would hash for the
// stored intent.
func (f *intentFixture) intentData(t *testing.T, intent *models.Intent) *models.IntentData {
	t.Helper()
	sender, err := codec.AddressToCanonical(intent.Sender, true)
	require.NoError(t, err)
	refund, err := codec.AddressToCanonical(intent.RefundAddress, true)
	require.NoError(t, err)
	token, err := codec.AddressToCanonical(intent.SourceToken, false)
	require.NoError(t, err)

	return &models.IntentData{
		IntentID:           intent.ID,
		Sender:             sender.Value,
		RefundAddress:      refund.Value,
		SourceToken:        token.Value,
		SourceAmount:       intent.SourceAmount,
		SourceChainID:      testSourceChainID,
		DestinationChainID: intent.DestinationChainID,
		DestinationToken:   intent.DestinationToken,
		Receiver:           intent.Receiver,
		ReceiverIsAccount:  intent.ReceiverIsAccount,
		DestinationAmount:  intent.DestinationAmount,
		Deadline:           uint64(intent.Deadline.Unix()),
		CreatedAt:          uint64(intent.CreatedAt.Unix()),
		Relayer:            intent.Relayer,
	}
}

func (f *intentFixture) notifyPayload(t *testing.T, intent *models.Intent, amount *big.Int) []byte {
	t.Helper()
	hash, err := codec.FillHash(f.intentData(t, intent))
	require.NoError(t, err)

	repayment, err := codec.AddressToCanonical(testRepaymentTo, true)
	require.NoError(t, err)
	relayer, err := codec.AddressToCanonical(testRelayerAddr, true)
	require.NoError(t, err)

	raw, err := codec.EncodePayload(&codec.NotifyPayload{
		IntentID:         intent.ID,
		FillHash:         hash,
		RepaymentAddress: repayment.Value,
		Relayer:          relayer.Value,
		Amount:           amount,
	})
	require.NoError(t, err)
	return raw
}

func TestCreateIntent(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	assert.Equal(t, models.IntentStatusPending, intent.Status)
	assert.Equal(t, f.now, intent.CreatedAt)

	// Escrow moved from sender to custody.
	custody, err := f.ledger.Balance(ctx, testSourceToken, CustodyAccount)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), custody.Int64())

	sender, err := f.ledger.Balance(ctx, testSourceToken, testSender)
	require.NoError(t, err)
	assert.Equal(t, int64(9_000_000), sender.Int64())

	assert.Len(t, f.emitter.Named(models.EventIntentCreated), 1)
}

func TestCreateIntentDuplicate(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	_, err = f.svc.CreateIntent(ctx, f.createParams(t))
	assert.ErrorIs(t, err, ErrIntentAlreadyExists)

	// The second attempt must not have escrowed anything.
	custody, err := f.ledger.Balance(ctx, testSourceToken, CustodyAccount)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), custody.Int64())
}

func TestCreateIntentInvalidAmounts(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	params := f.createParams(t)
	params.SourceAmount = big.NewInt(0)
	_, err := f.svc.CreateIntent(ctx, params)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	params = f.createParams(t)
	params.DestinationAmount = big.NewInt(-1)
	_, err = f.svc.CreateIntent(ctx, params)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	params = f.createParams(t)
	params.SourceAmount = nil
	_, err = f.svc.CreateIntent(ctx, params)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreateIntentPastDeadline(t *testing.T) {
	f := newIntentFixture(t)

	params := f.createParams(t)
	params.Deadline = f.now.Add(-time.Second)
	_, err := f.svc.CreateIntent(context.Background(), params)
	assert.ErrorIs(t, err, ErrInvalidDeadline)

	params.Deadline = f.now
	_, err = f.svc.CreateIntent(context.Background(), params)
	assert.ErrorIs(t, err, ErrInvalidDeadline)
}

func TestCreateIntentInsufficientBalance(t *testing.T) {
	f := newIntentFixture(t)

	params := f.createParams(t)
	params.SourceAmount = big.NewInt(100_000_000)
	_, err := f.svc.CreateIntent(context.Background(), params)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Nothing was persisted.
	exists, err := f.db.HasIntent(context.Background(), params.IntentID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRefund(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	// Before the deadline the refund is refused.
	err = f.svc.Refund(ctx, testSender, intent.ID)
	assert.ErrorIs(t, err, ErrIntentNotExpired)

	f.svc.now = func() time.Time { return intent.Deadline.Add(time.Second) }

	// A stranger may not trigger it even after expiry.
	err = f.svc.Refund(ctx, testOtherAddr, intent.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// The refund address may.
	err = f.svc.Refund(ctx, testRefundAddr, intent.ID)
	require.NoError(t, err)

	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusRefunded, stored.Status)

	refunded, err := f.ledger.Balance(ctx, testSourceToken, testRefundAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), refunded.Int64())

	// A second refund hits the status guard.
	err = f.svc.Refund(ctx, testSender, intent.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRefundUnknownIntent(t *testing.T) {
	f := newIntentFixture(t)

	err := f.svc.Refund(context.Background(), testSender, testIntentID())
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestNotifyHappyPath(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	payload := f.notifyPayload(t, intent, intent.DestinationAmount)

	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload)
	require.NoError(t, err)

	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFilled, stored.Status)
	assert.NotEqual(t, models.ZeroBytes32, stored.Relayer)

	// 30 bps of 1,000,000 is 3,000; the relayer receives the rest.
	repaid, err := f.ledger.Balance(ctx, testSourceToken, testRepaymentTo)
	require.NoError(t, err)
	assert.Equal(t, int64(997_000), repaid.Int64())

	fees, err := f.db.GetAccumulatedFees(ctx, testSourceToken)
	require.NoError(t, err)
	assert.Equal(t, int64(3_000), fees.Int64())

	custody, err := f.ledger.Balance(ctx, testSourceToken, CustodyAccount)
	require.NoError(t, err)
	assert.Equal(t, int64(3_000), custody.Int64())

	assert.Len(t, f.emitter.Named(models.EventIntentFilled), 1)
}

func TestNotifyHashMismatchMarksFailed(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	payload := f.notifyPayload(t, intent, intent.DestinationAmount)
	payload[40] ^= 0xFF // corrupt a byte inside the fill hash slot

	// A mismatch is a recorded outcome, not an error.
	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload)
	require.NoError(t, err)

	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, stored.Status)

	// The escrow stays in custody.
	custody, err := f.ledger.Balance(ctx, testSourceToken, CustodyAccount)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), custody.Int64())

	failed := f.emitter.Named(models.EventIntentFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "MISMATCH", failed[0].Fields["reason"])
}

func TestNotifyUnderpaymentMarksFailed(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	short := new(big.Int).Sub(intent.DestinationAmount, big.NewInt(1))
	payload := f.notifyPayload(t, intent, short)

	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload)
	require.NoError(t, err)

	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, stored.Status)

	failed := f.emitter.Named(models.EventIntentFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "AMOUNT", failed[0].Fields["reason"])
}

func TestNotifyOverpaymentFills(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	over := new(big.Int).Add(intent.DestinationAmount, big.NewInt(1_000))
	payload := f.notifyPayload(t, intent, over)

	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload)
	require.NoError(t, err)

	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFilled, stored.Status)
}

func TestNotifyAuthorization(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	payload := f.notifyPayload(t, intent, intent.DestinationAmount)

	// Wrong caller for the registered adapter.
	err = f.svc.Notify(ctx, testOtherAddr, testMessengerID, testDestChainID, testRemoteEngine, payload)
	assert.ErrorIs(t, err, ErrNotMessenger)

	// Unregistered messenger id.
	err = f.svc.Notify(ctx, testAdapterAddr, 99, testDestChainID, testRemoteEngine, payload)
	assert.ErrorIs(t, err, ErrNotMessenger)

	// Unknown source chain.
	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, 424242, testRemoteEngine, payload)
	assert.ErrorIs(t, err, ErrChainNotFound)

	// Untrusted upstream contract.
	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testOtherAddr, payload)
	assert.ErrorIs(t, err, ErrUntrustedSource)

	// None of the rejected calls touched the intent.
	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusPending, stored.Status)
}

func TestNotifyRejectsMalformedPayload(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, make([]byte, 159))
	assert.ErrorIs(t, err, codec.ErrInvalidPayload)
}

func TestNotifyNonPendingIntent(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	payload := f.notifyPayload(t, intent, intent.DestinationAmount)
	require.NoError(t, f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload))

	// A second notification for the same intent is refused.
	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// The relayer was paid exactly once.
	repaid, err := f.ledger.Balance(ctx, testSourceToken, testRepaymentTo)
	require.NoError(t, err)
	assert.Equal(t, int64(997_000), repaid.Int64())
}

func TestNotifyAssignedRelayerPreserved(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	assigned, err := codec.AddressToCanonical(testRelayerAddr, true)
	require.NoError(t, err)

	params := f.createParams(t)
	params.Relayer = assigned.Value

	intent, err := f.svc.CreateIntent(ctx, params)
	require.NoError(t, err)

	payload := f.notifyPayload(t, intent, intent.DestinationAmount)
	require.NoError(t, f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload))

	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, assigned.Value, stored.Relayer)
}

// faultyTransferor fails transfers out of one account and delegates the
// rest to the ledger.
type faultyTransferor struct {
	*LedgerTransferor
	failFrom string
}

func (f *faultyTransferor) Transfer(ctx context.Context, token, from, to string, amount *big.Int) error {
	if from == f.failFrom {
		return errors.New("rpc unavailable")
	}
	return f.LedgerTransferor.Transfer(ctx, token, from, to, amount)
}

// trustLookupFaultDB simulates an infrastructure failure on the trusted
// contract lookup.
type trustLookupFaultDB struct {
	db.Database
}

func (trustLookupFaultDB) GetTrustedContract(context.Context, string) (string, error) {
	return "", errors.New("connection reset")
}

func TestRefundTransferFailureKeepsIntentPending(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	f.svc.now = func() time.Time { return intent.Deadline.Add(time.Second) }
	f.svc.transfer = &faultyTransferor{LedgerTransferor: f.ledger, failFrom: CustodyAccount}

	err = f.svc.Refund(ctx, testSender, intent.ID)
	assert.Error(t, err)

	// The escrow never moved, so the intent must still be refundable.
	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusPending, stored.Status)

	custody, err := f.ledger.Balance(ctx, testSourceToken, CustodyAccount)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), custody.Int64())

	// Once transfers work again, the refund goes through.
	f.svc.transfer = f.ledger
	require.NoError(t, f.svc.Refund(ctx, testSender, intent.ID))

	refunded, err := f.ledger.Balance(ctx, testSourceToken, testRefundAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), refunded.Int64())
}

func TestNotifyPayoutFailureLeavesIntentPending(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	payload := f.notifyPayload(t, intent, intent.DestinationAmount)

	f.svc.transfer = &faultyTransferor{LedgerTransferor: f.ledger, failFrom: CustodyAccount}

	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload)
	assert.Error(t, err)

	// Status, relayer and the fee accumulator all roll back.
	stored, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusPending, stored.Status)
	assert.Equal(t, models.ZeroBytes32, stored.Relayer)

	fees, err := f.db.GetAccumulatedFees(ctx, testSourceToken)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fees.Int64())

	// The same notification can be processed again.
	f.svc.transfer = f.ledger
	require.NoError(t, f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload))

	stored, err = f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFilled, stored.Status)

	repaid, err := f.ledger.Balance(ctx, testSourceToken, testRepaymentTo)
	require.NoError(t, err)
	assert.Equal(t, int64(997_000), repaid.Int64())
}

func TestNotifyTrustedContractLookupFailure(t *testing.T) {
	f := newIntentFixture(t)
	ctx := context.Background()

	intent, err := f.svc.CreateIntent(ctx, f.createParams(t))
	require.NoError(t, err)

	payload := f.notifyPayload(t, intent, intent.DestinationAmount)

	// An infrastructure fault on the lookup is not the same thing as an
	// untrusted source.
	f.svc.db = trustLookupFaultDB{Database: f.db}

	err = f.svc.Notify(ctx, testAdapterAddr, testMessengerID, testDestChainID, testRemoteEngine, payload)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUntrustedSource)
}
