package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RozoAI/rozo-intents/db"
	"github.com/RozoAI/rozo-intents/models"
	"github.com/RozoAI/rozo-intents/services"
)

const (
	testIntentID  = "0x1234567890123456789012345678901234567890123456789012345678901234"
	testSender    = "0x4444444444444444444444444444444444444444"
	testRefund    = "0x5555555555555555555555555555555555555555"
	testSrcToken  = "0x6666666666666666666666666666666666666666"
	testDestToken = "0x7777777777777777777777777777777777777777"
	testReceiver  = "0x8888888888888888888888888888888888888888"
	testRelayer   = "0x1111111111111111111111111111111111111111"
	testRepayment = "0x9999999999999999999999999999999999999999"
	testOwner     = "0xcccccccccccccccccccccccccccccccccccccccc"
	testOther     = "0x3333333333333333333333333333333333333333"
)

type serverFixture struct {
	router    *gin.Engine
	db        *db.MemoryDB
	ledger    *services.LedgerTransferor
	messenger *services.MemoryMessenger
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	database := db.NewMemoryDB()
	ledger := services.NewLedgerTransferor()
	emitter := &services.CaptureEmitter{}
	messenger := services.NewMemoryMessenger()

	registry := services.NewMessengerRegistry()
	registry.Register(1, messenger)

	require.NoError(t, database.SetOwner(ctx, testOwner))
	require.NoError(t, database.SetProtocolFee(ctx, 30))
	require.NoError(t, database.SetRelayerType(ctx, testRelayer, models.RelayerTypeExternal))
	require.NoError(t, database.SetChainName(ctx, 1, "ETHEREUM"))
	require.NoError(t, database.SetTrustedContract(ctx, "ETHEREUM", testOther))

	ledger.Mint(testSrcToken, testSender, big.NewInt(10_000_000))
	ledger.Mint(testDestToken, testRelayer, big.NewInt(10_000_000))

	metrics := services.NewMetrics()
	logger := zerolog.Nop()

	intentService := services.NewIntentService(database, ledger, emitter, metrics, 1, logger)
	fillService := services.NewFillService(database, ledger, registry, emitter, metrics, 7000, logger)
	adminService := services.NewAdminService(database, ledger, registry, emitter, logger)

	server := NewServer(intentService, fillService, adminService, logger)

	return &serverFixture{
		router:    server.Router(),
		db:        database,
		ledger:    ledger,
		messenger: messenger,
	}
}

func (f *serverFixture) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func createIntentBody(deadline time.Time) map[string]interface{} {
	return map[string]interface{}{
		"id":                   testIntentID,
		"sender":               testSender,
		"source_token":         testSrcToken,
		"source_amount":        "1000000",
		"destination_chain_id": 7000,
		"destination_token":    testDestToken,
		"receiver":             testReceiver,
		"receiver_is_account":  true,
		"destination_amount":   "990000",
		"deadline":             deadline.Unix(),
		"refund_address":       testRefund,
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)

	w := f.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateIntentEndpoint(t *testing.T) {
	f := newServerFixture(t)

	w := f.request(t, http.MethodPost, "/api/v1/intents", createIntentBody(time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.IntentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testIntentID, resp.ID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "1000000", resp.SourceAmount)

	// Duplicate creation conflicts.
	w = f.request(t, http.MethodPost, "/api/v1/intents", createIntentBody(time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateIntentValidation(t *testing.T) {
	f := newServerFixture(t)

	// Missing required fields.
	w := f.request(t, http.MethodPost, "/api/v1/intents", map[string]interface{}{"id": testIntentID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Malformed intent id.
	body := createIntentBody(time.Now().Add(time.Hour))
	body["id"] = "0x1234"
	w = f.request(t, http.MethodPost, "/api/v1/intents", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Non-numeric amount.
	body = createIntentBody(time.Now().Add(time.Hour))
	body["source_amount"] = "ten"
	w = f.request(t, http.MethodPost, "/api/v1/intents", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Past deadline.
	w = f.request(t, http.MethodPost, "/api/v1/intents", createIntentBody(time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIntentEndpoint(t *testing.T) {
	f := newServerFixture(t)

	w := f.request(t, http.MethodGet, "/api/v1/intents/"+testIntentID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.request(t, http.MethodGet, "/api/v1/intents/not-a-hash", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.request(t, http.MethodPost, "/api/v1/intents", createIntentBody(time.Now().Add(time.Hour)))

	w = f.request(t, http.MethodGet, "/api/v1/intents/"+testIntentID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListIntentsEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.request(t, http.MethodPost, "/api/v1/intents", createIntentBody(time.Now().Add(time.Hour)))

	w := f.request(t, http.MethodGet, "/api/v1/intents", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []models.IntentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)

	// Status filter excludes non-matching intents.
	w = f.request(t, http.MethodGet, "/api/v1/intents?status=filled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp)
}

func TestRefundBeforeDeadline(t *testing.T) {
	f := newServerFixture(t)
	f.request(t, http.MethodPost, "/api/v1/intents", createIntentBody(time.Now().Add(time.Hour)))

	w := f.request(t, http.MethodPost, "/api/v1/intents/"+testIntentID+"/refund",
		map[string]interface{}{"caller": testSender})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func fillRequestBody(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"relayer": testRelayer,
		"intent": map[string]interface{}{
			"intent_id":            testIntentID,
			"sender":               testSender,
			"refund_address":       testRefund,
			"source_token":         testSrcToken,
			"source_amount":        "1000000",
			"source_chain_id":      1,
			"destination_chain_id": 7000,
			"destination_token":    testDestToken,
			"receiver":             testReceiver,
			"receiver_is_account":  true,
			"destination_amount":   "990000",
			"deadline":             now.Add(time.Hour).Unix(),
			"created_at":           now.Unix(),
		},
		"repayment_address":    testRepayment,
		"repayment_is_account": true,
		"messenger_id":         1,
	}
}

func TestFillAndNotifyEndpoint(t *testing.T) {
	f := newServerFixture(t)
	now := time.Now()

	w := f.request(t, http.MethodPost, "/api/v1/fills", fillRequestBody(now))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		FillHash string `json:"fill_hash"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.FillHash, 66)

	// The notification went out.
	assert.Len(t, f.messenger.Messages(), 1)

	// Fill record is retrievable.
	w = f.request(t, http.MethodGet, "/api/v1/fills/"+resp.FillHash, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// A second fill for the same intent is a conflict.
	w = f.request(t, http.MethodPost, "/api/v1/fills", fillRequestBody(now))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFillAndNotifyUnauthorized(t *testing.T) {
	f := newServerFixture(t)

	body := fillRequestBody(time.Now())
	body["relayer"] = testOther

	w := f.request(t, http.MethodPost, "/api/v1/fills", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRetryNotifyEndpoint(t *testing.T) {
	f := newServerFixture(t)
	now := time.Now()

	w := f.request(t, http.MethodPost, "/api/v1/fills", fillRequestBody(now))
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.request(t, http.MethodPost, "/api/v1/fills/retry", fillRequestBody(now))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.messenger.Messages(), 2)

	// Someone other than the original filler may not retry.
	require.NoError(t, f.db.SetRelayerType(context.Background(), testOther, models.RelayerTypeExternal))
	body := fillRequestBody(now)
	body["relayer"] = testOther
	w = f.request(t, http.MethodPost, "/api/v1/fills/retry", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotifyEndpointRejectsBadPayload(t *testing.T) {
	f := newServerFixture(t)

	w := f.request(t, http.MethodPost, "/api/v1/notify", map[string]interface{}{
		"caller":          testOther,
		"messenger_id":    1,
		"source_chain_id": 1,
		"source_address":  testOther,
		"payload":         "0xzzzz",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminFeeEndpoints(t *testing.T) {
	f := newServerFixture(t)

	w := f.request(t, http.MethodPost, "/api/v1/admin/fee", map[string]interface{}{
		"caller":  testOwner,
		"fee_bps": 25,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodGet, "/api/v1/admin/fee", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"fee_bps": 25}`, w.Body.String())

	// Above the cap.
	w = f.request(t, http.MethodPost, "/api/v1/admin/fee", map[string]interface{}{
		"caller":  testOwner,
		"fee_bps": 31,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Not the owner.
	w = f.request(t, http.MethodPost, "/api/v1/admin/fee", map[string]interface{}{
		"caller":  testOther,
		"fee_bps": 10,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRelayerEndpoints(t *testing.T) {
	f := newServerFixture(t)

	w := f.request(t, http.MethodPost, "/api/v1/admin/relayers", map[string]interface{}{
		"caller":  testOwner,
		"relayer": testOther,
		"type":    "external",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = f.request(t, http.MethodPost, "/api/v1/admin/relayers", map[string]interface{}{
		"caller":  testOwner,
		"relayer": testOther,
		"type":    "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.request(t, http.MethodDelete, "/api/v1/admin/relayers/"+testOther, map[string]interface{}{
		"caller": testOwner,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminForceRefundEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.request(t, http.MethodPost, "/api/v1/intents", createIntentBody(time.Now().Add(time.Hour)))

	w := f.request(t, http.MethodPost, "/api/v1/admin/intents/"+testIntentID+"/force-refund",
		map[string]interface{}{"caller": testOwner})
	assert.Equal(t, http.StatusOK, w.Code)

	// The intent is now refunded, status visible through the read API.
	w = f.request(t, http.MethodGet, "/api/v1/intents/"+testIntentID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.IntentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "refunded", resp.Status)
}
