package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ClareAI/astra-transfer-service/internal/carrier"
	"github.com/ClareAI/astra-transfer-service/internal/config"
	"github.com/ClareAI/astra-transfer-service/internal/registry"
	"github.com/ClareAI/astra-transfer-service/internal/transfer"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeControl records carrier operations for handler tests.
type fakeControl struct {
	mu      sync.Mutex
	updates []string // call SIDs updated
	creates []carrier.CreateCallParams
	nextSID string
}

func (f *fakeControl) UpdateCall(ctx context.Context, callSID, twiML string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, callSID)
	return nil
}

func (f *fakeControl) CreateCall(ctx context.Context, params carrier.CreateCallParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, params)
	if f.nextSID == "" {
		return "CA-agent", nil
	}
	return f.nextSID, nil
}

func (f *fakeControl) ConferenceActive(ctx context.Context, name string) (bool, error) {
	return true, nil
}

func testConfig() *config.TransferConfig {
	return &config.TransferConfig{
		Port:              "3000",
		ServiceAPIKey:     "service-secret",
		PublicBaseURL:     "https://example.ngrok.app",
		TwilioPhoneNumber: "+15550001111",
		JoinPollInterval:  time.Millisecond,
		JoinPollTimeout:   5 * time.Millisecond,
	}
}

func newTestRouter(t *testing.T) (*mux.Router, registry.Store, *fakeControl) {
	t.Helper()
	cfg := testConfig()
	store := registry.NewMemoryStore()
	fc := &fakeControl{}
	service := transfer.NewService(store, fc, transfer.Config{
		FromNumber:       cfg.TwilioPhoneNumber,
		BaseURL:          cfg.BaseURL(),
		JoinPollInterval: cfg.JoinPollInterval,
		JoinPollTimeout:  cfg.JoinPollTimeout,
	})

	router := mux.NewRouter()
	NewTransferHandler(cfg, store, service).SetupRoutes(router)
	NewConferenceHandler(service).SetupRoutes(router)
	NewCarrierWebhookHandler().SetupRoutes(router)
	return router, store, fc
}

func postJSON(t *testing.T, router *mux.Router, path, apiKey string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	return decoded
}

func TestTransferRequiresAPIKey(t *testing.T) {
	router, _, _ := newTestRouter(t)

	recorder := postJSON(t, router, "/api/transfer", "", transfer.TransferRequest{
		SessionID:         "sess-1",
		DestinationNumber: "+15557654321",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = postJSON(t, router, "/api/transfer", "wrong-key", transfer.TransferRequest{
		SessionID:         "sess-1",
		DestinationNumber: "+15557654321",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestTransferValidation(t *testing.T) {
	router, store, fc := newTestRouter(t)
	require.NoError(t, store.Register(context.Background(), "sess-1", "CA123", "+15551234567", ""))

	recorder := postJSON(t, router, "/api/transfer", "service-secret", transfer.TransferRequest{
		DestinationNumber: "+15557654321",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = postJSON(t, router, "/api/transfer", "service-secret", transfer.TransferRequest{
		SessionID:         "sess-1",
		DestinationNumber: "555-not-a-number",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, decodeResponse(t, recorder)["message"], "E.164")

	assert.Empty(t, fc.updates)
	assert.Empty(t, fc.creates)
}

func TestTransferUnknownSessionReturns404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	recorder := postJSON(t, router, "/api/transfer", "service-secret", transfer.TransferRequest{
		SessionID:         "sess-unknown",
		DestinationNumber: "+15557654321",
	})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "Call not found: sess-unknown", decodeResponse(t, recorder)["message"])
}

func TestTransferColdSuccess(t *testing.T) {
	router, store, fc := newTestRouter(t)
	require.NoError(t, store.Register(context.Background(), "sess-1", "CA123", "+15551234567", ""))

	recorder := postJSON(t, router, "/api/transfer", "service-secret", transfer.TransferRequest{
		SessionID:         "sess-1",
		DestinationNumber: "+15557654321",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	decoded := decodeResponse(t, recorder)
	assert.Equal(t, "success", decoded["status"])

	data := decoded["data"].(map[string]interface{})
	details := data["callDetails"].(map[string]interface{})
	assert.Equal(t, "sess-1", details["sessionId"])
	assert.Equal(t, "CA123", details["providerCallSid"])
	assert.Equal(t, "+15557654321", details["destinationNumber"])

	assert.Equal(t, []string{"CA123"}, fc.updates)
	assert.Empty(t, fc.creates)
}

func TestTransferWhisperSuccess(t *testing.T) {
	router, store, fc := newTestRouter(t)
	require.NoError(t, store.Register(context.Background(), "sess-1", "CA123", "+15551234567", ""))

	recorder := postJSON(t, router, "/api/transfer", "service-secret", transfer.TransferRequest{
		SessionID:         "sess-1",
		DestinationNumber: "+15557654321",
		TransferReason:    "caller is upset",
		UseWhisper:        true,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	decoded := decodeResponse(t, recorder)
	data := decoded["data"].(map[string]interface{})
	details := data["callDetails"].(map[string]interface{})
	assert.Regexp(t, `^conf_sess-1_\d+$`, details["conferenceName"])

	require.Len(t, fc.creates, 1)
	assert.Equal(t, "+15557654321", fc.creates[0].To)
	assert.Equal(t, "+15550001111", fc.creates[0].From)
	assert.Equal(t, []string{"CA123"}, fc.updates)
}

func TestRegisterAndGetCall(t *testing.T) {
	router, _, _ := newTestRouter(t)

	recorder := postJSON(t, router, "/api/calls", "service-secret", RegisterCallRequest{
		SessionID:       "sess-1",
		ProviderCallSID: "CA1234567890",
		CallerNumber:    "+15551234567",
		JoinURL:         "wss://example.com/join",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/calls/sess-1", nil)
	req.Header.Set("X-API-Key", "service-secret")
	getRecorder := httptest.NewRecorder()
	router.ServeHTTP(getRecorder, req)
	require.Equal(t, http.StatusOK, getRecorder.Code)

	data := decodeResponse(t, getRecorder)["data"].(map[string]interface{})
	assert.Equal(t, "sess-1", data["sessionId"])
	assert.Equal(t, "twilio", data["provider"])
	assert.Equal(t, "CA123...", data["providerCallSid"], "carrier reference must be redacted")
	assert.Equal(t, "+15551234567", data["callerNumber"])
}

func TestGetCallNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/calls/missing", nil)
	req.Header.Set("X-API-Key", "service-secret")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDebugCalls(t *testing.T) {
	router, store, _ := newTestRouter(t)
	require.NoError(t, store.Register(context.Background(), "sess-1", "CA123", "+15551234567", ""))
	require.NoError(t, store.Register(context.Background(), "sess-2", "CA456", "+15557654321", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/debug/calls", nil)
	req.Header.Set("X-API-Key", "service-secret")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	data := decodeResponse(t, recorder)["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["count"])
}

func TestHealthNoKeyRequired(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	decoded := decodeResponse(t, recorder)
	assert.Equal(t, "ok", decoded["status"])
	data := decoded["data"].(map[string]interface{})
	assert.Contains(t, data, "webhookEndpoints")
	assert.Contains(t, data, "callerJoinFailures")
}
