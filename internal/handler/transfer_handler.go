package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ClareAI/astra-transfer-service/internal/config"
	"github.com/ClareAI/astra-transfer-service/internal/registry"
	"github.com/ClareAI/astra-transfer-service/internal/transfer"
	"github.com/gorilla/mux"
)

// TransferHandler exposes the transfer API and the call registry endpoints.
type TransferHandler struct {
	config  *config.TransferConfig
	store   registry.Store
	service *transfer.Service
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(cfg *config.TransferConfig, store registry.Store, service *transfer.Service) *TransferHandler {
	return &TransferHandler{
		config:  cfg,
		store:   store,
		service: service,
	}
}

// SetupRoutes registers the /api endpoints.
func (h *TransferHandler) SetupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.Use(CORSMiddleware)

	api.HandleFunc("/health", h.HandleHealth).Methods("GET")

	keyed := APIKeyMiddleware(h.config.ServiceAPIKey)
	api.Handle("/transfer", keyed(http.HandlerFunc(h.HandleTransfer))).Methods("POST")
	api.Handle("/calls", keyed(http.HandlerFunc(h.HandleRegisterCall))).Methods("POST")
	api.Handle("/calls/{callId}", keyed(http.HandlerFunc(h.HandleGetCall))).Methods("GET")
	api.Handle("/debug/calls", keyed(http.HandlerFunc(h.HandleDebugCalls))).Methods("GET")
}

// HandleTransfer handles POST /api/transfer
func (h *TransferHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transfer.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SessionID == "" || req.DestinationNumber == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: sessionId and destinationNumber")
		return
	}

	result, err := h.service.Transfer(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrInvalidDestination):
			writeError(w, http.StatusBadRequest, "Invalid phone number format. Must be E.164 format (e.g., +15551234567)")
		case errors.Is(err, registry.ErrCallNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("Call not found: %s", req.SessionID))
		case errors.Is(err, transfer.ErrTransferInProgress):
			writeError(w, http.StatusConflict, "A transfer for this call is already in progress")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Data: result})
}

// RegisterCallRequest is the payload notifying us that a call leg exists.
type RegisterCallRequest struct {
	SessionID       string `json:"sessionId"`
	ProviderCallSID string `json:"providerCallSid"`
	CallerNumber    string `json:"callerNumber"`
	JoinURL         string `json:"joinUrl,omitempty"`
}

// HandleRegisterCall handles POST /api/calls
func (h *TransferHandler) HandleRegisterCall(w http.ResponseWriter, r *http.Request) {
	var req RegisterCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SessionID == "" || req.ProviderCallSID == "" || req.CallerNumber == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: sessionId, providerCallSid and callerNumber")
		return
	}

	if err := h.store.Register(r.Context(), req.SessionID, req.ProviderCallSID, req.CallerNumber, req.JoinURL); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Message: "Call registered"})
}

// HandleGetCall handles GET /api/calls/{callId} with the carrier reference
// redacted.
func (h *TransferHandler) HandleGetCall(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["callId"]

	record, err := h.store.Get(r.Context(), callID)
	if err != nil {
		if errors.Is(err, registry.ErrCallNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Call not found: %s", callID))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sanitized := map[string]interface{}{
		"sessionId":       record.SessionID,
		"provider":        "twilio",
		"providerCallSid": truncateSID(record.CarrierCallSID),
		"callerNumber":    record.CallerNumber,
		"startTime":       record.StartTime,
	}
	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Data: sanitized})
}

// HandleDebugCalls handles GET /api/debug/calls
func (h *TransferHandler) HandleDebugCalls(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now()
	writeJSON(w, http.StatusOK, apiResponse{
		Status:    "success",
		Timestamp: &now,
		Data: map[string]interface{}{
			"activeCalls": records,
			"count":       len(records),
		},
	})
}

// HandleHealth handles GET /api/health
func (h *TransferHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	baseURL := h.config.BaseURL()
	now := time.Now()
	writeJSON(w, http.StatusOK, apiResponse{
		Status:    "ok",
		Timestamp: &now,
		Data: map[string]interface{}{
			"server": map[string]string{
				"local":  fmt.Sprintf("http://localhost:%s", h.config.Port),
				"public": baseURL,
			},
			"webhookEndpoints": map[string]string{
				"status":            baseURL + "/status",
				"streamEvents":      baseURL + "/stream-events",
				"connectConference": baseURL + "/connect-conference",
			},
			"callerJoinFailures": h.service.JoinFailures(),
		},
	})
}

func truncateSID(sid string) string {
	if len(sid) <= 5 {
		return sid
	}
	return sid[:5] + "..."
}
