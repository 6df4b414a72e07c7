package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ClareAI/astra-transfer-service/internal/carrier"
	"github.com/ClareAI/astra-transfer-service/internal/config"
	"github.com/ClareAI/astra-transfer-service/internal/registry"
	"github.com/ClareAI/astra-transfer-service/internal/transfer"
	"github.com/ClareAI/astra-transfer-service/internal/ultravox"
	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// OutboundHandler places demo outbound calls: it creates an Ultravox call,
// bridges a new carrier leg to its media stream, and registers the mapping
// so the agent can later transfer the call.
type OutboundHandler struct {
	config   *config.TransferConfig
	ultravox *ultravox.Client
	carrier  carrier.CallControl
	store    registry.Store
}

// NewOutboundHandler creates a new outbound call handler
func NewOutboundHandler(cfg *config.TransferConfig, uv *ultravox.Client, cc carrier.CallControl, store registry.Store) *OutboundHandler {
	return &OutboundHandler{
		config:   cfg,
		ultravox: uv,
		carrier:  cc,
		store:    store,
	}
}

// SetupRoutes registers the outbound call route.
func (h *OutboundHandler) SetupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.Use(CORSMiddleware)

	keyed := APIKeyMiddleware(h.config.ServiceAPIKey)
	api.Handle("/outbound", keyed(http.HandlerFunc(h.HandleInitiateOutbound))).Methods("POST")
}

// InitiateOutboundRequest configures a demo outbound call. All fields are
// optional; defaults come from the service configuration.
type InitiateOutboundRequest struct {
	DestinationNumber string `json:"destinationNumber,omitempty"`
	SystemPrompt      string `json:"systemPrompt,omitempty"`
}

// InitiateOutboundResponse reports the created call pair.
type InitiateOutboundResponse struct {
	SessionID       string `json:"sessionId"`
	ProviderCallSID string `json:"providerCallSid"`
	JoinURL         string `json:"joinUrl"`
	Status          string `json:"status"`
}

// HandleInitiateOutbound handles POST /api/outbound
func (h *OutboundHandler) HandleInitiateOutbound(w http.ResponseWriter, r *http.Request) {
	var req InitiateOutboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Initiate(r.Context(), req)
	if err != nil {
		if errors.Is(err, transfer.ErrInvalidDestination) {
			writeError(w, http.StatusBadRequest, "Invalid phone number format. Must be E.164 format (e.g., +15551234567)")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Data: result})
}

// Initiate creates the Ultravox call, places the carrier leg bridged to its
// media stream, and registers the pair. Shared by the HTTP handler and the
// startup -outbound flag.
func (h *OutboundHandler) Initiate(ctx context.Context, req InitiateOutboundRequest) (*InitiateOutboundResponse, error) {
	to := req.DestinationNumber
	if to == "" {
		to = h.config.OutboundPhoneNumber
	}
	if !transfer.ValidDestination(to) {
		return nil, transfer.ErrInvalidDestination
	}
	if h.config.TwilioPhoneNumber == "" {
		return nil, errors.New("twilio phone number is not configured")
	}

	baseURL := h.config.BaseURL()
	callConfig := ultravox.DefaultCallConfig(baseURL, h.config.DestinationPhoneNumber, h.config.ServiceAPIKey)
	if req.SystemPrompt != "" {
		callConfig.SystemPrompt = req.SystemPrompt
	}

	uvCall, err := h.ultravox.CreateCall(ctx, callConfig)
	if err != nil {
		return nil, err
	}

	doc, err := carrier.StreamConnect(uvCall.JoinURL, baseURL+"/stream-events")
	if err != nil {
		return nil, err
	}

	callSID, err := h.carrier.CreateCall(ctx, carrier.CreateCallParams{
		To:             to,
		From:           h.config.TwilioPhoneNumber,
		TwiML:          doc,
		StatusCallback: baseURL + "/status",
	})
	if err != nil {
		return nil, err
	}

	if err := h.store.Register(ctx, uvCall.CallID, callSID, to, uvCall.JoinURL); err != nil {
		logger.Base().Error("failed to register outbound call",
			zap.String("session_id", uvCall.CallID),
			zap.Error(err))
	}

	return &InitiateOutboundResponse{
		SessionID:       uvCall.CallID,
		ProviderCallSID: callSID,
		JoinURL:         uvCall.JoinURL,
		Status:          "initiated",
	}, nil
}
