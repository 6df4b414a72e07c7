package handler

import (
	"encoding/json"
	"io"
	"math/rand"
	"net/http"

	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CarrierWebhookHandler receives Twilio call status and media stream events.
// These webhooks are observability only; they never change call state.
type CarrierWebhookHandler struct{}

// NewCarrierWebhookHandler creates a new carrier webhook handler
func NewCarrierWebhookHandler() *CarrierWebhookHandler {
	return &CarrierWebhookHandler{}
}

// SetupRoutes registers the carrier webhook routes.
func (h *CarrierWebhookHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/status", h.HandleCallStatus).Methods("POST")
	router.HandleFunc("/stream-events", h.HandleStreamEvents).Methods("POST")
}

// HandleCallStatus handles POST /status with Twilio's form-encoded call
// lifecycle events: initiated, ringing, answered, completed, failed, etc.
func (h *CarrierWebhookHandler) HandleCallStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	callSID := r.PostFormValue("CallSid")
	callStatus := r.PostFormValue("CallStatus")

	fields := []zap.Field{
		zap.String("call_sid", callSID),
		zap.String("call_status", callStatus),
		zap.String("from", r.PostFormValue("From")),
		zap.String("to", r.PostFormValue("To")),
	}

	switch callStatus {
	case "completed":
		if duration := r.PostFormValue("Duration"); duration != "" {
			fields = append(fields, zap.String("duration_seconds", duration))
		}
		if recordingURL := r.PostFormValue("RecordingUrl"); recordingURL != "" {
			fields = append(fields, zap.String("recording_url", recordingURL))
		}
		logger.Base().Info("call completed", fields...)
	case "busy", "no-answer", "canceled", "failed":
		if errorCode := r.PostFormValue("ErrorCode"); errorCode != "" {
			fields = append(fields,
				zap.String("error_code", errorCode),
				zap.String("error_message", r.PostFormValue("ErrorMessage")))
		}
		logger.Base().Warn("call ended abnormally", fields...)
	default:
		logger.Base().Info("call status update", fields...)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// StreamEvent is a Twilio media stream lifecycle event.
type StreamEvent struct {
	Event string `json:"event"` // "start", "media", "stop"
	Start *struct {
		StreamSID string   `json:"streamSid"`
		CallSID   string   `json:"callSid"`
		Tracks    []string `json:"tracks"`
	} `json:"start,omitempty"`
	Media *struct {
		Timestamp string `json:"timestamp"`
		Track     string `json:"track"`
	} `json:"media,omitempty"`
	Stop *struct {
		StreamSID string `json:"streamSid"`
		CallSID   string `json:"callSid"`
	} `json:"stop,omitempty"`
}

// HandleStreamEvents handles POST /stream-events.
func (h *CarrierWebhookHandler) HandleStreamEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var event StreamEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Base().Warn("failed to parse stream event", zap.Error(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	switch event.Event {
	case "start":
		if event.Start != nil {
			logger.Base().Info("stream started",
				zap.String("stream_sid", event.Start.StreamSID),
				zap.String("call_sid", event.Start.CallSID),
				zap.Strings("tracks", event.Start.Tracks))
		}
	case "media":
		// Media events fire constantly; sample roughly 1% of them.
		if event.Media != nil && rand.Float64() < 0.01 {
			logger.Base().Debug("media packet received",
				zap.String("timestamp", event.Media.Timestamp),
				zap.String("track", event.Media.Track))
		}
	case "stop":
		if event.Stop != nil {
			logger.Base().Info("stream stopped",
				zap.String("stream_sid", event.Stop.StreamSID),
				zap.String("call_sid", event.Stop.CallSID))
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
