package handler

import (
	"net/http"

	"github.com/ClareAI/astra-transfer-service/internal/transfer"
	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ConferenceHandler completes warm transfers when the carrier reports the
// agent's keypress.
type ConferenceHandler struct {
	service *transfer.Service
}

// NewConferenceHandler creates a new conference handler
func NewConferenceHandler(service *transfer.Service) *ConferenceHandler {
	return &ConferenceHandler{service: service}
}

// SetupRoutes registers the gather callback route. No API key here: the
// URL is only known to the carrier, which posts form-encoded gather data.
func (h *ConferenceHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/connect-conference/{conferenceName}/{customerCallSid}", h.HandleConnectConference).Methods("POST")
}

// HandleConnectConference handles POST /connect-conference/{conferenceName}/{customerCallSid}.
// It always answers the agent leg with TwiML; the caller join continues in
// the background.
func (h *ConferenceHandler) HandleConnectConference(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conferenceName := vars["conferenceName"]
	customerCallSID := vars["customerCallSid"]

	if err := r.ParseForm(); err != nil {
		logger.Base().Warn("failed to parse gather callback form", zap.Error(err))
	}

	doc, err := h.service.CompleteBridge(conferenceName, customerCallSID,
		r.PostFormValue("From"), r.PostFormValue("Digits"))
	if err != nil {
		logger.Base().Error("failed to build agent conference response",
			zap.String("conference", conferenceName),
			zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
