package transfer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ClareAI/astra-transfer-service/internal/carrier"
	"github.com/ClareAI/astra-transfer-service/internal/registry"
	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidDestination reports whether number is a valid E.164 phone number.
func ValidDestination(number string) bool {
	return e164Pattern.MatchString(number)
}

// Config holds the carrier-side settings a warm transfer needs.
type Config struct {
	// FromNumber is the carrier number that originates the agent leg
	FromNumber string
	// BaseURL is the publicly reachable base for gather callbacks
	BaseURL string
	// JoinPollInterval / JoinPollTimeout bound how long the bridge handler
	// waits for the conference to come up before joining the caller leg
	JoinPollInterval time.Duration
	JoinPollTimeout  time.Duration
}

// Service orchestrates cold and warm call transfers against the carrier.
type Service struct {
	store   registry.Store
	carrier carrier.CallControl
	cfg     Config

	mu       sync.Mutex
	inFlight map[string]struct{}

	joinFailures atomic.Int64

	// test seams
	now      func() time.Time
	sleep    func(time.Duration)
	joinDone chan joinResult
}

// NewService creates a transfer orchestrator. The store and carrier adapter
// are injected so tests can substitute fakes.
func NewService(store registry.Store, cc carrier.CallControl, cfg Config) *Service {
	if cfg.JoinPollInterval <= 0 {
		cfg.JoinPollInterval = 500 * time.Millisecond
	}
	if cfg.JoinPollTimeout <= 0 {
		cfg.JoinPollTimeout = 10 * time.Second
	}
	return &Service{
		store:    store,
		carrier:  cc,
		cfg:      cfg,
		inFlight: make(map[string]struct{}),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// JoinFailures returns how many background caller joins have failed since
// startup.
func (s *Service) JoinFailures() int64 {
	return s.joinFailures.Load()
}

// Transfer moves the registered call for req.SessionID to the destination
// number. With UseWhisper set it runs the warm path: hold the caller, ring
// the agent with a whispered reason, and bridge via conference once the
// agent confirms. Otherwise the caller's leg is redirected to dial the
// destination directly.
//
// The warm path returns as soon as the agent leg is placed; completion of
// the bridge happens in CompleteBridge when the agent presses a digit.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if !ValidDestination(req.DestinationNumber) {
		return nil, ErrInvalidDestination
	}

	if !s.acquire(req.SessionID) {
		return nil, ErrTransferInProgress
	}
	defer s.release(req.SessionID)

	record, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("call not found: %s: %w", req.SessionID, err)
	}

	transferID := uuid.NewString()
	logger.Base().Info("transfer requested",
		zap.String("transfer_id", transferID),
		zap.String("session_id", req.SessionID),
		zap.String("destination", req.DestinationNumber),
		zap.Bool("use_whisper", req.UseWhisper))

	if req.UseWhisper {
		return s.whisperTransfer(ctx, transferID, record, req)
	}
	return s.coldTransfer(ctx, transferID, record, req)
}

// coldTransfer redirects the caller's live leg to ring the destination.
// Once the destination answers the carrier bridges the two parties and the
// orchestrator is out of the picture.
func (s *Service) coldTransfer(ctx context.Context, transferID string, record registry.CallRecord, req TransferRequest) (*TransferResult, error) {
	doc, err := carrier.Dial(req.DestinationNumber)
	if err != nil {
		return nil, err
	}
	if err := s.carrier.UpdateCall(ctx, record.CarrierCallSID, doc); err != nil {
		return nil, err
	}

	logger.Base().Info("cold transfer initiated",
		zap.String("transfer_id", transferID),
		zap.String("provider_call_sid", record.CarrierCallSID),
		zap.String("destination", req.DestinationNumber))

	return &TransferResult{
		Status:     "success",
		Message:    "Call transfer initiated",
		TransferID: transferID,
		CallDetails: CallDetails{
			SessionID:         req.SessionID,
			ProviderCallSID:   record.CarrierCallSID,
			DestinationNumber: req.DestinationNumber,
			TransferInitiated: s.now(),
		},
	}, nil
}

// whisperTransfer holds the caller, then rings the agent with the whispered
// reason and a digit gather pointing at the connect-conference callback.
func (s *Service) whisperTransfer(ctx context.Context, transferID string, record registry.CallRecord, req TransferRequest) (*TransferResult, error) {
	if s.cfg.FromNumber == "" || s.cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	// Hold must come first so the caller hears music instead of the agent
	// leg's ringback.
	hold, err := carrier.HoldMusic()
	if err != nil {
		return nil, err
	}
	if err := s.carrier.UpdateCall(ctx, record.CarrierCallSID, hold); err != nil {
		return nil, err
	}

	// The timestamp keeps repeated attempts for one session from colliding
	// on a conference room that was never cleaned up.
	conferenceName := fmt.Sprintf("conf_%s_%d", req.SessionID, s.now().UnixMilli())
	gatherAction := fmt.Sprintf("%s/connect-conference/%s/%s",
		strings.TrimRight(s.cfg.BaseURL, "/"), conferenceName, record.CarrierCallSID)

	whisperMessage := req.TransferReason
	if whisperMessage == "" {
		whisperMessage = "You have an incoming transferred caller."
	}
	doc, err := carrier.AgentWhisper(whisperMessage, gatherAction)
	if err != nil {
		return nil, err
	}

	agentCallSID, err := s.carrier.CreateCall(ctx, carrier.CreateCallParams{
		To:    req.DestinationNumber,
		From:  s.cfg.FromNumber,
		TwiML: doc,
	})
	if err != nil {
		// The caller stays on hold; releasing them is the invoker's call,
		// typically by retrying or falling back to a cold transfer.
		logger.Base().Error("failed to place agent call, caller remains on hold",
			zap.String("transfer_id", transferID),
			zap.String("provider_call_sid", record.CarrierCallSID),
			zap.Error(err))
		return nil, err
	}

	logger.Base().Info("whisper transfer initiated",
		zap.String("transfer_id", transferID),
		zap.String("conference", conferenceName),
		zap.String("agent_call_sid", agentCallSID),
		zap.String("destination", req.DestinationNumber))

	return &TransferResult{
		Status:     "success",
		Message:    "Call transfer with whisper initiated",
		TransferID: transferID,
		CallDetails: CallDetails{
			SessionID:         req.SessionID,
			ProviderCallSID:   record.CarrierCallSID,
			DestinationNumber: req.DestinationNumber,
			TransferReason:    req.TransferReason,
			ConferenceName:    conferenceName,
			TransferInitiated: s.now(),
		},
	}, nil
}

func (s *Service) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *Service) release(sessionID string) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}
