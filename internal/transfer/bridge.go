package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/ClareAI/astra-transfer-service/internal/carrier"
	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"go.uber.org/zap"
)

// joinResult is the outcome of one background caller join.
type joinResult struct {
	Conference string
	CallSID    string
	Err        error
}

// CompleteBridge finishes a warm transfer after the agent pressed a digit.
// It returns the TwiML for the agent's leg (confirmation plus conference
// join as initiator) and starts moving the caller's leg into the room in
// the background. Any digit completes the transfer.
//
// The caller join is detached from the agent's HTTP response on purpose:
// by the time it runs the response has already been sent, so its failures
// are logged and counted rather than surfaced.
func (s *Service) CompleteBridge(conferenceName, callerSID, agentNumber, digits string) (string, error) {
	logger.Base().Info("conference connection requested",
		zap.String("conference", conferenceName),
		zap.String("customer_call_sid", callerSID),
		zap.String("agent_number", agentNumber),
		zap.String("digits", digits))

	doc, err := carrier.AgentConference(conferenceName)
	if err != nil {
		return "", err
	}

	go s.joinCaller(conferenceName, callerSID)

	return doc, nil
}

// joinUpdateTimeout bounds the caller-join update itself, separately from
// the readiness poll whose budget may already be spent.
const joinUpdateTimeout = 15 * time.Second

// joinCaller waits for the conference to exist on the carrier side and then
// redirects the caller's leg into it.
func (s *Service) joinCaller(conferenceName, callerSID string) {
	pollCtx, cancelPoll := context.WithTimeout(context.Background(), s.cfg.JoinPollTimeout)
	pollErr := s.waitForConference(pollCtx, conferenceName)
	cancelPoll()
	if pollErr != nil {
		// Join anyway: the poll is a readiness check, not a gate. If the
		// room still does not exist the update below fails and is counted.
		logger.Base().Warn("conference not confirmed before joining caller",
			zap.String("conference", conferenceName),
			zap.Error(pollErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), joinUpdateTimeout)
	defer cancel()

	doc, err := carrier.CallerConference(conferenceName)
	if err == nil {
		err = s.carrier.UpdateCall(ctx, callerSID, doc)
	}

	if err != nil {
		s.joinFailures.Add(1)
		logger.Base().Error("failed to join caller to conference",
			zap.String("conference", conferenceName),
			zap.String("customer_call_sid", callerSID),
			zap.Error(err))
	} else {
		logger.Base().Info("caller joined conference",
			zap.String("conference", conferenceName),
			zap.String("customer_call_sid", callerSID))
	}

	if s.joinDone != nil {
		s.joinDone <- joinResult{Conference: conferenceName, CallSID: callerSID, Err: err}
	}
}

// waitForConference polls the carrier until the named conference is in
// progress or the poll budget is spent.
func (s *Service) waitForConference(ctx context.Context, conferenceName string) error {
	attempts := int(s.cfg.JoinPollTimeout / s.cfg.JoinPollInterval)
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			s.sleep(s.cfg.JoinPollInterval)
		}
		active, err := s.carrier.ConferenceActive(ctx, conferenceName)
		if err != nil {
			lastErr = err
			continue
		}
		if active {
			return nil
		}
		lastErr = nil
	}

	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("conference %s not active after %s", conferenceName, s.cfg.JoinPollTimeout)
}
