package registry

import (
	"context"
	"errors"
	"time"
)

// ErrCallNotFound is returned when a session id has no registered call.
var ErrCallNotFound = errors.New("call not found")

// CallRecord binds a voice-AI session id to the carrier call leg that
// carries its audio. Records are immutable after registration; transfers
// act on the carrier side, not on the record.
type CallRecord struct {
	SessionID      string    `json:"sessionId"`
	CarrierCallSID string    `json:"providerCallSid"`
	CallerNumber   string    `json:"callerNumber"`
	StartTime      time.Time `json:"startTime"`
	JoinURL        string    `json:"joinUrl,omitempty"`
}

// Store tracks active calls. Register is last-write-wins for a session id;
// callers must not register two distinct live calls under one id.
type Store interface {
	Register(ctx context.Context, sessionID, carrierCallSID, callerNumber, joinURL string) error
	Get(ctx context.Context, sessionID string) (CallRecord, error)
	ListAll(ctx context.Context) ([]CallRecord, error)
}
