// Package carrier abstracts the telephony carrier operations the transfer
// flow depends on: rewriting a live call's instructions, originating a new
// call leg, and checking whether a named conference room is running.
package carrier

import (
	"context"
	"fmt"
)

// CreateCallParams describes a new outbound call leg.
type CreateCallParams struct {
	To    string
	From  string
	TwiML string
	// StatusCallback, when set, receives lifecycle events for the leg
	StatusCallback string
}

// CallControl is implemented by carrier adapters. The contract is
// carrier-agnostic; the Twilio implementation lives in twilio.go.
type CallControl interface {
	// UpdateCall replaces the instruction document of an in-progress call.
	UpdateCall(ctx context.Context, callSID, twiML string) error

	// CreateCall originates a new outbound leg and returns the carrier's
	// reference for it.
	CreateCall(ctx context.Context, params CreateCallParams) (string, error)

	// ConferenceActive reports whether a conference with the given friendly
	// name is currently in progress on the carrier side.
	ConferenceActive(ctx context.Context, name string) (bool, error)
}

// Error wraps a failed carrier API operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("carrier: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
