package transfer

import "errors"

var (
	// ErrInvalidDestination means the destination number failed E.164
	// validation. No carrier operation has been attempted.
	ErrInvalidDestination = errors.New("invalid destination number, must be E.164 format")

	// ErrTransferInProgress means another transfer for the same session is
	// still running.
	ErrTransferInProgress = errors.New("transfer already in progress for this call")

	// ErrNotConfigured means a warm transfer was requested without a carrier
	// origin number or a publicly reachable base URL.
	ErrNotConfigured = errors.New("whisper transfer requires a carrier phone number and a public base URL")
)
