package transfer

import "time"

// TransferRequest is the payload of the voice agent's transferCall tool.
// UseWhisper alone selects the warm path; TransferReason is content that is
// spoken to the agent, never a control signal.
type TransferRequest struct {
	SessionID         string `json:"sessionId"`
	DestinationNumber string `json:"destinationNumber"`
	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
	TransferReason    string `json:"transferReason,omitempty"`
	UseWhisper        bool   `json:"useWhisper,omitempty"`
}

// CallDetails echoes what a transfer acted on.
type CallDetails struct {
	SessionID         string    `json:"sessionId"`
	ProviderCallSID   string    `json:"providerCallSid,omitempty"`
	DestinationNumber string    `json:"destinationNumber"`
	TransferReason    string    `json:"transferReason,omitempty"`
	ConferenceName    string    `json:"conferenceName,omitempty"`
	TransferInitiated time.Time `json:"transferInitiated"`
}

// TransferResult is returned once the synchronous portion of a transfer has
// completed. For warm transfers that is when the agent leg has been placed,
// not when the agent answers.
type TransferResult struct {
	Status      string      `json:"status"`
	Message     string      `json:"message"`
	TransferID  string      `json:"transferId"`
	CallDetails CallDetails `json:"callDetails"`
}
