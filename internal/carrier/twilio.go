package carrier

import (
	"context"
	"errors"

	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// statusCallbackEvents are the call lifecycle events forwarded to the
// status webhook when a callback URL is supplied.
var statusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

// TwilioCallControl implements CallControl against the Twilio voice API.
type TwilioCallControl struct {
	client *twilio.RestClient
}

// NewTwilioCallControl creates a Twilio-backed call control adapter.
func NewTwilioCallControl(accountSID, authToken string) *TwilioCallControl {
	return &TwilioCallControl{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}
}

// UpdateCall replaces the live call's TwiML.
func (c *TwilioCallControl) UpdateCall(ctx context.Context, callSID, twiML string) error {
	params := &api.UpdateCallParams{}
	params.SetTwiml(twiML)

	if _, err := c.client.Api.UpdateCall(callSID, params); err != nil {
		logger.Base().Error("failed to update call",
			zap.String("call_sid", callSID),
			zap.Error(err))
		return &Error{Op: "update call", Err: err}
	}
	return nil
}

// CreateCall originates a new outbound call leg.
func (c *TwilioCallControl) CreateCall(ctx context.Context, p CreateCallParams) (string, error) {
	params := &api.CreateCallParams{}
	params.SetTo(p.To)
	params.SetFrom(p.From)
	params.SetTwiml(p.TwiML)
	if p.StatusCallback != "" {
		params.SetStatusCallback(p.StatusCallback)
		params.SetStatusCallbackEvent(statusCallbackEvents)
		params.SetStatusCallbackMethod("POST")
	}

	resp, err := c.client.Api.CreateCall(params)
	if err != nil {
		logger.Base().Error("failed to create call",
			zap.String("to", p.To),
			zap.Error(err))
		return "", &Error{Op: "create call", Err: err}
	}
	if resp.Sid == nil {
		return "", &Error{Op: "create call", Err: errors.New("carrier returned no call sid")}
	}

	logger.Base().Info("outbound call created",
		zap.String("call_sid", *resp.Sid),
		zap.String("to", p.To),
		zap.String("from", p.From))
	return *resp.Sid, nil
}

// ConferenceActive checks whether a conference with the given friendly name
// is in progress.
func (c *TwilioCallControl) ConferenceActive(ctx context.Context, name string) (bool, error) {
	params := &api.ListConferenceParams{}
	params.SetFriendlyName(name)
	params.SetStatus("in-progress")
	params.SetLimit(1)

	conferences, err := c.client.Api.ListConference(params)
	if err != nil {
		return false, &Error{Op: "list conferences", Err: err}
	}
	return len(conferences) > 0, nil
}
