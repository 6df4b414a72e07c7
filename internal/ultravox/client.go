// Package ultravox is a minimal client for the Ultravox calls API: creating
// agent calls over the Twilio medium and declaring the transferCall tool
// that points back at this service.
package ultravox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"go.uber.org/zap"
)

// DefaultAPIURL is the Ultravox call creation endpoint.
const DefaultAPIURL = "https://api.ultravox.ai/api/calls"

const defaultSystemPrompt = "Your name is Steve and you are calling a person on the phone. Ask them their name and see how they are doing."

// Client calls the Ultravox REST API.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient creates an Ultravox API client. An empty apiURL falls back to
// the public endpoint.
func NewClient(apiKey, apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateCall creates an Ultravox call and returns its id and join URL.
func (c *Client) CreateCall(ctx context.Context, config CallConfig) (*CallResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("ultravox api key is not configured")
	}

	payload, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ultravox request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		logger.Base().Error("ultravox call creation failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("ultravox api returned status %d: %s", resp.StatusCode, string(body))
	}

	var callResp CallResponse
	if err := json.Unmarshal(body, &callResp); err != nil {
		return nil, fmt.Errorf("failed to parse ultravox response: %w", err)
	}

	logger.Base().Info("ultravox call created",
		zap.String("call_id", callResp.CallID))
	return &callResp, nil
}

// DefaultCallConfig builds the demo agent configuration: Twilio medium,
// user speaks first, and a transferCall tool that posts to this service's
// transfer endpoint with the shared API key.
func DefaultCallConfig(baseURL, destinationNumber, serviceAPIKey string) CallConfig {
	return CallConfig{
		SystemPrompt:         defaultSystemPrompt,
		Model:                "fixie-ai/ultravox",
		Voice:                "Mark",
		Temperature:          0.3,
		FirstSpeakerSettings: map[string]interface{}{"user": map[string]interface{}{}},
		SelectedTools:        []AgentTool{transferCallTool(baseURL, destinationNumber, serviceAPIKey)},
		Medium:               map[string]interface{}{"twilio": map[string]interface{}{}},
	}
}

func transferCallTool(baseURL, destinationNumber, serviceAPIKey string) AgentTool {
	return AgentTool{
		TemporaryTool: TemporaryTool{
			ModelToolName: "transferCall",
			Description:   "Transfers call to a human. Use this if a caller is upset or if there are questions you cannot answer.",
			Requirements: ToolRequirements{
				HTTPSecurityOptions: HTTPSecurityOptions{
					Options: []SecurityOption{
						{
							Requirements: map[string]APIKeyAuth{
								"api_key_auth": {HeaderAPIKey: HeaderAPIKey{Name: "X-API-Key"}},
							},
						},
					},
				},
			},
			AutomaticParameters: []Parameter{
				{
					Name:       "sessionId",
					Location:   "PARAMETER_LOCATION_BODY",
					KnownValue: "KNOWN_PARAM_CALL_ID",
				},
			},
			StaticParameters: []Parameter{
				{
					Name:     "destinationNumber",
					Location: "PARAMETER_LOCATION_BODY",
					Value:    destinationNumber,
				},
				{
					Name:     "useWhisper",
					Location: "PARAMETER_LOCATION_BODY",
					Value:    true,
				},
			},
			DynamicParameters: []Parameter{
				{
					Name:     "firstName",
					Location: "PARAMETER_LOCATION_BODY",
					Schema:   &ParameterSchema{Description: "The caller's first name", Type: "string"},
					Required: true,
				},
				{
					Name:     "lastName",
					Location: "PARAMETER_LOCATION_BODY",
					Schema:   &ParameterSchema{Description: "The caller's last name", Type: "string"},
					Required: true,
				},
				{
					Name:     "transferReason",
					Location: "PARAMETER_LOCATION_BODY",
					Schema:   &ParameterSchema{Description: "The reason the call is being transferred.", Type: "string"},
					Required: true,
				},
			},
			HTTP: ToolHTTP{
				BaseURLPattern: baseURL + "/api/transfer",
				HTTPMethod:     "POST",
			},
		},
		AuthTokens: map[string]string{"api_key_auth": serviceAPIKey},
	}
}
