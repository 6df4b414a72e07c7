package config

import (
	"fmt"
	"strings"
	"time"
)

// TransferConfig holds the call transfer service configuration
type TransferConfig struct {
	Port   string
	LogEnv string

	// Twilio configuration
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Publicly reachable base URL (ngrok or deployed host) used to build
	// carrier callback URLs. Empty means localhost-only operation, which is
	// enough for cold transfers but not for whisper transfers.
	PublicBaseURL string

	// Shared secret expected in the X-API-Key header on API endpoints
	ServiceAPIKey string

	// Ultravox configuration
	UltravoxAPIKey string
	UltravoxAPIURL string

	// Default numbers for the demo agent: where the transferCall tool points
	// and who the outbound demo call rings
	DestinationPhoneNumber string
	OutboundPhoneNumber    string

	// Registry backend: "memory" (default) or "redis"
	RegistryBackend string
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int

	// How the bridge handler waits for the conference to come up before
	// joining the caller leg
	JoinPollInterval time.Duration
	JoinPollTimeout  time.Duration
}

// BaseURL returns the base URL carrier callbacks should target.
func (c *TransferConfig) BaseURL() string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%s", c.Port)
}
