package carrier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldMusic(t *testing.T) {
	doc, err := HoldMusic()
	require.NoError(t, err)
	assert.Contains(t, doc, "<Play>")
	assert.Contains(t, doc, holdMusicURL)
}

func TestDial(t *testing.T) {
	doc, err := Dial("+15557654321")
	require.NoError(t, err)
	assert.Contains(t, doc, "<Dial>+15557654321</Dial>")
	assert.NotContains(t, doc, "<Conference")
}

func TestAgentWhisper(t *testing.T) {
	action := "https://example.com/connect-conference/conf_sess-1_123/CA123"
	doc, err := AgentWhisper("Caller is upset about billing.", action)
	require.NoError(t, err)

	assert.Contains(t, doc, "Caller is upset about billing.")
	assert.Contains(t, doc, "Press any key to connect the caller.")
	assert.Contains(t, doc, "<Gather")
	assert.Contains(t, doc, `numDigits="1"`)
	assert.Contains(t, doc, action)
}

func TestAgentConferenceRoles(t *testing.T) {
	doc, err := AgentConference("conf_sess-1_123")
	require.NoError(t, err)

	assert.Contains(t, doc, "Connecting you to the caller now.")
	assert.Contains(t, doc, `startConferenceOnEnter="true"`)
	assert.Contains(t, doc, `endConferenceOnExit="false"`)
	assert.Contains(t, doc, "conf_sess-1_123")
}

func TestCallerConferenceRoles(t *testing.T) {
	doc, err := CallerConference("conf_sess-1_123")
	require.NoError(t, err)

	assert.Contains(t, doc, `startConferenceOnEnter="false"`)
	assert.Contains(t, doc, `endConferenceOnExit="true"`)
	assert.Contains(t, doc, "conf_sess-1_123")
	assert.NotContains(t, doc, "<Say")
}

func TestStreamConnect(t *testing.T) {
	doc, err := StreamConnect("wss://example.com/join/abc", "https://example.com/stream-events")
	require.NoError(t, err)

	assert.Contains(t, doc, "<Connect>")
	assert.Contains(t, doc, `url="wss://example.com/join/abc"`)
	assert.Contains(t, doc, "streamEventsUrl")

	doc, err = StreamConnect("wss://example.com/join/abc", "")
	require.NoError(t, err)
	assert.NotContains(t, doc, "streamEventsUrl")
}
