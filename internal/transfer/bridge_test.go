package transfer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBridgeService(t *testing.T, fc *fakeCarrier) *Service {
	t.Helper()
	svc, _ := newTestService(t, fc, whisperConfig())
	svc.joinDone = make(chan joinResult, 1)
	return svc
}

func awaitJoin(t *testing.T, svc *Service) joinResult {
	t.Helper()
	select {
	case result := <-svc.joinDone:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("caller join did not complete")
		return joinResult{}
	}
}

func TestCompleteBridgeJoinOrder(t *testing.T) {
	fc := &fakeCarrier{}
	svc := newBridgeService(t, fc)

	doc, err := svc.CompleteBridge("conf_sess-1_123", "CA123", "+15557654321", "5")
	require.NoError(t, err)

	// Agent leg: starts the room, does not tear it down on exit.
	assert.Contains(t, doc, "Connecting you to the caller now.")
	assert.Contains(t, doc, `startConferenceOnEnter="true"`)
	assert.Contains(t, doc, `endConferenceOnExit="false"`)
	assert.Contains(t, doc, "conf_sess-1_123")

	result := awaitJoin(t, svc)
	require.NoError(t, result.Err)

	// Caller leg joins second, as joiner: the room must already exist and
	// the caller hanging up ends it.
	ops := fc.recorded()
	require.Len(t, ops, 1)
	assert.Equal(t, "update", ops[0].Op)
	assert.Equal(t, "CA123", ops[0].CallSID)
	assert.Contains(t, ops[0].TwiML, `startConferenceOnEnter="false"`)
	assert.Contains(t, ops[0].TwiML, `endConferenceOnExit="true"`)
	assert.Contains(t, ops[0].TwiML, "conf_sess-1_123")
}

func TestCompleteBridgeWaitsForConference(t *testing.T) {
	fc := &fakeCarrier{activeAfter: 3}
	svc := newBridgeService(t, fc)

	var slept int
	svc.sleep = func(time.Duration) { slept++ }

	_, err := svc.CompleteBridge("conf_sess-1_123", "CA123", "+15557654321", "1")
	require.NoError(t, err)

	result := awaitJoin(t, svc)
	require.NoError(t, result.Err)

	assert.GreaterOrEqual(t, fc.checks, 4, "polled until the conference existed")
	assert.GreaterOrEqual(t, slept, 3)

	ops := fc.recorded()
	require.Len(t, ops, 1)
	assert.Equal(t, "update", ops[0].Op)
}

func TestCompleteBridgeJoinsDespiteMissingConference(t *testing.T) {
	// The readiness poll never sees the room; the join is attempted anyway
	// so a slow carrier does not strand the caller.
	fc := &fakeCarrier{activeAfter: 1 << 30}
	svc := newBridgeService(t, fc)

	_, err := svc.CompleteBridge("conf_sess-1_123", "CA123", "+15557654321", "9")
	require.NoError(t, err)

	result := awaitJoin(t, svc)
	assert.NoError(t, result.Err)
	require.Len(t, fc.recorded(), 1)
	assert.EqualValues(t, 0, svc.JoinFailures())
}

func TestCompleteBridgeJoinDeadlineOutlivesPoll(t *testing.T) {
	// The readiness poll budget is fully spent before the join runs; the
	// caller update must still carry a live deadline of its own.
	fc := &fakeCarrier{activeAfter: 1 << 30}
	svc, _ := newTestService(t, fc, Config{
		FromNumber:       "+15550001111",
		BaseURL:          "https://example.ngrok.app",
		JoinPollInterval: time.Millisecond,
		JoinPollTimeout:  time.Nanosecond,
	})
	svc.joinDone = make(chan joinResult, 1)

	_, err := svc.CompleteBridge("conf_sess-1_123", "CA123", "+15557654321", "7")
	require.NoError(t, err)

	result := awaitJoin(t, svc)
	require.NoError(t, result.Err)
	assert.NoError(t, fc.updateCtxErr)
	assert.EqualValues(t, 0, svc.JoinFailures())
}

func TestCompleteBridgeCallerJoinFailure(t *testing.T) {
	fc := &fakeCarrier{updateErr: errors.New("call already ended")}
	svc := newBridgeService(t, fc)

	doc, err := svc.CompleteBridge("conf_sess-1_123", "CA123", "+15557654321", "2")
	require.NoError(t, err)
	assert.NotEmpty(t, doc, "agent response is committed regardless of the caller join outcome")

	result := awaitJoin(t, svc)
	assert.Error(t, result.Err)
	assert.EqualValues(t, 1, svc.JoinFailures())
}
