package correlate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoAskAway/askit-sdk/bus"
	domainerrors "github.com/GoAskAway/askit-sdk/domain/errors"
	"github.com/GoAskAway/askit-sdk/log"
	"github.com/GoAskAway/askit-sdk/wireformat"
)

// recordingSend captures outbound request events.
type recordingSend struct {
	mu   sync.Mutex
	sent []wireformat.Envelope
}

func (s *recordingSend) send(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, wireformat.Envelope{Event: event, Payload: payload})
	return nil
}

func (s *recordingSend) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestCorrelator(clk clock.Clock, send *recordingSend) *Correlator {
	return New("askit:fetch:request", "askit:fetch:response", send.send,
		WithClock(clk),
		WithLogger(log.Nop()),
	)
}

type callResult struct {
	resp any
	err  error
}

// startCall runs Call on a goroutine and waits until the pending entry is
// registered and the request has gone out.
func startCall(t *testing.T, c *Correlator, send *recordingSend, req any) <-chan callResult {
	t.Helper()
	before := send.count()
	done := make(chan callResult, 1)
	go func() {
		resp, err := c.Call(context.Background(), req)
		done <- callResult{resp, err}
	}()
	require.Eventually(t, func() bool {
		return send.count() > before
	}, time.Second, time.Millisecond)
	return done
}

func TestCall_ResolvesWithResponsePayload(t *testing.T) {
	send := &recordingSend{}
	c := newTestCorrelator(clock.NewMock(), send)

	req := map[string]any{"requestId": "r1", "url": "https://example.test"}
	done := startCall(t, c, send, req)

	resp := map[string]any{"requestId": "r1", "status": float64(200)}
	c.HandleResponse(resp)

	result := <-done
	require.NoError(t, result.err)
	assert.Equal(t, resp, result.resp, "the full inbound payload resolves the call")
	assert.Zero(t, c.PendingCount())
}

func TestCall_TimeoutRemovesPendingEntry(t *testing.T) {
	send := &recordingSend{}
	clk := clock.NewMock()
	c := newTestCorrelator(clk, send)

	done := startCall(t, c, send, map[string]any{"requestId": "r1"})

	var result callResult
	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		select {
		case result = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, time.Millisecond)

	var timeoutErr *domainerrors.TimeoutError
	require.ErrorAs(t, result.err, &timeoutErr)
	assert.Equal(t, "askit:fetch:request", timeoutErr.RequestEvent)
	assert.Equal(t, "askit:fetch:response", timeoutErr.ResponseEvent)
	assert.Equal(t, "r1", timeoutErr.RequestID)
	assert.True(t, timeoutErr.Timeout())
	assert.Zero(t, c.PendingCount(), "timeout must release the pending entry")
}

func TestCall_LateResponseIsDroppedAfterTimeout(t *testing.T) {
	send := &recordingSend{}
	clk := clock.NewMock()
	c := newTestCorrelator(clk, send)

	done := startCall(t, c, send, map[string]any{"requestId": "r1"})
	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, time.Millisecond)

	// The entry is gone; the late response must vanish silently, and the
	// id becomes reusable (proof there is no stale entry).
	assert.NotPanics(t, func() {
		c.HandleResponse(map[string]any{"requestId": "r1"})
	})

	done2 := startCall(t, c, send, map[string]any{"requestId": "r1"})
	c.HandleResponse(map[string]any{"requestId": "r1", "attempt": float64(2)})
	result := <-done2
	require.NoError(t, result.err)
}

func TestCall_ResponseCancelsTimer(t *testing.T) {
	send := &recordingSend{}
	clk := clock.NewMock()
	c := newTestCorrelator(clk, send)

	done := startCall(t, c, send, map[string]any{"requestId": "r1"})
	c.HandleResponse(map[string]any{"requestId": "r1"})
	result := <-done
	require.NoError(t, result.err)

	// Advancing past the timeout afterwards must not produce anything.
	clk.Add(time.Minute)
	assert.Zero(t, c.PendingCount())
}

func TestCall_MissingRequestIDFailsImmediately(t *testing.T) {
	send := &recordingSend{}
	c := newTestCorrelator(clock.NewMock(), send)

	_, err := c.Call(context.Background(), map[string]any{"url": "https://example.test"})

	var missingErr *domainerrors.MissingRequestIDError
	require.ErrorAs(t, err, &missingErr)
	assert.Zero(t, send.count(), "nothing goes out for an uncorrelatable request")
	assert.Zero(t, c.PendingCount())
}

func TestCall_DuplicateInFlightIDRejected(t *testing.T) {
	send := &recordingSend{}
	c := newTestCorrelator(clock.NewMock(), send)

	done := startCall(t, c, send, map[string]any{"requestId": "r1"})

	_, err := c.Call(context.Background(), map[string]any{"requestId": "r1"})
	var dupErr *domainerrors.DuplicateRequestError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "r1", dupErr.RequestID)

	// The first call is unaffected.
	c.HandleResponse(map[string]any{"requestId": "r1"})
	result := <-done
	require.NoError(t, result.err)
}

func TestCall_ConcurrentDistinctIDsAreIndependent(t *testing.T) {
	send := &recordingSend{}
	c := newTestCorrelator(clock.NewMock(), send)

	done1 := startCall(t, c, send, wireformat.Request{RequestID: "r1"})
	done2 := startCall(t, c, send, wireformat.Request{RequestID: "r2"})
	require.Equal(t, 2, c.PendingCount())

	// Resolve in reverse order.
	c.HandleResponse(map[string]any{"requestId": "r2", "n": float64(2)})
	c.HandleResponse(map[string]any{"requestId": "r1", "n": float64(1)})

	r1 := <-done1
	r2 := <-done2
	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	assert.Equal(t, float64(1), r1.resp.(map[string]any)["n"])
	assert.Equal(t, float64(2), r2.resp.(map[string]any)["n"])
}

func TestCall_ContextCancellationReleasesEntry(t *testing.T) {
	send := &recordingSend{}
	c := newTestCorrelator(clock.NewMock(), send)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan callResult, 1)
	go func() {
		resp, err := c.Call(ctx, wireformat.Request{RequestID: "r1"})
		done <- callResult{resp, err}
	}()
	require.Eventually(t, func() bool { return c.PendingCount() == 1 }, time.Second, time.Millisecond)

	cancel()
	result := <-done
	require.ErrorIs(t, result.err, context.Canceled)
	assert.Zero(t, c.PendingCount())
}

func TestCall_SendFailureReleasesEntry(t *testing.T) {
	failing := func(string, any) error {
		return assert.AnError
	}
	c := New("req", "resp", failing, WithClock(clock.NewMock()), WithLogger(log.Nop()))

	_, err := c.Call(context.Background(), wireformat.Request{RequestID: "r1"})
	require.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, c.PendingCount())
}

func TestHandleResponse_UnknownIDDroppedSilently(t *testing.T) {
	send := &recordingSend{}
	c := newTestCorrelator(clock.NewMock(), send)

	assert.NotPanics(t, func() {
		c.HandleResponse(map[string]any{"requestId": "nobody"})
		c.HandleResponse(map[string]any{"noId": true})
		c.HandleResponse(nil)
	})
}

func TestBind_ResolvesThroughBus(t *testing.T) {
	send := &recordingSend{}
	c := newTestCorrelator(clock.NewMock(), send)

	b := bus.New(bus.WithLogger(log.Nop()))
	sub := c.Bind(b)
	require.Equal(t, "askit:fetch:response", sub.Event())

	done := startCall(t, c, send, wireformat.Request{RequestID: "r1"})
	b.HandleEngineMessage("askit:fetch:response", map[string]any{"requestId": "r1"})

	result := <-done
	require.NoError(t, result.err)
}
