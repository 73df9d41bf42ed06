package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeMessages(n int) []OutboundMessage {
	msgs := make([]OutboundMessage, n)
	for i := range msgs {
		msgs[i] = OutboundMessage{
			CorrelationID: fmt.Sprintf("corr-%03d", i),
			Phone:         fmt.Sprintf("+2417400%04d", i),
			Body:          "hello",
		}
	}
	return msgs
}

type recordingSleep struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, d)
	return nil
}

func okSend(_ context.Context, m OutboundMessage) SendResult {
	return SendResult{CorrelationID: m.CorrelationID, Success: true, ProviderMessageID: "wamid." + m.CorrelationID}
}

func TestDispatchBatchPacing(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		batchSize  int
		wantSleeps int
	}{
		{"exactly one chunk", 80, 80, 0},
		{"one over", 81, 80, 1},
		{"three chunks", 250, 100, 2},
		{"empty", 0, 80, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingSleep{}
			res := dispatchBatch(context.Background(), makeMessages(tt.total),
				BatchOptions{BatchSize: tt.batchSize, Delay: 1500 * time.Millisecond}, okSend, rec.sleep)

			assert.Equal(t, tt.total, res.SentCount)
			assert.Zero(t, res.FailedCount)
			require.Len(t, rec.calls, tt.wantSleeps)
			for _, d := range rec.calls {
				assert.Equal(t, 1500*time.Millisecond, d)
			}
		})
	}
}

func TestDispatchBatchDefaults(t *testing.T) {
	rec := &recordingSleep{}
	res := dispatchBatch(context.Background(), makeMessages(161), BatchOptions{}, okSend, rec.sleep)

	assert.Equal(t, 161, res.SentCount)
	assert.Equal(t, []time.Duration{DefaultDelay, DefaultDelay}, rec.calls)
}

func TestDispatchBatchNoDelay(t *testing.T) {
	rec := &recordingSleep{}
	res := dispatchBatch(context.Background(), makeMessages(161), BatchOptions{BatchSize: 80, Delay: NoDelay}, okSend, rec.sleep)

	assert.Equal(t, 161, res.SentCount)
	assert.Empty(t, rec.calls)
}

func TestDispatchBatchChunksAreSequential(t *testing.T) {
	var inFlight, maxInFlight int32
	send := func(_ context.Context, m OutboundMessage) SendResult {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return okSend(context.Background(), m)
	}

	rec := &recordingSleep{}
	dispatchBatch(context.Background(), makeMessages(30), BatchOptions{BatchSize: 10, Delay: time.Millisecond}, send, rec.sleep)

	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(10))
	assert.Len(t, rec.calls, 2)
}

func TestDispatchBatchErrorsKeyedByCorrelationID(t *testing.T) {
	msgs := makeMessages(5)
	// Two recipients share the same last four digits.
	msgs[1].Phone = "+24100001234"
	msgs[3].Phone = "+24199991234"

	send := func(_ context.Context, m OutboundMessage) SendResult {
		if m.CorrelationID == "corr-003" {
			return SendResult{CorrelationID: m.CorrelationID, Error: "invalid recipient"}
		}
		return okSend(context.Background(), m)
	}

	res := dispatchBatch(context.Background(), msgs, BatchOptions{BatchSize: 80}, send, (&recordingSleep{}).sleep)

	assert.Equal(t, 4, res.SentCount)
	assert.Equal(t, 1, res.FailedCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "corr-003", res.Errors[0].CorrelationID)
	assert.Equal(t, "+*******1234", res.Errors[0].Phone)
	assert.Equal(t, "invalid recipient", res.Errors[0].Error)

	require.Len(t, res.Results, 5)
	for i, r := range res.Results {
		assert.Equal(t, msgs[i].CorrelationID, r.CorrelationID)
	}
}

func TestDispatchBatchCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	res := dispatchBatch(ctx, makeMessages(5), BatchOptions{BatchSize: 2, Delay: time.Second}, okSend, sleep)

	assert.Equal(t, 2, res.SentCount)
	assert.Equal(t, 3, res.FailedCount)
	for _, e := range res.Errors {
		assert.True(t, strings.Contains(e.Error, "canceled"), e.Error)
	}
}

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+24174000001", "+*******0001"},
		{"0612345678", "******5678"},
		{"1234", "1234"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MaskPhone(tt.in); got != tt.want {
				t.Errorf("MaskPhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
