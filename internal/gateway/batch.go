package gateway

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// dispatchBatch sends msgs in chunks of opts.BatchSize. Sends inside a chunk
// run concurrently; chunks run one after another with opts.Delay between them,
// or back to back when it is negative. Results keep the input order.
func dispatchBatch(
	ctx context.Context,
	msgs []OutboundMessage,
	opts BatchOptions,
	send func(context.Context, OutboundMessage) SendResult,
	sleep sleepFunc,
) BatchResult {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}

	results := make([]SendResult, len(msgs))

	for start := 0; start < len(msgs); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(msgs))

		if err := ctx.Err(); err != nil {
			for i := start; i < len(msgs); i++ {
				results[i] = SendResult{CorrelationID: msgs[i].CorrelationID, Error: err.Error()}
			}
			break
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = send(ctx, msgs[i])
				return nil
			})
		}
		_ = g.Wait()

		if end < len(msgs) && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				for i := end; i < len(msgs); i++ {
					results[i] = SendResult{CorrelationID: msgs[i].CorrelationID, Error: err.Error()}
				}
				break
			}
		}
	}

	return summarize(msgs, results)
}

func summarize(msgs []OutboundMessage, results []SendResult) BatchResult {
	out := BatchResult{Results: results}
	for i, r := range results {
		if r.Success {
			out.SentCount++
			continue
		}
		out.FailedCount++
		out.Errors = append(out.Errors, BatchError{
			CorrelationID: msgs[i].CorrelationID,
			Phone:         MaskPhone(msgs[i].Phone),
			Error:         r.Error,
		})
	}
	return out
}
