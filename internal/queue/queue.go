// Package queue is a Redis-backed job queue with delayed jobs, bounded
// retries and a capped history of finished jobs.
//
// Keys for queue "q" and task "t":
//
//	queue:q:jobs        hash  id -> job JSON (pending and active jobs)
//	queue:q:id          counter
//	queue:q:wait:t      list  ids ready to run
//	queue:q:delayed:t   zset  ids scored by due time (unix ms)
//	queue:q:active:t    list  ids being processed
//	queue:q:lock:id     string held by the worker of an active job, with TTL
//	queue:q:completed   list  job JSON, newest first, capped
//	queue:q:failed      list  job JSON, newest first, capped
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/wa-marketing/backend/internal/apperr"
	"github.com/wa-marketing/backend/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultAttempts      = 3
	DefaultBackoff       = 2 * time.Second
	DefaultKeepCompleted = 100
	DefaultKeepFailed    = 50
	DefaultConcurrency   = 5
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultLockTTL       = 30 * time.Second

	promoteBatch = 100
	// bookkeepingTimeout bounds the Redis writes that settle a job once its
	// handler returned, which run even after shutdown began.
	bookkeepingTimeout = 5 * time.Second
)

type Job struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CampaignID   string          `json:"campaign_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	AttemptsMade int             `json:"attempts_made"`
	MaxAttempts  int             `json:"max_attempts"`
	Backoff      time.Duration   `json:"backoff"`
	Delay        time.Duration   `json:"delay"`
	CreatedAt    time.Time       `json:"created_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	FailedReason string          `json:"failed_reason,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

type JobOptions struct {
	Delay      time.Duration
	Attempts   int
	Backoff    time.Duration
	CampaignID string
}

// Handler processes one job. Returning an error wrapped with
// backoff.Permanent parks the job as failed without further attempts.
type Handler func(ctx context.Context, job *Job) (any, error)

type Options struct {
	Attempts      int
	Backoff       time.Duration
	KeepCompleted int
	KeepFailed    int
	PollInterval  time.Duration
	// LockTTL is how long an active job stays claimed without a heartbeat.
	// Active jobs whose lock expired are put back on the wait list.
	LockTTL time.Duration
}

type Counts struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

type registration struct {
	handler     Handler
	concurrency int
}

type Queue struct {
	rdb  *redis.Client
	name string
	opts Options
	log  *zap.Logger
	now  func() time.Time

	mu          sync.RWMutex
	handlers    map[string]registration
	onCompleted []func(*Job)
	onFailed    []func(*Job, error)
}

func New(rdb *redis.Client, name string, opts Options, log *zap.Logger) *Queue {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.KeepCompleted <= 0 {
		opts.KeepCompleted = DefaultKeepCompleted
	}
	if opts.KeepFailed <= 0 {
		opts.KeepFailed = DefaultKeepFailed
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	return &Queue{
		rdb:      rdb,
		name:     name,
		opts:     opts,
		log:      log.With(zap.String("queue", name)),
		now:      time.Now,
		handlers: make(map[string]registration),
	}
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) key(parts ...string) string {
	k := "queue:" + q.name
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (q *Queue) jobsKey() string               { return q.key("jobs") }
func (q *Queue) waitKey(task string) string    { return q.key("wait", task) }
func (q *Queue) delayedKey(task string) string { return q.key("delayed", task) }
func (q *Queue) activeKey(task string) string  { return q.key("active", task) }
func (q *Queue) lockKey(id string) string      { return q.key("lock", id) }
func (q *Queue) lockPrefix() string            { return q.key("lock") + ":" }

// Add enqueues one job of the given task name.
func (q *Queue) Add(ctx context.Context, task string, payload any, opts JobOptions) (*Job, error) {
	jobs, err := q.AddBulk(ctx, task, []BulkJob{{Payload: payload, Options: opts}})
	if err != nil {
		return nil, err
	}
	return jobs[0], nil
}

type BulkJob struct {
	Payload any
	Options JobOptions
}

// AddBulk enqueues several jobs in one transaction.
func (q *Queue) AddBulk(ctx context.Context, task string, items []BulkJob) ([]*Job, error) {
	if len(items) == 0 {
		return nil, nil
	}

	last, err := q.rdb.IncrBy(ctx, q.key("id"), int64(len(items))).Result()
	if err != nil {
		return nil, apperr.Transient(err, "allocate job ids")
	}
	first := last - int64(len(items)) + 1

	now := q.now()
	jobs := make([]*Job, 0, len(items))
	pipe := q.rdb.TxPipeline()
	for i, item := range items {
		raw, err := json.Marshal(item.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode job payload: %w", err)
		}

		job := &Job{
			ID:          strconv.FormatInt(first+int64(i), 10),
			Name:        task,
			CampaignID:  item.Options.CampaignID,
			Payload:     raw,
			MaxAttempts: item.Options.Attempts,
			Backoff:     item.Options.Backoff,
			Delay:       item.Options.Delay,
			CreatedAt:   now,
		}
		if job.MaxAttempts <= 0 {
			job.MaxAttempts = q.opts.Attempts
		}
		if job.Backoff <= 0 {
			job.Backoff = q.opts.Backoff
		}

		data, err := json.Marshal(job)
		if err != nil {
			return nil, err
		}
		pipe.HSet(ctx, q.jobsKey(), job.ID, data)
		if job.Delay > 0 {
			pipe.ZAdd(ctx, q.delayedKey(task), redis.Z{
				Score:  float64(now.Add(job.Delay).UnixMilli()),
				Member: job.ID,
			})
		} else {
			pipe.LPush(ctx, q.waitKey(task), job.ID)
		}
		jobs = append(jobs, job)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, apperr.Transient(err, "enqueue %d %s jobs", len(items), task)
	}

	for _, job := range jobs {
		q.log.Debug("job added",
			zap.String("job_id", job.ID),
			zap.String("task", task),
			zap.Duration("delay", job.Delay),
		)
	}
	return jobs, nil
}

// Process registers handler for task with the given worker concurrency.
// Must be called before Run.
func (q *Queue) Process(task string, concurrency int, handler Handler) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[task] = registration{handler: handler, concurrency: concurrency}
}

func (q *Queue) OnCompleted(fn func(*Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onCompleted = append(q.onCompleted, fn)
}

func (q *Queue) OnFailed(fn func(*Job, error)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onFailed = append(q.onFailed, fn)
}

// Run starts the delayed-job promoter and the workers of every registered
// task, and blocks until ctx is cancelled and all of them have stopped.
func (q *Queue) Run(ctx context.Context) {
	q.mu.RLock()
	regs := make(map[string]registration, len(q.handlers))
	for task, r := range q.handlers {
		regs[task] = r
	}
	q.mu.RUnlock()

	for task := range regs {
		if n, err := q.recoverStalled(ctx, task); err != nil {
			q.log.Warn("recover stalled jobs failed", zap.String("task", task), zap.Error(err))
		} else if n > 0 {
			q.log.Info("stalled jobs requeued", zap.String("task", task), zap.Int("count", n))
		}
	}

	var wg sync.WaitGroup
	for task, r := range regs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.promoteLoop(ctx, task)
		}()

		for i := 0; i < r.concurrency; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				q.workerLoop(ctx, task, id, r.handler)
			}(i)
		}

		q.log.Info("queue workers started", zap.String("task", task), zap.Int("concurrency", r.concurrency))
	}

	wg.Wait()
	q.log.Info("queue workers stopped")
}

var promoteScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('LPUSH', KEYS[2], id)
end
return #ids
`)

// promoteDue moves delayed jobs whose due time has passed onto the wait list.
func (q *Queue) promoteDue(ctx context.Context, task string) (int, error) {
	n, err := promoteScript.Run(ctx, q.rdb,
		[]string{q.delayedKey(task), q.waitKey(task)},
		q.now().UnixMilli(), promoteBatch,
	).Int()
	if err != nil {
		return 0, apperr.Transient(err, "promote delayed jobs")
	}
	return n, nil
}

var recoverScript = redis.NewScript(`
local ids = redis.call('LRANGE', KEYS[1], 0, -1)
local n = 0
for _, id in ipairs(ids) do
  if redis.call('EXISTS', ARGV[1] .. id) == 0 then
    redis.call('LREM', KEYS[1], 1, id)
    redis.call('RPUSH', KEYS[2], id)
    n = n + 1
  end
end
return n
`)

// recoverStalled moves active jobs whose lock expired back to the head of
// the wait list. Their worker died or was stopped before settling them.
func (q *Queue) recoverStalled(ctx context.Context, task string) (int, error) {
	n, err := recoverScript.Run(ctx, q.rdb,
		[]string{q.activeKey(task), q.waitKey(task)},
		q.lockPrefix(),
	).Int()
	if err != nil {
		return 0, apperr.Transient(err, "recover stalled jobs")
	}
	return n, nil
}

func (q *Queue) promoteLoop(ctx context.Context, task string) {
	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.promoteDue(ctx, task); err != nil && ctx.Err() == nil {
				q.log.Warn("promote delayed jobs failed", zap.String("task", task), zap.Error(err))
			}
			if n, err := q.recoverStalled(ctx, task); err != nil && ctx.Err() == nil {
				q.log.Warn("recover stalled jobs failed", zap.String("task", task), zap.Error(err))
			} else if n > 0 {
				q.log.Warn("stalled jobs requeued", zap.String("task", task), zap.Int("count", n))
			}
		}
	}
}

// fetchScript claims the next waiting job and locks it in one step, so an
// active job is never visible without its lock.
var fetchScript = redis.NewScript(`
local id = redis.call('RPOPLPUSH', KEYS[1], KEYS[2])
if id then
  redis.call('SET', ARGV[1] .. id, ARGV[2], 'PX', ARGV[3])
end
return id
`)

func (q *Queue) fetch(ctx context.Context, task string, workerID int) (string, error) {
	return fetchScript.Run(ctx, q.rdb,
		[]string{q.waitKey(task), q.activeKey(task)},
		q.lockPrefix(), strconv.Itoa(workerID), q.opts.LockTTL.Milliseconds(),
	).Text()
}

// holdLock extends the job lock until stop is closed.
func (q *Queue) holdLock(jobID string, stop <-chan struct{}) {
	ticker := time.NewTicker(q.opts.LockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), bookkeepingTimeout)
			if err := q.rdb.PExpire(ctx, q.lockKey(jobID), q.opts.LockTTL).Err(); err != nil {
				q.log.Warn("extend job lock failed", zap.String("job_id", jobID), zap.Error(err))
			}
			cancel()
		}
	}
}

func (q *Queue) workerLoop(ctx context.Context, task string, id int, handler Handler) {
	for ctx.Err() == nil {
		jobID, err := q.fetch(ctx, task, id)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				sleepCtx(ctx, q.opts.PollInterval)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			q.log.Warn("fetch job failed", zap.String("task", task), zap.Int("worker_id", id), zap.Error(err))
			sleepCtx(ctx, q.opts.PollInterval)
			continue
		}

		q.processJob(ctx, task, jobID, handler)
	}
}

func (q *Queue) processJob(ctx context.Context, task, jobID string, handler Handler) {
	// Settling a job must survive shutdown, or it stays active forever.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	job, err := q.Get(settleCtx, jobID)
	if apperr.Is(err, apperr.KindNotFound) {
		q.log.Warn("active job vanished", zap.String("job_id", jobID))
		q.rdb.TxPipelined(settleCtx, func(pipe redis.Pipeliner) error {
			pipe.LRem(settleCtx, q.activeKey(task), 1, jobID)
			pipe.Del(settleCtx, q.lockKey(jobID))
			return nil
		})
		return
	}
	if err != nil {
		// Left active; recoverStalled picks it up once the lock expires.
		q.log.Warn("load active job failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	started := q.now()
	job.AttemptsMade++
	job.ProcessedAt = &started
	if err := q.save(settleCtx, job); err != nil {
		q.log.Warn("failed to persist job attempt", zap.String("job_id", jobID), zap.Error(err))
	}

	stop := make(chan struct{})
	go q.holdLock(jobID, stop)
	result, runErr := q.safeRun(ctx, handler, job)
	close(stop)

	if runErr == nil {
		q.complete(settleCtx, task, job, result)
		return
	}
	if ctx.Err() != nil {
		q.requeueInterrupted(settleCtx, task, job, runErr)
		return
	}

	var permanent *backoff.PermanentError
	if job.AttemptsMade < job.MaxAttempts && !errors.As(runErr, &permanent) {
		q.retry(settleCtx, task, job, runErr)
		return
	}
	q.fail(settleCtx, task, job, runErr)
}

// requeueInterrupted puts a job cut short by shutdown back at the head of
// the wait list. The interrupted attempt does not count.
func (q *Queue) requeueInterrupted(ctx context.Context, task string, job *Job, runErr error) {
	job.AttemptsMade--
	data, _ := json.Marshal(job)

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, q.jobsKey(), job.ID, data)
	pipe.LRem(ctx, q.activeKey(task), 1, job.ID)
	pipe.RPush(ctx, q.waitKey(task), job.ID)
	pipe.Del(ctx, q.lockKey(job.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.Error("failed to requeue interrupted job", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	metrics.QueueJobs.WithLabelValues(q.name, task, "interrupted").Inc()
	q.log.Info("job interrupted by shutdown, requeued",
		zap.String("job_id", job.ID),
		zap.String("task", task),
		zap.NamedError("cause", runErr),
	)
}

func (q *Queue) safeRun(ctx context.Context, handler Handler, job *Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

func (q *Queue) complete(ctx context.Context, task string, job *Job, result any) {
	finished := q.now()
	job.FinishedAt = &finished
	job.FailedReason = ""
	if result != nil {
		if raw, err := json.Marshal(result); err == nil {
			job.Result = raw
		}
	}
	data, _ := json.Marshal(job)

	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, q.activeKey(task), 1, job.ID)
	pipe.Del(ctx, q.lockKey(job.ID))
	pipe.HDel(ctx, q.jobsKey(), job.ID)
	pipe.LPush(ctx, q.key("completed"), data)
	pipe.LTrim(ctx, q.key("completed"), 0, int64(q.opts.KeepCompleted-1))
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.Error("failed to record completed job", zap.String("job_id", job.ID), zap.Error(err))
	}

	metrics.QueueJobs.WithLabelValues(q.name, task, "completed").Inc()
	q.log.Info("job completed",
		zap.String("job_id", job.ID),
		zap.String("task", task),
		zap.String("campaign_id", job.CampaignID),
		zap.Int("attempts", job.AttemptsMade),
	)

	q.mu.RLock()
	hooks := q.onCompleted
	q.mu.RUnlock()
	for _, fn := range hooks {
		fn(job)
	}
}

func (q *Queue) retry(ctx context.Context, task string, job *Job, runErr error) {
	delay := RetryDelay(job.Backoff, job.AttemptsMade)
	job.FailedReason = runErr.Error()
	data, _ := json.Marshal(job)

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, q.jobsKey(), job.ID, data)
	pipe.LRem(ctx, q.activeKey(task), 1, job.ID)
	pipe.Del(ctx, q.lockKey(job.ID))
	pipe.ZAdd(ctx, q.delayedKey(task), redis.Z{
		Score:  float64(q.now().Add(delay).UnixMilli()),
		Member: job.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.Error("failed to reschedule job", zap.String("job_id", job.ID), zap.Error(err))
	}

	metrics.QueueJobs.WithLabelValues(q.name, task, "retried").Inc()
	q.log.Warn("job attempt failed, retrying",
		zap.String("job_id", job.ID),
		zap.String("task", task),
		zap.Int("attempt", job.AttemptsMade),
		zap.Int("max_attempts", job.MaxAttempts),
		zap.Duration("retry_in", delay),
		zap.Error(runErr),
	)
}

func (q *Queue) fail(ctx context.Context, task string, job *Job, runErr error) {
	finished := q.now()
	job.FinishedAt = &finished
	job.FailedReason = runErr.Error()
	data, _ := json.Marshal(job)

	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, q.activeKey(task), 1, job.ID)
	pipe.Del(ctx, q.lockKey(job.ID))
	pipe.HDel(ctx, q.jobsKey(), job.ID)
	pipe.LPush(ctx, q.key("failed"), data)
	pipe.LTrim(ctx, q.key("failed"), 0, int64(q.opts.KeepFailed-1))
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.Error("failed to record failed job", zap.String("job_id", job.ID), zap.Error(err))
	}

	metrics.QueueJobs.WithLabelValues(q.name, task, "failed").Inc()
	q.log.Error("job failed",
		zap.String("job_id", job.ID),
		zap.String("task", task),
		zap.String("campaign_id", job.CampaignID),
		zap.Int("attempts", job.AttemptsMade),
		zap.Error(runErr),
	)

	q.mu.RLock()
	hooks := q.onFailed
	q.mu.RUnlock()
	for _, fn := range hooks {
		fn(job, runErr)
	}
}

// RetryDelay is the wait before the attempt that follows attempt n (1-based):
// initial, 2*initial, 4*initial and so on.
func RetryDelay(initial time.Duration, attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := q.rdb.HGet(ctx, q.jobsKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.NotFound("job %s not found", id)
	}
	if err != nil {
		return nil, apperr.Transient(err, "load job %s", id)
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (q *Queue) save(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.HSet(ctx, q.jobsKey(), job.ID, data).Err()
}

// RemovePending removes waiting and delayed jobs of task matching pred.
// Jobs already picked up by a worker are left alone.
func (q *Queue) RemovePending(ctx context.Context, task string, pred func(*Job) bool) (int, error) {
	waiting, err := q.rdb.LRange(ctx, q.waitKey(task), 0, -1).Result()
	if err != nil {
		return 0, apperr.Transient(err, "list waiting jobs")
	}
	delayed, err := q.rdb.ZRange(ctx, q.delayedKey(task), 0, -1).Result()
	if err != nil {
		return 0, apperr.Transient(err, "list delayed jobs")
	}

	removed := 0
	for _, id := range append(delayed, waiting...) {
		job, err := q.Get(ctx, id)
		if err != nil || !pred(job) {
			continue
		}

		n, err := q.rdb.ZRem(ctx, q.delayedKey(task), id).Result()
		if err != nil {
			return removed, apperr.Transient(err, "remove delayed job")
		}
		if n == 0 {
			// Not delayed (or promoted meanwhile): try the wait list.
			if n, err = q.rdb.LRem(ctx, q.waitKey(task), 0, id).Result(); err != nil {
				return removed, apperr.Transient(err, "remove waiting job")
			}
		}
		if n == 0 {
			continue
		}

		q.rdb.HDel(ctx, q.jobsKey(), id)
		removed++
	}

	if removed > 0 {
		metrics.QueueJobs.WithLabelValues(q.name, task, "removed").Add(float64(removed))
	}
	return removed, nil
}

func (q *Queue) RemoveByCampaign(ctx context.Context, task, campaignID string) (int, error) {
	return q.RemovePending(ctx, task, func(j *Job) bool {
		return j.CampaignID == campaignID
	})
}

func (q *Queue) Counts(ctx context.Context, task string) (*Counts, error) {
	pipe := q.rdb.Pipeline()
	waiting := pipe.LLen(ctx, q.waitKey(task))
	delayed := pipe.ZCard(ctx, q.delayedKey(task))
	active := pipe.LLen(ctx, q.activeKey(task))
	completed := pipe.LLen(ctx, q.key("completed"))
	failed := pipe.LLen(ctx, q.key("failed"))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, apperr.Transient(err, "queue counts")
	}
	return &Counts{
		Waiting:   waiting.Val(),
		Delayed:   delayed.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
	}, nil
}

func (q *Queue) Failed(ctx context.Context, limit int) ([]Job, error) {
	return q.history(ctx, "failed", limit)
}

func (q *Queue) Completed(ctx context.Context, limit int) ([]Job, error) {
	return q.history(ctx, "completed", limit)
}

func (q *Queue) history(ctx context.Context, list string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	raws, err := q.rdb.LRange(ctx, q.key(list), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, apperr.Transient(err, "list %s jobs", list)
	}
	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var j Job
		if err := json.Unmarshal([]byte(raw), &j); err != nil {
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
