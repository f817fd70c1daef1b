package supply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ardnew/hashspi/driver"
	"github.com/ardnew/hashspi/pkg"
)

// Redis defaults.
const (
	DefaultPrefix     = "hashspi"
	DefaultHistory    = 10000 // Records kept per outcome list and in the results stream
	DefaultRedisTimer = time.Second
)

// Redis is a work source and result sink backed by a Redis server. It is
// safe for concurrent use.
type Redis struct {
	rdb     *redis.Client
	prefix  string
	history int64
	timeout time.Duration

	pulled    atomic.Uint64
	completed atomic.Uint64
	discarded atomic.Uint64
	accepted  atomic.Uint64
}

// NewRedis connects a work source to the server described by opts. All keys
// are namespaced with prefix.
func NewRedis(opts *redis.Options, prefix string) (*Redis, error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: redis prefix cannot be empty", pkg.ErrInvalidParameter)
	}
	return &Redis{
		rdb:     redis.NewClient(opts),
		prefix:  prefix,
		history: DefaultHistory,
		timeout: DefaultRedisTimer,
	}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// PushWork appends work to the pending list.
func (r *Redis) PushWork(ctx context.Context, works ...*driver.Work) error {
	if len(works) == 0 {
		return nil
	}
	values := make([]any, 0, len(works))
	for _, w := range works {
		data, err := encodeWork(w)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	if err := r.rdb.RPush(ctx, WorkKey(r.prefix), values...).Err(); err != nil {
		return fmt.Errorf("failed to push work to Redis: %w", err)
	}
	return nil
}

// NextWork implements driver.WorkSource. Malformed entries are logged and
// skipped.
func (r *Redis) NextWork() (*driver.Work, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	for {
		data, err := r.rdb.LPop(ctx, WorkKey(r.prefix)).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				pkg.LogWarn(pkg.ComponentSupply, "failed to pop work", "error", err)
			}
			return nil, false
		}
		w, err := decodeWork(data)
		if err != nil {
			pkg.LogWarn(pkg.ComponentSupply, "malformed work skipped", "error", err)
			continue
		}
		r.pulled.Add(1)
		return w, true
	}
}

// Completed implements driver.WorkSource.
func (r *Redis) Completed(j driver.Job) {
	r.completed.Add(1)
	r.record(CompletedKey(r.prefix), j)
}

// Discarded implements driver.WorkSource.
func (r *Redis) Discarded(j driver.Job) {
	r.discarded.Add(1)
	r.record(DiscardedKey(r.prefix), j)
}

// record appends a job record to a capped list.
func (r *Redis) record(key string, j driver.Job) {
	data, err := json.Marshal(jobRecord(j))
	if err != nil {
		pkg.LogWarn(pkg.ComponentSupply, "failed to marshal job record", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -r.history, -1)
		return nil
	})
	if err != nil {
		pkg.LogWarn(pkg.ComponentSupply, "failed to record job",
			"key", key,
			"error", err)
	}
}

// Accept implements Sink by appending to the results stream.
func (r *Redis) Accept(ctx context.Context, res Result) error {
	err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: ResultsKey(r.prefix),
		MaxLen: r.history,
		Values: map[string]any{
			"work_id": res.WorkID.String(),
			"chip":    res.Chip,
			"task_id": res.TaskID,
			"nonce":   res.Nonce,
			"found":   res.Found.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add result to Redis: %w", err)
	}
	r.accepted.Add(1)
	return nil
}

// Results reads up to count results from the stream, oldest first.
func (r *Redis) Results(ctx context.Context, count int64) ([]Result, error) {
	msgs, err := r.rdb.XRangeN(ctx, ResultsKey(r.prefix), "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read results from Redis: %w", err)
	}
	out := make([]Result, 0, len(msgs))
	for _, m := range msgs {
		res, err := parseResult(m.Values)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", m.ID, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// Backlog returns the number of work entries waiting in Redis.
func (r *Redis) Backlog(ctx context.Context) (int64, error) {
	n, err := r.rdb.LLen(ctx, WorkKey(r.prefix)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read work backlog: %w", err)
	}
	return n, nil
}

// Counters returns what this source has seen since it was created.
func (r *Redis) Counters() Counters {
	return Counters{
		Pulled:    r.pulled.Load(),
		Completed: r.completed.Load(),
		Discarded: r.discarded.Load(),
		Accepted:  r.accepted.Load(),
	}
}

func parseResult(values map[string]any) (Result, error) {
	var (
		res Result
		err error
	)
	field := func(name string) string {
		s, _ := values[name].(string)
		return s
	}
	if res.WorkID, err = uuid.Parse(field("work_id")); err != nil {
		return res, err
	}
	chip, err := strconv.Atoi(field("chip"))
	if err != nil {
		return res, fmt.Errorf("chip: %w", err)
	}
	res.Chip = chip
	task, err := strconv.ParseUint(field("task_id"), 10, 16)
	if err != nil {
		return res, fmt.Errorf("task_id: %w", err)
	}
	res.TaskID = uint16(task)
	nonce, err := strconv.ParseUint(field("nonce"), 10, 32)
	if err != nil {
		return res, fmt.Errorf("nonce: %w", err)
	}
	res.Nonce = uint32(nonce)
	if res.Found, err = time.Parse(time.RFC3339Nano, field("found")); err != nil {
		return res, fmt.Errorf("found: %w", err)
	}
	return res, nil
}
