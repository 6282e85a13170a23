package queue

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Claim when no job arrived within the timeout.
var ErrEmpty = errors.New("queue empty")

// Queue hands bulk job IDs from the API to workers.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	Claim(ctx context.Context, timeout time.Duration) (string, error)
	// Heartbeat marks a claimed job as still being worked on. Claims whose
	// heartbeat goes silent are requeued by RequeueStale.
	Heartbeat(ctx context.Context, jobID string) error
	Ack(ctx context.Context, jobID string) error
	RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error)
}

// redisQueue is a reliable queue over Redis lists.
// Claim: BRPOPLPUSH queue -> processing, plus an initial heartbeat.
// Ack:   LREM from processing once the job row is terminal.
// A reaper moves silent processing entries back to the queue, giving
// at-least-once delivery when a worker dies mid-job; live claims keep
// heartbeating and are left alone.
type redisQueue struct {
	rdb           *redis.Client
	queueKey      string
	processingKey string
	heartbeatKey  string
}

// NewRedisQueue builds a queue on the given key prefix.
func NewRedisQueue(rdb *redis.Client, prefix string) Queue {
	if prefix == "" {
		prefix = "bulkjobs"
	}
	return &redisQueue{
		rdb:           rdb,
		queueKey:      prefix + ":queue",
		processingKey: prefix + ":processing",
		heartbeatKey:  prefix + ":heartbeats",
	}
}

func (q *redisQueue) Enqueue(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.queueKey, jobID).Err()
}

func (q *redisQueue) Claim(ctx context.Context, timeout time.Duration) (string, error) {
	id, err := q.rdb.BRPopLPush(ctx, q.queueKey, q.processingKey, timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEmpty
		}
		return "", err
	}
	if err := q.Heartbeat(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func (q *redisQueue) Heartbeat(ctx context.Context, jobID string) error {
	return q.rdb.HSet(ctx, q.heartbeatKey, jobID, time.Now().Unix()).Err()
}

func (q *redisQueue) Ack(ctx context.Context, jobID string) error {
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, q.processingKey, 1, jobID)
	pipe.HDel(ctx, q.heartbeatKey, jobID)
	_, err := pipe.Exec(ctx)
	return err
}

// RequeueStale moves processing entries whose heartbeat is older than the
// threshold (or missing entirely) back to the queue. Entries with a recent
// heartbeat belong to a live worker and stay put.
func (q *redisQueue) RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error) {
	ids, err := q.rdb.LRange(ctx, q.processingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-olderThan).Unix()

	var moved int64
	for _, id := range ids {
		if moved >= max {
			break
		}
		raw, err := q.rdb.HGet(ctx, q.heartbeatKey, id).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return moved, err
		}
		if err == nil {
			if ts, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil && ts > cutoff {
				continue
			}
		}
		removed, err := q.rdb.LRem(ctx, q.processingKey, 1, id).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			// Another reaper already took it.
			continue
		}
		pipe := q.rdb.TxPipeline()
		pipe.HDel(ctx, q.heartbeatKey, id)
		pipe.LPush(ctx, q.queueKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
