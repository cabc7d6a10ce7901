package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

const (
	jobStream = "fileforge:jobs"
	jobGroup  = "fileforge:workers"

	// msgKeyPrefix maps a dequeued job to its stream message ID for ack/nack.
	msgKeyPrefix = "fileforge:job:"
	msgKeyTTL    = 24 * time.Hour

	// claimTimeout - how long before an unacked job counts as abandoned.
	claimTimeout = 5 * time.Minute
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue on Redis Streams. Consumer groups give
// per-message acknowledgment; jobs abandoned by a dead worker are reclaimed
// after claimTimeout. Payloads are job IDs only - the job itself lives in
// the job store.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a new Redis-backed job queue. consumerName should be
// unique per worker instance; it defaults to hostname + pid.
func NewQueue(client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		hostname, _ := os.Hostname()
		consumerName = fmt.Sprintf("worker-%s-%d", hostname, os.Getpid())
	}

	q := &Queue{client: client, consumerName: consumerName}

	err := q.client.XGroupCreateMkStream(context.Background(), jobStream, jobGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return q, nil
}

// Enqueue adds a job ID to the stream.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("job id is required")
	}
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: jobStream,
		Values: map[string]interface{}{"job_id": jobID},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// DequeueWithTimeout retrieves the next job ID, waiting up to timeoutSec
// seconds. Returns "" when nothing arrived in time. Abandoned jobs are
// reclaimed before new ones are read.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeoutSec int) (string, error) {
	if jobID, ok := q.claimAbandoned(ctx); ok {
		return jobID, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    jobGroup,
		Consumer: q.consumerName,
		Streams:  []string{jobStream, ">"},
		Count:    1,
		Block:    time.Duration(timeoutSec) * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", nil
		}
		return "", fmt.Errorf("read job stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return "", nil
	}

	msg := streams[0].Messages[0]
	jobID, ok := msg.Values["job_id"].(string)
	if !ok {
		// Malformed entry; drop it.
		q.client.XAck(ctx, jobStream, jobGroup, msg.ID)
		q.client.XDel(ctx, jobStream, msg.ID)
		return "", nil
	}

	q.client.Set(ctx, msgKey(jobID), msg.ID, msgKeyTTL)
	return jobID, nil
}

// Ack confirms a dequeued job was processed.
func (q *Queue) Ack(ctx context.Context, jobID string) error {
	msgID, err := q.client.Get(ctx, msgKey(jobID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("ack job %s: %w", jobID, err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, jobStream, jobGroup, msgID)
		pipe.XDel(ctx, jobStream, msgID)
	}
	pipe.Del(ctx, msgKey(jobID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack job %s: %w", jobID, err)
	}
	return nil
}

// Nack returns a failed job to the stream for another attempt.
func (q *Queue) Nack(ctx context.Context, jobID string, reason string) error {
	msgID, err := q.client.Get(ctx, msgKey(jobID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("nack job %s: %w", jobID, err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, jobStream, jobGroup, msgID)
		pipe.XDel(ctx, jobStream, msgID)
	}
	pipe.Del(ctx, msgKey(jobID))
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: jobStream,
		Values: map[string]interface{}{"job_id": jobID, "nack_reason": reason},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("nack job %s: %w", jobID, err)
	}
	return nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// claimAbandoned tries to take over one message another worker left pending
// past claimTimeout.
func (q *Queue) claimAbandoned(ctx context.Context) (string, bool) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: jobStream,
		Group:  jobGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil || len(pending) == 0 {
		return "", false
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   jobStream,
			Group:    jobGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}
		msg := claimed[0]
		jobID, ok := msg.Values["job_id"].(string)
		if !ok {
			q.client.XAck(ctx, jobStream, jobGroup, msg.ID)
			q.client.XDel(ctx, jobStream, msg.ID)
			continue
		}
		q.client.Set(ctx, msgKey(jobID), msg.ID, msgKeyTTL)
		return jobID, true
	}
	return "", false
}

func msgKey(jobID string) string {
	return msgKeyPrefix + jobID + ":msg"
}

func isGroupExistsError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}
