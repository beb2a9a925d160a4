package review

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list reviewers consume from.
const DefaultQueueKey = "careline:review:queue"

// RedisNotifier pushes tasks onto a Redis list. Reviewer tooling pops from
// the other end, so the queue is FIFO.
type RedisNotifier struct {
	client   *redis.Client
	queueKey string
}

// NewRedisNotifier connects to the given Redis URL. An empty queueKey
// takes the default.
func NewRedisNotifier(redisURL, queueKey string) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if queueKey == "" {
		queueKey = DefaultQueueKey
	}
	return &RedisNotifier{client: redis.NewClient(opts), queueKey: queueKey}, nil
}

// Notify appends the task to the queue.
func (n *RedisNotifier) Notify(ctx context.Context, task *Task) error {
	payload, err := task.Encode()
	if err != nil {
		return fmt.Errorf("encode review task: %w", err)
	}
	if err := n.client.RPush(ctx, n.queueKey, payload).Err(); err != nil {
		return fmt.Errorf("push review task: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
