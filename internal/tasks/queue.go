// Package tasks runs fire-and-forget cleanup work (derived-chunk deletion at
// the AI service, physical unlinks, owner directory removal) decoupled from
// the HTTP request cycle. Tasks ride a Redis stream with a consumer group, so
// a crashed worker's claims are picked up by the next one, and failures are
// retried with a bounded backoff before being dropped with a log line.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"docchat/internal/util"
)

// Task is one cleanup unit. Any subset of the fields may be set.
type Task struct {
	ID      string   `json:"id"`
	FileIDs []string `json:"fileIds,omitempty"`
	Paths   []string `json:"paths,omitempty"`
	// OwnerID, when set, asks for the owner's whole upload directory.
	OwnerID string `json:"ownerId,omitempty"`
}

// Handler executes one task.
type Handler func(ctx context.Context, t Task) error

// Queue accepts cleanup tasks for asynchronous execution.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
}

// RedisQueueConfig configures the stream-backed queue.
type RedisQueueConfig struct {
	Addr       string
	Password   string
	Stream     string
	Group      string
	Consumer   string
	MaxRetries int
	Block      time.Duration
	ClaimIdle  time.Duration
	RetryDelay time.Duration
	MaxLen     int64
}

// RedisQueue is a Redis-stream cleanup queue with at-least-once delivery.
type RedisQueue struct {
	client       *redis.Client
	stream       string
	group        string
	consumerBase string
	maxRetries   int
	block        time.Duration
	claimIdle    time.Duration
	retryDelay   time.Duration
	maxLen       int64
	once         sync.Once
}

// NewRedisQueue connects the queue to Redis.
func NewRedisQueue(cfg RedisQueueConfig) (*RedisQueue, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = "docchat:cleanup"
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "cleanup"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = util.NewID()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	block := cfg.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	claimIdle := cfg.ClaimIdle
	if claimIdle <= 0 {
		claimIdle = 30 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisQueue{
		client:       redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		maxRetries:   maxRetries,
		block:        block,
		claimIdle:    claimIdle,
		retryDelay:   retryDelay,
		maxLen:       maxLen,
	}, nil
}

// Enqueue appends a task to the stream. Fast; safe to call on the request
// path.
func (q *RedisQueue) Enqueue(ctx context.Context, t Task) error {
	if t.ID == "" {
		t.ID = util.NewID()
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{
			"task_id": t.ID,
			"payload": string(payload),
			"attempt": "1",
		},
	}).Err()
}

// Start launches worker goroutines consuming tasks until ctx is canceled.
func (q *RedisQueue) Start(ctx context.Context, concurrency int, handler Handler) {
	if concurrency <= 0 {
		concurrency = 1
	}
	q.ensureGroup(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", q.consumerBase, i)
		go q.consumeLoop(ctx, consumer, handler)
	}
}

func (q *RedisQueue) ensureGroup(ctx context.Context) {
	q.once.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			slog.Warn("cleanup queue group create failed", "err", err)
		}
	})
}

func (q *RedisQueue) consumeLoop(ctx context.Context, consumer string, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := q.claimPending(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg, handler)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    q.block,
		}).Result()
		if err != nil {
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg, handler)
			}
		}
	}
}

func (q *RedisQueue) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	res, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *RedisQueue) handleMessage(ctx context.Context, msg redis.XMessage, handler Handler) {
	raw, _ := msg.Values["payload"].(string)
	attemptRaw, _ := msg.Values["attempt"].(string)
	attempt, _ := strconv.Atoi(attemptRaw)
	if attempt <= 0 {
		attempt = 1
	}
	var task Task
	if raw == "" || json.Unmarshal([]byte(raw), &task) != nil {
		slog.Warn("cleanup task payload unreadable, dropping", "msg_id", msg.ID)
		q.ackAndDel(ctx, msg.ID)
		return
	}
	err := handler(ctx, task)
	if err == nil {
		q.ackAndDel(ctx, msg.ID)
		return
	}
	if attempt >= q.maxRetries {
		slog.Error("cleanup task failed permanently", "task_id", task.ID, "attempts", attempt, "err", err)
		q.ackAndDel(ctx, msg.ID)
		return
	}
	slog.Warn("cleanup task failed, will retry", "task_id", task.ID, "attempt", attempt, "err", err)
	select {
	case <-ctx.Done():
		return
	case <-time.After(q.retryDelay * time.Duration(attempt)):
	}
	_ = q.requeueAndAck(ctx, msg.ID, task, attempt+1)
}

func (q *RedisQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.client.XAck(ctx, q.stream, q.group, msgID).Result()
	_, _ = q.client.XDel(ctx, q.stream, msgID).Result()
}

func (q *RedisQueue) requeueAndAck(ctx context.Context, msgID string, task Task, attempt int) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	pipe := q.client.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{
			"task_id": task.ID,
			"payload": string(payload),
			"attempt": strconv.Itoa(attempt),
		},
	})
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	_, err = pipe.Exec(ctx)
	return err
}
