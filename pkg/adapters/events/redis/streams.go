package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/pkg/domain"
)

// Sink implements ports.EventSink using Redis Streams, one stream per
// execution. Stream order is emission order; every subscriber reads
// the stream from the beginning, so late consumers replay history.
type Sink struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewSink creates a new Redis Streams event sink
func NewSink(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Sink {
	return &Sink{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Publish appends one event to the execution's stream
func (s *Sink) Publish(ctx context.Context, event domain.LogEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := streamKey(event.ExecutionID)

	pipe := s.client.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]interface{}{
			"data": string(data),
		},
	})
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	s.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("execution_id", event.ExecutionID),
		zap.String("level", string(event.Level)))

	return nil
}

// Subscribe reads the execution's stream from the beginning and
// delivers events until the terminal event or ctx cancellation
func (s *Sink) Subscribe(ctx context.Context, executionID string) (<-chan domain.LogEvent, error) {
	ch := make(chan domain.LogEvent, 64)
	go s.readStream(ctx, executionID, ch)
	return ch, nil
}

// Close releases sink resources. The Redis client is owned by the
// caller.
func (s *Sink) Close() error {
	return nil
}

func (s *Sink) readStream(ctx context.Context, executionID string, ch chan<- domain.LogEvent) {
	defer close(ch)

	key := streamKey(executionID)
	lastID := "0"

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := s.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{key, lastID},
			Count:   16,
			Block:   time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("failed to read from stream",
				zap.String("stream", key),
				zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				lastID = message.ID

				event, ok := s.decode(key, message)
				if !ok {
					continue
				}

				select {
				case ch <- event:
				case <-ctx.Done():
					return
				}

				if event.Terminal {
					return
				}
			}
		}
	}
}

func (s *Sink) decode(key string, message redis.XMessage) (domain.LogEvent, bool) {
	data, ok := message.Values["data"].(string)
	if !ok {
		s.logger.Error("invalid message format",
			zap.String("stream", key),
			zap.String("message_id", message.ID))
		return domain.LogEvent{}, false
	}

	var event domain.LogEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		s.logger.Error("failed to unmarshal event",
			zap.String("stream", key),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return domain.LogEvent{}, false
	}

	return event, true
}

func streamKey(executionID string) string {
	return fmt.Sprintf("mrwa:logs:%s", executionID)
}
