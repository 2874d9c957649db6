// Package redisstore keeps change streams and rendered pages in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	"office-dashboard/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

var _ repository.EventStore = (*EventStore)(nil)

// streamRegistry is a set holding every stream key written so far.
const streamRegistry = "changes:streams"

// ReplayLimit caps how many events a single resume replays.
const ReplayLimit = 1000

// EventStore appends change events to one Redis stream per tenant+kind.
// The stream entry id is the resume token.
type EventStore struct {
	client redis.UniversalClient
	logger logger.Logger
}

func NewEventStore(client redis.UniversalClient, log logger.Logger) *EventStore {
	return &EventStore{client: client, logger: log.WithComponent("redis-event-store")}
}

func (s *EventStore) Append(ctx context.Context, event model.ChangeEvent) (string, error) {
	event.ResumeToken = ""
	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode change event: %w", err)
	}
	key := model.StreamKey(event.TenantID, event.Kind)
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]interface{}{
			"op":    string(event.Op),
			"id":    event.DocumentID,
			"event": string(payload),
		},
	}).Result()
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"stream": key, "error": err.Error()}).Error("failed to append change event")
		return "", err
	}
	if err := s.client.SAdd(ctx, streamRegistry, key).Err(); err != nil {
		s.logger.WithFields(map[string]interface{}{"stream": key, "error": err.Error()}).Warn("failed to register stream")
	}
	return id, nil
}

// Since replays the stream after token. The token entry itself must still
// be in the stream: trimming removes the oldest entries first, so its
// presence proves nothing between it and the newest entry is missing.
func (s *EventStore) Since(ctx context.Context, tenantID, kind, token string) ([]model.ChangeEvent, error) {
	key := model.StreamKey(tenantID, kind)
	start := "-"
	if token != "" {
		start = token
	}
	msgs, err := s.client.XRangeN(ctx, key, start, "+", ReplayLimit+2).Result()
	if err != nil {
		return nil, fmt.Errorf("read stream %s: %w", key, err)
	}
	if token != "" {
		if len(msgs) == 0 || msgs[0].ID != token {
			return nil, fmt.Errorf("%w: %s not in %s", repository.ErrResumeExpired, token, key)
		}
		msgs = msgs[1:]
	}
	if len(msgs) > ReplayLimit {
		return nil, fmt.Errorf("%w: more than %d events after %s", repository.ErrResumeExpired, ReplayLimit, token)
	}

	events := make([]model.ChangeEvent, 0, len(msgs))
	for _, msg := range msgs {
		raw, _ := msg.Values["event"].(string)
		var ev model.ChangeEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			s.logger.WithFields(map[string]interface{}{"stream": key, "entry": msg.ID}).Warn("skipping undecodable change event")
			continue
		}
		ev.ResumeToken = msg.ID
		events = append(events, ev)
	}
	return events, nil
}

func (s *EventStore) Trim(ctx context.Context, maxLen int64) (int, error) {
	keys, err := s.client.SMembers(ctx, streamRegistry).Result()
	if err != nil {
		return 0, fmt.Errorf("list streams: %w", err)
	}
	trimmed := 0
	for _, key := range keys {
		n, err := s.client.XTrimMaxLen(ctx, key, maxLen).Result()
		if err != nil {
			s.logger.WithFields(map[string]interface{}{"stream": key, "error": err.Error()}).Warn("failed to trim stream")
			continue
		}
		if n > 0 {
			trimmed++
		}
	}
	return trimmed, nil
}
