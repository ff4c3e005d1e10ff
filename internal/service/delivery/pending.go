package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"dm_chat/internal/model"
	redisSvc "dm_chat/internal/service/redis"
)

// Queue holds events that could not be pushed to a live connection, for
// replay when the user reconnects.
type Queue interface {
	Enqueue(ctx context.Context, user string, ev model.Event) error
	Drain(ctx context.Context, user string) ([]model.Event, error)
}

// RedisQueue keeps one list per user of JSON-encoded events.
type RedisQueue struct {
	redisService *redisSvc.RedisService
}

func NewRedisQueue(redisService *redisSvc.RedisService) *RedisQueue {
	return &RedisQueue{redisService: redisService}
}

func pendingKey(user string) string {
	return fmt.Sprintf("pending:%s", user)
}

func (q *RedisQueue) Enqueue(ctx context.Context, user string, ev model.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return q.redisService.RPush(ctx, pendingKey(user), data)
}

func (q *RedisQueue) Drain(ctx context.Context, user string) ([]model.Event, error) {
	key := pendingKey(user)
	vals, err := q.redisService.LRange(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := q.redisService.Del(ctx, key); err != nil {
		return nil, err
	}

	var events []model.Event
	for _, v := range vals {
		var ev model.Event
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
