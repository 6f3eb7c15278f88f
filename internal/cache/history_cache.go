package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"rag-workspace-be/internal/entity"

	"github.com/google/uuid"
)

// HistoryCache keeps the recent message window of a chat session in redis so
// prompt assembly does not hit postgres on every turn. Entries are write
// through with a short TTL; the database remains the source of truth.
type HistoryCache struct {
	client     *redisv9.Client
	historyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 5 * time.Minute
	}
	return &HistoryCache{
		client:     client,
		historyTTL: historyTTL,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatMessage, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(sessionId)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var messages []*entity.ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, sessionId uuid.UUID, messages []*entity.ChatMessage) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(sessionId), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionId uuid.UUID) error {
	if err := c.client.Del(ctx, c.historyKey(sessionId)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(sessionId uuid.UUID) string {
	return fmt.Sprintf("chat:history:%s", sessionId)
}
