package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms"
)

const sessionKeyPrefix = "chattube:session:"

// redisMessage is the JSON representation of a chat message in Redis.
type redisMessage struct {
	Type    llms.ChatMessageType `json:"type"`
	Content string               `json:"content"`
}

// NewRedisStore keeps sessions in Redis. A positive ttl expires sessions
// that have not been touched for that long.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{
		client: client,
		ttl:    ttl,
	}
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (store *redisStore) Create(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return ErrInvalidSession
	}

	key := sessionKey(s.ID)

	_, err := store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, messagesKey(s.ID))
		pipe.HSet(ctx, key, map[string]any{
			"video_id":     s.VideoID,
			"title":        s.Title,
			"channel_name": s.ChannelName,
			"channel_url":  s.ChannelURL,
			"created_at":   s.CreatedAt.Format(time.RFC3339Nano),
		})

		if store.ttl > 0 {
			pipe.Expire(ctx, key, store.ttl)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}

	return nil
}

func (store *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	fields, err := store.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	if len(fields) == 0 {
		return nil, ErrSessionNotFound
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	if err := store.refresh(ctx, id); err != nil {
		return nil, err
	}

	return &Session{
		ID:          id,
		VideoID:     fields["video_id"],
		Title:       fields["title"],
		ChannelName: fields["channel_name"],
		ChannelURL:  fields["channel_url"],
		CreatedAt:   createdAt,
	}, nil
}

func (store *redisStore) Delete(ctx context.Context, id string) error {
	n, err := store.client.Del(ctx, sessionKey(id), messagesKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}

	if n == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (store *redisStore) History(ctx context.Context, id string) (History, error) {
	n, err := store.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis exists: %w", err)
	}

	if n == 0 {
		return nil, ErrSessionNotFound
	}

	return &redisHistory{store, id}, nil
}

func (store *redisStore) Close() error {
	return store.client.Close()
}

// refresh slides the expiry of both session keys.
func (store *redisStore) refresh(ctx context.Context, id string) error {
	if store.ttl <= 0 {
		return nil
	}

	_, err := store.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Expire(ctx, sessionKey(id), store.ttl)
		pipe.Expire(ctx, messagesKey(id), store.ttl)
		return nil
	})

	if err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}

	return nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func messagesKey(id string) string {
	return sessionKeyPrefix + id + ":messages"
}

type redisHistory struct {
	store *redisStore
	id    string
}

func (h *redisHistory) AddUserMessage(ctx context.Context, text string) error {
	return h.add(ctx, llms.ChatMessageTypeHuman, text)
}

func (h *redisHistory) AddAIMessage(ctx context.Context, text string) error {
	return h.add(ctx, llms.ChatMessageTypeAI, text)
}

func (h *redisHistory) add(ctx context.Context, typ llms.ChatMessageType, text string) error {
	data, err := json.Marshal(redisMessage{Type: typ, Content: text})
	if err != nil {
		return err
	}

	if err := h.store.client.RPush(ctx, messagesKey(h.id), data).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}

	return h.store.refresh(ctx, h.id)
}

func (h *redisHistory) Messages(ctx context.Context) ([]llms.ChatMessage, error) {
	values, err := h.store.client.LRange(ctx, messagesKey(h.id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	messages := make([]llms.ChatMessage, 0, len(values))
	for _, value := range values {
		var msg redisMessage
		if err := json.Unmarshal([]byte(value), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}

		switch msg.Type {
		case llms.ChatMessageTypeHuman:
			messages = append(messages, llms.HumanChatMessage{Content: msg.Content})
		case llms.ChatMessageTypeAI:
			messages = append(messages, llms.AIChatMessage{Content: msg.Content})
		case llms.ChatMessageTypeSystem:
			messages = append(messages, llms.SystemChatMessage{Content: msg.Content})
		}
	}

	return messages, nil
}

func (h *redisHistory) Clear(ctx context.Context) error {
	return h.store.client.Del(ctx, messagesKey(h.id)).Err()
}
