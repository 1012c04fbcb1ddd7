// Package session keeps the chat history of every session.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms"
)

var (
	ErrSessionNotFound = errors.New("Session not found. Please load a video first.")
	ErrInvalidSession  = errors.New("invalid session")
)

type Session struct {
	ID          string    `json:"session_id"`
	VideoID     string    `json:"video_id"`
	Title       string    `json:"title"`
	ChannelName string    `json:"channel_name,omitempty"`
	ChannelURL  string    `json:"channel_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// History is the conversation memory of one session.
type History interface {
	AddUserMessage(ctx context.Context, text string) error
	AddAIMessage(ctx context.Context, text string) error
	Messages(ctx context.Context) ([]llms.ChatMessage, error)
	Clear(ctx context.Context) error
}

type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error

	// History returns the history bound to the session.
	History(ctx context.Context, id string) (History, error)

	Close() error
}

type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

type Config struct {
	Store StoreType `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	TTL time.Duration `yaml:"ttl"`
}
