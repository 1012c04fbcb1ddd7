package session

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
)

func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[string]*memorySession),
	}
}

type memoryStore struct {
	sessions map[string]*memorySession
	sync.RWMutex
}

type memorySession struct {
	session Session
	history *memoryHistory
}

func (store *memoryStore) Create(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return ErrInvalidSession
	}

	store.Lock()
	defer store.Unlock()

	store.sessions[s.ID] = &memorySession{
		session: *s,
		history: &memoryHistory{
			history: memory.NewChatMessageHistory(),
		},
	}

	return nil
}

func (store *memoryStore) Get(ctx context.Context, id string) (*Session, error) {
	store.RLock()
	defer store.RUnlock()

	s, ok := store.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	session := s.session
	return &session, nil
}

func (store *memoryStore) Delete(ctx context.Context, id string) error {
	store.Lock()
	defer store.Unlock()

	if _, ok := store.sessions[id]; !ok {
		return ErrSessionNotFound
	}

	delete(store.sessions, id)
	return nil
}

func (store *memoryStore) History(ctx context.Context, id string) (History, error) {
	store.RLock()
	defer store.RUnlock()

	s, ok := store.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return s.history, nil
}

func (store *memoryStore) Close() error {
	store.Lock()
	defer store.Unlock()

	store.sessions = make(map[string]*memorySession)
	return nil
}

// memoryHistory serializes access to the langchaingo history, which is not
// safe for concurrent use on its own.
type memoryHistory struct {
	history *memory.ChatMessageHistory
	sync.Mutex
}

func (h *memoryHistory) AddUserMessage(ctx context.Context, text string) error {
	h.Lock()
	defer h.Unlock()

	return h.history.AddUserMessage(ctx, text)
}

func (h *memoryHistory) AddAIMessage(ctx context.Context, text string) error {
	h.Lock()
	defer h.Unlock()

	return h.history.AddAIMessage(ctx, text)
}

func (h *memoryHistory) Messages(ctx context.Context) ([]llms.ChatMessage, error) {
	h.Lock()
	defer h.Unlock()

	messages, err := h.history.Messages(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]llms.ChatMessage, len(messages))
	copy(out, messages)

	return out, nil
}

func (h *memoryHistory) Clear(ctx context.Context) error {
	h.Lock()
	defer h.Unlock()

	return h.history.Clear(ctx)
}
