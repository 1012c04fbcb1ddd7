package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tmc/langchaingo/llms"
)

type storeTestSuite struct {
	suite.Suite
	ctx      context.Context
	newStore func(t *testing.T) Store
	store    Store
}

func (suite *storeTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = suite.newStore(suite.T())
}

func (suite *storeTestSuite) TearDownTest() {
	suite.store.Close()
}

func (suite *storeTestSuite) session(id string) *Session {
	return &Session{
		ID:          id,
		VideoID:     "dQw4w9WgXcQ",
		Title:       "Never Gonna Give You Up",
		ChannelName: "Rick Astley",
		ChannelURL:  "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw",
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC),
	}
}

func (suite *storeTestSuite) TestCreateAndGet() {
	expected := suite.session("s-1")

	err := suite.store.Create(suite.ctx, expected)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	s, err := suite.store.Get(suite.ctx, "s-1")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(expected.ID, s.ID)
	suite.Equal(expected.VideoID, s.VideoID)
	suite.Equal(expected.Title, s.Title)
	suite.Equal(expected.ChannelName, s.ChannelName)
	suite.Equal(expected.ChannelURL, s.ChannelURL)
	suite.True(expected.CreatedAt.Equal(s.CreatedAt))

	_, err = suite.store.Get(suite.ctx, "s-2")
	suite.ErrorIs(err, ErrSessionNotFound)

	err = suite.store.Create(suite.ctx, &Session{})
	suite.ErrorIs(err, ErrInvalidSession)
}

func (suite *storeTestSuite) TestHistory() {
	if err := suite.store.Create(suite.ctx, suite.session("s-1")); err != nil {
		suite.Fail(err.Error())
		return
	}

	history, err := suite.store.History(suite.ctx, "s-1")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.NoError(history.AddUserMessage(suite.ctx, "What is this song about?"))
	suite.NoError(history.AddAIMessage(suite.ctx, "Commitment."))

	// Histories are shared between lookups of the same session.
	same, err := suite.store.History(suite.ctx, "s-1")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	messages, err := same.Messages(suite.ctx)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	if suite.Len(messages, 2) {
		suite.Equal(llms.ChatMessageTypeHuman, messages[0].GetType())
		suite.Equal("What is this song about?", messages[0].GetContent())
		suite.Equal(llms.ChatMessageTypeAI, messages[1].GetType())
		suite.Equal("Commitment.", messages[1].GetContent())
	}

	suite.NoError(history.Clear(suite.ctx))

	messages, err = history.Messages(suite.ctx)
	suite.NoError(err)
	suite.Empty(messages)

	_, err = suite.store.History(suite.ctx, "unknown")
	suite.ErrorIs(err, ErrSessionNotFound)
}

func (suite *storeTestSuite) TestSessionsAreIsolated() {
	for _, id := range []string{"s-1", "s-2"} {
		if err := suite.store.Create(suite.ctx, suite.session(id)); err != nil {
			suite.Fail(err.Error())
			return
		}
	}

	h1, err := suite.store.History(suite.ctx, "s-1")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.NoError(h1.AddUserMessage(suite.ctx, "only in s-1"))

	h2, err := suite.store.History(suite.ctx, "s-2")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	messages, err := h2.Messages(suite.ctx)
	suite.NoError(err)
	suite.Empty(messages)
}

func (suite *storeTestSuite) TestDelete() {
	if err := suite.store.Create(suite.ctx, suite.session("s-1")); err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.NoError(suite.store.Delete(suite.ctx, "s-1"))

	_, err := suite.store.Get(suite.ctx, "s-1")
	suite.ErrorIs(err, ErrSessionNotFound)

	_, err = suite.store.History(suite.ctx, "s-1")
	suite.ErrorIs(err, ErrSessionNotFound)

	err = suite.store.Delete(suite.ctx, "s-1")
	suite.ErrorIs(err, ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &storeTestSuite{
		newStore: func(t *testing.T) Store {
			return NewMemoryStore()
		},
	})
}

func TestRedisStore(t *testing.T) {
	suite.Run(t, &storeTestSuite{
		newStore: func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			return NewRedisStore(client, time.Hour)
		},
	})
}

func TestRedisStoreSlidingTTL(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := NewRedisStore(client, time.Minute)
	defer store.Close()

	err := store.Create(ctx, &Session{ID: "s-1", VideoID: "abc", CreatedAt: time.Now()})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	// Access before expiry slides the deadline.
	mr.FastForward(40 * time.Second)
	_, err = store.Get(ctx, "s-1")
	assert.NoError(err)

	mr.FastForward(40 * time.Second)
	_, err = store.Get(ctx, "s-1")
	assert.NoError(err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(err, ErrSessionNotFound)
}
