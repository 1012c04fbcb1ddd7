package chattube

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/flarexio/chattube/index"
	"github.com/flarexio/chattube/persistence/chromem"
	"github.com/flarexio/chattube/session"
	"github.com/flarexio/chattube/vector"
	"github.com/flarexio/chattube/youtube"
)

const testTranscript = `Go is an open source programming language supported by Google. ` +
	`It is easy to learn and great for teams. Goroutines make concurrency cheap and channels ` +
	`let goroutines communicate. The standard library ships an HTTP server. ` +
	`Modules manage dependencies and the toolchain builds static binaries. ` +
	`Gophers are the mascot of the language and appear at every conference.`

type fakeFetcher struct {
	sync.Mutex
	transcripts map[string]string
	calls       int
}

func (f *fakeFetcher) Transcript(ctx context.Context, videoID string) (string, error) {
	f.Lock()
	defer f.Unlock()

	f.calls++

	transcript, ok := f.transcripts[videoID]
	if !ok {
		return "", youtube.ErrTranscriptsDisabled
	}

	return transcript, nil
}

func (f *fakeFetcher) Metadata(ctx context.Context, videoID string) youtube.Metadata {
	return youtube.Metadata{
		Title:       "Title of " + videoID,
		ChannelName: "Gopher Channel",
		ChannelURL:  "https://www.youtube.com/channel/UCgopher",
	}
}

func (f *fakeFetcher) Calls() int {
	f.Lock()
	defer f.Unlock()
	return f.calls
}

// fakeModel answers condense prompts with a fixed standalone question and
// everything else with a fixed answer.
type fakeModel struct {
	sync.Mutex
	prompts []string
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	prompt := messages[0].Parts[0].(llms.TextContent).Text

	m.Lock()
	m.prompts = append(m.prompts, prompt)
	m.Unlock()

	content := "Go is a programming language."
	if strings.Contains(prompt, "Standalone question:") {
		content = "What are goroutines used for?"
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: content},
		},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *fakeModel) Prompts() []string {
	m.Lock()
	defer m.Unlock()
	return append([]string(nil), m.prompts...)
}

// fakeEmbedder hashes words into a small bag-of-words vector.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 32)
	v[0] = 1

	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,?!")))
		v[1+h.Sum32()%31]++
	}

	return v, nil
}

func (e fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}

		vectors[i] = v
	}

	return vectors, nil
}

type chatTubeTestSuite struct {
	suite.Suite
	ctx     context.Context
	fetcher *fakeFetcher
	model   *fakeModel
	indexes *index.Cache
	svc     Service
}

func (suite *chatTubeTestSuite) SetupTest() {
	suite.ctx = context.Background()

	suite.fetcher = &fakeFetcher{
		transcripts: map[string]string{
			"gopher12345": testTranscript,
		},
	}

	suite.model = new(fakeModel)

	var embedder fakeEmbedder

	open := func(dir string) (vector.VectorDB, error) {
		return chromem.NewChromemVectorDB(dir, false, embedder.EmbedText)
	}

	indexes, err := index.NewCache(index.Config{
		Path: suite.T().TempDir(),
		TTL:  time.Hour,
	}, open)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	cfg := DefaultConfig()
	cfg.Chunk.Size = 120
	cfg.Chunk.Overlap = 20
	cfg.Retrieval.TopK = 2

	svc, err := NewService(cfg, suite.fetcher, indexes, session.NewMemoryStore(), suite.model, embedder)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.indexes = indexes
	suite.svc = svc
}

func (suite *chatTubeTestSuite) TearDownTest() {
	suite.svc.Close()
}

func (suite *chatTubeTestSuite) TestLoadVideo() {
	s, err := suite.svc.LoadVideo(suite.ctx, "https://www.youtube.com/watch?v=gopher12345")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.NotEmpty(s.ID)
	suite.Equal("gopher12345", s.VideoID)
	suite.Equal("Title of gopher12345", s.Title)
	suite.Equal("Gopher Channel", s.ChannelName)
	suite.Equal(1, suite.fetcher.Calls())
	suite.Equal(1, suite.indexes.Len())

	// A second load reuses the index but opens a new session.
	again, err := suite.svc.LoadVideo(suite.ctx, "https://youtu.be/gopher12345")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.NotEqual(s.ID, again.ID)
	suite.Equal(1, suite.fetcher.Calls())
}

func (suite *chatTubeTestSuite) TestLoadVideoErrors() {
	_, err := suite.svc.LoadVideo(suite.ctx, "https://vimeo.com/12345")
	suite.ErrorIs(err, ErrInvalidVideoURL)

	_, err = suite.svc.LoadVideo(suite.ctx, "https://youtu.be/nocaptions1")
	suite.ErrorIs(err, ErrTranscriptsDisabled)
	suite.Equal(0, suite.indexes.Len())
}

func (suite *chatTubeTestSuite) TestChat() {
	s, err := suite.svc.LoadVideo(suite.ctx, "https://youtu.be/gopher12345")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	answer, err := suite.svc.Chat(suite.ctx, s.ID, "  What is Go?  ")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("Go is a programming language.", answer)

	prompts := suite.model.Prompts()
	if !suite.Len(prompts, 1) {
		return
	}

	suite.Contains(prompts[0], "Context:\n")
	suite.Contains(prompts[0], "Question:\nWhat is Go?")

	// A follow-up question is condensed with the history first.
	_, err = suite.svc.Chat(suite.ctx, s.ID, "And what about them?")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	prompts = suite.model.Prompts()
	if !suite.Len(prompts, 3) {
		return
	}

	suite.Contains(prompts[1], "Human: What is Go?")
	suite.Contains(prompts[1], "Assistant: Go is a programming language.")
	suite.Contains(prompts[1], "Follow Up Input: And what about them?")
	suite.Contains(prompts[2], "Question:\nWhat are goroutines used for?")

	history, err := suite.svc.History(suite.ctx, s.ID)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]Message{
		{Role: "human", Content: "What is Go?"},
		{Role: "ai", Content: "Go is a programming language."},
		{Role: "human", Content: "And what about them?"},
		{Role: "ai", Content: "Go is a programming language."},
	}, history)
}

func (suite *chatTubeTestSuite) TestChatErrors() {
	_, err := suite.svc.Chat(suite.ctx, "unknown", "What is Go?")
	suite.ErrorIs(err, ErrSessionNotFound)

	s, err := suite.svc.LoadVideo(suite.ctx, "https://youtu.be/gopher12345")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	_, err = suite.svc.Chat(suite.ctx, s.ID, "   ")
	suite.ErrorIs(err, ErrEmptyQuestion)
	suite.Empty(suite.model.Prompts())
}

func (suite *chatTubeTestSuite) TestChatRebuildsEvictedIndex() {
	s, err := suite.svc.LoadVideo(suite.ctx, "https://youtu.be/gopher12345")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.True(suite.indexes.Evict("gopher12345"))
	suite.indexes.Close()

	answer, err := suite.svc.Chat(suite.ctx, s.ID, "What is Go?")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("Go is a programming language.", answer)
	suite.Equal(2, suite.fetcher.Calls())
}

func (suite *chatTubeTestSuite) TestEndSession() {
	s, err := suite.svc.LoadVideo(suite.ctx, "https://youtu.be/gopher12345")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	err = suite.svc.EndSession(suite.ctx, s.ID)
	suite.NoError(err)

	_, err = suite.svc.History(suite.ctx, s.ID)
	suite.ErrorIs(err, ErrSessionNotFound)

	err = suite.svc.EndSession(suite.ctx, s.ID)
	suite.ErrorIs(err, ErrSessionNotFound)
}

func (suite *chatTubeTestSuite) TestProxyOverEndpoints() {
	endpoints := MakeEndpoints(suite.svc)
	proxy := ProxyMiddleware(&endpoints)(nil)

	s, err := proxy.LoadVideo(suite.ctx, "https://www.youtube.com/embed/gopher12345")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("gopher12345", s.VideoID)
	suite.Equal("Title of gopher12345", s.Title)

	answer, err := proxy.Chat(suite.ctx, s.ID, "What is Go?")
	suite.NoError(err)
	suite.Equal("Go is a programming language.", answer)

	history, err := proxy.History(suite.ctx, s.ID)
	suite.NoError(err)
	suite.Len(history, 2)

	suite.NoError(proxy.EndSession(suite.ctx, s.ID))

	_, err = proxy.Chat(suite.ctx, s.ID, "What is Go?")
	suite.ErrorIs(err, ErrSessionNotFound)
}

func (suite *chatTubeTestSuite) TestMiddlewares() {
	svc := LoggingMiddleware(zap.NewNop())(suite.svc)
	svc = InstrumentingMiddleware()(svc)

	s, err := svc.LoadVideo(suite.ctx, "https://youtu.be/gopher12345")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	_, err = svc.Chat(suite.ctx, s.ID, "What is Go?")
	suite.NoError(err)

	_, err = svc.Chat(suite.ctx, "unknown", "What is Go?")
	suite.ErrorIs(err, ErrSessionNotFound)
}

func TestChatTubeTestSuite(t *testing.T) {
	suite.Run(t, new(chatTubeTestSuite))
}

func TestNewServiceRejectsOverlap(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.Chunk.Size = 100
	cfg.Chunk.Overlap = 100

	_, err := NewService(cfg, nil, nil, nil, nil, nil)
	assert.ErrorIs(err, ErrInvalidChunkConfig)
}
