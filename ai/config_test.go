package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"
)

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	cfg := Config{Provider: "GoogleAI"}
	cfg.Normalize()

	assert.Equal(ProviderGoogleAI, cfg.Provider)
	assert.Equal("gemini-1.5-flash-latest", cfg.ChatModel)
	assert.Equal("embedding-001", cfg.EmbeddingModel)
	assert.Equal(32, cfg.EmbeddingBatchSize)
	assert.Equal(4, cfg.PoolSize)

	// openai has no implicit models
	cfg = Config{Provider: ProviderOpenAI}
	cfg.Normalize()

	assert.Empty(cfg.ChatModel)
	assert.Empty(cfg.EmbeddingModel)
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	assert.ErrorIs(cfg.Validate(), ErrAPIKeyRequired)
	assert.EqualError(ErrAPIKeyRequired, "GOOGLE_API_KEY is not set")

	cfg.APIKey = "key"
	assert.NoError(cfg.Validate())

	cfg.Temperature = 3
	assert.Error(cfg.Validate())

	cfg = Config{Provider: "anthropic"}
	assert.ErrorIs(cfg.Validate(), ErrUnsupportedProvider)

	cfg = Config{Provider: ProviderOpenAI, ChatModel: "llama3"}
	assert.Error(cfg.Validate())

	cfg.EmbeddingModel = "nomic-embed-text"
	assert.NoError(cfg.Validate())
}

func TestSecrets(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	secrets, err := LoadSecrets()
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	cfg := DefaultConfig()
	cfg.APIKey = "from-file"
	secrets.Apply(&cfg)
	assert.Equal("google-key", cfg.APIKey)

	cfg = Config{Provider: ProviderOpenAI}
	secrets.Apply(&cfg)
	assert.Equal("openai-key", cfg.APIKey)

	// an unset variable keeps the file value
	cfg = Config{Provider: ProviderGoogleAI, APIKey: "from-file"}
	Secrets{}.Apply(&cfg)
	assert.Equal("from-file", cfg.APIKey)
}

func TestNewProviderOpenAI(t *testing.T) {
	assert := assert.New(t)

	provider, err := NewProvider(context.Background(), Config{
		Provider:       ProviderOpenAI,
		BaseURL:        "http://localhost:11434/v1",
		ChatModel:      "llama3",
		EmbeddingModel: "nomic-embed-text",
	})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.NotNil(provider.Model)
	assert.NotNil(provider.Embedder)
	assert.NoError(provider.Close())
}

type fakeModel struct {
	resp *llms.ContentResponse
	err  error
	opts llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&m.opts)
	}

	return m.resp, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestGenerate(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	model := &fakeModel{
		resp: &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: "42"}},
		},
	}

	answer, err := Generate(ctx, model, "meaning of life?", 0.2)
	assert.NoError(err)
	assert.Equal("42", answer)
	assert.Equal(0.2, model.opts.Temperature)

	model = &fakeModel{resp: &llms.ContentResponse{}}
	_, err = Generate(ctx, model, "anything", 0.2)
	assert.ErrorIs(err, ErrEmptyCompletion)

	model = &fakeModel{err: errors.New("quota exceeded")}
	_, err = Generate(ctx, model, "anything", 0.2)
	assert.EqualError(err, "quota exceeded")
}
