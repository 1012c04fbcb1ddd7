package ai

import (
	"context"
	"io"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// Provider bundles the chat model and the embedder built from one Config.
type Provider struct {
	Model    llms.Model
	Embedder *Embedder

	log *zap.Logger
}

func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		model  llms.Model
		client embeddings.EmbedderClient
	)

	switch cfg.Provider {
	case ProviderGoogleAI:
		c, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.ChatModel),
			googleai.WithDefaultEmbeddingModel(cfg.EmbeddingModel),
		)
		if err != nil {
			return nil, err
		}

		model, client = c, c

	case ProviderOpenAI:
		// Local OpenAI-compatible servers accept any token.
		token := cfg.APIKey
		if token == "" {
			token = "none"
		}

		opts := []openai.Option{
			openai.WithToken(token),
			openai.WithModel(cfg.ChatModel),
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
		}

		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}

		c, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}

		model, client = c, c

	default:
		return nil, ErrUnsupportedProvider
	}

	embedder, err := NewEmbedder(client, cfg.EmbeddingBatchSize, cfg.PoolSize)
	if err != nil {
		return nil, err
	}

	return &Provider{
		Model:    model,
		Embedder: embedder,
		log: zap.L().With(
			zap.String("component", "ai_provider"),
			zap.String("provider", string(cfg.Provider)),
		),
	}, nil
}

func (p *Provider) Close() error {
	p.Embedder.Release()

	if closer, ok := p.Model.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			p.log.Error(err.Error())
			return err
		}
	}

	return nil
}

// Generate sends a single human prompt and returns the first choice.
func Generate(ctx context.Context, model llms.Model, prompt string, temperature float64) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := model.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Content, nil
}
