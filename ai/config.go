package ai

import (
	"errors"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type ProviderType string

const (
	ProviderGoogleAI ProviderType = "googleai"
	ProviderOpenAI   ProviderType = "openai"
)

var (
	ErrAPIKeyRequired      = errors.New("GOOGLE_API_KEY is not set")
	ErrUnsupportedProvider = errors.New("unsupported AI provider")
	ErrEmptyCompletion     = errors.New("model returned no completion")
)

// Config holds configuration for the chat model and the embedding model.
type Config struct {
	// Provider selects the backend: googleai (Gemini) or any
	// OpenAI-compatible API.
	Provider ProviderType `yaml:"provider"`

	// APIKey authenticates against the provider. LoadSecrets overrides it
	// from the environment.
	APIKey string `yaml:"apiKey"`

	// BaseURL is only used by the openai provider.
	BaseURL string `yaml:"baseURL"`

	ChatModel      string  `yaml:"chatModel"`
	EmbeddingModel string  `yaml:"embeddingModel"`
	Temperature    float64 `yaml:"temperature"`

	// EmbeddingBatchSize is the number of texts per embedding request.
	EmbeddingBatchSize int `yaml:"embeddingBatchSize"`

	// PoolSize bounds concurrent embedding requests.
	PoolSize int `yaml:"poolSize"`
}

func DefaultConfig() Config {
	return Config{
		Provider:           ProviderGoogleAI,
		ChatModel:          "gemini-1.5-flash-latest",
		EmbeddingModel:     "embedding-001",
		Temperature:        0.2,
		EmbeddingBatchSize: 32,
		PoolSize:           4,
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()

	c.Provider = ProviderType(strings.ToLower(string(c.Provider)))
	if c.Provider == "" {
		c.Provider = def.Provider
	}

	if c.ChatModel == "" && c.Provider == ProviderGoogleAI {
		c.ChatModel = def.ChatModel
	}

	if c.EmbeddingModel == "" && c.Provider == ProviderGoogleAI {
		c.EmbeddingModel = def.EmbeddingModel
	}

	if c.EmbeddingBatchSize <= 0 {
		c.EmbeddingBatchSize = def.EmbeddingBatchSize
	}

	if c.PoolSize <= 0 {
		c.PoolSize = def.PoolSize
	}
}

func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderGoogleAI:
		if c.APIKey == "" {
			return ErrAPIKeyRequired
		}

	case ProviderOpenAI:
		if c.ChatModel == "" {
			return errors.New("ai config: chatModel is required")
		}

		if c.EmbeddingModel == "" {
			return errors.New("ai config: embeddingModel is required")
		}

	default:
		return ErrUnsupportedProvider
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: temperature must be between 0 and 2")
	}

	return nil
}

type Secrets struct {
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
}

func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return Secrets{}, err
	}

	return s, nil
}

// Apply copies the key matching the configured provider, if one is set.
func (s Secrets) Apply(c *Config) {
	switch c.Provider {
	case ProviderGoogleAI, "":
		if s.GoogleAPIKey != "" {
			c.APIKey = s.GoogleAPIKey
		}

	case ProviderOpenAI:
		if s.OpenAIAPIKey != "" {
			c.APIKey = s.OpenAIAPIKey
		}
	}
}
