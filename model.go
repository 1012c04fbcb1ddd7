package chattube

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/chattube/ai"
	"github.com/flarexio/chattube/index"
	"github.com/flarexio/chattube/session"
	"github.com/flarexio/chattube/vector"
	"github.com/flarexio/chattube/youtube"
)

var (
	ErrInvalidVideoURL       = youtube.ErrInvalidVideoURL
	ErrTranscriptsDisabled   = youtube.ErrTranscriptsDisabled
	ErrNoTranscriptFound     = youtube.ErrNoTranscriptFound
	ErrTranscriptEmpty       = youtube.ErrTranscriptEmpty
	ErrTranscriptUnavailable = youtube.ErrTranscriptUnavailable
	ErrSessionNotFound       = session.ErrSessionNotFound
	ErrEmptyQuestion         = errors.New("question must not be empty")
	ErrInvalidChunkConfig    = errors.New("chunk overlap must be smaller than chunk size")
	ErrEmbeddingMismatch     = errors.New("embedding count does not match chunk count")
)

type Config struct {
	AI        ai.Config       `yaml:"ai"`
	Index     index.Config    `yaml:"index"`
	Session   session.Config  `yaml:"session"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

type YouTubeConfig struct {
	Languages []string `yaml:"languages"`
}

type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	TopK int `yaml:"topK"`
}

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 8
)

func DefaultConfig() Config {
	cfg := Config{
		AI: ai.DefaultConfig(),
		Index: index.Config{
			TTL: index.DefaultTTL,
		},
		Session: session.Config{
			Store: session.StoreTypeMemory,
			TTL:   24 * time.Hour,
		},
		YouTube: YouTubeConfig{
			Languages: youtube.DefaultLanguages,
		},
		Chunk: ChunkConfig{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK: DefaultTopK,
		},
	}

	return cfg
}

// LoadConfig reads a YAML config on top of the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	bs, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return cfg, err
	}

	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return cfg, err
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize replaces unset values with defaults.
func (cfg *Config) Normalize() {
	cfg.AI.Normalize()

	if cfg.Index.TTL <= 0 {
		cfg.Index.TTL = index.DefaultTTL
	}

	if cfg.Session.Store == "" {
		cfg.Session.Store = session.StoreTypeMemory
	}

	if len(cfg.YouTube.Languages) == 0 {
		cfg.YouTube.Languages = youtube.DefaultLanguages
	}

	if cfg.Chunk.Size <= 0 {
		cfg.Chunk.Size = DefaultChunkSize
	}

	if cfg.Chunk.Overlap < 0 {
		cfg.Chunk.Overlap = 0
	}

	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
}

// Message is one turn of a session's conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TranscriptToDocuments pairs every chunk with its embedding. Chunk ids are
// stable so a rebuilt index keeps the same documents.
func TranscriptToDocuments(videoID string, chunks []string, embeddings [][]float32) ([]vector.Document, error) {
	if len(chunks) != len(embeddings) {
		return nil, ErrEmbeddingMismatch
	}

	docs := make([]vector.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vector.Document{
			ID:      fmt.Sprintf("%s-%04d", videoID, i),
			Content: chunk,
			Metadata: map[string]string{
				"video_id": videoID,
				"chunk":    strconv.Itoa(i),
			},
			Embedding: embeddings[i],
		}
	}

	return docs, nil
}

func videoMetadata(videoID string, m youtube.Metadata) map[string]string {
	return map[string]string{
		"video_id":     videoID,
		"title":        m.Title,
		"channel_name": m.ChannelName,
		"channel_url":  m.ChannelURL,
	}
}
