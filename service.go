package chattube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/flarexio/chattube/ai"
	"github.com/flarexio/chattube/index"
	"github.com/flarexio/chattube/session"
	"github.com/flarexio/chattube/youtube"
)

// Service defines the core logic of ChatTube.
type Service interface {

	// Close releases the index cache and the session store.
	Close() error

	// LoadVideo indexes the transcript of the video (or reuses a cached
	// index) and opens a new chat session for it.
	LoadVideo(ctx context.Context, videoURL string) (*session.Session, error)

	// Chat answers a question about the session's video, taking the
	// session's history into account.
	Chat(ctx context.Context, sessionID string, question string) (string, error)

	// History returns the conversation of the session, oldest first.
	History(ctx context.Context, sessionID string) ([]Message, error)

	// EndSession forgets the session and its history.
	EndSession(ctx context.Context, sessionID string) error
}

type ServiceMiddleware func(Service) Service

// Embedder turns transcript chunks into embeddings, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

func NewService(cfg Config, fetcher youtube.Fetcher, indexes *index.Cache, sessions session.Store, model llms.Model, embedder Embedder) (Service, error) {
	cfg.Normalize()

	if cfg.Chunk.Overlap >= cfg.Chunk.Size {
		return nil, ErrInvalidChunkConfig
	}

	log := zap.L().With(
		zap.String("service", "chattube"),
	)

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.Chunk.Size),
		textsplitter.WithChunkOverlap(cfg.Chunk.Overlap),
	)

	return &service{
		cfg:      cfg,
		fetcher:  fetcher,
		indexes:  indexes,
		sessions: sessions,
		model:    model,
		embedder: embedder,
		splitter: splitter,
		log:      log,
	}, nil
}

type service struct {
	cfg      Config
	fetcher  youtube.Fetcher
	indexes  *index.Cache
	sessions session.Store
	model    llms.Model
	embedder Embedder
	splitter textsplitter.TextSplitter
	log      *zap.Logger
}

func (svc *service) Close() error {
	log := svc.log.With(
		zap.String("action", "close"),
	)

	if err := svc.indexes.Close(); err != nil {
		log.Error(err.Error())
	}

	return svc.sessions.Close()
}

func (svc *service) LoadVideo(ctx context.Context, videoURL string) (*session.Session, error) {
	videoID, err := youtube.ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}

	idx, err := svc.indexes.Get(ctx, videoID, svc.loadTranscript)
	if err != nil {
		return nil, err
	}

	title := idx.Metadata["title"]
	if title == "" {
		title = youtube.UnknownTitle
	}

	s := &session.Session{
		ID:          uuid.NewString(),
		VideoID:     videoID,
		Title:       title,
		ChannelName: idx.Metadata["channel_name"],
		ChannelURL:  idx.Metadata["channel_url"],
		CreatedAt:   time.Now().UTC(),
	}

	if err := svc.sessions.Create(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}

// loadTranscript is the index.Loader used when a video is not cached.
func (svc *service) loadTranscript(ctx context.Context, videoID string) (*index.Payload, error) {
	log := svc.log.With(
		zap.String("action", "load_transcript"),
		zap.String("video_id", videoID),
	)

	transcript, err := svc.fetcher.Transcript(ctx, videoID)
	if err != nil {
		return nil, err
	}

	chunks, err := svc.splitter.SplitText(transcript)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		return nil, ErrTranscriptEmpty
	}

	embeddings, err := svc.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed transcript: %w", err)
	}

	docs, err := TranscriptToDocuments(videoID, chunks, embeddings)
	if err != nil {
		return nil, err
	}

	metadata := svc.fetcher.Metadata(ctx, videoID)

	log.Info("transcript prepared",
		zap.Int("chars", len(transcript)),
		zap.Int("chunks", len(chunks)),
	)

	return &index.Payload{
		Metadata:  videoMetadata(videoID, metadata),
		Documents: docs,
	}, nil
}

func (svc *service) Chat(ctx context.Context, sessionID string, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	s, err := svc.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	history, err := svc.sessions.History(ctx, sessionID)
	if err != nil {
		return "", err
	}

	// The index may have expired since the session was opened.
	idx, err := svc.indexes.Get(ctx, s.VideoID, svc.loadTranscript)
	if err != nil {
		return "", err
	}

	messages, err := history.Messages(ctx)
	if err != nil {
		return "", err
	}

	standalone, err := svc.condense(ctx, messages, question)
	if err != nil {
		return "", err
	}

	docs, err := idx.Collection.Query(ctx, standalone, svc.cfg.Retrieval.TopK)
	if err != nil {
		return "", err
	}

	contents := make([]string, len(docs))
	for i, doc := range docs {
		contents[i] = doc.Content
	}

	prompt, err := QAPrompt.Format(map[string]any{
		"context":  strings.Join(contents, "\n\n"),
		"question": standalone,
	})
	if err != nil {
		return "", err
	}

	answer, err := ai.Generate(ctx, svc.model, prompt, svc.cfg.AI.Temperature)
	if err != nil {
		return "", err
	}

	if err := history.AddUserMessage(ctx, question); err != nil {
		return "", err
	}

	if err := history.AddAIMessage(ctx, answer); err != nil {
		return "", err
	}

	return answer, nil
}

// condense rewrites a follow-up question into a standalone one. The first
// question of a session is used as is.
func (svc *service) condense(ctx context.Context, messages []llms.ChatMessage, question string) (string, error) {
	if len(messages) == 0 {
		return question, nil
	}

	buffer, err := llms.GetBufferString(messages, "Human", "Assistant")
	if err != nil {
		return "", err
	}

	prompt, err := CondensePrompt.Format(map[string]any{
		"chat_history": buffer,
		"question":     question,
	})
	if err != nil {
		return "", err
	}

	standalone, err := ai.Generate(ctx, svc.model, prompt, svc.cfg.AI.Temperature)
	if err != nil {
		return "", err
	}

	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		return question, nil
	}

	return standalone, nil
}

func (svc *service) History(ctx context.Context, sessionID string) ([]Message, error) {
	history, err := svc.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := history.Messages(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Message, len(messages))
	for i, msg := range messages {
		result[i] = Message{
			Role:    string(msg.GetType()),
			Content: msg.GetContent(),
		}
	}

	return result, nil
}

func (svc *service) EndSession(ctx context.Context, sessionID string) error {
	return svc.sessions.Delete(ctx, sessionID)
}
