package chattube

import (
	"context"

	"go.uber.org/zap"

	"github.com/flarexio/chattube/session"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "chattube"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) LoadVideo(ctx context.Context, videoURL string) (*session.Session, error) {
	log := mw.log.With(
		zap.String("action", "load_video"),
		zap.String("video_url", videoURL),
	)

	s, err := mw.next.LoadVideo(ctx, videoURL)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("video loaded",
		zap.String("session_id", s.ID),
		zap.String("video_id", s.VideoID),
		zap.String("title", s.Title),
	)

	return s, nil
}

func (mw *loggingMiddleware) Chat(ctx context.Context, sessionID string, question string) (string, error) {
	log := mw.log.With(
		zap.String("action", "chat"),
		zap.String("session_id", sessionID),
	)

	answer, err := mw.next.Chat(ctx, sessionID, question)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("question answered",
		zap.Int("question_len", len(question)),
		zap.Int("answer_len", len(answer)),
	)

	return answer, nil
}

func (mw *loggingMiddleware) History(ctx context.Context, sessionID string) ([]Message, error) {
	log := mw.log.With(
		zap.String("action", "history"),
		zap.String("session_id", sessionID),
	)

	messages, err := mw.next.History(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("history listed", zap.Int("count", len(messages)))
	return messages, nil
}

func (mw *loggingMiddleware) EndSession(ctx context.Context, sessionID string) error {
	log := mw.log.With(
		zap.String("action", "end_session"),
		zap.String("session_id", sessionID),
	)

	err := mw.next.EndSession(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("session ended")
	return nil
}
