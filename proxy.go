package chattube

import (
	"context"
	"errors"
	"time"

	"github.com/flarexio/chattube/session"
	"github.com/flarexio/chattube/youtube"
)

// ProxyMiddleware turns a remote EndpointSet into a Service.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return nil
}

func (mw *proxyMiddleware) LoadVideo(ctx context.Context, videoURL string) (*session.Session, error) {
	req := LoadVideoRequest{
		VideoURL: videoURL,
	}

	resp, err := mw.endpoints.LoadVideo(ctx, req)
	if err != nil {
		return nil, err
	}

	result, ok := resp.(LoadVideoResponse)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	// The remote side already validated the URL.
	videoID, _ := youtube.ExtractVideoID(videoURL)

	return &session.Session{
		ID:        result.SessionID,
		VideoID:   videoID,
		Title:     result.Title,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (mw *proxyMiddleware) Chat(ctx context.Context, sessionID string, question string) (string, error) {
	req := ChatRequest{
		SessionID: sessionID,
		Question:  question,
	}

	resp, err := mw.endpoints.Chat(ctx, req)
	if err != nil {
		return "", err
	}

	result, ok := resp.(ChatResponse)
	if !ok {
		return "", errors.New("invalid response type")
	}

	return result.Answer, nil
}

func (mw *proxyMiddleware) History(ctx context.Context, sessionID string) ([]Message, error) {
	resp, err := mw.endpoints.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, ok := resp.([]Message)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return messages, nil
}

func (mw *proxyMiddleware) EndSession(ctx context.Context, sessionID string) error {
	_, err := mw.endpoints.EndSession(ctx, sessionID)
	return err
}
