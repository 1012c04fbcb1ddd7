package chattube

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	LoadVideo  endpoint.Endpoint
	Chat       endpoint.Endpoint
	History    endpoint.Endpoint
	EndSession endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		LoadVideo:  LoadVideoEndpoint(svc),
		Chat:       ChatEndpoint(svc),
		History:    HistoryEndpoint(svc),
		EndSession: EndSessionEndpoint(svc),
	}
}

type LoadVideoRequest struct {
	VideoURL string `json:"video_url"`
}

type LoadVideoResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}

func LoadVideoEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(LoadVideoRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		s, err := svc.LoadVideo(ctx, req.VideoURL)
		if err != nil {
			return nil, err
		}

		return LoadVideoResponse{
			Message:   "Video loaded successfully.",
			SessionID: s.ID,
			Title:     s.Title,
		}, nil
	}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

func ChatEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ChatRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		answer, err := svc.Chat(ctx, req.SessionID, req.Question)
		if err != nil {
			return nil, err
		}

		return ChatResponse{answer}, nil
	}
}

func HistoryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.History(ctx, sessionID)
	}
}

func EndSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.EndSession(ctx, sessionID)
		return nil, err
	}
}
