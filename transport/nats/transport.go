package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/chattube"
	"github.com/flarexio/chattube/index"
)

const (
	CodeBadRequest = "400"
	CodeNotFound   = "404"
	CodeInternal   = "500"
)

// knownErrors travel over the wire by message and are restored on the
// client side.
var knownErrors = []error{
	chattube.ErrSessionNotFound,
	chattube.ErrInvalidVideoURL,
	chattube.ErrTranscriptsDisabled,
	chattube.ErrNoTranscriptFound,
	chattube.ErrTranscriptEmpty,
	chattube.ErrTranscriptUnavailable,
	chattube.ErrEmptyQuestion,
	index.ErrInvalidVideoID,
}

func StatusCode(err error) string {
	switch {
	case errors.Is(err, chattube.ErrSessionNotFound):
		return CodeNotFound

	case errors.Is(err, chattube.ErrInvalidVideoURL),
		errors.Is(err, chattube.ErrTranscriptsDisabled),
		errors.Is(err, chattube.ErrNoTranscriptFound),
		errors.Is(err, chattube.ErrTranscriptEmpty),
		errors.Is(err, chattube.ErrTranscriptUnavailable),
		errors.Is(err, chattube.ErrEmptyQuestion),
		errors.Is(err, index.ErrInvalidVideoID):
		return CodeBadRequest

	default:
		return CodeInternal
	}
}

func respondError(r micro.Request, err error) {
	r.Error(StatusCode(err), err.Error(), nil)
}

func LoadVideoHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req chattube.LoadVideoRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error(CodeBadRequest, err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(&resp)
	}
}

func ChatHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req chattube.ChatRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error(CodeBadRequest, err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(&resp)
	}
}

func HistoryHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		sessionID := string(r.Data())
		if sessionID == "" {
			r.Error(CodeBadRequest, "session id is required", nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, sessionID)
		if err != nil {
			respondError(r, err)
			return
		}

		messages, ok := resp.([]chattube.Message)
		if !ok {
			r.Error(CodeInternal, "invalid response type", nil)
			return
		}

		r.RespondJSON(&messages)
	}
}

func EndSessionHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		sessionID := string(r.Data())
		if sessionID == "" {
			r.Error(CodeBadRequest, "session id is required", nil)
			return
		}

		ctx := context.Background()
		if _, err := endpoint(ctx, sessionID); err != nil {
			respondError(r, err)
			return
		}

		r.Respond([]byte("OK"))
	}
}
