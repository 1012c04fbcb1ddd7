package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/chattube"
)

// DefaultRequestTimeout covers loading a video, which fetches, embeds and
// indexes a whole transcript before the reply.
const DefaultRequestTimeout = 5 * time.Minute

// MakeEndpoints builds a client-side EndpointSet for a chattube service
// group mounted at prefix. Requests whose context has no deadline wait at
// most timeout; a non-positive timeout means DefaultRequestTimeout.
func MakeEndpoints(nc *nats.Conn, prefix string, timeout time.Duration) *chattube.EndpointSet {
	return &chattube.EndpointSet{
		LoadVideo:  LoadVideoEndpoint(nc, prefix+".load_video", timeout),
		Chat:       ChatEndpoint(nc, prefix+".chat", timeout),
		History:    HistoryEndpoint(nc, prefix+".history", timeout),
		EndSession: EndSessionEndpoint(nc, prefix+".end_session", timeout),
	}
}

func requestContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}

	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return context.WithTimeout(ctx, timeout)
}

func call(ctx context.Context, nc *nats.Conn, topic string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	ctx, cancel := requestContext(ctx, timeout)
	defer cancel()

	resp, err := nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		return nil, err
	}

	if err := Error(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func LoadVideoEndpoint(nc *nats.Conn, topic string, timeout time.Duration) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(chattube.LoadVideoRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := call(ctx, nc, topic, data, timeout)
		if err != nil {
			return nil, err
		}

		var result chattube.LoadVideoResponse
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

func ChatEndpoint(nc *nats.Conn, topic string, timeout time.Duration) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(chattube.ChatRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := call(ctx, nc, topic, data, timeout)
		if err != nil {
			return nil, err
		}

		var result chattube.ChatResponse
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

func HistoryEndpoint(nc *nats.Conn, topic string, timeout time.Duration) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := call(ctx, nc, topic, []byte(sessionID), timeout)
		if err != nil {
			return nil, err
		}

		var messages []chattube.Message
		if err := json.Unmarshal(resp.Data, &messages); err != nil {
			return nil, err
		}

		return messages, nil
	}
}

func EndSessionEndpoint(nc *nats.Conn, topic string, timeout time.Duration) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		_, err := call(ctx, nc, topic, []byte(sessionID), timeout)
		return nil, err
	}
}

// Error extracts the micro error carried by msg, restoring the service
// error it was created from when the description matches one.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	for _, known := range knownErrors {
		if description == known.Error() {
			return known
		}
	}

	for _, known := range knownErrors {
		if detail, ok := strings.CutPrefix(description, known.Error()+": "); ok {
			return fmt.Errorf("%w: %s", known, detail)
		}
	}

	return errors.New(code + ":" + description)
}
