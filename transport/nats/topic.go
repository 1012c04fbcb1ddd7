package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/chattube"
)

func AddEndpoints(group micro.Group, endpoints chattube.EndpointSet) error {
	handlers := map[string]micro.HandlerFunc{
		"load_video":  LoadVideoHandler(endpoints.LoadVideo),
		"chat":        ChatHandler(endpoints.Chat),
		"history":     HistoryHandler(endpoints.History),
		"end_session": EndSessionHandler(endpoints.EndSession),
	}

	for name, handler := range handlers {
		if err := group.AddEndpoint(name, handler); err != nil {
			return err
		}
	}

	return nil
}
