package chattube

import (
	"context"
	"time"

	"github.com/flarexio/chattube/metrics"
	"github.com/flarexio/chattube/session"
)

// InstrumentingMiddleware records request counts and latencies.
func InstrumentingMiddleware() ServiceMiddleware {
	return func(next Service) Service {
		return &instrumentingMiddleware{next}
	}
}

type instrumentingMiddleware struct {
	next Service
}

func observe(method string, begin time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}

	metrics.RequestsTotal.WithLabelValues(method, status).Inc()
	metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(begin).Seconds())
}

func (mw *instrumentingMiddleware) Close() error {
	return mw.next.Close()
}

func (mw *instrumentingMiddleware) LoadVideo(ctx context.Context, videoURL string) (s *session.Session, err error) {
	defer func(begin time.Time) {
		observe("load_video", begin, err)
	}(time.Now())

	return mw.next.LoadVideo(ctx, videoURL)
}

func (mw *instrumentingMiddleware) Chat(ctx context.Context, sessionID string, question string) (answer string, err error) {
	defer func(begin time.Time) {
		observe("chat", begin, err)
	}(time.Now())

	return mw.next.Chat(ctx, sessionID, question)
}

func (mw *instrumentingMiddleware) History(ctx context.Context, sessionID string) (messages []Message, err error) {
	defer func(begin time.Time) {
		observe("history", begin, err)
	}(time.Now())

	return mw.next.History(ctx, sessionID)
}

func (mw *instrumentingMiddleware) EndSession(ctx context.Context, sessionID string) (err error) {
	defer func(begin time.Time) {
		observe("end_session", begin, err)
	}(time.Now())

	return mw.next.EndSession(ctx, sessionID)
}
