package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/chattube"
)

func errorMsg(code string, description string) *nats.Msg {
	msg := nats.NewMsg("reply")
	msg.Header.Set(micro.ErrorCodeHeader, code)
	msg.Header.Set(micro.ErrorHeader, description)
	return msg
}

func TestStatusCode(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(CodeNotFound, StatusCode(chattube.ErrSessionNotFound))
	assert.Equal(CodeBadRequest, StatusCode(chattube.ErrInvalidVideoURL))
	assert.Equal(CodeBadRequest, StatusCode(fmt.Errorf("%w: timeout", chattube.ErrTranscriptUnavailable)))
	assert.Equal(CodeInternal, StatusCode(errors.New("boom")))
}

func TestError(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(Error(nats.NewMsg("reply")))
	assert.Error(Error(nil))

	err := Error(errorMsg(CodeNotFound, chattube.ErrSessionNotFound.Error()))
	assert.ErrorIs(err, chattube.ErrSessionNotFound)

	err = Error(errorMsg(CodeBadRequest, chattube.ErrTranscriptUnavailable.Error()+": network down"))
	assert.ErrorIs(err, chattube.ErrTranscriptUnavailable)
	assert.Contains(err.Error(), "network down")

	err = Error(errorMsg(CodeInternal, "model unavailable"))
	assert.EqualError(err, "500:model unavailable")

	err = Error(errorMsg(CodeInternal, ""))
	assert.EqualError(err, "500:unknown error")
}

func TestRequestContext(t *testing.T) {
	assert := assert.New(t)

	// No deadline: the configured timeout applies.
	ctx, cancel := requestContext(context.Background(), 3*time.Minute)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if assert.True(ok) {
		assert.WithinDuration(time.Now().Add(3*time.Minute), deadline, 5*time.Second)
	}

	// Non-positive timeout: the default outlasts a transcript build.
	ctx, cancel = requestContext(context.Background(), 0)
	defer cancel()

	deadline, ok = ctx.Deadline()
	if assert.True(ok) {
		assert.WithinDuration(time.Now().Add(DefaultRequestTimeout), deadline, 5*time.Second)
		assert.Greater(time.Until(deadline), nats.DefaultTimeout)
	}

	// A caller deadline wins.
	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()

	ctx, cancel = requestContext(parent, time.Hour)
	defer cancel()

	deadline, ok = ctx.Deadline()
	if assert.True(ok) {
		assert.WithinDuration(time.Now().Add(time.Second), deadline, 500*time.Millisecond)
	}
}
