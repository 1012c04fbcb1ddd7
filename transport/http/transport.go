package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/chattube"
	"github.com/flarexio/chattube/index"
)

// StatusCode maps service errors onto HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, chattube.ErrSessionNotFound):
		return http.StatusNotFound

	case errors.Is(err, chattube.ErrInvalidVideoURL),
		errors.Is(err, chattube.ErrTranscriptsDisabled),
		errors.Is(err, chattube.ErrNoTranscriptFound),
		errors.Is(err, chattube.ErrTranscriptEmpty),
		errors.Is(err, chattube.ErrTranscriptUnavailable),
		errors.Is(err, chattube.ErrEmptyQuestion),
		errors.Is(err, index.ErrInvalidVideoID):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, code int, err error, detail string) {
	c.Error(err)
	c.AbortWithStatusJSON(code, gin.H{"detail": detail})
}

func RootHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ChatTube API is running!"})
	}
}

func LoadVideoHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chattube.LoadVideoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err, err.Error())
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, StatusCode(err), err, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ChatHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chattube.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err, err.Error())
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			code := StatusCode(err)

			detail := err.Error()
			if code == http.StatusInternalServerError {
				detail = "An error occurred during chat: " + detail
			}

			abort(c, code, err, detail)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func HistoryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		if sessionID == "" {
			err := errors.New("session id is required")
			abort(c, http.StatusBadRequest, err, err.Error())
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, sessionID)
		if err != nil {
			abort(c, StatusCode(err), err, err.Error())
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func EndSessionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		if sessionID == "" {
			err := errors.New("session id is required")
			abort(c, http.StatusBadRequest, err, err.Error())
			return
		}

		ctx := c.Request.Context()
		_, err := endpoint(ctx, sessionID)
		if err != nil {
			abort(c, StatusCode(err), err, err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Session ended."})
	}
}
