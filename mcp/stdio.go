package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
)

var ErrEndpointExists = errors.New("endpoint already exists")

// StdioServer serves newline-delimited JSON-RPC requests from r and writes
// one response line per request to w.
type StdioServer interface {
	AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error
	Listen(ctx context.Context) error
}

func NewStdioServer(r io.Reader, w io.Writer) StdioServer {
	return &stdioServer{
		r:         r,
		w:         w,
		endpoints: make(map[mcp.MCPMethod]MCPEndpoint),
	}
}

type stdioServer struct {
	r         io.Reader
	w         io.Writer
	endpoints map[mcp.MCPMethod]MCPEndpoint
}

func (s *stdioServer) AddEndpoint(method mcp.MCPMethod, endpoint MCPEndpoint) error {
	if _, ok := s.endpoints[method]; ok {
		return ErrEndpointExists
	}

	s.endpoints[method] = endpoint
	return nil
}

func (s *stdioServer) Listen(ctx context.Context) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lines := make(chan []byte)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)

		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)

			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			return err

		case line, ok := <-lines:
			if !ok {
				// The reader reports its error before closing lines.
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}

			if len(line) == 0 {
				continue
			}

			resp, ok := s.handle(ctx, line)
			if !ok {
				continue
			}

			bs, err := json.Marshal(resp)
			if err != nil {
				continue
			}

			fmt.Fprintf(s.w, "%s\n", bs)
		}
	}
}

func (s *stdioServer) handle(ctx context.Context, line []byte) (mcp.JSONRPCMessage, bool) {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return ErrorResponse(mcp.RequestId{}, mcp.PARSE_ERROR, err.Error()), true
	}

	// Notifications expect no response.
	if req.ID.IsNil() {
		return nil, false
	}

	endpoint, ok := s.endpoints[req.Method]
	if !ok {
		return ErrorResponse(req.ID, mcp.METHOD_NOT_FOUND, "method not found"), true
	}

	return endpoint(ctx, req), true
}
