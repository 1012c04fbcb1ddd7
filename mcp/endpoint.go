package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/chattube"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func ErrorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

func result(id mcp.RequestId, result any) mcp.JSONRPCMessage {
	return mcp.JSONRPCResponse{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Result:  result,
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const (
	ToolLoadVideo = "load_video"
	ToolAskVideo  = "ask_video"
)

const MCPSERVER_INSTRUCTIONS string = `ChatTube answers questions about a YouTube video from its transcript.

1. Call load_video with the video URL. It returns a session_id and the video title.
2. Call ask_video with that session_id and a question. Follow-up questions
   may refer to earlier answers of the same session.

Answers are grounded in the transcript; when it lacks the information the
answer says so before falling back to general knowledge.`

func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolLoadVideo,
			mcp.WithDescription("Load a YouTube video's transcript and open a chat session about it"),
			mcp.WithString("video_url",
				mcp.Required(),
				mcp.Description("YouTube URL (youtube.com/watch, youtube.com/embed or youtu.be)"),
			),
		),
		mcp.NewTool(ToolAskVideo,
			mcp.WithDescription("Ask a question about the video loaded in a session"),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session returned by load_video"),
			),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("Question about the video"),
			),
		),
	}
}

func InitializeEndpoint(svc chattube.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		return result(req.ID, &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "chattube",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		})
	}
}

func PingEndpoint(svc chattube.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return result(req.ID, struct{}{})
	}
}

func ListToolsEndpoint(svc chattube.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return result(req.ID, &mcp.ListToolsResult{
			Tools: Tools(),
		})
	}
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type toolArguments struct {
	VideoURL  string `json:"video_url"`
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// CallToolEndpoint runs a tool. Service failures are reported as tool
// results with isError set, not as JSON-RPC errors.
func CallToolEndpoint(svc chattube.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params callToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var args toolArguments
		if len(params.Arguments) > 0 {
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}
		}

		switch params.Name {
		case ToolLoadVideo:
			if args.VideoURL == "" {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, "video_url is required")
			}

			s, err := svc.LoadVideo(ctx, args.VideoURL)
			if err != nil {
				return result(req.ID, mcp.NewToolResultError(err.Error()))
			}

			bs, err := json.Marshal(chattube.LoadVideoResponse{
				Message:   "Video loaded successfully.",
				SessionID: s.ID,
				Title:     s.Title,
			})
			if err != nil {
				return ErrorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
			}

			return result(req.ID, mcp.NewToolResultText(string(bs)))

		case ToolAskVideo:
			if args.SessionID == "" || args.Question == "" {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, "session_id and question are required")
			}

			answer, err := svc.Chat(ctx, args.SessionID, args.Question)
			if err != nil {
				if errors.Is(err, chattube.ErrSessionNotFound) {
					return result(req.ID, mcp.NewToolResultError(err.Error()))
				}

				return result(req.ID, mcp.NewToolResultError("An error occurred during chat: "+err.Error()))
			}

			return result(req.ID, mcp.NewToolResultText(answer))

		default:
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, "unknown tool: "+params.Name)
		}
	}
}

// Endpoints returns every supported MCP method bound to svc.
func Endpoints(svc chattube.Service) map[mcp.MCPMethod]MCPEndpoint {
	return map[mcp.MCPMethod]MCPEndpoint{
		mcp.MethodInitialize: InitializeEndpoint(svc),
		mcp.MethodPing:       PingEndpoint(svc),
		mcp.MethodToolsList:  ListToolsEndpoint(svc),
		mcp.MethodToolsCall:  CallToolEndpoint(svc),
	}
}
