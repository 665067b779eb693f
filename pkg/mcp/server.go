// Package mcp exposes the Argus review tools over MCP: JSON-RPC 2.0,
// one message per line, on a reader/writer pair (stdio in production).
// All logging goes to stderr; stdout belongs to the protocol.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/argus-ai/argus/pkg/dispatch"
	"github.com/argus-ai/argus/pkg/models"
	"github.com/argus-ai/argus/pkg/registry"
	"github.com/argus-ai/argus/pkg/review"
)

const protocolVersion = "2024-11-05"

// CacheStatter provides cache statistics without coupling to a concrete
// cache implementation.
type CacheStatter interface {
	Stats() (models.CacheStats, error)
}

// Server is the MCP server for the review tools.
type Server struct {
	dispatcher *dispatch.Dispatcher
	reg        *registry.Registry
	cache      CacheStatter
	version    string

	mu         sync.Mutex
	lastFailed *review.Request
}

// New creates a Server. cache may be nil when caching is disabled.
func New(d *dispatch.Dispatcher, reg *registry.Registry, cache CacheStatter, version string) *Server {
	return &Server{
		dispatcher: d,
		reg:        reg,
		cache:      cache,
		version:    version,
	}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: CodeParseError, Message: "parse error"},
			})
			continue
		}

		resp := s.dispatchRPC(ctx, &req)
		if resp == nil {
			// notification, no response
			continue
		}
		s.writeResponse(w, *resp)
	}
	return scanner.Err()
}

func (s *Server) dispatchRPC(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)},
		}
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "argus", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		},
	}
}

func (s *Server) handleToolsList(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  ToolsListResult{Tools: allTools},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: CodeInvalidParams, Message: "invalid params"},
		}
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: ToolCallResult{
				Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("unknown tool: %s", params.Name)}},
				IsError: true,
			},
		}
	}

	callID := uuid.NewString()
	start := time.Now()
	result := handler(ctx, s, callID, params.Arguments)
	log.Printf("mcp: tool=%s call=%s elapsed=%s error=%t",
		params.Name, callID, time.Since(start).Round(time.Millisecond), result.IsError)

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

func (s *Server) writeResponse(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("mcp: marshal error: %v", err)
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		log.Printf("mcp: write error: %v", err)
	}
}

// setLastFailed stores the arguments of a failed verification so
// retry_with_fallback can replay them.
func (s *Server) setLastFailed(req *review.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFailed = req
}

func (s *Server) lastFailedRequest() *review.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailed
}

func (s *Server) clearLastFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFailed = nil
}
