package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"pongogo/internal/logging"
)

// JSON-RPC 2.0 over newline-delimited stdio, serving the MCP methods the
// coding-assistant side speaks: initialize, tools/list, tools/call,
// resources/read.

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// transport writes responses to a shared writer under a mutex so concurrent
// handlers cannot interleave output.
type transport struct {
	mu sync.Mutex
	w  io.Writer
}

func (t *transport) send(resp *rpcResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Get(logging.CategoryServer).Error("Failed to marshal response: %v", err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s\n", data)
}

// Run serves requests from r until EOF or context cancellation. Every
// request produces a structured response; no handler error escapes the
// transport boundary.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	t := &transport{w: w}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return scanner.Err()
			}
			s.dispatch(t, line)
		}
	}
}

func (s *Server) dispatch(t *transport, line string) {
	var req rpcRequest
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		t.send(&rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeParseError, Message: "parse error: " + err.Error()},
		})
		return
	}

	// Notifications (no id) get no response.
	isNotification := len(req.ID) == 0

	result, rpcErr := s.handle(&req)
	if isNotification {
		return
	}

	resp := &rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	t.send(resp)
}

func (s *Server) handle(req *rpcRequest) (interface{}, *rpcError) {
	logging.Server("Request: %s", req.Method)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(), nil
	case "notifications/initialized", "initialized":
		return map[string]interface{}{}, nil
	case "ping":
		return map[string]interface{}{}, nil
	case "tools/list":
		return s.handleToolsList(), nil
	case "tools/call":
		var params struct {
			Name      string                 `json:"name"`
			Arguments map[string]interface{} `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
		}
		return s.handleToolCall(params.Name, params.Arguments), nil
	case "resources/read":
		var params struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
		}
		return s.handleResourceRead(params.URI)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

// toolResult wraps a handler payload as MCP tool-call content.
func toolResult(payload interface{}) map[string]interface{} {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"error":"failed to serialize result"}`)
	}
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": string(data)},
		},
	}
}
