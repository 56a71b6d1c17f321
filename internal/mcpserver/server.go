// Package mcpserver speaks JSON-RPC 2.0 over stdio for tool discovery and
// invocation. Messages are newline-delimited JSON, handled one at a time;
// the single in-flight request model is part of the contract, since
// concurrent IDE automation would race over shared desktop state.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xcodebridge/internal/tools"
)

const protocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// maxLineBytes bounds a single inbound message.
const maxLineBytes = 10 * 1024 * 1024

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Info names the server in the initialize handshake.
type Info struct {
	Name         string
	Version      string
	Instructions string
}

// Server dispatches JSON-RPC requests to the tool registry.
type Server struct {
	registry *tools.Registry
	info     Info
	logger   *zap.Logger
	in       io.Reader
	out      io.Writer
}

// New returns a Server reading requests from in and writing responses to out.
func New(registry *tools.Registry, info Info, in io.Reader, out io.Writer, logger *zap.Logger) *Server {
	return &Server{registry: registry, info: info, logger: logger, in: in, out: out}
}

// Serve processes requests until EOF or context cancellation. EOF is a clean
// shutdown, not an error.
func (s *Server) Serve(ctx context.Context) error {
	lines := make(chan []byte)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return scanner.Err()
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case line, ok := <-lines:
				if !ok {
					s.logger.Info("Input closed, shutting down")
					return nil
				}
				if len(line) == 0 {
					continue
				}
				s.handleLine(ctx, line)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) handleLine(ctx context.Context, line []byte) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Warn("Unparseable request", zap.Error(err))
		s.reply(response{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
		return
	}

	s.logger.Debug("Request received", zap.String("method", req.Method))

	switch req.Method {
	case "initialize":
		s.replyResult(req, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
			"serverInfo": map[string]any{
				"name":    s.info.Name,
				"version": s.info.Version,
			},
			"instructions": s.info.Instructions,
		})
	case "notifications/initialized", "notifications/cancelled":
		// Notifications get no response.
	case "ping":
		s.replyResult(req, map[string]any{})
	case "tools/list":
		s.replyResult(req, map[string]any{"tools": s.listTools()})
	case "tools/call":
		s.handleToolCall(ctx, req)
	default:
		if req.ID == nil {
			return
		}
		s.replyError(req, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

// toolDescriptor is the wire shape of one tool in tools/list.
type toolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

func (s *Server) listTools() []toolDescriptor {
	all := s.registry.All()
	out := make([]toolDescriptor, 0, len(all))
	for _, t := range all {
		schema := map[string]any{
			"type":       "object",
			"properties": t.Schema.Properties,
		}
		if len(t.Schema.Required) > 0 {
			schema["required"] = t.Schema.Required
		}
		raw, err := json.Marshal(schema)
		if err != nil {
			s.logger.Error("Cannot marshal tool schema", zap.String("tool", t.Name), zap.Error(err))
			continue
		}
		out = append(out, toolDescriptor{Name: t.Name, Description: t.Description, InputSchema: raw})
	}
	return out
}

func (s *Server) handleToolCall(ctx context.Context, req request) {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.replyError(req, codeInvalidParams, "invalid tools/call params")
		return
	}
	if params.Name == "" {
		s.replyError(req, codeInvalidParams, "tool name is required")
		return
	}
	if !s.registry.Has(params.Name) {
		s.replyError(req, codeInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name))
		return
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	// Tool failures are results, not protocol errors: the caller is meant
	// to read them and adjust, so they travel in-band with isError set.
	result, err := s.registry.Execute(ctx, params.Name, params.Arguments)
	var text string
	isError := err != nil
	switch {
	case err != nil:
		text = err.Error()
	case result != nil:
		text = result.Output
	}
	s.replyResult(req, map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
		"isError": isError,
	})
}

func (s *Server) replyResult(req request, result any) {
	if req.ID == nil {
		return
	}
	s.reply(response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (s *Server) replyError(req request, code int, message string) {
	if req.ID == nil {
		return
	}
	s.reply(response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: code, Message: message}})
}

func (s *Server) reply(resp response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Cannot marshal response", zap.Error(err))
		return
	}
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error("Cannot write response", zap.Error(err))
	}
}
