// Package gateway exposes the delegation tool surface over newline-delimited
// JSON-RPC 2.0 on stdio. The wire shape follows the Model Context Protocol
// handshake: initialize, tools/list, tools/call.
package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const protocolVersion = "2025-06-18"

// maxLineBytes bounds a single request line. Instructions can embed whole
// files, so the limit is generous.
const maxLineBytes = 16 * 1024 * 1024

// Server reads requests from in and writes responses to out, one JSON
// document per line. Stdout is reserved for the protocol; all logging goes
// to stderr or the log file.
type Server struct {
	router  *RPCRouter
	tools   *ToolSet
	name    string
	version string

	in  io.Reader
	out io.Writer
	wmu sync.Mutex

	logger zerolog.Logger
}

// NewServer creates a stdio server over the given streams.
func NewServer(in io.Reader, out io.Writer, tools *ToolSet, name, version string) *Server {
	s := &Server{
		router:  NewRPCRouter(),
		tools:   tools,
		name:    name,
		version: version,
		in:      in,
		out:     out,
		logger:  log.With().Str("component", "gateway").Logger(),
	}
	s.registerMethods()
	return s
}

// Router exposes the underlying RPC router.
func (s *Server) Router() *RPCRouter {
	return s.router
}

func (s *Server) registerMethods() {
	_ = s.router.RegisterMethod("initialize", s.handleInitialize)
	_ = s.router.RegisterMethod("ping", func(params map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{}, nil
	})
	_ = s.router.RegisterMethod("tools/list", s.handleToolsList)
}

// Serve processes requests until in is exhausted or ctx is cancelled.
// tools/call is registered here so tool execution inherits the serve
// context and dies with it.
func (s *Server) Serve(ctx context.Context) error {
	_ = s.router.RegisterMethod("tools/call", func(params map[string]interface{}) (interface{}, error) {
		return s.handleToolsCall(ctx, params)
	})

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	s.logger.Info().Str("server", s.name).Str("version", s.version).Msg("Gateway listening on stdio")

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
		s.handleLine(line)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stdin read failed: %w", err)
	}
	s.logger.Info().Msg("Stdin closed, gateway shutting down")
	return nil
}

func (s *Server) handleLine(line []byte) {
	req, err := s.router.ParseRequest(line)
	if err != nil {
		rpcErr, ok := err.(*RPCError)
		if !ok {
			rpcErr = &RPCError{Code: InternalError, Message: err.Error()}
		}
		s.write(&RPCResponse{JSONRPC: "2.0", Error: rpcErr})
		return
	}

	// Notifications get no response.
	if req.IsNotification() {
		s.logger.Debug().Str("method", req.Method).Msg("Notification received")
		return
	}

	resp := s.router.RouteRequest(req)
	s.write(resp)
}

func (s *Server) write(resp *RPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal response")
		return
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) handleInitialize(params map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    s.name,
			"version": s.version,
		},
	}, nil
}

func (s *Server) handleToolsList(params map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"tools": s.tools.List(),
	}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	name, _ := params["name"].(string)
	if name == "" {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "tools/call requires a name",
		}
	}
	args, _ := params["arguments"].(map[string]interface{})

	s.logger.Info().Str("tool", name).Msg("Tool call")
	return s.tools.Call(ctx, name, args)
}
