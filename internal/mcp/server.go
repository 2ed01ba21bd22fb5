package mcp

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"

	"codeqa/internal/service"
)

// ProtocolVersion is the MCP revision the server speaks.
const ProtocolVersion = "2024-11-05"

// MCPServer represents the MCP server
type MCPServer struct {
	version string
	svc     *service.Service
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	tools   []Tool
}

// NewMCPServer creates a server over svc reading stdin and writing stdout.
func NewMCPServer(version string, svc *service.Service, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &MCPServer{
		version: version,
		svc:     svc,
		logger:  logger,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}
	s.tools = s.buildTools()
	return s
}

// Start runs the message loop until EOF or ctx is cancelled.
func (s *MCPServer) Start(ctx context.Context) error {
	s.logger.Info("MCP server starting", "version", s.version, "tools", len(s.tools))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)")
				return nil
			}
			var perr *errParse
			if stderrors.As(err, &perr) {
				s.logger.Warn("unparseable message", "error", err.Error())
				if werr := s.writeMessage(NewErrorMessage(nil, ParseError, err.Error(), nil)); werr != nil {
					return werr
				}
				continue
			}
			return err
		}

		response := s.handleMessage(ctx, msg)
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("error writing response", "error", err.Error())
			}
		}
	}
}

// SetStdin sets the input stream (for testing)
func (s *MCPServer) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing)
func (s *MCPServer) SetStdout(w io.Writer) {
	s.stdout = w
}
