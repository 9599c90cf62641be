// ABOUTME: MCP server initialization and configuration for freewrite.
// ABOUTME: Exposes the entry index as tools so AI agents can read and write the journal.
package mcp

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/freewrite/internal/journal"
	"github.com/2389-research/freewrite/internal/logging"
)

// Server wraps the MCP server around a loaded entry index.
type Server struct {
	mcp     *gomcp.Server
	index   *journal.Index
	logger  *log.Logger
	version string
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithLogger sets the logger used for tool activity.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithVersion sets the implementation version reported to clients.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates an MCP server over index.
func NewServer(index *journal.Index, opts ...ServerOption) (*Server, error) {
	if index == nil {
		return nil, fmt.Errorf("entry index is required")
	}

	s := &Server{
		index:   index,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)

	s.mcp = gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "freewrite",
			Version: s.version,
		},
		nil,
	)

	s.registerEntryTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
