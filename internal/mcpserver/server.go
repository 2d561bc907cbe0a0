// Package mcpserver exposes one document session as MCP tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/session"
)

// Server wraps a session with the process_documents and ask_documents tools.
type Server struct {
	session     *session.Session
	allowedExts []string
	version     string
	logger      *zap.Logger
}

// New creates a server. allowedExts filters files found in directories.
func New(sess *session.Session, allowedExts []string, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{session: sess, allowedExts: allowedExts, version: version, logger: logger}
}

// MCP builds the MCP server with all tools registered.
func (s *Server) MCP() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "tanya",
		Title:   "Tanya",
		Version: s.version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "process_documents",
		Description: `Read documents and make them the knowledge base for ask_documents.

Accepts files, directories (walked recursively) and ** glob patterns. Supported formats:
PDF, DOCX, PPTX, XLSX, ODP, ODS and plain text. Processing replaces any previous documents
and starts a new conversation.`,
	}, s.processTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_documents",
		Description: `Answer a question strictly from the processed documents and the conversation so far.

When the documents do not contain the answer, the reply is exactly
"answer is not available in the context". Call process_documents first.`,
	}, s.askTool)

	return server
}

// Run serves the tools on stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.MCP().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) processTool(ctx context.Context, _ *mcp.CallToolRequest, input ProcessInput) (*mcp.CallToolResult, ProcessOutput, error) {
	if len(input.Paths) == 0 {
		return nil, ProcessOutput{}, toolError(errdefs.ErrNoDocuments)
	}
	result, err := s.session.ProcessFiles(ctx, input.Paths, s.allowedExts)
	if err != nil {
		s.logger.Warn("process_documents failed", zap.Strings("paths", input.Paths), zap.Error(err))
		return nil, ProcessOutput{}, toolError(err)
	}
	return nil, ProcessOutput{
		Message:   result.Message(),
		Documents: result.Documents,
		Chunks:    result.Chunks,
		Skipped:   result.Skipped,
	}, nil
}

func (s *Server) askTool(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}
	ans, err := s.session.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, toolError(err)
	}
	return nil, AskOutput{Answer: ans, Turns: len(s.session.Turns())}, nil
}

// toolError keeps the cause for errors.Is/As but reports the user-facing banner.
func toolError(err error) error {
	return &userError{err: err}
}

type userError struct{ err error }

func (e *userError) Error() string { return errdefs.UserMessage(e.err) }
func (e *userError) Unwrap() error { return e.err }
