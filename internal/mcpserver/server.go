// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes MarkNote tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/marknote/internal/apperr"
	"github.com/starford/marknote/internal/blocks"
	"github.com/starford/marknote/internal/checksum"
	"github.com/starford/marknote/internal/index"
	"github.com/starford/marknote/internal/models"
)

// LayoutURI is the resource holding LayoutContract.
const LayoutURI = "marknote://layout"

// Notes is the repository surface the tools need.
type Notes interface {
	Root(ctx context.Context) (string, error)
	List(ctx context.Context) ([]models.NoteInfo, error)
	Read(ctx context.Context, title string) (string, error)
	Write(ctx context.Context, title, content string) error
}

// Server wraps the MCP server with MarkNote tools.
type Server struct {
	mcp    *server.MCPServer
	notes  Notes
	db     index.NoteIndex
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new MCP server with all MarkNote tools registered. db may
// be nil, in which case search_notes reports an error and writes are not
// indexed.
func New(notes Notes, db index.NoteIndex, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{notes: notes, db: db, logger: logger, now: time.Now}

	s.mcp = server.NewMCPServer(
		"MarkNote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes, newest first, with their last edit time."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note and its checksum."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title (file name without .md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("write_note",
		mcp.WithDescription("Create or replace a note. Read the layout first via the "+
			"get_layout tool or the "+LayoutURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title (file name without .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full Markdown content")),
		mcp.WithString("checksum", mcp.Description("Checksum from read_note; the write is refused if the note changed since")),
	), s.writeNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, headings, tags and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("Split a note into its movable blocks."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
	), s.listBlocks)

	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move one block of a note to a new position and save the note."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithNumber("from", mcp.Required(), mcp.Description("Index of the block to move")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("Index the block should end up at")),
	), s.moveBlock)

	s.mcp.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Returns how MarkNote stores notes and splits them into blocks."),
	), s.getLayout)

	s.mcp.AddResource(
		mcp.NewResource(LayoutURI, "MarkNote Layout",
			mcp.WithResourceDescription("How notes are stored on disk and how block tools split them."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("conflict: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.notes.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].LastEditTime.After(notes[j].LastEditTime)
	})
	return jsonResult(notes)
}

type readResult struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.notes.Read(ctx, title)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(readResult{Title: title, Content: content, Checksum: checksum.Of(content)})
}

func (s *Server) writeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title = strings.TrimSpace(title)

	if want := req.GetString("checksum", ""); want != "" {
		current, err := s.notes.Read(ctx, title)
		if err != nil {
			return toolError(err), nil
		}
		if !checksum.Matches(current, want) {
			return toolError(fmt.Errorf("%s changed since it was read: %w", title, apperr.ErrConflict)), nil
		}
	}

	if err := s.save(ctx, title, content); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", title)), nil
}

// save writes content and brings the index along.
func (s *Server) save(ctx context.Context, title, content string) error {
	if err := s.notes.Write(ctx, title, content); err != nil {
		return err
	}
	if s.db != nil {
		if err := index.IndexNote(s.db, title, []byte(content), s.now()); err != nil {
			s.logger.Warn("mcp: index note failed", slog.String("title", title), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *Server) searchNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError("search index disabled"), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return jsonResult(results)
}

func (s *Server) listBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.notes.Read(ctx, title)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(blocks.Segment(content))
}

type moveResult struct {
	Moved  bool           `json:"moved"`
	Blocks []blocks.Block `json:"blocks"`
}

func (s *Server) moveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireInt("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireInt("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	content, err := s.notes.Read(ctx, title)
	if err != nil {
		return toolError(err), nil
	}
	out, moved := blocks.Move(content, from, to)
	if moved {
		if err := s.save(ctx, title, out); err != nil {
			return toolError(err), nil
		}
	}
	return jsonResult(moveResult{Moved: moved, Blocks: blocks.Segment(out)})
}

func (s *Server) layout(ctx context.Context) string {
	root, err := s.notes.Root(ctx)
	if err != nil {
		return LayoutContract
	}
	return LayoutContract + "\nNotes root: " + root + "\n"
}

func (s *Server) getLayout(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.layout(ctx)), nil
}

func (s *Server) readLayoutResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LayoutURI,
			MIMEType: "text/markdown",
			Text:     s.layout(ctx),
		},
	}, nil
}
