// Package mcpserver exposes a single in-memory document as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/FocuswithJustin/ucp/core/document"
	"github.com/FocuswithJustin/ucp/core/ucl"
	"github.com/FocuswithJustin/ucp/internal/docio"
	"github.com/FocuswithJustin/ucp/internal/logging"
	"github.com/FocuswithJustin/ucp/internal/validation"
)

// Injectable functions for testing
var (
	jsonMarshal = json.Marshal
	saveFunc    = docio.Save
	newID       = uuid.NewString
	serveStdio  = func(s *server.MCPServer) error { return server.ServeStdio(s) }
)

// Options configures a Server.
type Options struct {
	// Path, when set, is rewritten after every successful mutating tool.
	Path string
	// Output controls how the document is written to Path.
	Output docio.Options
	// Version is reported to clients.
	Version string
}

// Server owns a document and serializes tool calls against it.
type Server struct {
	mu       sync.Mutex
	doc      *document.Document
	executor *ucl.Executor
	opts     Options
}

// New returns a Server for d. A nil executor uses an uncached one.
func New(d *document.Document, executor *ucl.Executor, opts Options) *Server {
	if executor == nil {
		executor = ucl.NewExecutor(0)
	}
	if opts.Version == "" {
		opts.Version = "0.0.0"
	}
	return &Server{doc: d, executor: executor, opts: opts}
}

// Tool names.
const (
	ToolExecuteUCL  = "execute_ucl"
	ToolAddBlock    = "add_block"
	ToolGetBlock    = "get_block"
	ToolFindByType  = "find_by_type"
	ToolValidate    = "validate"
	ToolGetDocument = "get_document"
	ToolRemoveBlock = "remove_block"
)

type ExecuteUCLRequest struct {
	Script string `json:"script"` // One or more UCL commands, one per line
}

type ExecuteUCLResponse struct {
	Results []ucl.Result `json:"results"`
	Failed  int          `json:"failed"`
}

type AddBlockRequest struct {
	Parent   string `json:"parent"`   // Parent block id
	Text     string `json:"text"`     // Block body
	Role     string `json:"role"`     // Optional role
	Language string `json:"language"` // Makes a code block when set
}

type BlockRequest struct {
	ID string `json:"id"` // Block id
}

type FindByTypeRequest struct {
	Role string `json:"role"` // Role to search for
}

type EmptyRequest struct{}

// BlockView is the JSON shape returned for a single block.
type BlockView struct {
	ID          string   `json:"id"`
	Role        string   `json:"role"`
	ContentType string   `json:"contentType"`
	Text        string   `json:"text"`
	Language    string   `json:"language,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Children    []string `json:"children"`
}

type IDsResponse struct {
	IDs []document.BlockID `json:"ids"`
}

type ValidateResponse struct {
	Valid  bool             `json:"valid"`
	Issues []document.Issue `json:"issues"`
}

type DocumentResponse struct {
	Hash     string             `json:"hash"`
	Blocks   int                `json:"blocks"`
	Document *document.Snapshot `json:"document"`
}

// MCPServer builds the MCP server with every document tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	ms := server.NewMCPServer(
		"UCP Document",
		s.opts.Version,
		server.WithToolCapabilities(false),
	)

	ms.AddTool(mcp.NewTool(ToolExecuteUCL,
		mcp.WithDescription("Execute UCL commands (EDIT, APPEND) against the document, one per line"),
		mcp.WithString("script",
			mcp.Required(),
			mcp.Description(`UCL text, e.g. EDIT blk_1 SET content.text = "Hi"`),
		),
	), mcp.NewTypedToolHandler(s.executeUCLHandler))

	ms.AddTool(mcp.NewTool(ToolAddBlock,
		mcp.WithDescription("Add a text or code block under a parent"),
		mcp.WithString("parent", mcp.Required(), mcp.Description("Parent block id")),
		mcp.WithString("text", mcp.Description("Block body")),
		mcp.WithString("role", mcp.Description("Block role, e.g. paragraph")),
		mcp.WithString("language", mcp.Description("Programming language; creates a code block")),
	), mcp.NewTypedToolHandler(s.addBlockHandler))

	ms.AddTool(mcp.NewTool(ToolGetBlock,
		mcp.WithDescription("Get a block with its content, parent and children"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Block id")),
	), mcp.NewTypedToolHandler(s.getBlockHandler))

	ms.AddTool(mcp.NewTool(ToolFindByType,
		mcp.WithDescription("List block ids with the given role in document order"),
		mcp.WithString("role", mcp.Required(), mcp.Description("Role to search for")),
	), mcp.NewTypedToolHandler(s.findByTypeHandler))

	ms.AddTool(mcp.NewTool(ToolValidate,
		mcp.WithDescription("Check the document structure and report issues"),
	), mcp.NewTypedToolHandler(s.validateHandler))

	ms.AddTool(mcp.NewTool(ToolGetDocument,
		mcp.WithDescription("Get the whole document as JSON with its content hash"),
	), mcp.NewTypedToolHandler(s.getDocumentHandler))

	ms.AddTool(mcp.NewTool(ToolRemoveBlock,
		mcp.WithDescription("Remove a block and its subtree"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Block id")),
	), mcp.NewTypedToolHandler(s.removeBlockHandler))

	return ms
}

// ServeStdio serves the tools over stdin and stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	logging.ServerStartup("mcp", "stdio", "document", s.doc.ID(), "path", s.opts.Path)
	if err := serveStdio(s.MCPServer()); err != nil {
		logging.Error("mcp_server_stopped", "error", err)
		return err
	}
	return nil
}

// call runs fn under the document lock and logs the invocation. fn receives
// ctx carrying the request id.
func (s *Server) call(ctx context.Context, tool string, fn func(ctx context.Context) (any, error)) (*mcp.CallToolResult, error) {
	ctx = logging.WithRequestID(ctx, newID())
	logging.DebugContext(ctx, "tool_start", "tool", tool)
	start := time.Now()

	s.mu.Lock()
	payload, err := fn(ctx)
	s.mu.Unlock()

	logging.ToolCall(ctx, tool, time.Since(start), err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := jsonMarshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// persist writes the document when a path is configured. Callers hold mu.
func (s *Server) persist(ctx context.Context) error {
	if s.opts.Path == "" {
		return nil
	}
	if err := saveFunc(s.opts.Path, s.doc, s.opts.Output); err != nil {
		logging.ErrorContext(ctx, "document_save_failed", "path", s.opts.Path, "error", err)
		return fmt.Errorf("document changed but was not saved: %w", err)
	}
	return nil
}

func (s *Server) executeUCLHandler(ctx context.Context, request mcp.CallToolRequest, args ExecuteUCLRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, ToolExecuteUCL, func(ctx context.Context) (any, error) {
		if args.Script == "" {
			return nil, fmt.Errorf("script is required")
		}
		if err := validation.ValidateCommand(args.Script); err != nil {
			return nil, err
		}

		resp := ExecuteUCLResponse{Results: s.executor.ExecuteScript(s.doc, args.Script)}
		changed := false
		for _, r := range resp.Results {
			if r.Success {
				changed = true
			} else {
				resp.Failed++
			}
		}
		if resp.Failed > 0 {
			logging.WarnContext(ctx, "ucl_script_failures", "failed", resp.Failed, "commands", len(resp.Results))
		}
		if changed {
			if err := s.persist(ctx); err != nil {
				return nil, err
			}
		}
		return resp, nil
	})
}

func (s *Server) addBlockHandler(ctx context.Context, request mcp.CallToolRequest, args AddBlockRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, ToolAddBlock, func(ctx context.Context) (any, error) {
		if args.Parent == "" {
			return nil, fmt.Errorf("parent is required")
		}
		if err := validation.ValidateRole(args.Role); err != nil {
			return nil, err
		}

		content := document.NewText(args.Text)
		if args.Language != "" {
			content = document.NewCode(args.Language, args.Text)
		}
		id, err := s.doc.AddBlockWithContent(document.BlockID(args.Parent), content, args.Role)
		if err != nil {
			return nil, err
		}
		if err := s.persist(ctx); err != nil {
			return nil, err
		}
		return IDsResponse{IDs: []document.BlockID{id}}, nil
	})
}

func (s *Server) getBlockHandler(ctx context.Context, request mcp.CallToolRequest, args BlockRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, ToolGetBlock, func(ctx context.Context) (any, error) {
		if args.ID == "" {
			return nil, fmt.Errorf("id is required")
		}
		return s.blockView(document.BlockID(args.ID))
	})
}

func (s *Server) blockView(id document.BlockID) (*BlockView, error) {
	b, err := s.doc.GetBlock(id)
	if err != nil {
		return nil, err
	}
	parent, _, err := s.doc.Parent(id)
	if err != nil {
		return nil, err
	}

	view := &BlockView{
		ID:          b.ID.String(),
		Role:        b.Role,
		ContentType: string(b.ContentType()),
		Text:        b.Text(),
		Parent:      parent.String(),
		Children:    make([]string, 0, len(b.Children)),
	}
	if code, ok := b.Content.(document.Code); ok {
		view.Language = code.Language
	}
	for _, child := range b.Children {
		view.Children = append(view.Children, child.String())
	}
	return view, nil
}

func (s *Server) findByTypeHandler(ctx context.Context, request mcp.CallToolRequest, args FindByTypeRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, ToolFindByType, func(ctx context.Context) (any, error) {
		return IDsResponse{IDs: s.doc.FindByType(args.Role)}, nil
	})
}

func (s *Server) validateHandler(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, ToolValidate, func(ctx context.Context) (any, error) {
		issues := s.doc.Validate()
		return ValidateResponse{Valid: !document.HasErrors(issues), Issues: issues}, nil
	})
}

func (s *Server) getDocumentHandler(ctx context.Context, request mcp.CallToolRequest, args EmptyRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, ToolGetDocument, func(ctx context.Context) (any, error) {
		hash, err := s.doc.Hash()
		if err != nil {
			return nil, err
		}
		return DocumentResponse{Hash: hash, Blocks: s.doc.BlockCount(), Document: s.doc.Snapshot()}, nil
	})
}

func (s *Server) removeBlockHandler(ctx context.Context, request mcp.CallToolRequest, args BlockRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, ToolRemoveBlock, func(ctx context.Context) (any, error) {
		if args.ID == "" {
			return nil, fmt.Errorf("id is required")
		}
		removed, err := s.doc.RemoveBlock(document.BlockID(args.ID))
		if err != nil {
			return nil, err
		}
		if err := s.persist(ctx); err != nil {
			return nil, err
		}
		logging.InfoContext(ctx, "blocks_removed", "root", args.ID, "count", len(removed))
		return IDsResponse{IDs: removed}, nil
	})
}
