package server

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yousuf/jsstack/internal/config"
	"github.com/yousuf/jsstack/internal/sandbox"
	"github.com/yousuf/jsstack/internal/session"
	"github.com/yousuf/jsstack/internal/sourcemap"
	"github.com/yousuf/jsstack/internal/stack"
)

// RegisterSourceArgs represents the arguments for the register_source tool
type RegisterSourceArgs struct {
	URL     string `json:"url" jsonschema:"URL the script was loaded from, as it appears in stack traces"`
	Content string `json:"content" jsonschema:"Full text of the script"`
}

type RegisterSourceResult struct {
	URL   string `json:"url"`
	Lines int    `json:"lines"`
}

// RegisterSourceMapArgs represents the arguments for the register_sourcemap tool
type RegisterSourceMapArgs struct {
	ID        string `json:"id" jsonschema:"Name to refer to this source map by in parse_stack"`
	SourceMap string `json:"sourceMap" jsonschema:"Source map JSON (version 3)"`
}

type RegisterSourceMapResult struct {
	ID      string `json:"id"`
	File    string `json:"file"`
	Sources int    `json:"sources"`
}

// RemoveSourceMapArgs represents the arguments for the remove_sourcemap tool
type RemoveSourceMapArgs struct {
	ID string `json:"id" jsonschema:"Id the source map was registered under"`
}

type RemoveSourceMapResult struct {
	Removed bool `json:"removed"`
}

// ParseStackArgs represents the arguments for the parse_stack tool
type ParseStackArgs struct {
	Stack       string `json:"stack" jsonschema:"Stack text, one frame per line in name(args)@file:line form"`
	Clean       bool   `json:"clean,omitempty" jsonschema:"Strip trailing debugger-internal frames (default: false)"`
	GuessNames  bool   `json:"guessNames,omitempty" jsonschema:"Guess names of anonymous functions from registered sources (default: false)"`
	SourceMapID string `json:"sourceMapId,omitempty" jsonschema:"Map every frame through this registered source map"`
}

type ParseStackResult struct {
	Frames []Frame `json:"frames"`
	// Absent is set when cleaning removed every frame
	Absent bool `json:"absent"`
}

// GuessFunctionNameArgs represents the arguments for the guess_function_name tool
type GuessFunctionNameArgs struct {
	URL  string `json:"url" jsonschema:"URL of a registered script"`
	Line int    `json:"line" jsonschema:"1-based line the function starts on"`
}

type GuessFunctionNameResult struct {
	Name string `json:"name"`
}

// ListSourcesArgs represents the arguments for the list_sources tool
type ListSourcesArgs struct{}

type ListSourcesResult struct {
	URLs []string `json:"urls"`
}

// ExecuteCodeArgs represents the arguments for the execute_code tool
type ExecuteCodeArgs struct {
	Code string `json:"code" jsonschema:"JavaScript code to execute in sandbox"`
}

type ExecuteCodeResult struct {
	Result any     `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
	Frames []Frame `json:"frames"`
}

// Frame is the wire form of a stack frame
type Frame struct {
	FunctionName string      `json:"functionName"`
	URL          string      `json:"url"`
	Line         int         `json:"line"`
	Args         []string    `json:"args"`
	Original     *SourceSpot `json:"original,omitempty"`
}

// SourceSpot is a position in an original source
type SourceSpot struct {
	URL    string `json:"url"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Name   string `json:"name,omitempty"`
}

// Server holds the state shared by every MCP server instance
type Server struct {
	sessions *session.Manager
	mapper   *sourcemap.Mapper
	cleaner  *stack.Cleaner
	wasmPath string
}

// New creates the shared server state from cfg
func New(cfg *config.Config, sessions *session.Manager) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	cleaner, err := stack.NewCleaner(cfg.Stack.InternalFunctionPatterns, cfg.Stack.InternalSourcePatterns)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stack cleaner")
	}

	return &Server{
		sessions: sessions,
		mapper:   sourcemap.NewMapper(cfg.Sourcemap.CacheExpiration.Duration, cfg.Sourcemap.CleanupInterval.Duration),
		cleaner:  cleaner,
		wasmPath: cfg.Sandbox.WasmPath,
	}, nil
}

// NewMcpServer creates and configures an MCP server instance
func (s *Server) NewMcpServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "jsstack",
		Version: "1.0.0",
	}, &mcp.ServerOptions{
		Instructions: `
JavaScript stack trace analysis

Register the scripts (register_source) and source maps (register_sourcemap) of
the page being debugged, then hand captured stacks to parse_stack. Registered
sources let parse_stack recognize debugger-internal frames and guess names for
anonymous functions.

Stack lines look like:
    handler(event)@http://example.com/app.js:12
    @http://example.com/app.js:40

Available Tools:
1. "register_source" - Remember the text of a script
2. "register_sourcemap" - Remember a source map and the sources it embeds
3. "list_sources" - List the scripts registered in this session
4. "parse_stack" - Parse, clean, name and map a stack
5. "guess_function_name" - Guess the name of the function starting at a line
6. "execute_code" - Run JavaScript in a sandbox and parse the stack of anything it throws
7. "remove_sourcemap" - Forget a registered source map
`,
	})

	server.AddReceivingMiddleware(createSessionInjectionMiddleware(s.sessions))
	server.AddReceivingMiddleware(createLoggingMiddleware())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "register_source",
		Description: "Register the text of a script so stack frames pointing into it can be cleaned and named.",
	}, s.registerSource)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "register_sourcemap",
		Description: "Register a source map under an id. Original sources embedded in the map are registered too.",
	}, s.registerSourceMap)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_sourcemap",
		Description: "Forget a source map registered with register_sourcemap. Sources it registered stay in the session.",
	}, s.removeSourceMap)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sources",
		Description: "List the URLs of the scripts registered in this session.",
	}, s.listSources)

	mcp.AddTool(server, &mcp.Tool{
		Name: "parse_stack",
		Description: `Parse a stack trace into frames.

Options:
- clean: drop trailing debugger-internal frames; "absent" is true when nothing remains
- guessNames: name anonymous frames from the registered sources
- sourceMapId: report the original position of every frame
`,
	}, s.parseStack)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "guess_function_name",
		Description: "Guess the name of the function that starts at a line of a registered script.",
	}, s.guessFunctionName)

	mcp.AddTool(server, &mcp.Tool{
		Name: "execute_code",
		Description: `Execute JavaScript code in a sandboxed environment.

When the code throws, the error message and its stack are returned, parsed
into frames against the scripts registered in this session and cleaned of
debugger-internal frames.

Runtime Environment:
- No access to Node.js built-ins or filesystem
- No access to DOM or browser APIs
`,
	}, s.executeCode)

	return server
}

func (s *Server) registerSource(ctx context.Context, req *mcp.CallToolRequest, args RegisterSourceArgs) (*mcp.CallToolResult, RegisterSourceResult, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, RegisterSourceResult{}, err
	}
	if args.URL == "" {
		return nil, RegisterSourceResult{}, errors.New("url is required")
	}

	sf := sessionCtx.RegisterSource(args.URL, args.Content)
	return nil, RegisterSourceResult{URL: sf.Href(), Lines: sf.LineCount()}, nil
}

func (s *Server) registerSourceMap(ctx context.Context, req *mcp.CallToolRequest, args RegisterSourceMapArgs) (*mcp.CallToolResult, RegisterSourceMapResult, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, RegisterSourceMapResult{}, err
	}

	consumer, err := s.mapper.Register(args.ID, []byte(args.SourceMap))
	if err != nil {
		return nil, RegisterSourceMapResult{}, err
	}

	registered, err := s.mapper.RegisterSources(sessionCtx, args.ID)
	if err != nil {
		return nil, RegisterSourceMapResult{}, err
	}

	return nil, RegisterSourceMapResult{ID: args.ID, File: consumer.File(), Sources: registered}, nil
}

func (s *Server) removeSourceMap(ctx context.Context, req *mcp.CallToolRequest, args RemoveSourceMapArgs) (*mcp.CallToolResult, RemoveSourceMapResult, error) {
	if args.ID == "" {
		return nil, RemoveSourceMapResult{}, errors.New("id is required")
	}
	return nil, RemoveSourceMapResult{Removed: s.mapper.Remove(args.ID)}, nil
}

func (s *Server) listSources(ctx context.Context, req *mcp.CallToolRequest, args ListSourcesArgs) (*mcp.CallToolResult, ListSourcesResult, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, ListSourcesResult{}, err
	}
	return nil, ListSourcesResult{URLs: sessionCtx.SourceFiles()}, nil
}

func (s *Server) parseStack(ctx context.Context, req *mcp.CallToolRequest, args ParseStackArgs) (*mcp.CallToolResult, ParseStackResult, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, ParseStackResult{}, err
	}

	trace := stack.ParseToStackTrace(args.Stack, sessionCtx)
	if args.Clean {
		trace = s.cleaner.Clean(trace)
		if trace == nil {
			return nil, ParseStackResult{Frames: []Frame{}, Absent: true}, nil
		}
	}
	if args.GuessNames {
		stack.GuessMissingNames(trace)
	}

	if args.SourceMapID == "" {
		return nil, ParseStackResult{Frames: toFrames(trace.Frames)}, nil
	}

	mapped, err := s.mapper.MapTrace(args.SourceMapID, trace)
	if err != nil {
		return nil, ParseStackResult{}, err
	}
	return nil, ParseStackResult{Frames: toMappedFrames(mapped)}, nil
}

func (s *Server) guessFunctionName(ctx context.Context, req *mcp.CallToolRequest, args GuessFunctionNameArgs) (*mcp.CallToolResult, GuessFunctionNameResult, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, GuessFunctionNameResult{}, err
	}

	var sourceFile stack.SourceFile
	if sf, ok := sessionCtx.SourceFile(args.URL); ok {
		sourceFile = sf
	}
	return nil, GuessFunctionNameResult{Name: stack.GuessFunctionName(args.URL, args.Line, sourceFile)}, nil
}

func (s *Server) executeCode(ctx context.Context, req *mcp.CallToolRequest, args ExecuteCodeArgs) (*mcp.CallToolResult, ExecuteCodeResult, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, ExecuteCodeResult{}, err
	}

	sb, err := sandbox.NewSandbox(ctx, s.wasmPath)
	if err != nil {
		return nil, ExecuteCodeResult{}, errors.Wrap(err, "failed to create sandbox")
	}
	defer sb.Close()

	result, err := sb.ExecuteCode(args.Code, sessionCtx)
	if err != nil {
		return nil, ExecuteCodeResult{}, errors.Wrap(err, "execution failed")
	}

	out := ExecuteCodeResult{Error: result.Error, Frames: []Frame{}}
	if len(result.Result) > 0 {
		if err := json.Unmarshal(result.Result, &out.Result); err != nil {
			logger().Warn("undecodable sandbox result", zap.Error(err))
		}
	}
	if result.Failed() {
		if trace := s.cleaner.Clean(result.Trace); trace != nil {
			out.Frames = toFrames(trace.Frames)
		}
	}
	return nil, out, nil
}

func toFrames(frames []*stack.StackFrame) []Frame {
	out := make([]Frame, 0, len(frames))
	for _, f := range frames {
		out = append(out, toFrame(f))
	}
	return out
}

func toMappedFrames(frames []sourcemap.MappedFrame) []Frame {
	out := make([]Frame, 0, len(frames))
	for _, mf := range frames {
		if mf.Generated == nil {
			continue
		}
		frame := toFrame(mf.Generated)
		if mf.Mapped {
			frame.Original = &SourceSpot{
				URL:    mf.OriginalURL,
				Line:   mf.OriginalLine,
				Column: mf.OriginalColumn,
				Name:   mf.Frame().FunctionName(),
			}
		}
		out = append(out, frame)
	}
	return out
}

func toFrame(f *stack.StackFrame) Frame {
	args := make([]string, 0, len(f.Args()))
	for _, arg := range f.Args() {
		args = append(args, arg.Name)
	}
	return Frame{
		FunctionName: f.FunctionName(),
		URL:          f.URL(),
		Line:         f.LineNumber(),
		Args:         args,
	}
}
