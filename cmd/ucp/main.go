// Command ucp creates, edits and inspects UCP documents from the shell and
// serves them to MCP clients.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/ucp"
	"github.com/FocuswithJustin/ucp/core/document"
	"github.com/FocuswithJustin/ucp/core/errors"
	"github.com/FocuswithJustin/ucp/core/ucl"
	"github.com/FocuswithJustin/ucp/internal/config"
	"github.com/FocuswithJustin/ucp/internal/docio"
	"github.com/FocuswithJustin/ucp/internal/logging"
	"github.com/FocuswithJustin/ucp/internal/mcpserver"
	"github.com/FocuswithJustin/ucp/internal/validation"
)

// Exit codes.
const (
	exitOK               = 0
	exitError            = 1
	exitSyntax           = 2
	exitNotFound         = 3
	exitInvalidOperation = 4
	exitValidation       = 5
)

// Injectable functions for testing
var (
	loadConfig = config.Load
	serveMCP   = func(s *mcpserver.Server) error { return s.ServeStdio() }
	osReadFile = os.ReadFile
)

// CLI defines the command-line interface for ucp.
type CLI struct {
	// Global flags
	Config      string           `short:"c" help:"Configuration file" type:"path"`
	LogLevel    string           `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat   string           `name:"log-format" help:"Log format (text, json)"`
	Compress    string           `help:"Output compression (none, gzip, xz); default follows the file extension"`
	Compact     bool             `help:"Write JSON without indentation"`
	ShowVersion kong.VersionFlag `name:"version" short:"V" help:"Print version and exit"`

	New      NewCmd      `cmd:"" help:"Create an empty document"`
	Exec     ExecCmd     `cmd:"" help:"Run UCL commands against a document"`
	Validate ValidateCmd `cmd:"" help:"Check a document for structural problems"`
	Show     ShowCmd     `cmd:"" help:"Print a document's block tree"`
	Find     FindCmd     `cmd:"" help:"List block ids with a role"`
	MCP      MCPCmd      `cmd:"" name:"mcp" help:"Serve a document over MCP (stdio)"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// env is bound into every command's Run method.
type env struct {
	stdout   io.Writer
	executor *ucl.Executor
	output   docio.Options
}

// write saves d to path, or to stdout when path is empty or "-".
func (e *env) write(path string, d *document.Document) error {
	if path == "" || path == "-" {
		return docio.Write(e.stdout, d, e.output)
	}
	return docio.Save(path, d, e.output)
}

// NewCmd creates an empty document.
type NewCmd struct {
	Title string `short:"t" help:"Document title"`
	Out   string `short:"o" help:"Output file (default stdout)" type:"path"`
}

func (c *NewCmd) Run(e *env) error {
	d := ucp.CreateDocument(c.Title)
	if err := e.write(c.Out, d); err != nil {
		return err
	}
	if c.Out != "" && c.Out != "-" {
		fmt.Fprintf(e.stdout, "Created %s (root %s)\n", c.Out, d.RootID())
	}
	return nil
}

// ExecCmd runs UCL commands. The document is only written when every
// command succeeds.
type ExecCmd struct {
	Doc      string   `arg:"" help:"Document file" type:"existingfile"`
	Commands []string `short:"e" name:"command" help:"UCL command (repeatable)" sep:"none"`
	Script   string   `short:"s" help:"File with one UCL command per line" type:"existingfile"`
	Out      string   `short:"o" help:"Write the result here ('-' for stdout)" type:"path" xor:"output"`
	InPlace  bool     `short:"i" name:"in-place" help:"Overwrite the input document" xor:"output"`
}

func (c *ExecCmd) Run(e *env) error {
	if len(c.Commands) == 0 && c.Script == "" {
		return errors.NewValidation("command", "give at least one -e command or --script")
	}

	d, _, err := docio.Load(c.Doc)
	if err != nil {
		return err
	}

	var results []ucl.Result
	for i, text := range c.Commands {
		if err := validation.ValidateCommand(text); err != nil {
			return errors.NewValidation("command", err.Error())
		}
		r := ucl.Result{Line: i + 1, Command: text, AffectedBlocks: []document.BlockID{}}
		affected, err := e.executor.Execute(d, text)
		if err != nil {
			r.Err, r.Error = err, err.Error()
		} else {
			r.Success, r.AffectedBlocks = true, affected
		}
		results = append(results, r)
	}
	if c.Script != "" {
		data, err := osReadFile(c.Script)
		if err != nil {
			return errors.NewIO("read", c.Script, err)
		}
		results = append(results, e.executor.ExecuteScript(d, string(data))...)
	}

	var firstErr error
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(e.stdout, "ok   %s -> %s\n", r.Command, joinIDs(r.AffectedBlocks))
			continue
		}
		fmt.Fprintf(e.stdout, "FAIL line %d: %s\n", r.Line, r.Error)
		if firstErr == nil {
			firstErr = r.Err
		}
	}
	if firstErr != nil {
		return firstErr
	}

	switch {
	case c.InPlace:
		return e.write(c.Doc, d)
	case c.Out != "":
		return e.write(c.Out, d)
	}
	logging.Warn("exec_result_discarded", "doc", c.Doc, "hint", "use --in-place or --out to keep changes")
	return nil
}

func joinIDs(ids []document.BlockID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

// issuesError reports a document that failed validation.
type issuesError struct {
	errors int
}

func (e *issuesError) Error() string {
	return fmt.Sprintf("document has %d validation error(s)", e.errors)
}

// ValidateCmd checks a document.
type ValidateCmd struct {
	Doc string `arg:"" help:"Document file" type:"existingfile"`
}

func (c *ValidateCmd) Run(e *env) error {
	d, _, err := docio.Load(c.Doc)
	if err != nil {
		return err
	}

	issues := d.Validate()
	if len(issues) == 0 {
		fmt.Fprintln(e.stdout, "OK: no issues")
		return nil
	}

	count := 0
	for _, issue := range issues {
		fmt.Fprintln(e.stdout, issue.String())
		if issue.Severity == document.SeverityError {
			count++
		}
	}
	if count > 0 {
		return &issuesError{errors: count}
	}
	return nil
}

// ShowCmd prints the block tree.
type ShowCmd struct {
	Doc string `arg:"" help:"Document file" type:"existingfile"`
}

func (c *ShowCmd) Run(e *env) error {
	d, compression, err := docio.Load(c.Doc)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "Document %s", d.ID())
	if d.Title() != "" {
		fmt.Fprintf(e.stdout, " %q", d.Title())
	}
	fmt.Fprintln(e.stdout)

	printTree(e.stdout, d, d.RootID(), 1, map[document.BlockID]bool{})

	hash, err := d.Hash()
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout)
	fmt.Fprintf(e.stdout, "  Blocks:      %d\n", d.BlockCount())
	fmt.Fprintf(e.stdout, "  Compression: %s\n", compression)
	fmt.Fprintf(e.stdout, "  Hash:        %s\n", hash)
	return nil
}

const previewLength = 60

func printTree(w io.Writer, d *document.Document, id document.BlockID, depth int, seen map[document.BlockID]bool) {
	indent := strings.Repeat("  ", depth)
	if seen[id] {
		fmt.Fprintf(w, "%s%s (cycle)\n", indent, id)
		return
	}
	seen[id] = true

	b, err := d.GetBlock(id)
	if err != nil {
		fmt.Fprintf(w, "%s%s (missing)\n", indent, id)
		return
	}
	fmt.Fprintf(w, "%s%s %s\n", indent, id, describe(b))
	for _, child := range b.Children {
		printTree(w, d, child, depth+1, seen)
	}
}

func describe(b *document.Block) string {
	var sb strings.Builder
	if b.Role != "" {
		fmt.Fprintf(&sb, "[%s] ", b.Role)
	}
	switch v := b.Content.(type) {
	case document.Code:
		fmt.Fprintf(&sb, "code(%s)", v.Language)
	default:
		sb.WriteString(string(b.ContentType()))
	}

	text := b.Text()
	if text == "" {
		return sb.String()
	}
	text = strings.ReplaceAll(text, "\n", " ")
	if r := []rune(text); len(r) > previewLength {
		text = string(r[:previewLength]) + "..."
	}
	fmt.Fprintf(&sb, " %q", text)
	return sb.String()
}

// FindCmd lists block ids by role.
type FindCmd struct {
	Doc  string `arg:"" help:"Document file" type:"existingfile"`
	Role string `arg:"" help:"Role to search for"`
}

func (c *FindCmd) Run(e *env) error {
	d, _, err := docio.Load(c.Doc)
	if err != nil {
		return err
	}
	for _, id := range d.FindByType(c.Role) {
		fmt.Fprintln(e.stdout, id)
	}
	return nil
}

// MCPCmd serves a document to MCP clients over stdio.
type MCPCmd struct {
	Doc   string `help:"Document file; created on first change if missing" type:"path"`
	Title string `help:"Title for a new document"`
}

func (c *MCPCmd) Run(e *env) error {
	d, err := c.open()
	if err != nil {
		return err
	}
	s := mcpserver.New(d, e.executor, mcpserver.Options{
		Path:    c.Doc,
		Output:  e.output,
		Version: ucp.SemVer,
	})
	return serveMCP(s)
}

func (c *MCPCmd) open() (*document.Document, error) {
	if c.Doc == "" {
		return ucp.CreateDocument(c.Title), nil
	}
	d, _, err := docio.Load(c.Doc)
	if errors.Is(err, os.ErrNotExist) {
		logging.Info("document_missing_starting_empty", "path", c.Doc)
		return ucp.CreateDocument(c.Title), nil
	}
	return d, err
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	fmt.Fprintln(e.stdout, ucp.Version())
	return nil
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var ie *issuesError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ie):
		return exitValidation
	case errors.Is(err, errors.ErrSyntax):
		return exitSyntax
	case errors.Is(err, errors.ErrNotFound):
		return exitNotFound
	case errors.Is(err, errors.ErrInvalidOperation):
		return exitInvalidOperation
	default:
		return exitError
	}
}

// exitRequest carries a kong exit (help or version) out of Parse.
type exitRequest struct {
	code int
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, stdout, stderr io.Writer) (code int) {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name(ucp.Name),
		kong.Description("UCP documents and the UCL command language"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{"version": ucp.Version()},
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitRequest{code: code}) }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", ucp.Name, err)
		return exitError
	}

	defer func() {
		if r := recover(); r != nil {
			req, ok := r.(exitRequest)
			if !ok {
				panic(r)
			}
			code = req.code
		}
	}()

	ctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", ucp.Name, err)
		return exitError
	}

	e, err := newEnv(&cli, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", ucp.Name, err)
		return exitError
	}

	if err := ctx.Run(e); err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", ucp.Name, err)
		return exitCode(err)
	}
	return exitOK
}

// newEnv resolves configuration, applies flag overrides and sets up logging.
func newEnv(cli *CLI, stdout io.Writer) (*env, error) {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
	if cli.Compress != "" {
		cfg.Output.Compression = cli.Compress
	}
	if cli.Compact {
		cfg.Output.Indent = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyLogging(); err != nil {
		return nil, err
	}

	output := docio.Options{Indent: cfg.Output.Indent}
	if cfg.Output.Compression != "" {
		if output.Compression, err = docio.ParseCompression(cfg.Output.Compression); err != nil {
			return nil, err
		}
	}

	return &env{
		stdout:   stdout,
		executor: ucl.NewExecutorWithTTL(cfg.UCL.CacheSize, cfg.UCL.CacheTTL),
		output:   output,
	}, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
