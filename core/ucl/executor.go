package ucl

import (
	"bufio"
	"strings"
	"time"

	"github.com/FocuswithJustin/ucp/core/document"
	"github.com/FocuswithJustin/ucp/core/errors"
	"github.com/FocuswithJustin/ucp/internal/cache"
	"github.com/FocuswithJustin/ucp/internal/logging"
)

// Content type names accepted by APPEND.
const (
	TypeText = "text"
	TypeCode = "code"
)

// Executor parses UCL text and applies it to documents. It holds no
// document state; the same Executor may serve many documents. The
// documents themselves are not safe for concurrent use.
type Executor struct {
	commands cache.Cache[string, Command]
}

// NewExecutor returns an Executor that memoises up to cacheSize parsed
// commands. cacheSize <= 0 disables the cache.
func NewExecutor(cacheSize int) *Executor {
	return NewExecutorWithTTL(cacheSize, 0)
}

// NewExecutorWithTTL is NewExecutor with cached commands expiring ttl after
// they were parsed. ttl <= 0 keeps them until evicted.
func NewExecutorWithTTL(cacheSize int, ttl time.Duration) *Executor {
	cfg := cache.DefaultConfig()
	cfg.MaxSize = cacheSize
	cfg.TTL = ttl
	return newExecutor(cfg)
}

func newExecutor(cfg cache.Config) *Executor {
	e := &Executor{}
	if cfg.MaxSize <= 0 {
		return e
	}
	cfg.OnEvict = func(key, _ interface{}) {
		logging.Debug("ucl_cache_evict", "command", key)
	}
	e.commands = cache.NewLRU[string, Command](cfg)
	return e
}

var defaultExecutor = newExecutor(cache.DefaultConfig())

// Execute runs one command against d using a shared executor.
func Execute(d *document.Document, text string) ([]document.BlockID, error) {
	return defaultExecutor.Execute(d, text)
}

// ExecuteScript runs a multi-line script against d using a shared executor.
func ExecuteScript(d *document.Document, script string) []Result {
	return defaultExecutor.ExecuteScript(d, script)
}

// Parse parses text, consulting the cache first. Only successful parses
// are cached. Cached commands are shared and must not be modified.
func (e *Executor) Parse(text string) (Command, error) {
	if e.commands != nil {
		if cmd, ok := e.commands.Get(text); ok {
			return cmd, nil
		}
	}
	cmd, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if e.commands != nil {
		e.commands.Put(text, cmd)
	}
	return cmd, nil
}

// Execute parses and applies a single command and returns the ids of the
// blocks it touched. Each command is atomic: on any error d is unchanged.
// Errors are *errors.ExecutionError values wrapping a SyntaxError,
// NotFoundError or InvalidOperationError.
func (e *Executor) Execute(d *document.Document, text string) ([]document.BlockID, error) {
	start := time.Now()

	cmd, err := e.Parse(text)
	if err != nil {
		return nil, e.fail(text, err)
	}

	affected, err := e.Apply(d, cmd)
	if err != nil {
		return nil, e.fail(text, err)
	}

	logging.CommandExecuted(cmd.Verb(), text, len(affected), time.Since(start))
	return affected, nil
}

func (e *Executor) fail(text string, err error) error {
	logging.CommandFailed(text, err)
	return &errors.ExecutionError{Command: text, Err: err}
}

// Apply executes an already parsed command. Returned errors are not
// wrapped.
func (e *Executor) Apply(d *document.Document, cmd Command) ([]document.BlockID, error) {
	if d == nil {
		return nil, errors.NewInvalidOperation("execute", "document is nil")
	}
	switch c := cmd.(type) {
	case *EditCommand:
		return applyEdit(d, c)
	case *AppendCommand:
		return applyAppend(d, c)
	case nil:
		return nil, errors.NewInvalidOperation("execute", "command is nil")
	default:
		return nil, errors.NewUnsupported("command", c.Verb())
	}
}

func applyEdit(d *document.Document, c *EditCommand) ([]document.BlockID, error) {
	b, err := d.GetBlock(c.BlockID)
	if err != nil {
		return nil, err
	}
	set, err := resolveSetter(b.Content, c.Path)
	if err != nil {
		return nil, &errors.InvalidOperationError{Operation: "edit " + string(c.BlockID), Reason: err.Error()}
	}
	if err := d.SetBlockContent(c.BlockID, set(b.Content, c.Value)); err != nil {
		return nil, err
	}
	return []document.BlockID{c.BlockID}, nil
}

func applyAppend(d *document.Document, c *AppendCommand) ([]document.BlockID, error) {
	if !d.HasBlock(c.ParentID) {
		return nil, errors.NewNotFound("block", string(c.ParentID))
	}

	var content document.Content
	switch c.ContentType {
	case TypeText:
		if c.Language != "" {
			return nil, errors.NewInvalidOperation("append", "text blocks take no language")
		}
		content = document.NewText(c.Value)
	case TypeCode:
		if c.Language == "" {
			content = document.NewText(c.Value)
		} else {
			content = document.NewCode(c.Language, c.Value)
		}
	default:
		return nil, errors.NewInvalidOperation("append", "unsupported content type "+c.ContentType)
	}
	id, err := d.AddBlockWithContent(c.ParentID, content, "")
	if err != nil {
		return nil, err
	}
	return []document.BlockID{id}, nil
}

// Result is the outcome of one line of a script.
type Result struct {
	Line           int                `json:"line"`
	Command        string             `json:"command"`
	Success        bool               `json:"success"`
	AffectedBlocks []document.BlockID `json:"affectedBlocks"`
	Error          string             `json:"error,omitempty"`
	Err            error              `json:"-"`
}

// ExecuteScript runs script one line at a time. Blank lines and lines
// whose first non-space character is '#' are skipped. Every line is atomic
// on its own; a failing line does not stop later lines and does not undo
// earlier ones.
func (e *Executor) ExecuteScript(d *document.Document, script string) []Result {
	results := []Result{}
	scanner := bufio.NewScanner(strings.NewReader(script))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		r := Result{Line: line, Command: text, AffectedBlocks: []document.BlockID{}}
		affected, err := e.Execute(d, text)
		if err != nil {
			r.Err = err
			r.Error = err.Error()
		} else {
			r.Success = true
			r.AffectedBlocks = affected
		}
		results = append(results, r)
	}
	if err := scanner.Err(); err != nil {
		results = append(results, Result{
			Line:           line + 1,
			AffectedBlocks: []document.BlockID{},
			Err:            err,
			Error:          err.Error(),
		})
	}
	return results
}

// CacheStats reports parse cache counters. The zero Stats is returned when
// caching is disabled.
func (e *Executor) CacheStats() cache.Stats {
	if e.commands == nil {
		return cache.Stats{}
	}
	return e.commands.Stats()
}
