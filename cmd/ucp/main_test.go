package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/ucp/core/document"
	"github.com/FocuswithJustin/ucp/core/errors"
	"github.com/FocuswithJustin/ucp/internal/config"
	"github.com/FocuswithJustin/ucp/internal/docio"
	"github.com/FocuswithJustin/ucp/internal/logging"
	"github.com/FocuswithJustin/ucp/internal/mcpserver"
)

// Test helper functions

func useDefaultConfig(t *testing.T) {
	t.Helper()
	orig := loadConfig
	t.Cleanup(func() { loadConfig = orig })
	loadConfig = func(path string) (config.Config, error) {
		if path != "" {
			return config.Load(path)
		}
		return config.Default(), nil
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func createTestDocument(t *testing.T, dir string) (string, document.BlockID) {
	t.Helper()
	d := document.New("Test")
	intro, err := d.AddBlock(d.RootID(), "Hello", "intro")
	if err != nil {
		t.Fatalf("AddBlock failed: %v", err)
	}
	if _, err := d.AddCode(intro, "go", "fmt.Println(1)"); err != nil {
		t.Fatalf("AddCode failed: %v", err)
	}
	path := filepath.Join(dir, "doc.json")
	if err := docio.Save(path, d, docio.Options{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path, intro
}

// captureLogs sends log records written during the test to the returned
// buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logging.SetOutput(&buf)
	t.Cleanup(func() {
		logging.SetOutput(prev)
		logging.InitLogger(logging.LevelWarn, logging.FormatText)
	})
	return &buf
}

func loadTestDocument(t *testing.T, path string) *document.Document {
	t.Helper()
	d, _, err := docio.Load(path)
	if err != nil {
		t.Fatalf("Load(%s) failed: %v", path, err)
	}
	return d
}

// Tests for version output

func TestVersion(t *testing.T) {
	useDefaultConfig(t)

	for _, args := range [][]string{{"--version"}, {"-V"}, {"version"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			code, stdout, _ := runCLI(t, args...)
			if code != exitOK {
				t.Errorf("exit code = %d, want 0", code)
			}
			if stdout != "ucp 0.1.0\n" {
				t.Errorf("stdout = %q, want %q", stdout, "ucp 0.1.0\n")
			}
		})
	}
}

func TestHelp(t *testing.T) {
	useDefaultConfig(t)

	code, stdout, _ := runCLI(t, "--help")
	if code != exitOK {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "exec") {
		t.Errorf("help output missing commands: %s", stdout)
	}
}

func TestUsageErrors(t *testing.T) {
	useDefaultConfig(t)

	tests := [][]string{
		{},
		{"frobnicate"},
		{"show", filepath.Join(t.TempDir(), "missing.json")},
	}
	for _, args := range tests {
		code, _, stderr := runCLI(t, args...)
		if code != exitError {
			t.Errorf("run(%v) exit code = %d, want 1", args, code)
		}
		if !strings.Contains(stderr, "ucp: error:") {
			t.Errorf("run(%v) stderr = %q", args, stderr)
		}
	}
}

// Tests for NewCmd

func TestNewCmd(t *testing.T) {
	useDefaultConfig(t)
	path := filepath.Join(t.TempDir(), "new.json.xz")

	code, stdout, stderr := runCLI(t, "new", "--title", "Fresh", "--out", path)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "Created "+path) {
		t.Errorf("stdout = %q", stdout)
	}

	d, compression, err := docio.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if compression != docio.CompressionXZ {
		t.Errorf("compression = %s, want xz from the extension", compression)
	}
	if d.Title() != "Fresh" || d.BlockCount() != 1 {
		t.Errorf("document = %q with %d blocks", d.Title(), d.BlockCount())
	}
}

func TestNewCmdStdout(t *testing.T) {
	useDefaultConfig(t)

	code, stdout, _ := runCLI(t, "--compact", "new", "-t", "Piped")
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	if strings.Contains(stdout, "\n  ") {
		t.Errorf("--compact output is indented: %s", stdout)
	}
	d, err := document.FromJSON([]byte(stdout))
	if err != nil {
		t.Fatalf("stdout is not a document: %v", err)
	}
	if d.Title() != "Piped" {
		t.Errorf("Title() = %q", d.Title())
	}
}

// Tests for ExecCmd

func TestExecCmdInPlace(t *testing.T) {
	useDefaultConfig(t)
	path, intro := createTestDocument(t, t.TempDir())

	code, stdout, stderr := runCLI(t, "exec", path,
		"-e", "EDIT "+intro.String()+` SET content.text = "Hello, UCP!"`,
		"-e", "APPEND "+intro.String()+` code rust :: "fn main() {}"`,
		"--in-place",
	)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if strings.Count(stdout, "ok ") != 2 {
		t.Errorf("stdout = %q, want two ok lines", stdout)
	}

	d := loadTestDocument(t, path)
	b, _ := d.GetBlock(intro)
	if b.Text() != "Hello, UCP!" {
		t.Errorf("Text() = %q", b.Text())
	}
	if len(b.Children) != 2 {
		t.Errorf("children = %v, want 2", b.Children)
	}
}

func TestExecCmdCommaInCommand(t *testing.T) {
	useDefaultConfig(t)
	path, intro := createTestDocument(t, t.TempDir())

	code, _, stderr := runCLI(t, "exec", path, "-e", "EDIT "+intro.String()+` SET content.text = "a, b"`, "-i")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	b, _ := loadTestDocument(t, path).GetBlock(intro)
	if b.Text() != "a, b" {
		t.Errorf("Text() = %q, want %q", b.Text(), "a, b")
	}
}

func TestExecCmdScriptAndOut(t *testing.T) {
	useDefaultConfig(t)
	dir := t.TempDir()
	path, intro := createTestDocument(t, dir)

	script := filepath.Join(dir, "edit.ucl")
	content := "# greet\nEDIT " + intro.String() + " SET content.text = \"Hi\"\n\nAPPEND " + intro.String() + " text :: \"more\"\n"
	if err := os.WriteFile(script, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out := filepath.Join(dir, "out.json.gz")

	code, _, stderr := runCLI(t, "exec", path, "--script", script, "--out", out)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}

	original := loadTestDocument(t, path)
	if b, _ := original.GetBlock(intro); b.Text() != "Hello" {
		t.Error("--out modified the input document")
	}
	result := loadTestDocument(t, out)
	if result.BlockCount() != 4 {
		t.Errorf("BlockCount() = %d, want 4", result.BlockCount())
	}
}

func TestExecCmdStdout(t *testing.T) {
	useDefaultConfig(t)
	path, intro := createTestDocument(t, t.TempDir())

	code, stdout, _ := runCLI(t, "--compact", "exec", path, "-e", "EDIT "+intro.String()+` SET content.text = "x"`, "-o", "-")
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	idx := strings.Index(stdout, "{")
	if idx < 0 {
		t.Fatalf("stdout has no document: %q", stdout)
	}
	var snap document.Snapshot
	if err := json.Unmarshal([]byte(stdout[idx:]), &snap); err != nil {
		t.Fatalf("document on stdout is invalid: %v", err)
	}
}

func TestExecCmdErrors(t *testing.T) {
	useDefaultConfig(t)

	tests := []struct {
		name     string
		command  string
		wantCode int
	}{
		{"syntax error", "DELETE blk_x", exitSyntax},
		{"missing block", `EDIT blk_missing SET content.text = "x"`, exitNotFound},
		{"invalid operation", "APPEND {intro} text python :: \"x\"", exitInvalidOperation},
		{"unknown path", "EDIT {intro} SET content.bogus = \"x\"", exitInvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, intro := createTestDocument(t, t.TempDir())
			before, _ := os.ReadFile(path)

			command := strings.ReplaceAll(tt.command, "{intro}", intro.String())
			code, stdout, stderr := runCLI(t, "exec", path, "-e", command, "--in-place")
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr %s)", code, tt.wantCode, stderr)
			}
			if !strings.Contains(stdout, "FAIL") {
				t.Errorf("stdout = %q, want a FAIL line", stdout)
			}

			after, _ := os.ReadFile(path)
			if !bytes.Equal(before, after) {
				t.Error("failed exec rewrote the document")
			}
		})
	}
}

func TestExecCmdRequiresCommands(t *testing.T) {
	useDefaultConfig(t)
	path, _ := createTestDocument(t, t.TempDir())

	code, _, stderr := runCLI(t, "exec", path)
	if code != exitError || !strings.Contains(stderr, "command") {
		t.Errorf("exit code = %d, stderr = %q", code, stderr)
	}
}

func TestExecCmdOutputFlagsExclusive(t *testing.T) {
	useDefaultConfig(t)
	path, _ := createTestDocument(t, t.TempDir())

	code, _, _ := runCLI(t, "exec", path, "-e", "x", "-i", "-o", "-")
	if code != exitError {
		t.Errorf("exit code = %d, want 1 for --in-place with --out", code)
	}
}

func TestExecCmdScriptReadError(t *testing.T) {
	useDefaultConfig(t)
	dir := t.TempDir()
	path, _ := createTestDocument(t, dir)
	script := filepath.Join(dir, "s.ucl")
	if err := os.WriteFile(script, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	orig := osReadFile
	defer func() { osReadFile = orig }()
	osReadFile = func(string) ([]byte, error) { return nil, os.ErrPermission }

	if code, _, _ := runCLI(t, "exec", path, "--script", script); code != exitError {
		t.Errorf("exit code = %d, want 1", code)
	}
}

// Tests for ValidateCmd

func TestValidateCmd(t *testing.T) {
	useDefaultConfig(t)
	dir := t.TempDir()
	path, _ := createTestDocument(t, dir)

	code, stdout, _ := runCLI(t, "validate", path)
	if code != exitOK || !strings.Contains(stdout, "OK") {
		t.Errorf("validate(sound) = %d, %q", code, stdout)
	}

	broken := filepath.Join(dir, "broken.json")
	raw := `{"id": "d", "rootId": "r", "blocks": [
		{"id": "r", "content": {"kind": "text"}},
		{"id": "lost", "content": {"kind": "text"}}
	]}`
	if err := os.WriteFile(broken, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ = runCLI(t, "validate", broken)
	if code != exitValidation {
		t.Errorf("exit code = %d, want %d", code, exitValidation)
	}
	if !strings.Contains(stdout, document.IssueOrphan) {
		t.Errorf("stdout = %q, want orphan issue", stdout)
	}

	warnOnly := filepath.Join(dir, "warn.json")
	raw = `{"id": "d", "rootId": "r", "blocks": [
		{"id": "r", "content": {"kind": "text"}, "children": ["c"]},
		{"id": "c", "content": {"kind": "code", "text": "x"}}
	]}`
	if err := os.WriteFile(warnOnly, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, _ = runCLI(t, "validate", warnOnly); code != exitOK {
		t.Errorf("warnings only: exit code = %d, want 0", code)
	}
}

// Tests for ShowCmd and FindCmd

func TestShowCmd(t *testing.T) {
	useDefaultConfig(t)
	path, intro := createTestDocument(t, t.TempDir())

	code, stdout, _ := runCLI(t, "show", path)
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	d := loadTestDocument(t, path)
	hash, _ := d.Hash()

	for _, want := range []string{`"Test"`, intro.String() + ` [intro] text "Hello"`, "code(go)", "Blocks:      3", hash} {
		if !strings.Contains(stdout, want) {
			t.Errorf("show output missing %q:\n%s", want, stdout)
		}
	}
}

func TestDescribeTruncates(t *testing.T) {
	b := &document.Block{Role: "p", Content: document.NewText(strings.Repeat("é", previewLength+5))}
	got := describe(b)
	if !strings.HasSuffix(got, `..."`) {
		t.Errorf("describe() = %q, want truncated preview", got)
	}
}

func TestFindCmd(t *testing.T) {
	useDefaultConfig(t)
	path, intro := createTestDocument(t, t.TempDir())

	code, stdout, _ := runCLI(t, "find", path, "intro")
	if code != exitOK || stdout != intro.String()+"\n" {
		t.Errorf("find = %d, %q", code, stdout)
	}

	code, stdout, _ = runCLI(t, "find", path, "nothing")
	if code != exitOK || stdout != "" {
		t.Errorf("find(nothing) = %d, %q", code, stdout)
	}
}

// Tests for MCPCmd

func TestMCPCmd(t *testing.T) {
	useDefaultConfig(t)
	orig := serveMCP
	defer func() { serveMCP = orig }()

	served := 0
	serveMCP = func(s *mcpserver.Server) error {
		served++
		return nil
	}

	path, _ := createTestDocument(t, t.TempDir())
	for _, args := range [][]string{
		{"mcp"},
		{"mcp", "--doc", path},
		{"mcp", "--doc", filepath.Join(t.TempDir(), "later.json"), "--title", "Later"},
	} {
		if code, _, stderr := runCLI(t, args...); code != exitOK {
			t.Errorf("run(%v) = %d, stderr %s", args, code, stderr)
		}
	}
	if served != 3 {
		t.Errorf("served %d times, want 3", served)
	}

	garbage := filepath.Join(t.TempDir(), "garbage.json")
	os.WriteFile(garbage, []byte("nope"), 0o644)
	if code, _, _ := runCLI(t, "mcp", "--doc", garbage); code != exitError {
		t.Errorf("mcp with unreadable document exit code = %d, want 1", code)
	}
}

// Tests for configuration handling

func TestConfigErrors(t *testing.T) {
	useDefaultConfig(t)

	if code, _, _ := runCLI(t, "--log-level", "loud", "version"); code != exitError {
		t.Errorf("bad --log-level exit code = %d, want 1", code)
	}
	if code, _, _ := runCLI(t, "--compress", "zstd", "version"); code != exitError {
		t.Errorf("bad --compress exit code = %d, want 1", code)
	}

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(cfgPath, []byte("log:\n  format: xml\n"), 0o644)
	if code, _, stderr := runCLI(t, "--config", cfgPath, "version"); code != exitError || !strings.Contains(stderr, "log.format") {
		t.Errorf("bad config file exit code = %d, stderr = %q", code, stderr)
	}
}

func TestConfigFileApplied(t *testing.T) {
	useDefaultConfig(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	os.WriteFile(cfgPath, []byte("output:\n  indent: false\n  compression: gzip\n"), 0o644)
	out := filepath.Join(dir, "doc.json")

	if code, _, stderr := runCLI(t, "--config", cfgPath, "--log-level", "error", "new", "-o", out); code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if _, compression, err := docio.Load(out); err != nil || compression != docio.CompressionGzip {
		t.Errorf("Load() = %s, %v; want gzip from config", compression, err)
	}
}

func TestConfigCacheTTL(t *testing.T) {
	useDefaultConfig(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	os.WriteFile(good, []byte("ucl:\n  cacheSize: 4\n  cacheTTL: 5m\n"), 0o644)
	e, err := newEnv(&CLI{Config: good}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newEnv() error = %v", err)
	}
	if got := e.executor.CacheStats().MaxSize; got != 4 {
		t.Errorf("executor MaxSize = %d, want 4", got)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("ucl:\n  cacheTTL: -5m\n"), 0o644)
	if code, _, stderr := runCLI(t, "--config", bad, "version"); code != exitError || !strings.Contains(stderr, "ucl.cacheTTL") {
		t.Errorf("negative cacheTTL exit code = %d, stderr = %q", code, stderr)
	}
}

func TestExecCmdWarnsWhenResultDiscarded(t *testing.T) {
	useDefaultConfig(t)
	logs := captureLogs(t)
	path, intro := createTestDocument(t, t.TempDir())

	code, _, stderr := runCLI(t, "--log-format", "json", "exec", path, "-e", "EDIT "+intro.String()+` SET content.text = "x"`)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(logs.String(), `"msg":"exec_result_discarded"`) {
		t.Errorf("logs = %q, want exec_result_discarded warning", logs.String())
	}
	b, err := loadTestDocument(t, path).GetBlock(intro)
	if err != nil {
		t.Fatalf("GetBlock() error = %v", err)
	}
	if b.Text() != "Hello" {
		t.Errorf("document changed on disk: intro = %q", b.Text())
	}
}

func TestMCPCmdLogsMissingDocument(t *testing.T) {
	useDefaultConfig(t)
	logs := captureLogs(t)
	orig := serveMCP
	defer func() { serveMCP = orig }()
	serveMCP = func(s *mcpserver.Server) error { return nil }

	missing := filepath.Join(t.TempDir(), "later.json")
	if code, _, stderr := runCLI(t, "--log-level", "info", "mcp", "--doc", missing); code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(logs.String(), "document_missing_starting_empty") {
		t.Errorf("logs = %q, want document_missing_starting_empty", logs.String())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{&issuesError{errors: 1}, exitValidation},
		{&errors.ExecutionError{Command: "x", Err: errors.NewSyntax("x", 1, "unknown command")}, exitSyntax},
		{errors.NewNotFound("block", "b"), exitNotFound},
		{errors.NewInvalidOperation("edit", "no"), exitInvalidOperation},
		{errors.NewValidation("f", "bad"), exitError},
		{os.ErrPermission, exitError},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
