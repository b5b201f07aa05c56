package ucl

import (
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/ucp/core/document"
	"github.com/FocuswithJustin/ucp/core/errors"
)

func TestParseEdit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *EditCommand
	}{
		{
			name:  "quoted value",
			input: `EDIT blk_000000000000000000000001 SET content.text = "Updated"`,
			want:  &EditCommand{BlockID: "blk_000000000000000000000001", Path: "content.text", Value: "Updated"},
		},
		{
			name:  "escapes",
			input: `EDIT b SET content.text = "line one\nsaid \"hi\"\t\\"`,
			want:  &EditCommand{BlockID: "b", Path: "content.text", Value: "line one\nsaid \"hi\"\t\\"},
		},
		{
			name:  "bare value",
			input: `EDIT b SET content.language = rust`,
			want:  &EditCommand{BlockID: "b", Path: "content.language", Value: "rust"},
		},
		{
			name:  "no spaces around equals",
			input: `EDIT b SET content.text="x"`,
			want:  &EditCommand{BlockID: "b", Path: "content.text", Value: "x"},
		},
		{
			name:  "surrounding whitespace",
			input: "  \tEDIT   b   SET content.text =   \"x\"  ",
			want:  &EditCommand{BlockID: "b", Path: "content.text", Value: "x"},
		},
		{
			name:  "empty string",
			input: `EDIT b SET content.text = ""`,
			want:  &EditCommand{BlockID: "b", Path: "content.text", Value: ""},
		},
		{
			name:  "unicode",
			input: `EDIT b SET content.text = "héllo, 世界"`,
			want:  &EditCommand{BlockID: "b", Path: "content.text", Value: "héllo, 世界"},
		},
		{
			name:  "keyword-like value",
			input: `EDIT b SET content.text = "APPEND x :: y"`,
			want:  &EditCommand{BlockID: "b", Path: "content.text", Value: "APPEND x :: y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			got, ok := cmd.(*EditCommand)
			if !ok {
				t.Fatalf("Parse(%q) = %T, want *EditCommand", tt.input, cmd)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.Verb() != VerbEdit {
				t.Errorf("Verb() = %q, want %q", got.Verb(), VerbEdit)
			}
		})
	}
}

func TestParseAppend(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *AppendCommand
	}{
		{
			name:  "text",
			input: `APPEND blk_ff0000000000000000000000 text :: "New paragraph"`,
			want:  &AppendCommand{ParentID: document.RootBlockID, ContentType: "text", Value: "New paragraph"},
		},
		{
			name:  "code with language",
			input: `APPEND p code rust :: "fn main() {}"`,
			want:  &AppendCommand{ParentID: "p", ContentType: "code", Language: "rust", Value: "fn main() {}"},
		},
		{
			name:  "code without language",
			input: `APPEND p code :: "x"`,
			want:  &AppendCommand{ParentID: "p", ContentType: "code", Value: "x"},
		},
		{
			name:  "no spaces around separator",
			input: `APPEND p text::"x"`,
			want:  &AppendCommand{ParentID: "p", ContentType: "text", Value: "x"},
		},
		{
			name:  "unknown type parses",
			input: `APPEND p table :: "x"`,
			want:  &AppendCommand{ParentID: "p", ContentType: "table", Value: "x"},
		},
		{
			name:  "bare value",
			input: `APPEND p text :: word`,
			want:  &AppendCommand{ParentID: "p", ContentType: "text", Value: "word"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			got, ok := cmd.(*AppendCommand)
			if !ok {
				t.Fatalf("Parse(%q) = %T, want *AppendCommand", tt.input, cmd)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.Verb() != VerbAppend {
				t.Errorf("Verb() = %q, want %q", got.Verb(), VerbAppend)
			}
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
		wantPos int
	}{
		{"empty", "", "empty command", 0},
		{"whitespace only", "   \t ", "empty command", 0},
		{"unknown verb", `INVALID_COMMAND blk_1`, "unknown command", 1},
		{"unknown verb after spaces", `   DELETE blk_1`, "unknown command", 4},
		{"lowercase keyword", `edit b SET content.text = "x"`, "unknown command", 1},
		{"verb only", `EDIT`, "unexpected end of command", 0},
		{"missing SET", `EDIT b content.text = "x"`, "unexpected token", 8},
		{"missing equals", `EDIT b SET content.text "x"`, "unexpected token", 25},
		{"missing value", `EDIT b SET content.text =`, "unexpected end of command", 0},
		{"missing separator", `APPEND p text "x"`, "unexpected token", 15},
		{"single colon", `APPEND p text : "x"`, "unexpected character", 15},
		{"unterminated string", `EDIT b SET content.text = "abc`, "unterminated string", 27},
		{"invalid escape", `EDIT b SET content.text = "\q"`, "invalid string literal", 27},
		{"trailing tokens", `EDIT b SET content.text = "x" extra`, "unexpected token", 31},
		{"malformed path leading dot", `EDIT b SET .text = "x"`, "malformed path", 12},
		{"malformed path digit segment", `EDIT b SET content.1 = "x"`, "malformed path", 12},
		{"malformed path double dot", `EDIT b SET content..text = "x"`, "malformed path", 12},
		{"missing parent", `APPEND :: "x"`, "unexpected token", 8},
		{"missing block id", `EDIT  SET content.text = "x"`, "missing block id", 7},
		{"missing block id bare", `EDIT SET`, "missing block id", 6},
		{"block named SET missing path", `EDIT SET SET`, "unexpected end of command", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", tt.input, cmd)
			}
			if cmd != nil {
				t.Errorf("Parse(%q) returned a command alongside an error", tt.input)
			}
			if !errors.Is(err, errors.ErrSyntax) {
				t.Errorf("error %v does not match ErrSyntax", err)
			}
			var se *errors.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error is %T, want *errors.SyntaxError", err)
			}
			if !strings.Contains(se.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", se.Message, tt.wantMsg)
			}
			if tt.wantPos > 0 && se.Pos != tt.wantPos {
				t.Errorf("Pos = %d, want %d", se.Pos, tt.wantPos)
			}
		})
	}
}

func TestParseUnknownVerbToken(t *testing.T) {
	_, err := Parse("INVALID_COMMAND blk_1")
	var se *errors.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("error is %T, want *errors.SyntaxError", err)
	}
	if se.Token != "INVALID_COMMAND" {
		t.Errorf("Token = %q, want INVALID_COMMAND", se.Token)
	}
}

func TestParseEditBlockNamedSET(t *testing.T) {
	cmd, err := Parse(`EDIT SET SET content.text = "x"`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	edit, ok := cmd.(*EditCommand)
	if !ok {
		t.Fatalf("Parse() = %T, want *EditCommand", cmd)
	}
	if edit.BlockID != "SET" {
		t.Errorf("BlockID = %q, want SET", edit.BlockID)
	}
}

func TestParseMissingBlockIDToken(t *testing.T) {
	_, err := Parse(`EDIT  SET content.text = "x"`)
	var se *errors.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("error is %T, want *errors.SyntaxError", err)
	}
	if se.Token != "SET" {
		t.Errorf("Token = %q, want SET", se.Token)
	}
	if se.Err == nil {
		t.Error("Err is nil, want the underlying parser error")
	}
}

func TestCommandStringRoundTrip(t *testing.T) {
	commands := []Command{
		&EditCommand{BlockID: "blk_000000000000000000000001", Path: "content.text", Value: "Updated"},
		&EditCommand{BlockID: "b", Path: "content.language", Value: ""},
		&EditCommand{BlockID: "b", Path: "content.text", Value: "multi\nline \"quoted\" \\ back\x00slash"},
		&AppendCommand{ParentID: "p", ContentType: "text", Value: "héllo"},
		&AppendCommand{ParentID: "p", ContentType: "code", Language: "go", Value: "x := 1\n"},
		&AppendCommand{ParentID: "p", ContentType: "code", Value: "no language"},
	}

	for _, cmd := range commands {
		t.Run(cmd.String(), func(t *testing.T) {
			parsed, err := Parse(cmd.String())
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", cmd.String(), err)
			}
			if !reflect.DeepEqual(parsed, cmd) {
				t.Errorf("Parse(String()) = %+v, want %+v", parsed, cmd)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{&EditCommand{BlockID: "b", Path: "content.text", Value: "x"}, `EDIT b SET content.text = "x"`},
		{&AppendCommand{ParentID: "p", ContentType: "code", Language: "rust", Value: "y"}, `APPEND p code rust :: "y"`},
		{&AppendCommand{ParentID: "p", ContentType: "text", Value: "a\"b"}, `APPEND p text :: "a\"b"`},
	}
	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}
