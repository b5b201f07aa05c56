package ucl

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"

	"github.com/FocuswithJustin/ucp/core/document"
	"github.com/FocuswithJustin/ucp/core/errors"
)

// pathPattern is segment(.segment)* with identifier-like segments.
var pathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Parse parses a single UCL command. It never consults a document; block
// ids are checked for existence only at execution time.
//
// Supported forms:
//   - EDIT <blockId> SET <path> = <literal>
//   - APPEND <parentId> <type> [<language>] :: <literal>
//
// A literal is a double-quoted string with Go escape rules or a bare word.
// Every failure is a *errors.SyntaxError.
func Parse(text string) (Command, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &errors.SyntaxError{Message: "empty command"}
	}

	node, err := uclParser.ParseString("", text)
	if err != nil {
		if se := missingEditID(text); se != nil {
			se.Err = err
			return nil, se
		}
		return nil, syntaxErrorFrom(text, err)
	}

	switch {
	case node.Edit != nil:
		return buildEdit(node.Edit)
	case node.Append != nil:
		return buildAppend(node.Append)
	default:
		return nil, &errors.SyntaxError{Pos: node.Pos.Column, Message: "unknown command"}
	}
}

func buildEdit(n *editNode) (Command, error) {
	if !pathPattern.MatchString(n.Path.Value) {
		return nil, &errors.SyntaxError{
			Token:   n.Path.Value,
			Pos:     n.Path.Pos.Column,
			Message: "malformed path",
		}
	}
	value, err := n.Value.decode()
	if err != nil {
		return nil, err
	}
	return &EditCommand{
		BlockID: document.BlockID(n.BlockID),
		Path:    n.Path.Value,
		Value:   value,
	}, nil
}

func buildAppend(n *appendNode) (Command, error) {
	value, err := n.Value.decode()
	if err != nil {
		return nil, err
	}
	cmd := &AppendCommand{
		ParentID:    document.BlockID(n.ParentID),
		ContentType: n.ContentType,
		Value:       value,
	}
	if n.Language != nil {
		cmd.Language = *n.Language
	}
	return cmd, nil
}

func (l *literalNode) decode() (string, error) {
	if l.Bare != nil {
		return *l.Bare, nil
	}
	if l.Quoted == nil {
		return "", &errors.SyntaxError{Pos: l.Pos.Column, Message: "missing value"}
	}
	s, err := strconv.Unquote(*l.Quoted)
	if err != nil {
		return "", &errors.SyntaxError{
			Token:   *l.Quoted,
			Pos:     l.Pos.Column,
			Message: "invalid string literal",
			Err:     err,
		}
	}
	return s, nil
}

// syntaxErrorFrom converts a participle or lexer failure into a SyntaxError
// carrying the 1-based column of the offending token.
func syntaxErrorFrom(text string, err error) *errors.SyntaxError {
	se := &errors.SyntaxError{Message: err.Error(), Err: err}

	var perr participle.Error
	if !errors.As(err, &perr) {
		return se
	}
	pos := perr.Position()
	se.Pos = pos.Column
	se.Message = perr.Message()

	var unexpected *participle.UnexpectedTokenError
	if errors.As(err, &unexpected) {
		tok := unexpected.Unexpected
		se.Token = tok.Value
		switch {
		case tok.EOF():
			se.Message = "unexpected end of command"
		case tok.Pos.Offset == leadingOffset(text):
			se.Message = "unknown command"
		default:
			se.Message = "unexpected token"
		}
		if i := strings.Index(perr.Message(), "(expected"); i >= 0 {
			se.Message += " " + perr.Message()[i:]
		}
		return se
	}

	// Lexer failures: a character no token rule accepts.
	if pos.Offset >= 0 && pos.Offset < len(text) {
		rest := text[pos.Offset:]
		if strings.HasPrefix(rest, `"`) {
			se.Message = "unterminated string"
		} else {
			se.Message = "unexpected character"
		}
		se.Token = firstRune(rest)
	}
	return se
}

// missingEditID recognises "EDIT SET <path> ..." where the grammar took SET
// as the block id. It is only consulted after a parse failure, since
// "EDIT SET SET ..." is a valid edit of a block named SET.
func missingEditID(text string) *errors.SyntaxError {
	fields := strings.Fields(text)
	if len(fields) < 2 || fields[0] != "EDIT" || fields[1] != "SET" {
		return nil
	}
	if len(fields) > 2 && fields[2] == "SET" {
		return nil
	}
	start := leadingOffset(text) + len("EDIT")
	off := start + strings.Index(text[start:], "SET")
	return &errors.SyntaxError{
		Token:   "SET",
		Pos:     utf8.RuneCountInString(text[:off]) + 1,
		Message: "missing block id",
	}
}

// leadingOffset is the byte offset of the first non-space character.
func leadingOffset(text string) int {
	return len(text) - len(strings.TrimLeft(text, " \t\r\n"))
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
