package ucl

import (
	"strconv"
	"strings"

	"github.com/FocuswithJustin/ucp/core/document"
)

// Verbs recognised by the parser.
const (
	VerbEdit   = "EDIT"
	VerbAppend = "APPEND"
)

// Command is a parsed UCL command. The set of implementations is closed:
// *EditCommand and *AppendCommand.
type Command interface {
	// Verb returns the command keyword.
	Verb() string
	// String renders the command in canonical form. Parsing the result
	// yields an equal command.
	String() string

	isCommand()
}

// EditCommand replaces a content field of an existing block.
type EditCommand struct {
	BlockID document.BlockID
	Path    string
	Value   string
}

// AppendCommand adds a new block as the last child of ParentID.
// Language is only meaningful for code blocks.
type AppendCommand struct {
	ParentID    document.BlockID
	ContentType string
	Language    string
	Value       string
}

func (*EditCommand) isCommand()   {}
func (*AppendCommand) isCommand() {}

// Verb returns "EDIT".
func (c *EditCommand) Verb() string { return VerbEdit }

// Verb returns "APPEND".
func (c *AppendCommand) Verb() string { return VerbAppend }

func (c *EditCommand) String() string {
	var sb strings.Builder
	sb.WriteString(VerbEdit)
	sb.WriteByte(' ')
	sb.WriteString(string(c.BlockID))
	sb.WriteString(" SET ")
	sb.WriteString(c.Path)
	sb.WriteString(" = ")
	sb.WriteString(strconv.Quote(c.Value))
	return sb.String()
}

func (c *AppendCommand) String() string {
	var sb strings.Builder
	sb.WriteString(VerbAppend)
	sb.WriteByte(' ')
	sb.WriteString(string(c.ParentID))
	sb.WriteByte(' ')
	sb.WriteString(c.ContentType)
	if c.Language != "" {
		sb.WriteByte(' ')
		sb.WriteString(c.Language)
	}
	sb.WriteString(" :: ")
	sb.WriteString(strconv.Quote(c.Value))
	return sb.String()
}
