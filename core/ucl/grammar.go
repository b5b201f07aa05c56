package ucl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// uclLexer tokenises a single UCL command. Keywords are ordinary Words and
// are matched by value in the grammar, so they stay case-sensitive.
var uclLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Sep", Pattern: `::|=`},
	{Name: "Word", Pattern: `[^\s"=:]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// commandNode is the grammar root.
//
//nolint:govet // participle grammar tags are not standard struct tags
type commandNode struct {
	Pos    lexer.Position
	Edit   *editNode   `  "EDIT" @@`
	Append *appendNode `| "APPEND" @@`
}

// editNode: EDIT <blockId> SET <path> = <literal>
//
//nolint:govet // participle grammar tags are not standard struct tags
type editNode struct {
	BlockID string       `@Word "SET"`
	Path    *pathNode    `@@ "="`
	Value   *literalNode `@@`
}

// appendNode: APPEND <parentId> <type> [<language>] :: <literal>
//
//nolint:govet // participle grammar tags are not standard struct tags
type appendNode struct {
	ParentID    string       `@Word`
	ContentType string       `@Word`
	Language    *string      `@Word?`
	Value       *literalNode `"::" @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type pathNode struct {
	Pos   lexer.Position
	Value string `@Word`
}

//nolint:govet // participle grammar tags are not standard struct tags
type literalNode struct {
	Pos    lexer.Position
	Quoted *string `  @String`
	Bare   *string `| @Word`
}

// uclParser is the participle parser for UCL commands.
var uclParser = participle.MustBuild[commandNode](
	participle.Lexer(uclLexer),
	participle.Elide("Whitespace"),
)
