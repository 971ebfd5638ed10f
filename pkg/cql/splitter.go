package cql

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// cqlLexer tokenizes CQL scripts just far enough to find statement
// boundaries. Rules are ordered; comments and string literals must win
// over the punctuation catch-all so that terminators inside them are
// swallowed whole. Single quotes escape by doubling per the CQL grammar.
var cqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "LineComment", Pattern: `(?:--|//)[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"`},
	{Name: "Terminator", Pattern: `;`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Text", Pattern: `[^;'"/\-\s]+`},
	{Name: "Symbol", Pattern: `.`},
})

var (
	symLineComment  = cqlLexer.Symbols()["LineComment"]
	symBlockComment = cqlLexer.Symbols()["BlockComment"]
	symTerminator   = cqlLexer.Symbols()["Terminator"]
)

// Split cuts a CQL script into an ordered sequence of executable
// statements. Terminators inside string literals, quoted identifiers and
// comments are ignored. Comments are stripped from the output, and
// statements that are empty after trimming are dropped entirely, so a
// script containing only comments and whitespace yields a nil slice.
func Split(script string) ([]string, error) {
	lx, err := cqlLexer.Lex("", strings.NewReader(script))
	if err != nil {
		return nil, errors.Wrap(err, "failed to lex script")
	}

	tokens, err := lexer.ConsumeAll(lx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to tokenize script")
	}

	var (
		statements []string
		buf        strings.Builder
	)

	flush := func() {
		if stmt := strings.TrimSpace(buf.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		buf.Reset()
	}

	for _, tok := range tokens {
		switch {
		case tok.EOF():
			// ConsumeAll appends a trailing EOF token.
		case tok.Type == symTerminator:
			flush()
		case tok.Type == symLineComment || tok.Type == symBlockComment:
			// Keep neighbors apart when a comment sat between them.
			buf.WriteByte(' ')
		default:
			buf.WriteString(tok.Value)
		}
	}
	flush()

	return statements, nil
}
