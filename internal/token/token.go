// Package token defines the lexical token kinds for the Droe language.
package token

import "fmt"

// Position identifies a location in Droe source text.
type Position struct {
	File   string
	Line   int // 1-based
	Column int // 1-based, counted in runes
	Offset int // byte offset into the file
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Kind is a closed enumeration of token kinds.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF
	COMMENT

	// Literal classes
	literalBegin
	IDENT
	INT
	DECIMAL
	STRING
	// PATH is a whole endpoint path segment such as "/users/:id", scanned as
	// a single token by the lexer rather than split on '/' and ':'.
	PATH
	// ISTRING_BEGIN/ISTRING_END bracket an interpolated string literal; STRING
	// tokens between them are literal chunks, and INTERP_START/INTERP_END
	// bracket a sub-token-stream for each "[...]" expression chunk.
	ISTRING_BEGIN
	ISTRING_END
	INTERP_START
	INTERP_END
	literalEnd

	// Single-word keywords
	keywordBegin
	SET
	TO
	WHICH
	IS
	ARE
	DISPLAY
	WHEN
	THEN
	OTHERWISE
	WHILE
	FOR
	EACH
	IN
	ACTION
	TASK
	WITH
	GIVES
	GIVE
	MODULE
	DATA
	SERVE
	RESPOND
	CALL
	METHOD
	USING
	HEADERS
	INTO
	DB
	CREATE
	FIND
	ALL
	UPDATE
	DELETE
	WHERE
	SCREEN
	FRAGMENT
	SLOT
	LAYOUT
	TITLE
	TEXT
	INPUT
	BUTTON
	TRUE
	FALSE
	NOT
	AND
	OR
	PLUS
	MINUS
	TIMES
	FORMAT
	AS
	FROM
	INCLUDE
	LIST
	GROUP
	OF
	EQUALS
	EMPTY
	LIST_TYPE // keyword "list" used as a collection type marker -- alias of LIST
	keywordEnd

	// Multi-word keywords, scanned longest-match-first by the lexer.
	multiWordBegin
	IS_GREATER_THAN_OR_EQUAL_TO
	IS_LESS_THAN_OR_EQUAL_TO
	IS_GREATER_THAN
	IS_LESS_THAN
	IS_NOT
	DOES_NOT_EQUAL
	FOR_EACH
	END_WHEN
	END_WHILE
	END_FOR
	END_ACTION
	END_MODULE
	END_DATA
	END_FRAGMENT
	END_SCREEN
	END_SLOT
	END_SERVE
	END_HEADERS
	DIVIDED_BY
	OTHERWISE_WHEN
	FIND_ALL
	IS_EMPTY
	IS_NOT_EMPTY
	multiWordEnd

	// Punctuation
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	DOT
	COMMA
	COLON
	AT
	NEWLINE
)

var names = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	COMMENT: "COMMENT",

	IDENT:         "IDENT",
	INT:           "INT",
	DECIMAL:       "DECIMAL",
	STRING:        "STRING",
	PATH:          "PATH",
	ISTRING_BEGIN: "ISTRING_BEGIN",
	ISTRING_END:   "ISTRING_END",
	INTERP_START:  "INTERP_START",
	INTERP_END:    "INTERP_END",

	SET:       "set",
	TO:        "to",
	WHICH:     "which",
	IS:        "is",
	ARE:       "are",
	DISPLAY:   "display",
	WHEN:      "when",
	THEN:      "then",
	OTHERWISE: "otherwise",
	WHILE:     "while",
	FOR:       "for",
	EACH:      "each",
	IN:        "in",
	ACTION:    "action",
	TASK:      "task",
	WITH:      "with",
	GIVES:     "gives",
	GIVE:      "give",
	MODULE:    "module",
	DATA:      "data",
	SERVE:     "serve",
	RESPOND:   "respond",
	CALL:      "call",
	METHOD:    "method",
	USING:     "using",
	HEADERS:   "headers",
	INTO:      "into",
	DB:        "db",
	CREATE:    "create",
	FIND:      "find",
	ALL:       "all",
	UPDATE:    "update",
	DELETE:    "delete",
	WHERE:     "where",
	SCREEN:    "screen",
	FRAGMENT:  "fragment",
	SLOT:      "slot",
	LAYOUT:    "layout",
	TITLE:     "title",
	TEXT:      "text",
	INPUT:     "input",
	BUTTON:    "button",
	TRUE:      "true",
	FALSE:     "false",
	NOT:       "not",
	AND:       "and",
	OR:        "or",
	PLUS:      "plus",
	MINUS:     "minus",
	TIMES:     "times",
	FORMAT:    "format",
	AS:        "as",
	FROM:      "from",
	INCLUDE:   "include",
	LIST:      "list",
	GROUP:     "group",
	OF:        "of",
	EQUALS:    "equals",
	EMPTY:     "empty",

	IS_GREATER_THAN_OR_EQUAL_TO: "is greater than or equal to",
	IS_LESS_THAN_OR_EQUAL_TO:    "is less than or equal to",
	IS_GREATER_THAN:             "is greater than",
	IS_LESS_THAN:                "is less than",
	IS_NOT:                      "is not",
	DOES_NOT_EQUAL:              "does not equal",
	FOR_EACH:                    "for each",
	END_WHEN:                    "end when",
	END_WHILE:                   "end while",
	END_FOR:                     "end for",
	END_ACTION:                  "end action",
	END_MODULE:                 "end module",
	END_DATA:                    "end data",
	END_FRAGMENT:                "end fragment",
	END_SCREEN:                  "end screen",
	END_SLOT:                    "end slot",
	END_SERVE:                   "end serve",
	END_HEADERS:                 "end headers",
	DIVIDED_BY:                  "divided by",
	OTHERWISE_WHEN:              "otherwise when",
	FIND_ALL:                    "find all",
	IS_EMPTY:                    "is empty",
	IS_NOT_EMPTY:                "is not empty",

	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	DOT:      ".",
	COMMA:    ",",
	COLON:    ":",
	AT:       "@",
	NEWLINE:  "NEWLINE",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(names) && names[k] != "" {
		return names[k]
	}
	return "UNKNOWN"
}

// IsLiteral reports whether k is one of the literal classes.
func (k Kind) IsLiteral() bool { return k > literalBegin && k < literalEnd }

// IsKeyword reports whether k is a single- or multi-word keyword.
func (k Kind) IsKeyword() bool {
	return (k > keywordBegin && k < keywordEnd) || (k > multiWordBegin && k < multiWordEnd)
}

// Keywords maps the single-word spelling to its Kind. Multi-word keywords are
// recognized by the lexer's longest-match scan, not through this table.
var Keywords = map[string]Kind{
	"set":       SET,
	"to":        TO,
	"which":     WHICH,
	"is":        IS,
	"are":       ARE,
	"display":   DISPLAY,
	"when":      WHEN,
	"then":      THEN,
	"otherwise": OTHERWISE,
	"while":     WHILE,
	"for":       FOR,
	"each":      EACH,
	"in":        IN,
	"action":    ACTION,
	"task":      TASK,
	"with":      WITH,
	"gives":     GIVES,
	"give":      GIVE,
	"module":    MODULE,
	"data":      DATA,
	"serve":     SERVE,
	"respond":   RESPOND,
	"call":      CALL,
	"method":    METHOD,
	"using":     USING,
	"headers":   HEADERS,
	"into":      INTO,
	"db":        DB,
	"create":    CREATE,
	"find":      FIND,
	"all":       ALL,
	"update":    UPDATE,
	"delete":    DELETE,
	"where":     WHERE,
	"screen":    SCREEN,
	"fragment":  FRAGMENT,
	"slot":      SLOT,
	"layout":    LAYOUT,
	"title":     TITLE,
	"text":      TEXT,
	"input":     INPUT,
	"button":    BUTTON,
	"true":      TRUE,
	"false":     FALSE,
	"not":       NOT,
	"and":       AND,
	"or":        OR,
	"plus":      PLUS,
	"minus":     MINUS,
	"times":     TIMES,
	"format":    FORMAT,
	"as":        AS,
	"from":      FROM,
	"include":   INCLUDE,
	"list":      LIST,
	"group":     GROUP,
	"of":        OF,
	"equals":    EQUALS,
	"empty":     EMPTY,
}

// MultiWordKeywords lists every multi-word keyword as its space-separated
// words, longest (by word count) first. The lexer
// tries these before falling back to single-word keyword/identifier scanning.
var MultiWordKeywords = []struct {
	Words []string
	Kind  Kind
}{
	{[]string{"is", "greater", "than", "or", "equal", "to"}, IS_GREATER_THAN_OR_EQUAL_TO},
	{[]string{"is", "less", "than", "or", "equal", "to"}, IS_LESS_THAN_OR_EQUAL_TO},
	{[]string{"does", "not", "equal"}, DOES_NOT_EQUAL},
	{[]string{"is", "greater", "than"}, IS_GREATER_THAN},
	{[]string{"is", "less", "than"}, IS_LESS_THAN},
	{[]string{"is", "not", "empty"}, IS_NOT_EMPTY},
	{[]string{"is", "not"}, IS_NOT},
	{[]string{"is", "empty"}, IS_EMPTY},
	{[]string{"for", "each"}, FOR_EACH},
	{[]string{"end", "when"}, END_WHEN},
	{[]string{"end", "while"}, END_WHILE},
	{[]string{"end", "for"}, END_FOR},
	{[]string{"end", "action"}, END_ACTION},
	{[]string{"end", "module"}, END_MODULE},
	{[]string{"end", "data"}, END_DATA},
	{[]string{"end", "fragment"}, END_FRAGMENT},
	{[]string{"end", "screen"}, END_SCREEN},
	{[]string{"end", "slot"}, END_SLOT},
	{[]string{"end", "serve"}, END_SERVE},
	{[]string{"end", "headers"}, END_HEADERS},
	{[]string{"divided", "by"}, DIVIDED_BY},
	{[]string{"otherwise", "when"}, OTHERWISE_WHEN},
	{[]string{"find", "all"}, FIND_ALL},
}

// Token is a single lexeme with its source position.
type Token struct {
	Kind    Kind
	Literal string
	Pos     Position
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Literal, t.Pos)
}
