// Package lexer tokenizes Droe source text into a stream of lexemes with
// source positions, per spec §4.1. Keyword matching is longest-match-first:
// multi-word operator keywords are scanned as single tokens before any
// single-word or identifier fallback.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/droe-lang/droe/internal/token"
)

// Error is a single lexical diagnostic.
type Error struct {
	Kind    string // e.g. "lex.overflow", "lex.unterminated_string", "lex.invalid_char"
	Message string
	Pos     token.Position
}

// stringFrame tracks the quote character of a string literal currently being
// scanned, so interpolation "[...]" chunks can restore it after they close.
type stringFrame struct {
	quote rune
}

// lexerState is the full restartable state of the scan position, used to
// backtrack when a speculative multi-word keyword match fails.
type lexerState struct {
	pos, readPos int
	line, col    int
	ch           rune
	chWidth      int
}

// Lexer scans Droe source text into tokens.
type Lexer struct {
	file   string
	input  string
	errors []Error

	lexerState

	stringStack []stringFrame
	interpDepth []int // bracket nesting depth for the innermost open interpolation
	pendingQuote rune  // quote char to resume once the current interpolation closes

	buffered []token.Token // one-token lookahead slot for split string chunks
}

// New creates a Lexer over input, attributing positions to file.
func New(file, input string) *Lexer {
	if len(input) >= 3 && input[0] == 0xEF && input[1] == 0xBB && input[2] == 0xBF {
		input = input[3:]
	}
	l := &Lexer{file: file, input: input}
	l.line = 1
	l.readChar()
	return l
}

// Errors returns every lexical diagnostic accumulated so far.
func (l *Lexer) Errors() []Error { return l.errors }

func (l *Lexer) addError(kind, msg string, pos token.Position) {
	l.errors = append(l.errors, Error{Kind: kind, Message: msg, Pos: pos})
}

func (l *Lexer) snapshot() lexerState { return l.lexerState }
func (l *Lexer) restore(s lexerState) { l.lexerState = s }

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.chWidth = 0
		l.pos = l.readPos
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPos:])
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.pos = l.readPos
	l.ch = r
	l.chWidth = w
	l.readPos += w
	l.col++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) pos0() token.Position {
	return token.Position{File: l.file, Line: l.line, Column: l.col, Offset: l.pos}
}

// NextToken returns the next lexeme, skipping whitespace and comments.
func (l *Lexer) NextToken() token.Token {
	if len(l.buffered) > 0 {
		t := l.buffered[0]
		l.buffered = l.buffered[1:]
		return t
	}
	if len(l.stringStack) > 0 {
		return l.scanStringChunk()
	}
	l.skipSpacesAndComments()

	pos := l.pos0()

	switch {
	case l.ch == 0:
		return token.Token{Kind: token.EOF, Literal: "", Pos: pos}
	case l.ch == '\n':
		l.consumeNewlines()
		return token.Token{Kind: token.NEWLINE, Literal: "\n", Pos: pos}
	case l.ch == '\'' || l.ch == '"':
		return l.beginString()
	case isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())):
		return l.scanNumber()
	case isIdentStart(l.ch):
		return l.scanWord()
	case l.ch == '/':
		return l.scanPath()
	case l.ch == '[':
		if len(l.interpDepth) > 0 {
			l.interpDepth[len(l.interpDepth)-1]++
		}
		l.readChar()
		return token.Token{Kind: token.LBRACKET, Literal: "[", Pos: pos}
	case l.ch == ']':
		if len(l.interpDepth) > 0 {
			top := len(l.interpDepth) - 1
			l.interpDepth[top]--
			if l.interpDepth[top] == 0 {
				l.interpDepth = l.interpDepth[:top]
				l.readChar()
				l.stringStack = append(l.stringStack, stringFrame{quote: l.pendingQuote})
				return token.Token{Kind: token.INTERP_END, Literal: "]", Pos: pos}
			}
		}
		l.readChar()
		return token.Token{Kind: token.RBRACKET, Literal: "]", Pos: pos}
	case l.ch == '(':
		l.readChar()
		return token.Token{Kind: token.LPAREN, Literal: "(", Pos: pos}
	case l.ch == ')':
		l.readChar()
		return token.Token{Kind: token.RPAREN, Literal: ")", Pos: pos}
	case l.ch == '.':
		l.readChar()
		return token.Token{Kind: token.DOT, Literal: ".", Pos: pos}
	case l.ch == ',':
		l.readChar()
		return token.Token{Kind: token.COMMA, Literal: ",", Pos: pos}
	case l.ch == ':':
		l.readChar()
		return token.Token{Kind: token.COLON, Literal: ":", Pos: pos}
	case l.ch == '@':
		l.readChar()
		return token.Token{Kind: token.AT, Literal: "@", Pos: pos}
	default:
		ch := l.ch
		l.addError("lex.invalid_char", "unexpected character '"+string(ch)+"'", pos)
		l.readChar()
		return token.Token{Kind: token.ILLEGAL, Literal: string(ch), Pos: pos}
	}
}

// consumeNewlines collapses one or more blank/indented lines into a single
// NEWLINE token, since only the presence of a line break is significant.
func (l *Lexer) consumeNewlines() {
	for l.ch == '\n' || l.ch == '\r' || isSpace(l.ch) {
		l.readChar()
	}
}

func (l *Lexer) skipSpacesAndComments() {
	for {
		switch {
		case isSpace(l.ch) || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') && l.ch != 0 {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}
func isIdentStart(r rune) bool { return isLetter(r) || r == '_' }
func isIdentPart(r rune) bool  { return isLetter(r) || isDigit(r) || r == '_' }
func isPathChar(r rune) bool   { return r == '/' || r == ':' || r == '-' || r == '.' || isIdentPart(r) }

// scanPath reads a whole endpoint path such as "/users/:id" as one token, per
// spec §6.1's serve syntax. "/" only reaches here once skipSpacesAndComments
// has ruled out "//" and "/*" comments, so a bare "/" always starts a path.
func (l *Lexer) scanPath() token.Token {
	pos := l.pos0()
	var sb strings.Builder
	for isPathChar(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return token.Token{Kind: token.PATH, Literal: sb.String(), Pos: pos}
}

// scanNumber reads an integer or decimal literal per spec §4.1: a decimal
// literal has exactly one '.' with digits on both sides; overflow of int32,
// or of the ×100-scaled int64 decimal representation, is reported as
// lex.overflow but scanning continues so later errors still surface.
func (l *Lexer) scanNumber() token.Token {
	pos := l.pos0()
	var sb strings.Builder
	if l.ch == '-' {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	for isDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	isDecimal := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isDecimal = true
		sb.WriteRune(l.ch)
		l.readChar()
		for isDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
	lit := sb.String()
	if isDecimal {
		whole, frac, _ := strings.Cut(lit, ".")
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		scaled := whole + frac
		if _, err := strconv.ParseInt(scaled, 10, 64); err != nil {
			l.addError("lex.overflow", "decimal literal out of range: "+lit, pos)
		}
		return token.Token{Kind: token.DECIMAL, Literal: lit, Pos: pos}
	}
	if _, err := strconv.ParseInt(lit, 10, 32); err != nil {
		l.addError("lex.overflow", "int literal out of range: "+lit, pos)
	}
	return token.Token{Kind: token.INT, Literal: lit, Pos: pos}
}

// scanWord reads a maximal run of identifier characters, then attempts to
// extend it into a multi-word keyword by greedily matching subsequent
// single-space-separated words before falling back to single-word keyword
// or plain identifier classification.
func (l *Lexer) scanWord() token.Token {
	pos := l.pos0()
	first := l.readRawWord()

	if candidates := multiWordStartingWith(first); len(candidates) > 0 {
		if kind, words, matched := l.tryMultiWord(candidates, first); matched {
			return token.Token{Kind: kind, Literal: strings.Join(words, " "), Pos: pos}
		}
	}

	lower := strings.ToLower(first)
	if kind, ok := token.Keywords[lower]; ok {
		return token.Token{Kind: kind, Literal: first, Pos: pos}
	}
	return token.Token{Kind: token.IDENT, Literal: first, Pos: pos}
}

func (l *Lexer) readRawWord() string {
	var sb strings.Builder
	for isIdentPart(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return sb.String()
}

func multiWordStartingWith(word string) []int {
	lower := strings.ToLower(word)
	var idx []int
	for i, kw := range token.MultiWordKeywords {
		if kw.Words[0] == lower {
			idx = append(idx, i)
		}
	}
	return idx
}

// tryMultiWord attempts, longest-match-first, to extend `first` into one of
// the candidate multi-word keywords by peeking ahead over single spaces. On
// success the lexer is left positioned just past the matched words; on
// failure the lexer is restored to just past `first`.
func (l *Lexer) tryMultiWord(candidates []int, first string) (token.Kind, []string, bool) {
	afterFirst := l.snapshot()

	bestLen := 0
	var bestKind token.Kind
	var bestWords []string
	var bestState lexerState

	for _, ci := range candidates {
		kw := token.MultiWordKeywords[ci]
		l.restore(afterFirst)

		words := []string{first}
		ok := true
		for _, want := range kw.Words[1:] {
			if l.ch != ' ' {
				ok = false
				break
			}
			l.readChar()
			got := l.readRawWord()
			if strings.ToLower(got) != want {
				ok = false
				break
			}
			words = append(words, got)
		}
		if ok && len(kw.Words) > bestLen {
			bestLen = len(kw.Words)
			bestKind = kw.Kind
			bestWords = words
			bestState = l.snapshot()
		}
	}

	if bestLen == 0 {
		l.restore(afterFirst)
		return 0, nil, false
	}
	l.restore(bestState)
	return bestKind, bestWords, true
}

// beginString starts scanning a (possibly interpolated) string literal.
func (l *Lexer) beginString() token.Token {
	pos := l.pos0()
	quote := l.ch
	l.readChar()
	l.stringStack = append(l.stringStack, stringFrame{quote: quote})
	return token.Token{Kind: token.ISTRING_BEGIN, Literal: string(quote), Pos: pos}
}

// scanStringChunk consumes literal text up to the closing quote or the next
// "[" interpolation marker, emitting the chunk and buffering its terminator
// (ISTRING_END or INTERP_START) for the following NextToken call.
func (l *Lexer) scanStringChunk() token.Token {
	frame := l.stringStack[len(l.stringStack)-1]
	pos := l.pos0()
	var sb strings.Builder

	for {
		if l.ch == 0 {
			l.addError("lex.unterminated_string", "unterminated string literal", pos)
			l.stringStack = l.stringStack[:len(l.stringStack)-1]
			return token.Token{Kind: token.STRING, Literal: sb.String(), Pos: pos}
		}
		if l.ch == frame.quote {
			l.readChar()
			l.stringStack = l.stringStack[:len(l.stringStack)-1]
			endPos := l.pos0()
			if sb.Len() == 0 {
				return token.Token{Kind: token.ISTRING_END, Literal: "", Pos: pos}
			}
			l.buffered = append(l.buffered, token.Token{Kind: token.ISTRING_END, Literal: "", Pos: endPos})
			return token.Token{Kind: token.STRING, Literal: sb.String(), Pos: pos}
		}
		if l.ch == '[' {
			l.pendingQuote = frame.quote
			l.stringStack = l.stringStack[:len(l.stringStack)-1]
			l.interpDepth = append(l.interpDepth, 1)
			startPos := l.pos0()
			l.readChar()
			if sb.Len() == 0 {
				return token.Token{Kind: token.INTERP_START, Literal: "[", Pos: pos}
			}
			l.buffered = append(l.buffered, token.Token{Kind: token.INTERP_START, Literal: "[", Pos: startPos})
			return token.Token{Kind: token.STRING, Literal: sb.String(), Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '\'':
				sb.WriteByte('\'')
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
}
