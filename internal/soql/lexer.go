// Package soql does tolerant lexical scanning of query text. It is not a
// parser: it finds the projected fields, the source object and the limit well
// enough to shape results, and gives up quietly on anything it cannot read.
package soql

import (
	"unicode"
)

// TokenType represents the type of a lexer token.
type TokenType int

const (
	TokenEOF    TokenType = iota
	TokenIdent            // identifiers, keywords, dotted paths and numbers
	TokenString           // 'quoted literal'
	TokenLParen           // (
	TokenRParen           // )
	TokenComma            // ,
	TokenOther            // operators and anything else
)

// Token represents a lexer token. Pos and End are byte offsets into the input.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
	End   int
	Depth int // parenthesis depth the token sits at
}

// Lexer tokenizes query text.
type Lexer struct {
	input string
	pos   int
	depth int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos, End: l.pos, Depth: l.depth}
	}

	start := l.pos
	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		tok := Token{Type: TokenLParen, Value: "(", Pos: start, End: l.pos, Depth: l.depth}
		l.depth++
		return tok
	case ')':
		l.pos++
		l.depth--
		return Token{Type: TokenRParen, Value: ")", Pos: start, End: l.pos, Depth: l.depth}
	case ',':
		l.pos++
		return Token{Type: TokenComma, Value: ",", Pos: start, End: l.pos, Depth: l.depth}
	case '\'', '"':
		return l.scanString(ch)
	default:
		if isIdentChar(ch) {
			return l.scanIdent()
		}
		l.pos++
		return Token{Type: TokenOther, Value: string(ch), Pos: start, End: l.pos, Depth: l.depth}
	}
}

// Tokens returns every token up to (not including) EOF.
func Tokens(input string) []Token {
	l := NewLexer(input)
	var out []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF {
			return out
		}
		out = append(out, tok)
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) scanIdent() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: start, End: l.pos, Depth: l.depth}
}

// scanString consumes a quoted literal. Backslash escapes the next byte; an
// unterminated literal runs to the end of input.
func (l *Lexer) scanString(quote byte) Token {
	start := l.pos
	l.pos++
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\\' {
			l.pos += 2
			continue
		}
		l.pos++
		if c == quote {
			break
		}
	}
	if l.pos > len(l.input) {
		l.pos = len(l.input)
	}
	return Token{Type: TokenString, Value: l.input[start:l.pos], Pos: start, End: l.pos, Depth: l.depth}
}

func isIdentChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_' || ch == '.' || ch >= 0x80
}
