// lexer.go — tokenizer for the textual IR grammar.
package stg

import (
	"fmt"
	"strconv"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota
	ILLEGAL

	// Punctuation
	LCURLY // "{"
	RCURLY // "}"
	COMMA  // ","
	SEMI   // ";"
	ASSIGN // "="
	ARROW  // "->"
	WILD   // "_"

	// Update flags
	FLAGU // "\u"
	FLAGN // "\n"

	// Literals & identifiers
	ID      // lowercase identifier (variable)
	CONID   // Uppercase identifier (constructor)
	PRIMOP  // "+#", "==#", "neg#", ...
	INTEGER // int64 literal

	// Keywords
	LET
	LETREC
	IN
	CASE
	OF
)

// Token is a lexical token with optional literal value.
type Token struct {
	Type    TokenType
	Lexeme  string      // raw text slice
	Literal interface{} // parsed value for INTEGER
	Line    int
	Col     int
}

var keywords = map[string]TokenType{
	"let":    LET,
	"letrec": LETREC,
	"in":     IN,
	"case":   CASE,
	"of":     OF,
}

// Lexer scans an IR source string into tokens.
type Lexer struct {
	src    string
	start  int // start index of current token
	cur    int // current index
	line   int // 1-based
	col    int // 0-based column within line
	tokens []Token

	// precise token start position
	tokStartLine int
	tokStartCol  int
}

// NewLexer creates a new lexer for the given source.
func NewLexer(src string) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
		col:  0,
	}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	return l.src[l.cur], true
}

func (l *Lexer) peekN(n int) (byte, bool) {
	idx := l.cur + n
	if idx >= len(l.src) {
		return 0, false
	}
	return l.src[idx], true
}

func (l *Lexer) advance() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch, true
}

func (l *Lexer) rewindToStart() {
	l.cur = l.start
	l.line = l.tokStartLine
	l.col = l.tokStartCol
}

func (l *Lexer) addToken(tt TokenType, lit interface{}) Token {
	lex := l.src[l.start:l.cur]
	tok := Token{
		Type:    tt,
		Lexeme:  lex,
		Literal: lit,
		Line:    l.tokStartLine,
		Col:     l.tokStartCol,
	}
	l.tokens = append(l.tokens, tok)
	l.start = l.cur
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.isAtEnd() {
		ch, _ := l.peek()
		switch ch {
		case ' ', '\r', '\n', '\t':
			l.advance()
			l.start = l.cur
		case '-':
			// "--" starts a line comment; a lone '-' belongs to a literal
			// or arrow and is handled by the token scanner.
			if b, ok := l.peekN(1); ok && b == '-' {
				for !l.isAtEnd() {
					c, _ := l.peek()
					if c == '\n' {
						break
					}
					l.advance()
				}
				l.start = l.cur
				continue
			}
			return
		default:
			return
		}
	}
}

// helpers

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isLower(b byte) bool { return (b >= 'a' && b <= 'z') || b == '_' }
func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
func isAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') ||
		b == '_' || b == '\''
}

// ----- errors -----

type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("LEXICAL ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

func (l *Lexer) err(msg string) error {
	return &LexError{Line: l.line, Col: l.col, Msg: msg}
}

// ----- scanners -----

func (l *Lexer) scanInteger() (int64, error) {
	if b, ok := l.peek(); ok && b == '-' {
		l.advance()
	}
	for {
		b, ok := l.peek()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
	}
	lex := l.src[l.start:l.cur]
	n, err := strconv.ParseInt(lex, 10, 64)
	if err != nil {
		return 0, l.err(fmt.Sprintf("invalid integer literal: %s", lex))
	}
	return n, nil
}

// scanIdentifier consumes an identifier body (first byte already validated)
// and any trailing '#' marking a primitive operation name.
func (l *Lexer) scanIdentifier() (string, bool) {
	for {
		b, ok := l.peek()
		if !ok || !isAlphaNum(b) {
			break
		}
		l.advance()
	}
	if b, ok := l.peek(); ok && b == '#' {
		l.advance()
		return l.src[l.start:l.cur], true
	}
	return l.src[l.start:l.cur], false
}

// scanSymbolicPrim probes for an operator head followed by '#'
// ("+#", "==#", "<=#", ...). It consumes nothing on failure.
func (l *Lexer) scanSymbolicPrim() (string, bool) {
	n := 0
	for n < 3 {
		b, ok := l.peekN(n)
		if !ok {
			break
		}
		switch b {
		case '+', '-', '*', '/', '%', '=', '<', '>':
			n++
			continue
		}
		break
	}
	if n == 0 || n > 2 {
		return "", false
	}
	if b, ok := l.peekN(n); !ok || b != '#' {
		return "", false
	}
	for i := 0; i <= n; i++ {
		l.advance()
	}
	return l.src[l.start:l.cur], true
}

func (l *Lexer) scanToken() (Token, error) {
	l.skipWhitespaceAndComments()
	l.tokStartLine = l.line
	l.tokStartCol = l.col
	l.start = l.cur

	if l.isAtEnd() {
		return l.addToken(EOF, nil), nil
	}

	// Symbolic primops must be probed before single-char punctuation so
	// heads like "-#" and "==#" are not split apart.
	if op, ok := l.scanSymbolicPrim(); ok {
		return l.addToken(PRIMOP, op), nil
	}

	ch, _ := l.advance()

	switch ch {
	case '{':
		return l.addToken(LCURLY, "{"), nil
	case '}':
		return l.addToken(RCURLY, "}"), nil
	case ',':
		return l.addToken(COMMA, ","), nil
	case ';':
		return l.addToken(SEMI, ";"), nil
	case '=':
		return l.addToken(ASSIGN, "="), nil
	case '\\':
		b, ok := l.peek()
		if ok && b == 'u' {
			l.advance()
			return l.addToken(FLAGU, `\u`), nil
		}
		if ok && b == 'n' {
			l.advance()
			return l.addToken(FLAGN, `\n`), nil
		}
		return Token{}, l.err(`expected update flag \u or \n after '\'`)
	case '-':
		if b, ok := l.peek(); ok && b == '>' {
			l.advance()
			return l.addToken(ARROW, "->"), nil
		}
		if b, ok := l.peek(); ok && isDigit(b) {
			l.rewindToStart()
			n, err := l.scanInteger()
			if err != nil {
				return Token{}, err
			}
			return l.addToken(INTEGER, n), nil
		}
		return Token{}, l.err("unexpected '-' (negative literal or '->' expected)")
	}

	if isDigit(ch) {
		l.rewindToStart()
		n, err := l.scanInteger()
		if err != nil {
			return Token{}, err
		}
		return l.addToken(INTEGER, n), nil
	}

	if isLower(ch) {
		l.rewindToStart()
		lex, prim := l.scanIdentifier()
		if prim {
			return l.addToken(PRIMOP, lex), nil
		}
		if lex == "_" {
			return l.addToken(WILD, lex), nil
		}
		if tt, ok := keywords[lex]; ok {
			return l.addToken(tt, lex), nil
		}
		return l.addToken(ID, lex), nil
	}

	if isUpper(ch) {
		l.rewindToStart()
		lex, prim := l.scanIdentifier()
		if prim {
			return Token{}, l.err(fmt.Sprintf("primitive names are lowercase: %s", lex))
		}
		return l.addToken(CONID, lex), nil
	}

	return Token{}, l.err(fmt.Sprintf("unexpected character: %q", ch))
}

// Scan tokenizes the entire source and returns tokens (EOF included).
func (l *Lexer) Scan() ([]Token, error) {
	for {
		tok, err := l.scanToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}
