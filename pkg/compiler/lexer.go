package compiler

import (
	"fmt"
	"strconv"
)

// MaxIntLiteral is the largest integer literal that fits a signed machine word.
const MaxIntLiteral = 32767

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"def":      DEF,
	"let":      LET,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
	"true":     TRUE,
	"false":    FALSE,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []byte
	pos  int // index of the next byte to consume
	line int // current 1-based source line
	col  int // current 1-based source column
	done bool
}

// NewLexer returns a Lexer positioned at the start of src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: []byte(src), line: 1, col: 1}
}

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the byte one position ahead of the current position.
func (l *Lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one byte and returns it.
func (l *Lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) here() Pos { return Pos{Line: l.line, Col: l.col} }

func isSpace(c byte) bool  { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

// skipLineComment discards everything from '#' to end-of-line.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// scanIdent collects a full identifier or keyword token.
// The first character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	pos := l.here()
	start := l.pos
	for l.pos < len(l.src) && (isLetter(l.peek()) || isDigit(l.peek())) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Pos: pos}
}

// scanInt collects a maximal run of decimal digits.
func (l *Lexer) scanInt() (Token, error) {
	pos := l.here()
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	v, err := strconv.Atoi(lexeme)
	if err != nil || v > MaxIntLiteral {
		return Token{}, &LexError{Pos: pos, Msg: fmt.Sprintf("integer literal %s out of range (max %d)", lexeme, MaxIntLiteral)}
	}
	return Token{Type: INTEGER, Lexeme: lexeme, Pos: pos}, nil
}

// Next skips whitespace and comments and returns the next Token. Once the
// EOF token has been returned, every further call returns EOF again.
func (l *Lexer) Next() (Token, error) {
	for {
		for l.pos < len(l.src) && isSpace(l.peek()) {
			l.advance()
		}
		if l.peek() == '#' {
			l.skipLineComment()
			continue
		}
		break
	}

	pos := l.here()
	if l.pos >= len(l.src) {
		l.done = true
		return Token{Type: EOF, Pos: pos}, nil
	}

	ch := l.peek()
	if isLetter(ch) {
		return l.scanIdent(), nil
	}
	if isDigit(ch) {
		return l.scanInt()
	}

	// Two-character operators are matched before their one-character prefixes.
	two := func(second byte, long, short TokenType) Token {
		if l.peek() == second {
			l.advance()
			return Token{long, tokenText[long], pos}
		}
		return Token{short, tokenText[short], pos}
	}

	l.advance() // consume the character before the switch
	switch ch {
	case '{':
		return Token{LBRACE, "{", pos}, nil
	case '}':
		return Token{RBRACE, "}", pos}, nil
	case '(':
		return Token{LPAREN, "(", pos}, nil
	case ')':
		return Token{RPAREN, ")", pos}, nil
	case ';':
		return Token{SEMICOLON, ";", pos}, nil
	case ',':
		return Token{COMMA, ",", pos}, nil
	case ':':
		return Token{COLON, ":", pos}, nil
	case '+':
		return Token{PLUS, "+", pos}, nil
	case '-':
		return Token{MINUS, "-", pos}, nil
	case '*':
		return Token{STAR, "*", pos}, nil
	case '/':
		return Token{SLASH, "/", pos}, nil
	case '=':
		return two('=', EQUALS, ASSIGN), nil
	case '!':
		return two('=', NOT_EQ, NOT), nil
	case '<':
		return two('=', LESS_EQ, LESS), nil
	case '>':
		return two('=', GREATER_EQ, GREATER), nil
	case '&':
		if l.peek() == '&' {
			l.advance()
			return Token{AND_LOGICAL, "&&", pos}, nil
		}
	case '|':
		if l.peek() == '|' {
			l.advance()
			return Token{OR_LOGICAL, "||", pos}, nil
		}
	}
	return Token{}, &LexError{Pos: pos, Msg: fmt.Sprintf("unexpected character %q", ch)}
}

// Done reports whether the EOF token has been produced.
func (l *Lexer) Done() bool { return l.done }

// Lex tokenises src and returns all tokens including the final EOF token.
// On the first illegal character it returns a nil slice and a *LexError.
func Lex(src string) ([]Token, error) {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
