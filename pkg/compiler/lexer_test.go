package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []TokenType{EOF},
		},
		{
			name:  "Operators",
			input: "+ - * / && || ! = == != < <= > >=",
			expected: []TokenType{
				PLUS, MINUS, STAR, SLASH, AND_LOGICAL, OR_LOGICAL, NOT,
				ASSIGN, EQUALS, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ, EOF,
			},
		},
		{
			name:     "Punctuation",
			input:    "{ } ( ) ; , :",
			expected: []TokenType{LBRACE, RBRACE, LPAREN, RPAREN, SEMICOLON, COMMA, COLON, EOF},
		},
		{
			name:  "Keywords and Identifiers",
			input: "def let if else while return break continue true false name _under_score x1",
			expected: []TokenType{
				DEF, LET, IF, ELSE, WHILE, RETURN, BREAK, CONTINUE, TRUE, FALSE,
				IDENTIFIER, IDENTIFIER, IDENTIFIER, EOF,
			},
		},
		{
			name:     "No whitespace",
			input:    "x<=-1&&!y",
			expected: []TokenType{IDENTIFIER, LESS_EQ, MINUS, INTEGER, AND_LOGICAL, NOT, IDENTIFIER, EOF},
		},
		{
			name:     "Digits then letters",
			input:    "12abc",
			expected: []TokenType{INTEGER, IDENTIFIER, EOF},
		},
		{
			name:     "Type names are identifiers",
			input:    "int bool void",
			expected: []TokenType{IDENTIFIER, IDENTIFIER, IDENTIFIER, EOF},
		},
		{
			name:     "Comments",
			input:    "# leading\nlet x = 1 # trailing\n#",
			expected: []TokenType{LET, IDENTIFIER, ASSIGN, INTEGER, EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, types(tokens))
		})
	}
}

func TestLexPositions(t *testing.T) {
	tokens, err := Lex("def f() {\n  return 42\n}")
	require.NoError(t, err)

	expected := []Token{
		{Type: DEF, Lexeme: "def", Pos: Pos{1, 1}},
		{Type: IDENTIFIER, Lexeme: "f", Pos: Pos{1, 5}},
		{Type: LPAREN, Lexeme: "(", Pos: Pos{1, 6}},
		{Type: RPAREN, Lexeme: ")", Pos: Pos{1, 7}},
		{Type: LBRACE, Lexeme: "{", Pos: Pos{1, 9}},
		{Type: RETURN, Lexeme: "return", Pos: Pos{2, 3}},
		{Type: INTEGER, Lexeme: "42", Pos: Pos{2, 10}},
		{Type: RBRACE, Lexeme: "}", Pos: Pos{3, 1}},
		{Type: EOF, Lexeme: "", Pos: Pos{3, 2}},
	}
	assert.Equal(t, expected, tokens)
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		pos     Pos
		message string
	}{
		{"Illegal character", "let x = 1 @ 2", Pos{1, 11}, "unexpected character '@'"},
		{"Single ampersand", "a & b", Pos{1, 3}, "unexpected character '&'"},
		{"Single pipe", "a | b", Pos{1, 3}, "unexpected character '|'"},
		{"Literal too large", "32768", Pos{1, 1}, "out of range"},
		{"Huge literal", "99999999999999999999", Pos{1, 1}, "out of range"},
		{"Second line", "x\n  $", Pos{2, 3}, "unexpected character '$'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			require.Error(t, err)
			assert.Nil(t, tokens)

			var lexErr *LexError
			require.True(t, errors.As(err, &lexErr), "expected *LexError, got %T", err)
			assert.Equal(t, tt.pos, lexErr.Pos)
			assert.Contains(t, lexErr.Message(), tt.message)
			assert.Equal(t, KindLex, lexErr.Kind())
		})
	}
}

func TestLexMaxLiteral(t *testing.T) {
	tokens, err := Lex("32767")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, INTEGER, tokens[0].Type)
	assert.Equal(t, "32767", tokens[0].Lexeme)
}

// Joining the lexemes of a token stream with spaces must lex back to the
// same stream.
func TestLexRoundTrip(t *testing.T) {
	src := `
def fib(n: int): int {
    if (n <= 1) { return n; }   # base case
    return fib(n - 1) + fib(n - 2);
}
fib(10) >= 55 && !false || x != 3
`
	tokens, err := Lex(src)
	require.NoError(t, err)

	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, tok.Lexeme)
	}
	again, err := Lex(strings.Join(parts, " "))
	require.NoError(t, err)

	require.Len(t, again, len(tokens))
	for i := range tokens {
		assert.Equal(t, tokens[i].Type, again[i].Type, "token %d", i)
		assert.Equal(t, tokens[i].Lexeme, again[i].Lexeme, "token %d", i)
	}
}

func TestLexerNext(t *testing.T) {
	l := NewLexer("x")
	assert.False(t, l.Done())

	tok, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, IDENTIFIER, tok.Type)

	for i := 0; i < 3; i++ {
		tok, err = l.Next()
		require.NoError(t, err)
		assert.Equal(t, EOF, tok.Type)
		assert.True(t, l.Done())
	}
}

func TestTokenClass(t *testing.T) {
	tests := []struct {
		tt    TokenType
		class TokenClass
	}{
		{EOF, ClassEOF},
		{DEF, ClassKeyword},
		{CONTINUE, ClassKeyword},
		{IDENTIFIER, ClassIdentifier},
		{INTEGER, ClassIntLiteral},
		{TRUE, ClassBoolLiteral},
		{FALSE, ClassBoolLiteral},
		{LBRACE, ClassPunctuation},
		{COLON, ClassPunctuation},
		{PLUS, ClassOperator},
		{AND_LOGICAL, ClassOperator},
		{GREATER_EQ, ClassOperator},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.class, tc.tt.Class(), tc.tt.String())
	}
}

func TestTokenDescribe(t *testing.T) {
	assert.Equal(t, "')'", RPAREN.Describe())
	assert.Equal(t, "identifier", IDENTIFIER.Describe())
	assert.Equal(t, "end of file", Token{Type: EOF}.Describe())
	assert.Equal(t, `integer literal "7"`, Token{Type: INTEGER, Lexeme: "7"}.Describe())
	assert.Equal(t, `identifier "foo"`, Token{Type: IDENTIFIER, Lexeme: "foo"}.Describe())
	assert.Equal(t, "TokenType(999)", TokenType(999).String())
}
