package compiler

import "fmt"

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// IsValid reports whether p refers to an actual source location.
func (p Pos) IsValid() bool { return p.Line > 0 }

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / function / type name
	INTEGER    // decimal integer literal

	// Keywords
	DEF      // "def"
	LET      // "let"
	IF       // "if"
	ELSE     // "else"
	WHILE    // "while"
	RETURN   // "return"
	BREAK    // "break"
	CONTINUE // "continue"
	TRUE     // "true"
	FALSE    // "false"

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,
	COLON     // :

	// Arithmetic operators
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /

	// Logical operators
	AND_LOGICAL // &&
	OR_LOGICAL  // ||
	NOT         // !

	// Assignment / comparison (order matters: ASSIGN before EQUALS)
	ASSIGN     // =
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	LESS_EQ    // <=
	GREATER    // >
	GREATER_EQ // >=
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	INTEGER:     "INTEGER",
	DEF:         "DEF",
	LET:         "LET",
	IF:          "IF",
	ELSE:        "ELSE",
	WHILE:       "WHILE",
	RETURN:      "RETURN",
	BREAK:       "BREAK",
	CONTINUE:    "CONTINUE",
	TRUE:        "TRUE",
	FALSE:       "FALSE",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	COLON:       "COLON",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
	NOT:         "NOT",
	ASSIGN:      "ASSIGN",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	LESS_EQ:     "LESS_EQ",
	GREATER:     "GREATER",
	GREATER_EQ:  "GREATER_EQ",
}

// tokenText is the canonical source spelling of fixed tokens, used in
// diagnostics ("expected ')'").
var tokenText = map[TokenType]string{
	DEF:         "def",
	LET:         "let",
	IF:          "if",
	ELSE:        "else",
	WHILE:       "while",
	RETURN:      "return",
	BREAK:       "break",
	CONTINUE:    "continue",
	TRUE:        "true",
	FALSE:       "false",
	LBRACE:      "{",
	RBRACE:      "}",
	LPAREN:      "(",
	RPAREN:      ")",
	SEMICOLON:   ";",
	COMMA:       ",",
	COLON:       ":",
	PLUS:        "+",
	MINUS:       "-",
	STAR:        "*",
	SLASH:       "/",
	AND_LOGICAL: "&&",
	OR_LOGICAL:  "||",
	NOT:         "!",
	ASSIGN:      "=",
	EQUALS:      "==",
	NOT_EQ:      "!=",
	LESS:        "<",
	LESS_EQ:     "<=",
	GREATER:     ">",
	GREATER_EQ:  ">=",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Describe returns the token type as a user would write it.
func (tt TokenType) Describe() string {
	if s, ok := tokenText[tt]; ok {
		return "'" + s + "'"
	}
	switch tt {
	case IDENTIFIER:
		return "identifier"
	case INTEGER:
		return "integer literal"
	case EOF:
		return "end of file"
	}
	return tt.String()
}

// TokenClass is the coarse category a TokenType belongs to.
type TokenClass int

const (
	ClassEOF TokenClass = iota
	ClassKeyword
	ClassIdentifier
	ClassIntLiteral
	ClassBoolLiteral
	ClassOperator
	ClassPunctuation
)

var classNames = [...]string{
	ClassEOF:         "eof",
	ClassKeyword:     "keyword",
	ClassIdentifier:  "identifier",
	ClassIntLiteral:  "integer",
	ClassBoolLiteral: "boolean",
	ClassOperator:    "operator",
	ClassPunctuation: "punctuation",
}

func (c TokenClass) String() string {
	if int(c) >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("TokenClass(%d)", int(c))
}

// Class maps a token type onto its category.
func (tt TokenType) Class() TokenClass {
	switch {
	case tt == EOF:
		return ClassEOF
	case tt == IDENTIFIER:
		return ClassIdentifier
	case tt == INTEGER:
		return ClassIntLiteral
	case tt == TRUE || tt == FALSE:
		return ClassBoolLiteral
	case tt >= DEF && tt <= CONTINUE:
		return ClassKeyword
	case tt >= LBRACE && tt <= COLON:
		return ClassPunctuation
	default:
		return ClassOperator
	}
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Pos    Pos
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-10q  %s", t.Type, t.Lexeme, t.Pos)
}

// Describe renders the token for "found ..." diagnostics.
func (t Token) Describe() string {
	switch t.Type {
	case EOF:
		return "end of file"
	case IDENTIFIER, INTEGER:
		return fmt.Sprintf("%s %q", t.Type.Describe(), t.Lexeme)
	}
	return t.Type.Describe()
}
