package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseExpr(t *testing.T, src string) Expr {
	t.Helper()
	prog, err := ParseSource(src)
	require.NoError(t, err)
	require.NotNil(t, prog.Expr)
	return prog.Expr
}

func parseStmt(t *testing.T, src string) Stmt {
	t.Helper()
	tokens, err := Lex(src)
	require.NoError(t, err)
	p := NewParser(tokens)
	stmt, err := p.parseStatement()
	require.NoError(t, err)
	assert.Equal(t, EOF, p.peek().Type, "trailing tokens after statement")
	return stmt
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"2 * 3 + 1", "(+ (* 2 3) 1)"},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"1 - 2 - 3", "(- (- 1 2) 3)"},
		{"8 / 4 / 2", "(/ (/ 8 4) 2)"},
		{"-x * 2", "(* (- x) 2)"},
		{"!!a", "(! (! a))"},
		{"1 + 2 < 3 * 4", "(< (+ 1 2) (* 3 4))"},
		{"a < b == c > d", "(== (< a b) (> c d))"},
		{"a || b && c", "(|| a (&& b c))"},
		{"a && b || c && d", "(|| (&& a b) (&& c d))"},
		{"!a == b", "(== (! a) b)"},
		{"x == 1 || y != 2 && z >= 3", "(|| (== x 1) (&& (!= y 2) (>= z 3)))"},
		{"f(1, g(2) + 3, x)", "f(1, (+ g(2) 3), x)"},
		{"f()", "f()"},
		{"true && false", "(&& true false)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseExpr(t, tt.input).String())
		})
	}
}

func TestParseOperatorPositions(t *testing.T) {
	e := parseExpr(t, "1 +\n 2 * 3")
	bin, ok := e.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, Pos{1, 3}, bin.Pos)

	mul, ok := bin.Right.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, Pos{2, 4}, mul.Pos)
}

func TestParseDanglingElse(t *testing.T) {
	stmt := parseStmt(t, "if (a) if (b) x = 1 else x = 2")

	outer, ok := stmt.(*IfStmt)
	require.True(t, ok)
	assert.Nil(t, outer.ElseBody, "else must bind to the inner if")

	inner, ok := outer.Body.(*IfStmt)
	require.True(t, ok)
	require.NotNil(t, inner.ElseBody)
	assert.Equal(t, "x = 2", inner.ElseBody.String())

	assert.Equal(t, "if a then if b then x = 1 else x = 2", stmt.String())
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Let with type and init", "let x: int = 1 + 2", "let x: int = (+ 1 2)"},
		{"Let inferred", "let b = true", "let b = true"},
		{"Let bare", "let n", "let n"},
		{"Assignment", "x = x + 1", "x = (+ x 1)"},
		{"Return value", "return n", "return n"},
		{"Bare return", "return", "return"},
		{"Return before brace", "{ return }", "{ return }"},
		{"Break", "break", "break"},
		{"Continue", "continue", "continue"},
		{"Call statement", "print(1)", "print(1)"},
		{"Empty block", "{ }", "{ }"},
		{"Block separators", "{ let a = 1; a = 2 a = 3; }", "{ let a = 1; a = 2; a = 3 }"},
		{"If with semicolon before else", "if (c) x = 1; else x = 2", "if c then x = 1 else x = 2"},
		{"While", "while (i < 10) { i = i + 1 }", "while (< i 10) do { i = (+ i 1) }"},
		{"Nested blocks", "{ { let x = 1 } }", "{ { let x = 1 } }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseStmt(t, tt.input).String())
		})
	}
}

func TestParseProgram(t *testing.T) {
	src := `
def add(a: int, b: int): int { return a + b }
def flag(x) { if (x > 0) { return } }
def noop() {}
add(1, 2);
`
	prog, err := ParseSource(src)
	require.NoError(t, err)
	require.Len(t, prog.Funcs, 3)

	add := prog.Funcs[0]
	assert.Equal(t, "add", add.Name)
	require.Len(t, add.Params, 2)
	assert.Equal(t, TypeInt, add.Params[0].Type)
	assert.Equal(t, TypeInt, add.ReturnType)
	assert.Equal(t, Pos{2, 1}, add.Pos)

	flag := prog.Funcs[1]
	assert.Equal(t, TypeInvalid, flag.Params[0].Type, "omitted annotations stay unresolved until analysis")
	assert.Equal(t, TypeInvalid, flag.ReturnType)

	assert.Empty(t, prog.Funcs[2].Params)
	assert.Empty(t, prog.Funcs[2].Body.Stmts)

	assert.Equal(t, "add(1, 2)", prog.Expr.String())
	assert.Equal(t, "def add(a: int, b: int): int { return (+ a b) }", add.String())
}

func TestParseEmptyProgram(t *testing.T) {
	prog, err := ParseSource("  # nothing here\n")
	require.NoError(t, err)
	assert.Empty(t, prog.Funcs)
	assert.Nil(t, prog.Expr)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		pos      Pos
		expected string
		found    string
	}{
		{"Missing close paren", "(1 + 2", Pos{1, 7}, "')'", "end of file"},
		{"Dangling operator", "1 +", Pos{1, 4}, "expression", "end of file"},
		{"Missing function name", "def (x) {}", Pos{1, 5}, "identifier", "'('"},
		{"Bad type", "def f(x: string) {}", Pos{1, 10}, "type name (int, bool or void)", `identifier "string"`},
		{"Missing body", "def f()", Pos{1, 8}, "'{'", "end of file"},
		{"Unclosed block", "def f() { return 1", Pos{1, 19}, "'}'", "end of file"},
		{"Statement at top level", "let x = 1", Pos{1, 1}, "function declaration or expression", "'let'"},
		{"Two expressions", "1 2", Pos{1, 3}, "end of file", `integer literal "2"`},
		{"Bad statement", "def f() { ) }", Pos{1, 11}, "statement", "')'"},
		{"If without parens", "def f() { if x { } }", Pos{1, 14}, "'('", `identifier "x"`},
		{"Trailing comma", "f(1,)", Pos{1, 5}, "expression", "')'"},
		{"Function after expression", "1; def f() {}", Pos{1, 4}, "end of file", "'def'"},
		{"Digits run into a name", "12abc", Pos{1, 3}, "end of file", `identifier "abc"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := ParseSource(tt.input)
			require.Error(t, err)
			assert.Nil(t, prog)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %T: %v", err, err)
			assert.Equal(t, tt.pos, perr.Pos)
			assert.Equal(t, tt.expected, perr.Expected)
			assert.Equal(t, tt.found, perr.Found)
			assert.Equal(t, KindParse, perr.Kind())
		})
	}
}

// A return value may start on the next line, so a bare return followed by
// an assignment needs a separator.
func TestParseReturnBeforeNewline(t *testing.T) {
	_, err := ParseSource("def f(c: bool) {\n    if (c) return\n    x = 1\n}")
	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected *ParseError, got %T: %v", err, err)
	assert.Equal(t, Pos{3, 7}, perr.Pos)
	assert.Equal(t, "statement", perr.Expected)
	assert.Equal(t, "'='", perr.Found)

	prog, err := ParseSource("def f(c: bool) {\n    if (c) return;\n    x = 1\n}")
	require.NoError(t, err)
	stmts := prog.Funcs[0].Body.Stmts
	require.Len(t, stmts, 2)
	assert.Equal(t, "if c then return", stmts[0].String())
	assert.Equal(t, "x = 1", stmts[1].String())
}

func TestParseSourceLexError(t *testing.T) {
	_, err := ParseSource("1 ? 2")
	var lexErr *LexError
	assert.True(t, errors.As(err, &lexErr))
}
