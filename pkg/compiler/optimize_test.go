package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foldSource(t *testing.T, src string) (*Program, int) {
	t.Helper()
	prog, _, err := analyze(t, src)
	require.NoError(t, err)
	return prog, Fold(prog)
}

func TestFoldExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		folded   int
	}{
		{"1 + 2", "3", 1},
		{"(1 + 2) * 3", "9", 2},
		{"2 * 3 + 4 * 5", "26", 3},
		{"10 / 3", "3", 1},
		{"0 - 7 / 2", "-3", 2},
		{"32767 + 1", "-32768", 1},
		{"300 * 300", "24464", 1},
		{"1 < 2", "true", 1},
		{"2 <= 1", "false", 1},
		{"3 == 3", "true", 1},
		{"true != false", "true", 1},
		{"true && false", "false", 1},
		{"false || 1 < 2", "true", 2},
		{"1 + 2 == 3 && 4 > 5", "false", 4},

		// Not foldable.
		{"7 / 0", "(/ 7 0)", 0},
		{"-1 + 2", "(+ (- 1) 2)", 0},
		{"(4 / 0) + 1", "(+ (/ 4 0) 1)", 0},
		{"!true", "(! true)", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prog, n := foldSource(t, tt.input)
			assert.Equal(t, tt.expected, prog.Expr.String())
			assert.Equal(t, tt.folded, n)
		})
	}
}

func TestFoldPartial(t *testing.T) {
	prog, n := foldSource(t, "def f(x) { return x * (2 + 3) } f(1 + 1)")
	assert.Equal(t, 2, n)
	assert.Equal(t, "f(2)", prog.Expr.String())

	ret := prog.Funcs[0].Body.Stmts[0].(*ReturnStmt)
	assert.Equal(t, "(* x 5)", ret.Expr.String())

	// A non-literal operand blocks folding of everything above it.
	prog, n = foldSource(t, "def g(x) { return (x + 1) + 2 } 0")
	assert.Equal(t, 0, n)
	assert.Equal(t, "return (+ (+ x 1) 2)", prog.Funcs[0].Body.Stmts[0].String())
}

func TestFoldStatements(t *testing.T) {
	prog, n := foldSource(t, `
def f(x) {
    let a = 2 * 8
    a = a + (1 + 1)
    if (1 < 2) { x = 3 * 3 } else { x = 4 - 4 }
    while (x < 10 - 1) { x = x + 1 }
    g(6 / 2)
    return a
}
def g(y) {}
`)
	assert.Equal(t, 7, n)
	body := prog.Funcs[0].Body
	assert.Equal(t, "let a = 16", body.Stmts[0].String())
	assert.Equal(t, "a = (+ a 2)", body.Stmts[1].String())
	assert.Equal(t, "if true then { x = 9 } else { x = 0 }", body.Stmts[2].String())
	assert.Equal(t, "while (< x 9) do { x = (+ x 1) }", body.Stmts[3].String())
	assert.Equal(t, "g(3)", body.Stmts[4].String())
}

func TestFoldKeepsTypes(t *testing.T) {
	prog, _ := foldSource(t, "2 > 1")
	lit, ok := prog.Expr.(*BoolLiteral)
	require.True(t, ok)
	assert.Equal(t, TypeBool, lit.Type())

	prog, _ = foldSource(t, "2 + 1")
	assert.Equal(t, TypeInt, prog.Expr.Type())
}
