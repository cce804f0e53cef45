package compiler

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	res, err := Compile(fibSource)
	require.NoError(t, err)

	assert.NotEmpty(t, res.Assembly)
	require.NotNil(t, res.Program)
	require.Len(t, res.Program.Funcs, 1)
	assert.NotNil(t, res.Symbols)
	assert.Zero(t, res.Folded, "folding is off by default")
	assert.Greater(t, res.Tokens, 20)

	image, sourceMap, err := res.Assemble()
	require.NoError(t, err)
	assert.NotEmpty(t, image)
	assert.Equal(t, 1, sourceMap[0], "the first instruction is the jump to the entry point")
}

func TestCompileConstantFolding(t *testing.T) {
	res, err := Compile("def f() { return 2 * 3 + 1 } f() + (4 - 4)", WithConstantFolding(true))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Folded)
	assert.Equal(t, "(+ f() 0)", res.Program.Expr.String())

	res, err = Compile("def f() { return 2 * 3 + 1 } f()", WithConstantFolding(false))
	require.NoError(t, err)
	assert.Zero(t, res.Folded)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
		pos  Pos
	}{
		{"Lex", "def f() { return 1 $ }", KindLex, Pos{1, 20}},
		{"Parse", "def f() { return (1 }", KindParse, Pos{1, 21}},
		{"Semantic", "def f() { break }", KindSemantic, Pos{1, 11}},
		{"Missing return", "def f(x) {\n  if (x > 0) { return 1 }\n}", KindSemantic, Pos{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(tt.src)
			require.Error(t, err)
			assert.Nil(t, res, "no partial output on error")

			var diag Diagnostic
			require.True(t, errors.As(err, &diag))
			assert.Equal(t, tt.kind, diag.Kind())
			assert.Equal(t, tt.pos, diag.Position())
			assert.Contains(t, err.Error(), tt.pos.String()+": "+tt.kind.String()+" error: ")
		})
	}
}

func TestCompileLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	_, err := Compile(fibSource, WithLogger(logger), WithFilename("fib.sil"), WithConstantFolding(true))
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, `"file":"fib.sil"`)
	for _, msg := range []string{"lexed", "parsed", "analyzed", "constant folding", "generated"} {
		assert.Contains(t, logs, `"message":"`+msg+`"`)
	}
	assert.Contains(t, logs, `"sig":"fib(int): int"`)

	buf.Reset()
	_, err = Compile("def f() { break }", WithLogger(logger))
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"message":"analysis failed"`)
	assert.Contains(t, buf.String(), `"file":"<input>"`)
}

func TestCompileSilentByDefault(t *testing.T) {
	// The default logger must not panic or write anywhere.
	_, err := Compile("1 + 1")
	require.NoError(t, err)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "lex", KindLex.String())
	assert.Equal(t, "parse", KindParse.String())
	assert.Equal(t, "semantic", KindSemantic.String())
	assert.Equal(t, "codegen", KindCodegen.String())
	assert.Equal(t, "ErrorKind(9)", ErrorKind(9).String())
}
