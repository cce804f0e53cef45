package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTable(t *testing.T) {
	t.Run("LocalAllocation", func(t *testing.T) {
		s := NewSymbolTable()
		s.EnterFunction("f")

		a, ok := s.Declare("a", TypeInt, Pos{})
		require.True(t, ok)
		b, ok := s.Declare("b", TypeBool, Pos{})
		require.True(t, ok)

		assert.Equal(t, -2, a.Offset)
		assert.Equal(t, -4, b.Offset)
		assert.Equal(t, 0, a.Depth)
		assert.Equal(t, 4, s.FrameSize())
		assert.Equal(t, 4, s.ExitFunction())
		assert.Equal(t, -1, s.Depth())
	})

	t.Run("Params", func(t *testing.T) {
		s := NewSymbolTable()
		s.EnterFunction("f")

		var syms []*Symbol
		for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
			sym, ok := s.DefineParam(name, TypeInt, i, Pos{})
			require.True(t, ok)
			assert.True(t, sym.IsParam)
			syms = append(syms, sym)
		}

		// Register arguments are spilled below FP.
		assert.Equal(t, -2, syms[0].Offset)
		assert.Equal(t, -8, syms[3].Offset)
		// Stack arguments sit above the saved FP and return address.
		assert.Equal(t, 4, syms[4].Offset)
		assert.Equal(t, 6, syms[5].Offset)
		assert.Equal(t, 8, s.FrameSize())

		_, ok := s.DefineParam("a", TypeInt, 6, Pos{})
		assert.False(t, ok, "duplicate parameter")

		// Params share the body scope.
		_, ok = s.Declare("b", TypeInt, Pos{})
		assert.False(t, ok)
	})

	t.Run("Shadowing", func(t *testing.T) {
		s := NewSymbolTable()
		s.EnterFunction("f")

		outer, _ := s.Declare("x", TypeInt, Pos{})
		s.EnterScope()
		assert.Equal(t, 1, s.Depth())

		found, ok := s.Lookup("x")
		require.True(t, ok)
		assert.Same(t, outer, found)

		inner, ok := s.Declare("x", TypeBool, Pos{})
		require.True(t, ok)
		assert.NotEqual(t, outer.Offset, inner.Offset)
		assert.Equal(t, 1, inner.Depth)

		found, _ = s.Lookup("x")
		assert.Same(t, inner, found)

		_, ok = s.Declare("x", TypeInt, Pos{})
		assert.False(t, ok, "redeclaration in the same scope")

		s.ExitScope()
		found, _ = s.Lookup("x")
		assert.Same(t, outer, found)

		// Slots are not reused after a scope closes.
		s.EnterScope()
		y, _ := s.Declare("y", TypeInt, Pos{})
		assert.Equal(t, -6, y.Offset)
		s.ExitScope()

		assert.Equal(t, 6, s.ExitFunction())
	})

	t.Run("Functions", func(t *testing.T) {
		s := NewSymbolTable()
		sig := &FuncSig{Name: "max", Params: []Type{TypeInt, TypeInt}, Result: TypeInt}
		assert.True(t, s.DefineFunc(sig))
		assert.False(t, s.DefineFunc(&FuncSig{Name: "max"}))

		got, ok := s.LookupFunc("max")
		require.True(t, ok)
		assert.Same(t, sig, got)
		assert.Equal(t, "fn_max", got.Label())
		assert.Equal(t, "max(int, int): int", got.String())

		_, ok = s.LookupFunc("min")
		assert.False(t, ok)
	})

	t.Run("EnterFunctionResets", func(t *testing.T) {
		s := NewSymbolTable()
		s.EnterFunction("f")
		s.Declare("a", TypeInt, Pos{})
		s.ExitFunction()

		s.EnterFunction("g")
		_, ok := s.Lookup("a")
		assert.False(t, ok)
		b, _ := s.Declare("b", TypeInt, Pos{})
		assert.Equal(t, -2, b.Offset)
	})

	t.Run("ScopeOutsideFunctionPanics", func(t *testing.T) {
		s := NewSymbolTable()
		assert.Panics(t, func() { s.EnterScope() })
		assert.Panics(t, func() { s.Declare("x", TypeInt, Pos{}) })
	})
}

func TestSymbolTableString(t *testing.T) {
	assert.Equal(t, "Functions: (empty)\n", NewSymbolTable().String())

	prog, err := ParseSource("def b(n) { let m = n; return m } def a() {}")
	require.NoError(t, err)
	syms, err := Analyze(prog)
	require.NoError(t, err)

	dump := syms.String()
	assert.Contains(t, dump, "param n: int @FP-2 (depth 0)")
	assert.Contains(t, dump, "local m: int @FP-4 (depth 0)")
	assert.Contains(t, dump, "(Frame: 4)")
	assert.Less(t, strings.Index(dump, "a(): void"), strings.Index(dump, "b(int): int"), "functions are sorted by name")
}
