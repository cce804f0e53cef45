package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// WordSize is the size in bytes of every SIL value on the stack.
const WordSize = 2

// RegisterArgs is the number of arguments passed in R4..R7.
const RegisterArgs = 4

// Symbol describes one variable or parameter.
type Symbol struct {
	Name    string
	Type    Type
	Offset  int // relative to FP; negative for spilled params and locals
	Depth   int // scope depth, 0 being the function body
	IsParam bool
	Pos     Pos
}

func (s *Symbol) String() string {
	kind := "local"
	if s.IsParam {
		kind = "param"
	}
	return fmt.Sprintf("%s %s: %s @FP%+d (depth %d)", kind, s.Name, s.Type, s.Offset, s.Depth)
}

// FuncSig is the registered signature of a function.
type FuncSig struct {
	Name   string
	Params []Type
	Result Type
	Decl   *FunctionDecl
}

// Label is the assembly label of the function's entry point.
func (f *FuncSig) Label() string { return "fn_" + f.Name }

func (f *FuncSig) String() string {
	params := make([]string, len(f.Params))
	for i, t := range f.Params {
		params[i] = t.String()
	}
	return fmt.Sprintf("%s(%s): %s", f.Name, strings.Join(params, ", "), f.Result)
}

// SymbolTable holds the module-level function table and, while a function is
// being analyzed, a stack of lexical scopes.
// Locals are assigned negative offsets from FP and never reuse a slot within
// one function, so the frame size is the lowest offset handed out.
type SymbolTable struct {
	funcs     map[string]*FuncSig
	funcOrder []string

	// Stack of local scopes.
	// Each scope maps name -> Symbol.
	scopes []map[string]*Symbol

	// Next available local offset (monotonically decreasing).
	nextLocal int

	// Every symbol declared per function, for String().
	declared map[string][]*Symbol
	current  string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		funcs:    make(map[string]*FuncSig),
		declared: make(map[string][]*Symbol),
	}
}

// DefineFunc registers sig in the function table. It reports false when a
// function of the same name already exists.
func (s *SymbolTable) DefineFunc(sig *FuncSig) bool {
	if _, ok := s.funcs[sig.Name]; ok {
		return false
	}
	s.funcs[sig.Name] = sig
	s.funcOrder = append(s.funcOrder, sig.Name)
	return true
}

// LookupFunc returns the signature registered under name.
func (s *SymbolTable) LookupFunc(name string) (*FuncSig, bool) {
	sig, ok := s.funcs[name]
	return sig, ok
}

// EnterFunction opens the outermost scope of a function body. Parameters
// and top-level locals of the body share it.
func (s *SymbolTable) EnterFunction(name string) {
	s.scopes = []map[string]*Symbol{make(map[string]*Symbol)}
	s.nextLocal = 0
	s.current = name
}

func (s *SymbolTable) EnterScope() {
	if len(s.scopes) == 0 {
		panic("EnterScope called outside function")
	}
	s.scopes = append(s.scopes, make(map[string]*Symbol))
}

func (s *SymbolTable) ExitScope() {
	if len(s.scopes) > 0 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// ExitFunction closes the function and returns its frame size in bytes.
func (s *SymbolTable) ExitFunction() int {
	size := s.FrameSize()
	s.scopes = nil
	s.current = ""
	return size
}

// Depth is the index of the innermost open scope, or -1 outside a function.
func (s *SymbolTable) Depth() int { return len(s.scopes) - 1 }

// FrameSize is the number of bytes reserved below FP so far.
func (s *SymbolTable) FrameSize() int { return -s.nextLocal }

// DefineParam declares the paramIndex'th parameter. Register arguments are
// spilled to the local frame; arguments 5+ stay on the caller's stack above
// the saved FP and return address.
func (s *SymbolTable) DefineParam(name string, t Type, paramIndex int, pos Pos) (*Symbol, bool) {
	if len(s.scopes) == 0 {
		panic("DefineParam called outside function scope")
	}
	if _, ok := s.scopes[0][name]; ok {
		return nil, false
	}

	var offset int
	if paramIndex < RegisterArgs {
		s.nextLocal -= WordSize
		offset = s.nextLocal
	} else {
		offset = 4 + (paramIndex-RegisterArgs)*WordSize
	}

	sym := &Symbol{Name: name, Type: t, Offset: offset, Depth: 0, IsParam: true, Pos: pos}
	s.scopes[0][name] = sym
	s.declared[s.current] = append(s.declared[s.current], sym)
	return sym, true
}

// Declare allocates a new local in the CURRENT scope. It reports false if name
// is already declared in that scope; shadowing an outer scope is allowed.
func (s *SymbolTable) Declare(name string, t Type, pos Pos) (*Symbol, bool) {
	if len(s.scopes) == 0 {
		panic("Declare called outside function scope")
	}
	scope := s.scopes[len(s.scopes)-1]
	if _, ok := scope[name]; ok {
		return nil, false
	}
	s.nextLocal -= WordSize
	sym := &Symbol{Name: name, Type: t, Offset: s.nextLocal, Depth: s.Depth(), Pos: pos}
	scope[name] = sym
	s.declared[s.current] = append(s.declared[s.current], sym)
	return sym, true
}

// Lookup returns the innermost symbol visible under name.
func (s *SymbolTable) Lookup(name string) (*Symbol, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if sym, ok := s.scopes[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	if len(s.funcs) == 0 {
		sb.WriteString("Functions: (empty)\n")
		return sb.String()
	}
	sb.WriteString("Functions:\n")
	names := append([]string(nil), s.funcOrder...)
	sort.Strings(names)
	for _, name := range names {
		sig := s.funcs[name]
		frame := 0
		if sig.Decl != nil {
			frame = sig.Decl.FrameSize
		}
		fmt.Fprintf(&sb, "  %-20s  (Frame: %d)\n", sig, frame)
		for _, sym := range s.declared[name] {
			fmt.Fprintf(&sb, "    %s\n", sym)
		}
	}
	return sb.String()
}
