package compiler

import "fmt"

// ErrorKind names the pipeline stage that rejected a compilation unit.
type ErrorKind int

const (
	KindLex ErrorKind = iota
	KindParse
	KindSemantic
	KindCodegen
)

func (k ErrorKind) String() string {
	switch k {
	case KindLex:
		return "lex"
	case KindParse:
		return "parse"
	case KindSemantic:
		return "semantic"
	case KindCodegen:
		return "codegen"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Diagnostic is implemented by every error the pipeline reports. The
// presentation layer formats diagnostics; the compiler never prints them.
type Diagnostic interface {
	error
	Kind() ErrorKind
	Position() Pos
	Message() string
}

// LexError reports a character outside the token grammar, or a malformed literal.
type LexError struct {
	Pos Pos
	Msg string
}

func (e *LexError) Error() string   { return fmt.Sprintf("%s: lex error: %s", e.Pos, e.Msg) }
func (e *LexError) Kind() ErrorKind { return KindLex }
func (e *LexError) Position() Pos   { return e.Pos }
func (e *LexError) Message() string { return e.Msg }

// ParseError reports a grammar violation: the parser expected one thing and
// found another.
type ParseError struct {
	Pos      Pos
	Expected string
	Found    string
}

func (e *ParseError) Error() string   { return fmt.Sprintf("%s: parse error: %s", e.Pos, e.Message()) }
func (e *ParseError) Kind() ErrorKind { return KindParse }
func (e *ParseError) Position() Pos   { return e.Pos }
func (e *ParseError) Message() string {
	return fmt.Sprintf("expected %s, found %s", e.Expected, e.Found)
}

// SemanticError reports an unresolved name, a type mismatch, misplaced
// break/continue, a redeclaration or a missing return.
type SemanticError struct {
	Pos Pos
	Msg string
}

func (e *SemanticError) Error() string   { return fmt.Sprintf("%s: semantic error: %s", e.Pos, e.Msg) }
func (e *SemanticError) Kind() ErrorKind { return KindSemantic }
func (e *SemanticError) Position() Pos   { return e.Pos }
func (e *SemanticError) Message() string { return e.Msg }

// CodegenError signals an internal invariant violation, e.g. a node that
// reached the generator without semantic annotations. It indicates a
// compiler bug rather than a problem in the source program.
type CodegenError struct {
	Pos Pos
	Msg string
}

func (e *CodegenError) Error() string   { return fmt.Sprintf("%s: codegen error: %s", e.Pos, e.Msg) }
func (e *CodegenError) Kind() ErrorKind { return KindCodegen }
func (e *CodegenError) Position() Pos   { return e.Pos }
func (e *CodegenError) Message() string { return e.Msg }

func semErrorf(pos Pos, format string, args ...any) error {
	return &SemanticError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func codegenErrorf(pos Pos, format string, args ...any) error {
	return &CodegenError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
