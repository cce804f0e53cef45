package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the static type of a SIL expression or declaration.
type Type int

const (
	TypeInvalid Type = iota // not yet resolved
	TypeInt
	TypeBool
	TypeVoid
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeVoid:
		return "void"
	}
	return "<invalid>"
}

// typeNames maps the spelling of a type annotation onto its Type.
var typeNames = map[string]Type{
	"int":  TypeInt,
	"bool": TypeBool,
	"void": TypeVoid,
}

// Node is implemented by every AST node.
type Node interface {
	Position() Pos
	String() string
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
// genExpr always leaves the result in R0.
type Expr interface {
	Node
	exprNode()
	// Type is the resolved static type; TypeInvalid before analysis.
	Type() Type
}

// Literal is an integer constant.
//
//	let x = 10
//	        ^^  Literal{Value: 10}
type Literal struct {
	Pos   Pos
	Value int
}

func (*Literal) exprNode()        {}
func (l *Literal) Position() Pos  { return l.Pos }
func (l *Literal) Type() Type     { return TypeInt }
func (l *Literal) String() string { return strconv.Itoa(l.Value) }

// BoolLiteral is `true` or `false`; it is represented as 1 or 0 at run time.
type BoolLiteral struct {
	Pos   Pos
	Value bool
}

func (*BoolLiteral) exprNode()        {}
func (b *BoolLiteral) Position() Pos  { return b.Pos }
func (b *BoolLiteral) Type() Type     { return TypeBool }
func (b *BoolLiteral) String() string { return strconv.FormatBool(b.Value) }

// VarRef is a read of a named variable or parameter.
//
//	return x
//	       ^  VarRef{Name: "x"}
type VarRef struct {
	Pos  Pos
	Name string
	Sym  *Symbol // resolved declaration, set by the analyzer
}

func (*VarRef) exprNode()       {}
func (v *VarRef) Position() Pos { return v.Pos }
func (v *VarRef) Type() Type {
	if v.Sym == nil {
		return TypeInvalid
	}
	return v.Sym.Type
}
func (v *VarRef) String() string { return v.Name }

// BinaryExpr represents an arithmetic or comparison operation: Left Op Right.
//
//	x + 1
//	^ ^ ^
//	| | |
//	| | Right
//	| Op
//	Left
type BinaryExpr struct {
	Pos   Pos // position of the operator
	Op    TokenType
	Left  Expr
	Right Expr
	T     Type
}

func (*BinaryExpr) exprNode()       {}
func (b *BinaryExpr) Position() Pos { return b.Pos }
func (b *BinaryExpr) Type() Type    { return b.T }
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", tokenText[b.Op], b.Left, b.Right)
}

// LogicalExpr represents Left && Right or Left || Right.
// It is separate from BinaryExpr to allow short-circuit evaluation in code generation.
type LogicalExpr struct {
	Pos   Pos
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*LogicalExpr) exprNode()       {}
func (l *LogicalExpr) Position() Pos { return l.Pos }
func (l *LogicalExpr) Type() Type    { return TypeBool }
func (l *LogicalExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", tokenText[l.Op], l.Left, l.Right)
}

// UnaryExpr represents -Right or !Right.
type UnaryExpr struct {
	Pos   Pos
	Op    TokenType
	Right Expr
	T     Type
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) Position() Pos  { return u.Pos }
func (u *UnaryExpr) Type() Type     { return u.T }
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", tokenText[u.Op], u.Right) }

// FunctionCall represents name(args).
type FunctionCall struct {
	Pos  Pos
	Name string
	Args []Expr
	Func *FuncSig // resolved callee, set by the analyzer
}

func (*FunctionCall) exprNode()       {}
func (c *FunctionCall) Position() Pos { return c.Pos }
func (c *FunctionCall) Type() Type {
	if c.Func == nil {
		return TypeInvalid
	}
	return c.Func.Result
}
func (c *FunctionCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

//  Statement nodes

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	Node
	stmtNode()
}

// VariableDecl represents  let name[: type] [= expr].
type VariableDecl struct {
	Pos      Pos
	Name     string
	DeclType Type // TypeInvalid when the annotation is omitted
	Init     Expr // may be nil
	Sym      *Symbol
}

func (*VariableDecl) stmtNode()       {}
func (d *VariableDecl) Position() Pos { return d.Pos }
func (d *VariableDecl) String() string {
	var sb strings.Builder
	sb.WriteString("let ")
	sb.WriteString(d.Name)
	if d.DeclType != TypeInvalid {
		sb.WriteString(": " + d.DeclType.String())
	}
	if d.Init != nil {
		sb.WriteString(" = " + d.Init.String())
	}
	return sb.String()
}

// Assignment represents  name = value.
type Assignment struct {
	Pos   Pos
	Name  string
	Value Expr
	Sym   *Symbol
}

func (*Assignment) stmtNode()        {}
func (a *Assignment) Position() Pos  { return a.Pos }
func (a *Assignment) String() string { return fmt.Sprintf("%s = %s", a.Name, a.Value) }

// ReturnStmt represents  return [expr].
type ReturnStmt struct {
	Pos  Pos
	Expr Expr // nil for a bare return
}

func (*ReturnStmt) stmtNode()       {}
func (r *ReturnStmt) Position() Pos { return r.Pos }
func (r *ReturnStmt) String() string {
	if r.Expr == nil {
		return "return"
	}
	return "return " + r.Expr.String()
}

// BlockStmt represents { statement ... }; every block is a fresh scope.
type BlockStmt struct {
	Pos   Pos
	Stmts []Stmt
}

func (*BlockStmt) stmtNode()       {}
func (b *BlockStmt) Position() Pos { return b.Pos }
func (b *BlockStmt) String() string {
	if len(b.Stmts) == 0 {
		return "{ }"
	}
	parts := make([]string, len(b.Stmts))
	for i, s := range b.Stmts {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// IfStmt represents if (cond) body [else elseBody].
type IfStmt struct {
	Pos       Pos
	Condition Expr
	Body      Stmt
	ElseBody  Stmt // may be nil
}

func (*IfStmt) stmtNode()       {}
func (i *IfStmt) Position() Pos { return i.Pos }
func (i *IfStmt) String() string {
	if i.ElseBody != nil {
		return fmt.Sprintf("if %s then %s else %s", i.Condition, i.Body, i.ElseBody)
	}
	return fmt.Sprintf("if %s then %s", i.Condition, i.Body)
}

// WhileStmt represents while (cond) body.
type WhileStmt struct {
	Pos       Pos
	Condition Expr
	Body      Stmt
}

func (*WhileStmt) stmtNode()       {}
func (w *WhileStmt) Position() Pos { return w.Pos }
func (w *WhileStmt) String() string {
	return fmt.Sprintf("while %s do %s", w.Condition, w.Body)
}

// BreakStmt represents break.
type BreakStmt struct{ Pos Pos }

func (*BreakStmt) stmtNode()        {}
func (s *BreakStmt) Position() Pos  { return s.Pos }
func (s *BreakStmt) String() string { return "break" }

// ContinueStmt represents continue.
type ContinueStmt struct{ Pos Pos }

func (*ContinueStmt) stmtNode()        {}
func (s *ContinueStmt) Position() Pos  { return s.Pos }
func (s *ContinueStmt) String() string { return "continue" }

// ExprStmt represents an expression evaluated for its side effects (e.g. a function call).
type ExprStmt struct {
	Expr Expr
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) Position() Pos  { return e.Expr.Position() }
func (e *ExprStmt) String() string { return e.Expr.String() }

//  Declarations

// Param is one formal parameter of a FunctionDecl.
type Param struct {
	Pos  Pos
	Name string
	Type Type
	Sym  *Symbol
}

// FunctionDecl represents def name(params)[: type] { body }.
type FunctionDecl struct {
	Pos        Pos
	Name       string
	Params     []*Param
	ReturnType Type // TypeInvalid when the annotation is omitted
	Body       *BlockStmt

	// Set by the analyzer.
	Sig       *FuncSig
	FrameSize int // bytes reserved below FP for spilled params and locals
}

func (f *FunctionDecl) Position() Pos { return f.Pos }
func (f *FunctionDecl) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name
		if p.Type != TypeInvalid {
			params[i] += ": " + p.Type.String()
		}
	}
	ret := ""
	if f.ReturnType != TypeInvalid {
		ret = ": " + f.ReturnType.String()
	}
	return fmt.Sprintf("def %s(%s)%s %s", f.Name, strings.Join(params, ", "), ret, f.Body)
}

// Program is a whole compilation unit: function declarations followed by an
// optional top-level expression.
type Program struct {
	Funcs []*FunctionDecl
	Expr  Expr // may be nil
}

func (p *Program) Position() Pos {
	if len(p.Funcs) > 0 {
		return p.Funcs[0].Pos
	}
	if p.Expr != nil {
		return p.Expr.Position()
	}
	return Pos{Line: 1, Col: 1}
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, f := range p.Funcs {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
	}
	if p.Expr != nil {
		sb.WriteString(p.Expr.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
