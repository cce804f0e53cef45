package compiler

import (
	"fmt"
	"strings"
)

// Memory-mapped output ports of the target machine.
const (
	PortChar = 0xFF00 // writes one character
	PortInt  = 0xFF01 // writes a signed decimal integer
)

// EntryLabel is where execution of the top-level expression begins.
const EntryLabel = "__start"

var argRegs = [RegisterArgs]string{"R4", "R5", "R6", "R7"}

// CodeGen walks an annotated AST and emits GoCPU assembly source text.
//
// Register usage: R0 holds every expression result, R1 and R3 are scratch,
// R2 is the frame pointer and R4..R7 carry the first four call arguments.
// Nothing is preserved across a call except R2 and values pushed on the stack.
type CodeGen struct {
	out       strings.Builder
	nextLabel int
	fn        *FunctionDecl
}

// loopContext carries the jump targets of the innermost enclosing while loop.
// It is passed down genStmt explicitly; nil means "not inside a loop".
type loopContext struct {
	Start string // where 'continue' jumps to
	End   string // where 'break' jumps to
}

func newCodeGen() *CodeGen {
	return &CodeGen{}
}

func (cg *CodeGen) newLabel() string {
	l := fmt.Sprintf("_L%d", cg.nextLabel)
	cg.nextLabel++
	return l
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("    ; "+format, args...)
}

func (cg *CodeGen) label(l string) {
	cg.line("%s:", l)
}

// imm renders a signed value as the 16-bit immediate the assembler expects.
func imm(v int) uint16 {
	return uint16(int16(v))
}

// loadVar loads the word at FP+offset into R0. Only R0 and R3 are touched,
// so a left operand parked in R1 survives.
func (cg *CodeGen) loadVar(sym *Symbol) {
	cg.line("    MOV R3, R2")
	cg.line("    LDI R0, %d", imm(sym.Offset))
	cg.line("    ADD R3, R0")
	cg.line("    LD  R0, [R3]")
}

// storeVar stores register src at FP+offset, clobbering R1 and R3.
func (cg *CodeGen) storeVar(sym *Symbol, src string) {
	cg.line("    MOV R3, R2")
	cg.line("    LDI R1, %d", imm(sym.Offset))
	cg.line("    ADD R3, R1")
	cg.line("    ST  [R3], %s", src)
}

func (cg *CodeGen) epilogue() {
	cg.line("    STSP R2")
	cg.line("    POP R2")
	cg.line("    RET")
}

// isSimple reports whether e can be loaded into R0 without disturbing R1.
func isSimple(e Expr) bool {
	switch e.(type) {
	case *Literal, *BoolLiteral, *VarRef:
		return true
	}
	return false
}

// genOperands leaves Left in R1 and Right in R0.
func (cg *CodeGen) genOperands(left, right Expr) error {
	if err := cg.genExpr(left); err != nil {
		return err
	}
	if isSimple(right) {
		cg.line("    MOV R1, R0")
		return cg.genExpr(right)
	}
	cg.line("    PUSH R0")
	if err := cg.genExpr(right); err != nil {
		return err
	}
	cg.line("    POP R1")
	return nil
}

// setIf loads 1 into R0 when the branch op is taken on the flags already
// set, and 0 otherwise. LDI does not touch the flags.
func (cg *CodeGen) setIf(jump string, taken, notTaken int) {
	label := cg.newLabel()
	cg.line("    LDI R0, %d", taken)
	cg.line("    %-3s %s", jump, label)
	cg.line("    LDI R0, %d", notTaken)
	cg.label(label)
}

func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {

	case *Literal:
		cg.line("    LDI R0, %d", imm(n.Value))

	case *BoolLiteral:
		cg.line("    LDI R0, %d", boolToInt(n.Value))

	case *VarRef:
		if n.Sym == nil {
			return codegenErrorf(n.Pos, "variable %q reached code generation unresolved", n.Name)
		}
		cg.loadVar(n.Sym)

	case *LogicalExpr:
		if n.Op == AND_LOGICAL {
			endLabel := cg.newLabel()

			if err := cg.genExpr(n.Left); err != nil {
				return err
			}
			cg.line("    LDI R1, 0")
			cg.line("    SUB R0, R1")
			cg.line("    JZ  %s", endLabel) // Short-circuit: return 0

			if err := cg.genExpr(n.Right); err != nil {
				return err
			}
			cg.line("    LDI R1, 0")
			cg.line("    SUB R0, R1")
			cg.line("    JZ  %s", endLabel)

			cg.line("    LDI R0, 1")
			cg.label(endLabel)
			return nil
		}

		if n.Op == OR_LOGICAL {
			endLabel := cg.newLabel()
			trueLabel := cg.newLabel()

			if err := cg.genExpr(n.Left); err != nil {
				return err
			}
			cg.line("    LDI R1, 0")
			cg.line("    SUB R0, R1")
			cg.line("    JNZ %s", trueLabel) // Short-circuit: return 1

			if err := cg.genExpr(n.Right); err != nil {
				return err
			}
			cg.line("    LDI R1, 0")
			cg.line("    SUB R0, R1")
			cg.line("    JNZ %s", trueLabel)

			// Both 0. R0 is 0.
			cg.line("    JMP %s", endLabel)

			cg.label(trueLabel)
			cg.line("    LDI R0, 1")
			cg.label(endLabel)
			return nil
		}
		return codegenErrorf(n.Pos, "unknown logical operator %s", n.Op)

	case *BinaryExpr:
		if n.T == TypeInvalid {
			return codegenErrorf(n.Pos, "operator %s reached code generation without a type", tokenText[n.Op])
		}
		if err := cg.genOperands(n.Left, n.Right); err != nil {
			return err
		}

		switch n.Op {
		case PLUS:
			cg.line("    ADD R1, R0")
			cg.line("    MOV R0, R1")
		case MINUS:
			cg.line("    SUB R1, R0")
			cg.line("    MOV R0, R1")
		case STAR:
			cg.line("    MUL R1, R0")
			cg.line("    MOV R0, R1")
		case SLASH:
			cg.line("    IDIV R1, R0")
			cg.line("    MOV R0, R1")
		case EQUALS:
			cg.line("    SUB R1, R0")
			cg.setIf("JZ", 1, 0)
		case NOT_EQ:
			cg.line("    SUB R1, R0")
			cg.setIf("JNZ", 1, 0)
		case LESS, LESS_EQ, GREATER, GREATER_EQ:
			// Flip the sign bits so the unsigned borrow flag orders signed values.
			cg.line("    LDI R3, 0x8000")
			cg.line("    XOR R1, R3")
			cg.line("    XOR R0, R3")
			switch n.Op {
			case LESS: // left < right
				cg.line("    SUB R1, R0")
				cg.setIf("JC", 1, 0)
			case GREATER: // right < left
				cg.line("    SUB R0, R1")
				cg.setIf("JC", 1, 0)
			case LESS_EQ: // !(right < left)
				cg.line("    SUB R0, R1")
				cg.setIf("JC", 0, 1)
			case GREATER_EQ: // !(left < right)
				cg.line("    SUB R1, R0")
				cg.setIf("JC", 0, 1)
			}
		default:
			return codegenErrorf(n.Pos, "unknown binary operator %s", n.Op)
		}

	case *UnaryExpr:
		if err := cg.genExpr(n.Right); err != nil {
			return err
		}
		switch n.Op {
		case MINUS:
			cg.line("    MOV R1, R0")
			cg.line("    LDI R0, 0")
			cg.line("    SUB R0, R1")
		case NOT:
			// Booleans are 0 or 1.
			cg.line("    LDI R1, 1")
			cg.line("    XOR R0, R1")
		default:
			return codegenErrorf(n.Pos, "unknown unary operator %s", n.Op)
		}

	case *FunctionCall:
		if n.Func == nil {
			return codegenErrorf(n.Pos, "call to %q reached code generation unresolved", n.Name)
		}
		for i := len(n.Args) - 1; i >= 0; i-- {
			if err := cg.genExpr(n.Args[i]); err != nil {
				return err
			}
			cg.line("    PUSH R0")
		}

		// Pop up to 4 args into registers
		numRegArgs := min(len(n.Args), RegisterArgs)
		for i := 0; i < numRegArgs; i++ {
			cg.line("    POP %s", argRegs[i])
		}

		cg.line("    CALL %s", n.Func.Label())

		if len(n.Args) > RegisterArgs {
			cg.line("    LDI R1, %d", (len(n.Args)-RegisterArgs)*WordSize)
			cg.line("    LDSP R3")
			cg.line("    ADD R3, R1")
			cg.line("    STSP R3")
		}

	default:
		return codegenErrorf(e.Position(), "unknown expression node %T", e)
	}
	return nil
}

// genBranchIfFalse evaluates cond and jumps to target when it is 0.
func (cg *CodeGen) genBranchIfFalse(cond Expr, target string) error {
	if err := cg.genExpr(cond); err != nil {
		return err
	}
	cg.line("    LDI R1, 0")
	cg.line("    SUB R0, R1")
	cg.line("    JZ  %s", target)
	return nil
}

func (cg *CodeGen) genStmt(s Stmt, loop *loopContext) error {
	switch n := s.(type) {

	case *ExprStmt:
		cg.comment("%s", n.Expr)
		if err := cg.genExpr(n.Expr); err != nil {
			return err
		}

	case *VariableDecl:
		if n.Sym == nil {
			return codegenErrorf(n.Pos, "variable %q reached code generation without a slot", n.Name)
		}
		cg.comment("let %s at offset %d", n.Name, n.Sym.Offset)
		if n.Init != nil {
			if err := cg.genExpr(n.Init); err != nil {
				return err
			}
		} else {
			cg.line("    LDI R0, 0")
		}
		cg.storeVar(n.Sym, "R0")

	case *Assignment:
		if n.Sym == nil {
			return codegenErrorf(n.Pos, "assignment to %q reached code generation unresolved", n.Name)
		}
		cg.comment("%s = ...", n.Name)
		if err := cg.genExpr(n.Value); err != nil {
			return err
		}
		cg.storeVar(n.Sym, "R0")

	case *ReturnStmt:
		if cg.fn == nil {
			return codegenErrorf(n.Pos, "return outside of a function")
		}
		if n.Expr != nil {
			cg.comment("return %s", n.Expr)
			if err := cg.genExpr(n.Expr); err != nil {
				return err
			}
		} else {
			cg.comment("return (void)")
		}
		cg.epilogue()

	case *BlockStmt:
		for _, stmt := range n.Stmts {
			if err := cg.genStmt(stmt, loop); err != nil {
				return err
			}
		}

	case *IfStmt:
		cg.comment("if %s", n.Condition)
		elseLabel := cg.newLabel()
		if err := cg.genBranchIfFalse(n.Condition, elseLabel); err != nil {
			return err
		}
		if err := cg.genStmt(n.Body, loop); err != nil {
			return err
		}
		if n.ElseBody == nil {
			cg.label(elseLabel)
			return nil
		}
		endLabel := cg.newLabel()
		cg.line("    JMP %s", endLabel)
		cg.label(elseLabel)
		if err := cg.genStmt(n.ElseBody, loop); err != nil {
			return err
		}
		cg.label(endLabel)

	case *WhileStmt:
		cg.comment("while %s", n.Condition)
		inner := &loopContext{Start: cg.newLabel(), End: cg.newLabel()}

		cg.label(inner.Start)
		if err := cg.genBranchIfFalse(n.Condition, inner.End); err != nil {
			return err
		}
		if err := cg.genStmt(n.Body, inner); err != nil {
			return err
		}
		cg.line("    JMP %s", inner.Start)
		cg.label(inner.End)

	case *BreakStmt:
		if loop == nil {
			return codegenErrorf(n.Pos, "break statement outside of loop")
		}
		cg.line("    JMP %s", loop.End)

	case *ContinueStmt:
		if loop == nil {
			return codegenErrorf(n.Pos, "continue statement outside of loop")
		}
		cg.line("    JMP %s", loop.Start)

	default:
		return codegenErrorf(s.Position(), "unknown statement node %T", s)
	}
	return nil
}

func (cg *CodeGen) genFunction(f *FunctionDecl) error {
	if f.Sig == nil {
		return codegenErrorf(f.Pos, "function %q reached code generation without a signature", f.Name)
	}
	cg.fn = f
	defer func() { cg.fn = nil }()

	cg.out.WriteByte('\n')
	cg.comment("def %s (frame %d)", f.Sig, f.FrameSize)
	cg.label(f.Sig.Label())
	cg.line("    PUSH R2")
	cg.line("    LDSP R2")

	if f.FrameSize > 0 {
		cg.line("    LDI R1, %d", f.FrameSize)
		cg.line("    LDSP R3")
		cg.line("    SUB R3, R1")
		cg.line("    STSP R3")
	}

	// Spill register arguments (R4-R7) to their local stack slots
	for i, p := range f.Params {
		if i >= RegisterArgs {
			break
		}
		if p.Sym == nil {
			return codegenErrorf(p.Pos, "parameter %q reached code generation without a slot", p.Name)
		}
		cg.comment("spill param %s (%s) to offset %d", p.Name, argRegs[i], p.Sym.Offset)
		cg.storeVar(p.Sym, argRegs[i])
	}

	if err := cg.genStmt(f.Body, nil); err != nil {
		return err
	}

	cg.epilogue()
	return nil
}

// Generate emits assembly for an analyzed program. The image starts with a
// jump over the function bodies to EntryLabel, which evaluates the top-level
// expression, prints int and bool results on the decimal port, and halts.
func Generate(prog *Program) (string, error) {
	cg := newCodeGen()

	cg.line("    JMP %s", EntryLabel)

	for _, f := range prog.Funcs {
		if err := cg.genFunction(f); err != nil {
			return "", err
		}
	}

	cg.out.WriteByte('\n')
	cg.label(EntryLabel)
	if prog.Expr != nil {
		cg.comment("%s", prog.Expr)
		if err := cg.genExpr(prog.Expr); err != nil {
			return "", err
		}
		switch prog.Expr.Type() {
		case TypeInt, TypeBool:
			cg.line("    LDI R1, 0x%04X", PortInt)
			cg.line("    ST  [R1], R0")
			cg.line("    LDI R3, 10")
			cg.line("    LDI R1, 0x%04X", PortChar)
			cg.line("    ST  [R1], R3")
		case TypeInvalid:
			return "", codegenErrorf(prog.Expr.Position(), "top-level expression reached code generation without a type")
		}
	}
	cg.line("    HLT")

	return cg.out.String(), nil
}
