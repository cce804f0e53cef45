package compiler

// analyzer walks the AST once, resolving every name against the scope stack
// and attaching types, symbols and callee signatures to the nodes.
type analyzer struct {
	syms      *SymbolTable
	fn        *FunctionDecl // function being analyzed; nil at top level
	loopDepth int
}

// Analyze checks prog and annotates it in place. The first error halts
// analysis and is returned as a *SemanticError.
//
// All functions are registered before any body is visited, so calls may
// refer to functions declared later in the file, and to themselves.
func Analyze(prog *Program) (*SymbolTable, error) {
	a := &analyzer{syms: NewSymbolTable()}

	for _, f := range prog.Funcs {
		if err := a.declareFunc(f); err != nil {
			return nil, err
		}
	}
	for _, f := range prog.Funcs {
		if err := a.analyzeFunc(f); err != nil {
			return nil, err
		}
	}
	if prog.Expr != nil {
		if _, err := a.analyzeExpr(prog.Expr); err != nil {
			return nil, err
		}
	}
	return a.syms, nil
}

// declareFunc registers the signature of f. Parameter types default to int;
// an unannotated return type is int when the body returns a value.
func (a *analyzer) declareFunc(f *FunctionDecl) error {
	sig := &FuncSig{Name: f.Name, Result: f.ReturnType, Decl: f}
	if sig.Result == TypeInvalid {
		sig.Result = TypeVoid
		if returnsValue(f.Body) {
			sig.Result = TypeInt
		}
	}
	for _, p := range f.Params {
		if p.Type == TypeInvalid {
			p.Type = TypeInt
		}
		if p.Type == TypeVoid {
			return semErrorf(p.Pos, "parameter %q cannot have type void", p.Name)
		}
		sig.Params = append(sig.Params, p.Type)
	}
	if prev, ok := a.syms.LookupFunc(f.Name); ok {
		return semErrorf(f.Pos, "function %q already declared at %s", f.Name, prev.Decl.Pos)
	}
	a.syms.DefineFunc(sig)
	f.Sig = sig
	return nil
}

func (a *analyzer) analyzeFunc(f *FunctionDecl) error {
	a.syms.EnterFunction(f.Name)
	a.fn = f
	defer func() { a.fn = nil }()

	for i, p := range f.Params {
		sym, ok := a.syms.DefineParam(p.Name, p.Type, i, p.Pos)
		if !ok {
			return semErrorf(p.Pos, "duplicate parameter %q in function %q", p.Name, f.Name)
		}
		p.Sym = sym
	}

	// The body block shares the parameter scope.
	for _, s := range f.Body.Stmts {
		if err := a.analyzeStmt(s); err != nil {
			return err
		}
	}

	if f.Sig.Result != TypeVoid && !terminates(f.Body) {
		return semErrorf(f.Pos, "missing return in function %q returning %s", f.Name, f.Sig.Result)
	}
	f.FrameSize = a.syms.ExitFunction()
	return nil
}

// analyzeNested analyzes a branch or loop body in its own scope, so that
// "if (c) let x = 1" does not leak x into the enclosing block.
func (a *analyzer) analyzeNested(s Stmt) error {
	if _, ok := s.(*BlockStmt); ok {
		return a.analyzeStmt(s)
	}
	a.syms.EnterScope()
	defer a.syms.ExitScope()
	return a.analyzeStmt(s)
}

func (a *analyzer) analyzeStmt(s Stmt) error {
	switch n := s.(type) {

	case *VariableDecl:
		t := n.DeclType
		if t == TypeVoid {
			return semErrorf(n.Pos, "variable %q cannot have type void", n.Name)
		}
		// The initializer is resolved before the new name is visible.
		if n.Init != nil {
			initType, err := a.analyzeExpr(n.Init)
			if err != nil {
				return err
			}
			if initType == TypeVoid {
				return semErrorf(n.Init.Position(), "cannot initialize %q with a void expression", n.Name)
			}
			if t == TypeInvalid {
				t = initType
			} else if t != initType {
				return semErrorf(n.Init.Position(), "cannot initialize %q of type %s with %s", n.Name, t, initType)
			}
		}
		if t == TypeInvalid {
			t = TypeInt
		}
		sym, ok := a.syms.Declare(n.Name, t, n.Pos)
		if !ok {
			return semErrorf(n.Pos, "redeclaration of %q in the same scope", n.Name)
		}
		n.Sym = sym

	case *Assignment:
		valType, err := a.analyzeExpr(n.Value)
		if err != nil {
			return err
		}
		sym, ok := a.syms.Lookup(n.Name)
		if !ok {
			return semErrorf(n.Pos, "assignment to undefined variable %q", n.Name)
		}
		if valType != sym.Type {
			return semErrorf(n.Value.Position(), "cannot assign %s to %q of type %s", valType, n.Name, sym.Type)
		}
		n.Sym = sym

	case *ReturnStmt:
		want := a.fn.Sig.Result
		if n.Expr == nil {
			if want != TypeVoid {
				return semErrorf(n.Pos, "function %q must return a value of type %s", a.fn.Name, want)
			}
			return nil
		}
		if want == TypeVoid {
			return semErrorf(n.Pos, "void function %q cannot return a value", a.fn.Name)
		}
		got, err := a.analyzeExpr(n.Expr)
		if err != nil {
			return err
		}
		if got != want {
			return semErrorf(n.Expr.Position(), "function %q returns %s, found %s", a.fn.Name, want, got)
		}

	case *BlockStmt:
		a.syms.EnterScope()
		defer a.syms.ExitScope()
		for _, stmt := range n.Stmts {
			if err := a.analyzeStmt(stmt); err != nil {
				return err
			}
		}

	case *IfStmt:
		if err := a.analyzeCondition(n.Condition); err != nil {
			return err
		}
		if err := a.analyzeNested(n.Body); err != nil {
			return err
		}
		if n.ElseBody != nil {
			if err := a.analyzeNested(n.ElseBody); err != nil {
				return err
			}
		}

	case *WhileStmt:
		if err := a.analyzeCondition(n.Condition); err != nil {
			return err
		}
		a.loopDepth++
		err := a.analyzeNested(n.Body)
		a.loopDepth--
		if err != nil {
			return err
		}

	case *BreakStmt:
		if a.loopDepth == 0 {
			return semErrorf(n.Pos, "break statement outside of loop")
		}

	case *ContinueStmt:
		if a.loopDepth == 0 {
			return semErrorf(n.Pos, "continue statement outside of loop")
		}

	case *ExprStmt:
		if _, err := a.analyzeExpr(n.Expr); err != nil {
			return err
		}

	default:
		return semErrorf(s.Position(), "unknown statement node %T", s)
	}
	return nil
}

func (a *analyzer) analyzeCondition(cond Expr) error {
	t, err := a.analyzeExpr(cond)
	if err != nil {
		return err
	}
	if t != TypeBool {
		return semErrorf(cond.Position(), "condition must be bool, found %s", t)
	}
	return nil
}

// analyzeExpr resolves e and returns its type.
func (a *analyzer) analyzeExpr(e Expr) (Type, error) {
	switch n := e.(type) {

	case *Literal, *BoolLiteral:
		return n.Type(), nil

	case *VarRef:
		sym, ok := a.syms.Lookup(n.Name)
		if !ok {
			return TypeInvalid, semErrorf(n.Pos, "undefined variable %q", n.Name)
		}
		n.Sym = sym
		return sym.Type, nil

	case *BinaryExpr:
		lt, err := a.analyzeExpr(n.Left)
		if err != nil {
			return TypeInvalid, err
		}
		rt, err := a.analyzeExpr(n.Right)
		if err != nil {
			return TypeInvalid, err
		}
		switch n.Op {
		case PLUS, MINUS, STAR, SLASH:
			if lt != TypeInt || rt != TypeInt {
				return TypeInvalid, semErrorf(n.Pos, "operator %s requires int operands, found %s and %s", tokenText[n.Op], lt, rt)
			}
			n.T = TypeInt
		case EQUALS, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
			if lt != rt || lt == TypeVoid {
				return TypeInvalid, semErrorf(n.Pos, "cannot compare %s with %s", lt, rt)
			}
			n.T = TypeBool
		default:
			return TypeInvalid, semErrorf(n.Pos, "unknown binary operator %s", n.Op)
		}
		return n.T, nil

	case *LogicalExpr:
		for _, side := range []Expr{n.Left, n.Right} {
			t, err := a.analyzeExpr(side)
			if err != nil {
				return TypeInvalid, err
			}
			if t != TypeBool {
				return TypeInvalid, semErrorf(side.Position(), "operator %s requires bool operands, found %s", tokenText[n.Op], t)
			}
		}
		return TypeBool, nil

	case *UnaryExpr:
		t, err := a.analyzeExpr(n.Right)
		if err != nil {
			return TypeInvalid, err
		}
		want := TypeInt
		if n.Op == NOT {
			want = TypeBool
		}
		if t != want {
			return TypeInvalid, semErrorf(n.Pos, "operator %s requires an operand of type %s, found %s", tokenText[n.Op], want, t)
		}
		n.T = want
		return want, nil

	case *FunctionCall:
		sig, ok := a.syms.LookupFunc(n.Name)
		if !ok {
			return TypeInvalid, semErrorf(n.Pos, "undefined function %q", n.Name)
		}
		if len(n.Args) != len(sig.Params) {
			return TypeInvalid, semErrorf(n.Pos, "function %q expects %d arguments, got %d", n.Name, len(sig.Params), len(n.Args))
		}
		for i, arg := range n.Args {
			t, err := a.analyzeExpr(arg)
			if err != nil {
				return TypeInvalid, err
			}
			if t != sig.Params[i] {
				return TypeInvalid, semErrorf(arg.Position(), "argument %d of %q: expected %s, found %s", i+1, n.Name, sig.Params[i], t)
			}
		}
		n.Func = sig
		return sig.Result, nil
	}
	return TypeInvalid, semErrorf(e.Position(), "unknown expression node %T", e)
}

// returnsValue reports whether any return statement in s carries a value.
func returnsValue(s Stmt) bool {
	switch n := s.(type) {
	case *ReturnStmt:
		return n.Expr != nil
	case *BlockStmt:
		for _, stmt := range n.Stmts {
			if returnsValue(stmt) {
				return true
			}
		}
	case *IfStmt:
		return returnsValue(n.Body) || (n.ElseBody != nil && returnsValue(n.ElseBody))
	case *WhileStmt:
		return returnsValue(n.Body)
	}
	return false
}

// terminates reports whether control can never fall off the end of s.
func terminates(s Stmt) bool {
	switch n := s.(type) {
	case *ReturnStmt:
		return true
	case *BlockStmt:
		for _, stmt := range n.Stmts {
			if terminates(stmt) {
				return true
			}
		}
	case *IfStmt:
		return n.ElseBody != nil && terminates(n.Body) && terminates(n.ElseBody)
	case *WhileStmt:
		lit, ok := n.Condition.(*BoolLiteral)
		return ok && lit.Value && !breaksOut(n.Body)
	}
	return false
}

// breaksOut reports whether s contains a break bound to the enclosing loop.
func breaksOut(s Stmt) bool {
	switch n := s.(type) {
	case *BreakStmt:
		return true
	case *BlockStmt:
		for _, stmt := range n.Stmts {
			if breaksOut(stmt) {
				return true
			}
		}
	case *IfStmt:
		return breaksOut(n.Body) || (n.ElseBody != nil && breaksOut(n.ElseBody))
	}
	return false
}
