package compiler

// Fold replaces binary operations whose operands are both literals with the
// literal result, bottom-up, so (1 + 2) * 3 becomes 9. It must run after
// Analyze, and returns the number of operations folded.
//
// Arithmetic wraps at 16 bits like the machine does. Division by zero is
// left for the machine to evaluate.
func Fold(prog *Program) int {
	f := &folder{}
	for _, fn := range prog.Funcs {
		f.stmt(fn.Body)
	}
	if prog.Expr != nil {
		prog.Expr = f.expr(prog.Expr)
	}
	return f.count
}

type folder struct {
	count int
}

func (f *folder) stmt(s Stmt) {
	switch n := s.(type) {
	case *VariableDecl:
		if n.Init != nil {
			n.Init = f.expr(n.Init)
		}
	case *Assignment:
		n.Value = f.expr(n.Value)
	case *ReturnStmt:
		if n.Expr != nil {
			n.Expr = f.expr(n.Expr)
		}
	case *BlockStmt:
		for _, stmt := range n.Stmts {
			f.stmt(stmt)
		}
	case *IfStmt:
		n.Condition = f.expr(n.Condition)
		f.stmt(n.Body)
		if n.ElseBody != nil {
			f.stmt(n.ElseBody)
		}
	case *WhileStmt:
		n.Condition = f.expr(n.Condition)
		f.stmt(n.Body)
	case *ExprStmt:
		n.Expr = f.expr(n.Expr)
	}
}

func (f *folder) expr(e Expr) Expr {
	switch n := e.(type) {
	case *BinaryExpr:
		n.Left = f.expr(n.Left)
		n.Right = f.expr(n.Right)
		if folded, ok := foldBinary(n); ok {
			f.count++
			return folded
		}
	case *LogicalExpr:
		n.Left = f.expr(n.Left)
		n.Right = f.expr(n.Right)
		l, lok := n.Left.(*BoolLiteral)
		r, rok := n.Right.(*BoolLiteral)
		if lok && rok {
			f.count++
			v := l.Value && r.Value
			if n.Op == OR_LOGICAL {
				v = l.Value || r.Value
			}
			return &BoolLiteral{Pos: l.Pos, Value: v}
		}
	case *UnaryExpr:
		n.Right = f.expr(n.Right)
	case *FunctionCall:
		for i, arg := range n.Args {
			n.Args[i] = f.expr(arg)
		}
	}
	return e
}

// foldBinary evaluates n when both operands are literals of the same kind.
func foldBinary(n *BinaryExpr) (Expr, bool) {
	pos := n.Left.Position()
	switch left := n.Left.(type) {
	case *Literal:
		right, ok := n.Right.(*Literal)
		if !ok {
			return nil, false
		}
		a, b := int16(left.Value), int16(right.Value)
		switch n.Op {
		case PLUS:
			return &Literal{Pos: pos, Value: int(a + b)}, true
		case MINUS:
			return &Literal{Pos: pos, Value: int(a - b)}, true
		case STAR:
			return &Literal{Pos: pos, Value: int(a * b)}, true
		case SLASH:
			if b == 0 {
				return nil, false
			}
			return &Literal{Pos: pos, Value: int(a / b)}, true
		}
		if v, ok := compareInts(n.Op, int(a), int(b)); ok {
			return &BoolLiteral{Pos: pos, Value: v}, true
		}

	case *BoolLiteral:
		right, ok := n.Right.(*BoolLiteral)
		if !ok {
			return nil, false
		}
		if v, ok := compareInts(n.Op, boolToInt(left.Value), boolToInt(right.Value)); ok {
			return &BoolLiteral{Pos: pos, Value: v}, true
		}
	}
	return nil, false
}

func compareInts(op TokenType, a, b int) (bool, bool) {
	switch op {
	case EQUALS:
		return a == b, true
	case NOT_EQ:
		return a != b, true
	case LESS:
		return a < b, true
	case LESS_EQ:
		return a <= b, true
	case GREATER:
		return a > b, true
	case GREATER_EQ:
		return a >= b, true
	}
	return false, false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
