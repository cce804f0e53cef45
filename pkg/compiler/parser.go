package compiler

import (
	"strconv"
)

// Parser is a recursive-descent parser over a token slice ending in EOF.
//
// Grammar:
//
//	program        = funcDecl* (expression ";"?)? EOF
//	funcDecl       = "def" IDENTIFIER "(" (param ("," param)*)? ")" (":" type)? block
//	param          = IDENTIFIER (":" type)?
//	block          = "{" (statement ";"?)* "}"
//	statement      = block | varDecl | if | while | return | "break" | "continue"
//	               | assignment | expression
//	varDecl        = "let" IDENTIFIER (":" type)? ("=" expression)?
//	assignment     = IDENTIFIER "=" expression
//	return         = "return" expression?
//	expression     = logical_or
//	logical_or     = logical_and ("||" logical_and)*
//	logical_and    = equality ("&&" equality)*
//	equality       = relational (("==" | "!=") relational)*
//	relational     = additive (("<" | "<=" | ">" | ">=") additive)*
//	additive       = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/") unary)*
//	unary          = ("-" | "!") unary | primary
//	primary        = INTEGER | "true" | "false" | IDENTIFIER "(" args? ")"
//	               | IDENTIFIER | "(" expression ")"
type Parser struct {
	tokens []Token
	pos    int
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// peek is peekAt(0).
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt looks offset tokens ahead.
// Past the end of the slice it keeps returning the final EOF token.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		if len(p.tokens) > 0 {
			last := p.tokens[len(p.tokens)-1]
			if last.Type == EOF {
				return last
			}
			return Token{Type: EOF, Pos: last.Pos}
		}
		return Token{Type: EOF, Pos: Pos{Line: 1, Col: 1}}
	}
	return p.tokens[p.pos+offset]
}

// advance returns the current token and moves past it.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// unexpected builds a ParseError at the current token.
func (p *Parser) unexpected(expected string) error {
	tok := p.peek()
	return &ParseError{Pos: tok.Pos, Expected: expected, Found: tok.Describe()}
}

// expect advances over a token of type tt or reports a ParseError.
func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.peek().Type != tt {
		return p.peek(), p.unexpected(tt.Describe())
	}
	return p.advance(), nil
}

// canStartExpr reports whether tt may begin an expression.
func canStartExpr(tt TokenType) bool {
	switch tt {
	case INTEGER, IDENTIFIER, TRUE, FALSE, LPAREN, MINUS, NOT:
		return true
	}
	return false
}

// parseExpression parses a full expression, starting at the lowest precedence.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseLogicalOr()
}

// parseLogicalOr handles ||
func (p *Parser) parseLogicalOr() (Expr, error) {
	expr, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == OR_LOGICAL {
		opTok := p.advance()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		expr = &LogicalExpr{Pos: opTok.Pos, Op: opTok.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseLogicalAnd handles &&
func (p *Parser) parseLogicalAnd() (Expr, error) {
	expr, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == AND_LOGICAL {
		opTok := p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		expr = &LogicalExpr{Pos: opTok.Pos, Op: opTok.Type, Left: expr, Right: right}
	}
	return expr, nil
}

// parseEquality: == !=
func (p *Parser) parseEquality() (Expr, error) {
	expr, err := p.parseRelational()
	if err != nil {
		return nil, err
	}

	for p.peek().Type == EQUALS || p.peek().Type == NOT_EQ {
		opTok := p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Pos: opTok.Pos, Op: opTok.Type, Left: expr, Right: right}
	}

	return expr, nil
}

// parseRelational handles <, <=, > and >=
func (p *Parser) parseRelational() (Expr, error) {
	expr, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for p.peek().Type == LESS || p.peek().Type == GREATER ||
		p.peek().Type == LESS_EQ || p.peek().Type == GREATER_EQ {
		opTok := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Pos: opTok.Pos, Op: opTok.Type, Left: expr, Right: right}
	}

	return expr, nil
}

// parseAdditive: + -
func (p *Parser) parseAdditive() (Expr, error) {
	expr, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		tt := p.peek().Type
		if tt != PLUS && tt != MINUS {
			break
		}
		opTok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Pos: opTok.Pos, Op: opTok.Type, Left: expr, Right: right}
	}

	return expr, nil
}

// parseMultiplicative: * /
func (p *Parser) parseMultiplicative() (Expr, error) {
	expr, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tt := p.peek().Type
		if tt != STAR && tt != SLASH {
			break
		}
		opTok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Pos: opTok.Pos, Op: opTok.Type, Left: expr, Right: right}
	}

	return expr, nil
}

// parseUnary handles prefix - and !
func (p *Parser) parseUnary() (Expr, error) {
	if p.peek().Type == NOT || p.peek().Type == MINUS {
		opTok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Pos: opTok.Pos, Op: opTok.Type, Right: right}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parseCallArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().Type != RPAREN {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePrimary handles literals, names, calls and parenthesised expressions.
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		v, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Expected: "integer literal", Found: tok.Describe()}
		}
		return &Literal{Pos: tok.Pos, Value: v}, nil

	case TRUE, FALSE:
		p.advance()
		return &BoolLiteral{Pos: tok.Pos, Value: tok.Type == TRUE}, nil

	case IDENTIFIER:
		p.advance()
		// IDENT immediately followed by '(' is a call.
		if p.peek().Type == LPAREN {
			p.advance()
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return &FunctionCall{Pos: tok.Pos, Name: tok.Lexeme, Args: args}, nil
		}
		return &VarRef{Pos: tok.Pos, Name: tok.Lexeme}, nil

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.unexpected("expression")
}

// parseType parses a type annotation. Type names are plain identifiers.
func (p *Parser) parseType() (Type, error) {
	tok := p.peek()
	if tok.Type == IDENTIFIER {
		if t, ok := typeNames[tok.Lexeme]; ok {
			p.advance()
			return t, nil
		}
	}
	return TypeInvalid, p.unexpected("type name (int, bool or void)")
}

// parseOptionalType parses ": type" if present.
func (p *Parser) parseOptionalType() (Type, error) {
	if p.peek().Type != COLON {
		return TypeInvalid, nil
	}
	p.advance()
	return p.parseType()
}

// parseVarDecl parses  let name [: type] [= expr]
// The leading LET token has already been consumed by parseStatement.
func (p *Parser) parseVarDecl(pos Pos) (Stmt, error) {
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	declType, err := p.parseOptionalType()
	if err != nil {
		return nil, err
	}
	decl := &VariableDecl{Pos: pos, Name: nameTok.Lexeme, DeclType: declType}
	if p.peek().Type == ASSIGN {
		p.advance()
		decl.Init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	return decl, nil
}

// parseReturn parses  return [expr]
// The leading RETURN token has already been consumed by parseStatement.
func (p *Parser) parseReturn(pos Pos) (Stmt, error) {
	if !canStartExpr(p.peek().Type) {
		return &ReturnStmt{Pos: pos}, nil
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ReturnStmt{Pos: pos, Expr: expr}, nil
}

// parseBlock parses { stmt1; stmt2 ... }
// The leading LBRACE token has already been consumed.
func (p *Parser) parseBlock(pos Pos) (*BlockStmt, error) {
	block := &BlockStmt{Pos: pos}
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
		if p.peek().Type == SEMICOLON {
			p.advance()
		}
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

// parseCondition parses ( expr ) after if or while.
func (p *Parser) parseCondition() (Expr, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseIf parses if ( cond ) body [ else elseBody ]
// The leading IF token has already been consumed by parseStatement.
// An else always binds to the nearest if, since the innermost parseIf sees it first.
func (p *Parser) parseIf(pos Pos) (Stmt, error) {
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	// Allow "if (c) x = 1; else x = 2".
	if p.peek().Type == SEMICOLON && p.peekAt(1).Type == ELSE {
		p.advance()
	}

	var elseBody Stmt
	if p.peek().Type == ELSE {
		p.advance()
		elseBody, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}

	return &IfStmt{Pos: pos, Condition: cond, Body: body, ElseBody: elseBody}, nil
}

// parseWhile parses while ( cond ) body
// The leading WHILE token has already been consumed by parseStatement.
func (p *Parser) parseWhile(pos Pos) (Stmt, error) {
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Pos: pos, Condition: cond, Body: body}, nil
}

// parseStatement peeks at the current token to pick a production.
func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case LBRACE:
		p.advance()
		return p.parseBlock(tok.Pos)
	case LET:
		p.advance()
		return p.parseVarDecl(tok.Pos)
	case IF:
		p.advance()
		return p.parseIf(tok.Pos)
	case WHILE:
		p.advance()
		return p.parseWhile(tok.Pos)
	case RETURN:
		p.advance()
		return p.parseReturn(tok.Pos)
	case BREAK:
		p.advance()
		return &BreakStmt{Pos: tok.Pos}, nil
	case CONTINUE:
		p.advance()
		return &ContinueStmt{Pos: tok.Pos}, nil
	case IDENTIFIER:
		if p.peekAt(1).Type == ASSIGN {
			p.advance()
			p.advance()
			val, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &Assignment{Pos: tok.Pos, Name: tok.Lexeme, Value: val}, nil
		}
	}

	if !canStartExpr(tok.Type) {
		return nil, p.unexpected("statement")
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr}, nil
}

// parseParam parses  name [: type]
func (p *Parser) parseParam() (*Param, error) {
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	t, err := p.parseOptionalType()
	if err != nil {
		return nil, err
	}
	return &Param{Pos: nameTok.Pos, Name: nameTok.Lexeme, Type: t}, nil
}

// parseFunctionDecl parses  def name(params) [: type] { body }
// The leading DEF token has already been consumed by Parse.
func (p *Parser) parseFunctionDecl(pos Pos) (*FunctionDecl, error) {
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	var params []*Param
	if p.peek().Type != RPAREN {
		for {
			param, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			params = append(params, param)

			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	retType, err := p.parseOptionalType()
	if err != nil {
		return nil, err
	}

	lbrace, err := p.expect(LBRACE)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock(lbrace.Pos)
	if err != nil {
		return nil, err
	}

	return &FunctionDecl{Pos: pos, Name: nameTok.Lexeme, Params: params, ReturnType: retType, Body: body}, nil
}

// Parse builds a Program: any number of function declarations followed by
// an optional top-level expression.
func Parse(tokens []Token) (*Program, error) {
	p := NewParser(tokens)
	prog := &Program{}
	for p.peek().Type == DEF {
		defTok := p.advance()
		f, err := p.parseFunctionDecl(defTok.Pos)
		if err != nil {
			return nil, err
		}
		prog.Funcs = append(prog.Funcs, f)
	}

	if p.peek().Type != EOF {
		if !canStartExpr(p.peek().Type) {
			return nil, p.unexpected("function declaration or expression")
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		prog.Expr = expr
		if p.peek().Type == SEMICOLON {
			p.advance()
		}
	}

	if _, err := p.expect(EOF); err != nil {
		return nil, err
	}
	return prog, nil
}

// ParseSource lexes and parses src in one step.
func ParseSource(src string) (*Program, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}
