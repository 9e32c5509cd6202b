package compiler

import "strconv"

// ---------------------------------------------------------------------------
// Parser: recursive descent over the token stream
// ---------------------------------------------------------------------------

// Parser builds an AST from a token stream.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser for the given tokens. The token slice must end
// with an EOF token, as produced by Lexer.Tokenize.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.cur()
	if tok.Type != t {
		return tok, errorAt(tok.Line, tok.Col, "expected %s, found %s", t, tok.Type)
	}
	return p.advance(), nil
}

// skipSeparators consumes any run of semicolons. Semicolons are optional
// statement separators.
func (p *Parser) skipSeparators() {
	for p.cur().Type == TokenSemicolon {
		p.advance()
	}
}

// ParseProgram parses the whole token stream.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	p.skipSeparators()
	for p.cur().Type != TokenEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
		p.skipSeparators()
	}
	return prog, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.cur().Type {
	case TokenLet:
		return p.parseLet()
	case TokenReturn:
		return p.parseReturn()
	default:
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Value: expr}, nil
	}
}

func (p *Parser) parseLet() (Stmt, error) {
	letTok := p.advance()
	nameTok, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &LetStmt{Name: nameTok.Literal, Value: value, Line: letTok.Line, Col: letTok.Col}, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	retTok := p.advance()
	stmt := &ReturnStmt{Line: retTok.Line, Col: retTok.Col}
	// A bare return is followed by a separator or closing brace.
	if t := p.cur().Type; t != TokenSemicolon && t != TokenRBrace && t != TokenEOF {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	return stmt, nil
}

// parseExpr parses additive expressions (lowest precedence).
func (p *Parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == TokenPlus || p.cur().Type == TokenMinus {
		opTok := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: opTok.Type, Left: left, Right: right, Line: opTok.Line, Col: opTok.Col}
	}
	return left, nil
}

// parseTerm parses multiplicative expressions.
func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == TokenStar {
		opTok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: opTok.Type, Left: left, Right: right, Line: opTok.Line, Col: opTok.Col}
	}
	return left, nil
}

// parseUnary parses a primary expression with any trailing call suffixes.
func (p *Parser) parseUnary() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == TokenLParen {
		openTok := p.advance()
		var args []Expr
		for p.cur().Type != TokenRParen {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().Type != TokenComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		expr = &CallExpr{Callee: expr, Args: args, Line: openTok.Line, Col: openTok.Col}
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case TokenInt:
		p.advance()
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, errorAt(tok.Line, tok.Col, "invalid integer literal %q", tok.Literal)
		}
		return &IntLit{Value: n, Line: tok.Line, Col: tok.Col}, nil

	case TokenString:
		p.advance()
		return &StringLit{Value: tok.Literal, Line: tok.Line, Col: tok.Col}, nil

	case TokenIdent:
		p.advance()
		return &Ident{Name: tok.Literal, Line: tok.Line, Col: tok.Col}, nil

	case TokenFn:
		return p.parseFnLit()

	case TokenLParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, errorAt(tok.Line, tok.Col, "unexpected %s in expression", tok.Type)
	}
}

func (p *Parser) parseFnLit() (Expr, error) {
	fnTok := p.advance()
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var params []string
	for p.cur().Type != TokenRParen {
		nameTok, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		params = append(params, nameTok.Literal)
		if p.cur().Type != TokenComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}

	var body []Stmt
	p.skipSeparators()
	for p.cur().Type != TokenRBrace {
		if p.cur().Type == TokenEOF {
			return nil, errorAt(fnTok.Line, fnTok.Col, "unterminated function body")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
		p.skipSeparators()
	}
	p.advance() // consume '}'

	return &FnLit{Params: params, Body: body, Line: fnTok.Line, Col: fnTok.Col}, nil
}
