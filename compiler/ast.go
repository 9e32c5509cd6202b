package compiler

// ---------------------------------------------------------------------------
// AST node definitions
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() (line, col int)
}

// Program is the root node: a sequence of statements.
type Program struct {
	Statements []Stmt
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// LetStmt is `let name = value`. At the top level it defines a global;
// inside a function body it defines a local.
type LetStmt struct {
	Name  string
	Value Expr
	Line  int
	Col   int
}

// ReturnStmt is `return` with an optional value.
type ReturnStmt struct {
	Value Expr // nil for a bare return
	Line  int
	Col   int
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Value Expr
}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	Line  int
	Col   int
}

// StringLit is a string literal.
type StringLit struct {
	Value string
	Line  int
	Col   int
}

// Ident is a variable reference.
type Ident struct {
	Name string
	Line int
	Col  int
}

// BinaryExpr is `left op right` where op is +, - or *.
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
	Line  int
	Col   int
}

// CallExpr is `callee(args...)`.
type CallExpr struct {
	Callee Expr
	Args   []Expr
	Line   int
	Col    int
}

// FnLit is a function literal: `fn(params) { body }`. Function literals do
// not capture enclosing locals; free names resolve to globals.
type FnLit struct {
	Params []string
	Body   []Stmt
	Line   int
	Col    int
}

func (s *LetStmt) stmtNode()    {}
func (s *ReturnStmt) stmtNode() {}
func (s *ExprStmt) stmtNode()   {}

func (e *IntLit) exprNode()     {}
func (e *StringLit) exprNode()  {}
func (e *Ident) exprNode()      {}
func (e *BinaryExpr) exprNode() {}
func (e *CallExpr) exprNode()   {}
func (e *FnLit) exprNode()      {}

func (s *LetStmt) Pos() (int, int)    { return s.Line, s.Col }
func (s *ReturnStmt) Pos() (int, int) { return s.Line, s.Col }
func (s *ExprStmt) Pos() (int, int)   { return s.Value.Pos() }
func (e *IntLit) Pos() (int, int)     { return e.Line, e.Col }
func (e *StringLit) Pos() (int, int)  { return e.Line, e.Col }
func (e *Ident) Pos() (int, int)      { return e.Line, e.Col }
func (e *BinaryExpr) Pos() (int, int) { return e.Line, e.Col }
func (e *CallExpr) Pos() (int, int)   { return e.Line, e.Col }
func (e *FnLit) Pos() (int, int)      { return e.Line, e.Col }
