package compiler

import (
	"github.com/fusabi-lang/fusabi-host/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to bytecode
// ---------------------------------------------------------------------------

// Operand limits imposed by the instruction encoding.
const (
	maxConstants = 1 << 16
	maxLocals    = 1 << 8
	maxCallArgs  = 255
)

// Compile compiles Fusabi source to an executable chunk. The name becomes
// the chunk name (usually the script's path stem). The returned error is a
// *Error carrying the source position of the first failure.
func Compile(name, source string) (*bytecode.Chunk, error) {
	tokens, err := NewLexer(source).Tokenize()
	if err != nil {
		return nil, err
	}
	prog, err := NewParser(tokens).ParseProgram()
	if err != nil {
		return nil, err
	}

	main, err := compileFunction(name, nil, prog.Statements, true)
	if err != nil {
		return nil, err
	}
	return &bytecode.Chunk{Name: name, Main: main}, nil
}

// funcScope tracks the state of one function being compiled.
type funcScope struct {
	fn       *bytecode.Function
	topLevel bool
	locals   map[string]int // name -> slot (params first, then lets)

	// Constant pool dedup for int and string constants.
	intConsts map[int64]int
	strConsts map[string]int
}

func compileFunction(name string, params []string, body []Stmt, topLevel bool) (*bytecode.Function, error) {
	s := &funcScope{
		fn: &bytecode.Function{
			Name:  name,
			Arity: len(params),
		},
		topLevel:  topLevel,
		locals:    make(map[string]int),
		intConsts: make(map[int64]int),
		strConsts: make(map[string]int),
	}
	for i, p := range params {
		if _, ok := s.locals[p]; ok {
			return nil, errorAt(0, 0, "duplicate parameter %q in function %q", p, name)
		}
		s.locals[p] = i
	}

	for _, stmt := range body {
		if err := s.compileStmt(stmt); err != nil {
			return nil, err
		}
	}

	// Implicit return of nil at the end of every function.
	s.emit(bytecode.OpNil)
	s.emit(bytecode.OpReturn)
	return s.fn, nil
}

func (s *funcScope) compileStmt(stmt Stmt) error {
	switch st := stmt.(type) {
	case *LetStmt:
		if err := s.compileExpr(st.Value); err != nil {
			return err
		}
		if s.topLevel {
			idx, err := s.addStringConst(st.Name, st.Line, st.Col)
			if err != nil {
				return err
			}
			s.emitU16(bytecode.OpDefGlobal, uint16(idx))
			return nil
		}
		if _, ok := s.locals[st.Name]; ok {
			return errorAt(st.Line, st.Col, "%q is already defined in this function", st.Name)
		}
		slot := s.fn.Arity + s.fn.NumLocals
		if slot >= maxLocals {
			return errorAt(st.Line, st.Col, "too many locals in function %q", s.fn.Name)
		}
		s.fn.NumLocals++
		s.locals[st.Name] = slot
		s.emitU8(bytecode.OpSetLocal, uint8(slot))
		return nil

	case *ReturnStmt:
		if s.topLevel {
			return errorAt(st.Line, st.Col, "return outside of a function")
		}
		if st.Value != nil {
			if err := s.compileExpr(st.Value); err != nil {
				return err
			}
		} else {
			s.emit(bytecode.OpNil)
		}
		s.emit(bytecode.OpReturn)
		return nil

	case *ExprStmt:
		if err := s.compileExpr(st.Value); err != nil {
			return err
		}
		s.emit(bytecode.OpPop)
		return nil

	default:
		line, col := stmt.Pos()
		return errorAt(line, col, "unsupported statement")
	}
}

func (s *funcScope) compileExpr(expr Expr) error {
	switch e := expr.(type) {
	case *IntLit:
		idx, err := s.addIntConst(e.Value, e.Line, e.Col)
		if err != nil {
			return err
		}
		s.emitU16(bytecode.OpConst, uint16(idx))
		return nil

	case *StringLit:
		idx, err := s.addStringConst(e.Value, e.Line, e.Col)
		if err != nil {
			return err
		}
		s.emitU16(bytecode.OpConst, uint16(idx))
		return nil

	case *Ident:
		if slot, ok := s.locals[e.Name]; ok {
			s.emitU8(bytecode.OpGetLocal, uint8(slot))
			return nil
		}
		idx, err := s.addStringConst(e.Name, e.Line, e.Col)
		if err != nil {
			return err
		}
		s.emitU16(bytecode.OpGetGlobal, uint16(idx))
		return nil

	case *BinaryExpr:
		if err := s.compileExpr(e.Left); err != nil {
			return err
		}
		if err := s.compileExpr(e.Right); err != nil {
			return err
		}
		switch e.Op {
		case TokenPlus:
			s.emit(bytecode.OpAdd)
		case TokenMinus:
			s.emit(bytecode.OpSub)
		case TokenStar:
			s.emit(bytecode.OpMul)
		default:
			return errorAt(e.Line, e.Col, "unsupported operator %s", e.Op)
		}
		return nil

	case *CallExpr:
		if len(e.Args) > maxCallArgs {
			return errorAt(e.Line, e.Col, "too many call arguments (max %d)", maxCallArgs)
		}
		if err := s.compileExpr(e.Callee); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := s.compileExpr(arg); err != nil {
				return err
			}
		}
		s.emitU8(bytecode.OpCall, uint8(len(e.Args)))
		return nil

	case *FnLit:
		fn, err := compileFunction("", e.Params, e.Body, false)
		if err != nil {
			return err
		}
		idx, err := s.addConst(bytecode.Constant{Kind: bytecode.ConstFunction, Fn: fn}, e.Line, e.Col)
		if err != nil {
			return err
		}
		s.emitU16(bytecode.OpConst, uint16(idx))
		return nil

	default:
		line, col := expr.Pos()
		return errorAt(line, col, "unsupported expression")
	}
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (s *funcScope) emit(op bytecode.Opcode) {
	s.fn.Code = append(s.fn.Code, byte(op))
}

func (s *funcScope) emitU8(op bytecode.Opcode, operand uint8) {
	s.fn.Code = append(s.fn.Code, byte(op), operand)
}

func (s *funcScope) emitU16(op bytecode.Opcode, operand uint16) {
	var buf [2]byte
	bytecode.WriteUint16(buf[:], operand)
	s.fn.Code = append(s.fn.Code, byte(op), buf[0], buf[1])
}

func (s *funcScope) addConst(k bytecode.Constant, line, col int) (int, error) {
	if len(s.fn.Constants) >= maxConstants {
		return 0, errorAt(line, col, "too many constants in function %q", s.fn.Name)
	}
	s.fn.Constants = append(s.fn.Constants, k)
	return len(s.fn.Constants) - 1, nil
}

func (s *funcScope) addIntConst(v int64, line, col int) (int, error) {
	if idx, ok := s.intConsts[v]; ok {
		return idx, nil
	}
	idx, err := s.addConst(bytecode.Constant{Kind: bytecode.ConstInt, Int: v}, line, col)
	if err != nil {
		return 0, err
	}
	s.intConsts[v] = idx
	return idx, nil
}

func (s *funcScope) addStringConst(v string, line, col int) (int, error) {
	if idx, ok := s.strConsts[v]; ok {
		return idx, nil
	}
	idx, err := s.addConst(bytecode.Constant{Kind: bytecode.ConstString, Str: v}, line, col)
	if err != nil {
		return 0, err
	}
	s.strConsts[v] = idx
	return idx, nil
}
