package bytecode

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Stack operations
const (
	OpNop   Opcode = 0x00 // no operation
	OpConst Opcode = 0x01 // push constant from pool (16-bit index)
	OpPop   Opcode = 0x02 // discard top of stack
	OpNil   Opcode = 0x03 // push nil
)

// Arithmetic
const (
	OpAdd Opcode = 0x10 // + (also string concatenation)
	OpSub Opcode = 0x11 // -
	OpMul Opcode = 0x12 // *
)

// Variable operations
const (
	OpGetLocal  Opcode = 0x20 // push local/argument (8-bit slot)
	OpSetLocal  Opcode = 0x21 // store into local (8-bit slot)
	OpGetGlobal Opcode = 0x22 // push global (16-bit name constant index)
	OpDefGlobal Opcode = 0x23 // define global from top of stack (16-bit name constant index)
)

// Calls
const (
	OpCall   Opcode = 0x30 // call callee below argc args (8-bit argc)
	OpReturn Opcode = 0x31 // return top of stack to caller
)

var opcodeNames = map[Opcode]string{
	OpNop:       "NOP",
	OpConst:     "CONST",
	OpPop:       "POP",
	OpNil:       "NIL",
	OpAdd:       "ADD",
	OpSub:       "SUB",
	OpMul:       "MUL",
	OpGetLocal:  "GET_LOCAL",
	OpSetLocal:  "SET_LOCAL",
	OpGetGlobal: "GET_GLOBAL",
	OpDefGlobal: "DEF_GLOBAL",
	OpCall:      "CALL",
	OpReturn:    "RETURN",
}

// String returns the mnemonic for the opcode.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
}

// OperandWidth returns the number of operand bytes following the opcode,
// or -1 for an unknown opcode.
func OperandWidth(op Opcode) int {
	switch op {
	case OpNop, OpPop, OpNil, OpAdd, OpSub, OpMul, OpReturn:
		return 0
	case OpGetLocal, OpSetLocal, OpCall:
		return 1
	case OpConst, OpGetGlobal, OpDefGlobal:
		return 2
	default:
		return -1
	}
}
