// Package bytecode defines the compiled form of a Fusabi script: the
// in-memory Chunk executed by the VM, its CBOR wire encoding, and the
// versioned .fzb container that wraps it on disk.
package bytecode

import "fmt"

// ConstKind identifies the kind of a constant-pool entry.
type ConstKind uint8

const (
	ConstInt      ConstKind = 1
	ConstFloat    ConstKind = 2
	ConstString   ConstKind = 3
	ConstFunction ConstKind = 4
)

// Constant is one constant-pool entry. Exactly one payload field is
// meaningful, selected by Kind.
type Constant struct {
	Kind  ConstKind `cbor:"1,keyasint"`
	Int   int64     `cbor:"2,keyasint,omitempty"`
	Float float64   `cbor:"3,keyasint,omitempty"`
	Str   string    `cbor:"4,keyasint,omitempty"`
	Fn    *Function `cbor:"5,keyasint,omitempty"`
}

// Function is a compiled function body: its code stream plus the constant
// pool the code indexes into. The top level of a script is itself a Function
// with arity zero.
type Function struct {
	Name      string     `cbor:"1,keyasint,omitempty"`
	Arity     int        `cbor:"2,keyasint,omitempty"`
	NumLocals int        `cbor:"3,keyasint,omitempty"`
	Code      []byte     `cbor:"4,keyasint"`
	Constants []Constant `cbor:"5,keyasint,omitempty"`
}

// Chunk is the executable form of one script.
type Chunk struct {
	Name string    `cbor:"1,keyasint,omitempty"`
	Main *Function `cbor:"2,keyasint"`
}

// InstructionCount returns the number of instructions in the function's
// code stream. An unknown opcode or truncated operand yields an error.
func (f *Function) InstructionCount() (int, error) {
	count := 0
	for i := 0; i < len(f.Code); {
		op := Opcode(f.Code[i])
		width := OperandWidth(op)
		if width < 0 {
			return 0, fmt.Errorf("unknown opcode 0x%02X at offset %d", byte(op), i)
		}
		if i+1+width > len(f.Code) {
			return 0, fmt.Errorf("truncated operand for %s at offset %d", op, i)
		}
		i += 1 + width
		count++
	}
	return count, nil
}

// InstructionCount returns the instruction count of the chunk's top-level
// code stream.
func (c *Chunk) InstructionCount() (int, error) {
	if c.Main == nil {
		return 0, fmt.Errorf("chunk %q has no main function", c.Name)
	}
	return c.Main.InstructionCount()
}

// Validate checks the chunk's structure: every code stream must decode
// cleanly and every constant reference must be in range. Function constants
// are validated recursively.
func (c *Chunk) Validate() error {
	if c.Main == nil {
		return fmt.Errorf("chunk %q has no main function", c.Name)
	}
	return validateFunction(c.Main)
}

func validateFunction(f *Function) error {
	for i := 0; i < len(f.Code); {
		op := Opcode(f.Code[i])
		width := OperandWidth(op)
		if width < 0 {
			return fmt.Errorf("function %q: unknown opcode 0x%02X at offset %d", f.Name, byte(op), i)
		}
		if i+1+width > len(f.Code) {
			return fmt.Errorf("function %q: truncated operand for %s at offset %d", f.Name, op, i)
		}
		switch op {
		case OpConst:
			idx := int(ReadUint16(f.Code[i+1:]))
			if idx >= len(f.Constants) {
				return fmt.Errorf("function %q: constant index %d out of range at offset %d", f.Name, idx, i)
			}
		case OpGetGlobal, OpDefGlobal:
			idx := int(ReadUint16(f.Code[i+1:]))
			if idx >= len(f.Constants) {
				return fmt.Errorf("function %q: global name index %d out of range at offset %d", f.Name, idx, i)
			}
			if f.Constants[idx].Kind != ConstString {
				return fmt.Errorf("function %q: global name constant %d is not a string", f.Name, idx)
			}
		}
		i += 1 + width
	}
	for i, k := range f.Constants {
		if k.Kind == ConstFunction {
			if k.Fn == nil {
				return fmt.Errorf("function %q: constant %d is a nil function", f.Name, i)
			}
			if err := validateFunction(k.Fn); err != nil {
				return err
			}
		}
	}
	return nil
}
