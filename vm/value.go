package vm

import (
	"fmt"

	"github.com/fusabi-lang/fusabi-host/bytecode"
)

// Value is a runtime value: nil, int64, string, *bytecode.Function or
// *Builtin. Hosts treat values as opaque beyond success/failure.
type Value interface{}

// Builtin is a host function callable from script code.
type Builtin struct {
	Name string
	Fn   func(vm *VM, args []Value) (Value, error)
}

// Trap is a VM execution failure. It is distinct from compile and
// deserialize errors: a trap happens while running a valid chunk.
type Trap struct {
	Chunk string
	Msg   string
}

// Error implements the error interface.
func (t *Trap) Error() string {
	if t.Chunk == "" {
		return "trap: " + t.Msg
	}
	return fmt.Sprintf("trap in %q: %s", t.Chunk, t.Msg)
}

// FormatValue renders a value the way print displays it.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case string:
		return val
	case *bytecode.Function:
		if val.Name != "" {
			return fmt.Sprintf("<fn %s>", val.Name)
		}
		return "<fn>"
	case *Builtin:
		return fmt.Sprintf("<builtin %s>", val.Name)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func typeName(v Value) string {
	switch v.(type) {
	case nil:
		return "nil"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case *bytecode.Function, *Builtin:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}
