// Package vm implements a small stack machine executing bytecode chunks.
// Each VM instance is single-threaded and must not be shared between
// concurrent callers; the runner package hands out exclusive leases.
package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fusabi-lang/fusabi-host/bytecode"
)

// maxCallDepth bounds recursion before the VM traps.
const maxCallDepth = 1024

// VM executes bytecode chunks. Globals persist across Execute calls so a
// re-executed script sees a fresh run but the same host builtins.
type VM struct {
	// Stdout receives print output. Defaults to os.Stdout.
	Stdout io.Writer

	globals map[string]Value
	stack   []Value
	frames  []frame
}

type frame struct {
	fn     *bytecode.Function
	ip     int
	locals []Value
}

// New creates a VM with the standard builtins registered.
func New() *VM {
	vm := &VM{
		Stdout:  os.Stdout,
		globals: make(map[string]Value),
	}
	vm.registerBuiltins()
	return vm
}

func (vm *VM) registerBuiltins() {
	vm.globals["print"] = &Builtin{
		Name: "print",
		Fn: func(vm *VM, args []Value) (Value, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = FormatValue(a)
			}
			fmt.Fprintln(vm.Stdout, strings.Join(parts, " "))
			return nil, nil
		},
	}
	vm.globals["str"] = &Builtin{
		Name: "str",
		Fn: func(vm *VM, args []Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("str expects 1 argument, got %d", len(args))
			}
			return FormatValue(args[0]), nil
		},
	}
}

// DefineGlobal installs a host-provided global, typically a Builtin.
func (vm *VM) DefineGlobal(name string, v Value) {
	vm.globals[name] = v
}

// Execute runs a chunk to completion and returns the value produced by its
// top level. Execution failures are returned as *Trap errors.
func (vm *VM) Execute(c *bytecode.Chunk) (Value, error) {
	if c == nil || c.Main == nil {
		return nil, &Trap{Msg: "empty chunk"}
	}

	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.frames = append(vm.frames, frame{
		fn:     c.Main,
		locals: make([]Value, c.Main.Arity+c.Main.NumLocals),
	})

	v, err := vm.run()
	if err != nil {
		if trap, ok := err.(*Trap); ok && trap.Chunk == "" {
			trap.Chunk = c.Name
		}
		return nil, err
	}
	return v, nil
}

func (vm *VM) run() (Value, error) {
	for {
		f := &vm.frames[len(vm.frames)-1]
		if f.ip >= len(f.fn.Code) {
			return nil, &Trap{Msg: fmt.Sprintf("ran off end of code in %q", f.fn.Name)}
		}
		op := bytecode.Opcode(f.fn.Code[f.ip])
		f.ip++

		switch op {
		case bytecode.OpNop:

		case bytecode.OpConst:
			idx, err := vm.readU16(f)
			if err != nil {
				return nil, err
			}
			if int(idx) >= len(f.fn.Constants) {
				return nil, &Trap{Msg: fmt.Sprintf("constant index %d out of range", idx)}
			}
			vm.push(constValue(f.fn.Constants[idx]))

		case bytecode.OpPop:
			if _, err := vm.pop(); err != nil {
				return nil, err
			}

		case bytecode.OpNil:
			vm.push(nil)

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul:
			if err := vm.binaryOp(op); err != nil {
				return nil, err
			}

		case bytecode.OpGetLocal:
			slot, err := vm.readU8(f)
			if err != nil {
				return nil, err
			}
			if int(slot) >= len(f.locals) {
				return nil, &Trap{Msg: fmt.Sprintf("local slot %d out of range", slot)}
			}
			vm.push(f.locals[slot])

		case bytecode.OpSetLocal:
			slot, err := vm.readU8(f)
			if err != nil {
				return nil, err
			}
			if int(slot) >= len(f.locals) {
				return nil, &Trap{Msg: fmt.Sprintf("local slot %d out of range", slot)}
			}
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			f.locals[slot] = v

		case bytecode.OpGetGlobal:
			name, err := vm.readGlobalName(f)
			if err != nil {
				return nil, err
			}
			v, ok := vm.globals[name]
			if !ok {
				return nil, &Trap{Msg: fmt.Sprintf("undefined global %q", name)}
			}
			vm.push(v)

		case bytecode.OpDefGlobal:
			name, err := vm.readGlobalName(f)
			if err != nil {
				return nil, err
			}
			v, err := vm.pop()
			if err != nil {
				return nil, err
			}
			vm.globals[name] = v

		case bytecode.OpCall:
			argc, err := vm.readU8(f)
			if err != nil {
				return nil, err
			}
			if err := vm.call(int(argc)); err != nil {
				return nil, err
			}

		case bytecode.OpReturn:
			ret, err := vm.pop()
			if err != nil {
				return nil, err
			}
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				return ret, nil
			}
			vm.push(ret)

		default:
			return nil, &Trap{Msg: fmt.Sprintf("unknown opcode 0x%02X", byte(op))}
		}
	}
}

// call invokes the callee sitting below argc arguments on the stack.
func (vm *VM) call(argc int) error {
	calleeIdx := len(vm.stack) - argc - 1
	if calleeIdx < 0 {
		return &Trap{Msg: "stack underflow in call"}
	}
	callee := vm.stack[calleeIdx]
	args := make([]Value, argc)
	copy(args, vm.stack[calleeIdx+1:])

	switch fn := callee.(type) {
	case *bytecode.Function:
		if argc != fn.Arity {
			return &Trap{Msg: fmt.Sprintf("function %q expects %d arguments, got %d", fn.Name, fn.Arity, argc)}
		}
		if len(vm.frames) >= maxCallDepth {
			return &Trap{Msg: "call depth exceeded"}
		}
		locals := make([]Value, fn.Arity+fn.NumLocals)
		copy(locals, args)
		vm.stack = vm.stack[:calleeIdx]
		vm.frames = append(vm.frames, frame{fn: fn, locals: locals})
		return nil

	case *Builtin:
		result, err := fn.Fn(vm, args)
		if err != nil {
			if trap, ok := err.(*Trap); ok {
				return trap
			}
			return &Trap{Msg: fmt.Sprintf("builtin %s: %v", fn.Name, err)}
		}
		vm.stack = vm.stack[:calleeIdx]
		vm.push(result)
		return nil

	default:
		return &Trap{Msg: fmt.Sprintf("%s is not callable", typeName(callee))}
	}
}

func (vm *VM) binaryOp(op bytecode.Opcode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}

	if op == bytecode.OpAdd {
		if as, ok := a.(string); ok {
			if bs, ok := b.(string); ok {
				vm.push(as + bs)
				return nil
			}
		}
	}
	ai, aok := a.(int64)
	bi, bok := b.(int64)
	if !aok || !bok {
		return &Trap{Msg: fmt.Sprintf("cannot apply %s to %s and %s", op, typeName(a), typeName(b))}
	}
	switch op {
	case bytecode.OpAdd:
		vm.push(ai + bi)
	case bytecode.OpSub:
		vm.push(ai - bi)
	case bytecode.OpMul:
		vm.push(ai * bi)
	}
	return nil
}

func constValue(k bytecode.Constant) Value {
	switch k.Kind {
	case bytecode.ConstInt:
		return k.Int
	case bytecode.ConstFloat:
		return k.Float
	case bytecode.ConstString:
		return k.Str
	case bytecode.ConstFunction:
		return k.Fn
	default:
		return nil
	}
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() (Value, error) {
	if len(vm.stack) == 0 {
		return nil, &Trap{Msg: "stack underflow"}
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) readU8(f *frame) (uint8, error) {
	if f.ip >= len(f.fn.Code) {
		return 0, &Trap{Msg: "truncated operand"}
	}
	v := f.fn.Code[f.ip]
	f.ip++
	return v, nil
}

func (vm *VM) readU16(f *frame) (uint16, error) {
	if f.ip+2 > len(f.fn.Code) {
		return 0, &Trap{Msg: "truncated operand"}
	}
	v := bytecode.ReadUint16(f.fn.Code[f.ip:])
	f.ip += 2
	return v, nil
}

func (vm *VM) readGlobalName(f *frame) (string, error) {
	idx, err := vm.readU16(f)
	if err != nil {
		return "", err
	}
	if int(idx) >= len(f.fn.Constants) {
		return "", &Trap{Msg: fmt.Sprintf("global name index %d out of range", idx)}
	}
	k := f.fn.Constants[idx]
	if k.Kind != bytecode.ConstString {
		return "", &Trap{Msg: fmt.Sprintf("global name constant %d is not a string", idx)}
	}
	return k.Str, nil
}
