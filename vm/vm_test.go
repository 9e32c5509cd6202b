package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fusabi-lang/fusabi-host/bytecode"
	"github.com/fusabi-lang/fusabi-host/compiler"
)

func mustCompile(t *testing.T, source string) *bytecode.Chunk {
	t.Helper()
	chunk, err := compiler.Compile("test", source)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return chunk
}

func TestVM_PrintOutput(t *testing.T) {
	var out bytes.Buffer
	v := New()
	v.Stdout = &out

	chunk := mustCompile(t, `
let greeting = "Hello, "
let greet = fn(name) {
	return greeting + name
}
print(greet("world"))
`)
	if _, err := v.Execute(chunk); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.String(); got != "Hello, world\n" {
		t.Errorf("output: got %q, want %q", got, "Hello, world\n")
	}
}

func TestVM_Arithmetic(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"print(1 + 2)", "3\n"},
		{"print(10 - 4)", "6\n"},
		{"print(3 * 7)", "21\n"},
		{"print(1 + 2 * 3)", "7\n"},
		{`print("a" + "b")`, "ab\n"},
		{`print(str(42) + "!")`, "42!\n"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			var out bytes.Buffer
			v := New()
			v.Stdout = &out
			if _, err := v.Execute(mustCompile(t, tt.source)); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("got %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestVM_GlobalsPersistAcrossExecutions(t *testing.T) {
	v := New()
	v.Stdout = new(bytes.Buffer)

	if _, err := v.Execute(mustCompile(t, `let counter = 41`)); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	var out bytes.Buffer
	v.Stdout = &out
	if _, err := v.Execute(mustCompile(t, `print(counter + 1)`)); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if out.String() != "42\n" {
		t.Errorf("got %q, want %q", out.String(), "42\n")
	}
}

func TestVM_HostBuiltin(t *testing.T) {
	v := New()
	v.Stdout = new(bytes.Buffer)

	var got []Value
	v.DefineGlobal("record", &Builtin{
		Name: "record",
		Fn: func(vm *VM, args []Value) (Value, error) {
			got = append(got, args...)
			return nil, nil
		},
	})

	if _, err := v.Execute(mustCompile(t, `record(1, "two")`)); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(got) != 2 || got[0] != int64(1) || got[1] != "two" {
		t.Errorf("builtin args: got %v", got)
	}
}

func TestVM_Traps(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"undefined global", "print(nope)", "undefined global"},
		{"not callable", `let x = 1; x()`, "not callable"},
		{"arity mismatch", `let f = fn(a) { return a }; f(1, 2)`, "expects 1 arguments, got 2"},
		{"type mismatch", `print(1 + "a")`, "cannot apply"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Stdout = new(bytes.Buffer)
			_, err := v.Execute(mustCompile(t, tt.source))
			if err == nil {
				t.Fatal("expected a trap")
			}
			var trap *Trap
			if !errors.As(err, &trap) {
				t.Fatalf("expected *Trap, got %T: %v", err, err)
			}
			if !strings.Contains(trap.Msg, tt.wantMsg) {
				t.Errorf("trap %q does not contain %q", trap.Msg, tt.wantMsg)
			}
			if trap.Chunk != "test" {
				t.Errorf("trap chunk: got %q, want %q", trap.Chunk, "test")
			}
		})
	}
}

func TestVM_CallDepthLimit(t *testing.T) {
	v := New()
	v.Stdout = new(bytes.Buffer)

	// A function calling itself through its global name recurses without
	// bound; the VM must trap instead of overflowing.
	_, err := v.Execute(mustCompile(t, `
let loop = fn() { return loop() }
loop()
`))
	if err == nil {
		t.Fatal("expected a trap")
	}
	var trap *Trap
	if !errors.As(err, &trap) {
		t.Fatalf("expected *Trap, got %T", err)
	}
	if !strings.Contains(trap.Msg, "call depth") {
		t.Errorf("trap %q does not mention call depth", trap.Msg)
	}
}

func TestVM_BuiltinErrorBecomesTrap(t *testing.T) {
	v := New()
	v.Stdout = new(bytes.Buffer)

	_, err := v.Execute(mustCompile(t, `str(1, 2)`))
	var trap *Trap
	if !errors.As(err, &trap) {
		t.Fatalf("expected *Trap, got %T: %v", err, err)
	}
	if !strings.Contains(trap.Msg, "str expects 1 argument") {
		t.Errorf("trap %q does not carry the builtin failure", trap.Msg)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{nil, "nil"},
		{int64(7), "7"},
		{"s", "s"},
		{&bytecode.Function{Name: "f"}, "<fn f>"},
		{&bytecode.Function{}, "<fn>"},
		{&Builtin{Name: "print"}, "<builtin print>"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
