package bytecode

import (
	"bytes"
	"errors"
	"testing"
)

func testChunk() *Chunk {
	greet := &Function{
		Name:  "greet",
		Arity: 1,
		Code: []byte{
			byte(OpConst), 0, 0, // "Hello, "
			byte(OpGetLocal), 0,
			byte(OpAdd),
			byte(OpReturn),
		},
		Constants: []Constant{
			{Kind: ConstString, Str: "Hello, "},
		},
	}
	return &Chunk{
		Name: "greeting",
		Main: &Function{
			Code: []byte{
				byte(OpConst), 0, 0, // fn greet
				byte(OpDefGlobal), 1, 0,
				byte(OpNil),
				byte(OpReturn),
			},
			Constants: []Constant{
				{Kind: ConstFunction, Fn: greet},
				{Kind: ConstString, Str: "greet"},
			},
		},
	}
}

func TestContainer_RoundTrip(t *testing.T) {
	c := testChunk()

	data, err := EncodeContainer(c, 1700000000)
	if err != nil {
		t.Fatalf("EncodeContainer: %v", err)
	}

	got, header, err := DecodeContainer(data)
	if err != nil {
		t.Fatalf("DecodeContainer: %v", err)
	}
	if header.Magic != ContainerMagic {
		t.Errorf("Magic: got %q, want %q", header.Magic, ContainerMagic)
	}
	if header.Version != ContainerVersion {
		t.Errorf("Version: got %d, want %d", header.Version, ContainerVersion)
	}
	if header.Timestamp != 1700000000 {
		t.Errorf("Timestamp: got %d, want 1700000000", header.Timestamp)
	}
	if got.Name != c.Name {
		t.Errorf("Name: got %q, want %q", got.Name, c.Name)
	}
	if !bytes.Equal(got.Main.Code, c.Main.Code) {
		t.Error("Main code mismatch after round trip")
	}
	if len(got.Main.Constants) != 2 {
		t.Fatalf("Constants: got %d, want 2", len(got.Main.Constants))
	}
	fn := got.Main.Constants[0].Fn
	if fn == nil || fn.Name != "greet" || fn.Arity != 1 {
		t.Errorf("nested function not preserved: %+v", fn)
	}
}

func TestContainer_InvalidMagic(t *testing.T) {
	data, err := EncodeContainer(testChunk(), 0)
	if err != nil {
		t.Fatalf("EncodeContainer: %v", err)
	}
	copy(data[0:4], "NOPE")

	if _, _, err := DecodeContainer(data); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestContainer_VersionMismatch(t *testing.T) {
	data, err := EncodeContainer(testChunk(), 0)
	if err != nil {
		t.Fatalf("EncodeContainer: %v", err)
	}
	data[4] = 99 // bump version field

	if _, _, err := DecodeContainer(data); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestContainer_Truncated(t *testing.T) {
	if _, _, err := DecodeContainer([]byte("FZB")); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestContainer_CorruptPayload(t *testing.T) {
	data, err := EncodeContainer(testChunk(), 0)
	if err != nil {
		t.Fatalf("EncodeContainer: %v", err)
	}
	corrupt := append([]byte{}, data[:HeaderSize]...)
	corrupt = append(corrupt, 0xFF, 0xFF, 0xFF)

	if _, _, err := DecodeContainer(corrupt); err == nil {
		t.Error("expected error for corrupt payload")
	}
}

func TestContainer_EqualIgnoringHeader(t *testing.T) {
	c := testChunk()

	a, err := EncodeContainer(c, 1000)
	if err != nil {
		t.Fatalf("EncodeContainer: %v", err)
	}
	b, err := EncodeContainer(c, 2000)
	if err != nil {
		t.Fatalf("EncodeContainer: %v", err)
	}

	if bytes.Equal(a, b) {
		t.Error("containers with different timestamps should differ bytewise")
	}
	if !EqualIgnoringHeader(a, b) {
		t.Error("payloads should be equal when only the timestamp differs")
	}

	other := testChunk()
	other.Main.Constants[1].Str = "farewell"
	d, err := EncodeContainer(other, 1000)
	if err != nil {
		t.Fatalf("EncodeContainer: %v", err)
	}
	if EqualIgnoringHeader(a, d) {
		t.Error("different chunks should not compare equal")
	}
}

func TestChunk_InstructionCount(t *testing.T) {
	c := testChunk()

	n, err := c.InstructionCount()
	if err != nil {
		t.Fatalf("InstructionCount: %v", err)
	}
	if n != 4 {
		t.Errorf("InstructionCount: got %d, want 4", n)
	}

	// Counting is stable across calls.
	again, err := c.InstructionCount()
	if err != nil {
		t.Fatalf("InstructionCount (second call): %v", err)
	}
	if again != n {
		t.Errorf("InstructionCount changed between calls: %d then %d", n, again)
	}
}

func TestFunction_InstructionCountErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"unknown opcode", []byte{0xEE}},
		{"truncated operand", []byte{byte(OpConst), 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Function{Code: tt.code}
			if _, err := f.InstructionCount(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestChunk_ValidateRejectsBadConstantIndex(t *testing.T) {
	c := &Chunk{
		Name: "bad",
		Main: &Function{
			Code: []byte{byte(OpConst), 5, 0, byte(OpReturn)},
		},
	}
	if err := c.Validate(); err == nil {
		t.Error("expected validation error for out-of-range constant index")
	}
}

func TestChunk_ValidateRejectsNonStringGlobalName(t *testing.T) {
	c := &Chunk{
		Name: "bad",
		Main: &Function{
			Code: []byte{byte(OpGetGlobal), 0, 0, byte(OpReturn)},
			Constants: []Constant{
				{Kind: ConstInt, Int: 7},
			},
		},
	}
	if err := c.Validate(); err == nil {
		t.Error("expected validation error for non-string global name")
	}
}
