package script

import (
	"errors"
	"testing"

	"github.com/fusabi-lang/fusabi-host/bytecode"
	"github.com/fusabi-lang/fusabi-host/compiler"
)

func container(t *testing.T, source string) []byte {
	t.Helper()
	chunk, err := compiler.Compile("test", source)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	data, err := bytecode.EncodeContainer(chunk, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestStore_InstallAssignsGenerations(t *testing.T) {
	s := NewStore()
	data := container(t, `let a = 1`)

	first := s.Install(New("scripts/a.fsx", "a", data))
	if first.Generation != 0 {
		t.Errorf("first install generation: got %d, want 0", first.Generation)
	}

	second := s.Install(New("scripts/a.fsx", "a", data))
	if second.Generation != 1 {
		t.Errorf("second install generation: got %d, want 1", second.Generation)
	}

	// The store, not the caller, owns the counter.
	forged := New("scripts/a.fsx", "a", data)
	forged.Generation = 99
	third := s.Install(forged)
	if third.Generation != 2 {
		t.Errorf("third install generation: got %d, want 2", third.Generation)
	}

	got, ok := s.Get("scripts/a.fsx")
	if !ok {
		t.Fatal("artifact not found after install")
	}
	if got.Generation != 2 {
		t.Errorf("stored generation: got %d, want 2", got.Generation)
	}
}

func TestStore_ChunkIsCachedUntilReplaced(t *testing.T) {
	s := NewStore()
	s.Install(New("a", "a", container(t, `let a = 1`)))

	c1, err := s.Chunk("a")
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	c2, err := s.Chunk("a")
	if err != nil {
		t.Fatalf("Chunk (cached): %v", err)
	}
	if c1 != c2 {
		t.Error("repeated Chunk calls should return the cached chunk")
	}

	s.Install(New("a", "a", container(t, `let a = 2`)))
	c3, err := s.Chunk("a")
	if err != nil {
		t.Fatalf("Chunk (after replace): %v", err)
	}
	if c3 == c1 {
		t.Error("replacing the artifact must drop the cached chunk")
	}
}

func TestStore_ChunkUnknownID(t *testing.T) {
	s := NewStore()
	if _, err := s.Chunk("missing"); err == nil {
		t.Error("expected error for unknown ID")
	}
}

func TestStore_RemoveLeavesTombstone(t *testing.T) {
	s := NewStore()
	s.Install(New("a", "a", container(t, `let a = 1`)))

	if !s.Remove("a") {
		t.Fatal("Remove returned false for an installed artifact")
	}
	if _, ok := s.Get("a"); ok {
		t.Error("artifact still present after Remove")
	}
	if !s.Removed("a") {
		t.Error("expected a tombstone after Remove")
	}
	if s.Removed("never-loaded") {
		t.Error("an ID that was never installed must not look removed")
	}
	if s.Remove("a") {
		t.Error("second Remove should return false")
	}

	// Re-adding clears the tombstone and continues the generation counter.
	a := s.Install(New("a", "a", container(t, `let a = 2`)))
	if s.Removed("a") {
		t.Error("tombstone should be cleared by reinstall")
	}
	if a.Generation != 1 {
		t.Errorf("generation after reinstall: got %d, want 1", a.Generation)
	}
}

func TestStore_GenerationsSurviveRemoval(t *testing.T) {
	s := NewStore()
	data := container(t, `let a = 1`)

	s.Install(New("a", "a", data)) // generation 0
	s.Install(New("a", "a", data)) // generation 1
	s.Remove("a")

	a := s.Install(New("a", "a", data))
	if a.Generation != 2 {
		t.Errorf("generation after remove and re-add: got %d, want 2", a.Generation)
	}

	// The counter keeps advancing from there.
	b := s.Install(New("a", "a", data))
	if b.Generation != 3 {
		t.Errorf("generation after replace: got %d, want 3", b.Generation)
	}
}

func TestStore_RemoveNeverInstalledRecordsTombstone(t *testing.T) {
	s := NewStore()

	if s.Remove("ghost") {
		t.Error("Remove returned true for an ID that was never installed")
	}
	if !s.Removed("ghost") {
		t.Error("expected a tombstone even when nothing was installed")
	}

	// A later install still starts at generation zero.
	a := s.Install(New("ghost", "ghost", container(t, `let a = 1`)))
	if a.Generation != 0 {
		t.Errorf("generation: got %d, want 0", a.Generation)
	}
	if s.Removed("ghost") {
		t.Error("tombstone should be cleared by install")
	}
}

func TestArtifact_ChunkDeserializeError(t *testing.T) {
	a := New("bad", "bad", []byte("FZBC not a real container"))
	_, err := a.Chunk()
	if err == nil {
		t.Fatal("expected a deserialize error")
	}
	var derr *DeserializeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DeserializeError, got %T: %v", err, err)
	}
}

func TestArtifact_ChunkIsDeterministic(t *testing.T) {
	data := container(t, `let a = 1 + 2`)
	a := New("a", "a", data)

	c1, err := a.Chunk()
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	c2, err := a.Chunk()
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if c1.Name != c2.Name || len(c1.Main.Code) != len(c2.Main.Code) {
		t.Error("repeated materialization should yield structurally equal chunks")
	}
}

func TestStore_IDsAndLen(t *testing.T) {
	s := NewStore()
	data := container(t, `let a = 1`)
	s.Install(New("a", "a", data))
	s.Install(New("b", "b", data))

	if s.Len() != 2 {
		t.Errorf("Len: got %d, want 2", s.Len())
	}
	ids := s.IDs()
	if len(ids) != 2 {
		t.Errorf("IDs: got %d entries, want 2", len(ids))
	}
}
