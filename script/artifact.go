// Package script holds compiled script artifacts: their identity, bytecode,
// generation counter, and the store that tracks them across hot reloads.
package script

import (
	"github.com/fusabi-lang/fusabi-host/bytecode"
)

// ArtifactID is the stable identity of a script, tied to its originating
// path and independent of content.
type ArtifactID string

// Artifact is one compiled script. The bytecode is an encoded .fzb
// container and never mutates in place: a content change produces a new
// Artifact under the same ID with a higher generation.
type Artifact struct {
	ID         ArtifactID
	Name       string
	Generation uint64
	Bytecode   []byte
}

// New creates a generation-zero artifact. The Store assigns the effective
// generation when the artifact is installed.
func New(id ArtifactID, name string, container []byte) *Artifact {
	return &Artifact{
		ID:       id,
		Name:     name,
		Bytecode: container,
	}
}

// Chunk materializes the executable form of the artifact's bytecode. It is
// a pure function of the bytecode bytes: repeated calls yield structurally
// equal chunks. Failures are *DeserializeError.
func (a *Artifact) Chunk() (*bytecode.Chunk, error) {
	c, _, err := bytecode.DecodeContainer(a.Bytecode)
	if err != nil {
		return nil, &DeserializeError{Reason: "cannot decode container for " + a.Name, Err: err}
	}
	return c, nil
}
