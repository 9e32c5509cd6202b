// Package loader turns raw script input into validated artifacts. It is the
// only place compile and deserialize failures originate; it never touches
// the artifact store or any tracker.
package loader

import (
	"crypto/sha256"
	"errors"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/fusabi-lang/fusabi-host/bytecode"
	"github.com/fusabi-lang/fusabi-host/cache"
	"github.com/fusabi-lang/fusabi-host/script"
)

var log = commonlog.GetLogger("fusabi.loader")

// Format selects how Load interprets input bytes.
type Format int

const (
	// FormatSource is textual script source, compiled on load.
	FormatSource Format = iota
	// FormatBytecode is an encoded .fzb container, validated but not compiled.
	FormatBytecode
)

// String returns a human-readable format name.
func (f Format) String() string {
	switch f {
	case FormatSource:
		return "source"
	case FormatBytecode:
		return "bytecode"
	default:
		return "unknown"
	}
}

// Conventional file extensions, matching the original asset formats.
const (
	SourceExt   = ".fsx"
	BytecodeExt = ".fzb"
)

// FormatForPath maps a file extension to a format. The boolean is false for
// paths the loader does not handle.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case SourceExt:
		return FormatSource, true
	case BytecodeExt:
		return FormatBytecode, true
	default:
		return 0, false
	}
}

// NameFromPath derives the artifact name from a path: the file stem.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CompileFunc is the external compiler capability: source text in, chunk
// out. The name is used for diagnostics and the chunk name.
type CompileFunc func(name, source string) (*bytecode.Chunk, error)

// positioned is implemented by compile errors that carry a source position.
type positioned interface {
	SourcePosition() (line, col int)
}

// Loader validates raw input and produces artifacts. It reads only its
// input plus the optional compile cache.
type Loader struct {
	compile CompileFunc
	cache   *cache.CompileCache
}

// New creates a loader around a compiler capability.
func New(compile CompileFunc) *Loader {
	return &Loader{compile: compile}
}

// UseCache attaches a compile cache. Cached containers are validated before
// use; anything suspect falls through to compilation.
func (l *Loader) UseCache(c *cache.CompileCache) {
	l.cache = c
}

// Load turns raw bytes into a generation-zero artifact.
//
// FormatSource compiles the input; identical source bytes always yield
// bitwise-identical bytecode (the container is written with a zero
// timestamp, so no volatile metadata enters this path). FormatBytecode
// validates the container and stores the input verbatim. On failure no
// artifact is produced.
func (l *Loader) Load(id script.ArtifactID, name string, data []byte, format Format) (*script.Artifact, error) {
	switch format {
	case FormatSource:
		return l.loadSource(id, name, data)
	case FormatBytecode:
		return l.loadBytecode(id, name, data)
	default:
		return nil, &script.DeserializeError{Reason: "unknown input format"}
	}
}

func (l *Loader) loadSource(id script.ArtifactID, name string, data []byte) (*script.Artifact, error) {
	sum := sha256.Sum256(data)

	if l.cache != nil {
		container, ok, err := l.cache.Get(sum)
		if err != nil {
			log.Errorf("cache lookup for %s: %v", name, err)
		} else if ok {
			if _, _, err := bytecode.DecodeContainer(container); err == nil {
				log.Debugf("cache hit for %s", name)
				return script.New(id, name, container), nil
			}
			log.Errorf("corrupt cache entry for %s, recompiling", name)
		}
	}

	chunk, err := l.compile(name, string(data))
	if err != nil {
		ce := &script.CompileError{Diagnostic: err.Error()}
		var pos positioned
		if errors.As(err, &pos) {
			ce.Line, ce.Col = pos.SourcePosition()
		}
		return nil, ce
	}

	// Zero timestamp keeps compiled output deterministic.
	container, err := bytecode.EncodeContainer(chunk, 0)
	if err != nil {
		return nil, &script.CompileError{Diagnostic: "encoding bytecode: " + err.Error()}
	}

	if l.cache != nil {
		if err := l.cache.Put(sum, container); err != nil {
			log.Errorf("cache store for %s: %v", name, err)
		}
	}

	return script.New(id, name, container), nil
}

func (l *Loader) loadBytecode(id script.ArtifactID, name string, data []byte) (*script.Artifact, error) {
	if _, _, err := bytecode.DecodeContainer(data); err != nil {
		return nil, &script.DeserializeError{Reason: "invalid bytecode container for " + name, Err: err}
	}
	return script.New(id, name, data), nil
}
