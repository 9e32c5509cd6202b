// Package manifest handles fusabi.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a fusabi.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Scripts Scripts `toml:"scripts"`
	Reload  Reload  `toml:"reload"`
	Cache   Cache   `toml:"cache"`

	// Dir is the directory containing the fusabi.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Scripts configures script file locations.
type Scripts struct {
	Dirs []string `toml:"dirs"`
}

// Reload configures the hot-reload loop.
type Reload struct {
	PollMillis  int  `toml:"poll-ms"`
	RetryOnTrap bool `toml:"retry-on-trap"`
	Engines     int  `toml:"engines"`
}

// Cache configures the compile cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load parses a fusabi.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "fusabi.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a fusabi.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "fusabi.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Default returns the manifest used when no fusabi.toml exists: default
// settings rooted at dir.
func Default(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m := &Manifest{Dir: abs}
	m.applyDefaults()
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Scripts.Dirs) == 0 {
		m.Scripts.Dirs = []string{"scripts"}
	}
	if m.Reload.PollMillis <= 0 {
		m.Reload.PollMillis = 250
	}
	if m.Reload.Engines <= 0 {
		m.Reload.Engines = 1
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".fusabi", "cache.db")
	}
}

// ScriptDirPaths returns absolute paths for the configured script
// directories.
func (m *Manifest) ScriptDirPaths() []string {
	paths := make([]string, 0, len(m.Scripts.Dirs))
	for _, d := range m.Scripts.Dirs {
		if filepath.IsAbs(d) {
			paths = append(paths, d)
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// CachePath returns the absolute compile cache path.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}
