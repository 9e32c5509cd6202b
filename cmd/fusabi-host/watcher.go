package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fusabi-lang/fusabi-host/loader"
	"github.com/fusabi-lang/fusabi-host/pipeline"
	"github.com/fusabi-lang/fusabi-host/reload"
	"github.com/fusabi-lang/fusabi-host/runner"
	"github.com/fusabi-lang/fusabi-host/script"
)

// watcher is a minimal mtime-polling asset source. It lives in the demo
// binary because file watching is the host's job, not the pipeline's.
type watcher struct {
	pipe  *pipeline.Pipeline
	dirs  []string
	files map[string]*watchedFile
}

type watchedFile struct {
	modTime time.Time
	format  loader.Format
	owner   runner.OwnerID
}

func newWatcher(pipe *pipeline.Pipeline, dirs []string) *watcher {
	return &watcher{
		pipe:  pipe,
		dirs:  dirs,
		files: make(map[string]*watchedFile),
	}
}

// poll scans the script directories once, emitting Added, Modified,
// Removed and Failed events and binding an owner per discovered script.
func (w *watcher) poll() {
	seen := make(map[string]bool)

	for _, dir := range w.dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			format, ok := loader.FormatForPath(path)
			if !ok {
				return nil
			}
			seen[path] = true

			info, err := d.Info()
			if err != nil {
				w.pipe.Push(reload.Event{Kind: reload.EventFailed, ID: script.ArtifactID(path), Err: err})
				return nil
			}

			known, tracked := w.files[path]
			if tracked && !info.ModTime().After(known.modTime) {
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				w.pipe.Push(reload.Event{Kind: reload.EventFailed, ID: script.ArtifactID(path), Err: err})
				return nil
			}

			event := reload.Event{
				ID:     script.ArtifactID(path),
				Name:   loader.NameFromPath(path),
				Format: format,
				Data:   data,
			}
			if tracked {
				event.Kind = reload.EventModified
				known.modTime = info.ModTime()
				w.pipe.Push(event)
				return nil
			}

			event.Kind = reload.EventAdded
			w.pipe.Push(event)

			owner := runner.OwnerID("host-" + uuid.NewString())
			w.pipe.Bind(owner, event.ID)
			w.files[path] = &watchedFile{
				modTime: info.ModTime(),
				format:  format,
				owner:   owner,
			}
			return nil
		})
	}

	for path, f := range w.files {
		if seen[path] {
			continue
		}
		w.pipe.Push(reload.Event{Kind: reload.EventRemoved, ID: script.ArtifactID(path)})
		w.pipe.Unbind(f.owner)
		delete(w.files, path)
	}
}
