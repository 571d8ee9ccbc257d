package ml

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher invalidates the model cache when the artifact on disk is
// rewritten, so a server picks up freshly trained parameters without restart.
type ArtifactWatcher struct {
	watcher *fsnotify.Watcher
	cache   *ModelCache
	path    string
	done    chan struct{}
}

// NewArtifactWatcher watches the directory containing artifactPath. The
// directory is watched instead of the file so atomic rewrites are seen.
func NewArtifactWatcher(cache *ModelCache, artifactPath string) (*ArtifactWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(artifactPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &ArtifactWatcher{
		watcher: watcher,
		cache:   cache,
		path:    artifactPath,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *ArtifactWatcher) run() {
	base := filepath.Base(w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.cache.Invalidate(w.path)
			zap.S().Infow("model artifact changed, cache invalidated", "path", w.path, "op", event.Op.String())
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			zap.S().Warnw("artifact watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *ArtifactWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
