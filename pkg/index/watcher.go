package index

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileWatcher watches the store tree for out-of-band edits.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onStale  func()
	debounce time.Duration
	timer    *time.Timer
	stopCh   chan struct{}
}

// NewFileWatcher creates a file watcher that calls onStale, debounced, after
// any markdown change.
func NewFileWatcher(logger zerolog.Logger, onStale func()) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher:  watcher,
		logger:   logger,
		onStale:  onStale,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}

	go fw.run()

	return fw, nil
}

// Watch starts watching a directory and its category subdirectories.
func (fw *FileWatcher) Watch(root string) error {
	if err := fw.watcher.Add(root); err != nil {
		return err
	}
	matches, err := filepath.Glob(filepath.Join(root, "*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		// Non-directories are rejected by fsnotify; category dirs are what
		// matters here.
		if err := fw.watcher.Add(m); err != nil {
			fw.logger.Debug().Err(err).Str("path", m).Msg("Skipping watch path")
		}
	}
	return nil
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	close(fw.stopCh)
	return fw.watcher.Close()
}

func (fw *FileWatcher) run() {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if !strings.HasSuffix(strings.ToLower(event.Name), ".md") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				fw.logger.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Store change detected")

				fw.scheduleMarkStale()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error().Err(err).Msg("File watcher error")

		case <-fw.stopCh:
			return
		}
	}
}

func (fw *FileWatcher) scheduleMarkStale() {
	if fw.timer != nil {
		fw.timer.Stop()
	}

	fw.timer = time.AfterFunc(fw.debounce, func() {
		fw.logger.Debug().Msg("Marking index stale after store changes")
		fw.onStale()
	})
}
