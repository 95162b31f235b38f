package predictor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads an adapter's model when its artifact file changes.
// Bursts of events within the settle window collapse into one reload.
type Watcher struct {
	adapter *Adapter
	watcher *fsnotify.Watcher
	file    string
	settle  time.Duration
	logger  *zap.Logger
	// onReload, when set, observes the outcome of each reload attempt.
	onReload func(error)
}

func NewWatcher(adapter *Adapter, logger *zap.Logger) (*Watcher, error) {
	path := adapter.Path()
	if path == "" {
		return nil, fmt.Errorf("adapter has no artifact path to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// watch the directory so atomic replace-by-rename is seen
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		adapter: adapter,
		watcher: fw,
		file:    abs,
		settle:  200 * time.Millisecond,
		logger:  logger.Named("watcher"),
	}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Warn("model artifact removed; keeping loaded model", zap.String("path", w.file))
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			err := w.adapter.Reload()
			if err != nil {
				w.logger.Warn("model reload failed; keeping loaded model", zap.Error(err))
			}
			if w.onReload != nil {
				w.onReload(err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
