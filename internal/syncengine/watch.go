package syncengine

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vuxtra/jivemcp/internal/store"
)

const debounceWindow = 300 * time.Millisecond

// Watcher drives a continuous file_to_db sync pass whenever the workspace
// directory changes, debounced so a burst of writes (an editor save, a git
// checkout) triggers one Run instead of one per event.
type Watcher struct {
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// Watch starts watching workspaceDir and invokes onSync after each
// debounced sync pass. Callers must call Close to stop the watcher.
func Watch(ctx context.Context, e *Engine, s *store.Store, workspaceDir string, onSync func(*Summary, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(workspaceDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{fsw: fsw, cancel: cancel, done: make(chan struct{})}

	go w.loop(watchCtx, e, s, workspaceDir, onSync)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context, e *Engine, s *store.Store, workspaceDir string, onSync func(*Summary, error)) {
	defer close(w.done)
	var timer *time.Timer
	var timerC <-chan time.Time

	fire := func() {
		summary, err := e.Run(ctx, s, workspaceDir, FileToDB)
		if onSync != nil {
			onSync(summary, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			timerC = timer.C
		case <-timerC:
			fire()
			timerC = nil
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	<-w.done
	return err
}
