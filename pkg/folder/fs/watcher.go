package fs

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/dittobrowse/internal/logger"
)

// watcher fans fsnotify events out to per-directory subscribers.
//
// A directory is added to the underlying watcher on its first subscription
// and removed when the last one goes away.
type watcher struct {
	w *fsnotify.Watcher

	mu   sync.Mutex
	subs map[string]map[uint64]func()
	next uint64

	done chan struct{}
	wg   sync.WaitGroup
}

func newWatcher() (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &watcher{
		w:    fw,
		subs: make(map[string]map[uint64]func()),
		done: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *watcher) subscribe(dir string, fn func()) (func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	set, ok := w.subs[dir]
	if !ok {
		if err := w.w.Add(dir); err != nil {
			return nil, err
		}
		set = make(map[uint64]func())
		w.subs[dir] = set
	}
	id := w.next
	w.next++
	set[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() { w.unsubscribe(dir, id) })
	}, nil
}

func (w *watcher) unsubscribe(dir string, id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	set, ok := w.subs[dir]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(w.subs, dir)
		if err := w.w.Remove(dir); err != nil {
			logger.Debug("Unwatch %q: %v", dir, err)
		}
	}
}

func (w *watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			// Attribute-only changes do not alter listings.
			if ev.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("Watch event: %s", ev)
			w.fire(filepath.Dir(ev.Name))
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

func (w *watcher) fire(dir string) {
	w.mu.Lock()
	fns := make([]func(), 0, len(w.subs[dir]))
	for _, fn := range w.subs[dir] {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (w *watcher) close() error {
	close(w.done)
	err := w.w.Close()
	w.wg.Wait()
	return err
}
