// Package watch feeds audio files dropped into a directory to a handler.
package watch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roelfdiedericks/speechkit/internal/audio"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/paths"
)

// DefaultDebounce is how long a file must stay quiet before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors a directory for new audio files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	onFile   func(path string)

	ready  chan string
	stopCh chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
	started bool
	stopped bool
}

// NewWatcher creates a watcher for dir. onFile is called once per settled
// audio file, one call at a time, on a goroutine owned by the watcher.
func NewWatcher(dir string, debounce time.Duration, onFile func(path string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	L_debug("watch: watching directory", "path", dir, "debounce", debounce)
	return &Watcher{
		watcher:  fsWatcher,
		dir:      dir,
		debounce: debounce,
		onFile:   onFile,
		ready:    make(chan string, 64),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. It spawns the event loop and the handler goroutine.
func (w *Watcher) Start() {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.run()
	go w.dispatch()
}

// run is the main event loop.
func (w *Watcher) run() {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			L_warn("watch: watcher error", "error", err)
		}
	}
}

// dispatch hands settled files to onFile sequentially.
func (w *Watcher) dispatch() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return
		case path := <-w.ready:
			if w.onFile != nil {
				w.onFile(path)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			w.cancel(event.Name)
		}
		return
	}
	if Ignored(event.Name) {
		return
	}

	L_trace("watch: file event", "path", event.Name, "op", event.Op.String())
	w.schedule(event.Name)
}

// schedule (re)starts the quiet-period timer for path. Writes while a file
// is still being copied keep pushing the timer back.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		stopped := w.stopped
		w.mu.Unlock()
		if stopped {
			return
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.Size() == 0 {
			return
		}
		if !audio.IsAudioFile(path) {
			L_debug("watch: ignoring non-audio file", "path", path)
			return
		}

		L_info("watch: new audio file", "path", path)
		select {
		case w.ready <- path:
		case <-w.stopCh:
		}
	})
}

// Backfill queues the audio files already in the directory that have no
// transcript yet, behind any settled new files. It returns how many were
// queued. Call it after Start so files arriving meanwhile are not missed.
func (w *Watcher) Backfill() (int, error) {
	files, err := Pending(w.dir)
	if err != nil {
		return 0, err
	}
	go func() {
		for _, path := range files {
			select {
			case w.ready <- path:
			case <-w.stopCh:
				return
			}
		}
	}()
	return len(files), nil
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// Stop stops watching and waits for a running handler call to return.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	close(w.stopCh)
	err := w.watcher.Close()
	if started {
		<-w.done
	}
	return err
}

// Ignored reports whether name is a file speechkit or a download tool writes
// while working: hidden files, temp files and partial downloads.
func Ignored(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".txt", ".tmp", ".part", ".crdownload", ".download":
		return true
	}
	return false
}

// Pending returns the audio files in dir that have no transcript next to
// them yet, sorted by name.
func Pending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || Ignored(path) || !audio.IsAudioFile(path) {
			continue
		}
		if _, err := os.Stat(paths.Sibling(path, ".txt")); err == nil {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
