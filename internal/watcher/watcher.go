// Package watcher polls tracked files and reports content changes. It
// fingerprints by modtime, size and content hash, so editors that touch
// files without changing them do not trigger events.
package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type EventKind int

const (
	EventChanged EventKind = iota
	EventMissing
)

type Event struct {
	Path string
	Kind EventKind
}

type fingerprint struct {
	mod  time.Time
	size int64
	hash string
}

type entry struct {
	fp      fingerprint
	missing bool
}

const (
	defaultInterval = time.Second
	defaultBuffer   = 16
)

// Watcher polls a tracked file set on a fixed interval. Metadata is
// checked first; content is only read and hashed when modtime or size
// moved.
type Watcher struct {
	mu       sync.Mutex
	entries  map[string]*entry
	out      chan Event
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	started  bool
	closed   bool
}

func New(interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Watcher{
		entries:  map[string]*entry{},
		out:      make(chan Event, defaultBuffer),
		interval: interval,
	}
}

func (w *Watcher) Events() <-chan Event {
	return w.out
}

// Track registers a file at its current on-disk state. Re-tracking an
// already watched path resets its fingerprint.
func (w *Watcher) Track(path string) {
	path = filepath.Clean(path)
	fp, missing := snapshot(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.entries[path] = &entry{fp: fp, missing: missing}
}

func (w *Watcher) Forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, filepath.Clean(path))
}

func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started || w.closed {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.stop = make(chan struct{})
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		t := time.NewTicker(w.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				w.Scan()
			case <-w.stop:
				return
			}
		}
	}()
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.started && w.stop != nil {
		close(w.stop)
	}
	started := w.started
	w.mu.Unlock()

	if started {
		w.wg.Wait()
	}
	close(w.out)
}

// Scan checks every tracked file once. Exported so tests and callers
// without a polling loop can drive checks themselves.
func (w *Watcher) Scan() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.entries))
	for path := range w.entries {
		paths = append(paths, path)
	}
	w.mu.Unlock()

	for _, path := range paths {
		if evt, ok := w.check(path); ok {
			w.emit(evt)
		}
	}
}

func (w *Watcher) check(path string) (Event, bool) {
	w.mu.Lock()
	e, tracked := w.entries[path]
	if !tracked {
		w.mu.Unlock()
		return Event{}, false
	}
	prev := *e
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		if prev.missing {
			return Event{}, false
		}
		w.update(path, fingerprint{}, true)
		return Event{Path: path, Kind: EventMissing}, true
	}
	if !prev.missing && info.ModTime().Equal(prev.fp.mod) && info.Size() == prev.fp.size {
		return Event{}, false
	}

	fp, missing := snapshot(path)
	if missing {
		if prev.missing {
			return Event{}, false
		}
		w.update(path, fingerprint{}, true)
		return Event{Path: path, Kind: EventMissing}, true
	}

	changed := prev.missing || fp.hash != prev.fp.hash
	w.update(path, fp, false)
	if !changed {
		return Event{}, false
	}
	return Event{Path: path, Kind: EventChanged}, true
}

func (w *Watcher) update(path string, fp fingerprint, missing bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[path]; ok {
		e.fp = fp
		e.missing = missing
	}
}

func (w *Watcher) emit(evt Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.out <- evt:
	default:
	}
}

func snapshot(path string) (fingerprint, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fingerprint{}, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fingerprint{}, true
		}
		return fingerprint{mod: info.ModTime(), size: info.Size()}, true
	}
	sum := sha256.Sum256(data)
	return fingerprint{
		mod:  info.ModTime(),
		size: info.Size(),
		hash: hex.EncodeToString(sum[:]),
	}, false
}
