package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period a Watcher waits before emitting a change.
const DefaultDebounce = 500 * time.Millisecond

// Change lists the tables modified during one debounce window.
type Change struct {
	Tables []string
	At     time.Time
}

// Watcher reports changes to the table files of a CSVDir. Bursts of writes
// are folded into a single Change, and files whose content is unchanged are
// ignored.
type Watcher struct {
	dir      *CSVDir
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.Mutex
	hashes map[string]string

	changes chan Change
}

// NewWatcher creates a watcher over dir. A zero debounce uses DefaultDebounce.
func NewWatcher(dir *CSVDir, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		changes:  make(chan Change, 16),
	}, nil
}

// Changes returns the channel of debounced changes. It is closed when the
// watcher stops.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Start records the current content of every table file and begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	root := w.dir.Dir()
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			base := d.Name()
			if strings.HasPrefix(base, ".") && path != root {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("Failed to watch directory", "path", path, "error", err)
			}
			return nil
		}
		if rel, ok := w.relevant(path); ok {
			if sum, err := fileHash(path); err == nil {
				w.hashes[rel] = sum
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Table watcher started",
		"dir", root,
		"pattern", w.dir.Pattern(),
		"debounce", w.debounce)
	return nil
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
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
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				if err := w.watcher.Add(event.Name); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
				}
			}
			return
		}
	}
	if _, ok := w.relevant(event.Name); !ok {
		return
	}
	w.pendingMu.Lock()
	w.pending[event.Name] |= event.Op
	w.pendingMu.Unlock()
}

func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var tables []string
	for path := range batch {
		rel, _ := w.relevant(path)
		sum, err := fileHash(path)

		w.hashMu.Lock()
		old, had := w.hashes[rel]
		switch {
		case err != nil:
			// removed or unreadable
			if had {
				delete(w.hashes, rel)
				tables = append(tables, tableName(rel))
			}
		case !had || old != sum:
			w.hashes[rel] = sum
			tables = append(tables, tableName(rel))
		}
		w.hashMu.Unlock()
	}
	if len(tables) == 0 {
		return
	}
	sort.Strings(tables)

	select {
	case w.changes <- Change{Tables: tables, At: time.Now()}:
		w.logger.Debug("Tables changed", "tables", tables)
	case <-ctx.Done():
	default:
		w.logger.Warn("Change channel full, dropping change", "tables", tables)
	}
}

// relevant maps an absolute path to its path relative to the source
// directory and reports whether it selects a table file.
func (w *Watcher) relevant(path string) (string, bool) {
	rel, err := filepath.Rel(w.dir.Dir(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	return rel, w.dir.Matches(rel)
}

func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
