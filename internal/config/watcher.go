package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is how often a [Watcher] polls its file.
const DefaultWatchInterval = 5 * time.Second

// Watcher polls a config file and reports edits that still validate.
// Invalid edits are logged and the previous config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)
	prepare  []func(*Config)
	log      *slog.Logger

	mu   sync.Mutex
	snap snapshot

	stop     chan struct{}
	stopOnce sync.Once
}

// snapshot is the last valid load of the file.
type snapshot struct {
	cfg   *Config
	sum   [sha256.Size]byte
	mtime time.Time
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Non-positive values are ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithEnv applies [ApplyEnv] with lookup after every load, so environment
// overrides survive a reload.
func WithEnv(lookup func(string) (string, bool)) WatcherOption {
	return WithOverride(func(c *Config) { ApplyEnv(c, lookup) })
}

// WithOverride runs fn on every loaded config before it is validated and
// reported. Command-line overrides use it to stay in effect across reloads.
// Overrides run in the order they were given.
func WithOverride(fn func(*Config)) WatcherOption {
	return func(w *Watcher) { w.prepare = append(w.prepare, fn) }
}

// WithWatchLogger sets the logger. Default: slog.Default().
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = l }
}

// NewWatcher loads path and starts polling it in the background. onChange
// may be nil; it runs on the polling goroutine.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultWatchInterval,
		onChange: onChange,
		log:      slog.Default(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	snap, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	w.snap = snap

	go w.run()
	return w, nil
}

// Current returns the most recent valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap.cfg
}

// Stop ends polling. A callback already running is not interrupted. It is
// safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Watcher) run() {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			w.poll()
		}
	}
}

// poll reloads the file when its modification time moved and reports the
// new config when the content differs.
func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("config: cannot stat watched file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	prev := w.snap
	w.mu.Unlock()
	if info.ModTime().Equal(prev.mtime) {
		return
	}

	next, err := w.load()
	if err != nil {
		w.log.Warn("config: ignoring invalid edit", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if next.sum == prev.sum {
		w.snap.mtime = next.mtime
		w.mu.Unlock()
		return
	}
	w.snap = next
	w.mu.Unlock()

	w.log.Info("config: reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(prev.cfg, next.cfg)
	}
}

func (w *Watcher) load() (snapshot, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return snapshot{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return snapshot{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return snapshot{}, err
	}
	if len(w.prepare) > 0 {
		for _, fn := range w.prepare {
			fn(cfg)
		}
		if err := Validate(cfg); err != nil {
			return snapshot{}, err
		}
	}
	return snapshot{cfg: cfg, sum: sha256.Sum256(data), mtime: info.ModTime()}, nil
}
