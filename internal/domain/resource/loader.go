package resource

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/casdk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/transport"
	"github.com/GriffinCanCode/casdk/internal/shared/tasks"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Script is a loaded script file.
type Script struct {
	Path   string
	Source string
}

// Style is a loaded stylesheet.
type Style struct {
	Path string
	Text string
}

// Image is a loaded image with its sniffed MIME type.
type Image struct {
	Path string
	Data []byte
	MIME string
}

// Item is the outcome for one manifest entry. Err is set when the entry
// failed; Handle is then nil.
type Item struct {
	Index    int
	ID       string
	Filename string
	Path     string
	Kind     Kind
	Handle   any
	Err      error
	Duration time.Duration
}

// OK reports whether the item loaded.
func (i Item) OK() bool { return i.Err == nil }

// Result holds every item of one manifest in manifest order.
type Result struct {
	Kind  Kind
	Items []Item
	keyed bool
}

// Get returns the item loaded for id in a keyed manifest.
func (r Result) Get(id string) (Item, bool) {
	if !r.keyed {
		return Item{}, false
	}
	for _, it := range r.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Failed returns the items that did not load.
func (r Result) Failed() []Item {
	var out []Item
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Scripts returns the loaded scripts in manifest order.
func (r Result) Scripts() []Script {
	var out []Script
	for _, it := range r.Items {
		if s, ok := it.Handle.(Script); ok {
			out = append(out, s)
		}
	}
	return out
}

// Loader fetches application resources.
type Loader struct {
	fetcher transport.Fetcher
	timeout time.Duration
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// Option configures a Loader.
type Option func(*Loader)

// WithTimeout bounds each item. Zero disables the per-item deadline.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// WithLogger sets the loader logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logging.OrNop(logger) }
}

// WithMetrics records loads.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// NewLoader creates a loader reading through fetcher.
func NewLoader(fetcher transport.Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		timeout: 10 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves every entry of manifest relative to base and blocks until
// all of them have loaded or failed.
func (l *Loader) Load(ctx context.Context, kind Kind, manifest Manifest, base string) Result {
	return l.LoadEach(ctx, kind, manifest, base, nil)
}

// LoadAsync loads in the background and calls onComplete exactly once
// with the full result.
func (l *Loader) LoadAsync(ctx context.Context, kind Kind, manifest Manifest, base string, onComplete func(Result)) {
	go func() {
		res := l.Load(ctx, kind, manifest, base)
		if onComplete != nil {
			onComplete(res)
		}
	}()
}

// LoadEach calls onItem as each entry resolves, in completion order, and
// returns the full result once every entry has.
func (l *Loader) LoadEach(ctx context.Context, kind Kind, manifest Manifest, base string, onItem func(Item)) Result {
	entries := manifest.Entries()
	res := Result{Kind: kind, Items: make([]Item, len(entries)), keyed: manifest.IsKeyed()}
	if len(entries) == 0 {
		return res
	}

	tracker := tasks.NewTracker[any](ctx, l.timeout)

	var mu sync.Mutex
	tracker.OnDone(func(o tasks.Outcome[any]) {
		item := l.finish(kind, entries[o.Index], base, o)

		mu.Lock()
		res.Items[o.Index] = item
		mu.Unlock()

		if onItem != nil {
			onItem(item)
		}
	})

	for _, e := range entries {
		path := Join(base, e.File)
		tracker.Go(path, func(ctx context.Context) (any, error) {
			return l.fetch(ctx, kind, path)
		})
	}
	tracker.Wait()

	return res
}

func (l *Loader) finish(kind Kind, e Entry, base string, o tasks.Outcome[any]) Item {
	item := Item{
		Index:    o.Index,
		ID:       e.ID,
		Filename: e.File,
		Path:     Join(base, e.File),
		Kind:     kind,
		Handle:   o.Value,
		Duration: o.Duration,
	}
	if o.Err != nil {
		item.Handle = nil
		item.Err = fmt.Errorf("%w: %s %s: %w", types.ErrResourceLoad, kind, item.Path, o.Err)
		l.logger.Error("Resource failed to load",
			zap.String("kind", string(kind)),
			zap.String("path", item.Path),
			zap.Error(o.Err))
	} else {
		l.logger.Debug("Resource loaded",
			zap.String("kind", string(kind)),
			zap.String("path", item.Path),
			zap.Duration("duration", o.Duration))
	}
	l.metrics.RecordResourceLoad(string(kind), o.Err == nil, o.Duration)
	return item
}

func (l *Loader) fetch(ctx context.Context, kind Kind, path string) (any, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}

	data, err := l.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindScript:
		return Script{Path: path, Source: string(data)}, nil
	case KindStyle:
		return Style{Path: path, Text: string(data)}, nil
	default:
		mt := mimetype.Detect(data)
		if !strings.HasPrefix(mt.String(), "image/") {
			return nil, fmt.Errorf("not an image: %s", mt.String())
		}
		return Image{Path: path, Data: data, MIME: mt.String()}, nil
	}
}

// Join places file under the application location. Absolute paths and
// URLs are used as they are.
func Join(base, file string) string {
	if strings.HasPrefix(file, "/") || strings.Contains(file, "://") || base == "" {
		return file
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.TrimPrefix(file, "./")
}
