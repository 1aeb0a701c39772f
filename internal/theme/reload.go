package theme

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/stagtheme/internal/watcher"
)

// Reloader watches a loaded theme's source files, including everything
// its extends chain pulled in, and re-loads the reference when any of
// them change. A load failure keeps the previous definition and logs a
// warning so a half-saved edit never blanks the deck.
type Reloader struct {
	loader    *Loader
	reference string
	log       *zap.Logger
	w         *watcher.Watcher
	out       chan *Definition
	done      chan struct{}
}

type ReloaderOption func(*Reloader)

func WithReloadLogger(log *zap.Logger) ReloaderOption {
	return func(r *Reloader) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReloader performs the initial load and starts watching its sources.
// The first definition is delivered on Definitions before any reloads.
func NewReloader(ctx context.Context, loader *Loader, reference string, interval time.Duration, opts ...ReloaderOption) (*Reloader, error) {
	r := &Reloader{
		loader:    loader,
		reference: reference,
		log:       zap.NewNop(),
		w:         watcher.New(interval),
		out:       make(chan *Definition, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	def, sources, err := loader.LoadWithSources(ctx, reference)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		r.w.Track(src)
	}
	r.out <- def

	r.w.Start()
	go r.run(ctx)
	return r, nil
}

// Definitions delivers the initial definition and every successful
// reload after it.
func (r *Reloader) Definitions() <-chan *Definition {
	return r.out
}

// Scan forces one check of the tracked sources without waiting for the
// poll interval.
func (r *Reloader) Scan() {
	r.w.Scan()
}

func (r *Reloader) Stop() {
	r.w.Stop()
	<-r.done
}

func (r *Reloader) run(ctx context.Context) {
	defer close(r.done)
	for evt := range r.w.Events() {
		if evt.Kind == watcher.EventMissing {
			r.log.Warn("theme source removed",
				zap.String("reference", r.reference),
				zap.String("path", evt.Path))
			continue
		}
		def, sources, err := r.loader.LoadWithSources(ctx, r.reference)
		if err != nil {
			r.log.Warn("theme reload failed",
				zap.String("reference", r.reference),
				zap.String("path", evt.Path),
				zap.Error(err))
			continue
		}
		// The extends chain may have changed; track the new source set.
		for _, src := range sources {
			r.w.Track(src)
		}
		r.log.Info("theme reloaded",
			zap.String("reference", r.reference),
			zap.String("trigger", evt.Path))
		select {
		case r.out <- def:
		default:
			// Drop when the consumer lags; the next event carries a
			// fresher definition anyway.
		}
	}
}
