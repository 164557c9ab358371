// Package watcher keeps a serving process on the newest published route
// table. It polls a store for a higher artifact version, fetches and
// validates the artifact (optionally requiring a signed checkpoint), and
// publishes the loaded table to a dispatch swapper. Lookups never block on
// an update; they keep resolving against the previous table until the swap.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/veraison/go-cose"
	"go.uber.org/zap"

	"github.com/routewire/go-routetable/dispatch"
	"github.com/routewire/go-routetable/seal"
	"github.com/routewire/go-routetable/storage"
)

// ErrSealRequired reports a missing checkpoint for an artifact version when
// the watcher is configured to require seals.
var ErrSealRequired = errors.New("watcher: no checkpoint published for artifact version")

const defaultInterval = 30 * time.Second

type Options struct {
	log      *zap.SugaredLogger
	interval time.Duration
	verifier cose.Verifier
}

type Option func(*Options)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *Options) { o.log = log }
}

// WithInterval sets the poll cadence for Run.
func WithInterval(d time.Duration) Option {
	return func(o *Options) { o.interval = d }
}

// WithSealVerifier makes checkpoint verification mandatory: an artifact is
// only published if a seal signed by the corresponding key exists and
// commits to the fetched bytes.
func WithSealVerifier(verifier cose.Verifier) Option {
	return func(o *Options) { o.verifier = verifier }
}

// Watcher tracks the newest artifact in a store and publishes it to a
// swapper. Methods are not safe for concurrent use; run one goroutine per
// watcher.
type Watcher struct {
	store   storage.ArtifactReader
	swapper *dispatch.Swapper
	log     *zap.SugaredLogger

	interval time.Duration
	verifier cose.Verifier
	sealer   seal.Sealer

	current     uint64
	haveCurrent bool
}

func New(store storage.ArtifactReader, swapper *dispatch.Swapper, opts ...Option) (*Watcher, error) {
	o := Options{
		log:      zap.NewNop().Sugar(),
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	w := &Watcher{
		store:    store,
		swapper:  swapper,
		log:      o.log,
		interval: o.interval,
		verifier: o.verifier,
	}
	if w.verifier != nil {
		sealer, err := seal.NewSealer()
		if err != nil {
			return nil, err
		}
		w.sealer = sealer
	}
	return w, nil
}

// CheckOnce looks for a version above the current one and publishes it.
// It reports whether a new table was published. A store with no artifacts
// yet is not an error, just not an update.
func (w *Watcher) CheckOnce(ctx context.Context) (bool, error) {
	version, path, err := storage.LatestArtifact(ctx, w.store)
	if errors.Is(err, storage.ErrNoArtifacts) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if w.haveCurrent && version <= w.current {
		return false, nil
	}

	data, err := w.store.Get(ctx, path)
	if err != nil {
		return false, err
	}
	if w.verifier != nil {
		if err := w.verifySeal(ctx, version, data); err != nil {
			return false, err
		}
	}

	table, err := dispatch.Load(data)
	if err != nil {
		return false, fmt.Errorf("artifact %s: %w", path, err)
	}
	w.swapper.Publish(table)
	w.current = version
	w.haveCurrent = true
	w.log.Infow("published route table",
		"version", version, "path", path,
		"nodes", table.Header().NodeCount, "bytes", table.Size())
	return true, nil
}

func (w *Watcher) verifySeal(ctx context.Context, version uint64, data []byte) error {
	envelope, err := w.store.Get(ctx, storage.SealPath(version))
	if errors.Is(err, storage.ErrArtifactNotFound) {
		return fmt.Errorf("%w: %016x", ErrSealRequired, version)
	}
	if err != nil {
		return err
	}
	cp, err := w.sealer.Verify(envelope, w.verifier)
	if err != nil {
		return err
	}
	return cp.Matches(data)
}

// Run polls until ctx is done. Failed checks are logged and retried on the
// next tick; the previous table keeps serving throughout.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.CheckOnce(ctx); err != nil {
		w.log.Warnw("route table check failed", "err", err)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.CheckOnce(ctx); err != nil {
				w.log.Warnw("route table check failed", "err", err)
			}
		}
	}
}

// RunLocal watches dir with fsnotify instead of polling; dir is the
// directory artifact objects land in for a local store. Every artifact
// write triggers a check, so updates propagate in milliseconds. CheckOnce
// re-lists the store, which makes duplicate events harmless.
func (w *Watcher) RunLocal(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	if err := fsw.Add(dir); err != nil {
		return err
	}

	if _, err := w.CheckOnce(ctx); err != nil {
		w.log.Warnw("route table check failed", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Rename) {
				continue
			}
			if !strings.Contains(event.Name, storage.ArtifactExt) {
				continue
			}
			if _, err := w.CheckOnce(ctx); err != nil {
				w.log.Warnw("route table check failed", "err", err, "event", event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("file watch error", "err", err)
		}
	}
}
