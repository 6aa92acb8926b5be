package edgegrid

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/telemetry"
)

const reloadDebounce = 200 * time.Millisecond

// ReloadingStore wraps Store with credential file watching. Each
// request resolves against exactly one immutable snapshot; a reload
// swaps the snapshot pointer atomically. A reload that fails to parse
// keeps the previous snapshot in place.
type ReloadingStore struct {
	path           string
	defaultSection string
	logger         *zap.Logger

	current atomic.Pointer[Store]

	reloadMu sync.Mutex
	onReload func(*Store)
}

func NewReloadingStore(path, defaultSection string, logger *zap.Logger) (*ReloadingStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := LoadStore(path, defaultSection)
	if err != nil {
		return nil, err
	}
	r := &ReloadingStore{
		path:           path,
		defaultSection: defaultSection,
		logger:         logger.Named("credential_watch"),
	}
	r.current.Store(store)
	return r, nil
}

// OnReload registers a hook invoked after each successful snapshot
// swap. Set it before Watch starts.
func (r *ReloadingStore) OnReload(fn func(*Store)) {
	r.onReload = fn
}

// Resolve resolves against the current snapshot.
func (r *ReloadingStore) Resolve(section string) (domain.CustomerContext, error) {
	return r.current.Load().Resolve(section)
}

// Sections lists sections of the current snapshot.
func (r *ReloadingStore) Sections() []string {
	return r.current.Load().Sections()
}

// Reload re-parses the credential file and swaps the snapshot.
func (r *ReloadingStore) Reload() error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	store, err := LoadStore(r.path, r.defaultSection)
	if err != nil {
		return err
	}
	r.current.Store(store)
	r.logger.Info("credentials reloaded",
		telemetry.EventField(telemetry.EventCredentialReload),
		zap.Int("sections", len(store.Sections())),
	)
	if r.onReload != nil {
		r.onReload(store)
	}
	return nil
}

// Watch reloads on credential file changes until ctx is canceled.
// Parse failures are logged and the previous snapshot stays live.
func (r *ReloadingStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return domain.E(domain.CodeInternal, "edgegrid.watch", "create watcher", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files rather than write
	// them in place.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return domain.E(domain.CodeInternal, "edgegrid.watch", "watch credential directory", err)
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case watchErr := <-watcher.Errors:
			if watchErr != nil {
				r.logger.Warn("credential watcher error", zap.Error(watchErr))
			}
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(reloadDebounce)
		case <-timerChan(timer):
			timer = nil
			if err := r.Reload(); err != nil {
				r.logger.Warn("credential reload failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}

var _ domain.CredentialResolver = (*ReloadingStore)(nil)
