package insight

import (
	"context"
	"time"

	domaininsight "github.com/geoinsight/geoinsight/internal/domain/insight"
	"github.com/geoinsight/geoinsight/internal/infrastructure/database/redis"
	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/errors"
)

// Archiver persists a refresh snapshot to object storage, returning where it
// was written.
type Archiver interface {
	ArchiveAdvanced(ctx context.Context, rs *domaininsight.ResultSet) (string, error)
}

// Notifier announces a completed refresh to interested consumers.
type Notifier interface {
	RefreshCompleted(ctx context.Context, event RefreshEvent) error
}

// RefreshEvent is the payload published after a successful refresh.
type RefreshEvent struct {
	RefreshedAt  time.Time `json:"refreshed_at"`
	Candidates   int       `json:"candidates"`
	Insights     int       `json:"insights"`
	SnapshotPath string    `json:"snapshot_path,omitempty"`
}

// Refresher recomputes the advanced-insight snapshot under a distributed
// lock.  A failed rebuild leaves the previous snapshot serving; archive and
// notify failures are logged but never fail the refresh, since the new
// snapshot is already live.
type Refresher struct {
	agg      *domaininsight.Aggregator
	store    *domaininsight.Store
	lock     redis.Lock
	cache    redis.Cache
	archiver Archiver
	notifier Notifier
	logger   logging.Logger
	now      func() time.Time
}

// NewRefresher wires the refresh orchestration.  lock is required; cache,
// archiver and notifier may be nil.
func NewRefresher(source domaininsight.FactSource, store *domaininsight.Store,
	lock redis.Lock, cache redis.Cache, archiver Archiver, notifier Notifier,
	logger logging.Logger) *Refresher {
	return &Refresher{
		agg:      domaininsight.NewAggregator(source),
		store:    store,
		lock:     lock,
		cache:    cache,
		archiver: archiver,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Refresh rebuilds candidates and advanced insights, then swaps the store.
// Exactly one refresh runs cluster-wide; a second caller gets a
// refresh-in-progress error instead of queueing behind the first.
func (r *Refresher) Refresh(ctx context.Context) error {
	acquired, err := r.lock.TryLock(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeRefreshFailed, "refresh lock unavailable")
	}
	if !acquired {
		return errors.New(errors.ErrCodeRefreshInProgress, "refresh already running")
	}
	defer func() {
		if err := r.lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("refresh lock release failed", logging.Err(err))
		}
	}()

	started := r.now()
	candidates, err := r.agg.Build(ctx)
	if err != nil {
		// The store keeps serving the previous snapshot.
		r.logger.Error("refresh rebuild failed, keeping previous snapshot", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeRefreshFailed, "candidate rebuild failed")
	}
	insights := domaininsight.ComputeAdvanced(candidates)

	rs := &domaininsight.ResultSet{Insights: insights, RefreshedAt: r.now().UTC()}
	r.store.Swap(rs)
	r.invalidateResults(ctx)

	event := RefreshEvent{
		RefreshedAt: rs.RefreshedAt,
		Candidates:  len(candidates),
		Insights:    len(insights),
	}
	if r.archiver != nil {
		path, err := r.archiver.ArchiveAdvanced(ctx, rs)
		if err != nil {
			r.logger.Warn("snapshot archiving failed", logging.Err(err))
		} else {
			event.SnapshotPath = path
		}
	}
	if r.notifier != nil {
		if err := r.notifier.RefreshCompleted(ctx, event); err != nil {
			r.logger.Warn("refresh notification failed", logging.Err(err))
		}
	}

	r.logger.Info("advanced insight refresh completed",
		logging.Int("candidates", len(candidates)),
		logging.Int("insights", len(insights)),
		logging.Duration("took", r.now().Sub(started)))
	return nil
}

// invalidateResults drops cached operation results computed from the old
// snapshot.
func (r *Refresher) invalidateResults(ctx context.Context) {
	if r.cache == nil {
		return
	}
	for _, prefix := range []string{"compare:", "rankings:", "anomaly:"} {
		if _, err := r.cache.DeleteByPrefix(ctx, prefix); err != nil {
			r.logger.Warn("result cache invalidation failed",
				logging.String("prefix", prefix), logging.Err(err))
		}
	}
}
