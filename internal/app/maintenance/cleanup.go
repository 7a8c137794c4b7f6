package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/cache"
	"github.com/charlesng35/picketer/internal/models"
	"github.com/charlesng35/picketer/internal/services"
	"github.com/charlesng35/picketer/pkg/logger"
	"github.com/charlesng35/picketer/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultSchedule           = "@every 1h"
)

// Cleaner runs periodic housekeeping: expired invitations, stale audit logs and
// expired cache rows are removed on a cron schedule.
type Cleaner struct {
	db        *gorm.DB
	audit     *services.AuditService
	cache     cache.Purger
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int
	schedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithSchedule overrides the cron expression of the cleanup run.
func WithSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.schedule = expr
		}
	}
}

// WithCacheStore enables purging of expired rows from a database-backed cache.
func WithCacheStore(store cache.Purger) Option {
	return func(cleaner *Cleaner) {
		if store != nil {
			cleaner.cache = store
		}
	}
}

// NewCleaner constructs a Cleaner. A nil audit service skips log retention.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:        db,
		audit:     audit,
		now:       func() time.Time { return time.Now().UTC() },
		retention: defaultAuditRetentionDays,
		schedule:  defaultSchedule,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the cleanup job and launches the scheduler.
func (c *Cleaner) Start() error {
	if c.db == nil && c.audit == nil && c.cache == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every cleanup routine, collecting failures rather than
// stopping at the first one.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	now := c.now()

	var errs error

	if c.db != nil {
		removed, err := PurgeExpiredInvitations(ctx, c.db, now)
		errs = multierr.Append(errs, err)
		c.record("invitations", removed, err)
	}

	if c.audit != nil && c.retention > 0 {
		removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
		errs = multierr.Append(errs, err)
		c.record("audit_logs", removed, err)
	}

	if c.cache != nil {
		removed, err := c.cache.PurgeExpired(ctx, now)
		if err != nil {
			err = fmt.Errorf("maintenance: purge cache: %w", err)
		}
		errs = multierr.Append(errs, err)
		c.record("cache_entries", removed, err)
	}

	return errs
}

func (c *Cleaner) record(job string, removed int64, err error) {
	if err != nil {
		metrics.MaintenanceRuns.WithLabelValues(job, "error").Inc()
		return
	}
	metrics.MaintenanceRuns.WithLabelValues(job, "ok").Inc()
	if removed > 0 {
		c.log.Info("maintenance removed records", zap.String("job", job), zap.Int64("removed", removed))
	}
}

// PurgeExpiredInvitations deletes pending invitations whose expiry passed before
// now. Consumed invitations are kept as the record of how an account was created.
func PurgeExpiredInvitations(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("maintenance: db is required")
	}
	res := db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.InvitationPending, now).
		Delete(&models.Invitation{})
	if res.Error != nil {
		return 0, fmt.Errorf("maintenance: purge invitations: %w", res.Error)
	}
	return res.RowsAffected, nil
}
