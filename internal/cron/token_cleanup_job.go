package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
	"github.com/angelmondragon/cellarbook-backend/pkg/metrics"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	tokenCleanupJobName   = "token-cleanup"
	defaultTokenRetention = 24 * time.Hour
	tableResetTokens      = "password_reset_tokens"
	tableInviteLinks      = "invite_links"
)

// CleanupRepository deletes spent single-use secrets.
type CleanupRepository struct {
	db *gorm.DB
}

func NewCleanupRepository(db *gorm.DB) *CleanupRepository {
	return &CleanupRepository{db: db}
}

// DeleteStale removes rows of model that expired or were used before cutoff.
func (r *CleanupRepository) DeleteStale(ctx context.Context, model any, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR (used_at IS NOT NULL AND used_at < ?)", cutoff, cutoff).
		Delete(model)
	return res.RowsAffected, res.Error
}

type staleDeleter interface {
	DeleteStale(ctx context.Context, model any, cutoff time.Time) (int64, error)
}

type TokenCleanupJobParams struct {
	Logger    *logger.Logger
	Repo      staleDeleter
	Metrics   *metrics.CronJobMetrics
	Retention time.Duration
}

type tokenCleanupJob struct {
	logg      *logger.Logger
	repo      staleDeleter
	metrics   *metrics.CronJobMetrics
	retention time.Duration
	now       func() time.Time
}

// NewTokenCleanupJob purges password reset tokens and invite links once they
// have been expired or used for longer than the retention window.
func NewTokenCleanupJob(params TokenCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("cleanup repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultTokenRetention
	}
	return &tokenCleanupJob{
		logg:      params.Logger,
		repo:      params.Repo,
		metrics:   params.Metrics,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (j *tokenCleanupJob) Name() string { return tokenCleanupJobName }

// Run sweeps each table on its own; one failing table does not stop the other.
func (j *tokenCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	targets := []struct {
		table string
		model any
	}{
		{tableResetTokens, &models.PasswordResetToken{}},
		{tableInviteLinks, &models.InviteLink{}},
	}

	var errs error
	fields := map[string]any{"cutoff": cutoff}
	for _, target := range targets {
		removed, err := j.repo.DeleteStale(ctx, target.model, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("purge %s: %w", target.table, err))
			continue
		}
		j.metrics.AddRemoved(tokenCleanupJobName, target.table, removed)
		fields[target.table+"_deleted"] = removed
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "token cleanup swept")
	return errs
}
