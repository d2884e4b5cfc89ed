package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCleanupJob(t *testing.T, repo staleDeleter, now time.Time) *tokenCleanupJob {
	t.Helper()
	var buf bytes.Buffer
	job, err := NewTokenCleanupJob(TokenCleanupJobParams{Logger: testLogger(&buf), Repo: repo})
	require.NoError(t, err)
	typed := job.(*tokenCleanupJob)
	typed.now = func() time.Time { return now }
	return typed
}

func TestTokenCleanupPurgesStaleRows(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, "ana@example.com", "Ana")
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	token := func(expires time.Time, used *time.Time) models.PasswordResetToken {
		row := models.PasswordResetToken{ID: uuid.New(), UserID: user.ID, Token: uuid.NewString(), ExpiresAt: expires, UsedAt: used}
		require.NoError(t, conn.Create(&row).Error)
		return row
	}
	invite := func(expires time.Time, used *time.Time) models.InviteLink {
		row := models.InviteLink{ID: uuid.New(), OwnerID: user.ID, Code: uuid.NewString()[:12], ExpiresAt: expires, UsedAt: used}
		require.NoError(t, conn.Create(&row).Error)
		return row
	}

	longExpired := now.Add(-48 * time.Hour)
	recentlyExpired := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	oldUse := now.Add(-30 * time.Hour)
	recentUse := now.Add(-2 * time.Hour)

	token(longExpired, nil)
	keptToken := token(recentlyExpired, nil)
	token(future, &oldUse)
	keptUsedToken := token(future, &recentUse)

	invite(longExpired, nil)
	keptInvite := invite(future, nil)
	invite(future, &oldUse)

	job := newCleanupJob(t, NewCleanupRepository(conn), now)
	require.NoError(t, job.Run(context.Background()))

	var tokens []models.PasswordResetToken
	require.NoError(t, conn.Order("expires_at").Find(&tokens).Error)
	require.Len(t, tokens, 2)
	assert.ElementsMatch(t, []uuid.UUID{keptToken.ID, keptUsedToken.ID}, []uuid.UUID{tokens[0].ID, tokens[1].ID})

	var invites []models.InviteLink
	require.NoError(t, conn.Find(&invites).Error)
	require.Len(t, invites, 1)
	assert.Equal(t, keptInvite.ID, invites[0].ID)
}

type flakyDeleter struct {
	calls []string
}

func (f *flakyDeleter) DeleteStale(_ context.Context, model any, _ time.Time) (int64, error) {
	switch model.(type) {
	case *models.PasswordResetToken:
		f.calls = append(f.calls, "tokens")
		return 0, errors.New("tokens table locked")
	default:
		f.calls = append(f.calls, "invites")
		return 2, nil
	}
}

func TestTokenCleanupContinuesPastFailingTable(t *testing.T) {
	repo := &flakyDeleter{}
	job := newCleanupJob(t, repo, time.Now())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge password_reset_tokens")
	assert.Equal(t, []string{"tokens", "invites"}, repo.calls)
}

func TestTokenCleanupUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	var seen time.Time
	repo := deleterFunc(func(_ context.Context, _ any, cutoff time.Time) (int64, error) {
		seen = cutoff
		return 0, nil
	})
	job := newCleanupJob(t, repo, now)
	require.NoError(t, job.Run(context.Background()))
	assert.True(t, seen.Equal(now.Add(-24*time.Hour)), "cutoff %s", seen)
}

type deleterFunc func(ctx context.Context, model any, cutoff time.Time) (int64, error)

func (f deleterFunc) DeleteStale(ctx context.Context, model any, cutoff time.Time) (int64, error) {
	return f(ctx, model, cutoff)
}

var _ staleDeleter = (*CleanupRepository)(nil)
