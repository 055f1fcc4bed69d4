package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/internal/infrastructure/database/pgtest"
	"bikeshop-backend/internal/shared"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func seedRequest(t *testing.T, repo RequestRepository, userID uuid.UUID, status model.Status, expiresAt time.Time) *model.Request {
	t.Helper()
	req := &model.Request{
		UserID:         userID,
		Type:           shared.RequestTypeRepair,
		Status:         status,
		PaymentMethod:  model.PaymentMethodOnline,
		TotalAmount:    decimal.NewFromInt(500),
		DiscountAmount: decimal.Zero,
		NetAmount:      decimal.NewFromInt(500),
		Details:        model.Details{Lines: []model.LineItem{}},
		ExpiresAt:      expiresAt,
		CreatedAt:      baseTime.Add(-time.Minute),
	}
	require.NoError(t, repo.Create(context.Background(), nil, req))
	return req
}

func TestPostgresRepository_UpdateStatusRespectsWindow(t *testing.T) {
	repo := NewPostgresRepository(pgtest.NewPool(t))
	ctx := context.Background()
	userID := uuid.New()

	open := seedRequest(t, repo, userID, model.StatusPending, baseTime.Add(time.Minute))
	stale := seedRequest(t, repo, userID, model.StatusPending, baseTime.Add(-time.Minute))

	ok, err := repo.UpdateStatus(ctx, open.ID, model.StatusPending, model.StatusWaitingPayment, nil, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	// from no longer matches
	ok, err = repo.UpdateStatus(ctx, open.ID, model.StatusPending, model.StatusActive, nil, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateStatus(ctx, stale.ID, model.StatusPending, model.StatusWaitingPayment, nil, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)

	note := "parts unavailable"
	ok, err = repo.UpdateStatus(ctx, open.ID, model.StatusWaitingPayment, model.StatusRejected, &note, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = repo.FindByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)
	require.NotNil(t, got.RejectionNote)
	assert.Equal(t, note, *got.RejectionNote)
}

func TestPostgresRepository_ExpireOneIsIdempotent(t *testing.T) {
	repo := NewPostgresRepository(pgtest.NewPool(t))
	ctx := context.Background()

	stale := seedRequest(t, repo, uuid.New(), model.StatusWaitingPayment, baseTime.Add(-time.Minute))
	open := seedRequest(t, repo, uuid.New(), model.StatusPending, baseTime.Add(time.Minute))

	change, err := repo.ExpireOne(ctx, stale.ID, baseTime)
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, stale.ID, change.RequestID)
	assert.Equal(t, model.StatusWaitingPayment, change.From)
	assert.Equal(t, model.StatusExpired, change.To)

	change, err = repo.ExpireOne(ctx, stale.ID, baseTime)
	require.NoError(t, err)
	assert.Nil(t, change)

	change, err = repo.ExpireOne(ctx, open.ID, baseTime)
	require.NoError(t, err)
	assert.Nil(t, change)
}

func TestPostgresRepository_ExpireStaleBatches(t *testing.T) {
	repo := NewPostgresRepository(pgtest.NewPool(t))
	ctx := context.Background()
	userID := uuid.New()

	for i := 1; i <= 3; i++ {
		seedRequest(t, repo, userID, model.StatusPending, baseTime.Add(-time.Duration(i)*time.Minute))
	}
	seedRequest(t, repo, userID, model.StatusPending, baseTime.Add(time.Minute))

	changes, err := repo.ExpireStale(ctx, baseTime, 2)
	require.NoError(t, err)
	assert.Len(t, changes, 2)

	changes, err = repo.ExpireStale(ctx, baseTime, 2)
	require.NoError(t, err)
	assert.Len(t, changes, 1)

	changes, err = repo.ExpireStale(ctx, baseTime, 2)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestPostgresRepository_ListFiltersOnEffectiveStatus(t *testing.T) {
	repo := NewPostgresRepository(pgtest.NewPool(t))
	ctx := context.Background()
	userID := uuid.New()

	open := seedRequest(t, repo, userID, model.StatusPending, baseTime.Add(time.Minute))
	stale := seedRequest(t, repo, userID, model.StatusPending, baseTime.Add(-time.Minute))
	persisted := seedRequest(t, repo, userID, model.StatusExpired, baseTime.Add(-time.Hour))
	seedRequest(t, repo, userID, model.StatusCompleted, baseTime.Add(-time.Hour))

	ids := func(reqs []*model.Request) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(reqs))
		for _, r := range reqs {
			out = append(out, r.ID)
		}
		return out
	}

	pending, total, err := repo.List(ctx, &model.ListRequestsFilter{UserID: &userID, Status: model.StatusPending, Now: baseTime})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []uuid.UUID{open.ID}, ids(pending))

	expired, total, err := repo.List(ctx, &model.ListRequestsFilter{UserID: &userID, Status: model.StatusExpired, Now: baseTime})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.ElementsMatch(t, []uuid.UUID{stale.ID, persisted.ID}, ids(expired))

	completed, total, err := repo.List(ctx, &model.ListRequestsFilter{UserID: &userID, Status: model.StatusCompleted, Now: baseTime})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, completed, 1)
}
