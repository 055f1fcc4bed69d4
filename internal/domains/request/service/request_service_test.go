package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/pkg/apperror"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, tx pgx.Tx, r *model.Request) error {
	return m.Called(ctx, tx, r).Error(0)
}

func (m *mockRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*model.Request)
	return r, args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, filter *model.ListRequestsFilter) ([]*model.Request, int, error) {
	args := m.Called(ctx, filter)
	r, _ := args.Get(0).([]*model.Request)
	return r, args.Int(1), args.Error(2)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status, note *string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to, note, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) ExpireOne(ctx context.Context, id uuid.UUID, now time.Time) (*model.StatusChange, error) {
	args := m.Called(ctx, id, now)
	c, _ := args.Get(0).(*model.StatusChange)
	return c, args.Error(1)
}

func (m *mockRepo) ExpireStale(ctx context.Context, now time.Time, limit int) ([]*model.StatusChange, error) {
	args := m.Called(ctx, now, limit)
	c, _ := args.Get(0).([]*model.StatusChange)
	return c, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func pendingRequest(method model.PaymentMethod) *model.Request {
	return &model.Request{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Type:          shared.RequestTypeRepair,
		Status:        model.StatusPending,
		PaymentMethod: method,
		TotalAmount:   decimal.NewFromInt(500),
		NetAmount:     decimal.NewFromInt(500),
		ExpiresAt:     now.Add(10 * time.Minute),
		CreatedAt:     now.Add(-5 * time.Minute),
	}
}

func withStatus(r *model.Request, s model.Status) *model.Request {
	cp := *r
	cp.Status = s
	return &cp
}

func TestCreate_SetsPendingAndExpiry(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*model.Request")).Return(nil)

	svc := NewRequestService(repo, WithClock(clock), WithExpiryWindow(15*time.Minute))
	req, err := svc.Create(context.Background(), nil, &model.CreateRequestInput{
		UserID:         uuid.New(),
		Type:           shared.RequestTypeRepair,
		PaymentMethod:  model.PaymentMethodOnline,
		TotalAmount:    decimal.NewFromInt(500),
		DiscountAmount: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, req.Status)
	assert.Equal(t, now.Add(15*time.Minute), req.ExpiresAt)
	assert.True(t, decimal.NewFromInt(450).Equal(req.NetAmount))
	assert.True(t, decimal.NewFromInt(500).Equal(req.TotalAmount))
}

func TestCreate_RejectsBadInput(t *testing.T) {
	svc := NewRequestService(new(mockRepo), WithClock(clock))

	_, err := svc.Create(context.Background(), nil, &model.CreateRequestInput{
		UserID:        uuid.New(),
		Type:          "tour",
		PaymentMethod: model.PaymentMethodOnline,
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.Create(context.Background(), nil, &model.CreateRequestInput{
		UserID:         uuid.New(),
		Type:           shared.RequestTypeRental,
		PaymentMethod:  model.PaymentMethodOffline,
		TotalAmount:    decimal.NewFromInt(100),
		DiscountAmount: decimal.NewFromInt(150),
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestGet_LazyExpiry(t *testing.T) {
	repo := new(mockRepo)
	req := pendingRequest(model.PaymentMethodOnline)
	req.ExpiresAt = now.Add(-time.Minute)
	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	svc := NewRequestService(repo, WithClock(clock))
	got, err := svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status)

	// Reads never write
	repo.AssertNotCalled(t, "ExpireOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestList_FiltersAtServiceClock(t *testing.T) {
	repo := new(mockRepo)
	stale := pendingRequest(model.PaymentMethodOnline)
	stale.ExpiresAt = now.Add(-time.Minute)
	repo.On("List", mock.Anything, mock.MatchedBy(func(f *model.ListRequestsFilter) bool {
		return f.Status == model.StatusExpired && f.Now.Equal(now)
	})).Return([]*model.Request{stale}, 1, nil)

	svc := NewRequestService(repo, WithClock(clock))
	got, total, err := svc.List(context.Background(), &model.ListRequestsFilter{Status: model.StatusExpired})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, model.StatusExpired, got[0].Status)
	repo.AssertExpectations(t)
}

func TestGetForUser_HidesOtherUsersRequests(t *testing.T) {
	repo := new(mockRepo)
	req := pendingRequest(model.PaymentMethodOnline)
	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	svc := NewRequestService(repo, WithClock(clock))
	_, err := svc.GetForUser(context.Background(), req.ID, uuid.New())
	assert.ErrorIs(t, err, model.ErrRequestNotFound)

	got, err := svc.GetForUser(context.Background(), req.ID, req.UserID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
}

func TestTransition_Approve(t *testing.T) {
	repo := new(mockRepo)
	pub := &recordingPublisher{}
	req := pendingRequest(model.PaymentMethodOnline)

	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil).Once()
	repo.On("UpdateStatus", mock.Anything, req.ID, model.StatusPending, model.StatusWaitingPayment, (*string)(nil), now).Return(true, nil)
	repo.On("FindByID", mock.Anything, req.ID).Return(withStatus(req, model.StatusWaitingPayment), nil).Once()

	svc := NewRequestService(repo, WithClock(clock), WithPublisher(pub))
	got, err := svc.Transition(context.Background(), req.ID, &model.TransitionStatusRequest{TargetStatus: model.StatusWaitingPayment})
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitingPayment, got.Status)

	require.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventRequestStatusChanged, pub.events[0].Type)
	change := pub.events[0].Payload.(*model.StatusChange)
	assert.Equal(t, model.StatusPending, change.From)
	assert.Equal(t, model.StatusWaitingPayment, change.To)
}

func TestTransition_OfflineApprovalMustSkipPayment(t *testing.T) {
	repo := new(mockRepo)
	req := pendingRequest(model.PaymentMethodOffline)
	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	svc := NewRequestService(repo, WithClock(clock))
	_, err := svc.Transition(context.Background(), req.ID, &model.TransitionStatusRequest{TargetStatus: model.StatusWaitingPayment})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, apperror.KindInvalidTransition, apperror.KindOf(err))
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_TerminalStatesRefuse(t *testing.T) {
	for _, status := range []model.Status{model.StatusCompleted, model.StatusRejected, model.StatusExpired} {
		t.Run(string(status), func(t *testing.T) {
			repo := new(mockRepo)
			req := withStatus(pendingRequest(model.PaymentMethodOffline), status)
			repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

			svc := NewRequestService(repo, WithClock(clock))
			_, err := svc.Transition(context.Background(), req.ID, &model.TransitionStatusRequest{TargetStatus: model.StatusActive})
			assert.Equal(t, apperror.KindInvalidTransition, apperror.KindOf(err))
		})
	}
}

func TestTransition_RejectRequiresNote(t *testing.T) {
	svc := NewRequestService(new(mockRepo), WithClock(clock))
	blank := "   "

	_, err := svc.Transition(context.Background(), uuid.New(), &model.TransitionStatusRequest{
		TargetStatus:  model.StatusRejected,
		RejectionNote: &blank,
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestTransition_ExpiredRequestIsPersistedThenRefused(t *testing.T) {
	repo := new(mockRepo)
	pub := &recordingPublisher{}
	req := pendingRequest(model.PaymentMethodOnline)
	req.ExpiresAt = now.Add(-time.Second)

	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	repo.On("ExpireOne", mock.Anything, req.ID, now).Return(&model.StatusChange{
		RequestID: req.ID, From: model.StatusPending, To: model.StatusExpired, ChangedAt: now,
	}, nil)

	svc := NewRequestService(repo, WithClock(clock), WithPublisher(pub))
	_, err := svc.Transition(context.Background(), req.ID, &model.TransitionStatusRequest{TargetStatus: model.StatusWaitingPayment})
	assert.ErrorIs(t, err, model.ErrRequestExpired)
	assert.Equal(t, apperror.KindInvalidTransition, apperror.KindOf(err))
	assert.Len(t, pub.events, 1)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_LostRace(t *testing.T) {
	t.Run("already at target is a no-op", func(t *testing.T) {
		repo := new(mockRepo)
		req := pendingRequest(model.PaymentMethodOnline)

		repo.On("FindByID", mock.Anything, req.ID).Return(req, nil).Once()
		repo.On("UpdateStatus", mock.Anything, req.ID, model.StatusPending, model.StatusWaitingPayment, (*string)(nil), now).Return(false, nil)
		repo.On("FindByID", mock.Anything, req.ID).Return(withStatus(req, model.StatusWaitingPayment), nil).Once()

		svc := NewRequestService(repo, WithClock(clock))
		got, err := svc.Transition(context.Background(), req.ID, &model.TransitionStatusRequest{TargetStatus: model.StatusWaitingPayment})
		require.NoError(t, err)
		assert.Equal(t, model.StatusWaitingPayment, got.Status)
	})

	t.Run("moved elsewhere is an invalid transition", func(t *testing.T) {
		repo := new(mockRepo)
		req := pendingRequest(model.PaymentMethodOnline)

		repo.On("FindByID", mock.Anything, req.ID).Return(req, nil).Once()
		repo.On("UpdateStatus", mock.Anything, req.ID, model.StatusPending, model.StatusWaitingPayment, (*string)(nil), now).Return(false, nil)
		repo.On("FindByID", mock.Anything, req.ID).Return(withStatus(req, model.StatusRejected), nil).Once()

		svc := NewRequestService(repo, WithClock(clock))
		_, err := svc.Transition(context.Background(), req.ID, &model.TransitionStatusRequest{TargetStatus: model.StatusWaitingPayment})
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
	})
}

func TestTransition_NotFound(t *testing.T) {
	repo := new(mockRepo)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(nil, model.ErrRequestNotFound)

	svc := NewRequestService(repo, WithClock(clock))
	_, err := svc.Transition(context.Background(), id, &model.TransitionStatusRequest{TargetStatus: model.StatusCompleted})
	assert.ErrorIs(t, err, model.ErrRequestNotFound)
}

func TestExpireIfStale_IsIdempotent(t *testing.T) {
	repo := new(mockRepo)
	id := uuid.New()
	repo.On("ExpireOne", mock.Anything, id, now).Return(&model.StatusChange{RequestID: id, To: model.StatusExpired}, nil).Once()
	repo.On("ExpireOne", mock.Anything, id, now).Return(nil, nil).Once()

	svc := NewRequestService(repo, WithClock(clock))

	changed, err := svc.ExpireIfStale(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.ExpireIfStale(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSweep_DrainsInBatches(t *testing.T) {
	repo := new(mockRepo)
	pub := &recordingPublisher{}

	batch := func(n int) []*model.StatusChange {
		out := make([]*model.StatusChange, n)
		for i := range out {
			out[i] = &model.StatusChange{RequestID: uuid.New(), To: model.StatusExpired}
		}
		return out
	}
	repo.On("ExpireStale", mock.Anything, now, 2).Return(batch(2), nil).Once()
	repo.On("ExpireStale", mock.Anything, now, 2).Return(batch(1), nil).Once()

	svc := NewRequestService(repo, WithClock(clock), WithSweepBatchSize(2), WithPublisher(pub))
	n, err := svc.Sweep(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, pub.events, 3)
	repo.AssertExpectations(t)
}

func TestSweep_BatchSizeOverride(t *testing.T) {
	repo := new(mockRepo)
	repo.On("ExpireStale", mock.Anything, now, 5).Return([]*model.StatusChange{}, nil).Once()

	svc := NewRequestService(repo, WithClock(clock), WithSweepBatchSize(2))
	n, err := svc.Sweep(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, n)
	repo.AssertExpectations(t)
}

func TestSweep_PersistenceError(t *testing.T) {
	repo := new(mockRepo)
	repo.On("ExpireStale", mock.Anything, now, DefaultSweepBatchSize).Return(nil, errors.New("db down"))

	svc := NewRequestService(repo, WithClock(clock))
	_, err := svc.Sweep(context.Background(), 0)
	assert.Equal(t, apperror.KindPersistence, apperror.KindOf(err))
}

func TestIsCompleted(t *testing.T) {
	repo := new(mockRepo)
	req := withStatus(pendingRequest(model.PaymentMethodOffline), model.StatusCompleted)
	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	svc := NewRequestService(repo, WithClock(clock))
	done, err := svc.IsCompleted(context.Background(), req.ID)
	require.NoError(t, err)
	assert.True(t, done)
}
