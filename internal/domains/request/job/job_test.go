package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/internal/shared/utils"
)

type mockRequests struct {
	mock.Mock
}

func (m *mockRequests) Create(ctx context.Context, tx pgx.Tx, in *model.CreateRequestInput) (*model.Request, error) {
	args := m.Called(ctx, tx, in)
	r, _ := args.Get(0).(*model.Request)
	return r, args.Error(1)
}

func (m *mockRequests) Get(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*model.Request)
	return r, args.Error(1)
}

func (m *mockRequests) GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Request, error) {
	args := m.Called(ctx, id, userID)
	r, _ := args.Get(0).(*model.Request)
	return r, args.Error(1)
}

func (m *mockRequests) List(ctx context.Context, f *model.ListRequestsFilter) ([]*model.Request, int, error) {
	args := m.Called(ctx, f)
	r, _ := args.Get(0).([]*model.Request)
	return r, args.Int(1), args.Error(2)
}

func (m *mockRequests) Transition(ctx context.Context, id uuid.UUID, req *model.TransitionStatusRequest) (*model.Request, error) {
	args := m.Called(ctx, id, req)
	r, _ := args.Get(0).(*model.Request)
	return r, args.Error(1)
}

func (m *mockRequests) IsCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRequests) ExpireIfStale(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRequests) Sweep(ctx context.Context, batchSize int) (int, error) {
	args := m.Called(ctx, batchSize)
	return args.Int(0), args.Error(1)
}

func TestExpireRequestHandler(t *testing.T) {
	svc := new(mockRequests)
	id := uuid.New()
	svc.On("ExpireIfStale", mock.Anything, id).Return(false, nil)

	payload, err := json.Marshal(shared.ExpireRequestPayload{RequestID: id, ExpiresAt: time.Now()})
	require.NoError(t, err)

	h := NewExpireRequestHandler(svc)
	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeExpireRequest, payload)))
	svc.AssertExpectations(t)
}

func TestExpireRequestHandler_BadPayloadSkipsRetry(t *testing.T) {
	h := NewExpireRequestHandler(new(mockRequests))
	err := h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeExpireRequest, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSweepExpiredHandler(t *testing.T) {
	svc := new(mockRequests)
	svc.On("Sweep", mock.Anything, 0).Return(3, nil).Once()
	svc.On("Sweep", mock.Anything, 0).Return(0, errors.New("db down")).Once()

	h := NewSweepExpiredHandler(svc)
	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeSweepExpiredRequests, nil)))
	assert.Error(t, h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeSweepExpiredRequests, nil)))
	svc.AssertExpectations(t)
}

func TestSweepExpiredHandler_UsesPayloadBatchSize(t *testing.T) {
	svc := new(mockRequests)
	svc.On("Sweep", mock.Anything, 250).Return(0, nil).Once()

	task, err := utils.MarshalTask(shared.TypeSweepExpiredRequests, shared.SweepExpiredPayload{BatchSize: 250})
	require.NoError(t, err)

	h := NewSweepExpiredHandler(svc)
	require.NoError(t, h.ProcessTask(context.Background(), task))
	svc.AssertExpectations(t)

	err = h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeSweepExpiredRequests, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
