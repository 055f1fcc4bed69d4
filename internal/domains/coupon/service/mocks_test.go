package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"bikeshop-backend/internal/domains/coupon/model"
)

type mockCouponRepo struct {
	mock.Mock
}

func (m *mockCouponRepo) FindByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	args := m.Called(ctx, tx, code)
	c, _ := args.Get(0).(*model.Coupon)
	return c, args.Error(1)
}

func (m *mockCouponRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.Coupon)
	return c, args.Error(1)
}

func (m *mockCouponRepo) ListActive(ctx context.Context, now time.Time) ([]*model.Coupon, error) {
	args := m.Called(ctx, now)
	c, _ := args.Get(0).([]*model.Coupon)
	return c, args.Error(1)
}

func (m *mockCouponRepo) List(ctx context.Context, filter *model.ListCouponsFilter) ([]*model.Coupon, int, error) {
	args := m.Called(ctx, filter)
	c, _ := args.Get(0).([]*model.Coupon)
	return c, args.Int(1), args.Error(2)
}

func (m *mockCouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCouponRepo) Update(ctx context.Context, c *model.Coupon) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCouponRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCouponRepo) CodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, code, excludeID)
	return args.Bool(0), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) CountFor(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, couponID, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockLedger) CountsByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(map[uuid.UUID]int)
	return c, args.Error(1)
}

func (m *mockLedger) Append(ctx context.Context, tx pgx.Tx, usage *model.CouponUsage) error {
	return m.Called(ctx, tx, usage).Error(0)
}

func (m *mockLedger) ListByCoupon(ctx context.Context, couponID uuid.UUID) ([]*model.CouponUsage, error) {
	args := m.Called(ctx, couponID)
	u, _ := args.Get(0).([]*model.CouponUsage)
	return u, args.Error(1)
}

func (m *mockLedger) CountByCoupon(ctx context.Context, couponID uuid.UUID) (int, error) {
	args := m.Called(ctx, couponID)
	return args.Int(0), args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
