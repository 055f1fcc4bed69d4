package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bikeshop-backend/internal/domains/coupon/model"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/pkg/apperror"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func welcome10() *model.Coupon {
	return &model.Coupon{
		ID:              uuid.New(),
		Code:            "WELCOME10",
		DiscountType:    model.DiscountTypePercentage,
		DiscountValue:   dec("10"),
		MinAmount:       dec("0"),
		ApplicableItems: []string{shared.TagRepairServices},
		UsageLimit:      1,
		IsActive:        true,
	}
}

func newTestService(repo *mockCouponRepo, ledger *mockLedger, opts ...Option) ServiceInterface {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewCouponService(repo, ledger, opts...)
}

func repairInput(userID uuid.UUID, code, total string) *model.EvaluateInput {
	return &model.EvaluateInput{
		Code:        code,
		UserID:      userID,
		RequestType: shared.RequestTypeRepair,
		ItemTags:    []string{shared.TagRepairServices},
		Total:       dec(total),
	}
}

func TestEvaluate_Valid(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	coupon := welcome10()
	userID := uuid.New()

	repo.On("FindByCode", mock.Anything, mock.Anything, "WELCOME10").Return(coupon, nil)
	ledger.On("CountFor", mock.Anything, mock.Anything, coupon.ID, userID).Return(0, nil)

	svc := newTestService(repo, ledger)
	res, err := svc.Evaluate(context.Background(), repairInput(userID, "WELCOME10", "500"))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, dec("50").Equal(res.DiscountAmount))
	assert.True(t, dec("450").Equal(res.NetAmount))
	assert.Empty(t, res.Reason)

	// Preview never touches the ledger
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_IsIdempotent(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	coupon := welcome10()
	userID := uuid.New()

	repo.On("FindByCode", mock.Anything, mock.Anything, "WELCOME10").Return(coupon, nil)
	ledger.On("CountFor", mock.Anything, mock.Anything, coupon.ID, userID).Return(0, nil)

	svc := newTestService(repo, ledger)
	first, err := svc.Evaluate(context.Background(), repairInput(userID, "WELCOME10", "500"))
	require.NoError(t, err)
	second, err := svc.Evaluate(context.Background(), repairInput(userID, "WELCOME10", "500"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluate_Rejections(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)

	tests := []struct {
		name    string
		mutate  func(c *model.Coupon)
		used    int
		total   string
		tags    []string
		code    string
		reason  apperror.ErrorCode
		noCount bool
	}{
		{name: "inactive", mutate: func(c *model.Coupon) { c.IsActive = false }, reason: model.ErrCodeCouponNotFound, noCount: true},
		{name: "expired", mutate: func(c *model.Coupon) { c.ExpiresAt = &past }, reason: model.ErrCodeCouponExpired, noCount: true},
		{name: "usage limit reached", used: 1, reason: model.ErrCodeCouponUsageLimitReached},
		{name: "not applicable", tags: []string{shared.TagRentalBicycles}, reason: model.ErrCodeCouponNotApplicable},
		{name: "below minimum", mutate: func(c *model.Coupon) { c.MinAmount = dec("1000") }, reason: model.ErrCodeCouponBelowMinimum},
		{
			name:   "expiry checked before usage",
			mutate: func(c *model.Coupon) { c.ExpiresAt = &past },
			used:   5, reason: model.ErrCodeCouponExpired, noCount: true,
		},
		{
			name:   "usage checked before applicability",
			used:   1,
			tags:   []string{shared.TagDeliveryCharges},
			reason: model.ErrCodeCouponUsageLimitReached,
		},
		{
			name:   "future expiry is fine but minimum is not",
			mutate: func(c *model.Coupon) { c.ExpiresAt = &future; c.MinAmount = dec("600") },
			reason: model.ErrCodeCouponBelowMinimum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, ledger := new(mockCouponRepo), new(mockLedger)
			coupon := welcome10()
			if tt.mutate != nil {
				tt.mutate(coupon)
			}
			userID := uuid.New()

			repo.On("FindByCode", mock.Anything, mock.Anything, "WELCOME10").Return(coupon, nil)
			ledger.On("CountFor", mock.Anything, mock.Anything, coupon.ID, userID).Return(tt.used, nil)

			in := repairInput(userID, "WELCOME10", "500")
			if tt.tags != nil {
				in.ItemTags = tt.tags
			}

			svc := newTestService(repo, ledger)
			res, err := svc.Evaluate(context.Background(), in)
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, string(tt.reason), res.Reason)
			assert.True(t, res.DiscountAmount.IsZero())
			assert.True(t, dec("500").Equal(res.NetAmount))

			if tt.noCount {
				ledger.AssertNotCalled(t, "CountFor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestEvaluate_UnknownCode(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	repo.On("FindByCode", mock.Anything, mock.Anything, "welcome10").Return(nil, model.ErrCouponNotFound)

	svc := newTestService(repo, ledger)
	res, err := svc.Evaluate(context.Background(), repairInput(uuid.New(), "welcome10", "500"))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, string(model.ErrCodeCouponNotFound), res.Reason)
}

func TestEvaluate_NoItemsIsNotApplicable(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	coupon := welcome10()
	userID := uuid.New()
	repo.On("FindByCode", mock.Anything, mock.Anything, "WELCOME10").Return(coupon, nil)
	ledger.On("CountFor", mock.Anything, mock.Anything, coupon.ID, userID).Return(0, nil)

	in := repairInput(userID, "WELCOME10", "500")
	in.ItemTags = nil

	svc := newTestService(repo, ledger)
	res, err := svc.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, string(model.ErrCodeCouponNotApplicable), res.Reason)
	assert.True(t, dec("500").Equal(res.NetAmount))
}

func TestEvaluate_PersistenceErrorIsReturned(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	repo.On("FindByCode", mock.Anything, mock.Anything, "WELCOME10").Return(nil, errors.New("connection refused"))

	svc := newTestService(repo, ledger)
	_, err := svc.Evaluate(context.Background(), repairInput(uuid.New(), "WELCOME10", "500"))
	require.Error(t, err)
	assert.Equal(t, apperror.KindPersistence, apperror.KindOf(err))
}

func TestApply_ReturnsCouponErrors(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	coupon := welcome10()
	userID := uuid.New()

	repo.On("FindByCode", mock.Anything, mock.Anything, "WELCOME10").Return(coupon, nil)
	ledger.On("CountFor", mock.Anything, mock.Anything, coupon.ID, userID).Return(1, nil)

	svc := newTestService(repo, ledger)
	_, err := svc.Apply(context.Background(), nil, repairInput(userID, "WELCOME10", "500"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCouponUsageLimitReached)
	assert.Equal(t, apperror.KindCoupon, apperror.KindOf(err))
}

func TestApply_RejectsBlankCodeAndNegativeTotal(t *testing.T) {
	svc := newTestService(new(mockCouponRepo), new(mockLedger))

	_, err := svc.Apply(context.Background(), nil, repairInput(uuid.New(), "   ", "500"))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.Apply(context.Background(), nil, repairInput(uuid.New(), "WELCOME10", "-1"))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestListAvailable(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	userID := uuid.New()

	used := welcome10()
	fresh := welcome10()
	fresh.Code = "RIDE50"
	fresh.UsageLimit = 3

	repo.On("ListActive", mock.Anything, fixedNow).Return([]*model.Coupon{used, fresh}, nil)
	ledger.On("CountsByUser", mock.Anything, userID).Return(map[uuid.UUID]int{used.ID: 1, fresh.ID: 1}, nil)

	svc := newTestService(repo, ledger)
	list, err := svc.ListAvailable(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "RIDE50", list[0].Code)
	assert.Equal(t, 2, list[0].RemainingUses)
}

func TestListAvailable_CachesActiveListOnly(t *testing.T) {
	repo, ledger, c := new(mockCouponRepo), new(mockLedger), new(mockCache)
	userID := uuid.New()
	coupon := welcome10()

	c.On("Get", mock.Anything, "coupons:active", mock.Anything).Return(false, nil).Once()
	c.On("Set", mock.Anything, "coupons:active", mock.Anything, 10*time.Minute).Return(nil).Once()
	repo.On("ListActive", mock.Anything, fixedNow).Return([]*model.Coupon{coupon}, nil).Once()
	ledger.On("CountsByUser", mock.Anything, userID).Return(map[uuid.UUID]int{}, nil).Once()

	svc := newTestService(repo, ledger, WithCache(c), WithCacheTTL(10*time.Minute))
	list, err := svc.ListAvailable(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].RemainingUses)

	// Cache hit: the active list is reused but the user's counts are re-read
	c.On("Get", mock.Anything, "coupons:active", mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(2).(*[]*model.Coupon)
			*dest = []*model.Coupon{coupon}
		}).
		Return(true, nil).Once()
	ledger.On("CountsByUser", mock.Anything, userID).Return(map[uuid.UUID]int{coupon.ID: 1}, nil).Once()

	list, err = svc.ListAvailable(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, list)

	c.AssertExpectations(t)
	repo.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestRecordUsage(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	usage := &model.CouponUsage{
		CouponID:       uuid.New(),
		UserID:         uuid.New(),
		RequestType:    shared.RequestTypeRepair,
		RequestID:      uuid.New(),
		DiscountAmount: dec("50"),
	}

	ledger.On("Append", mock.Anything, mock.Anything, usage).Return(nil).Once()

	svc := newTestService(repo, ledger)
	require.NoError(t, svc.RecordUsage(context.Background(), nil, usage))

	ledger.On("Append", mock.Anything, mock.Anything, usage).Return(model.ErrCouponUsageLimitReached).Once()
	err := svc.RecordUsage(context.Background(), nil, usage)
	assert.ErrorIs(t, err, model.ErrCouponUsageLimitReached)

	err = svc.RecordUsage(context.Background(), nil, &model.CouponUsage{RequestType: shared.RequestTypeRepair})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCreateCoupon(t *testing.T) {
	repo, ledger, c := new(mockCouponRepo), new(mockLedger), new(mockCache)

	req := &model.CreateCouponRequest{
		Code:            "WELCOME10",
		DiscountType:    model.DiscountTypePercentage,
		DiscountValue:   dec("10"),
		ApplicableItems: []string{"repair_services", " repair_services "},
		UsageLimit:      1,
	}

	repo.On("CodeExists", mock.Anything, "WELCOME10", (*uuid.UUID)(nil)).Return(false, nil).Once()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Coupon")).Return(nil).Once()
	c.On("Delete", mock.Anything, []string{"coupons:active"}).Return(nil).Once()

	svc := newTestService(repo, ledger, WithCache(c))
	coupon, err := svc.CreateCoupon(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, coupon.IsActive)
	assert.Equal(t, []string{"repair_services"}, coupon.ApplicableItems)
	c.AssertExpectations(t)

	repo.On("CodeExists", mock.Anything, "WELCOME10", (*uuid.UUID)(nil)).Return(true, nil).Once()
	_, err = svc.CreateCoupon(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrCouponDuplicateCode)

	_, err = svc.CreateCoupon(context.Background(), &model.CreateCouponRequest{Code: "ab"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestDeleteCoupon_RefusesWhenUsed(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	coupon := welcome10()

	repo.On("FindByID", mock.Anything, coupon.ID).Return(coupon, nil)
	ledger.On("CountByCoupon", mock.Anything, coupon.ID).Return(2, nil).Once()

	svc := newTestService(repo, ledger)
	err := svc.DeleteCoupon(context.Background(), coupon.ID)
	assert.ErrorIs(t, err, model.ErrCouponInUse)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	ledger.On("CountByCoupon", mock.Anything, coupon.ID).Return(0, nil).Once()
	repo.On("Delete", mock.Anything, coupon.ID).Return(nil).Once()
	require.NoError(t, svc.DeleteCoupon(context.Background(), coupon.ID))
}

func TestUpdateCoupon(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	coupon := welcome10()
	limit := 5

	repo.On("FindByID", mock.Anything, coupon.ID).Return(coupon, nil)
	repo.On("Update", mock.Anything, coupon).Return(nil)

	svc := newTestService(repo, ledger)
	updated, err := svc.UpdateCoupon(context.Background(), coupon.ID, &model.UpdateCouponRequest{UsageLimit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.UsageLimit)
}

func TestExportUsages(t *testing.T) {
	repo, ledger := new(mockCouponRepo), new(mockLedger)
	coupon := welcome10()

	repo.On("FindByID", mock.Anything, coupon.ID).Return(coupon, nil)
	ledger.On("ListByCoupon", mock.Anything, coupon.ID).Return([]*model.CouponUsage{{
		CouponID:       coupon.ID,
		UserID:         uuid.New(),
		RequestType:    shared.RequestTypeRepair,
		RequestID:      uuid.New(),
		DiscountAmount: dec("50"),
		Slot:           1,
		UsedAt:         fixedNow,
	}}, nil)

	svc := newTestService(repo, ledger)
	f, got, err := svc.ExportUsages(context.Background(), coupon.ID)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, coupon.Code, got.Code)

	header, err := f.GetCellValue(usageSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Coupon Code", header)

	code, err := f.GetCellValue(usageSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", code)
}
