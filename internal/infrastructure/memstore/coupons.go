package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bikeshop-backend/internal/domains/coupon/model"
	"bikeshop-backend/internal/domains/coupon/repository"
	"bikeshop-backend/internal/shared/utils"
)

type couponRepo struct {
	s *Store
}

// Coupons returns the coupon table.
func (s *Store) Coupons() repository.CouponRepository {
	return &couponRepo{s: s}
}

func (r *couponRepo) byCode(code string) *model.Coupon {
	for _, c := range r.s.coupons {
		if c.Code == code {
			return c
		}
	}
	return nil
}

func (r *couponRepo) FindByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	defer r.s.read(tx)()

	c := r.byCode(code)
	if c == nil {
		return nil, model.ErrCouponNotFound
	}
	return cloneCoupon(c), nil
}

func (r *couponRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	defer r.s.read(nil)()

	c, ok := r.s.coupons[id]
	if !ok {
		return nil, model.ErrCouponRecordNotFound
	}
	return cloneCoupon(c), nil
}

func (r *couponRepo) ListActive(ctx context.Context, now time.Time) ([]*model.Coupon, error) {
	defer r.s.read(nil)()

	coupons := make([]*model.Coupon, 0)
	for _, c := range r.s.coupons {
		if c.IsUsableAt(now) {
			coupons = append(coupons, cloneCoupon(c))
		}
	}
	sortNewestFirst(coupons, func(c *model.Coupon) time.Time { return c.CreatedAt })
	return coupons, nil
}

func (r *couponRepo) List(ctx context.Context, filter *model.ListCouponsFilter) ([]*model.Coupon, int, error) {
	defer r.s.read(nil)()

	search := strings.ToLower(filter.Search)
	matched := make([]*model.Coupon, 0)
	for _, c := range r.s.coupons {
		if search != "" && !strings.Contains(strings.ToLower(c.Code), search) {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, cloneCoupon(c))
	}
	sortNewestFirst(matched, func(c *model.Coupon) time.Time { return c.CreatedAt })

	pageNum, limit := utils.NormalizePage(filter.Page, filter.Limit)
	return page(matched, utils.Offset(pageNum, limit), limit), len(matched), nil
}

func (r *couponRepo) CodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	defer r.s.read(nil)()

	c := r.byCode(code)
	if c == nil {
		return false, nil
	}
	return excludeID == nil || c.ID != *excludeID, nil
}

func (r *couponRepo) Create(ctx context.Context, c *model.Coupon) error {
	defer r.s.write(nil)()

	if r.byCode(c.Code) != nil {
		return model.ErrCouponDuplicateCode
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	r.s.coupons[c.ID] = cloneCoupon(c)
	return nil
}

func (r *couponRepo) Update(ctx context.Context, c *model.Coupon) error {
	defer r.s.write(nil)()

	existing, ok := r.s.coupons[c.ID]
	if !ok {
		return model.ErrCouponRecordNotFound
	}
	// code and created_at are immutable
	c.Code = existing.Code
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.s.now()

	r.s.coupons[c.ID] = cloneCoupon(c)
	return nil
}

func (r *couponRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.write(nil)()

	if _, ok := r.s.coupons[id]; !ok {
		return model.ErrCouponRecordNotFound
	}
	for _, u := range r.s.usages {
		if u.CouponID == id {
			return model.ErrCouponInUse
		}
	}
	delete(r.s.coupons, id)
	return nil
}

// -------------------------------------------------------------------
// USAGE LEDGER
// -------------------------------------------------------------------

type usageLedger struct {
	s *Store
}

// Usages returns the coupon usage ledger.
func (s *Store) Usages() repository.UsageLedger {
	return &usageLedger{s: s}
}

func (l *usageLedger) countFor(couponID, userID uuid.UUID) (count, maxSlot int) {
	for _, u := range l.s.usages {
		if u.CouponID == couponID && u.UserID == userID {
			count++
			if u.Slot > maxSlot {
				maxSlot = u.Slot
			}
		}
	}
	return count, maxSlot
}

func (l *usageLedger) CountFor(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (int, error) {
	defer l.s.read(tx)()

	count, _ := l.countFor(couponID, userID)
	return count, nil
}

func (l *usageLedger) CountsByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	defer l.s.read(nil)()

	counts := make(map[uuid.UUID]int)
	for _, u := range l.s.usages {
		if u.UserID == userID {
			counts[u.CouponID]++
		}
	}
	return counts, nil
}

// Append holds the same guard as the SQL insert: a row is written only
// while the user's count is below the coupon's usage limit.
func (l *usageLedger) Append(ctx context.Context, tx pgx.Tx, usage *model.CouponUsage) error {
	defer l.s.write(tx)()

	coupon, ok := l.s.coupons[usage.CouponID]
	if !ok {
		return fmt.Errorf("append coupon usage: coupon %s does not exist", usage.CouponID)
	}
	if _, ok := l.s.requests[usage.RequestID]; !ok {
		return fmt.Errorf("append coupon usage: request %s does not exist", usage.RequestID)
	}

	count, maxSlot := l.countFor(usage.CouponID, usage.UserID)
	if count >= coupon.UsageLimit {
		return model.ErrCouponUsageLimitReached
	}

	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	usage.Slot = maxSlot + 1
	usage.UsedAt = l.s.now()

	l.s.usages = append(l.s.usages, cloneUsage(usage))
	return nil
}

func (l *usageLedger) ListByCoupon(ctx context.Context, couponID uuid.UUID) ([]*model.CouponUsage, error) {
	defer l.s.read(nil)()

	usages := make([]*model.CouponUsage, 0)
	for _, u := range l.s.usages {
		if u.CouponID == couponID {
			usages = append(usages, cloneUsage(u))
		}
	}
	return usages, nil
}

func (l *usageLedger) CountByCoupon(ctx context.Context, couponID uuid.UUID) (int, error) {
	defer l.s.read(nil)()

	count := 0
	for _, u := range l.s.usages {
		if u.CouponID == couponID {
			count++
		}
	}
	return count, nil
}
