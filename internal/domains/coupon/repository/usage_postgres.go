package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bikeshop-backend/internal/domains/coupon/model"
	"bikeshop-backend/pkg/apperror"
	"bikeshop-backend/pkg/database"
)

// PostgresUsageLedger implements UsageLedger on the coupon_usages table.
type PostgresUsageLedger struct {
	db *pgxpool.Pool
}

func NewPostgresUsageLedger(db *pgxpool.Pool) UsageLedger {
	return &PostgresUsageLedger{db: db}
}

func (l *PostgresUsageLedger) conn(tx pgx.Tx) database.Querier {
	if tx != nil {
		return tx
	}
	return l.db
}

func (l *PostgresUsageLedger) CountFor(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`

	var count int
	if err := l.conn(tx).QueryRow(ctx, query, couponID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count coupon usage: %w", err)
	}
	return count, nil
}

func (l *PostgresUsageLedger) CountsByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT coupon_id, COUNT(*)
		FROM coupon_usages
		WHERE user_id = $1
		GROUP BY coupon_id
	`

	rows, err := l.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("count usages by user: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			couponID uuid.UUID
			count    int
		)
		if err := rows.Scan(&couponID, &count); err != nil {
			return nil, fmt.Errorf("scan usage count: %w", err)
		}
		counts[couponID] = count
	}
	return counts, rows.Err()
}

// Append is the guarded insert: the row is produced only while the user's
// count is below the coupon's usage_limit, and the next slot number is
// derived in the same statement. Two racing inserts that read the same
// count collide on the (coupon_id, user_id, slot) unique index, so the
// ledger can never hold more than usage_limit rows per user.
func (l *PostgresUsageLedger) Append(ctx context.Context, tx pgx.Tx, usage *model.CouponUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}

	query := `
		INSERT INTO coupon_usages (
			id, coupon_id, user_id, request_type, request_id,
			discount_amount, slot, used_at
		)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4::text, $5::uuid,
		       $6::numeric, COALESCE(MAX(slot), 0) + 1, NOW()
		FROM coupon_usages
		WHERE coupon_id = $2 AND user_id = $3
		HAVING COUNT(*) < (SELECT usage_limit FROM coupons WHERE id = $2)
		RETURNING slot, used_at
	`

	err := l.conn(tx).QueryRow(ctx, query,
		usage.ID, usage.CouponID, usage.UserID, usage.RequestType, usage.RequestID,
		usage.DiscountAmount,
	).Scan(&usage.Slot, &usage.UsedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return model.ErrCouponUsageLimitReached
		case database.IsUniqueViolation(err):
			return apperror.ConcurrencyConflict(err)
		case database.IsSerializationFailure(err):
			return apperror.ConcurrencyConflict(err)
		}
		return fmt.Errorf("append coupon usage: %w", err)
	}
	return nil
}

func (l *PostgresUsageLedger) ListByCoupon(ctx context.Context, couponID uuid.UUID) ([]*model.CouponUsage, error) {
	query := `
		SELECT id, coupon_id, user_id, request_type, request_id,
		       discount_amount, slot, used_at
		FROM coupon_usages
		WHERE coupon_id = $1
		ORDER BY used_at ASC
	`

	rows, err := l.db.Query(ctx, query, couponID)
	if err != nil {
		return nil, fmt.Errorf("list coupon usages: %w", err)
	}
	defer rows.Close()

	usages := make([]*model.CouponUsage, 0)
	for rows.Next() {
		var u model.CouponUsage
		if err := rows.Scan(
			&u.ID, &u.CouponID, &u.UserID, &u.RequestType, &u.RequestID,
			&u.DiscountAmount, &u.Slot, &u.UsedAt,
		); err != nil {
			return nil, fmt.Errorf("scan coupon usage: %w", err)
		}
		usages = append(usages, &u)
	}
	return usages, rows.Err()
}

func (l *PostgresUsageLedger) CountByCoupon(ctx context.Context, couponID uuid.UUID) (int, error) {
	var count int
	err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1`, couponID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count coupon usages: %w", err)
	}
	return count, nil
}
