package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bikeshop-backend/internal/domains/coupon/model"
	"bikeshop-backend/internal/shared/utils"
	"bikeshop-backend/pkg/database"
)

const couponColumns = `
	id, code, description,
	discount_type, discount_value, min_amount, max_discount,
	applicable_items, usage_limit, expires_at, is_active,
	created_at, updated_at`

// PostgresRepository implements CouponRepository on PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) CouponRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) conn(tx pgx.Tx) database.Querier {
	if tx != nil {
		return tx
	}
	return r.db
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID,              // id
		&c.Code,            // code
		&c.Description,     // description (nullable)
		&c.DiscountType,    // discount_type
		&c.DiscountValue,   // discount_value
		&c.MinAmount,       // min_amount
		&c.MaxDiscount,     // max_discount (nullable)
		&c.ApplicableItems, // applicable_items (text[])
		&c.UsageLimit,      // usage_limit
		&c.ExpiresAt,       // expires_at (nullable)
		&c.IsActive,        // is_active
		&c.CreatedAt,       // created_at
		&c.UpdatedAt,       // updated_at
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCoupons(rows pgx.Rows) ([]*model.Coupon, error) {
	defer rows.Close()

	coupons := make([]*model.Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) FindByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.conn(tx).QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCouponNotFound
		}
		return nil, fmt.Errorf("find coupon by code: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	c, err := scanCoupon(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCouponRecordNotFound
		}
		return nil, fmt.Errorf("find coupon by id: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time) ([]*model.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE is_active = true
		  AND (expires_at IS NULL OR expires_at >= $1)
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list active coupons: %w", err)
	}

	coupons, err := scanCoupons(rows)
	if err != nil {
		return nil, fmt.Errorf("scan active coupons: %w", err)
	}
	return coupons, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter *model.ListCouponsFilter) ([]*model.Coupon, int, error) {
	page, limit := utils.NormalizePage(filter.Page, filter.Limit)

	whereClauses := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("code ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	if filter.IsActive != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + utils.JoinWithAnd(whereClauses)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM coupons %s", whereSQL)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count coupons: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM coupons
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, couponColumns, whereSQL, argIndex, argIndex+1)
	args = append(args, limit, utils.Offset(page, limit))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}

	coupons, err := scanCoupons(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan coupons: %w", err)
	}
	return coupons, total, nil
}

func (r *PostgresRepository) CodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM coupons WHERE code = $1 AND ($2::uuid IS NULL OR id <> $2))`

	var exists bool
	if err := r.db.QueryRow(ctx, query, code, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check coupon code: %w", err)
	}
	return exists, nil
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) Create(ctx context.Context, c *model.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
		INSERT INTO coupons (
			id, code, description,
			discount_type, discount_value, min_amount, max_discount,
			applicable_items, usage_limit, expires_at, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.Code, c.Description,
		c.DiscountType, c.DiscountValue, c.MinAmount, c.MaxDiscount,
		c.ApplicableItems, c.UsageLimit, c.ExpiresAt, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return model.ErrCouponDuplicateCode
		}
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *model.Coupon) error {
	query := `
		UPDATE coupons SET
			description = $2,
			discount_type = $3,
			discount_value = $4,
			min_amount = $5,
			max_discount = $6,
			applicable_items = $7,
			usage_limit = $8,
			expires_at = $9,
			is_active = $10,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.Description,
		c.DiscountType, c.DiscountValue, c.MinAmount, c.MaxDiscount,
		c.ApplicableItems, c.UsageLimit, c.ExpiresAt, c.IsActive,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrCouponRecordNotFound
		}
		return fmt.Errorf("update coupon: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return model.ErrCouponInUse
		}
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCouponRecordNotFound
	}
	return nil
}
