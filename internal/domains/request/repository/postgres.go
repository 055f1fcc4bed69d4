package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/internal/shared/utils"
	"bikeshop-backend/pkg/database"
)

const requestColumns = `
	id, user_id, request_type, status, payment_method,
	total_amount, discount_amount, net_amount,
	coupon_id, coupon_code, details, rejection_note,
	expires_at, created_at, updated_at, completed_at`

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) RequestRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) conn(tx pgx.Tx) database.Querier {
	if tx != nil {
		return tx
	}
	return r.db
}

func scanRequest(row pgx.Row) (*model.Request, error) {
	var req model.Request
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.Type,
		&req.Status,
		&req.PaymentMethod,
		&req.TotalAmount,
		&req.DiscountAmount,
		&req.NetAmount,
		&req.CouponID,      // nullable
		&req.CouponCode,    // nullable
		&req.Details,       // jsonb
		&req.RejectionNote, // nullable
		&req.ExpiresAt,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.CompletedAt, // nullable
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *PostgresRepository) Create(ctx context.Context, tx pgx.Tx, req *model.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	query := `
		INSERT INTO requests (
			id, user_id, request_type, status, payment_method,
			total_amount, discount_amount, net_amount,
			coupon_id, coupon_code, details,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`

	_, err := r.conn(tx).Exec(ctx, query,
		req.ID, req.UserID, req.Type, req.Status, req.PaymentMethod,
		req.TotalAmount, req.DiscountAmount, req.NetAmount,
		req.CouponID, req.CouponCode, req.Details,
		req.ExpiresAt, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.UpdatedAt = req.CreatedAt
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRequestNotFound
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter *model.ListRequestsFilter) ([]*model.Request, int, error) {
	page, limit := utils.NormalizePage(filter.Page, filter.Limit)

	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filter.UserID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != "" {
		clause, clauseArgs := statusClause(filter.Status, filter.Now, argIndex)
		whereClauses = append(whereClauses, clause)
		args = append(args, clauseArgs...)
		argIndex += len(clauseArgs)
	}
	if filter.Type != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("request_type = $%d", argIndex))
		args = append(args, filter.Type)
		argIndex++
	}
	whereSQL := "WHERE " + utils.JoinWithAnd(whereClauses)

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM requests "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM requests
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, whereSQL, argIndex, argIndex+1)
	args = append(args, limit, utils.Offset(page, limit))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*model.Request, 0, limit)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate requests: %w", err)
	}
	return requests, total, nil
}

// statusClause filters on the effective status at now. Pending and
// waiting_payment rows past expires_at count as expired.
func statusClause(status model.Status, now time.Time, argIndex int) (string, []interface{}) {
	if now.IsZero() {
		return fmt.Sprintf("status = $%d", argIndex), []interface{}{status}
	}
	switch {
	case status == model.StatusExpired:
		return fmt.Sprintf(
			"(status = 'expired' OR (status IN ('pending', 'waiting_payment') AND expires_at < $%d))",
			argIndex,
		), []interface{}{now}
	case status.IsExpirable():
		return fmt.Sprintf("(status = $%d AND expires_at >= $%d)", argIndex, argIndex+1),
			[]interface{}{status, now}
	default:
		return fmt.Sprintf("status = $%d", argIndex), []interface{}{status}
	}
}

// -------------------------------------------------------------------
// STATUS WRITES
// -------------------------------------------------------------------

func (r *PostgresRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.Status,
	note *string,
	now time.Time,
) (bool, error) {
	query := `
		UPDATE requests SET
			status = $3::text,
			rejection_note = COALESCE($4::text, rejection_note),
			completed_at = CASE WHEN $3::text = 'completed' THEN $5::timestamptz ELSE completed_at END,
			updated_at = $5::timestamptz
		WHERE id = $1
		  AND status = $2::text
		  AND ($2::text NOT IN ('pending', 'waiting_payment') OR $3::text = 'expired' OR expires_at >= $5::timestamptz)
	`

	tag, err := r.db.Exec(ctx, query, id, string(from), string(to), note, now)
	if err != nil {
		return false, fmt.Errorf("update request status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) ExpireOne(ctx context.Context, id uuid.UUID, now time.Time) (*model.StatusChange, error) {
	query := `
		UPDATE requests AS r SET
			status = 'expired',
			updated_at = $2
		FROM (
			SELECT id, status FROM requests
			WHERE id = $1
			  AND status IN ('pending', 'waiting_payment')
			  AND expires_at < $2
			FOR UPDATE
		) AS prev
		WHERE r.id = prev.id
		RETURNING r.id, r.user_id, r.request_type, prev.status
	`

	change := &model.StatusChange{To: model.StatusExpired, ChangedAt: now}
	err := r.db.QueryRow(ctx, query, id, now).Scan(&change.RequestID, &change.UserID, &change.Type, &change.From)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("expire request: %w", err)
	}
	return change, nil
}

// ExpireStale locks a batch with SKIP LOCKED so concurrent sweeps split
// the work instead of waiting on each other.
func (r *PostgresRepository) ExpireStale(ctx context.Context, now time.Time, limit int) ([]*model.StatusChange, error) {
	query := `
		UPDATE requests AS r SET
			status = 'expired',
			updated_at = $1
		FROM (
			SELECT id, status FROM requests
			WHERE status IN ('pending', 'waiting_payment')
			  AND expires_at < $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) AS prev
		WHERE r.id = prev.id
		RETURNING r.id, r.user_id, r.request_type, prev.status
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("expire stale requests: %w", err)
	}
	defer rows.Close()

	changes := make([]*model.StatusChange, 0)
	for rows.Next() {
		change := &model.StatusChange{To: model.StatusExpired, ChangedAt: now}
		if err := rows.Scan(&change.RequestID, &change.UserID, &change.Type, &change.From); err != nil {
			return nil, fmt.Errorf("scan expired request: %w", err)
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}
