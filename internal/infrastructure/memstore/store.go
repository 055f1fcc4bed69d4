// Package memstore keeps coupons, the usage ledger and requests in process
// memory. It backs tests and the single-node "memory" storage driver and
// gives the same guarantees the PostgreSQL repositories rely on: units of
// work run one at a time and a failed unit leaves no trace.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	couponModel "bikeshop-backend/internal/domains/coupon/model"
	requestModel "bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/pkg/database"
)

// memTx marks a call as running inside Store.WithinTransaction. The
// embedded pgx.Tx is nil; repositories here never call through it.
type memTx struct {
	pgx.Tx
	store *Store
}

// Store holds every table. mu is held exclusively for the whole of a
// transaction and for single writes outside one, so readers never see a
// unit of work half done.
type Store struct {
	mu sync.RWMutex

	coupons  map[uuid.UUID]*couponModel.Coupon
	usages   []*couponModel.CouponUsage
	requests map[uuid.UUID]*requestModel.Request

	now func() time.Time
}

type Option func(*Store)

// WithClock sets the clock used for server-side timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		coupons:  make(map[uuid.UUID]*couponModel.Coupon),
		requests: make(map[uuid.UUID]*requestModel.Request),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ database.Transactor = (*Store)(nil)

// WithinTransaction runs fn with exclusive access. When fn fails or panics
// every table is restored to its state before the call.
func (s *Store) WithinTransaction(ctx context.Context, fn database.TxFunc) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(&memTx{store: s})
}

// inTx reports whether tx is a live transaction of this store, in which
// case the caller already holds mu.
func (s *Store) inTx(tx pgx.Tx) bool {
	t, ok := tx.(*memTx)
	return ok && t.store == s
}

func (s *Store) read(tx pgx.Tx) func() {
	if s.inTx(tx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write(tx pgx.Tx) func() {
	if s.inTx(tx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// -------------------------------------------------------------------
// SNAPSHOTS
// -------------------------------------------------------------------

type snapshot struct {
	coupons  map[uuid.UUID]*couponModel.Coupon
	usages   []*couponModel.CouponUsage
	requests map[uuid.UUID]*requestModel.Request
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		coupons:  make(map[uuid.UUID]*couponModel.Coupon, len(s.coupons)),
		usages:   make([]*couponModel.CouponUsage, len(s.usages)),
		requests: make(map[uuid.UUID]*requestModel.Request, len(s.requests)),
	}
	for id, c := range s.coupons {
		snap.coupons[id] = cloneCoupon(c)
	}
	for i, u := range s.usages {
		snap.usages[i] = cloneUsage(u)
	}
	for id, r := range s.requests {
		snap.requests[id] = cloneRequest(r)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.coupons = snap.coupons
	s.usages = snap.usages
	s.requests = snap.requests
}

func cloneCoupon(c *couponModel.Coupon) *couponModel.Coupon {
	out := *c
	out.ApplicableItems = append([]string(nil), c.ApplicableItems...)
	if c.Description != nil {
		d := *c.Description
		out.Description = &d
	}
	if c.MaxDiscount != nil {
		m := *c.MaxDiscount
		out.MaxDiscount = &m
	}
	if c.ExpiresAt != nil {
		e := *c.ExpiresAt
		out.ExpiresAt = &e
	}
	return &out
}

func cloneUsage(u *couponModel.CouponUsage) *couponModel.CouponUsage {
	out := *u
	return &out
}

func cloneRequest(r *requestModel.Request) *requestModel.Request {
	out := *r
	out.Details.Lines = append([]requestModel.LineItem(nil), r.Details.Lines...)
	if r.Details.ScheduledAt != nil {
		at := *r.Details.ScheduledAt
		out.Details.ScheduledAt = &at
	}
	if r.CouponID != nil {
		id := *r.CouponID
		out.CouponID = &id
	}
	if r.CouponCode != nil {
		code := *r.CouponCode
		out.CouponCode = &code
	}
	if r.RejectionNote != nil {
		note := *r.RejectionNote
		out.RejectionNote = &note
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}

// page applies offset/limit to an already sorted slice.
func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sortNewestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}
