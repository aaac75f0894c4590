package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/pulperia/internal/domain/errors"
	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/domain/repository"
)

// pgxPool is the subset of *pgxpool.Pool the storage relies on.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type pulperiaRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Pulperias() repository.PulperiaRepository {
	return &pulperiaRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            vendor_id TEXT NOT NULL,
            customer_id TEXT NOT NULL,
            status TEXT NOT NULL,
            cancel_reason TEXT NOT NULL DEFAULT '',
            cancelled_by TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS pulperias (
            vendor_id TEXT PRIMARY KEY,
            open BOOLEAN NOT NULL DEFAULT FALSE,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_vendor ON orders(vendor_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- OrderRepository implementation ---

const orderColumns = `id, vendor_id, customer_id, status, cancel_reason, cancelled_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	if err := row.Scan(&o.ID, &o.VendorID, &o.CustomerID, &o.Status, &o.CancelReason, &o.CancelledBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, order model.Order) (*model.Order, error) {
	const query = `INSERT INTO orders (id, vendor_id, customer_id, status, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $5)
                   RETURNING ` + orderColumns
	created, err := scanOrder(r.storage.pool.QueryRow(ctx, query, order.ID, order.VendorID, order.CustomerID, order.Status, order.CreatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListByVendor(ctx context.Context, vendorID string) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE vendor_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, vendorID)
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE customer_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, customerID)
}

func (r *orderRepository) list(ctx context.Context, query, owner string) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus writes the new status only while the row still holds update.From.
// Losing that race to another writer surfaces as ErrIllegalTransition.
func (r *orderRepository) UpdateStatus(ctx context.Context, update repository.StatusUpdate) (*model.Order, error) {
	const updateQuery = `UPDATE orders
                         SET status=$1, cancel_reason=$2, cancelled_by=$3, updated_at=NOW()
                         WHERE id=$4 AND status=$5
                         RETURNING ` + orderColumns
	const statusQuery = `SELECT status FROM orders WHERE id=$1`

	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		updated, err := scanOrder(tx.QueryRow(ctx, updateQuery,
			update.To, update.CancelReason, update.CancelledBy, update.OrderID, update.From))
		if err == nil {
			order = updated
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		var current model.OrderStatus
		if err := tx.QueryRow(ctx, statusQuery, update.OrderID).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}
		r.storage.logger.Warn("conditional status update lost",
			slog.String("order", update.OrderID),
			slog.String("expected", string(update.From)),
			slog.String("actual", string(current)),
		)
		return fmt.Errorf("%w: order %s is %s, not %s", domainErrors.ErrIllegalTransition, update.OrderID, current, update.From)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// --- PulperiaRepository implementation ---

func (r *pulperiaRepository) SetOpen(ctx context.Context, vendorID string, open bool) (*model.Pulperia, error) {
	const query = `INSERT INTO pulperias (vendor_id, open, updated_at) VALUES ($1, $2, NOW())
                   ON CONFLICT (vendor_id) DO UPDATE SET open = EXCLUDED.open, updated_at = EXCLUDED.updated_at
                   RETURNING updated_at`
	p := model.Pulperia{VendorID: vendorID, Open: open}
	if err := r.storage.pool.QueryRow(ctx, query, vendorID, open).Scan(&p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pulperiaRepository) Get(ctx context.Context, vendorID string) (*model.Pulperia, error) {
	const query = `SELECT vendor_id, open, updated_at FROM pulperias WHERE vendor_id=$1`
	var p model.Pulperia
	err := r.storage.pool.QueryRow(ctx, query, vendorID).Scan(&p.VendorID, &p.Open, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
