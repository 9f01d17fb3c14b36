package postgres

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/computor-org/cpsto/internal/pathalg"
)

// DB wraps a pgx connection pool and the struct validator used before any
// insert/update, matching the db:"..." validate:"..." tag convention
// grounded on other_examples/jordigilh-kubernaut's datastorage models.
type DB struct {
	pool     *pgxpool.Pool
	validate *validator.Validate
}

// Open connects to dsn and returns a ready DB.
func Open(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &DB{pool: pool, validate: newValidator()}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// newValidator registers the "label" tag used by every path-bearing
// column's struct tag (spec.md §4.1: a label matches [A-Za-z0-9_]+).
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("label", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return false
		}
		_, err := pathalg.Parse(s)
		return err == nil
	})
	return v
}
