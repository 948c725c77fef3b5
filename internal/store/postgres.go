package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/shortener"
)

const uniqueViolation = "23505"

const (
	insertURL = `INSERT INTO urls (code, original_url, created_at) VALUES ($1, $2, $3)`
	selectURL = `SELECT code, original_url, created_at FROM urls WHERE code = $1`
)

type urlRow struct {
	Code        string    `db:"code"`
	OriginalURL string    `db:"original_url"`
	CreatedAt   time.Time `db:"created_at"`
}

// PostgresStore keeps urls in the urls table. Rows are never updated.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save inserts shortURL. A taken code yields shortener.ErrConflict.
func (p *PostgresStore) Save(ctx context.Context, shortURL *shortener.ShortURL) error {
	_, err := p.pool.Exec(ctx, insertURL, string(shortURL.Code), shortURL.OriginalURL, shortURL.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return shortener.ErrConflict
	}

	return err
}

func (p *PostgresStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	rows, _ := p.pool.Query(ctx, selectURL, string(code))

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[urlRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shortener.ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &shortener.ShortURL{
		Code:        shortener.Code(row.Code),
		OriginalURL: row.OriginalURL,
		CreatedAt:   row.CreatedAt.UTC(),
	}, nil
}

var _ shortener.Repository = (*PostgresStore)(nil)
