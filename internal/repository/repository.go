package repository

import (
	"errors"
	"log/slog"
	"time"

	redisapp "blogcore/internal/storage/redis"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Repository struct {
	db         *pgxpool.Pool
	Posts      PostRepository
	Categories CategoryRepository
	Images     ImageRepository
}

type CacheOptions struct {
	TTL   time.Duration
	Redis *redisapp.Client
}

// NewRepository builds the content store on top of db. Category reads go
// through a cache when opts.TTL is positive.
func NewRepository(log *slog.Logger, db *pgxpool.Pool, opts CacheOptions) *Repository {
	var categories CategoryRepository = NewCategoryRepository(db)
	if opts.TTL > 0 {
		categories = NewCachedCategoryRepository(log, categories, opts.Redis, opts.TTL)
	}

	return &Repository{
		db:         db,
		Posts:      NewPostRepository(db),
		Categories: categories,
		Images:     NewImageRepository(db),
	}
}

func (r *Repository) Close() {
	r.db.Close()
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrCode(err) == pgForeignKeyViolation
}

// uuidArray renders ids as a text[] literal for ANY($1::uuid[]) filters.
func uuidArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
