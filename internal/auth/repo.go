package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository records session metadata for audit and cleanup. Tokens
// themselves live in Redis; these rows are the durable trail.
type Repository interface {
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time, ip, userAgent string) error
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// PgRepository implements Repository against PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// CreateSession inserts a session row keyed by the token.
func (r *PgRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time, ip, userAgent string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5)`,
		token, userID, expiresAt, ip, userAgent)
	return err
}

// DeleteSession removes a session row on logout.
func (r *PgRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteExpiredSessions purges rows whose expiry has passed. Run by the
// scheduled cleanup job.
func (r *PgRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
