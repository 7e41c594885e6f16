package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"creator-access-gate/internal/credential/domain"
)

const credentialColumns = `id, creator_id, secret_hash, mode, expires_at, max_uses, use_count, created_at`

// consumeQuery restates domain.IsRedeemable as a WHERE clause so the check and the
// increment happen under one row lock.
const consumeQuery = `
UPDATE credentials
   SET use_count = use_count + 1
 WHERE id = $1
   AND (expires_at IS NULL OR expires_at >= $2)
   AND (mode = 'multi-use' OR use_count = 0)
   AND (max_uses IS NULL OR use_count < max_uses)
RETURNING ` + credentialColumns

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a credential repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListByResource returns the credentials for resourceID in stored order.
func (r *PostgresRepository) ListByResource(ctx context.Context, resourceID string) ([]*domain.Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE creator_id = $1 ORDER BY created_at, id`, resourceID)
	if err != nil {
		return nil, err
	}
	return scanCredentials(rows)
}

// List returns all credentials, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return scanCredentials(rows)
}

// GetByID returns the credential for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id)
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Create persists the credential. The credential must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Credential) error {
	var maxUses sql.NullInt64
	if n, ok := c.Policy.MaxUses(); ok {
		maxUses = sql.NullInt64{Int64: int64(n), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, creator_id, secret_hash, mode, expires_at, max_uses, use_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.ResourceID, c.SecretHash, string(c.Policy.Mode()), timeToNullTime(c.ExpiresAt), maxUses, c.UseCount, c.CreatedAt,
	)
	return err
}

// Delete removes the credential. Its access events are kept.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Consume performs the conditional increment. Zero rows means another request won the race
// or the credential was never redeemable; both return (nil, false, nil).
func (r *PostgresRepository) Consume(ctx context.Context, id string, now time.Time) (*domain.Credential, bool, error) {
	c, err := scanCredential(r.db.QueryRowContext(ctx, consumeQuery, id, now.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return c, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*domain.Credential, error) {
	var (
		c         domain.Credential
		mode      string
		expiresAt sql.NullTime
		maxUses   sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.ResourceID, &c.SecretHash, &mode, &expiresAt, &maxUses, &c.UseCount, &c.CreatedAt); err != nil {
		return nil, err
	}
	var limit *int
	if maxUses.Valid {
		n := int(maxUses.Int64)
		limit = &n
	}
	policy, err := domain.NewPolicy(mode, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: credential %s mode %q: %v", ErrCorruptPolicy, c.ID, mode, err)
	}
	c.Policy = policy
	c.ExpiresAt = nullTimeToPtr(expiresAt)
	return &c, nil
}

func scanCredentials(rows *sql.Rows) ([]*domain.Credential, error) {
	defer rows.Close()
	var out []*domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
