// Package pg implements the store contract on PostgreSQL via pgx.
// Account uniqueness is enforced by the (provider_id, id) primary key,
// so concurrent creates racing on the same provider account resolve at
// the database, not in process.
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudplayer/identity/internal/store"
	"github.com/cloudplayer/identity/pkg/provider"
)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// Store is the PostgreSQL store.Store implementation.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store on top of an established connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const accountColumns = `id, provider_id, user_id, title, image_url,
	access_token, refresh_token, token_expiration, created_at, updated_at`

func (s *Store) FindAccount(ctx context.Context, providerID, accountID string) (store.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE provider_id = $1 AND id = $2`,
		providerID, accountID)
	return scanAccount(row)
}

func (s *Store) CreateAccount(ctx context.Context, na store.NewAccount) (store.Account, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (id, provider_id, user_id, title, image_url,
			access_token, refresh_token, token_expiration)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+accountColumns,
		na.ID, na.ProviderID, na.UserID, na.Title, na.ImageURL,
		na.AccessToken, na.RefreshToken, na.TokenExpiration)

	a, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.Account{}, store.ErrDuplicateAccount
		}
		return store.Account{}, err
	}
	return a, nil
}

func (s *Store) UpdateAccountTokens(ctx context.Context, providerID, accountID string, upd store.AccountUpdate) (store.Account, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE accounts
		 SET title = $3, image_url = $4, access_token = $5,
		     refresh_token = $6, token_expiration = $7, updated_at = now()
		 WHERE provider_id = $1 AND id = $2
		 RETURNING `+accountColumns,
		providerID, accountID, upd.Title, upd.ImageURL,
		upd.AccessToken, upd.RefreshToken, upd.TokenExpiration)
	return scanAccount(row)
}

func (s *Store) ListAccountsForUser(ctx context.Context, userID string) ([]store.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at, provider_id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context) (store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id) VALUES ($1) RETURNING id, created_at`,
		uuid.NewString()).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return store.User{}, err
	}
	return u, nil
}

func (s *Store) PruneAnonymousUsers(ctx context.Context, cutoff time.Time) (int, error) {
	// Anchor accounts go with their user via ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM users u
		 WHERE u.created_at < $1
		   AND NOT EXISTS (
		     SELECT 1 FROM accounts a
		     WHERE a.user_id = u.id AND a.provider_id <> $2
		   )`,
		cutoff, provider.Anchor)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanAccount(row pgx.Row) (store.Account, error) {
	var a store.Account
	err := row.Scan(&a.ID, &a.ProviderID, &a.UserID, &a.Title, &a.ImageURL,
		&a.AccessToken, &a.RefreshToken, &a.TokenExpiration, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Account{}, store.ErrNotFound
		}
		return store.Account{}, err
	}
	return a, nil
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Pruner = (*Store)(nil)
)
