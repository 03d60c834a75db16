package auth

import (
	"context"
	"errors"
	"time"

	"github.com/liftlab/liftlab/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UsersRepo struct {
	db *pgxpool.Pool
}

func NewUsersRepo(db *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{
		db: db,
	}
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.auth.getByUsername")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, username, password_hash, role, created_at
			FROM portal_user
			WHERE username = $1;`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrUserNotFound
	}

	var user User
	var role string
	var createdAt time.Time
	if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &createdAt); err != nil {
		return nil, err
	}
	user.Role = Role(role)
	user.CreatedAt = createdAt

	return &user, nil
}
