package persistence

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/logger"
)

const pgUniqueViolation = "23505"

type postgresUserRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresUserRepo(db *pgxpool.Pool, logger logger.Logger) user.Repository {
	return &postgresUserRepo{db: db, logger: logger}
}

var psqlUser = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const userColumns = `id, name, email, password_hash, age, tokens, avatar IS NOT NULL, version, created_at, updated_at`

func scanUser(row pgx.Row, identifier string) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Age,
		&u.Tokens, &u.HasAvatar, &u.Version, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("user", identifier)
		}
		return nil, apperror.NewInternal("failed to scan user row", err)
	}
	if u.Tokens == nil {
		u.Tokens = []string{}
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *postgresUserRepo) Create(ctx context.Context, u *user.User) error {
	tokens := u.Tokens
	if tokens == nil {
		tokens = []string{}
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, age, tokens, avatar, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9)
		RETURNING version
	`
	err := r.db.QueryRow(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Age, tokens, u.Avatar, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.NewConflict("user", "email", u.Email)
		}
		return apperror.NewInternal("failed to insert user", err)
	}
	return nil
}

func (r *postgresUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id), id.String())
}

func (r *postgresUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email), email)
}

func (r *postgresUserRepo) Update(ctx context.Context, u *user.User) error {
	builder := psqlUser.Update("users").
		SetMap(map[string]any{
			"name":          u.Name,
			"email":         u.Email,
			"password_hash": u.PasswordHash,
			"age":           u.Age,
			"version":       sq.Expr("version + 1"),
			"updated_at":    sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": u.ID, "version": u.Version}).
		Suffix("RETURNING version, updated_at")

	sql, args, err := builder.ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build update user query", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&u.Version, &u.UpdatedAt)
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return apperror.NewConflict("user", "email", u.Email)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewInternal("failed to update user", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, u.ID).Scan(&exists); err != nil {
		return apperror.NewInternal("failed to check user existence", err)
	}
	if !exists {
		return apperror.NewNotFound("user", u.ID.String())
	}
	r.logger.Warn("Stale user version on update", zap.String("user_id", u.ID.String()), zap.Int64("version", u.Version))
	return apperror.NewAppError(apperror.ErrConflict, "user conflict", "user was modified by another request, retry the update", nil)
}

func (r *postgresUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.execOnUser(ctx, id, "failed to delete user", `DELETE FROM users WHERE id = $1`, id)
}

func (r *postgresUserRepo) AppendToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE users SET tokens = array_append(tokens, $2), updated_at = NOW() WHERE id = $1`
	return r.execOnUser(ctx, id, "failed to append token", query, id, token)
}

func (r *postgresUserRepo) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE users SET tokens = array_remove(tokens, $2), updated_at = NOW() WHERE id = $1`
	return r.execOnUser(ctx, id, "failed to remove token", query, id, token)
}

func (r *postgresUserRepo) ClearTokens(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET tokens = '{}', updated_at = NOW() WHERE id = $1`
	return r.execOnUser(ctx, id, "failed to clear tokens", query, id)
}

func (r *postgresUserRepo) SetAvatar(ctx context.Context, id uuid.UUID, avatar []byte) error {
	query := `UPDATE users SET avatar = $2, updated_at = NOW() WHERE id = $1`
	return r.execOnUser(ctx, id, "failed to store avatar", query, id, avatar)
}

func (r *postgresUserRepo) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var avatar []byte
	err := r.db.QueryRow(ctx, `SELECT avatar FROM users WHERE id = $1`, id).Scan(&avatar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("user", id.String())
		}
		return nil, apperror.NewInternal("failed to query avatar", err)
	}
	if len(avatar) == 0 {
		return nil, apperror.NewNotFound("avatar", id.String())
	}
	return avatar, nil
}

func (r *postgresUserRepo) execOnUser(ctx context.Context, id uuid.UUID, failure, query string, args ...any) error {
	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return apperror.NewInternal(failure, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("user", id.String())
	}
	return nil
}
