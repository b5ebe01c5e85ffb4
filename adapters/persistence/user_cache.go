package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/logger"
)

// cachedUserRepo is a read-through Redis cache in front of another
// user.Repository. Only FindByID is cached; every write through this
// repository bumps the user's generation counter and drops the cached entry.
// A fill only lands when the generation is unchanged since before the
// backing read, so a read racing a write never re-caches the old row.
// Avatar blobs are never cached.
type cachedUserRepo struct {
	next   user.Repository
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedUserRepo(next user.Repository, rdb *redis.Client, ttl time.Duration, log logger.Logger) user.Repository {
	return &cachedUserRepo{next: next, rdb: rdb, ttl: ttl, logger: log}
}

type cachedUser struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Age          *int      `json:"age"`
	Tokens       []string  `json:"tokens"`
	HasAvatar    bool      `json:"has_avatar"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// generationTTL outlives any backing read by a wide margin.
const generationTTL = 24 * time.Hour

var errStaleFill = errors.New("user changed during cache fill")

func userCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id.String())
}

func userGenerationKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s:gen", id.String())
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd stringGetter, key string) (int64, error) {
	gen, err := cmd.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func toCachedUser(u *user.User) cachedUser {
	return cachedUser{
		ID: u.ID, Name: u.Name, Email: u.Email, PasswordHash: u.PasswordHash, Age: u.Age,
		Tokens: u.Tokens, HasAvatar: u.HasAvatar, Version: u.Version,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (c cachedUser) toDomain() *user.User {
	tokens := c.Tokens
	if tokens == nil {
		tokens = []string{}
	}
	return &user.User{
		ID: c.ID, Name: c.Name, Email: c.Email, PasswordHash: c.PasswordHash, Age: c.Age,
		Tokens: tokens, HasAvatar: c.HasAvatar, Version: c.Version,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

func (r *cachedUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	key := userCacheKey(id)
	genKey := userGenerationKey(id)

	data, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cu cachedUser
		if err := json.Unmarshal(data, &cu); err == nil {
			return cu.toDomain(), nil
		}
		r.logger.Warn("Dropping undecodable cached user", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("Redis read failed, falling back to database", zap.String("key", key), zap.Error(err))
	}

	gen, genErr := readGeneration(ctx, r.rdb, genKey)

	u, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return u, nil
	}

	data, err = json.Marshal(toCachedUser(u))
	if err != nil {
		return u, nil
	}
	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		r.logger.Debug("Skipping cache fill for changed user", zap.String("key", key))
	default:
		r.logger.Warn("Redis write failed", zap.String("key", key), zap.Error(err))
	}
	return u, nil
}

func (r *cachedUserRepo) invalidate(ctx context.Context, id uuid.UUID) {
	genKey := userGenerationKey(id)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, userCacheKey(id))
		return nil
	})
	if err != nil {
		r.logger.Warn("Redis invalidation failed", zap.String("user_id", id.String()), zap.Error(err))
	}
}

func (r *cachedUserRepo) Create(ctx context.Context, u *user.User) error {
	return r.next.Create(ctx, u)
}

func (r *cachedUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *cachedUserRepo) Update(ctx context.Context, u *user.User) error {
	defer r.invalidate(ctx, u.ID)
	return r.next.Update(ctx, u)
}

func (r *cachedUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.invalidate(ctx, id)
	return r.next.Delete(ctx, id)
}

func (r *cachedUserRepo) AppendToken(ctx context.Context, id uuid.UUID, token string) error {
	defer r.invalidate(ctx, id)
	return r.next.AppendToken(ctx, id, token)
}

func (r *cachedUserRepo) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	defer r.invalidate(ctx, id)
	return r.next.RemoveToken(ctx, id, token)
}

func (r *cachedUserRepo) ClearTokens(ctx context.Context, id uuid.UUID) error {
	defer r.invalidate(ctx, id)
	return r.next.ClearTokens(ctx, id)
}

func (r *cachedUserRepo) SetAvatar(ctx context.Context, id uuid.UUID, avatar []byte) error {
	defer r.invalidate(ctx, id)
	return r.next.SetAvatar(ctx, id, avatar)
}

func (r *cachedUserRepo) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return r.next.GetAvatar(ctx, id)
}
