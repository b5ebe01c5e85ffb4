package account

import (
	"context"
	"errors"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/auth"
	"github.com/khoahotran/user-service/pkg/logger"
)

// AuthenticateUseCase resolves a bearer token to its user. A token is only
// accepted while it is still in the user's token list.
type AuthenticateUseCase struct {
	userRepo user.Repository
	jwtSvc   *auth.JWTService
	logger   logger.Logger
}

func NewAuthenticateUseCase(repo user.Repository, jwtSvc *auth.JWTService, log logger.Logger) *AuthenticateUseCase {
	return &AuthenticateUseCase{userRepo: repo, jwtSvc: jwtSvc, logger: log}
}

func (uc *AuthenticateUseCase) Execute(ctx context.Context, token string) (*user.User, error) {
	ctx, span := tracer.Start(ctx, "Authenticate")
	defer span.End()

	claims, err := uc.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperror.NewUnauthorized("Please authenticate.", err)
	}

	u, err := uc.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NewUnauthorized("Please authenticate.", nil)
		}
		span.RecordError(err)
		return nil, err
	}
	if !u.HasToken(token) {
		return nil, apperror.NewUnauthorized("Please authenticate.", nil)
	}
	return u, nil
}
