package account

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/auth"
	"github.com/khoahotran/user-service/pkg/logger"
)

// ErrLoginFailed is shared by every credential failure, including a
// malformed login request, so callers cannot tell an unknown email from a
// wrong or missing password.
func ErrLoginFailed() *apperror.AppError {
	return apperror.NewAppError(apperror.ErrNotFound, "User not found", "", nil)
}

// FindByCredentials returns the user owning email when password matches its hash.
func FindByCredentials(ctx context.Context, repo user.Repository, email, password string) (*user.User, error) {
	u, err := repo.FindByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrLoginFailed()
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, u.PasswordHash) {
		return nil, ErrLoginFailed()
	}
	return u, nil
}

type LoginUseCase struct {
	userRepo user.Repository
	jwtSvc   *auth.JWTService
	logger   logger.Logger
}

func NewLoginUseCase(repo user.Repository, jwtSvc *auth.JWTService, log logger.Logger) *LoginUseCase {
	return &LoginUseCase{
		userRepo: repo,
		jwtSvc:   jwtSvc,
		logger:   log,
	}
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	User  *user.User
	Token string
}

func (uc *LoginUseCase) Execute(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	u, err := FindByCredentials(ctx, uc.userRepo, input.Email, input.Password)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	token, err := uc.jwtSvc.GenerateToken(u.ID)
	if err != nil {
		uc.logger.Error("Failed to generate token", err, zap.String("user_id", u.ID.String()))
		err = apperror.NewInternal("failed to generate token", err)
		span.RecordError(err)
		return nil, err
	}

	if err := uc.userRepo.AppendToken(ctx, u.ID, token); err != nil {
		span.RecordError(err)
		return nil, err
	}
	u.Tokens = append(u.Tokens, token)

	span.SetAttributes(attribute.String("user_id", u.ID.String()))
	return &LoginOutput{User: u, Token: token}, nil
}
