package account

import (
	"context"

	"go.uber.org/zap"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/logger"
)

type LogoutUseCase struct {
	userRepo user.Repository
	logger   logger.Logger
}

func NewLogoutUseCase(repo user.Repository, log logger.Logger) *LogoutUseCase {
	return &LogoutUseCase{userRepo: repo, logger: log}
}

// Execute revokes the one token used for the current request.
func (uc *LogoutUseCase) Execute(ctx context.Context, u *user.User, token string) error {
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	if err := uc.userRepo.RemoveToken(ctx, u.ID, token); err != nil {
		span.RecordError(err)
		uc.logger.Error("Failed to remove token", err, zap.String("user_id", u.ID.String()))
		return apperror.NewInternal("", err)
	}
	u.RemoveToken(token)
	return nil
}

// ExecuteAll revokes every token of the user.
func (uc *LogoutUseCase) ExecuteAll(ctx context.Context, u *user.User) error {
	ctx, span := tracer.Start(ctx, "LogoutAll")
	defer span.End()

	if err := uc.userRepo.ClearTokens(ctx, u.ID); err != nil {
		span.RecordError(err)
		uc.logger.Error("Failed to clear tokens", err, zap.String("user_id", u.ID.String()))
		return apperror.NewInternal("", err)
	}
	u.Tokens = []string{}
	return nil
}
