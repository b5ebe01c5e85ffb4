package avatar

import (
	"context"

	"github.com/google/uuid"

	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/logger"
)

type DeleteAvatarUseCase struct {
	userRepo user.Repository
	mirror   service.Uploader
	logger   logger.Logger
}

func NewDeleteAvatarUseCase(repo user.Repository, mirror service.Uploader, log logger.Logger) *DeleteAvatarUseCase {
	return &DeleteAvatarUseCase{userRepo: repo, mirror: mirror, logger: log}
}

func (uc *DeleteAvatarUseCase) Execute(ctx context.Context, userID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "DeleteAvatar")
	defer span.End()

	if err := uc.userRepo.SetAvatar(ctx, userID, nil); err != nil {
		span.RecordError(err)
		return err
	}

	mirrorAsync(uc.mirror, uc.logger, userID.String(), func(ctx context.Context, m service.Uploader) error {
		return m.Delete(ctx, mirrorFolder, userID.String())
	})
	return nil
}
