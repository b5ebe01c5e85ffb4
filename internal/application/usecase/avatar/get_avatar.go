package avatar

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
)

type GetAvatarUseCase struct {
	userRepo user.Repository
}

func NewGetAvatarUseCase(repo user.Repository) *GetAvatarUseCase {
	return &GetAvatarUseCase{userRepo: repo}
}

// Execute returns the stored PNG. A missing user and a missing avatar are
// reported the same way.
func (uc *GetAvatarUseCase) Execute(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "GetAvatar")
	defer span.End()

	png, err := uc.userRepo.GetAvatar(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NewAppError(apperror.ErrNotFound, "avatar not found", "", nil)
		}
		span.RecordError(err)
		return nil, err
	}
	return png, nil
}
