package avatar

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/logger"
)

type UploadAvatarUseCase struct {
	userRepo  user.Repository
	processor service.ImageProcessor
	mirror    service.Uploader
	policy    Policy
	logger    logger.Logger
}

// NewUploadAvatarUseCase wires the upload flow. mirror may be nil.
func NewUploadAvatarUseCase(repo user.Repository, processor service.ImageProcessor, mirror service.Uploader, policy Policy, log logger.Logger) *UploadAvatarUseCase {
	return &UploadAvatarUseCase{
		userRepo:  repo,
		processor: processor,
		mirror:    mirror,
		policy:    policy,
		logger:    log,
	}
}

type UploadAvatarInput struct {
	UserID   uuid.UUID
	Filename string
	Size     int64
	File     io.Reader
}

func (uc *UploadAvatarUseCase) Execute(ctx context.Context, input UploadAvatarInput) error {
	ctx, span := tracer.Start(ctx, "UploadAvatar")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", input.UserID.String()), attribute.Int64("size", input.Size))

	if !uc.policy.allows(input.Filename) {
		return apperror.NewInvalidInput("Please upload an image", nil)
	}
	if input.Size > uc.policy.MaxSize {
		return apperror.NewInvalidInput(fmt.Sprintf("File too large, the limit is %d bytes", uc.policy.MaxSize), nil)
	}

	// Size comes from the multipart header, so cap the stream as well.
	limited := io.LimitReader(input.File, uc.policy.MaxSize+1)
	png, err := uc.processor.Normalize(limited)
	if err != nil {
		span.RecordError(err)
		return apperror.NewInvalidInput("Please upload an image", err)
	}

	if err := uc.userRepo.SetAvatar(ctx, input.UserID, png); err != nil {
		span.RecordError(err)
		return err
	}

	mirrorAsync(uc.mirror, uc.logger, input.UserID.String(), func(ctx context.Context, m service.Uploader) error {
		_, err := m.Upload(ctx, bytes.NewReader(png), mirrorFolder, input.UserID.String())
		return err
	})
	return nil
}
