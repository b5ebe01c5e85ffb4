package account

import (
	"context"
	"errors"
	"sync"

	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/logger"
)

type DeleteAccountUseCase struct {
	userRepo user.Repository
	notifier service.Notifier
	logger   logger.Logger

	pending sync.WaitGroup
}

func NewDeleteAccountUseCase(repo user.Repository, notifier service.Notifier, log logger.Logger) *DeleteAccountUseCase {
	return &DeleteAccountUseCase{userRepo: repo, notifier: notifier, logger: log}
}

// Execute removes the account and returns the record as it was before removal.
func (uc *DeleteAccountUseCase) Execute(ctx context.Context, u *user.User) (*user.User, error) {
	ctx, span := tracer.Start(ctx, "DeleteAccount")
	defer span.End()

	if err := uc.userRepo.Delete(ctx, u.ID); err != nil {
		span.RecordError(err)
		if errors.Is(err, apperror.ErrInternal) {
			return nil, err
		}
		return nil, apperror.NewInternal(err.Error(), err)
	}

	email, name := u.Email, u.Name
	notifyAsync(&uc.pending, uc.logger, "exit", email, func(ctx context.Context) error {
		return uc.notifier.NotifyDeleted(ctx, email, name)
	})
	return u, nil
}

// Wait blocks until notifications started by Execute have finished.
func (uc *DeleteAccountUseCase) Wait() {
	uc.pending.Wait()
}
