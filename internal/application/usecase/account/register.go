package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/auth"
	"github.com/khoahotran/user-service/pkg/logger"
)

type RegisterUseCase struct {
	userRepo user.Repository
	jwtSvc   *auth.JWTService
	notifier service.Notifier
	logger   logger.Logger

	pending sync.WaitGroup
}

func NewRegisterUseCase(repo user.Repository, jwtSvc *auth.JWTService, notifier service.Notifier, log logger.Logger) *RegisterUseCase {
	return &RegisterUseCase{
		userRepo: repo,
		jwtSvc:   jwtSvc,
		notifier: notifier,
		logger:   log,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      *int
}

type RegisterOutput struct {
	User  *user.User
	Token string
}

func (uc *RegisterUseCase) Execute(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	now := time.Now().UTC()
	u := &user.User{
		ID:        uuid.New(),
		Name:      input.Name,
		Email:     input.Email,
		Age:       input.Age,
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.Normalize()
	if err := u.Validate(); err != nil {
		span.RecordError(err)
		return nil, apperror.NewInvalidInput(err.Error(), err)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	u.PasswordHash = hash

	token, err := uc.jwtSvc.GenerateToken(u.ID)
	if err != nil {
		uc.logger.Error("Failed to generate token", err, zap.String("user_id", u.ID.String()))
		return nil, apperror.NewInternal("failed to generate token", err)
	}
	u.Tokens = []string{token}

	if err := uc.userRepo.Create(ctx, u); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", u.ID.String()))

	email, name := u.Email, u.Name
	notifyAsync(&uc.pending, uc.logger, "welcome", email, func(ctx context.Context) error {
		return uc.notifier.NotifyRegistered(ctx, email, name)
	})

	return &RegisterOutput{User: u, Token: token}, nil
}

// Wait blocks until notifications started by Execute have finished.
func (uc *RegisterUseCase) Wait() {
	uc.pending.Wait()
}
