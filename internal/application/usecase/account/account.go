package account

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/auth"
	"github.com/khoahotran/user-service/pkg/logger"
)

var tracer = otel.Tracer("account_usecase")

// hashPassword trims, validates and hashes a plaintext password.
func hashPassword(password string) (string, error) {
	password = strings.TrimSpace(password)
	if err := user.ValidatePassword(password); err != nil {
		return "", apperror.NewInvalidInput(err.Error(), err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", apperror.NewInternal("failed to hash password", err)
	}
	return hash, nil
}

// notifyAsync runs send on its own goroutine tracked by pending. Failures are
// logged only.
func notifyAsync(pending *sync.WaitGroup, log logger.Logger, kind, email string, send func(ctx context.Context) error) {
	pending.Add(1)
	go func() {
		defer pending.Done()
		if err := send(context.Background()); err != nil {
			log.Error("Failed to send account notification", err, zap.String("kind", kind), zap.String("email", email))
		}
	}()
}
