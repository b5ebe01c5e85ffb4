package account

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/logger"
)

var updatableFields = []string{"name", "email", "password", "age"}

// ValidateUpdateFields rejects any key outside the updatable set and names
// every offending key in the error details.
func ValidateUpdateFields(keys []string) error {
	var invalid []string
	for _, k := range keys {
		if !slices.Contains(updatableFields, k) {
			invalid = append(invalid, k)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	slices.Sort(invalid)
	return apperror.NewAppError(
		apperror.ErrInvalidInput,
		"Invalid updates!",
		fmt.Sprintf("fields not allowed: %s", strings.Join(invalid, ", ")),
		nil,
	)
}

type UpdateProfileUseCase struct {
	userRepo user.Repository
	logger   logger.Logger
}

func NewUpdateProfileUseCase(repo user.Repository, log logger.Logger) *UpdateProfileUseCase {
	return &UpdateProfileUseCase{userRepo: repo, logger: log}
}

// UpdateProfileInput carries the raw body keys next to the decoded values so
// an explicit "age": null can be told apart from a missing age.
type UpdateProfileInput struct {
	User     *user.User
	Keys     []string
	Name     *string
	Email    *string
	Password *string
	Age      *int
}

func (uc *UpdateProfileUseCase) Execute(ctx context.Context, input UpdateProfileInput) (*user.User, error) {
	ctx, span := tracer.Start(ctx, "UpdateProfile")
	defer span.End()

	if err := ValidateUpdateFields(input.Keys); err != nil {
		return nil, err
	}

	u := *input.User
	for _, k := range input.Keys {
		switch k {
		case "name":
			if input.Name != nil {
				u.Name = *input.Name
			}
		case "email":
			if input.Email != nil {
				u.Email = *input.Email
			}
		case "age":
			u.Age = input.Age
		case "password":
			if input.Password == nil {
				return nil, apperror.NewInvalidInput(user.ErrPasswordTooShort.Error(), user.ErrPasswordTooShort)
			}
			hash, err := hashPassword(*input.Password)
			if err != nil {
				return nil, err
			}
			u.PasswordHash = hash
		}
	}

	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, apperror.NewInvalidInput(err.Error(), err)
	}
	u.UpdatedAt = time.Now().UTC()

	if err := uc.userRepo.Update(ctx, &u); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &u, nil
}
