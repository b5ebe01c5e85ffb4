package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/apperror"
	"github.com/khoahotran/user-service/pkg/logger"
)

type UserRepoIntegrationTestSuite struct {
	suite.Suite
	dbPool      *pgxpool.Pool
	pgContainer *postgres.PostgresContainer
	testLogger  logger.Logger
	userRepo    user.Repository
}

func (s *UserRepoIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()
	s.testLogger = logger.NewNopLogger()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(1*time.Minute),
		),
	)
	if err != nil {
		s.T().Fatalf("Failed to start postgres container: %s", err)
	}
	s.pgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		s.T().Fatalf("Failed to get connection string: %s", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		s.T().Fatalf("Failed to create pgxpool: %s", err)
	}
	s.dbPool = pool

	if err := RunMigrations(ctx, pool, s.testLogger); err != nil {
		s.T().Fatalf("Failed to run migrations: %s", err)
	}

	s.userRepo = NewPostgresUserRepo(s.dbPool, s.testLogger)
}

func (s *UserRepoIntegrationTestSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate postgres container: %s", err)
		}
	}
}

func (s *UserRepoIntegrationTestSuite) SetupTest() {
	_, err := s.dbPool.Exec(context.Background(), `TRUNCATE users`)
	s.Require().NoError(err)
}

func TestUserRepoIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	suite.Run(t, new(UserRepoIntegrationTestSuite))
}

func (s *UserRepoIntegrationTestSuite) newUser(email string) *user.User {
	age := 31
	now := time.Now().UTC()
	return &user.User{
		ID:           uuid.New(),
		Name:         "Integration",
		Email:        email,
		PasswordHash: "hashedpassword",
		Age:          &age,
		Tokens:       []string{"token-1"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *UserRepoIntegrationTestSuite) Test_Create_And_Find() {
	ctx := context.Background()
	u := s.newUser("int@example.com")

	s.NoError(s.userRepo.Create(ctx, u))
	s.Equal(int64(1), u.Version)

	byID, err := s.userRepo.FindByID(ctx, u.ID)
	s.NoError(err)
	s.Equal(u.Email, byID.Email)
	s.Equal([]string{"token-1"}, byID.Tokens)
	s.Equal(31, *byID.Age)
	s.False(byID.HasAvatar)

	byEmail, err := s.userRepo.FindByEmail(ctx, u.Email)
	s.NoError(err)
	s.Equal(u.ID, byEmail.ID)
}

func (s *UserRepoIntegrationTestSuite) Test_Create_DuplicateEmail() {
	ctx := context.Background()
	s.NoError(s.userRepo.Create(ctx, s.newUser("dup@example.com")))

	err := s.userRepo.Create(ctx, s.newUser("dup@example.com"))
	s.ErrorIs(err, apperror.ErrConflict)
}

func (s *UserRepoIntegrationTestSuite) Test_Update_OptimisticVersion() {
	ctx := context.Background()
	u := s.newUser("ver@example.com")
	s.NoError(s.userRepo.Create(ctx, u))

	stale := *u
	u.Name = "Renamed"
	u.Age = nil
	s.NoError(s.userRepo.Update(ctx, u))
	s.Equal(int64(2), u.Version)

	stale.Name = "Lost update"
	s.ErrorIs(s.userRepo.Update(ctx, &stale), apperror.ErrConflict)

	found, err := s.userRepo.FindByID(ctx, u.ID)
	s.NoError(err)
	s.Equal("Renamed", found.Name)
	s.Nil(found.Age)
}

func (s *UserRepoIntegrationTestSuite) Test_TokenOperations() {
	ctx := context.Background()
	u := s.newUser("tok@example.com")
	s.NoError(s.userRepo.Create(ctx, u))

	s.NoError(s.userRepo.AppendToken(ctx, u.ID, "token-2"))
	s.NoError(s.userRepo.AppendToken(ctx, u.ID, "token-3"))
	s.NoError(s.userRepo.RemoveToken(ctx, u.ID, "token-2"))

	found, err := s.userRepo.FindByID(ctx, u.ID)
	s.NoError(err)
	s.Equal([]string{"token-1", "token-3"}, found.Tokens)

	s.NoError(s.userRepo.ClearTokens(ctx, u.ID))
	found, err = s.userRepo.FindByID(ctx, u.ID)
	s.NoError(err)
	s.Empty(found.Tokens)
}

func (s *UserRepoIntegrationTestSuite) Test_Avatar_And_Delete() {
	ctx := context.Background()
	u := s.newUser("av@example.com")
	s.NoError(s.userRepo.Create(ctx, u))

	_, err := s.userRepo.GetAvatar(ctx, u.ID)
	s.ErrorIs(err, apperror.ErrNotFound)

	s.NoError(s.userRepo.SetAvatar(ctx, u.ID, []byte{0x89, 'P', 'N', 'G'}))
	avatar, err := s.userRepo.GetAvatar(ctx, u.ID)
	s.NoError(err)
	s.Equal([]byte{0x89, 'P', 'N', 'G'}, avatar)

	s.NoError(s.userRepo.SetAvatar(ctx, u.ID, nil))
	_, err = s.userRepo.GetAvatar(ctx, u.ID)
	s.ErrorIs(err, apperror.ErrNotFound)

	s.NoError(s.userRepo.Delete(ctx, u.ID))
	_, err = s.userRepo.FindByID(ctx, u.ID)
	s.ErrorIs(err, apperror.ErrNotFound)
	s.ErrorIs(s.userRepo.Delete(ctx, u.ID), apperror.ErrNotFound)
}
