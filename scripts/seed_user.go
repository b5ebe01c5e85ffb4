package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/khoahotran/user-service/adapters/mail"
	"github.com/khoahotran/user-service/adapters/persistence"
	"github.com/khoahotran/user-service/internal/application/usecase/account"
	"github.com/khoahotran/user-service/internal/config"
	"github.com/khoahotran/user-service/pkg/auth"
	"github.com/khoahotran/user-service/pkg/logger"
)

// Seeds one account into the configured database so a fresh environment has
// a login to work with. Reads SEED_NAME, SEED_EMAIL and SEED_PASSWORD.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}
	log := logger.NewZapLogger(cfg.App.Env)
	defer log.Sync()

	if cfg.DB.DSN == "" {
		log.Fatal("DB_DSN is required to seed a user", nil)
	}

	ctx := context.Background()
	pool, err := persistence.NewPostgresPool(cfg, log)
	if err != nil {
		log.Fatal("Cannot connect Postgres", err)
	}
	defer pool.Close()

	if err := persistence.RunMigrations(ctx, pool, log); err != nil {
		log.Fatal("Cannot run migrations", err)
	}

	register := account.NewRegisterUseCase(
		persistence.NewPostgresUserRepo(pool, log),
		auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan),
		mail.NewMailNotifier(mail.NewLogMailer(log)),
		log,
	)

	out, err := register.Execute(ctx, account.RegisterInput{
		Name:     os.Getenv("SEED_NAME"),
		Email:    os.Getenv("SEED_EMAIL"),
		Password: os.Getenv("SEED_PASSWORD"),
	})
	if err != nil {
		log.Fatal("Cannot seed user", err)
	}
	register.Wait()

	log.Info("Seeded user", zap.String("user_id", out.User.ID.String()), zap.String("email", out.User.Email))
}
