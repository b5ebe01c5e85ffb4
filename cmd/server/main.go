package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/user-service/adapters/event"
	httpAdapter "github.com/khoahotran/user-service/adapters/http"
	"github.com/khoahotran/user-service/adapters/image_processing"
	"github.com/khoahotran/user-service/adapters/mail"
	"github.com/khoahotran/user-service/adapters/media_storage"
	"github.com/khoahotran/user-service/adapters/persistence"
	"github.com/khoahotran/user-service/internal/application/service"
	"github.com/khoahotran/user-service/internal/application/usecase/account"
	"github.com/khoahotran/user-service/internal/application/usecase/avatar"
	"github.com/khoahotran/user-service/internal/config"
	"github.com/khoahotran/user-service/internal/domain/user"
	"github.com/khoahotran/user-service/pkg/auth"
	"github.com/khoahotran/user-service/pkg/logger"
	"github.com/khoahotran/user-service/pkg/tracing"
)

const serviceName = "user-service-api"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()

	if cfg.Auth.JWTSecret == "" {
		appLogger.Fatal("JWT secret is not configured", nil)
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(cfg, appLogger, serviceName)
	if err != nil {
		appLogger.Fatal("Cannot init tracer provider", err)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				appLogger.Error("Error shutting down tracer provider", err)
			}
		}()
	}

	// Repositories
	userRepo, closeRepo := newUserRepository(ctx, cfg, appLogger)
	defer closeRepo()

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)
	notifier, closeNotifier := newNotifier(cfg, appLogger)
	defer closeNotifier()
	mirror := newAvatarMirror(ctx, cfg, appLogger)
	policy := avatar.Policy{MaxSize: cfg.Avatar.MaxSize, AllowedExtensions: cfg.Avatar.AllowedExtensions}

	// Use Cases
	registerUseCase := account.NewRegisterUseCase(userRepo, jwtSvc, notifier, appLogger)
	loginUseCase := account.NewLoginUseCase(userRepo, jwtSvc, appLogger)
	logoutUseCase := account.NewLogoutUseCase(userRepo, appLogger)
	authenticateUseCase := account.NewAuthenticateUseCase(userRepo, jwtSvc, appLogger)
	updateProfileUseCase := account.NewUpdateProfileUseCase(userRepo, appLogger)
	deleteAccountUseCase := account.NewDeleteAccountUseCase(userRepo, notifier, appLogger)
	uploadAvatarUseCase := avatar.NewUploadAvatarUseCase(userRepo, image_processing.NewAvatarProcessor(), mirror, policy, appLogger)
	deleteAvatarUseCase := avatar.NewDeleteAvatarUseCase(userRepo, mirror, appLogger)
	getAvatarUseCase := avatar.NewGetAvatarUseCase(userRepo)

	// HTTP Handlers
	userHandler := httpAdapter.NewUserHandler(
		registerUseCase,
		loginUseCase,
		logoutUseCase,
		updateProfileUseCase,
		deleteAccountUseCase,
		appLogger,
	)
	avatarHandler := httpAdapter.NewAvatarHandler(
		uploadAvatarUseCase,
		deleteAvatarUseCase,
		getAvatarUseCase,
		cfg.Avatar.MaxSize,
		appLogger,
	)

	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		UserHandler:    userHandler,
		AvatarHandler:  avatarHandler,
		AuthMiddleware: httpAdapter.AuthMiddleware(authenticateUseCase, appLogger),
		Logger:         appLogger,
		ServiceName:    serviceName,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
	registerUseCase.Wait()
	deleteAccountUseCase.Wait()
	appLogger.Info("Server exited")
}

// newUserRepository picks Postgres when a DSN is configured and the in-memory
// store otherwise, then puts the Redis cache in front when an address is set.
func newUserRepository(ctx context.Context, cfg config.Config, log logger.Logger) (user.Repository, func()) {
	var (
		repo    user.Repository
		closers []func()
	)

	if cfg.DB.DSN == "" {
		log.Warn("DB_DSN not set, using in-memory user store")
		repo = persistence.NewMemoryUserRepo()
	} else {
		dbPool, err := persistence.NewPostgresPool(cfg, log)
		if err != nil {
			log.Fatal("Cannot connect Postgres", err)
		}
		closers = append(closers, dbPool.Close)

		if err := persistence.RunMigrations(ctx, dbPool, log); err != nil {
			log.Fatal("Cannot run migrations", err)
		}
		repo = persistence.NewPostgresUserRepo(dbPool, log)
	}

	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(cfg, log)
		if err != nil {
			log.Fatal("Cannot connect Redis", err)
		}
		closers = append(closers, func() { redisClient.Close() })
		repo = persistence.NewCachedUserRepo(repo, redisClient, cfg.Redis.CacheTTL, log)
	}

	return repo, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// newNotifier publishes to Kafka when brokers are configured. Without brokers
// mail goes out directly, over SMTP if configured and to the log otherwise.
func newNotifier(cfg config.Config, log logger.Logger) (service.Notifier, func()) {
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, log)
		if err != nil {
			log.Fatal("Cannot init Kafka", err)
		}
		return event.NewKafkaNotifier(kafkaClient), kafkaClient.Close
	}

	return mail.NewMailNotifier(newMailer(cfg, log)), func() {}
}

func newMailer(cfg config.Config, log logger.Logger) service.Mailer {
	if cfg.SMTP.Host == "" {
		return mail.NewLogMailer(log)
	}
	mailer, err := mail.NewSMTPMailer(cfg, log)
	if err != nil {
		log.Fatal("Cannot init SMTP mailer", err)
	}
	return mailer
}

func newAvatarMirror(ctx context.Context, cfg config.Config, log logger.Logger) service.Uploader {
	var (
		mirror service.Uploader
		err    error
	)
	switch cfg.Avatar.Mirror {
	case "":
		return nil
	case "cloudinary":
		mirror, err = media_storage.NewCloudinaryAdapter(cfg, log)
	case "s3":
		mirror, err = media_storage.NewS3Adapter(ctx, cfg, log)
	default:
		log.Fatal("Unknown avatar mirror", nil, zap.String("mirror", cfg.Avatar.Mirror))
	}
	if err != nil {
		log.Fatal("Failed to initialize avatar mirror", err)
	}
	return mirror
}
