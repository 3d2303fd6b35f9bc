package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/aikhq/aik-backend/internal/app"
	"github.com/aikhq/aik-backend/internal/data/db"
	"github.com/aikhq/aik-backend/internal/data/repos"
	httpserver "github.com/aikhq/aik-backend/internal/http"
	httpH "github.com/aikhq/aik-backend/internal/http/handlers"
	httpMW "github.com/aikhq/aik-backend/internal/http/middleware"
	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/platform/s3"
	"github.com/aikhq/aik-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("postgres init failed", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("migration failed", "error", err)
	}
	gdb := pg.DB()

	store, err := s3.NewFromEnv(context.Background(), log)
	if err != nil {
		log.Fatal("object store init failed", "error", err)
	}

	llm, err := app.NewLLMService(log, cfg)
	if err != nil {
		log.Fatal("llm service init failed", "error", err)
	}

	userRepo := repos.NewUserRepo(gdb, log)
	taskRepo := repos.NewTrackTaskRepo(gdb, log)
	stepRepo := repos.NewTrackTaskStepRepo(gdb, log)
	trackRepo := repos.NewKaraokeTrackRepo(gdb, log)
	vacancyRepo := repos.NewVacancyRepo(gdb, log)
	resumeRepo := repos.NewResumeRepo(gdb, log)
	matchRepo := repos.NewMatchRepo(gdb, log)

	auth := services.NewAuthService(log, userRepo, services.AuthConfig{
		Secret:              cfg.JWTSecret,
		TTL:                 cfg.JWTTTL,
		ServiceUsername:     cfg.APIUsername,
		ServicePasswordHash: cfg.APIPasswordHash,
	})

	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:            log,
		AuthHandler:    httpH.NewAuthHandler(log, auth),
		AuthMiddleware: httpMW.NewAuthMiddleware(log, auth),
		KaraokeHandler: httpH.NewKaraokeHandler(log, taskRepo, stepRepo, trackRepo, store, cfg.PresignTTL),
		JobMatcherHandler: httpH.NewJobMatcherHandler(log, vacancyRepo, resumeRepo,
			matchRepo, llm),
		HealthHandler: httpH.NewHealthHandler(),
	})

	log.Info("api listening", "port", cfg.HTTPPort)
	if err := server.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("api server exited", "error", err)
	}
}
