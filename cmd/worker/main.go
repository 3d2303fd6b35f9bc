package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aikhq/aik-backend/internal/app"
	"github.com/aikhq/aik-backend/internal/clients/assemblyai"
	"github.com/aikhq/aik-backend/internal/clients/lalal"
	"github.com/aikhq/aik-backend/internal/clients/redis"
	"github.com/aikhq/aik-backend/internal/data/db"
	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/platform/s3"
	"github.com/aikhq/aik-backend/internal/services"
	"github.com/aikhq/aik-backend/internal/workers"
	"github.com/aikhq/aik-backend/internal/workers/jobmatcher"
	"github.com/aikhq/aik-backend/internal/workers/karaoke"
)

func main() {
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("postgres init failed", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("migration failed", "error", err)
	}
	gdb := pg.DB()

	store, err := s3.NewFromEnv(ctx, log)
	if err != nil {
		log.Fatal("object store init failed", "error", err)
	}
	splitter, err := lalal.NewFromEnv(log)
	if err != nil {
		log.Fatal("lalal client init failed", "error", err)
	}
	asr, err := assemblyai.NewFromEnv(log)
	if err != nil {
		log.Fatal("assemblyai client init failed", "error", err)
	}
	llm, err := app.NewLLMService(log, cfg)
	if err != nil {
		log.Fatal("llm service init failed", "error", err)
	}

	bus, err := redis.NewEventBus(log)
	if err != nil {
		log.Fatal("redis event bus init failed", "error", err)
	}
	if bus != nil {
		defer func() { _ = bus.Close() }()
	}

	notifier := app.NewNotifier(log)

	karaokeDeps := &karaoke.Deps{
		Log:    log,
		DB:     gdb,
		Tasks:  repos.NewTrackTaskRepo(gdb, log),
		Steps:  repos.NewTrackTaskStepRepo(gdb, log),
		Logs:   repos.NewTrackTaskLogRepo(gdb, log),
		Tracks: repos.NewKaraokeTrackRepo(gdb, log),

		Store:    store,
		Splitter: splitter,
		ASR:      asr,

		Transcript: services.NewTranscriptService(log),
		Notifier:   notifier,
		Bus:        bus,

		MaxAttempts:             cfg.MaxAttempts,
		BatchSize:               cfg.KaraokeBatchSize,
		Tick:                    cfg.KaraokeTick,
		SplitPollThreshold:      cfg.SplitPollThreshold,
		TranscriptPollThreshold: cfg.TranscriptPollThreshold,
		CharsPerCaption:         cfg.CharsPerCaption,
		PresignTTL:              cfg.PresignTTL,
	}

	matcherDeps := &jobmatcher.Deps{
		Log:       log,
		DB:        gdb,
		Vacancies: repos.NewVacancyRepo(gdb, log),
		Resumes:   repos.NewResumeRepo(gdb, log),
		Matches:   repos.NewMatchRepo(gdb, log),
		MatchLogs: repos.NewMatchProcessLogRepo(gdb, log),
		DupLogs:   repos.NewDuplicateCheckLogRepo(gdb, log),

		LLM:      llm,
		Notifier: notifier,

		BatchSize:          cfg.MatcherBatchSize,
		Tick:               cfg.MatcherTick,
		DuplicateWindow:    cfg.DuplicateWindow,
		DuplicateThreshold: cfg.DuplicateThreshold,
		RecommendThreshold: cfg.RecommendThreshold,
	}

	log.Info("workers starting",
		"karaoke_tick", cfg.KaraokeTick.String(),
		"matcher_tick", cfg.MatcherTick.String(),
	)
	err = workers.RunAll(ctx, log,
		&karaoke.InitSplitWorker{Deps: karaokeDeps},
		&karaoke.SubmitSplitWorker{Deps: karaokeDeps},
		&karaoke.PollSplitWorker{Deps: karaokeDeps},
		&karaoke.InitTranscriptWorker{Deps: karaokeDeps},
		&karaoke.SubmitTranscriptWorker{Deps: karaokeDeps},
		&karaoke.PollTranscriptWorker{Deps: karaokeDeps},
		&karaoke.InitSubtitlesWorker{Deps: karaokeDeps},
		&karaoke.FetchSubtitlesWorker{Deps: karaokeDeps},
		&karaoke.AssembleWorker{Deps: karaokeDeps},
		&jobmatcher.CheckDuplicatesWorker{Deps: matcherDeps},
		&jobmatcher.MatchWorker{Deps: matcherDeps},
	)
	if err != nil {
		log.Error("worker supervisor exited", "error", err)
	}
	log.Info("workers stopped")
}
