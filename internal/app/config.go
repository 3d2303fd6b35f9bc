package app

import (
	"os"
	"strings"
	"time"

	"github.com/aikhq/aik-backend/internal/platform/envutil"
)

// Config collects the process-level knobs. Provider and storage clients
// read their own credentials from the environment via their ConfigFromEnv
// constructors.
type Config struct {
	AppEnv   string
	HTTPPort string

	MaxAttempts int

	KaraokeTick      time.Duration
	KaraokeBatchSize int

	// Poll workers skip a step until submitted_at is older than this.
	SplitPollThreshold      time.Duration
	TranscriptPollThreshold time.Duration

	CharsPerCaption int
	PresignTTL      time.Duration

	MatcherTick        time.Duration
	MatcherBatchSize   int
	DuplicateWindow    time.Duration
	DuplicateThreshold int
	RecommendThreshold int

	JWTSecret   string
	JWTTTL      time.Duration
	APIUsername string
	// bcrypt hash of the service account password
	APIPasswordHash string

	LLMProvider string // openai|dummy
}

func LoadConfig() Config {
	return Config{
		AppEnv:   envutil.String("APP_ENV", "development"),
		HTTPPort: envutil.String("HTTP_PORT", "8080"),

		MaxAttempts: envutil.Int("MAX_ATTEMPTS", 5),

		KaraokeTick:      envutil.Seconds("KARAOKE_TICK_SECONDS", 30*time.Second),
		KaraokeBatchSize: envutil.Int("KARAOKE_BATCH_SIZE", 100),

		SplitPollThreshold:      envutil.Seconds("LALAL_SPLIT_RESULT_THRESHOLD", 60*time.Second),
		TranscriptPollThreshold: envutil.Seconds("ASSEMBLYAI_TRANSCRIPT_RESULT_THRESHOLD", 60*time.Second),

		CharsPerCaption: envutil.Int("SUBTITLES_CHARS_PER_CAPTION", 80),
		PresignTTL:      envutil.Seconds("PRESIGN_TTL_SECONDS", 3600*time.Second),

		MatcherTick:        envutil.Seconds("MATCHER_TICK_SECONDS", 10*time.Second),
		MatcherBatchSize:   envutil.Int("MATCHER_BATCH_SIZE", 20),
		DuplicateWindow:    envutil.Seconds("DUPLICATE_WINDOW_SECONDS", 2*60*60*time.Second),
		DuplicateThreshold: envutil.Int("DUPLICATE_THRESHOLD", 7),
		RecommendThreshold: envutil.Int("RECOMMEND_THRESHOLD", 7),

		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTTTL:          envutil.Seconds("JWT_TTL_SECONDS", 24*60*60*time.Second),
		APIUsername:     envutil.String("API_USERNAME", "admin"),
		APIPasswordHash: strings.TrimSpace(os.Getenv("API_PASSWORD_HASH")),

		LLMProvider: envutil.String("JOB_MATCHER_LLM", "openai"),
	}
}
