package app

import (
	"github.com/aikhq/aik-backend/internal/clients/openai"
	"github.com/aikhq/aik-backend/internal/clients/telegram"
	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/services"
)

// NewLLMService picks the language-model backend from JOB_MATCHER_LLM.
func NewLLMService(log *logger.Logger, cfg Config) (services.LLMService, error) {
	if cfg.LLMProvider == "dummy" {
		log.Warn("using dummy LLM service")
		return services.NewDummyLLMService(), nil
	}
	ai, err := openai.NewClient(log)
	if err != nil {
		return nil, err
	}
	return services.NewOpenAILLMService(log, ai), nil
}

// NewNotifier degrades to a no-op when Telegram is not configured, so dev
// environments run without a bot token.
func NewNotifier(log *logger.Logger) services.Notifier {
	tg, err := telegram.NewFromEnv(log)
	if err != nil {
		log.Warn("telegram notifier disabled", "error", err)
		return services.NopNotifier{}
	}
	return services.NewTelegramNotifier(log, tg)
}
