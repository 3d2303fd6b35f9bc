package jobmatcher

import (
	"time"

	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/services"
)

// Deps is the shared dependency set of the duplicate checker and the
// matcher.
type Deps struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Vacancies repos.VacancyRepo
	Resumes   repos.ResumeRepo
	Matches   repos.MatchRepo
	MatchLogs repos.MatchProcessLogRepo
	DupLogs   repos.DuplicateCheckLogRepo

	LLM      services.LLMService
	Notifier services.Notifier

	BatchSize          int
	Tick               time.Duration
	DuplicateWindow    time.Duration
	DuplicateThreshold int
	RecommendThreshold int
}
