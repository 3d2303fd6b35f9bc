package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/aikhq/aik-backend/internal/http/handlers"
	httpMW "github.com/aikhq/aik-backend/internal/http/middleware"
	"github.com/aikhq/aik-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthHandler       *httpH.AuthHandler
	AuthMiddleware    *httpMW.AuthMiddleware
	KaraokeHandler    *httpH.KaraokeHandler
	JobMatcherHandler *httpH.JobMatcherHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLog(cfg.Log))
	}
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AuthHandler != nil {
			api.POST("/auth/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.KaraokeHandler != nil {
			protected.POST("/karaoke/tasks", cfg.KaraokeHandler.CreateTask)
			protected.GET("/karaoke/tasks/:id", cfg.KaraokeHandler.GetTask)
			protected.GET("/karaoke/tracks/:id", cfg.KaraokeHandler.GetTrack)
		}

		if cfg.JobMatcherHandler != nil {
			protected.POST("/job-matcher/vacancies", cfg.JobMatcherHandler.CreateVacancy)
			protected.GET("/job-matcher/vacancies/:id/matches", cfg.JobMatcherHandler.ListMatches)
			protected.POST("/job-matcher/resumes", cfg.JobMatcherHandler.CreateResume)
			protected.PATCH("/job-matcher/resumes/:id/active", cfg.JobMatcherHandler.SetResumeActive)
		}
	}

	return r
}
