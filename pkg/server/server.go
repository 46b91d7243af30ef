package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Phil-Jim/strava-analytics/pkg/authz"
	"github.com/Phil-Jim/strava-analytics/pkg/config"
	"github.com/Phil-Jim/strava-analytics/pkg/tmpl"
)

type Server struct {
	cfg      config.Config
	database *gorm.DB
	auth     *authz.App
}

func New(cfg config.Config, database *gorm.DB) *Server {
	return &Server{
		cfg:      cfg,
		database: database,
		auth:     &authz.App{DB: database},
	}
}

func (s *Server) Run() error {
	if !s.cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := s.engine()
	if err != nil {
		return err
	}

	log.Infof("Starting server on %s", s.cfg.Server.Addr)
	return r.Run(s.cfg.Server.Addr)
}

func (s *Server) engine() (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	templates, err := tmpl.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(templates)

	r.Use(s.auth.AuthMiddleware())

	s.auth.RegisterRoutes(r)
	s.registerRoutes(r)

	return r, nil
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.GET("/privacy", s.handlePrivacy)
	r.GET("/data-deletion", s.handleDataDeletion)

	r.GET("/", s.auth.RequireAuthPage(), s.handleDashboard)
	r.GET("/auth/strava", s.auth.RequireAuthPage(), s.handleStravaAuth)
	r.GET("/auth/strava/callback", s.auth.RequireAuthPage(), s.handleStravaCallback)
	r.GET("/sync", s.auth.RequireAuthPage(), s.handleSync)

	api := r.Group("/api")
	api.Use(s.auth.RequireAuth())
	api.GET("/stats", s.handleStats)
	api.GET("/breakdown", s.handleBreakdown)
	api.GET("/monthly-trends", s.handleMonthlyTrends)
	api.GET("/weekly-trends", s.handleWeeklyTrends)
	api.GET("/personal-records", s.handlePersonalRecords)
	api.GET("/day-of-week", s.handleDayOfWeek)
	api.GET("/activities", s.handleActivities)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// apiError logs the real error and only surfaces it to the client when the
// server runs in debug mode.
func (s *Server) apiError(c *gin.Context, status int, err error, public string) {
	log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	msg := public
	if s.cfg.Server.Debug {
		msg = err.Error()
	}
	c.JSON(status, gin.H{"error": msg})
}
