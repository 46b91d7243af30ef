package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Phil-Jim/strava-analytics/pkg/authz"
	"github.com/Phil-Jim/strava-analytics/pkg/db"
	"github.com/Phil-Jim/strava-analytics/pkg/strava"
	syncpkg "github.com/Phil-Jim/strava-analytics/pkg/sync"
)

const stateCookie = "oauth_state"

func (s *Server) handleDashboard(c *gin.Context) {
	user, _ := authz.GetCurrentUser(c)
	a := s.analyticsFor(c)

	stats, err := a.SummaryStats("all", "")
	if err != nil {
		s.pageError(c, err)
		return
	}
	breakdown, err := a.TypeBreakdown("all")
	if err != nil {
		s.pageError(c, err)
		return
	}
	records, err := a.PersonalRecords("")
	if err != nil {
		s.pageError(c, err)
		return
	}
	recent, err := a.RecentActivities("", 10)
	if err != nil {
		s.pageError(c, err)
		return
	}

	var profileCount int64
	s.database.Model(&db.StravaProfile{}).Where("user_id = ?", user.ID).Count(&profileCount)

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Username":   user.Username,
		"Connected":  profileCount > 0,
		"Stats":      stats,
		"Breakdown":  breakdown,
		"Records":    records,
		"Recent":     recent,
		"SyncNotice": c.Query("sync"),
	})
}

func (s *Server) handlePrivacy(c *gin.Context) {
	c.HTML(http.StatusOK, "privacy.html", gin.H{})
}

func (s *Server) handleDataDeletion(c *gin.Context) {
	c.HTML(http.StatusOK, "data_deletion.html", gin.H{})
}

// handleStravaAuth starts the OAuth consent flow with a fresh CSRF state.
func (s *Server) handleStravaAuth(c *gin.Context) {
	state := uuid.NewString()
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, strava.AuthorizationURL(s.cfg.Strava, state))
}

func (s *Server) handleStravaCallback(c *gin.Context) {
	user, _ := authz.GetCurrentUser(c)

	if errParam := c.Query("error"); errParam != "" {
		log.Warnf("Strava authorization denied for user %d: %s", user.ID, errParam)
		c.Redirect(http.StatusSeeOther, "/?sync=denied")
		return
	}

	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		c.String(http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "No authorization code received from Strava")
		return
	}

	tokenResp, err := strava.ExchangeCode(s.cfg.Strava, code)
	if err != nil {
		s.pageError(c, err)
		return
	}

	profile := db.StravaProfile{
		UserID:       user.ID,
		StravaUserID: tokenResp.Athlete.ID,
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Unix(tokenResp.ExpiresAt, 0).UTC(),
	}
	err = s.database.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"strava_user_id", "access_token", "refresh_token", "expires_at", "updated_at",
		}),
	}).Create(&profile).Error
	if err != nil {
		s.pageError(c, err)
		return
	}

	log.Infof("Connected Strava athlete %d for user %s", tokenResp.Athlete.ID, user.Username)
	c.Redirect(http.StatusSeeOther, "/sync")
}

// handleSync runs a full sync for the current user and reports the partial
// counts even when the loop stopped on an error.
func (s *Server) handleSync(c *gin.Context) {
	user, _ := authz.GetCurrentUser(c)

	var profile db.StravaProfile
	if err := s.database.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.Redirect(http.StatusSeeOther, "/auth/strava")
			return
		}
		s.pageError(c, err)
		return
	}

	source := strava.NewProfileCredentials(s.database, s.cfg.Strava, user.ID)
	syncer := syncpkg.NewSyncer(s.database, strava.NewClient(source), user.ID)

	res, err := syncer.SyncAll(0)
	if errors.Is(err, syncpkg.ErrSyncInProgress) {
		c.Redirect(http.StatusSeeOther, "/?sync=busy")
		return
	}
	if err != nil {
		s.pageError(c, err)
		return
	}

	notice := "ok"
	switch {
	case errors.Is(res.Err, strava.ErrAuthExpired):
		notice = "reconnect"
	case res.Err != nil:
		notice = "partial"
	}

	log.Infof("Sync for user %s: processed %d, new %d", user.Username, res.Processed, res.New)
	c.Redirect(http.StatusSeeOther, "/?sync="+notice)
}

func (s *Server) pageError(c *gin.Context, err error) {
	log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	if s.cfg.Server.Debug {
		c.String(http.StatusInternalServerError, "Error: %v", err)
		return
	}
	c.String(http.StatusInternalServerError, "Something went wrong")
}
