package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Phil-Jim/strava-analytics/pkg/analytics"
	"github.com/Phil-Jim/strava-analytics/pkg/authz"
)

func (s *Server) analyticsFor(c *gin.Context) *analytics.Analytics {
	user, _ := authz.GetCurrentUser(c)
	return analytics.New(s.database, user.ID)
}

func (s *Server) handleStats(c *gin.Context) {
	period := c.DefaultQuery("period", "all")
	activityType := c.Query("type")

	stats, err := s.analyticsFor(c).SummaryStats(period, activityType)
	if err != nil {
		s.apiError(c, http.StatusInternalServerError, err, "failed to compute stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleBreakdown(c *gin.Context) {
	period := c.DefaultQuery("period", "all")

	breakdown, err := s.analyticsFor(c).TypeBreakdown(period)
	if err != nil {
		s.apiError(c, http.StatusInternalServerError, err, "failed to compute breakdown")
		return
	}
	c.JSON(http.StatusOK, gin.H{"breakdown": breakdown})
}

func (s *Server) handleMonthlyTrends(c *gin.Context) {
	trends, err := s.analyticsFor(c).MonthlyTrends(c.Query("type"))
	if err != nil {
		s.apiError(c, http.StatusInternalServerError, err, "failed to compute trends")
		return
	}
	c.JSON(http.StatusOK, gin.H{"trends": trends})
}

func (s *Server) handleWeeklyTrends(c *gin.Context) {
	weeks, _ := strconv.Atoi(c.DefaultQuery("weeks", "12"))

	trends, err := s.analyticsFor(c).WeeklyTrends(weeks, c.Query("type"))
	if err != nil {
		s.apiError(c, http.StatusInternalServerError, err, "failed to compute trends")
		return
	}
	c.JSON(http.StatusOK, gin.H{"trends": trends})
}

func (s *Server) handlePersonalRecords(c *gin.Context) {
	records, err := s.analyticsFor(c).PersonalRecords(c.Query("type"))
	if err != nil {
		s.apiError(c, http.StatusInternalServerError, err, "failed to compute records")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) handleDayOfWeek(c *gin.Context) {
	stats, err := s.analyticsFor(c).DayOfWeekStats(c.Query("type"))
	if err != nil {
		s.apiError(c, http.StatusInternalServerError, err, "failed to compute stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (s *Server) handleActivities(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	activities, err := s.analyticsFor(c).RecentActivities(c.Query("type"), limit)
	if err != nil {
		s.apiError(c, http.StatusInternalServerError, err, "failed to load activities")
		return
	}

	// List rows carry the display values the dashboard renders, not raw SI
	// units.
	items := make([]gin.H, 0, len(activities))
	for _, a := range activities {
		items = append(items, gin.H{
			"id":                a.ID,
			"name":              a.Name,
			"type":              a.ActivityType,
			"date":              a.StartDate.UTC().Format("2006-01-02T15:04:05Z07:00"),
			"distance_km":       a.DistanceKm(),
			"distance_miles":    a.DistanceMiles(),
			"moving_time":       a.MovingTimeFormatted(),
			"average_speed_kmh": a.AverageSpeedKmh(),
			"average_speed_mph": a.AverageSpeedMph(),
			"elevation_gain":    a.TotalElevationGain,
			"calories":          a.Calories,
		})
	}
	c.JSON(http.StatusOK, gin.H{"activities": items})
}
