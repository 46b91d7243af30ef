package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Phil-Jim/strava-analytics/pkg/db"
)

func testApp(t *testing.T) *App {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	return &App{DB: database}
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	app := testApp(t)

	user, err := app.CreateUser("alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	authed, err := app.AuthenticateUser("alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = app.AuthenticateUser("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = app.AuthenticateUser("nobody", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	app := testApp(t)

	_, err := app.CreateUser("alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = app.CreateUser("alice", "other@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = app.CreateUser("bob", "alice@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSessionRoundTrip(t *testing.T) {
	app := testApp(t)

	user, err := app.CreateUser("alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	session, err := app.CreateSession(user.ID)
	require.NoError(t, err)
	assert.Len(t, session.Token, 64)

	loaded, err := app.GetSessionByToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.User.ID)

	require.NoError(t, app.DeleteSession(session.Token))
	_, err = app.GetSessionByToken(session.Token)
	assert.Error(t, err)
}

func TestExpiredSessionRejected(t *testing.T) {
	app := testApp(t)

	user, err := app.CreateUser("alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	expired := db.UserSession{
		UserID:    user.ID,
		Token:     "expired-token",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, app.DB.Create(&expired).Error)

	_, err = app.GetSessionByToken("expired-token")
	assert.Error(t, err)
}

func TestRequireAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := testApp(t)

	user, err := app.CreateUser("alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	session, err := app.CreateSession(user.ID)
	require.NoError(t, err)

	r := gin.New()
	r.Use(app.AuthMiddleware())
	r.GET("/api/ping", app.RequireAuth(), func(c *gin.Context) {
		current, ok := GetCurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user": current.Username})
	})

	// No cookie: rejected.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid session cookie: allowed.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: session.Token})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}
