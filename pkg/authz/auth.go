package authz

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Phil-Jim/strava-analytics/pkg/db"
)

const sessionCookie = "session_token"

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type App struct {
	DB *gorm.DB
}

func (a *App) RegisterRoutes(r *gin.Engine) {
	r.GET("/login", a.HandleLoginPage)
	r.POST("/login", a.HandleLogin)
	r.GET("/register", a.HandleRegisterPage)
	r.POST("/register", a.HandleRegister)
	r.GET("/logout", a.HandleLogout)
}

func (a *App) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func (a *App) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (a *App) GenerateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CreateUser registers a new account, rejecting duplicate usernames/emails.
func (a *App) CreateUser(username, email, password string) (*db.User, error) {
	var count int64
	a.DB.Model(&db.User{}).Where("username = ?", username).Count(&count)
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	a.DB.Model(&db.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := a.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := db.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := a.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *App) AuthenticateUser(username, password string) (*db.User, error) {
	var user db.User
	err := a.DB.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !a.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func (a *App) CreateSession(userID uint) (*db.UserSession, error) {
	token, err := a.GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := db.UserSession{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	if err := a.DB.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (a *App) GetSessionByToken(token string) (*db.UserSession, error) {
	var session db.UserSession
	err := a.DB.Preload("User").
		Where("token = ? AND expires_at > ?", token, time.Now()).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (a *App) DeleteSession(token string) error {
	return a.DB.Where("token = ?", token).Delete(&db.UserSession{}).Error
}

func (a *App) CleanupExpiredSessions() error {
	return a.DB.Where("expires_at < ?", time.Now()).Delete(&db.UserSession{}).Error
}

// Middleware

// AuthMiddleware resolves the session cookie into the current user, if any.
func (a *App) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken, err := c.Cookie(sessionCookie)
		if err != nil {
			c.Next()
			return
		}

		session, err := a.GetSessionByToken(sessionToken)
		if err != nil {
			c.Next()
			return
		}

		c.Set("authenticated_user", &session.User)
		c.Next()
	}
}

// RequireAuth rejects unauthenticated API requests with a JSON 401.
func (a *App) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetCurrentUser(c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAuthPage sends unauthenticated page requests to the login form.
func (a *App) RequireAuthPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetCurrentUser(c); !ok {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetCurrentUser(c *gin.Context) (*db.User, bool) {
	user, exists := c.Get("authenticated_user")
	if !exists {
		return nil, false
	}
	if u, ok := user.(*db.User); ok {
		return u, true
	}
	return nil, false
}

// Route handlers

func (a *App) HandleLoginPage(c *gin.Context) {
	if _, ok := GetCurrentUser(c); ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (a *App) HandleLogin(c *gin.Context) {
	type LoginRequest struct {
		Username string `form:"username" binding:"required"`
		Password string `form:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "login.html", gin.H{"Error": "Missing username or password"})
		return
	}

	user, err := a.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{"Error": "Invalid username or password"})
		return
	}

	if err := a.startSession(c, user.ID); err != nil {
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"Error": "Failed to create session"})
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) HandleRegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

func (a *App) HandleRegister(c *gin.Context) {
	type RegisterRequest struct {
		Username        string `form:"username" binding:"required"`
		Email           string `form:"email" binding:"required"`
		Password        string `form:"password" binding:"required"`
		PasswordConfirm string `form:"password_confirm" binding:"required"`
	}

	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{"Error": "All fields are required"})
		return
	}

	if req.Password != req.PasswordConfirm {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{"Error": "Passwords do not match"})
		return
	}

	user, err := a.CreateUser(req.Username, req.Email, req.Password)
	if err != nil {
		msg := "Failed to create account"
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
			msg = err.Error()
		}
		c.HTML(http.StatusBadRequest, "register.html", gin.H{"Error": msg})
		return
	}

	if err := a.startSession(c, user.ID); err != nil {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	log.Infof("Registered new user %s", user.Username)

	// New accounts go straight to the Strava connect flow.
	c.Redirect(http.StatusSeeOther, "/auth/strava")
}

func (a *App) HandleLogout(c *gin.Context) {
	sessionToken, err := c.Cookie(sessionCookie)
	if err == nil && sessionToken != "" {
		if err := a.DeleteSession(sessionToken); err != nil {
			log.Errorf("Failed to delete session: %v", err)
		}
	}

	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (a *App) startSession(c *gin.Context, userID uint) error {
	session, err := a.CreateSession(userID)
	if err != nil {
		return err
	}
	c.SetCookie(sessionCookie, session.Token, 24*60*60, "/", "", false, true)
	return nil
}
