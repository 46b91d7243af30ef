package strava

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Phil-Jim/strava-analytics/pkg/config"
	"github.com/Phil-Jim/strava-analytics/pkg/db"
)

// CredentialSource supplies the OAuth app credentials plus the current token
// pair, and persists a new pair after a successful refresh. Callers pick the
// variant explicitly: ProfileCredentials for a connected user account,
// StaticCredentials for the process-wide fallback pair.
type CredentialSource interface {
	Credentials() (clientID, clientSecret, accessToken, refreshToken string, err error)
	StoreTokens(accessToken, refreshToken string, expiresAt time.Time) error
}

// ProfileCredentials reads and writes the per-user StravaProfile row.
type ProfileCredentials struct {
	database *gorm.DB
	cfg      config.StravaConfig
	userID   uint
}

func NewProfileCredentials(database *gorm.DB, cfg config.StravaConfig, userID uint) *ProfileCredentials {
	return &ProfileCredentials{database: database, cfg: cfg, userID: userID}
}

func (p *ProfileCredentials) Credentials() (string, string, string, string, error) {
	var profile db.StravaProfile
	if err := p.database.Where("user_id = ?", p.userID).First(&profile).Error; err != nil {
		return "", "", "", "", fmt.Errorf("failed to load strava profile for user %d: %w", p.userID, err)
	}
	return p.cfg.ClientID, p.cfg.ClientSecret, profile.AccessToken, profile.RefreshToken, nil
}

// StoreTokens writes both tokens and the expiry in a single UPDATE so a
// refresh can never leave a half-written credential behind.
func (p *ProfileCredentials) StoreTokens(accessToken, refreshToken string, expiresAt time.Time) error {
	result := p.database.Model(&db.StravaProfile{}).
		Where("user_id = ?", p.userID).
		Updates(map[string]interface{}{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"expires_at":    expiresAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to store refreshed tokens: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no strava profile for user %d", p.userID)
	}
	return nil
}

// StaticCredentials holds a process-wide token pair from config/environment.
// Refreshed tokens are kept in memory only.
type StaticCredentials struct {
	mu           sync.Mutex
	clientID     string
	clientSecret string
	accessToken  string
	refreshToken string
}

func NewStaticCredentials(cfg config.StravaConfig) *StaticCredentials {
	return &StaticCredentials{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
	}
}

func (s *StaticCredentials) Credentials() (string, string, string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID, s.clientSecret, s.accessToken, s.refreshToken, nil
}

func (s *StaticCredentials) StoreTokens(accessToken, refreshToken string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	return nil
}
