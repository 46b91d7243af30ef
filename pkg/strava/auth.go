package strava

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Phil-Jim/strava-analytics/pkg/config"
)

const authorizeURL = "https://www.strava.com/oauth/authorize"

// AuthorizationURL builds the Strava consent redirect for the given CSRF
// state token.
func AuthorizationURL(cfg config.StravaConfig, state string) string {
	params := url.Values{}
	params.Set("client_id", cfg.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", cfg.RedirectURI)
	params.Set("approval_prompt", "force")
	params.Set("scope", "read,activity:read_all")
	params.Set("state", state)

	return authorizeURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for the initial token pair.
func ExchangeCode(cfg config.StravaConfig, code string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", cfg.ClientID)
	data.Set("client_secret", cfg.ClientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")

	resp, err := http.PostForm(oauthTokenURL, data)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResp, nil
}
