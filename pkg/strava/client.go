package strava

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	apiBase       = "https://www.strava.com/api/v3"
	oauthTokenURL = "https://www.strava.com/oauth/token"

	// MaxPageSize is Strava's hard per_page limit.
	MaxPageSize = 200
)

type Client struct {
	source CredentialSource
	http   *http.Client

	baseURL  string
	tokenURL string
}

func NewClient(source CredentialSource) *Client {
	return &Client{
		source:   source,
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  apiBase,
		tokenURL: oauthTokenURL,
	}
}

// FetchAthlete returns the authenticated athlete.
func (c *Client) FetchAthlete() (*Athlete, error) {
	body, err := c.get("/athlete", nil)
	if err != nil {
		return nil, err
	}

	var athlete Athlete
	if err := json.Unmarshal(body, &athlete); err != nil {
		return nil, fmt.Errorf("failed to decode athlete: %w", err)
	}
	return &athlete, nil
}

// FetchActivitiesPage returns one page of the athlete's activities, newest
// first. perPage is capped at MaxPageSize; after/before are unix seconds,
// zero means unset.
func (c *Client) FetchActivitiesPage(page, perPage int, after, before int64) ([]RawActivity, error) {
	if perPage <= 0 || perPage > MaxPageSize {
		perPage = MaxPageSize
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	if after > 0 {
		params.Set("after", strconv.FormatInt(after, 10))
	}
	if before > 0 {
		params.Set("before", strconv.FormatInt(before, 10))
	}

	body, err := c.get("/athlete/activities", params)
	if err != nil {
		return nil, err
	}

	var activities []RawActivity
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	return activities, nil
}

// FetchActivity returns the detailed record for a single activity.
func (c *Client) FetchActivity(id int64) (*RawActivity, error) {
	body, err := c.get(fmt.Sprintf("/activities/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var activity RawActivity
	if err := json.Unmarshal(body, &activity); err != nil {
		return nil, fmt.Errorf("failed to decode activity %d: %w", id, err)
	}
	return &activity, nil
}

// RefreshTokens exchanges the refresh token for a fresh pair and persists it
// through the credential source. The stored pair is only touched after a
// successful response. Any failure is reported as ErrAuthExpired.
func (c *Client) RefreshTokens() error {
	clientID, clientSecret, _, refreshToken, err := c.source.Credentials()
	if err != nil {
		return fmt.Errorf("failed to load credentials (%v): %w", err, ErrAuthExpired)
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", clientID)
	data.Set("client_secret", clientSecret)

	resp, err := c.http.PostForm(c.tokenURL, data)
	if err != nil {
		return fmt.Errorf("token refresh request failed (%v): %w", err, ErrAuthExpired)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token refresh failed with status %d: %s: %w", resp.StatusCode, string(body), ErrAuthExpired)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode token response (%v): %w", err, ErrAuthExpired)
	}

	// Strava may omit the refresh token when it hasn't rotated.
	newRefreshToken := tokenResp.RefreshToken
	if newRefreshToken == "" {
		newRefreshToken = refreshToken
	}

	expiresAt := time.Unix(tokenResp.ExpiresAt, 0).UTC()
	if err := c.source.StoreTokens(tokenResp.AccessToken, newRefreshToken, expiresAt); err != nil {
		return fmt.Errorf("failed to persist refreshed tokens (%v): %w", err, ErrAuthExpired)
	}

	return nil
}

// get performs an authenticated GET. A 401 triggers exactly one token refresh
// and one retry of the original request; any other non-2xx status comes back
// as *APIError.
func (c *Client) get(path string, params url.Values) ([]byte, error) {
	resp, err := c.doRequest(path, params)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		log.Info("Access token rejected, refreshing...")
		if err := c.RefreshTokens(); err != nil {
			return nil, err
		}

		resp, err = c.doRequest(path, params)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func (c *Client) doRequest(path string, params url.Values) (*http.Response, error) {
	_, _, accessToken, _, err := c.source.Credentials()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	return resp, nil
}
