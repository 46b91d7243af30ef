package strava

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phil-Jim/strava-analytics/pkg/config"
)

func testClient(apiHandler, tokenHandler http.HandlerFunc) (*Client, *StaticCredentials, func()) {
	apiSrv := httptest.NewServer(apiHandler)
	tokenSrv := httptest.NewServer(tokenHandler)

	source := NewStaticCredentials(config.StravaConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
	})

	client := NewClient(source)
	client.baseURL = apiSrv.URL
	client.tokenURL = tokenSrv.URL

	return client, source, func() {
		apiSrv.Close()
		tokenSrv.Close()
	}
}

func TestFetchAthlete(t *testing.T) {
	client, _, cleanup := testClient(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/athlete", r.URL.Path)
			assert.Equal(t, "Bearer old-access", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"id": 42, "username": "runner", "firstname": "Jo", "lastname": "Smith"}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("token endpoint should not be called")
		},
	)
	defer cleanup()

	athlete, err := client.FetchAthlete()
	require.NoError(t, err)
	assert.Equal(t, int64(42), athlete.ID)
	assert.Equal(t, "runner", athlete.Username)
}

func TestUnauthorizedTriggersSingleRefreshAndRetry(t *testing.T) {
	apiCalls := 0
	tokenCalls := 0

	client, source, cleanup := testClient(
		func(w http.ResponseWriter, r *http.Request) {
			apiCalls++
			if r.Header.Get("Authorization") != "Bearer new-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `[]`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			tokenCalls++
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
			assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))
			fmt.Fprint(w, `{"access_token": "new-access", "refresh_token": "new-refresh", "expires_at": 1893456000}`)
		},
	)
	defer cleanup()

	activities, err := client.FetchActivitiesPage(1, 200, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, activities)
	assert.Equal(t, 2, apiCalls, "original request plus exactly one retry")
	assert.Equal(t, 1, tokenCalls)

	_, _, access, refresh, err := source.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "new-access", access)
	assert.Equal(t, "new-refresh", refresh)
}

func TestRefreshFailureReturnsAuthExpired(t *testing.T) {
	client, source, cleanup := testClient(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message": "invalid refresh token"}`)
		},
	)
	defer cleanup()

	_, err := client.FetchActivitiesPage(1, 200, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthExpired))

	// A failed refresh must not disturb the stored pair.
	_, _, access, refresh, err := source.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "old-access", access)
	assert.Equal(t, "old-refresh", refresh)
}

func TestNonOKResponseBecomesAPIError(t *testing.T) {
	client, _, cleanup := testClient(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"message": "Rate Limit Exceeded"}`)
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("token endpoint should not be called for non-401 responses")
		},
	)
	defer cleanup()

	_, err := client.FetchActivitiesPage(1, 200, 0, 0)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Contains(t, apiErr.Body, "Rate Limit Exceeded")
}

func TestFetchActivitiesPageParams(t *testing.T) {
	tests := []struct {
		name            string
		page, perPage   int
		after, before   int64
		expectedPerPage string
		expectedAfter   string
		expectedBefore  string
	}{
		{
			name: "per_page capped at the provider maximum",
			page: 3, perPage: 500,
			expectedPerPage: "200",
		},
		{
			name: "zero per_page defaults to the maximum",
			page: 1, perPage: 0,
			expectedPerPage: "200",
		},
		{
			name: "after and before passed through as unix seconds",
			page: 1, perPage: 50, after: 1700000000, before: 1710000000,
			expectedPerPage: "50",
			expectedAfter:   "1700000000",
			expectedBefore:  "1710000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, cleanup := testClient(
				func(w http.ResponseWriter, r *http.Request) {
					q := r.URL.Query()
					assert.Equal(t, tt.expectedPerPage, q.Get("per_page"))
					assert.Equal(t, tt.expectedAfter, q.Get("after"))
					assert.Equal(t, tt.expectedBefore, q.Get("before"))
					fmt.Fprint(w, `[]`)
				},
				func(w http.ResponseWriter, r *http.Request) {},
			)
			defer cleanup()

			_, err := client.FetchActivitiesPage(tt.page, tt.perPage, tt.after, tt.before)
			require.NoError(t, err)
		})
	}
}

func TestAuthorizationURL(t *testing.T) {
	cfg := config.StravaConfig{
		ClientID:    "1234",
		RedirectURI: "http://localhost:8081/auth/strava/callback",
	}

	u := AuthorizationURL(cfg, "state-token")
	assert.Contains(t, u, "client_id=1234")
	assert.Contains(t, u, "scope=read%2Cactivity%3Aread_all")
	assert.Contains(t, u, "state=state-token")
	assert.Contains(t, u, "approval_prompt=force")
	assert.Contains(t, u, "response_type=code")
}
