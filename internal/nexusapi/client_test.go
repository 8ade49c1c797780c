package nexusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ValidateAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/validate.json", r.URL.Path)
		assert.Equal(t, "testkey", r.Header.Get("apikey"))
		_ = json.NewEncoder(w).Encode(ValidateResponse{Name: "Someone", IsPremium: true})
	}))
	defer server.Close()

	c := NewClient(nil, "testkey", "skyrimspecialedition")
	c.baseURL = server.URL

	v, err := c.ValidateAPIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Someone", v.Name)
	assert.True(t, v.IsPremium)
}

func TestClient_ValidateAPIKey_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(nil, "badkey", "skyrimspecialedition")
	c.baseURL = server.URL

	_, err := c.ValidateAPIKey(context.Background())
	assert.Error(t, err)
}

func TestClient_GetDownloadLinks_PremiumRequiredIsEmptyNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(nil, "testkey", "skyrimspecialedition")
	c.baseURL = server.URL

	links, err := c.GetDownloadLinks(context.Background(), 123, 456)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestClient_GetDownloadLinks_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games/skyrimspecialedition/mods/123/files/456/download_link.json", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]DownloadLink{{URI: "https://cdn.example/file.7z", Name: "CDN1"}})
	}))
	defer server.Close()

	c := NewClient(nil, "testkey", "skyrimspecialedition")
	c.baseURL = server.URL

	links, err := c.GetDownloadLinks(context.Background(), 123, 456)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://cdn.example/file.7z", links[0].URI)
}

func TestClient_RateLimiting_EnforcesFloor(t *testing.T) {
	var times []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		times = append(times, time.Now())
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(nil, "testkey", "skyrimspecialedition")
	c.baseURL = server.URL

	_, _ = c.GetDownloadLinks(context.Background(), 1, 1)
	_, _ = c.GetDownloadLinks(context.Background(), 1, 2)

	require.Len(t, times, 2)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), minRequestInterval-5*time.Millisecond)
}
