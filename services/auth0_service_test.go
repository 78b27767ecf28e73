package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kendall-kelly/beauty-salon-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth0Service_GetUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/userinfo", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("bad token"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Auth0UserInfo{Sub: "auth0|1", Email: "maria@example.com", Name: "Maria Ivanova"})
	}))
	defer server.Close()

	svc := NewAuth0Service(&config.Config{Auth0Domain: server.URL})

	info, err := svc.GetUserInfo(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "auth0|1", info.Sub)
	assert.Equal(t, "maria@example.com", info.Email)
	assert.Equal(t, "Maria Ivanova", info.Name)

	_, err = svc.GetUserInfo(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
