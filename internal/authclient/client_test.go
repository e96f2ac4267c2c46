package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/plotsearch/internal/domain"
)

func authServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestValidateToken_OK(t *testing.T) {
	client := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/validate", r.URL.Path)
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		var body validateTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok", body.Token)

		_ = json.NewEncoder(w).Encode(Claims{UserID: "alice", Email: "alice@example.com", Role: "user"})
	})

	claims, err := client.ValidateToken(WithRequestID(context.Background(), "req-1"), "tok")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestValidateToken_Rejected(t *testing.T) {
	client := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ValidateToken(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestValidateToken_EmptyToken(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	_, err := client.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestValidateToken_MissingUserID(t *testing.T) {
	client := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"x@example.com"}`))
	})

	_, err := client.ValidateToken(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestValidateToken_ServiceFailure(t *testing.T) {
	client := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ValidateToken(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, domain.IsInfrastructure(err))
}

func TestValidateToken_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).ValidateToken(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, domain.IsInfrastructure(err))
}
