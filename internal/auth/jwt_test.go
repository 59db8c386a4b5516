package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nliest/converse-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing"

func testUser() models.User {
	return models.User{
		ID:       "user-123",
		Username: "alice",
		Email:    "a@x.com",
	}
}

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokenService(testSecret)

	token, err := tokens.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), exp.Time, time.Minute)
}

func TestVerifyInvalidTokens(t *testing.T) {
	tokens := NewTokenService(testSecret)

	otherSecret, err := NewTokenService("a-different-secret").Issue(testUser())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
		{name: "malformed JWT", token: "header.payload.signature"},
		{name: "wrong secret", token: otherSecret},
		{name: "expired token", token: expiredToken(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

// expiredToken signs a token with the right secret but an expiry in the past.
func expiredToken(t *testing.T) string {
	t.Helper()
	claims := &Claims{
		UserID:   "user-123",
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// stubLookup serves a fixed set of users by ID.
type stubLookup map[string]models.User

func (s stubLookup) GetUserByID(id string) (models.User, error) {
	user, ok := s[id]
	if !ok {
		return models.User{}, errors.New("user not found")
	}
	return user, nil
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokenService(testSecret)
	users := stubLookup{"user-123": testUser()}

	valid, err := tokens.Issue(testUser())
	require.NoError(t, err)

	staleUser, err := tokens.Issue(models.User{ID: "deleted-user", Username: "ghost"})
	require.NoError(t, err)

	var gotUser models.User
	handler := tokens.Middleware(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		gotUser = user
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "no header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "missing bearer prefix", authHeader: valid, wantStatus: http.StatusUnauthorized},
		{name: "invalid token", authHeader: "Bearer garbage", wantStatus: http.StatusUnauthorized},
		{name: "expired token", authHeader: "Bearer " + expiredToken(t), wantStatus: http.StatusUnauthorized},
		{name: "token for deleted user", authHeader: "Bearer " + staleUser, wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + valid, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = models.User{}
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "user-123", gotUser.ID)
			} else {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestBearerTokenQueryFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/ws?token=abc123", nil)
	assert.Equal(t, "abc123", BearerToken(req))

	req = httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", BearerToken(req))
}
