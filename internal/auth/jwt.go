package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nliest/converse-be/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrInvalidToken covers malformed, badly signed and expired tokens alike.
// The distinction is never surfaced to clients.
var ErrInvalidToken = errors.New("invalid token")

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// Claims defines the JWT claims structure.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type contextKey string

// userContextKey is the context key for the authenticated user.
const userContextKey = contextKey("currentUser")

// UserLookup resolves a token's subject to a stored user.
type UserLookup interface {
	GetUserByID(id string) (models.User, error)
}

// TokenService issues and verifies signed identity tokens. The signing
// secret is process-wide state, loaded once at startup.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService around the given signing secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue creates a new JWT for a given user, expiring in seven days.
func (t *TokenService) Issue(user models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses and validates a JWT string.
func (t *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware creates a middleware for protecting routes. It extracts the
// bearer token, verifies it, resolves the user and attaches it to the
// request context. All failure causes collapse into a 401.
func (t *TokenService) Middleware(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := BearerToken(r)
			if tokenStr == "" {
				unauthorized(w, "Authentication required. No token provided.")
				return
			}

			claims, err := t.Verify(tokenStr)
			if err != nil {
				unauthorized(w, "Invalid or expired token.")
				return
			}

			// A token can outlive its user.
			user, err := users.GetUserByID(claims.UserID)
			if err != nil {
				log.Warn().Str("user_id", claims.UserID).Msg("Token references unknown user")
				unauthorized(w, "Invalid token. User not found.")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header, falling
// back to the "token" query parameter for websocket clients that cannot
// set headers.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// UserFromContext returns the authenticated user attached by Middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
