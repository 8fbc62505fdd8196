package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pizza-hub/api/internal/platform/requestctx"
)

const defaultSessionIssuer = "pizza-hub"

var (
	// ErrSessionExpired signals that the presented session token has expired.
	ErrSessionExpired = errors.New("auth: session token expired")
	// ErrSessionInvalid signals that the presented session token could not be verified.
	ErrSessionInvalid = errors.New("auth: session token invalid")
)

// SessionClaims carries the JWT payload issued for authenticated customers.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies signed session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// SessionOption customises SessionManager construction.
type SessionOption func(*SessionManager)

// WithSessionIssuer overrides the issuer claim placed on new tokens.
func WithSessionIssuer(issuer string) SessionOption {
	return func(m *SessionManager) {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			m.issuer = issuer
		}
	}
}

// WithSessionClock injects a custom clock, primarily for tests.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewSessionManager constructs a SessionManager with the shared signing secret.
func NewSessionManager(secret string, ttl time.Duration, opts ...SessionOption) (*SessionManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: session secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session ttl must be positive")
	}

	m := &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: defaultSessionIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Issue creates a signed session token for the supplied user.
func (m *SessionManager) Issue(userID, email string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("auth: user id is required")
	}

	now := m.now().UTC()
	claims := SessionClaims{
		Email: strings.TrimSpace(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify parses and validates a session token, returning the embedded identity.
func (m *SessionManager) Verify(tokenStr string) (requestctx.Identity, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSessionInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return requestctx.Identity{}, ErrSessionExpired
		}
		return requestctx.Identity{}, ErrSessionInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return requestctx.Identity{}, ErrSessionInvalid
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return requestctx.Identity{}, ErrSessionInvalid
	}

	return requestctx.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// RequireSession verifies the Authorization bearer token and stores the identity on the request context.
func (m *SessionManager) RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "authentication_required", "authorization header missing or invalid")
				return
			}
			if m == nil {
				respondAuthError(w, http.StatusUnauthorized, "authentication_required", "session verification unavailable")
				return
			}

			identity, err := m.Verify(tokenStr)
			if err != nil {
				code := "invalid_token"
				message := "session token invalid"
				if errors.Is(err, ErrSessionExpired) {
					code = "token_expired"
					message = "session token expired"
				}
				respondAuthError(w, http.StatusUnauthorized, code, message)
				return
			}

			ctx := requestctx.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   code,
		"message": message,
		"status":  status,
	})
}
