// Package auth guards the admin surface with a password login and a signed
// session cookie.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the session cookie set after a successful login.
const CookieName = "admin_session"

// DefaultTTL is how long a session stays valid.
const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrNoSession       = errors.New("no admin session")
	ErrInvalidSession  = errors.New("invalid admin session")
)

// Claims is the session token payload.
type Claims struct {
	Authenticated bool  `json:"isAuthenticated"`
	LoginTime     int64 `json:"loginTime"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies admin sessions.
type Sessions struct {
	password []byte
	secret   []byte
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// Option configures Sessions.
type Option func(*Sessions)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSecureCookie marks issued cookies Secure.
func WithSecureCookie(secure bool) Option {
	return func(s *Sessions) {
		s.secure = secure
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessions creates Sessions for the admin password and HS256 secret.
func NewSessions(password, secret string, opts ...Option) *Sessions {
	s := &Sessions{
		password: []byte(password),
		secret:   []byte(secret),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckPassword compares candidate with the admin password in constant time.
func (s *Sessions) CheckPassword(candidate string) error {
	if len(s.password) == 0 || subtle.ConstantTimeCompare([]byte(candidate), s.password) != 1 {
		return ErrInvalidPassword
	}
	return nil
}

// Issue signs a new session token.
func (s *Sessions) Issue() (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Authenticated: true,
		LoginTime:     now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// Verify parses token and checks its signature and expiry.
func (s *Sessions) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !claims.Authenticated {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// Login checks password and, on success, sets the session cookie on w.
func (s *Sessions) Login(w http.ResponseWriter, password string) error {
	if err := s.CheckPassword(password); err != nil {
		return err
	}

	token, expires, err := s.Issue()
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout clears the session cookie.
func (s *Sessions) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest verifies the session cookie on r.
func (s *Sessions) FromRequest(r *http.Request) (*Claims, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return s.Verify(c.Value)
}

type claimsKey struct{}

// Require rejects requests without a valid session with 401.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.FromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// ClaimsFromContext returns the session claims stored by Require.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
