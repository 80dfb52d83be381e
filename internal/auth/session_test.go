package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestCheckPassword(t *testing.T) {
	s := NewSessions("correct-horse", secret)

	assert.NoError(t, s.CheckPassword("correct-horse"))
	assert.ErrorIs(t, s.CheckPassword("wrong"), ErrInvalidPassword)
	assert.ErrorIs(t, s.CheckPassword(""), ErrInvalidPassword)

	empty := NewSessions("", secret)
	assert.ErrorIs(t, empty.CheckPassword(""), ErrInvalidPassword)
}

func TestIssueVerify(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions("pw-123456", secret, WithClock(func() time.Time { return now }))

	token, expires, err := s.Issue()
	require.NoError(t, err)
	assert.Equal(t, now.Add(DefaultTTL), expires)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.Authenticated)
	assert.Equal(t, now.UnixMilli(), claims.LoginTime)
}

func TestVerify_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions("pw-123456", secret, WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	token, _, err := s.Issue()
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, _, err := NewSessions("pw-123456", secret).Issue()
	require.NoError(t, err)

	other := NewSessions("pw-123456", "ffffffffffffffffffffffffffffffff")
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		Authenticated: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewSessions("pw-123456", secret).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerify_Empty(t *testing.T) {
	_, err := NewSessions("pw-123456", secret).Verify("")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLoginSetsCookie(t *testing.T) {
	s := NewSessions("pw-123456", secret, WithSecureCookie(true))

	rec := httptest.NewRecorder()
	require.NoError(t, s.Login(rec, "pw-123456"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int(DefaultTTL.Seconds()), c.MaxAge)

	rec = httptest.NewRecorder()
	assert.ErrorIs(t, s.Login(rec, "nope"), ErrInvalidPassword)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogoutClearsCookie(t *testing.T) {
	s := NewSessions("pw-123456", secret)

	rec := httptest.NewRecorder()
	s.Logout(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestRequire(t *testing.T) {
	s := NewSessions("pw-123456", secret)
	handler := s.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := ClaimsFromContext(r.Context())
		assert.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/invoices", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := s.Issue()
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/invoices", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/invoices", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token + "x"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
