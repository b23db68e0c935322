package tokens

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("test-jwt-secret")
	exp := time.Now().Add(15 * time.Minute).UTC()

	tok, err := CreateAccessToken(secret, "admin", "42", exp)
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
	assert.NotEmpty(t, claims.ID)
}

func TestAccessToken_Rejects(t *testing.T) {
	t.Parallel()

	secret := []byte("test-jwt-secret")

	expired, err := CreateAccessToken(secret, "user", "1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(expired, secret)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	good, err := CreateAccessToken(secret, "user", "1", time.Now().Add(time.Minute))
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(good, []byte("other-secret"))
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{Role: "admin"})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(raw, secret)
	assert.Error(t, err)

	_, err = AccessClaimsFromToken("garbage", secret)
	assert.Error(t, err)
}

func TestCookies(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour)
	c := CreateCookie(AccessCookie, "v", "/", exp)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	d := DeleteCookie(AccessCookie, "/")
	assert.Equal(t, -1, d.MaxAge)
	assert.Empty(t, d.Value)
}
