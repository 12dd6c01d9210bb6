package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "freelancehub_test_jwt_secret_key_0123456789"

func TestSignAndParseJWT(t *testing.T) {
	uid := uuid.NewString()

	tok, err := SignJWT(testSecret, uid, "client", 60)
	require.NoError(t, err)

	claims, err := ParseJWT(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UserID)
	assert.Equal(t, "client", claims.Role)
	assert.NotEmpty(t, claims.ID)

	got, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, uid, got.String())
}

func TestSignJWTUsesFreshTokenIDs(t *testing.T) {
	uid := uuid.NewString()
	a, err := SignJWT(testSecret, uid, "client", 60)
	require.NoError(t, err)
	b, err := SignJWT(testSecret, uid, "client", 60)
	require.NoError(t, err)

	ca, err := ParseJWT(testSecret, a)
	require.NoError(t, err)
	cb, err := ParseJWT(testSecret, b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestParseJWTRejects(t *testing.T) {
	uid := uuid.NewString()
	valid, err := SignJWT(testSecret, uid, "freelancer", 60)
	require.NoError(t, err)

	expired, err := SignJWT(testSecret, uid, "freelancer", -5)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    jwtIssuer,
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noneTok, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    "someone-else",
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	foreignTok, err := foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)

	badUser := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    jwtIssuer,
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	badUserTok, err := badUser.SignedString([]byte(testSecret))
	require.NoError(t, err)

	cases := map[string]struct {
		secret string
		token  string
	}{
		"empty":        {testSecret, ""},
		"garbage":      {testSecret, "not-a-jwt"},
		"wrong secret": {"another_secret_that_is_long_enough_000", valid},
		"expired":      {testSecret, expired},
		"alg none":     {testSecret, noneTok},
		"wrong issuer": {testSecret, foreignTok},
		"non uuid uid": {testSecret, badUserTok},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJWT(tc.secret, tc.token)
			assert.Error(t, err)
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", hash)
	assert.True(t, CheckPassword(hash, "Secret123"))
	assert.False(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword("not-a-hash", "Secret123"))
}
