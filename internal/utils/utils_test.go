package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "user", "TRAVELER", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken("s3cret", tok.Token)

	require.NoError(t, err)
	assert.Equal(t, Claims{Username: "user", Role: "TRAVELER"}, claims)
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, err := NewAccessToken("s3cret", "user", "TRAVELER", 15)
	require.NoError(t, err)

	expired, err := NewAccessToken("s3cret", "user", "TRAVELER", -5)
	require.NoError(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user",
		"role": "ADMIN",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := map[string]struct {
		secret string
		raw    string
	}{
		"wrong secret":  {"other", good.Token},
		"expired":       {"s3cret", expired.Token},
		"missing role":  {"s3cret", noRole},
		"missing exp":   {"s3cret", noExp},
		"not a jwt":     {"s3cret", "garbage"},
		"unsigned none": {"s3cret", "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ1c2VyIn0."},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(tc.secret, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("user123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "user123"))
	assert.False(t, VerifyPassword(hash, "user124"))
	assert.False(t, VerifyPassword("not-a-hash", "user123"))

	_, err = HashPassword("12345", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err = HashPassword("user123", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
