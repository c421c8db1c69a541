package civicapi

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenInspector(t *testing.T) {
	valid := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "5",
		"email": "admin@civicconnect.gov.in",
		"role":  "admin",
		"exp":   apiNow.Add(time.Hour).Unix(),
	})
	expired := signToken(t, testSecret, jwt.MapClaims{"sub": "5", "exp": apiNow.Add(-time.Minute).Unix()})
	noExp := signToken(t, testSecret, jwt.MapClaims{"sub": "5"})
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "5", "exp": apiNow.Add(time.Hour).Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	verifying := NewTokenInspector(testSecret)
	verifying.now = func() time.Time { return apiNow }

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "valid", raw: valid},
		{name: "expired", raw: expired, wantErr: true},
		{name: "missing exp", raw: noExp, wantErr: true},
		{name: "alg none", raw: none, wantErr: true},
		{name: "garbage", raw: "a.b.c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := verifying.Inspect(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTokenRejected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "5", claims.Subject)
			assert.Equal(t, "admin", claims.Role)
			assert.True(t, claims.Verified)
			assert.True(t, claims.ExpiresAt.Equal(apiNow.Add(time.Hour)))
		})
	}
}

func TestTokenInspector_Unverified(t *testing.T) {
	raw := signToken(t, "unknown", jwt.MapClaims{"sub": "8", "exp": apiNow.Add(-time.Hour).Unix()})

	claims, err := NewTokenInspector("").Inspect(raw)
	require.NoError(t, err)
	assert.Equal(t, "8", claims.Subject)
	assert.False(t, claims.Verified)

	_, err = NewTokenInspector("").Inspect("not-a-token")
	require.Error(t, err)
}
