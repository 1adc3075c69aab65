package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintAndValidateGeoTokenRoundTrip(t *testing.T) {
	key := []byte("tenant-secret")
	now := time.Unix(1000, 0)

	tok := MintGeoToken(key, now, "T1", "P0", NearestPoints, map[string]string{"subject": "S0"})

	claims, err := ValidateGeoToken(key, now.Add(time.Minute), tok)
	require.NoError(t, err)
	require.Equal(t, "T1", claims.App)
	require.Equal(t, "P0", claims.Point)
	require.Equal(t, NearestPoints, claims.Method)
	require.Equal(t, "S0", claims.Params["subject"])
}

func TestValidateGeoTokenExpired(t *testing.T) {
	key := []byte("tenant-secret")
	now := time.Unix(1000, 0)

	tok := MintGeoToken(key, now, "T1", "P0", UpdatePoint, nil)

	_, err := ValidateGeoToken(key, now.Add(GeoTokenTTL+time.Second), tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateGeoTokenExpiresAtBoundary(t *testing.T) {
	key := []byte("tenant-secret")
	now := time.Unix(1000, 0)
	tok := MintGeoToken(key, now, "T1", "P0", UpdatePoint, nil)

	// exp_time == now must be rejected (exp_time > now required).
	_, err := ValidateGeoToken(key, now.Add(GeoTokenTTL), tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateGeoTokenWrongKeyFails(t *testing.T) {
	now := time.Unix(1000, 0)
	tok := MintGeoToken([]byte("correct-key"), now, "T1", "P0", UpdatePoint, nil)

	_, err := ValidateGeoToken([]byte("wrong-key"), now, tok)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestGeoTokenBindsMethodAndParams(t *testing.T) {
	key := []byte("tenant-secret")
	now := time.Unix(1000, 0)

	tokNearest := MintGeoToken(key, now, "T1", "P0", NearestPoints, map[string]string{"subject": "S1"})

	// Tampering with claims after minting (as a dispatcher expecting a
	// different subject would attempt) invalidates the MAC.
	tampered := tokNearest
	tampered.Claims.Params = map[string]string{"subject": "S2"}

	_, err := ValidateGeoToken(key, now, tampered)
	require.ErrorIs(t, err, ErrAuthFailed)

	// Re-pointing the same signed claims at a different method also
	// invalidates the MAC — no cross-method replay.
	tampered = tokNearest
	tampered.Claims.Method = UpdatePoint
	_, err = ValidateGeoToken(key, now, tampered)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestValidateAppToken(t *testing.T) {
	require.NoError(t, ValidateAppToken("secret", MintAppToken("T1", "secret")))
	require.ErrorIs(t, ValidateAppToken("secret", MintAppToken("T1", "wrong")), ErrAuthFailed)
}

func TestEncodeGeoClaimsDeterministicAcrossParamOrder(t *testing.T) {
	now := time.Unix(1000, 0)
	c1 := GeoClaims{App: "T1", Point: "P0", Method: NearestPoints, Params: map[string]string{"a": "1", "b": "2"}, ExpireAt: now}
	c2 := GeoClaims{App: "T1", Point: "P0", Method: NearestPoints, Params: map[string]string{"b": "2", "a": "1"}, ExpireAt: now}
	require.Equal(t, encodeGeoClaims(c1), encodeGeoClaims(c2))
}
