// Package token mints and validates the capability tokens that bind a
// caller to one method, with its bound params, on one point of one
// tenant; a geo token may be used any number of times until it
// expires. Geo
// tokens are signed with the tenant's HMAC key and carry the method
// id and params inside the signed message, so a token minted for one
// method or one set of params cannot be replayed against another.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"time"
)

// Method identifies which of the three geo operations a token
// authorizes. Encoding it inside the signed message is what prevents
// cross-method token reuse (spec's "closed sum" dispatch).
type Method int

const (
	UpdatePoint Method = 1
	NearestPoints Method = 2
	PointsCoords Method = 3
)

// GeoTokenTTL is the lifetime of a minted geo token.
const GeoTokenTTL = 3600 * time.Second

var (
	// ErrAuthFailed is returned on HMAC mismatch or app-key mismatch.
	ErrAuthFailed = errors.New("token: auth failed")
	// ErrTokenExpired is returned when exp_time <= now.
	ErrTokenExpired = errors.New("token: expired")
)

// GeoClaims is the message a geo token signs over: the tenant, the
// point it's scoped to, the method it authorizes, and that method's
// parameters.
type GeoClaims struct {
	App      string
	Point    string
	Method   Method
	Params   map[string]string
	ExpireAt time.Time
}

// GeoToken is the pair (msg, msg_hmac) handed to callers.
type GeoToken struct {
	Claims GeoClaims
	MAC    []byte
}

// MintGeoToken signs claims with hmacKey, stamping exp_time at
// now+GeoTokenTTL.
func MintGeoToken(hmacKey []byte, now time.Time, app, point string, method Method, params map[string]string) GeoToken {
	claims := GeoClaims{
		App:      app,
		Point:    point,
		Method:   method,
		Params:   params,
		ExpireAt: now.Add(GeoTokenTTL),
	}
	return GeoToken{Claims: claims, MAC: sign(hmacKey, claims)}
}

// ValidateGeoToken recomputes the HMAC over the token's own claims
// and constant-time compares it against the carried MAC, then checks
// expiry. It does NOT check hasPoint(app, point) — that's an
// AppStorage lookup the caller performs separately, since this
// package has no AppStorage dependency.
func ValidateGeoToken(hmacKey []byte, now time.Time, tok GeoToken) (GeoClaims, error) {
	want := sign(hmacKey, tok.Claims)
	if subtle.ConstantTimeCompare(want, tok.MAC) != 1 {
		return GeoClaims{}, ErrAuthFailed
	}
	if !tok.Claims.ExpireAt.After(now) {
		return GeoClaims{}, ErrTokenExpired
	}
	return tok.Claims, nil
}

func sign(hmacKey []byte, claims GeoClaims) []byte {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(encodeGeoClaims(claims))
	return mac.Sum(nil)
}

// AppToken is the management-surface credential: just the app id
// paired with the tenant's stored auth key. Validation is a direct
// string match, not HMAC — the auth key itself is the secret.
type AppToken struct {
	App     string
	AuthKey string
}

// MintAppToken packages an app id with its auth key.
func MintAppToken(app, authKey string) AppToken {
	return AppToken{App: app, AuthKey: authKey}
}

// ValidateAppToken checks tok.AuthKey against the tenant's stored
// auth key in constant time.
func ValidateAppToken(storedAuthKey string, tok AppToken) error {
	if subtle.ConstantTimeCompare([]byte(storedAuthKey), []byte(tok.AuthKey)) != 1 {
		return ErrAuthFailed
	}
	return nil
}
