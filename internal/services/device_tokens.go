package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DeviceTokenIssuer mints and verifies device capability tokens. A bare
// deviceId is guessable, so mutating calls can be made to require proof of
// possession: a token handed out when the device first registers. Enforcement
// is opt-in via config; issuance always happens so clients can store the
// token before the gate is ever switched on.
type DeviceTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewDeviceTokenIssuer(secret string, ttl time.Duration) *DeviceTokenIssuer {
	return &DeviceTokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (i *DeviceTokenIssuer) Mint(deviceID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": deviceID,
		"jti": uuid.New().String(),
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign device token: %w", err)
	}
	return signed, nil
}

// DeviceGate decides whether mutating calls must present a device token.
// Issuance is unconditional; enforcement follows the config flag so existing
// clients keep working until the gate is switched on.
type DeviceGate struct {
	issuer  *DeviceTokenIssuer
	require bool
}

func NewDeviceGate(issuer *DeviceTokenIssuer, require bool) *DeviceGate {
	return &DeviceGate{issuer: issuer, require: require}
}

func (g *DeviceGate) Mint(deviceID string) (string, error) {
	if g == nil || g.issuer == nil {
		return "", nil
	}
	return g.issuer.Mint(deviceID)
}

func (g *DeviceGate) Check(deviceID, token string) error {
	if g == nil || g.issuer == nil || !g.require {
		return nil
	}
	if token == "" {
		return ErrInvalidDeviceToken
	}
	return g.issuer.Verify(token, deviceID)
}

// Verify checks the token signature and that it was minted for deviceID.
func (i *DeviceTokenIssuer) Verify(tokenString, deviceID string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidDeviceToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidDeviceToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub != deviceID {
		return ErrInvalidDeviceToken
	}
	return nil
}
