package telemetry

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// subscriberClaims is the short-lived claim a debug-channel subscriber
// presents to open a websocket stream, grounded on the wider Asgard control
// plane's golang-jwt/jwt/v5 usage for API auth (see DESIGN.md).
type subscriberClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// IssueSubscriberToken signs a token authorizing subject to read the debug
// channel for ttl.
func IssueSubscriberToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	claims := subscriberClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Scope: "rescue.telemetry.read",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("telemetry: sign subscriber token: %w", err)
	}
	return signed, nil
}

// VerifySubscriberToken validates tokenString and returns the subscriber
// identity it authorizes.
func VerifySubscriberToken(secret []byte, tokenString string) (string, error) {
	var claims subscriberClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("telemetry: unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("telemetry: verify subscriber token: %w", err)
	}
	if !token.Valid || claims.Scope != "rescue.telemetry.read" {
		return "", fmt.Errorf("telemetry: token missing read scope")
	}
	return claims.Subject, nil
}
