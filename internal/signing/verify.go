package signing

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verify checks an ES256 compact JWS against pub and returns its claims.
// Registered time claims are not enforced; callers check them as needed.
func Verify(token string, pub *ecdsa.PublicKey) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify jws: %w", err)
	}
	return claims, nil
}
