package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token roles. Operators are humans at the dashboard; drones are the
// scanning fleet pushing telemetry and barcode reads.
const (
	RoleOperator = "operator"
	RoleDrone    = "drone"
)

// Claims is the JWT payload.
type Claims struct {
	UserID  int64  `json:"user_id,omitempty"`
	DroneID int64  `json:"drone_id,omitempty"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateUserToken signs a JWT for an operator account.
func GenerateUserToken(userID int64, secret string, ttl time.Duration) (string, error) {
	return generate(&Claims{UserID: userID, Role: RoleOperator}, secret, ttl)
}

// GenerateDroneToken signs a JWT for a drone.
func GenerateDroneToken(droneID int64, secret string, ttl time.Duration) (string, error) {
	return generate(&Claims{DroneID: droneID, Role: RoleDrone}, secret, ttl)
}

func generate(claims *Claims, secret string, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT string and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
