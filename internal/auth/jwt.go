package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the claims in a widget session token
type Claims struct {
	WidgetID string `json:"widget_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// jwtSecret defaults to an ephemeral per-process value so unsigned dev
// setups still work; SetSecret replaces it at startup when JWT_SECRET is
// configured.
var jwtSecret = []byte(uuid.NewString())

// SetSecret installs the signing secret. Call once at startup, before any
// token is issued.
func SetSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

// GenerateWidgetToken issues a token for one assistant widget instance.
func GenerateWidgetToken(widgetID string) (string, error) {
	claims := &Claims{
		WidgetID: widgetID,
		Role:     "widget",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ValidateToken validates a token and returns its claims
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
