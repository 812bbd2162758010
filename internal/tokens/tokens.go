package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pollbox/pollbox/internal/models"
)

var ErrInvalidToken = errors.New("invalid access token")

// Claims carried by an access token. Role travels in the token so API
// clients can be authorized without a session lookup.
type Claims struct {
	Sub   string
	Name  string
	Email string
	Role  string
}

// GenerateAccessToken creates a signed JWT access token for the user
func GenerateAccessToken(secret string, u *models.User, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ParseAccessToken verifies signature and expiry and returns the claims.
func ParseAccessToken(secret, raw string) (*Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	c := &Claims{}
	c.Sub, _ = mc["sub"].(string)
	c.Name, _ = mc["name"].(string)
	c.Email, _ = mc["email"].(string)
	c.Role, _ = mc["role"].(string)
	if c.Sub == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
