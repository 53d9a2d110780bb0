package tokens

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/picload/picload/internal/config"
	"github.com/picload/picload/internal/models"
)

// GenerateAccessToken creates a signed JWT access token for the user.
// The subject is the user's immutable ID; ownership checks key on it.
func GenerateAccessToken(cfg *config.Config, u *models.User, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"name":  strings.TrimSpace(u.FirstName + " " + u.LastName),
		"email": u.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}
