package auth

import (
	"time"

	"alquileres-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type JWTCustomClaims struct {
	UserID  uint              `json:"user_id"`
	Email   string            `json:"email"`
	Rol     models.RolUsuario `json:"rol"`
	SocioID *uint             `json:"socio_id"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, user *models.User, socioID *uint) (string, error) {
	claims := &JWTCustomClaims{
		UserID:  user.ID,
		Email:   user.Email,
		Rol:     user.Rol,
		SocioID: socioID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)), // 1 día
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
