package auth

import (
	"fmt"
	"strings"

	"alquileres-backend/internal/config"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey  = "user_id"
	CtxUserRolKey = "user_rol"
	CtxSocioIDKey = "socio_id"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Falta la cabecera Authorization")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "El formato de Authorization debe ser 'Bearer <token>'")
		}

		tokenStr := parts[1]

		token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("método de firma no válido")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Token inválido o caducado")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "No se pudo leer el token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRolKey, claims.Rol)
		c.Locals(CtxSocioIDKey, claims.SocioID)

		return c.Next()
	}
}

func RequireRol(permitidos ...models.RolUsuario) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rolVal := c.Locals(CtxUserRolKey)
		rol, ok := rolVal.(models.RolUsuario)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "No se pudo obtener el rol")
		}

		for _, r := range permitidos {
			if r == rol {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "No tienes permiso para esta operación")
	}
}

// DatosSesion - saca del contexto el usuario autenticado (id, rol y socio asociado)
func DatosSesion(c *fiber.Ctx) (uint, models.RolUsuario, *uint, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return 0, "", nil, fiber.NewError(fiber.StatusForbidden, "No se pudo obtener el usuario")
	}

	rol, ok := c.Locals(CtxUserRolKey).(models.RolUsuario)
	if !ok {
		return 0, "", nil, fiber.NewError(fiber.StatusForbidden, "No se pudo obtener el rol")
	}

	var socioID *uint
	if sPtr, ok := c.Locals(CtxSocioIDKey).(*uint); ok && sPtr != nil {
		socioID = sPtr
	}

	return userID, rol, socioID, nil
}
