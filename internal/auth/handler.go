package auth

import (
	"errors"
	"strings"

	"alquileres-backend/internal/config"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterAdminRequest struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register-admin
// Alta del primer administrador. Si ya existe uno, se rechaza.
func RegisterAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if body.Email == "" || body.Password == "" || body.Nombre == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nombre, email y contraseña son obligatorios")
		}

		var count int64
		database.DB.Model(&models.User{}).
			Where("rol = ?", models.RolAdmin).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Ya existe un administrador")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo cifrar la contraseña")
		}

		user := models.User{
			Nombre:       body.Nombre,
			Email:        body.Email,
			PasswordHash: string(hash),
			Rol:          models.RolAdmin,
			Activo:       true,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el usuario")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"rol":   user.Rol,
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email o contraseña incorrectos")
		}

		if !user.Activo {
			return fiber.NewError(fiber.StatusUnauthorized, "Usuario desactivado")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email o contraseña incorrectos")
		}

		// Socio asociado, si lo hay
		var socioID *uint
		var socio models.Socio
		err := database.DB.Where("user_id = ?", user.ID).First(&socio).Error
		switch {
		case err == nil:
			socioID = &socio.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			// administrador sin ficha de socio
		default:
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo cargar el socio")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user, socioID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":       user.ID,
				"nombre":   user.Nombre,
				"email":    user.Email,
				"rol":      user.Rol,
				"socio_id": socioID,
			},
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, socioID, err := DatosSesion(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Usuario no encontrado")
		}

		response := fiber.Map{
			"user_id": user.ID,
			"nombre":  user.Nombre,
			"email":   user.Email,
			"rol":     user.Rol,
		}

		if socioID != nil {
			var socio models.Socio
			if err := database.DB.First(&socio, *socioID).Error; err == nil {
				response["socio"] = fiber.Map{
					"id":                       socio.ID,
					"porcentaje_participacion": socio.PorcentajeParticipacion,
					"activo":                   socio.Activo,
				}
			}
		}

		return c.JSON(response)
	}
}
