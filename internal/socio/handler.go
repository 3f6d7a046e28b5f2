package socio

import (
	"fmt"
	"log"

	"alquileres-backend/internal/audit"
	"alquileres-backend/internal/auth"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/fiscal"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateSocioRequest struct {
	Nombre                  string           `json:"nombre"`
	Email                   string           `json:"email"`
	Password                string           `json:"password"`
	PorcentajeParticipacion *decimal.Decimal `json:"porcentaje_participacion"`
}

type UpdateSocioRequest struct {
	PorcentajeParticipacion *decimal.Decimal `json:"porcentaje_participacion"`
	Activo                  *bool            `json:"activo"`
}

type SocioResponse struct {
	ID                      uint            `json:"id"`
	UserID                  uint            `json:"user_id"`
	Nombre                  string          `json:"nombre"`
	Email                   string          `json:"email"`
	PorcentajeParticipacion decimal.Decimal `json:"porcentaje_participacion"`
	Activo                  bool            `json:"activo"`
	NumInmuebles            int             `json:"num_inmuebles"`
}

func toResponse(s models.Socio, user models.User, numInmuebles int) SocioResponse {
	return SocioResponse{
		ID:                      s.ID,
		UserID:                  s.UserID,
		Nombre:                  user.Nombre,
		Email:                   user.Email,
		PorcentajeParticipacion: s.PorcentajeParticipacion,
		Activo:                  s.Activo,
		NumInmuebles:            numInmuebles,
	}
}

func nombreUsuario(c *fiber.Ctx) (uint, string) {
	userID, _, _, err := auth.DatosSesion(c)
	if err != nil {
		return 0, ""
	}
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return userID, ""
	}
	return userID, user.Nombre
}

// -------------------------------------------------
// POST /api/socios  (solo admin)
// -------------------------------------------------
// Da de alta al usuario y su ficha de socio en la misma transacción:
// un socio sin usuario no puede entrar y un usuario socio sin ficha
// no vería ningún inmueble.
func CreateSocioHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSocioRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		if body.Nombre == "" || body.Email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nombre y email son obligatorios")
		}
		if len(body.Password) < 8 {
			return fiber.NewError(fiber.StatusBadRequest, "La contraseña debe tener al menos 8 caracteres")
		}

		porcentaje := decimal.NewFromInt(100)
		if body.PorcentajeParticipacion != nil {
			porcentaje = *body.PorcentajeParticipacion
		}
		if !fiscal.PorcentajeValido(porcentaje) {
			return fiber.NewError(fiber.StatusBadRequest, "El porcentaje de participación debe estar entre 0 y 100")
		}

		var existente models.User
		if err := database.DB.Where("email = ?", body.Email).First(&existente).Error; err == nil {
			return fiber.NewError(fiber.StatusConflict, "Ya existe un usuario con ese email")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el socio")
		}

		user := models.User{
			Nombre:       body.Nombre,
			Email:        body.Email,
			PasswordHash: string(hash),
			Rol:          models.RolSocio,
			Activo:       true,
		}
		socio := models.Socio{
			PorcentajeParticipacion: porcentaje,
			Activo:                  true,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			socio.UserID = user.ID
			return tx.Create(&socio).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el socio")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "socio",
			EntityID:    socio.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Socio dado de alta: %s <%s>", user.Nombre, user.Email),
			After:       toResponse(socio, user, 0),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(socio, user, 0))
	}
}

// -------------------------------------------------
// GET /api/socios  (solo admin)
// -------------------------------------------------
func ListSociosHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var socios []models.Socio
		if err := database.DB.Preload("Inmuebles").Order("id asc").Find(&socios).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los socios")
		}

		resp := make([]SocioResponse, 0, len(socios))
		for _, s := range socios {
			var user models.User
			if err := database.DB.First(&user, s.UserID).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los socios")
			}
			resp = append(resp, toResponse(s, user, len(s.Inmuebles)))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// PUT /api/socios/:id  (solo admin)
// -------------------------------------------------
func UpdateSocioHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id inválido")
		}

		var socio models.Socio
		if err := database.DB.First(&socio, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Socio no encontrado")
		}
		var user models.User
		if err := database.DB.First(&user, socio.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el socio")
		}

		var body UpdateSocioRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		before := toResponse(socio, user, 0)

		if body.PorcentajeParticipacion != nil {
			if !fiscal.PorcentajeValido(*body.PorcentajeParticipacion) {
				return fiber.NewError(fiber.StatusBadRequest, "El porcentaje de participación debe estar entre 0 y 100")
			}
			socio.PorcentajeParticipacion = *body.PorcentajeParticipacion
		}
		if body.Activo != nil {
			socio.Activo = *body.Activo
			// al desactivar la ficha también se bloquea el acceso del usuario
			user.Activo = *body.Activo
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&socio).Error; err != nil {
				return err
			}
			return tx.Save(&user).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el socio")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "socio",
			EntityID:    socio.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Socio actualizado: %s", user.Nombre),
			Before:      before,
			After:       toResponse(socio, user, 0),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		return c.JSON(toResponse(socio, user, 0))
	}
}
