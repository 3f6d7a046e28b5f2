package declaracion

import (
	"fmt"
	"log"
	"time"

	"alquileres-backend/internal/audit"
	"alquileres-backend/internal/auth"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateDeclaracionRequest struct {
	SocioID   *uint            `json:"socio_id"` // solo admin; un socio declara siempre por sí mismo
	Anio      int              `json:"anio"`
	Trimestre models.Trimestre `json:"trimestre"` // Q1..Q4

	IvaTotalIngreso *decimal.Decimal `json:"iva_total_ingreso"`
	IvaTotalGasto   *decimal.Decimal `json:"iva_total_gasto"`
	IvaAPagar       *decimal.Decimal `json:"iva_a_pagar"`
	IrpfTotal       *decimal.Decimal `json:"irpf_total"`
	Notas           string           `json:"notas"`
}

type UpdateDeclaracionRequest struct {
	IvaTotalIngreso  *decimal.Decimal `json:"iva_total_ingreso"`
	IvaTotalGasto    *decimal.Decimal `json:"iva_total_gasto"`
	IvaAPagar        *decimal.Decimal `json:"iva_a_pagar"`
	IrpfTotal        *decimal.Decimal `json:"irpf_total"`
	Declarado        *bool            `json:"declarado"`
	FechaDeclaracion *string          `json:"fecha_declaracion"` // "2025-04-20"; vacía para limpiar
	Notas            *string          `json:"notas"`
}

type DeclaracionResponse struct {
	ID        uint             `json:"id"`
	SocioID   uint             `json:"socio_id"`
	Anio      int              `json:"anio"`
	Trimestre models.Trimestre `json:"trimestre"`

	IvaTotalIngreso decimal.Decimal `json:"iva_total_ingreso"`
	IvaTotalGasto   decimal.Decimal `json:"iva_total_gasto"`
	IvaAPagar       decimal.Decimal `json:"iva_a_pagar"`
	IrpfTotal       decimal.Decimal `json:"irpf_total"`

	Declarado        bool    `json:"declarado"`
	FechaDeclaracion *string `json:"fecha_declaracion"`
	Notas            string  `json:"notas"`
}

func toResponse(d models.DeclaracionTrimestral) DeclaracionResponse {
	resp := DeclaracionResponse{
		ID:              d.ID,
		SocioID:         d.SocioID,
		Anio:            d.Anio,
		Trimestre:       d.Trimestre,
		IvaTotalIngreso: d.IvaTotalIngreso,
		IvaTotalGasto:   d.IvaTotalGasto,
		IvaAPagar:       d.IvaAPagar,
		IrpfTotal:       d.IrpfTotal,
		Declarado:       d.Declarado,
		Notas:           d.Notas,
	}
	if d.FechaDeclaracion != nil {
		f := d.FechaDeclaracion.Format("2006-01-02")
		resp.FechaDeclaracion = &f
	}
	return resp
}

// carga la declaración y comprueba que el usuario puede tocarla:
// un admin cualquiera, un socio solo las suyas
func cargarConAcceso(c *fiber.Ctx) (models.DeclaracionTrimestral, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return models.DeclaracionTrimestral{}, fiber.NewError(fiber.StatusBadRequest, "id inválido")
	}

	var d models.DeclaracionTrimestral
	if err := database.DB.First(&d, "id = ?", id).Error; err != nil {
		return models.DeclaracionTrimestral{}, fiber.NewError(fiber.StatusNotFound, "Declaración no encontrada")
	}

	_, rol, socioID, err := auth.DatosSesion(c)
	if err != nil {
		return models.DeclaracionTrimestral{}, err
	}

	if rol != models.RolAdmin {
		if socioID == nil || *socioID != d.SocioID {
			return models.DeclaracionTrimestral{}, fiber.NewError(fiber.StatusForbidden, "No tienes permiso sobre esta declaración")
		}
	}

	return d, nil
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
// POST /api/declaraciones
// -------------------------------------------------
func CreateDeclaracionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateDeclaracionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		_, rol, sesionSocioID, err := auth.DatosSesion(c)
		if err != nil {
			return err
		}

		// a nombre de quién va la declaración
		var socioID uint
		if rol == models.RolAdmin {
			if body.SocioID == nil || *body.SocioID == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "socio_id es obligatorio")
			}
			socioID = *body.SocioID
		} else {
			if sesionSocioID == nil {
				return fiber.NewError(fiber.StatusForbidden, "No tienes ficha de socio")
			}
			socioID = *sesionSocioID
		}

		var socio models.Socio
		if err := database.DB.First(&socio, socioID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Socio no encontrado")
		}

		if body.Anio < 2000 || body.Anio > 2100 {
			return fiber.NewError(fiber.StatusBadRequest, "anio inválido")
		}
		if !models.TrimestreValido(body.Trimestre) {
			return fiber.NewError(fiber.StatusBadRequest, "trimestre inválido (Q1|Q2|Q3|Q4)")
		}

		// única por (socio, año, trimestre)
		var count int64
		database.DB.Model(&models.DeclaracionTrimestral{}).
			Where("socio_id = ? AND anio = ? AND trimestre = ?", socioID, body.Anio, body.Trimestre).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Ya existe una declaración para ese socio, año y trimestre")
		}

		d := models.DeclaracionTrimestral{
			SocioID:   socioID,
			Anio:      body.Anio,
			Trimestre: body.Trimestre,
			Notas:     body.Notas,
		}
		if body.IvaTotalIngreso != nil {
			d.IvaTotalIngreso = *body.IvaTotalIngreso
		}
		if body.IvaTotalGasto != nil {
			d.IvaTotalGasto = *body.IvaTotalGasto
		}
		if body.IvaAPagar != nil {
			d.IvaAPagar = *body.IvaAPagar
		}
		if body.IrpfTotal != nil {
			d.IrpfTotal = *body.IrpfTotal
		}

		if err := database.DB.Create(&d).Error; err != nil {
			// el índice único respalda la comprobación anterior frente a
			// dos peticiones simultáneas
			return fiber.NewError(fiber.StatusConflict, "Ya existe una declaración para ese socio, año y trimestre")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "declaracion",
			EntityID:    d.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Declaración creada: socio %d, %d %s", d.SocioID, d.Anio, d.Trimestre),
			After:       toResponse(d),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(d))
	}
}

// -------------------------------------------------
// GET /api/declaraciones?anio=&socio_id=
// -------------------------------------------------
func ListDeclaracionesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, rol, socioID, err := auth.DatosSesion(c)
		if err != nil {
			return err
		}

		q := database.DB.Model(&models.DeclaracionTrimestral{})

		if rol == models.RolAdmin {
			if sidStr := c.Query("socio_id"); sidStr != "" {
				var sid uint
				if _, err := fmt.Sscan(sidStr, &sid); err != nil || sid == 0 {
					return fiber.NewError(fiber.StatusBadRequest, "socio_id inválido")
				}
				q = q.Where("socio_id = ?", sid)
			}
		} else {
			if socioID == nil {
				return c.JSON([]DeclaracionResponse{})
			}
			q = q.Where("socio_id = ?", *socioID)
		}

		if anioStr := c.Query("anio"); anioStr != "" {
			var anio int
			if _, err := fmt.Sscan(anioStr, &anio); err != nil || anio < 2000 {
				return fiber.NewError(fiber.StatusBadRequest, "anio inválido")
			}
			q = q.Where("anio = ?", anio)
		}

		var rows []models.DeclaracionTrimestral
		if err := q.Order("anio desc, trimestre desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las declaraciones")
		}

		resp := make([]DeclaracionResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, toResponse(r))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// GET /api/declaraciones/:id
// -------------------------------------------------
func GetDeclaracionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := cargarConAcceso(c)
		if err != nil {
			return err
		}
		return c.JSON(toResponse(d))
	}
}

// -------------------------------------------------
// PUT /api/declaraciones/:id
// -------------------------------------------------
func UpdateDeclaracionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := cargarConAcceso(c)
		if err != nil {
			return err
		}

		var body UpdateDeclaracionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		before := toResponse(d)

		if body.IvaTotalIngreso != nil {
			d.IvaTotalIngreso = *body.IvaTotalIngreso
		}
		if body.IvaTotalGasto != nil {
			d.IvaTotalGasto = *body.IvaTotalGasto
		}
		if body.IvaAPagar != nil {
			d.IvaAPagar = *body.IvaAPagar
		}
		if body.IrpfTotal != nil {
			d.IrpfTotal = *body.IrpfTotal
		}
		if body.Declarado != nil {
			d.Declarado = *body.Declarado
		}
		if body.FechaDeclaracion != nil {
			if *body.FechaDeclaracion == "" {
				d.FechaDeclaracion = nil
			} else {
				f, err := time.Parse("2006-01-02", *body.FechaDeclaracion)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "fecha_declaracion debe tener formato 'YYYY-MM-DD'")
				}
				d.FechaDeclaracion = &f
			}
		}
		if body.Notas != nil {
			d.Notas = *body.Notas
		}

		if err := database.DB.Save(&d).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar la declaración")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "declaracion",
			EntityID:    d.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Declaración actualizada: socio %d, %d %s", d.SocioID, d.Anio, d.Trimestre),
			Before:      before,
			After:       toResponse(d),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		return c.JSON(toResponse(d))
	}
}

// -------------------------------------------------
// DELETE /api/declaraciones/:id
// -------------------------------------------------
func DeleteDeclaracionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := cargarConAcceso(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&d).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo borrar la declaración")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "declaracion",
			EntityID:    d.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Declaración borrada: socio %d, %d %s", d.SocioID, d.Anio, d.Trimestre),
			Before:      toResponse(d),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
