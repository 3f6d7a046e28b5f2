package transaccion

import (
	"fmt"
	"log"
	"time"

	"alquileres-backend/internal/acceso"
	"alquileres-backend/internal/audit"
	"alquileres-backend/internal/auth"
	"alquileres-backend/internal/cache"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateTransaccionRequest struct {
	Tipo        models.TipoTransaccion `json:"tipo"` // "INGRESO" | "GASTO"
	Descripcion string                 `json:"descripcion"`
	Cantidad    decimal.Decimal        `json:"cantidad"`
	Fecha       string                 `json:"fecha"` // "2025-03-15"
	Mes         *string                `json:"mes"`   // "2025-03"; si falta se deriva de la fecha
	EsBruto     *bool                  `json:"es_bruto"`
}

type TransaccionResponse struct {
	ID          uint                   `json:"id"`
	InmuebleID  uint                   `json:"inmueble_id"`
	Tipo        models.TipoTransaccion `json:"tipo"`
	Descripcion string                 `json:"descripcion"`
	Cantidad    decimal.Decimal        `json:"cantidad"`
	Fecha       string                 `json:"fecha"`
	Mes         string                 `json:"mes"`
	EsBruto     bool                   `json:"es_bruto"`
}

func toResponse(t models.Transaccion) TransaccionResponse {
	return TransaccionResponse{
		ID:          t.ID,
		InmuebleID:  t.InmuebleID,
		Tipo:        t.Tipo,
		Descripcion: t.Descripcion,
		Cantidad:    t.Cantidad,
		Fecha:       t.Fecha.Format("2006-01-02"),
		Mes:         t.Mes.Format("2006-01"),
		EsBruto:     t.EsBruto,
	}
}

func comprobarAcceso(c *fiber.Ctx, inmuebleID uint) error {
	_, rol, socioID, err := auth.DatosSesion(c)
	if err != nil {
		return err
	}

	ok, err := acceso.PuedeVerInmueble(database.DB, rol, socioID, inmuebleID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "No se pudo comprobar el permiso")
	}
	if !ok {
		return fiber.NewError(fiber.StatusForbidden, "No tienes permiso sobre este inmueble")
	}
	return nil
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

func invalidarCache(c *fiber.Ctx, store cache.Store, inmuebleID uint) {
	socioIDs, err := acceso.SociosDeInmueble(database.DB, inmuebleID)
	if err != nil {
		log.Printf("No se pudieron resolver los socios del inmueble %d: %v", inmuebleID, err)
		socioIDs = nil
	}
	cache.InvalidarDashboard(c.Context(), store, socioIDs)
}

// -------------------------------------------------
// POST /api/inmuebles/:id/transacciones
// -------------------------------------------------
func CreateTransaccionHandler(store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var inmuebleID uint
		if _, err := fmt.Sscan(c.Params("id"), &inmuebleID); err != nil || inmuebleID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id inválido")
		}

		var inm models.Inmueble
		if err := database.DB.First(&inm, "id = ?", inmuebleID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Inmueble no encontrado")
		}

		if err := comprobarAcceso(c, inm.ID); err != nil {
			return err
		}

		var body CreateTransaccionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		switch body.Tipo {
		case models.TransaccionIngreso, models.TransaccionGasto:
			// ok
		default:
			return fiber.NewError(fiber.StatusBadRequest, "tipo inválido (INGRESO|GASTO)")
		}

		if body.Descripcion == "" {
			return fiber.NewError(fiber.StatusBadRequest, "La descripción es obligatoria")
		}
		if !body.Cantidad.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "La cantidad debe ser mayor que 0")
		}

		fecha, err := time.Parse("2006-01-02", body.Fecha)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "La fecha debe tener formato 'YYYY-MM-DD'")
		}

		// mes de imputación: primer día del mes indicado, o el de la fecha
		var mes time.Time
		if body.Mes != nil && *body.Mes != "" {
			m, err := time.Parse("2006-01", *body.Mes)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "El mes debe tener formato 'YYYY-MM'")
			}
			mes = m
		} else {
			mes = time.Date(fecha.Year(), fecha.Month(), 1, 0, 0, 0, 0, fecha.Location())
		}

		esBruto := true
		if body.EsBruto != nil {
			esBruto = *body.EsBruto
		}

		t := models.Transaccion{
			InmuebleID:  inm.ID,
			Tipo:        body.Tipo,
			Descripcion: body.Descripcion,
			Cantidad:    body.Cantidad,
			Fecha:       fecha,
			Mes:         mes,
			EsBruto:     esBruto,
		}

		if err := database.DB.Create(&t).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo registrar la transacción")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "transaccion",
			EntityID:    t.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Transacción registrada en %s: %s - %s €", inm.Nombre, t.Tipo, t.Cantidad),
			After:       toResponse(t),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		invalidarCache(c, store, inm.ID)

		return c.Status(fiber.StatusCreated).JSON(toResponse(t))
	}
}

// -------------------------------------------------
// GET /api/inmuebles/:id/transacciones?tipo=&mes=2025-03
// -------------------------------------------------
func ListTransaccionesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var inmuebleID uint
		if _, err := fmt.Sscan(c.Params("id"), &inmuebleID); err != nil || inmuebleID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id inválido")
		}

		var inm models.Inmueble
		if err := database.DB.First(&inm, "id = ?", inmuebleID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Inmueble no encontrado")
		}

		if err := comprobarAcceso(c, inm.ID); err != nil {
			return err
		}

		q := database.DB.Model(&models.Transaccion{}).Where("inmueble_id = ?", inm.ID)

		if tipo := models.TipoTransaccion(c.Query("tipo")); tipo != "" {
			if tipo != models.TransaccionIngreso && tipo != models.TransaccionGasto {
				return fiber.NewError(fiber.StatusBadRequest, "tipo inválido (INGRESO|GASTO)")
			}
			q = q.Where("tipo = ?", tipo)
		}

		if mesStr := c.Query("mes"); mesStr != "" {
			mes, err := time.Parse("2006-01", mesStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "mes inválido, formato 'YYYY-MM'")
			}
			q = q.Where("mes = ?", mes)
		}

		var rows []models.Transaccion
		if err := q.Order("fecha desc, id desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las transacciones")
		}

		resp := make([]TransaccionResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, toResponse(r))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// DELETE /api/transacciones/:id  (borrado definitivo)
// -------------------------------------------------
func DeleteTransaccionHandler(store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id inválido")
		}

		var t models.Transaccion
		if err := database.DB.First(&t, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Transacción no encontrada")
		}

		if err := comprobarAcceso(c, t.InmuebleID); err != nil {
			return err
		}

		if err := database.DB.Delete(&t).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo borrar la transacción")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "transaccion",
			EntityID:    t.ID,
			Action:      models.AuditActionDelete,
			Description: "Transacción borrada",
			Before:      toResponse(t),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		invalidarCache(c, store, t.InmuebleID)

		return c.SendStatus(fiber.StatusNoContent)
	}
}
