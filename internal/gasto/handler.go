package gasto

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

type CreateGastoRequest struct {
	Categoria     models.CategoriaGasto `json:"categoria"`
	Descripcion   string                `json:"descripcion"`
	Cantidad      decimal.Decimal       `json:"cantidad"`
	Fecha         string                `json:"fecha"` // "2025-03-15"
	FacturaNumero *string               `json:"factura_numero"`
}

type UpdateGastoRequest struct {
	Categoria     *models.CategoriaGasto `json:"categoria"`
	Descripcion   *string                `json:"descripcion"`
	Cantidad      *decimal.Decimal       `json:"cantidad"`
	Fecha         *string                `json:"fecha"`
	FacturaNumero *string                `json:"factura_numero"`
}

type GastoResponse struct {
	ID            uint                  `json:"id"`
	InmuebleID    uint                  `json:"inmueble_id"`
	Categoria     models.CategoriaGasto `json:"categoria"`
	Descripcion   string                `json:"descripcion"`
	Cantidad      decimal.Decimal       `json:"cantidad"`
	Fecha         string                `json:"fecha"`
	FacturaNumero *string               `json:"factura_numero"`
}

func toResponse(g models.Gasto) GastoResponse {
	return GastoResponse{
		ID:            g.ID,
		InmuebleID:    g.InmuebleID,
		Categoria:     g.Categoria,
		Descripcion:   g.Descripcion,
		Cantidad:      g.Cantidad,
		Fecha:         g.Fecha.Format("2006-01-02"),
		FacturaNumero: g.FacturaNumero,
	}
}

func snapshot(g models.Gasto) map[string]any {
	return map[string]any{
		"id":             g.ID,
		"inmueble_id":    g.InmuebleID,
		"categoria":      g.Categoria,
		"descripcion":    g.Descripcion,
		"cantidad":       g.Cantidad,
		"fecha":          g.Fecha.Format("2006-01-02"),
		"factura_numero": g.FacturaNumero,
	}
}

// comprueba el acceso al inmueble dueño del gasto
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
// POST /api/inmuebles/:id/gastos
// -------------------------------------------------
func CreateGastoHandler(store cache.Store) fiber.Handler {
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

		var body CreateGastoRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		if !models.CategoriaGastoValida(body.Categoria) {
			return fiber.NewError(fiber.StatusBadRequest, "categoría inválida (MANTENIMIENTO|REPARACION|SERVICIOS|SEGUROS|ADMINISTRATIVO|OTRO)")
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

		g := models.Gasto{
			InmuebleID:    inm.ID,
			Categoria:     body.Categoria,
			Descripcion:   body.Descripcion,
			Cantidad:      body.Cantidad,
			Fecha:         fecha,
			FacturaNumero: body.FacturaNumero,
		}

		if err := database.DB.Create(&g).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo registrar el gasto")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "gasto",
			EntityID:    g.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Gasto registrado en %s: %s - %s €", inm.Nombre, g.Categoria, g.Cantidad),
			After:       snapshot(g),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		invalidarCache(c, store, inm.ID)

		return c.Status(fiber.StatusCreated).JSON(toResponse(g))
	}
}

// -------------------------------------------------
// GET /api/inmuebles/:id/gastos?categoria=&from=&to=
// -------------------------------------------------
func ListGastosHandler() fiber.Handler {
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

		q := database.DB.Model(&models.Gasto{}).Where("inmueble_id = ?", inm.ID)

		if cat := models.CategoriaGasto(c.Query("categoria")); cat != "" {
			if !models.CategoriaGastoValida(cat) {
				return fiber.NewError(fiber.StatusBadRequest, "categoría inválida")
			}
			q = q.Where("categoria = ?", cat)
		}

		if fromStr := c.Query("from"); fromStr != "" {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from inválido")
			}
			q = q.Where("fecha >= ?", from)
		}
		if toStr := c.Query("to"); toStr != "" {
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to inválido")
			}
			q = q.Where("fecha <= ?", to)
		}

		var rows []models.Gasto
		if err := q.Order("fecha desc, id desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los gastos")
		}

		resp := make([]GastoResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, toResponse(r))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// PUT /api/gastos/:id
// -------------------------------------------------
func UpdateGastoHandler(store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id inválido")
		}

		var g models.Gasto
		if err := database.DB.First(&g, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Gasto no encontrado")
		}

		if err := comprobarAcceso(c, g.InmuebleID); err != nil {
			return err
		}

		var body UpdateGastoRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		before := snapshot(g)

		if body.Categoria != nil {
			if !models.CategoriaGastoValida(*body.Categoria) {
				return fiber.NewError(fiber.StatusBadRequest, "categoría inválida")
			}
			g.Categoria = *body.Categoria
		}
		if body.Descripcion != nil {
			if *body.Descripcion == "" {
				return fiber.NewError(fiber.StatusBadRequest, "La descripción no puede quedar vacía")
			}
			g.Descripcion = *body.Descripcion
		}
		if body.Cantidad != nil {
			if !body.Cantidad.IsPositive() {
				return fiber.NewError(fiber.StatusBadRequest, "La cantidad debe ser mayor que 0")
			}
			g.Cantidad = *body.Cantidad
		}
		if body.Fecha != nil {
			fecha, err := time.Parse("2006-01-02", *body.Fecha)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "La fecha debe tener formato 'YYYY-MM-DD'")
			}
			g.Fecha = fecha
		}
		if body.FacturaNumero != nil {
			g.FacturaNumero = body.FacturaNumero
		}

		if err := database.DB.Save(&g).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el gasto")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "gasto",
			EntityID:    g.ID,
			Action:      models.AuditActionUpdate,
			Description: "Gasto actualizado",
			Before:      before,
			After:       snapshot(g),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		invalidarCache(c, store, g.InmuebleID)

		return c.JSON(toResponse(g))
	}
}

// -------------------------------------------------
// DELETE /api/gastos/:id  (borrado definitivo)
// -------------------------------------------------
func DeleteGastoHandler(store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id inválido")
		}

		var g models.Gasto
		if err := database.DB.First(&g, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Gasto no encontrado")
		}

		if err := comprobarAcceso(c, g.InmuebleID); err != nil {
			return err
		}

		if err := database.DB.Delete(&g).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo borrar el gasto")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "gasto",
			EntityID:    g.ID,
			Action:      models.AuditActionDelete,
			Description: "Gasto borrado",
			Before:      snapshot(g),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		invalidarCache(c, store, g.InmuebleID)

		return c.SendStatus(fiber.StatusNoContent)
	}
}
