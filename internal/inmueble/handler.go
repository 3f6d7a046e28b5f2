package inmueble

import (
	"fmt"
	"log"
	"strings"
	"time"

	"alquileres-backend/internal/acceso"
	"alquileres-backend/internal/audit"
	"alquileres-backend/internal/auth"
	"alquileres-backend/internal/cache"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/fiscal"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateInmuebleRequest struct {
	Nombre              string              `json:"nombre"`
	Tipo                models.TipoInmueble `json:"tipo"`
	Direccion           string              `json:"direccion"`
	Ciudad              string              `json:"ciudad"`
	CodigoPostal        string              `json:"codigo_postal"`
	ReferenciasCatastro *string             `json:"referencias_catastro"`
	RentaMensual        *decimal.Decimal    `json:"renta_mensual"`
	IvaPorcentaje       *decimal.Decimal    `json:"iva_porcentaje"`  // por defecto 21.00
	IrpfPorcentaje      *decimal.Decimal    `json:"irpf_porcentaje"` // por defecto 19.00
	FechaInicioAlquiler string              `json:"fecha_inicio_alquiler"` // "2025-01-01"
	FechaFinAlquiler    *string             `json:"fecha_fin_alquiler"`
	// solo admin: socios a asociar en el alta
	SocioIDs []uint `json:"socio_ids"`
}

type UpdateInmuebleRequest struct {
	Nombre              *string              `json:"nombre"`
	Tipo                *models.TipoInmueble `json:"tipo"`
	Direccion           *string              `json:"direccion"`
	Ciudad              *string              `json:"ciudad"`
	CodigoPostal        *string              `json:"codigo_postal"`
	ReferenciasCatastro *string              `json:"referencias_catastro"`
	RentaMensual        *decimal.Decimal     `json:"renta_mensual"`
	IvaPorcentaje       *decimal.Decimal     `json:"iva_porcentaje"`
	IrpfPorcentaje      *decimal.Decimal     `json:"irpf_porcentaje"`
	FechaInicioAlquiler *string              `json:"fecha_inicio_alquiler"`
	FechaFinAlquiler    *string              `json:"fecha_fin_alquiler"`
}

type InmuebleResponse struct {
	ID                  uint                `json:"id"`
	Nombre              string              `json:"nombre"`
	Tipo                models.TipoInmueble `json:"tipo"`
	Direccion           string              `json:"direccion"`
	Ciudad              string              `json:"ciudad"`
	CodigoPostal        string              `json:"codigo_postal"`
	ReferenciasCatastro *string             `json:"referencias_catastro"`
	RentaMensual        *decimal.Decimal    `json:"renta_mensual"`
	IvaPorcentaje       decimal.Decimal     `json:"iva_porcentaje"`
	IrpfPorcentaje      decimal.Decimal     `json:"irpf_porcentaje"`
	FechaInicioAlquiler string              `json:"fecha_inicio_alquiler"`
	FechaFinAlquiler    *string             `json:"fecha_fin_alquiler"`
	Activo              bool                `json:"activo"`
}

type ListInmueblesResponse struct {
	Items    []InmuebleResponse `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

type GastoItemResponse struct {
	ID            uint                  `json:"id"`
	Categoria     models.CategoriaGasto `json:"categoria"`
	Descripcion   string                `json:"descripcion"`
	Cantidad      decimal.Decimal       `json:"cantidad"`
	Fecha         string                `json:"fecha"`
	FacturaNumero *string               `json:"factura_numero"`
}

type TransaccionItemResponse struct {
	ID          uint                   `json:"id"`
	Tipo        models.TipoTransaccion `json:"tipo"`
	Descripcion string                 `json:"descripcion"`
	Cantidad    decimal.Decimal        `json:"cantidad"`
	Fecha       string                 `json:"fecha"`
	Mes         string                 `json:"mes"`
	EsBruto     bool                   `json:"es_bruto"`
}

type InmuebleDetailResponse struct {
	InmuebleResponse
	Fiscal              fiscal.Resumen             `json:"fiscal"`
	Gastos              []GastoItemResponse        `json:"gastos"`
	GastosPorCategoria  map[string]decimal.Decimal `json:"gastos_por_categoria"`
	GastosPorMes        map[string]decimal.Decimal `json:"gastos_por_mes"`
	UltimasTransacciones []TransaccionItemResponse `json:"ultimas_transacciones"`
	SocioIDs            []uint                     `json:"socio_ids"`
}

func toResponse(inm models.Inmueble) InmuebleResponse {
	resp := InmuebleResponse{
		ID:                  inm.ID,
		Nombre:              inm.Nombre,
		Tipo:                inm.Tipo,
		Direccion:           inm.Direccion,
		Ciudad:              inm.Ciudad,
		CodigoPostal:        inm.CodigoPostal,
		ReferenciasCatastro: inm.ReferenciasCatastro,
		RentaMensual:        inm.RentaMensual,
		IvaPorcentaje:       inm.IvaPorcentaje,
		IrpfPorcentaje:      inm.IrpfPorcentaje,
		FechaInicioAlquiler: inm.FechaInicioAlquiler.Format("2006-01-02"),
		Activo:              inm.Activo,
	}
	if inm.FechaFinAlquiler != nil {
		f := inm.FechaFinAlquiler.Format("2006-01-02")
		resp.FechaFinAlquiler = &f
	}
	return resp
}

// snapshot para el registro de auditoría, sin relaciones
func snapshot(inm models.Inmueble) map[string]any {
	return map[string]any{
		"id":                    inm.ID,
		"nombre":                inm.Nombre,
		"tipo":                  inm.Tipo,
		"direccion":             inm.Direccion,
		"ciudad":                inm.Ciudad,
		"codigo_postal":         inm.CodigoPostal,
		"renta_mensual":         inm.RentaMensual,
		"iva_porcentaje":        inm.IvaPorcentaje,
		"irpf_porcentaje":       inm.IrpfPorcentaje,
		"fecha_inicio_alquiler": inm.FechaInicioAlquiler.Format("2006-01-02"),
		"activo":                inm.Activo,
	}
}

// cargarConAcceso busca el inmueble del parámetro :id y aplica el control
// de acceso: 404 si no existe, 403 si el usuario no puede verlo.
func cargarConAcceso(c *fiber.Ctx) (models.Inmueble, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return models.Inmueble{}, fiber.NewError(fiber.StatusBadRequest, "id inválido")
	}

	var inm models.Inmueble
	if err := database.DB.First(&inm, "id = ?", id).Error; err != nil {
		return models.Inmueble{}, fiber.NewError(fiber.StatusNotFound, "Inmueble no encontrado")
	}

	_, rol, socioID, err := auth.DatosSesion(c)
	if err != nil {
		return models.Inmueble{}, err
	}

	ok, err := acceso.PuedeVerInmueble(database.DB, rol, socioID, inm.ID)
	if err != nil {
		return models.Inmueble{}, fiber.NewError(fiber.StatusInternalServerError, "No se pudo comprobar el permiso")
	}
	if !ok {
		return models.Inmueble{}, fiber.NewError(fiber.StatusForbidden, "No tienes permiso para ver este inmueble")
	}

	return inm, nil
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

// invalida la caché del dashboard de los socios del inmueble y de los admins
func invalidarCache(c *fiber.Ctx, store cache.Store, inmuebleID uint) {
	socioIDs, err := acceso.SociosDeInmueble(database.DB, inmuebleID)
	if err != nil {
		log.Printf("No se pudieron resolver los socios del inmueble %d: %v", inmuebleID, err)
		socioIDs = nil
	}
	cache.InvalidarDashboard(c.Context(), store, socioIDs)
}

// columnas admitidas en ?order=
var ordenesValidos = map[string]string{
	"nombre":                "nombre",
	"renta_mensual":         "renta_mensual",
	"fecha_inicio_alquiler": "fecha_inicio_alquiler",
}

// -------------------------------------------------
// GET /api/inmuebles?tipo=&search=&order=&page=&page_size=
// -------------------------------------------------
func ListInmueblesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, rol, socioID, err := auth.DatosSesion(c)
		if err != nil {
			return err
		}

		q := acceso.QueryInmueblesVisibles(database.DB, rol, socioID)

		if tipo := models.TipoInmueble(c.Query("tipo")); tipo != "" {
			if !models.TipoInmuebleValido(tipo) {
				return fiber.NewError(fiber.StatusBadRequest, "tipo inválido (PISO|LOCAL|CASA|GARAJE)")
			}
			q = q.Where("inmuebles.tipo = ?", tipo)
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + search + "%"
			q = q.Where("inmuebles.nombre LIKE ? OR inmuebles.direccion LIKE ? OR inmuebles.ciudad LIKE ?", like, like, like)
		}

		orden := "nombre asc"
		if o := c.Query("order"); o != "" {
			dir := "asc"
			col := o
			if strings.HasPrefix(o, "-") {
				dir = "desc"
				col = o[1:]
			}
			colSQL, ok := ordenesValidos[col]
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "order inválido")
			}
			orden = colSQL + " " + dir
		}

		page := 1
		pageSize := 20
		if p := c.Query("page"); p != "" {
			if _, err := fmt.Sscan(p, &page); err != nil || page < 1 {
				return fiber.NewError(fiber.StatusBadRequest, "page inválido")
			}
		}
		if ps := c.Query("page_size"); ps != "" {
			if _, err := fmt.Sscan(ps, &pageSize); err != nil || pageSize < 1 || pageSize > 100 {
				return fiber.NewError(fiber.StatusBadRequest, "page_size inválido")
			}
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron contar los inmuebles")
		}

		var rows []models.Inmueble
		if err := q.Order(orden).
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los inmuebles")
		}

		items := make([]InmuebleResponse, 0, len(rows))
		for _, r := range rows {
			items = append(items, toResponse(r))
		}

		return c.JSON(ListInmueblesResponse{
			Items:    items,
			Total:    total,
			Page:     page,
			PageSize: pageSize,
		})
	}
}

// -------------------------------------------------
// POST /api/inmuebles
// -------------------------------------------------
func CreateInmuebleHandler(store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateInmuebleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		body.Nombre = strings.TrimSpace(body.Nombre)
		body.Direccion = strings.TrimSpace(body.Direccion)
		body.Ciudad = strings.TrimSpace(body.Ciudad)
		body.CodigoPostal = strings.TrimSpace(body.CodigoPostal)

		if body.Nombre == "" || body.Direccion == "" || body.Ciudad == "" || body.CodigoPostal == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nombre, dirección, ciudad y código postal son obligatorios")
		}

		tipo := body.Tipo
		if tipo == "" {
			tipo = models.TipoPiso
		}
		if !models.TipoInmuebleValido(tipo) {
			return fiber.NewError(fiber.StatusBadRequest, "tipo inválido (PISO|LOCAL|CASA|GARAJE)")
		}

		if body.RentaMensual != nil && body.RentaMensual.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "La renta mensual no puede ser negativa")
		}

		iva := decimal.NewFromFloat(21.00)
		if body.IvaPorcentaje != nil {
			iva = *body.IvaPorcentaje
		}
		irpf := decimal.NewFromFloat(19.00)
		if body.IrpfPorcentaje != nil {
			irpf = *body.IrpfPorcentaje
		}
		if !fiscal.PorcentajeValido(iva) || !fiscal.PorcentajeValido(irpf) {
			return fiber.NewError(fiber.StatusBadRequest, "Los porcentajes de IVA e IRPF deben estar entre 0 y 100")
		}

		inicio, err := time.Parse("2006-01-02", body.FechaInicioAlquiler)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "fecha_inicio_alquiler debe tener formato 'YYYY-MM-DD'")
		}

		var fin *time.Time
		if body.FechaFinAlquiler != nil && *body.FechaFinAlquiler != "" {
			f, err := time.Parse("2006-01-02", *body.FechaFinAlquiler)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "fecha_fin_alquiler debe tener formato 'YYYY-MM-DD'")
			}
			fin = &f
		}

		_, rol, socioID, err := auth.DatosSesion(c)
		if err != nil {
			return err
		}

		inm := models.Inmueble{
			Nombre:              body.Nombre,
			Tipo:                tipo,
			Direccion:           body.Direccion,
			Ciudad:              body.Ciudad,
			CodigoPostal:        body.CodigoPostal,
			ReferenciasCatastro: body.ReferenciasCatastro,
			RentaMensual:        body.RentaMensual,
			IvaPorcentaje:       iva,
			IrpfPorcentaje:      irpf,
			FechaInicioAlquiler: inicio,
			FechaFinAlquiler:    fin,
			Activo:              true,
		}

		// Alta y asociación de socios en una sola transacción: si falla la
		// asociación no queda un inmueble huérfano.
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&inm).Error; err != nil {
				return err
			}

			var socios []models.Socio
			switch {
			case rol == models.RolSocio && socioID != nil:
				var s models.Socio
				if err := tx.First(&s, *socioID).Error; err != nil {
					return err
				}
				socios = append(socios, s)
			case rol == models.RolAdmin && len(body.SocioIDs) > 0:
				if err := tx.Find(&socios, body.SocioIDs).Error; err != nil {
					return err
				}
				if len(socios) != len(body.SocioIDs) {
					return fiber.NewError(fiber.StatusBadRequest, "Algún socio indicado no existe")
				}
			}

			if len(socios) > 0 {
				if err := tx.Model(&inm).Association("Socios").Append(socios); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el inmueble")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "inmueble",
			EntityID:    inm.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Inmueble creado: %s", inm.Nombre),
			After:       snapshot(inm),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		invalidarCache(c, store, inm.ID)

		return c.Status(fiber.StatusCreated).JSON(toResponse(inm))
	}
}

// -------------------------------------------------
// GET /api/inmuebles/:id
// -------------------------------------------------
func GetInmuebleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		inm, err := cargarConAcceso(c)
		if err != nil {
			return err
		}

		var gastos []models.Gasto
		if err := database.DB.
			Where("inmueble_id = ?", inm.ID).
			Order("fecha desc, id desc").
			Find(&gastos).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron cargar los gastos")
		}

		gastosTotal := decimal.Zero
		porCategoria := make(map[string]decimal.Decimal)
		porMes := make(map[string]decimal.Decimal)
		gastosResp := make([]GastoItemResponse, 0, len(gastos))

		for _, g := range gastos {
			gastosTotal = gastosTotal.Add(g.Cantidad)

			cat := string(g.Categoria)
			porCategoria[cat] = porCategoria[cat].Add(g.Cantidad)

			mes := g.Fecha.Format("2006-01")
			porMes[mes] = porMes[mes].Add(g.Cantidad)

			gastosResp = append(gastosResp, GastoItemResponse{
				ID:            g.ID,
				Categoria:     g.Categoria,
				Descripcion:   g.Descripcion,
				Cantidad:      g.Cantidad,
				Fecha:         g.Fecha.Format("2006-01-02"),
				FacturaNumero: g.FacturaNumero,
			})
		}

		// últimas 10 transacciones
		var trans []models.Transaccion
		if err := database.DB.
			Where("inmueble_id = ?", inm.ID).
			Order("fecha desc, id desc").
			Limit(10).
			Find(&trans).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron cargar las transacciones")
		}

		transResp := make([]TransaccionItemResponse, 0, len(trans))
		for _, t := range trans {
			transResp = append(transResp, TransaccionItemResponse{
				ID:          t.ID,
				Tipo:        t.Tipo,
				Descripcion: t.Descripcion,
				Cantidad:    t.Cantidad,
				Fecha:       t.Fecha.Format("2006-01-02"),
				Mes:         t.Mes.Format("2006-01"),
				EsBruto:     t.EsBruto,
			})
		}

		socioIDs, err := acceso.SociosDeInmueble(database.DB, inm.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron cargar los socios")
		}

		return c.JSON(InmuebleDetailResponse{
			InmuebleResponse:     toResponse(inm),
			Fiscal:               fiscal.CalcularResumen(inm.RentaMensual, inm.IvaPorcentaje, inm.IrpfPorcentaje, gastosTotal),
			Gastos:               gastosResp,
			GastosPorCategoria:   porCategoria,
			GastosPorMes:         porMes,
			UltimasTransacciones: transResp,
			SocioIDs:             socioIDs,
		})
	}
}

// -------------------------------------------------
// PUT /api/inmuebles/:id
// -------------------------------------------------
func UpdateInmuebleHandler(store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		inm, err := cargarConAcceso(c)
		if err != nil {
			return err
		}

		var body UpdateInmuebleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la petición inválido")
		}

		before := snapshot(inm)

		if body.Nombre != nil {
			nombre := strings.TrimSpace(*body.Nombre)
			if nombre == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre no puede quedar vacío")
			}
			inm.Nombre = nombre
		}
		if body.Tipo != nil {
			if !models.TipoInmuebleValido(*body.Tipo) {
				return fiber.NewError(fiber.StatusBadRequest, "tipo inválido (PISO|LOCAL|CASA|GARAJE)")
			}
			inm.Tipo = *body.Tipo
		}
		if body.Direccion != nil {
			dir := strings.TrimSpace(*body.Direccion)
			if dir == "" {
				return fiber.NewError(fiber.StatusBadRequest, "La dirección no puede quedar vacía")
			}
			inm.Direccion = dir
		}
		if body.Ciudad != nil {
			inm.Ciudad = strings.TrimSpace(*body.Ciudad)
		}
		if body.CodigoPostal != nil {
			inm.CodigoPostal = strings.TrimSpace(*body.CodigoPostal)
		}
		if body.ReferenciasCatastro != nil {
			inm.ReferenciasCatastro = body.ReferenciasCatastro
		}
		if body.RentaMensual != nil {
			if body.RentaMensual.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "La renta mensual no puede ser negativa")
			}
			inm.RentaMensual = body.RentaMensual
		}
		if body.IvaPorcentaje != nil {
			if !fiscal.PorcentajeValido(*body.IvaPorcentaje) {
				return fiber.NewError(fiber.StatusBadRequest, "El IVA debe estar entre 0 y 100")
			}
			inm.IvaPorcentaje = *body.IvaPorcentaje
		}
		if body.IrpfPorcentaje != nil {
			if !fiscal.PorcentajeValido(*body.IrpfPorcentaje) {
				return fiber.NewError(fiber.StatusBadRequest, "El IRPF debe estar entre 0 y 100")
			}
			inm.IrpfPorcentaje = *body.IrpfPorcentaje
		}
		if body.FechaInicioAlquiler != nil {
			f, err := time.Parse("2006-01-02", *body.FechaInicioAlquiler)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "fecha_inicio_alquiler debe tener formato 'YYYY-MM-DD'")
			}
			inm.FechaInicioAlquiler = f
		}
		if body.FechaFinAlquiler != nil {
			if *body.FechaFinAlquiler == "" {
				inm.FechaFinAlquiler = nil
			} else {
				f, err := time.Parse("2006-01-02", *body.FechaFinAlquiler)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "fecha_fin_alquiler debe tener formato 'YYYY-MM-DD'")
				}
				inm.FechaFinAlquiler = &f
			}
		}

		if err := database.DB.Save(&inm).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el inmueble")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "inmueble",
			EntityID:    inm.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Inmueble actualizado: %s", inm.Nombre),
			Before:      before,
			After:       snapshot(inm),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		invalidarCache(c, store, inm.ID)

		return c.JSON(toResponse(inm))
	}
}

// -------------------------------------------------
// DELETE /api/inmuebles/:id  (baja lógica)
// -------------------------------------------------
func DeleteInmuebleHandler(store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		inm, err := cargarConAcceso(c)
		if err != nil {
			return err
		}

		before := snapshot(inm)

		// Baja lógica: se conservan la fila y todo su histórico de
		// gastos y transacciones.
		inm.Activo = false
		if err := database.DB.Save(&inm).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo dar de baja el inmueble")
		}

		userID, userName := nombreUsuario(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "inmueble",
			EntityID:    inm.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Inmueble dado de baja: %s", inm.Nombre),
			Before:      before,
			After:       snapshot(inm),
		}); logErr != nil {
			log.Printf("No se pudo escribir el registro de auditoría: %v", logErr)
		}

		invalidarCache(c, store, inm.ID)

		return c.SendStatus(fiber.StatusNoContent)
	}
}
