package dashboard

import (
	"encoding/json"
	"time"

	"alquileres-backend/internal/acceso"
	"alquileres-backend/internal/auth"
	"alquileres-backend/internal/cache"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/fiscal"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type InmuebleResumen struct {
	ID           uint                `json:"id"`
	Nombre       string              `json:"nombre"`
	Tipo         models.TipoInmueble `json:"tipo"`
	Ciudad       string              `json:"ciudad"`
	RentaMensual *decimal.Decimal    `json:"renta_mensual"`
	Fiscal       fiscal.Resumen      `json:"fiscal"`
}

type DashboardResponse struct {
	NumInmuebles       int               `json:"num_inmuebles"`
	RentaAnualBruta    decimal.Decimal   `json:"renta_anual_bruta"`
	IvaTotal           decimal.Decimal   `json:"iva_total"`
	IrpfTotal          decimal.Decimal   `json:"irpf_total"`
	RentaAnualNeta     decimal.Decimal   `json:"renta_anual_neta"`
	GastosTotales      decimal.Decimal   `json:"gastos_totales"`
	RentaNetaConGastos decimal.Decimal   `json:"renta_neta_con_gastos"`
	Inmuebles          []InmuebleResumen `json:"inmuebles"`
}

// suma de gastos por inmueble en una sola consulta agrupada
func gastosPorInmueble(inmuebles []models.Inmueble) (map[uint]decimal.Decimal, error) {
	totales := make(map[uint]decimal.Decimal, len(inmuebles))
	if len(inmuebles) == 0 {
		return totales, nil
	}

	ids := make([]uint, 0, len(inmuebles))
	for _, inm := range inmuebles {
		ids = append(ids, inm.ID)
	}

	var rows []struct {
		InmuebleID uint
		Total      decimal.Decimal
	}
	err := database.DB.Model(&models.Gasto{}).
		Select("inmueble_id, COALESCE(SUM(cantidad), 0) as total").
		Where("inmueble_id IN ?", ids).
		Group("inmueble_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		totales[r.InmuebleID] = r.Total
	}
	return totales, nil
}

func construirDashboard(rol models.RolUsuario, socioID *uint) (DashboardResponse, error) {
	// el panel solo refleja los inmuebles activos
	inmuebles, err := acceso.InmueblesVisibles(database.DB, rol, socioID, true)
	if err != nil {
		return DashboardResponse{}, err
	}

	gastos, err := gastosPorInmueble(inmuebles)
	if err != nil {
		return DashboardResponse{}, err
	}

	resp := DashboardResponse{
		NumInmuebles: len(inmuebles),
		Inmuebles:    make([]InmuebleResumen, 0, len(inmuebles)),
	}

	for _, inm := range inmuebles {
		r := fiscal.CalcularResumen(inm.RentaMensual, inm.IvaPorcentaje, inm.IrpfPorcentaje, gastos[inm.ID])

		resp.RentaAnualBruta = resp.RentaAnualBruta.Add(r.RentaAnualBruta)
		resp.IvaTotal = resp.IvaTotal.Add(r.IvaTotal)
		resp.IrpfTotal = resp.IrpfTotal.Add(r.IrpfTotal)
		resp.RentaAnualNeta = resp.RentaAnualNeta.Add(r.RentaAnualNeta)
		resp.GastosTotales = resp.GastosTotales.Add(r.GastosTotales)
		resp.RentaNetaConGastos = resp.RentaNetaConGastos.Add(r.RentaNetaConGastos)

		resp.Inmuebles = append(resp.Inmuebles, InmuebleResumen{
			ID:           inm.ID,
			Nombre:       inm.Nombre,
			Tipo:         inm.Tipo,
			Ciudad:       inm.Ciudad,
			RentaMensual: inm.RentaMensual,
			Fiscal:       r,
		})
	}

	return resp, nil
}

// -------------------------------------------------
// GET /api/dashboard (y /api/dashboard-data)
// -------------------------------------------------
func DashboardHandler(store cache.Store, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, rol, socioID, err := auth.DatosSesion(c)
		if err != nil {
			return err
		}

		// cada usuario tiene su propia entrada: un socio ve otras cifras
		// que un administrador
		var clave string
		if rol == models.RolAdmin {
			clave = cache.KeyAdmin(userID)
		} else if socioID != nil {
			clave = cache.KeySocio(*socioID)
		}

		if clave != "" {
			if cached, ok := store.Get(c.Context(), clave); ok {
				return c.Type("json").SendString(cached)
			}
		}

		resp, err := construirDashboard(rol, socioID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo construir el panel")
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo construir el panel")
		}

		if clave != "" {
			store.Set(c.Context(), clave, string(payload), ttl)
		}

		return c.Type("json").Send(payload)
	}
}
