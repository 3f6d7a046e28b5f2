package reportes

import (
	"alquileres-backend/internal/acceso"
	"alquileres-backend/internal/auth"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/fiscal"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type InmuebleReporte struct {
	ID           uint                `json:"id"`
	Nombre       string              `json:"nombre"`
	Tipo         models.TipoInmueble `json:"tipo"`
	Ciudad       string              `json:"ciudad"`
	Activo       bool                `json:"activo"`
	RentaMensual *decimal.Decimal    `json:"renta_mensual"`
	RentaAnual   decimal.Decimal     `json:"renta_anual"`
	Impuestos    decimal.Decimal     `json:"impuestos"`
	Gastos       decimal.Decimal     `json:"gastos"`
	Neto         decimal.Decimal     `json:"neto"`
}

type ReporteAnualResponse struct {
	RentaTotal     decimal.Decimal   `json:"renta_total"`
	ImpuestosTotal decimal.Decimal   `json:"impuestos_total"`
	GastosTotal    decimal.Decimal   `json:"gastos_total"`
	NetoTotal      decimal.Decimal   `json:"neto_total"`
	Inmuebles      []InmuebleReporte `json:"inmuebles"`
}

// -------------------------------------------------
// GET /api/reportes/anual
// -------------------------------------------------
// A diferencia del dashboard, el reporte anual incluye también los
// inmuebles dados de baja: sus cifras siguen contando para el ejercicio.
func ReporteAnualHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, rol, socioID, err := auth.DatosSesion(c)
		if err != nil {
			return err
		}

		inmuebles, err := acceso.InmueblesVisibles(database.DB, rol, socioID, false)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el reporte")
		}

		resp := ReporteAnualResponse{
			Inmuebles: make([]InmuebleReporte, 0, len(inmuebles)),
		}

		for _, inm := range inmuebles {
			var gastos decimal.Decimal
			err := database.DB.Model(&models.Gasto{}).
				Where("inmueble_id = ?", inm.ID).
				Select("COALESCE(SUM(cantidad), 0)").
				Scan(&gastos).Error
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el reporte")
			}

			r := fiscal.CalcularResumen(inm.RentaMensual, inm.IvaPorcentaje, inm.IrpfPorcentaje, gastos)
			impuestos := r.IvaTotal.Add(r.IrpfTotal)
			neto := r.RentaAnualBruta.Sub(impuestos).Sub(gastos)

			resp.RentaTotal = resp.RentaTotal.Add(r.RentaAnualBruta)
			resp.ImpuestosTotal = resp.ImpuestosTotal.Add(impuestos)
			resp.GastosTotal = resp.GastosTotal.Add(gastos)
			resp.NetoTotal = resp.NetoTotal.Add(neto)

			resp.Inmuebles = append(resp.Inmuebles, InmuebleReporte{
				ID:           inm.ID,
				Nombre:       inm.Nombre,
				Tipo:         inm.Tipo,
				Ciudad:       inm.Ciudad,
				Activo:       inm.Activo,
				RentaMensual: inm.RentaMensual,
				RentaAnual:   r.RentaAnualBruta,
				Impuestos:    impuestos,
				Gastos:       gastos,
				Neto:         neto,
			})
		}

		return c.JSON(resp)
	}
}
