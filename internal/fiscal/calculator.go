// Package fiscal calcula las cifras fiscales derivadas de un inmueble
// a partir de su renta mensual y sus porcentajes de IVA e IRPF.
// Todas las operaciones son puras y en decimal exacto.
package fiscal

import "github.com/shopspring/decimal"

var (
	doce = decimal.NewFromInt(12)
	cien = decimal.NewFromInt(100)
)

// Resumen agrupa todas las cifras derivadas de un inmueble.
type Resumen struct {
	RentaAnualBruta    decimal.Decimal `json:"renta_anual_bruta"`
	IvaTotal           decimal.Decimal `json:"iva_total"`
	IrpfTotal          decimal.Decimal `json:"irpf_total"`
	RentaAnualNeta     decimal.Decimal `json:"renta_anual_neta"`
	GastosTotales      decimal.Decimal `json:"gastos_totales"`
	RentaNetaConGastos decimal.Decimal `json:"renta_neta_con_gastos"`
}

// RentaAnualBruta = renta mensual * 12. Sin renta, 0.
func RentaAnualBruta(rentaMensual *decimal.Decimal) decimal.Decimal {
	if rentaMensual == nil {
		return decimal.Zero
	}
	return rentaMensual.Mul(doce)
}

// IvaTotal = renta anual bruta * (iva / 100)
func IvaTotal(rentaMensual *decimal.Decimal, ivaPorcentaje decimal.Decimal) decimal.Decimal {
	if rentaMensual == nil {
		return decimal.Zero
	}
	return RentaAnualBruta(rentaMensual).Mul(ivaPorcentaje).Div(cien)
}

// IrpfTotal = renta anual bruta * (irpf / 100)
func IrpfTotal(rentaMensual *decimal.Decimal, irpfPorcentaje decimal.Decimal) decimal.Decimal {
	if rentaMensual == nil {
		return decimal.Zero
	}
	return RentaAnualBruta(rentaMensual).Mul(irpfPorcentaje).Div(cien)
}

// RentaAnualNeta = renta anual bruta - IRPF
func RentaAnualNeta(rentaMensual *decimal.Decimal, irpfPorcentaje decimal.Decimal) decimal.Decimal {
	if rentaMensual == nil {
		return decimal.Zero
	}
	return RentaAnualBruta(rentaMensual).Sub(IrpfTotal(rentaMensual, irpfPorcentaje))
}

// RentaNetaConGastos = renta anual neta - gastos totales.
// Puede ser negativa si los gastos superan la renta neta.
func RentaNetaConGastos(rentaMensual *decimal.Decimal, irpfPorcentaje, gastosTotales decimal.Decimal) decimal.Decimal {
	if rentaMensual == nil {
		return decimal.Zero
	}
	return RentaAnualNeta(rentaMensual, irpfPorcentaje).Sub(gastosTotales)
}

// CalcularResumen deriva todas las cifras de golpe.
func CalcularResumen(rentaMensual *decimal.Decimal, ivaPorcentaje, irpfPorcentaje, gastosTotales decimal.Decimal) Resumen {
	r := Resumen{
		RentaAnualBruta: RentaAnualBruta(rentaMensual),
		IvaTotal:        IvaTotal(rentaMensual, ivaPorcentaje),
		IrpfTotal:       IrpfTotal(rentaMensual, irpfPorcentaje),
		RentaAnualNeta:  RentaAnualNeta(rentaMensual, irpfPorcentaje),
		GastosTotales:   gastosTotales,
	}
	r.RentaNetaConGastos = RentaNetaConGastos(rentaMensual, irpfPorcentaje, gastosTotales)
	return r
}

// PorcentajeValido - los porcentajes de IVA, IRPF y participación van de 0 a 100
func PorcentajeValido(p decimal.Decimal) bool {
	return p.GreaterThanOrEqual(decimal.Zero) && p.LessThanOrEqual(cien)
}
