package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CategoriaGasto string

const (
	CategoriaMantenimiento  CategoriaGasto = "MANTENIMIENTO"
	CategoriaReparacion     CategoriaGasto = "REPARACION"
	CategoriaServicios      CategoriaGasto = "SERVICIOS" // agua, luz, gas
	CategoriaSeguros        CategoriaGasto = "SEGUROS"
	CategoriaAdministrativo CategoriaGasto = "ADMINISTRATIVO"
	CategoriaOtro           CategoriaGasto = "OTRO"
)

func CategoriaGastoValida(cat CategoriaGasto) bool {
	switch cat {
	case CategoriaMantenimiento, CategoriaReparacion, CategoriaServicios,
		CategoriaSeguros, CategoriaAdministrativo, CategoriaOtro:
		return true
	}
	return false
}

// Gasto - gasto deducible asociado a un inmueble
type Gasto struct {
	ID            uint            `gorm:"primaryKey"`
	InmuebleID    uint            `gorm:"index;not null"`
	Inmueble      Inmueble        `gorm:"foreignKey:InmuebleID"`
	Categoria     CategoriaGasto  `gorm:"size:50;not null"`
	Descripcion   string          `gorm:"size:255;not null"`
	Cantidad      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Fecha         time.Time       `gorm:"index;not null"`
	FacturaNumero *string         `gorm:"size:100"`
	CreatedAt     time.Time
}
