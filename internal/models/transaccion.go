package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TipoTransaccion string

const (
	TransaccionIngreso TipoTransaccion = "INGRESO"
	TransaccionGasto   TipoTransaccion = "GASTO"
)

// Transaccion - movimiento de ingreso o egreso de un inmueble.
// Mes guarda el primer día del mes al que se imputa, para agrupar.
type Transaccion struct {
	ID          uint            `gorm:"primaryKey"`
	InmuebleID  uint            `gorm:"index;not null"`
	Inmueble    Inmueble        `gorm:"foreignKey:InmuebleID"`
	Tipo        TipoTransaccion `gorm:"size:20;not null"`
	Descripcion string          `gorm:"size:255;not null"`
	Cantidad    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Fecha       time.Time       `gorm:"index;not null"`
	Mes         time.Time       `gorm:"index;not null"`
	EsBruto     bool            `gorm:"default:true"` // true si la cantidad es bruta
	CreatedAt   time.Time
}
