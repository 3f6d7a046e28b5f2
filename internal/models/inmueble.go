package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TipoInmueble string

const (
	TipoPiso   TipoInmueble = "PISO"
	TipoLocal  TipoInmueble = "LOCAL"
	TipoCasa   TipoInmueble = "CASA"
	TipoGaraje TipoInmueble = "GARAJE"
)

// TipoInmuebleValido - tipos admitidos en alta y filtros
func TipoInmuebleValido(t TipoInmueble) bool {
	switch t {
	case TipoPiso, TipoLocal, TipoCasa, TipoGaraje:
		return true
	}
	return false
}

// Inmueble - propiedad en alquiler. Las cifras fiscales derivadas
// (renta anual, IVA, IRPF...) se calculan siempre al leer, nunca se guardan.
type Inmueble struct {
	ID                  uint         `gorm:"primaryKey"`
	Nombre              string       `gorm:"size:255;not null"`
	Tipo                TipoInmueble `gorm:"size:20;not null;default:'PISO'"`
	Direccion           string       `gorm:"size:255;not null"`
	Ciudad              string       `gorm:"size:100;not null"`
	CodigoPostal        string       `gorm:"size:10;not null"`
	ReferenciasCatastro *string      `gorm:"size:255"`

	// Datos fiscales
	RentaMensual   *decimal.Decimal `gorm:"type:decimal(12,2)"` // sin renta => cifras derivadas a 0
	IvaPorcentaje  decimal.Decimal  `gorm:"type:decimal(5,2);not null;default:21.00"`
	IrpfPorcentaje decimal.Decimal  `gorm:"type:decimal(5,2);not null;default:19.00"`

	FechaInicioAlquiler time.Time  `gorm:"not null"`
	FechaFinAlquiler    *time.Time

	// Baja lógica: el inmueble se desactiva, nunca se borra la fila,
	// para conservar el histórico de gastos y transacciones.
	Activo bool `gorm:"default:true;index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Socios         []Socio       `gorm:"many2many:inmueble_socios"`
	Gastos         []Gasto       `gorm:"foreignKey:InmuebleID"`
	Transacciones  []Transaccion `gorm:"foreignKey:InmuebleID"`
}
