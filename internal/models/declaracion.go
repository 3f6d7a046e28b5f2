package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trimestre string

const (
	TrimestreQ1 Trimestre = "Q1" // enero-marzo
	TrimestreQ2 Trimestre = "Q2" // abril-junio
	TrimestreQ3 Trimestre = "Q3" // julio-septiembre
	TrimestreQ4 Trimestre = "Q4" // octubre-diciembre
)

func TrimestreValido(t Trimestre) bool {
	switch t {
	case TrimestreQ1, TrimestreQ2, TrimestreQ3, TrimestreQ4:
		return true
	}
	return false
}

// DeclaracionTrimestral - seguimiento de declaraciones de IVA e IRPF.
// Única por (socio, año, trimestre).
type DeclaracionTrimestral struct {
	ID        uint      `gorm:"primaryKey"`
	SocioID   uint      `gorm:"not null;uniqueIndex:idx_declaracion_socio_anio_trimestre"`
	Socio     Socio     `gorm:"foreignKey:SocioID"`
	Anio      int       `gorm:"not null;uniqueIndex:idx_declaracion_socio_anio_trimestre"`
	Trimestre Trimestre `gorm:"size:2;not null;uniqueIndex:idx_declaracion_socio_anio_trimestre"`

	IvaTotalIngreso decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	IvaTotalGasto   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	IvaAPagar       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	IrpfTotal       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	Declarado        bool       `gorm:"default:false"`
	FechaDeclaracion *time.Time
	Notas            string     `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
