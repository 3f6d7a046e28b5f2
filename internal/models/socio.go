package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Socio - copropietario con un porcentaje de participación sobre sus inmuebles.
// Relación uno a uno con el usuario de acceso.
type Socio struct {
	ID                       uint            `gorm:"primaryKey"`
	UserID                   uint            `gorm:"uniqueIndex;not null"`
	User                     User            `gorm:"foreignKey:UserID"`
	PorcentajeParticipacion  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:100.00"` // 0-100
	Activo                   bool            `gorm:"default:true"`
	CreatedAt                time.Time
	UpdatedAt                time.Time

	Inmuebles []Inmueble `gorm:"many2many:inmueble_socios"`
}
