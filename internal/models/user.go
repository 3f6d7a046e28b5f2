package models

import "time"

type RolUsuario string

const (
	RolAdmin RolUsuario = "admin"
	RolSocio RolUsuario = "socio"
)

type User struct {
	ID           uint       `gorm:"primaryKey"`
	Nombre       string     `gorm:"size:100;not null"`
	Email        string     `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string     `gorm:"size:255;not null"`
	Rol          RolUsuario `gorm:"size:20;not null"`
	Activo       bool       `gorm:"default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
