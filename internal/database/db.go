package database

import (
	"log"

	"alquileres-backend/internal/config"
	"alquileres-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("No se pudo conectar a la base de datos: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Error en AutoMigrate: %v", err)
	}

	log.Println("Conexión a base de datos establecida. Migración completada.")
}

// Migrate aplica el esquema; separado de Init para poder usarlo
// también sobre la base sqlite de los tests.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Socio{},
		&models.Inmueble{},
		&models.Gasto{},
		&models.Transaccion{},
		&models.DeclaracionTrimestral{},
		&models.AuditLog{},
	)
}
