// Package acceso decide qué inmuebles puede ver cada usuario:
// un administrador los ve todos, un socio solo los suyos, cualquier
// otro usuario ninguno. Debe consultarse antes de leer, modificar o
// borrar un inmueble o sus gastos.
package acceso

import (
	"alquileres-backend/internal/models"

	"gorm.io/gorm"
)

// QueryInmueblesVisibles devuelve la consulta base restringida al conjunto
// visible del usuario, para que los listados añadan sus propios filtros.
func QueryInmueblesVisibles(db *gorm.DB, rol models.RolUsuario, socioID *uint) *gorm.DB {
	q := db.Model(&models.Inmueble{})

	switch {
	case rol == models.RolAdmin:
		// sin filtro: todos
	case socioID != nil:
		q = q.Joins("JOIN inmueble_socios ON inmueble_socios.inmueble_id = inmuebles.id").
			Where("inmueble_socios.socio_id = ?", *socioID)
	default:
		// usuario sin ficha de socio y sin rol de administrador: nada
		q = q.Where("1 = 0")
	}

	return q
}

// InmueblesVisibles resuelve el conjunto visible completo para un usuario.
func InmueblesVisibles(db *gorm.DB, rol models.RolUsuario, socioID *uint, soloActivos bool) ([]models.Inmueble, error) {
	q := QueryInmueblesVisibles(db, rol, socioID).Order("nombre asc")

	if soloActivos {
		q = q.Where("inmuebles.activo = ?", true)
	}

	var inmuebles []models.Inmueble
	if err := q.Find(&inmuebles).Error; err != nil {
		return nil, err
	}
	return inmuebles, nil
}

// PuedeVerInmueble comprueba si el usuario tiene acceso a un inmueble concreto.
func PuedeVerInmueble(db *gorm.DB, rol models.RolUsuario, socioID *uint, inmuebleID uint) (bool, error) {
	if rol == models.RolAdmin {
		return true, nil
	}
	if socioID == nil {
		return false, nil
	}

	var count int64
	err := db.Table("inmueble_socios").
		Where("inmueble_id = ? AND socio_id = ?", inmuebleID, *socioID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SociosDeInmueble devuelve los ids de los socios asociados a un inmueble.
// Se usa para invalidar sus entradas de caché tras una escritura.
func SociosDeInmueble(db *gorm.DB, inmuebleID uint) ([]uint, error) {
	var ids []uint
	err := db.Table("inmueble_socios").
		Where("inmueble_id = ?", inmuebleID).
		Pluck("socio_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
