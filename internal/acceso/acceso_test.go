package acceso

import (
	"fmt"
	"testing"
	"time"

	"alquileres-backend/internal/database"
	"alquileres-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func crearSocio(t *testing.T, db *gorm.DB, email string) models.Socio {
	t.Helper()

	user := models.User{
		Nombre:       email,
		Email:        email,
		PasswordHash: "x",
		Rol:          models.RolSocio,
		Activo:       true,
	}
	require.NoError(t, db.Create(&user).Error)

	socio := models.Socio{UserID: user.ID, Activo: true}
	require.NoError(t, db.Create(&socio).Error)
	return socio
}

func crearInmueble(t *testing.T, db *gorm.DB, nombre string, activo bool, socios ...models.Socio) models.Inmueble {
	t.Helper()

	inm := models.Inmueble{
		Nombre:              nombre,
		Tipo:                models.TipoPiso,
		Direccion:           "Calle Mayor 1",
		Ciudad:              "Madrid",
		CodigoPostal:        "28001",
		FechaInicioAlquiler: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Activo:              activo,
	}
	require.NoError(t, db.Create(&inm).Error)
	if len(socios) > 0 {
		require.NoError(t, db.Model(&inm).Association("Socios").Append(socios))
	}
	return inm
}

func TestInmueblesVisibles(t *testing.T) {
	db := setupDB(t)

	socioA := crearSocio(t, db, "a@ejemplo.es")
	socioB := crearSocio(t, db, "b@ejemplo.es")

	crearInmueble(t, db, "Piso centro", true, socioA)
	crearInmueble(t, db, "Local puerto", true, socioA, socioB)
	crearInmueble(t, db, "Garaje norte", true, socioB)
	crearInmueble(t, db, "Casa baja", false, socioA)

	t.Run("el admin ve todos", func(t *testing.T) {
		vistos, err := InmueblesVisibles(db, models.RolAdmin, nil, false)
		require.NoError(t, err)
		assert.Len(t, vistos, 4)
	})

	t.Run("el admin puede filtrar por activos", func(t *testing.T) {
		vistos, err := InmueblesVisibles(db, models.RolAdmin, nil, true)
		require.NoError(t, err)
		assert.Len(t, vistos, 3)
	})

	t.Run("un socio solo ve los suyos", func(t *testing.T) {
		vistos, err := InmueblesVisibles(db, models.RolSocio, &socioA.ID, false)
		require.NoError(t, err)
		require.Len(t, vistos, 3)
		for _, inm := range vistos {
			assert.NotEqual(t, "Garaje norte", inm.Nombre)
		}
	})

	t.Run("un socio no ve sus inmuebles de baja si se piden activos", func(t *testing.T) {
		vistos, err := InmueblesVisibles(db, models.RolSocio, &socioA.ID, true)
		require.NoError(t, err)
		assert.Len(t, vistos, 2)
	})

	t.Run("usuario sin ficha de socio no ve nada", func(t *testing.T) {
		vistos, err := InmueblesVisibles(db, models.RolSocio, nil, false)
		require.NoError(t, err)
		assert.Empty(t, vistos)
	})
}

func TestPuedeVerInmueble(t *testing.T) {
	db := setupDB(t)

	socioA := crearSocio(t, db, "a@ejemplo.es")
	socioB := crearSocio(t, db, "b@ejemplo.es")
	inm := crearInmueble(t, db, "Piso centro", true, socioA)

	ok, err := PuedeVerInmueble(db, models.RolAdmin, nil, inm.ID)
	require.NoError(t, err)
	assert.True(t, ok, "el admin accede a cualquier inmueble")

	ok, err = PuedeVerInmueble(db, models.RolSocio, &socioA.ID, inm.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = PuedeVerInmueble(db, models.RolSocio, &socioB.ID, inm.ID)
	require.NoError(t, err)
	assert.False(t, ok, "un socio ajeno no tiene acceso")

	ok, err = PuedeVerInmueble(db, models.RolSocio, nil, inm.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSociosDeInmueble(t *testing.T) {
	db := setupDB(t)

	socioA := crearSocio(t, db, "a@ejemplo.es")
	socioB := crearSocio(t, db, "b@ejemplo.es")
	compartido := crearInmueble(t, db, "Local puerto", true, socioA, socioB)
	sinSocios := crearInmueble(t, db, "Garaje norte", true)

	ids, err := SociosDeInmueble(db, compartido.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{socioA.ID, socioB.ID}, ids)

	ids, err = SociosDeInmueble(db, sinSocios.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
