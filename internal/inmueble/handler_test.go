package inmueble

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alquileres-backend/internal/auth"
	"alquileres-backend/internal/cache"
	"alquileres-backend/internal/config"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "secreto-de-pruebas-con-longitud-suficiente"

func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	cfg := &config.Config{JWTSecret: testSecret}
	store := cache.NewMemoryStore()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error inesperado del servidor"})
		},
	})
	protected := app.Group("/api", auth.JWTMiddleware(cfg))
	protected.Get("/inmuebles", ListInmueblesHandler())
	protected.Post("/inmuebles", CreateInmuebleHandler(store))
	protected.Get("/inmuebles/:id", GetInmuebleHandler())
	protected.Put("/inmuebles/:id", UpdateInmuebleHandler(store))
	protected.Delete("/inmuebles/:id", DeleteInmuebleHandler(store))

	return app
}

func crearUsuario(t *testing.T, rol models.RolUsuario, email string) (models.User, *uint) {
	t.Helper()

	user := models.User{
		Nombre:       email,
		Email:        email,
		PasswordHash: "x",
		Rol:          rol,
		Activo:       true,
	}
	require.NoError(t, database.DB.Create(&user).Error)

	if rol != models.RolSocio {
		return user, nil
	}
	socio := models.Socio{UserID: user.ID, Activo: true}
	require.NoError(t, database.DB.Create(&socio).Error)
	return user, &socio.ID
}

func tokenDe(t *testing.T, user models.User, socioID *uint) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, &user, socioID)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestCreateInmuebleComoSocio(t *testing.T) {
	app := setupApp(t)
	user, socioID := crearUsuario(t, models.RolSocio, "socio@ejemplo.es")
	token := tokenDe(t, user, socioID)

	resp := doJSON(t, app, "POST", "/api/inmuebles", token, fiber.Map{
		"nombre":                "Piso centro",
		"tipo":                  "PISO",
		"direccion":             "Calle Mayor 1",
		"ciudad":                "Madrid",
		"codigo_postal":         "28001",
		"renta_mensual":         "800.00",
		"fecha_inicio_alquiler": "2024-01-01",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var creado InmuebleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&creado))
	assert.True(t, creado.Activo)
	assert.True(t, creado.IvaPorcentaje.Equal(decimal.NewFromFloat(21.00)), "IVA por defecto")
	assert.True(t, creado.IrpfPorcentaje.Equal(decimal.NewFromFloat(19.00)), "IRPF por defecto")

	// el socio que da el alta queda asociado en la misma transacción
	var count int64
	require.NoError(t, database.DB.Table("inmueble_socios").
		Where("inmueble_id = ? AND socio_id = ?", creado.ID, *socioID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// y por tanto lo ve en su listado
	resp = doJSON(t, app, "GET", "/api/inmuebles", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var lista ListInmueblesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lista))
	assert.EqualValues(t, 1, lista.Total)
}

func TestCreateInmuebleValidaciones(t *testing.T) {
	app := setupApp(t)
	user, socioID := crearUsuario(t, models.RolSocio, "socio@ejemplo.es")
	token := tokenDe(t, user, socioID)

	t.Run("faltan campos obligatorios", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/inmuebles", token, fiber.Map{
			"nombre": "Sin dirección",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("tipo desconocido", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/inmuebles", token, fiber.Map{
			"nombre":                "Piso",
			"tipo":                  "CHALET",
			"direccion":             "Calle Mayor 1",
			"ciudad":                "Madrid",
			"codigo_postal":         "28001",
			"fecha_inicio_alquiler": "2024-01-01",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("renta negativa", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/inmuebles", token, fiber.Map{
			"nombre":                "Piso",
			"direccion":             "Calle Mayor 1",
			"ciudad":                "Madrid",
			"codigo_postal":         "28001",
			"renta_mensual":         "-100.00",
			"fecha_inicio_alquiler": "2024-01-01",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetInmuebleAccesos(t *testing.T) {
	app := setupApp(t)

	propietario, propietarioSocioID := crearUsuario(t, models.RolSocio, "dueno@ejemplo.es")
	ajeno, ajenoSocioID := crearUsuario(t, models.RolSocio, "ajeno@ejemplo.es")
	admin, _ := crearUsuario(t, models.RolAdmin, "admin@ejemplo.es")

	inm := models.Inmueble{
		Nombre:              "Piso centro",
		Tipo:                models.TipoPiso,
		Direccion:           "Calle Mayor 1",
		Ciudad:              "Madrid",
		CodigoPostal:        "28001",
		FechaInicioAlquiler: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Activo:              true,
	}
	require.NoError(t, database.DB.Create(&inm).Error)
	require.NoError(t, database.DB.Exec(
		"INSERT INTO inmueble_socios (inmueble_id, socio_id) VALUES (?, ?)",
		inm.ID, *propietarioSocioID).Error)

	t.Run("el propietario lo ve", func(t *testing.T) {
		resp := doJSON(t, app, "GET", fmt.Sprintf("/api/inmuebles/%d", inm.ID), tokenDe(t, propietario, propietarioSocioID), nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("el admin lo ve", func(t *testing.T) {
		resp := doJSON(t, app, "GET", fmt.Sprintf("/api/inmuebles/%d", inm.ID), tokenDe(t, admin, nil), nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("un socio ajeno recibe 403", func(t *testing.T) {
		resp := doJSON(t, app, "GET", fmt.Sprintf("/api/inmuebles/%d", inm.ID), tokenDe(t, ajeno, ajenoSocioID), nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("inmueble inexistente da 404", func(t *testing.T) {
		resp := doJSON(t, app, "GET", "/api/inmuebles/99999", tokenDe(t, admin, nil), nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteInmuebleEsBajaLogica(t *testing.T) {
	app := setupApp(t)
	user, socioID := crearUsuario(t, models.RolSocio, "socio@ejemplo.es")
	token := tokenDe(t, user, socioID)

	inm := models.Inmueble{
		Nombre:              "Piso centro",
		Tipo:                models.TipoPiso,
		Direccion:           "Calle Mayor 1",
		Ciudad:              "Madrid",
		CodigoPostal:        "28001",
		FechaInicioAlquiler: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Activo:              true,
	}
	require.NoError(t, database.DB.Create(&inm).Error)
	require.NoError(t, database.DB.Exec(
		"INSERT INTO inmueble_socios (inmueble_id, socio_id) VALUES (?, ?)",
		inm.ID, *socioID).Error)

	gasto := models.Gasto{
		InmuebleID:  inm.ID,
		Categoria:   models.CategoriaReparacion,
		Descripcion: "Caldera",
		Cantidad:    decimal.NewFromInt(250),
		Fecha:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, database.DB.Create(&gasto).Error)

	resp := doJSON(t, app, "DELETE", fmt.Sprintf("/api/inmuebles/%d", inm.ID), token, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// la fila sigue, solo se desactiva
	var guardado models.Inmueble
	require.NoError(t, database.DB.First(&guardado, inm.ID).Error)
	assert.False(t, guardado.Activo)

	// y el histórico de gastos se conserva
	var gastos int64
	require.NoError(t, database.DB.Model(&models.Gasto{}).
		Where("inmueble_id = ?", inm.ID).
		Count(&gastos).Error)
	assert.EqualValues(t, 1, gastos)
}

func TestUpdateInmuebleParcial(t *testing.T) {
	app := setupApp(t)
	admin, _ := crearUsuario(t, models.RolAdmin, "admin@ejemplo.es")
	token := tokenDe(t, admin, nil)

	renta := decimal.NewFromInt(600)
	inm := models.Inmueble{
		Nombre:              "Local puerto",
		Tipo:                models.TipoLocal,
		Direccion:           "Muelle 3",
		Ciudad:              "Valencia",
		CodigoPostal:        "46001",
		RentaMensual:        &renta,
		IvaPorcentaje:       decimal.NewFromFloat(21.00),
		IrpfPorcentaje:      decimal.NewFromFloat(19.00),
		FechaInicioAlquiler: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Activo:              true,
	}
	require.NoError(t, database.DB.Create(&inm).Error)

	resp := doJSON(t, app, "PUT", fmt.Sprintf("/api/inmuebles/%d", inm.ID), token, fiber.Map{
		"renta_mensual": "750.50",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var actualizado InmuebleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&actualizado))
	require.NotNil(t, actualizado.RentaMensual)
	assert.True(t, actualizado.RentaMensual.Equal(decimal.NewFromFloat(750.50)))
	// los campos no enviados no cambian
	assert.Equal(t, "Local puerto", actualizado.Nombre)
	assert.Equal(t, models.TipoLocal, actualizado.Tipo)
}
