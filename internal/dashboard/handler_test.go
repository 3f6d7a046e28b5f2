package dashboard

import (
	"context"
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

func setupApp(t *testing.T) (*fiber.App, cache.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	cfg := &config.Config{JWTSecret: testSecret}
	store := cache.NewMemoryStore()

	app := fiber.New()
	protected := app.Group("/api", auth.JWTMiddleware(cfg))
	protected.Get("/dashboard", DashboardHandler(store, 5*time.Minute))

	return app, store
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

func crearInmueble(t *testing.T, nombre string, renta float64, activo bool, socioIDs ...uint) models.Inmueble {
	t.Helper()

	r := decimal.NewFromFloat(renta)
	inm := models.Inmueble{
		Nombre:              nombre,
		Tipo:                models.TipoPiso,
		Direccion:           "Calle Mayor 1",
		Ciudad:              "Madrid",
		CodigoPostal:        "28001",
		RentaMensual:        &r,
		IvaPorcentaje:       decimal.NewFromFloat(21.00),
		IrpfPorcentaje:      decimal.NewFromFloat(19.00),
		FechaInicioAlquiler: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Activo:              activo,
	}
	require.NoError(t, database.DB.Create(&inm).Error)
	for _, sid := range socioIDs {
		require.NoError(t, database.DB.Exec(
			"INSERT INTO inmueble_socios (inmueble_id, socio_id) VALUES (?, ?)",
			inm.ID, sid).Error)
	}
	return inm
}

func pedirDashboard(t *testing.T, app *fiber.App, token string) DashboardResponse {
	t.Helper()

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body DashboardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestDashboardAgregados(t *testing.T) {
	app, _ := setupApp(t)

	admin, _ := crearUsuario(t, models.RolAdmin, "admin@ejemplo.es")
	user, socioID := crearUsuario(t, models.RolSocio, "socio@ejemplo.es")

	inm := crearInmueble(t, "Piso centro", 800, true, *socioID)
	crearInmueble(t, "Local puerto", 1000, true)
	crearInmueble(t, "Casa baja", 500, false, *socioID) // de baja: fuera del panel

	gasto := models.Gasto{
		InmuebleID:  inm.ID,
		Categoria:   models.CategoriaReparacion,
		Descripcion: "Caldera",
		Cantidad:    decimal.NewFromInt(500),
		Fecha:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, database.DB.Create(&gasto).Error)

	adminToken, err := auth.GenerateToken(testSecret, &admin, nil)
	require.NoError(t, err)
	socioToken, err := auth.GenerateToken(testSecret, &user, socioID)
	require.NoError(t, err)

	t.Run("el socio ve solo su inmueble activo", func(t *testing.T) {
		body := pedirDashboard(t, app, socioToken)

		assert.Equal(t, 1, body.NumInmuebles)
		// 800*12 = 9600; IVA 21% = 2016; IRPF 19% = 1824; neta = 7776; con gastos = 7276
		assert.True(t, body.RentaAnualBruta.Equal(decimal.NewFromInt(9600)), body.RentaAnualBruta.String())
		assert.True(t, body.IvaTotal.Equal(decimal.NewFromInt(2016)), body.IvaTotal.String())
		assert.True(t, body.IrpfTotal.Equal(decimal.NewFromInt(1824)), body.IrpfTotal.String())
		assert.True(t, body.RentaAnualNeta.Equal(decimal.NewFromInt(7776)), body.RentaAnualNeta.String())
		assert.True(t, body.GastosTotales.Equal(decimal.NewFromInt(500)), body.GastosTotales.String())
		assert.True(t, body.RentaNetaConGastos.Equal(decimal.NewFromInt(7276)), body.RentaNetaConGastos.String())
	})

	t.Run("el admin agrega los dos activos", func(t *testing.T) {
		body := pedirDashboard(t, app, adminToken)

		assert.Equal(t, 2, body.NumInmuebles)
		// 9600 + 12000
		assert.True(t, body.RentaAnualBruta.Equal(decimal.NewFromInt(21600)), body.RentaAnualBruta.String())
		assert.True(t, body.GastosTotales.Equal(decimal.NewFromInt(500)), body.GastosTotales.String())
	})
}

func TestDashboardCache(t *testing.T) {
	app, store := setupApp(t)

	user, socioID := crearUsuario(t, models.RolSocio, "socio@ejemplo.es")
	crearInmueble(t, "Piso centro", 800, true, *socioID)

	token, err := auth.GenerateToken(testSecret, &user, socioID)
	require.NoError(t, err)

	primera := pedirDashboard(t, app, token)
	assert.Equal(t, 1, primera.NumInmuebles)

	// la primera petición deja la entrada en caché
	_, ok := store.Get(context.Background(), cache.KeySocio(*socioID))
	assert.True(t, ok)

	// una escritura directa en la base no se refleja hasta invalidar
	crearInmueble(t, "Garaje norte", 100, true, *socioID)
	segunda := pedirDashboard(t, app, token)
	assert.Equal(t, 1, segunda.NumInmuebles, "sirve la copia cacheada")

	cache.InvalidarDashboard(context.Background(), store, []uint{*socioID})
	tercera := pedirDashboard(t, app, token)
	assert.Equal(t, 2, tercera.NumInmuebles, "tras invalidar se recalcula")
}
