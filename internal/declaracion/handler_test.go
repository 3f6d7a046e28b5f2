package declaracion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"alquileres-backend/internal/auth"
	"alquileres-backend/internal/config"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
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

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error inesperado del servidor"})
		},
	})
	protected := app.Group("/api", auth.JWTMiddleware(cfg))
	protected.Post("/declaraciones", CreateDeclaracionHandler())
	protected.Get("/declaraciones", ListDeclaracionesHandler())
	protected.Get("/declaraciones/:id", GetDeclaracionHandler())
	protected.Put("/declaraciones/:id", UpdateDeclaracionHandler())
	protected.Delete("/declaraciones/:id", DeleteDeclaracionHandler())

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

func TestCreateDeclaracion(t *testing.T) {
	app := setupApp(t)
	user, socioID := crearUsuario(t, models.RolSocio, "socio@ejemplo.es")
	token := tokenDe(t, user, socioID)

	resp := doJSON(t, app, "POST", "/api/declaraciones", token, fiber.Map{
		"anio":              2025,
		"trimestre":         "Q1",
		"iva_total_ingreso": "504.00",
		"irpf_total":        "456.00",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var creada DeclaracionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&creada))
	assert.Equal(t, *socioID, creada.SocioID, "un socio declara siempre a su nombre")
	assert.False(t, creada.Declarado)

	t.Run("el mismo trimestre no se repite", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/declaraciones", token, fiber.Map{
			"anio":      2025,
			"trimestre": "Q1",
		})
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("otro trimestre sí", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/declaraciones", token, fiber.Map{
			"anio":      2025,
			"trimestre": "Q2",
		})
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	})

	t.Run("trimestre desconocido", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/declaraciones", token, fiber.Map{
			"anio":      2025,
			"trimestre": "Q5",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestCreateDeclaracionComoAdmin(t *testing.T) {
	app := setupApp(t)
	admin, _ := crearUsuario(t, models.RolAdmin, "admin@ejemplo.es")
	_, socioID := crearUsuario(t, models.RolSocio, "socio@ejemplo.es")
	token := tokenDe(t, admin, nil)

	t.Run("sin socio_id se rechaza", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/declaraciones", token, fiber.Map{
			"anio":      2025,
			"trimestre": "Q3",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("a nombre de un socio", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/declaraciones", token, fiber.Map{
			"socio_id":  *socioID,
			"anio":      2025,
			"trimestre": "Q3",
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var creada DeclaracionResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&creada))
		assert.Equal(t, *socioID, creada.SocioID)
	})
}

func TestDeclaracionAislamientoEntreSocios(t *testing.T) {
	app := setupApp(t)
	userA, socioA := crearUsuario(t, models.RolSocio, "a@ejemplo.es")
	userB, socioB := crearUsuario(t, models.RolSocio, "b@ejemplo.es")
	tokenA := tokenDe(t, userA, socioA)
	tokenB := tokenDe(t, userB, socioB)

	resp := doJSON(t, app, "POST", "/api/declaraciones", tokenA, fiber.Map{
		"anio":      2025,
		"trimestre": "Q1",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var decl DeclaracionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decl))

	t.Run("otro socio no la ve", func(t *testing.T) {
		resp := doJSON(t, app, "GET", fmt.Sprintf("/api/declaraciones/%d", decl.ID), tokenB, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("ni la modifica", func(t *testing.T) {
		resp := doJSON(t, app, "PUT", fmt.Sprintf("/api/declaraciones/%d", decl.ID), tokenB, fiber.Map{
			"declarado": true,
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("el listado de cada socio solo trae las suyas", func(t *testing.T) {
		resp := doJSON(t, app, "GET", "/api/declaraciones", tokenB, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var lista []DeclaracionResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&lista))
		assert.Empty(t, lista)
	})
}

func TestUpdateDeclaracionMarcarDeclarada(t *testing.T) {
	app := setupApp(t)
	user, socioID := crearUsuario(t, models.RolSocio, "socio@ejemplo.es")
	token := tokenDe(t, user, socioID)

	resp := doJSON(t, app, "POST", "/api/declaraciones", token, fiber.Map{
		"anio":      2025,
		"trimestre": "Q1",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var decl DeclaracionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decl))

	resp = doJSON(t, app, "PUT", fmt.Sprintf("/api/declaraciones/%d", decl.ID), token, fiber.Map{
		"declarado":         true,
		"fecha_declaracion": "2025-04-20",
		"notas":             "Presentada por sede electrónica",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var actualizada DeclaracionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&actualizada))
	assert.True(t, actualizada.Declarado)
	require.NotNil(t, actualizada.FechaDeclaracion)
	assert.Equal(t, "2025-04-20", *actualizada.FechaDeclaracion)
	assert.Equal(t, "Presentada por sede electrónica", actualizada.Notas)
}
