package main

import (
	"log"
	"strings"

	"alquileres-backend/internal/audit"
	"alquileres-backend/internal/auth"
	"alquileres-backend/internal/cache"
	"alquileres-backend/internal/config"
	"alquileres-backend/internal/dashboard"
	"alquileres-backend/internal/database"
	"alquileres-backend/internal/declaracion"
	"alquileres-backend/internal/gasto"
	"alquileres-backend/internal/inmueble"
	"alquileres-backend/internal/models"
	"alquileres-backend/internal/reportes"
	"alquileres-backend/internal/socio"
	"alquileres-backend/internal/transaccion"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)
	store := cache.New(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Error no controlado:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error inesperado del servidor",
			})
		},
	})

	// CORS: orígenes separados por comas en la configuración
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Rutas públicas
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Rutas protegidas
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Panel principal; /dashboard-data mantiene la ruta que consume el frontend
	protected.Get("/dashboard", dashboard.DashboardHandler(store, cfg.CacheTTL))
	protected.Get("/dashboard-data", dashboard.DashboardHandler(store, cfg.CacheTTL))

	// Inmuebles
	protected.Get("/inmuebles", inmueble.ListInmueblesHandler())
	protected.Post("/inmuebles", inmueble.CreateInmuebleHandler(store))
	protected.Get("/inmuebles/:id", inmueble.GetInmuebleHandler())
	protected.Put("/inmuebles/:id", inmueble.UpdateInmuebleHandler(store))
	protected.Delete("/inmuebles/:id", inmueble.DeleteInmuebleHandler(store))

	// Gastos de un inmueble
	protected.Post("/inmuebles/:id/gastos", gasto.CreateGastoHandler(store))
	protected.Get("/inmuebles/:id/gastos", gasto.ListGastosHandler())
	protected.Put("/gastos/:id", gasto.UpdateGastoHandler(store))
	protected.Delete("/gastos/:id", gasto.DeleteGastoHandler(store))

	// Transacciones de un inmueble
	protected.Post("/inmuebles/:id/transacciones", transaccion.CreateTransaccionHandler(store))
	protected.Get("/inmuebles/:id/transacciones", transaccion.ListTransaccionesHandler())
	protected.Delete("/transacciones/:id", transaccion.DeleteTransaccionHandler(store))

	// Declaraciones trimestrales
	protected.Post("/declaraciones", declaracion.CreateDeclaracionHandler())
	protected.Get("/declaraciones", declaracion.ListDeclaracionesHandler())
	protected.Get("/declaraciones/:id", declaracion.GetDeclaracionHandler())
	protected.Put("/declaraciones/:id", declaracion.UpdateDeclaracionHandler())
	protected.Delete("/declaraciones/:id", declaracion.DeleteDeclaracionHandler())

	// Reportes
	protected.Get("/reportes/anual", reportes.ReporteAnualHandler())

	// Rutas de administrador
	adminRoutes := protected.Group("")
	adminRoutes.Use(auth.RequireRol(models.RolAdmin))

	adminRoutes.Post("/socios", socio.CreateSocioHandler())
	adminRoutes.Get("/socios", socio.ListSociosHandler())
	adminRoutes.Put("/socios/:id", socio.UpdateSocioHandler())

	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Println("Servidor escuchando en el puerto", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
