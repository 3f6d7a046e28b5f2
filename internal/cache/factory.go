package cache

import (
	"log"

	"alquileres-backend/internal/config"
)

// New elige la implementación según la configuración: redis si hay
// REDIS_ADDR, y si no (o si redis no responde) memoria local.
func New(cfg *config.Config) Store {
	if cfg.RedisAddr == "" {
		log.Println("Caché del dashboard en memoria (REDIS_ADDR no definido)")
		return NewMemoryStore()
	}

	store, err := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("[WARN] Redis no disponible (%v), usando caché en memoria. "+
			"Con varias instancias esto puede servir datos desfasados.", err)
		return NewMemoryStore()
	}

	log.Println("Caché del dashboard en redis:", cfg.RedisAddr)
	return store
}
