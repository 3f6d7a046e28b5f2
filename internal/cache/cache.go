// Package cache guarda resultados de consultas con caducidad, para el
// dashboard. Hay dos implementaciones: redis para despliegues con varias
// instancias y un mapa en memoria para instancia única y tests.
package cache

import (
	"context"
	"fmt"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	DeletePrefix(ctx context.Context, prefix string)
}

const (
	prefijoSocio = "dashboard:socio:"
	// Las entradas de administradores comparten prefijo para poder
	// borrarlas todas de golpe tras cualquier escritura.
	PrefijoAdmin = "dashboard:admin:"
)

func KeySocio(socioID uint) string {
	return fmt.Sprintf("%s%d", prefijoSocio, socioID)
}

func KeyAdmin(userID uint) string {
	return fmt.Sprintf("%s%d", PrefijoAdmin, userID)
}

// InvalidarDashboard borra las entradas de los socios afectados por una
// escritura y todas las de administradores.
func InvalidarDashboard(ctx context.Context, store Store, socioIDs []uint) {
	keys := make([]string, 0, len(socioIDs))
	for _, id := range socioIDs {
		keys = append(keys, KeySocio(id))
	}
	if len(keys) > 0 {
		store.Delete(ctx, keys...)
	}
	store.DeletePrefix(ctx, PrefijoAdmin)
}
