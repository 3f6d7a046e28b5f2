package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// MemoryStore - caché en memoria con caducidad por clave.
// No comparte estado entre instancias del proceso.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{items: make(map[string]memoryItem)}
	go s.limpiar()
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok || time.Now().After(item.expiresAt) {
		return "", false
	}
	return item.value, true
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) {
	s.mu.Lock()
	s.items[key] = memoryItem{value: value, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.items, k)
	}
	s.mu.Unlock()
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) {
	s.mu.Lock()
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			delete(s.items, k)
		}
	}
	s.mu.Unlock()
}

// barrido periódico de entradas caducadas
func (s *MemoryStore) limpiar() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		s.mu.Lock()
		for k, item := range s.items {
			if now.After(item.expiresAt) {
				delete(s.items, k)
			}
		}
		s.mu.Unlock()
	}
}
