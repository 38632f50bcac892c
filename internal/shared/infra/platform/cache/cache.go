package cache

import (
	"context"
	"time"
)

// Cache es una caché clave-valor genérica; los valores viajan serializados en JSON.
type Cache interface {
	// Get rellena dest (puntero). Devuelve (true, nil) en un hit y (false, nil) en un miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set guarda el valor con el TTL indicado; ttl <= 0 usa el TTL por defecto del adapter.
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
}
