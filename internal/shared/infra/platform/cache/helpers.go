package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const backgroundTimeout = 200 * time.Millisecond

// AsyncCacheSet actualiza caché en background sin bloquear.
// Usa un contexto propio: la actualización no depende de que la petición original siga viva.
func AsyncCacheSet(cache Cache, key string, value interface{}, ttl time.Duration, log *zap.Logger) {
	if cache == nil {
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if err := cache.Set(cacheCtx, key, value, ttl); err != nil {
			log.Warn("Cache update failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

// InvalidateCache elimina la key de forma síncrona; un fallo solo se registra.
// Se usa tras cambios de estado para que la siguiente lectura no vea un estado viejo.
func InvalidateCache(ctx context.Context, cache Cache, key string, log *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, key); err != nil {
		log.Warn("Cache deletion failed", zap.String("key", key), zap.Error(err))
	}
}
