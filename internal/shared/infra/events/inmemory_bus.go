package events

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	sharedBus "github.com/davicafu/hexacert/internal/shared/infra/platform/bus"
)

// InMemoryEventBus implementa un bus de eventos con canales de Go, un conjunto de suscriptores por topic.
type InMemoryEventBus struct {
	subscribers map[string][]chan []byte
	mu          sync.RWMutex
}

// Verifica en tiempo de compilación que cumple las interfaces
var (
	_ sharedBus.EventBus   = (*InMemoryEventBus)(nil)
	_ sharedBus.Subscriber = (*InMemoryEventBus)(nil)
)

func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string][]chan []byte),
	}
}

// Publish entrega el evento a todos los suscriptores del topic.
// Espera a que haya hueco en cada canal o a que se cancele el contexto, para no perder mensajes.
func (b *InMemoryEventBus) Publish(ctx context.Context, topic string, event interface{}) error {
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()

	for _, subChan := range subs {
		select {
		case subChan <- payloadBytes:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe suscribe un nuevo oyente al topic.
func (b *InMemoryEventBus) Subscribe(topic string, bufferSize int) <-chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	subChan := make(chan []byte, bufferSize)
	b.subscribers[topic] = append(b.subscribers[topic], subChan)
	return subChan
}

// BackgroundConsumerChan consume un canal del bus en memoria con el mismo handler que Kafka.
func BackgroundConsumerChan(ctx context.Context, ch <-chan []byte, handler MessageHandler, log *zap.Logger) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("Consumidor en memoria detenido")
				return
			case payload := <-ch:
				if err := handler.HandleMessage(ctx, "", payload); err != nil {
					log.Warn("⚠️ Error procesando mensaje en memoria", zap.Error(err))
				}
			}
		}
	}()
}
