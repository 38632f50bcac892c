package bus

import "context"

// Keyer lo implementan los eventos que fijan su clave de partición.
type Keyer interface {
	PartitionKey() string
}

// EventBus publica un evento en un topic concreto.
// La semántica de topic/nombre y formato del payload la deciden los adapters.
type EventBus interface {
	Publish(ctx context.Context, topic string, event interface{}) error
}

// Subscriber entrega los payloads ya serializados de un topic.
type Subscriber interface {
	Subscribe(topic string, bufferSize int) <-chan []byte
}
