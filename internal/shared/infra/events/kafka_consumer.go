package events

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler define la interfaz que debe cumplir cualquier consumidor de eventos.
// Si devuelve error el mensaje no se confirma y se volverá a entregar.
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, payload []byte) error
}

// MessageReader es el subconjunto de *kafka.Reader que usa el adapter.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
}

// ConsumerAdapter es el "oído" que escucha en Kafka.
type ConsumerAdapter struct {
	reader  MessageReader
	handler MessageHandler
	log     *zap.Logger
}

func NewConsumerAdapter(reader MessageReader, handler MessageHandler, log *zap.Logger) *ConsumerAdapter {
	return &ConsumerAdapter{
		reader:  reader,
		handler: handler,
		log:     log,
	}
}

// Start inicia el bucle de consumo de mensajes en una goroutine.
func (c *ConsumerAdapter) Start(ctx context.Context) {
	c.log.Info("🎧 Iniciando consumidor de Kafka...",
		zap.String("topic", c.reader.Config().Topic),
		zap.Strings("brokers", c.reader.Config().Brokers),
	)

	go c.run(ctx)
}

func (c *ConsumerAdapter) run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			// Si el contexto se cancela, el error es normal y salimos limpiamente.
			if ctx.Err() != nil {
				c.log.Info("Consumidor de Kafka detenido.", zap.String("topic", c.reader.Config().Topic))
				return
			}
			c.log.Error("Error al leer mensaje de Kafka", zap.Error(err))
			continue
		}

		if !c.consume(ctx, msg) {
			return
		}
	}
}

// consume procesa un mensaje y lo confirma solo si el handler terminó bien.
// Devuelve false cuando el contexto se ha cancelado.
func (c *ConsumerAdapter) consume(ctx context.Context, msg kafka.Message) bool {
	if err := c.handler.HandleMessage(ctx, string(msg.Key), msg.Value); err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.log.Warn("Mensaje no confirmado, se reintentará",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return true
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Warn("No se pudo confirmar el offset", zap.Int64("offset", msg.Offset), zap.Error(err))
	}
	return ctx.Err() == nil
}
