package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/hexacert/internal/shared/domain"
	sharedEvents "github.com/davicafu/hexacert/internal/shared/events"
	"github.com/davicafu/hexacert/internal/shared/infra/metrics"
	sharedBus "github.com/davicafu/hexacert/internal/shared/infra/platform/bus"
)

// Worker es el dispatcher del outbox: publica los mensajes pendientes y los marca como entregados.
// Entrega al menos una vez: si falla el marcado, el mensaje se volverá a publicar.
type Worker struct {
	repo          sharedDomain.OutboxRepository
	publisher     sharedBus.EventBus
	eventRegistry map[string]sharedEvents.EventMetadata
	interval      time.Duration
	batchSize     int
	metrics       *metrics.Metrics
	log           *zap.Logger
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventBus,
	registry map[string]sharedEvents.EventMetadata,
	interval time.Duration,
	batchSize int,
	m *metrics.Metrics,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:          repo,
		publisher:     publisher,
		eventRegistry: registry,
		interval:      interval,
		batchSize:     batchSize,
		metrics:       m,
		log:           log,
	}
}

// Start inicia el bucle de polling del worker. Bloquea hasta que se cancela el contexto.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("🚀 Outbox worker iniciado", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 Outbox worker detenido.")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch procesa un lote y devuelve cuántos mensajes se entregaron.
func (w *Worker) ProcessBatch(ctx context.Context) int {
	messages, err := w.repo.PollUndelivered(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error al obtener mensajes pendientes", zap.Error(err))
		return 0
	}
	if len(messages) > 0 {
		w.log.Debug(fmt.Sprintf("📬 %d mensajes encontrados para procesar", len(messages)))
	}

	delivered := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			return delivered
		}
		if w.publishAndMark(ctx, msg) {
			delivered++
		}
	}
	return delivered
}

func (w *Worker) publishAndMark(ctx context.Context, msg sharedDomain.OutboxMessage) bool {
	// 1. Validar el payload contra el tipo registrado
	metadata, ok := w.eventRegistry[msg.MessageType]
	if !ok {
		w.deadLetter(ctx, msg, fmt.Errorf("unknown message type %q", msg.MessageType))
		return false
	}

	target := reflect.New(metadata.Type).Interface()
	if err := json.Unmarshal(msg.Payload, target); err != nil {
		w.deadLetter(ctx, msg, fmt.Errorf("invalid payload: %w", err))
		return false
	}

	destination := msg.Destination
	if destination == "" {
		destination = metadata.Topic
	}

	envelope := sharedEvents.IntegrationEvent{
		ID:        msg.ID.String(),
		Type:      msg.MessageType,
		Key:       msg.AggregateID,
		Timestamp: msg.EnqueuedAt,
		Data:      msg.Payload,
	}

	// 2. Publicar; sin confirmación no se marca
	if err := w.publisher.Publish(ctx, destination, envelope); err != nil {
		w.log.Warn("⚠️ No se pudo publicar mensaje",
			zap.String("message_id", msg.ID.String()),
			zap.String("destination", destination),
			zap.Error(err),
		)
		w.metrics.OutboxResult("failed")
		return false
	}

	// 3. Marcar como entregado
	if err := w.repo.MarkDelivered(ctx, msg.ID, time.Now().UTC()); err != nil {
		w.log.Warn("⚠️ No se pudo marcar mensaje como entregado",
			zap.String("message_id", msg.ID.String()),
			zap.Error(err),
		)
		w.metrics.OutboxResult("mark_failed")
		return false
	}

	w.log.Info("✅ Mensaje publicado y marcado",
		zap.String("message_id", msg.ID.String()),
		zap.String("message_type", msg.MessageType),
		zap.String("destination", destination),
	)
	w.metrics.OutboxResult("delivered")
	return true
}

// deadLetter saca de la cola un mensaje que nunca podrá publicarse, para que no bloquee
// a los que vienen detrás. El contenido queda en el log y la fila sigue en la tabla.
func (w *Worker) deadLetter(ctx context.Context, msg sharedDomain.OutboxMessage, cause error) {
	w.log.Error("☠️ Mensaje descartado del outbox",
		zap.String("message_id", msg.ID.String()),
		zap.String("message_type", msg.MessageType),
		zap.String("aggregate_id", msg.AggregateID),
		zap.ByteString("payload", msg.Payload),
		zap.Error(cause),
	)
	if err := w.repo.MarkDelivered(ctx, msg.ID, time.Now().UTC()); err != nil {
		w.log.Warn("⚠️ No se pudo descartar el mensaje", zap.String("message_id", msg.ID.String()), zap.Error(err))
		w.metrics.OutboxResult("mark_failed")
		return
	}
	w.metrics.OutboxResult("dead_lettered")
}
