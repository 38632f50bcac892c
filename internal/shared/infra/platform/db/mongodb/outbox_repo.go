package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davicafu/hexacert/internal/shared/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const OutboxCollection = "outbox"

// OutboxRepoMongoDB implementa la interfaz domain.OutboxRepository.
type OutboxRepoMongoDB struct {
	outboxColl *mongo.Collection
}

func NewOutboxRepoMongoDB(client *mongo.Client, dbName string) *OutboxRepoMongoDB {
	return &OutboxRepoMongoDB{outboxColl: client.Database(dbName).Collection(OutboxCollection)}
}

// MongoOutboxMessage mapea los documentos de la colección outbox.
// El payload se guarda como string JSON para no reinterpretarlo como BSON.
type MongoOutboxMessage struct {
	ID          string     `bson:"_id"`
	AggregateID string     `bson:"aggregateId"`
	MessageType string     `bson:"messageType"`
	Destination string     `bson:"destination"`
	Payload     string     `bson:"payload"`
	EnqueuedAt  time.Time  `bson:"enqueuedAt"`
	DeliveredAt *time.Time `bson:"deliveredAt"`
}

func ToMongoOutboxMessage(msg domain.OutboxMessage) MongoOutboxMessage {
	return MongoOutboxMessage{
		ID:          msg.ID.String(),
		AggregateID: msg.AggregateID,
		MessageType: msg.MessageType,
		Destination: msg.Destination,
		Payload:     string(msg.Payload),
		EnqueuedAt:  msg.EnqueuedAt,
		DeliveredAt: msg.DeliveredAt,
	}
}

func fromMongoOutboxMessage(mo *MongoOutboxMessage) (domain.OutboxMessage, error) {
	id, err := uuid.Parse(mo.ID)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("invalid UUID in outbox document: %w", err)
	}
	return domain.OutboxMessage{
		ID:          id,
		AggregateID: mo.AggregateID,
		MessageType: mo.MessageType,
		Destination: mo.Destination,
		Payload:     json.RawMessage(mo.Payload),
		EnqueuedAt:  mo.EnqueuedAt,
		DeliveredAt: mo.DeliveredAt,
	}, nil
}

// PollUndelivered obtiene los mensajes no entregados de la colección outbox.
func (r *OutboxRepoMongoDB) PollUndelivered(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	filter := bson.M{"deliveredAt": nil}
	opts := options.Find().SetSort(bson.D{{Key: "enqueuedAt", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.outboxColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []domain.OutboxMessage
	for cursor.Next(ctx) {
		var mo MongoOutboxMessage
		if err := cursor.Decode(&mo); err != nil {
			return nil, err
		}
		msg, err := fromMongoOutboxMessage(&mo)
		if err != nil {
			// Documento con _id ilegible: no se puede marcar, así que no se devuelve
			continue
		}
		messages = append(messages, msg)
	}

	return messages, cursor.Err()
}

// MarkDelivered marca un mensaje como entregado si aún no lo estaba.
func (r *OutboxRepoMongoDB) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	filter := bson.M{"_id": id.String()}
	// Pipeline de actualización: conserva la fecha si ya estaba entregado.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"deliveredAt": bson.M{"$ifNull": bson.A{"$deliveredAt", at}}}}},
	}

	res, err := r.outboxColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOutboxMessageNotFound, id)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ domain.OutboxRepository = (*OutboxRepoMongoDB)(nil)
