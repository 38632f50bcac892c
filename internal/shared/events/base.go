package events

import (
	"encoding/json"
	"reflect"
	"time"
)

// Base de todos los eventos de integración
type IntegrationEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Key       string          `json:"key,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
}

func (e IntegrationEvent) PartitionKey() string {
	return e.Key
}

// EventMetadata asocia un tipo de mensaje con su struct y su topic de destino.
type EventMetadata struct {
	Type  reflect.Type
	Topic string
}
