package utils

import (
	"encoding/json"
	"fmt"
)

// DecodeEvent decodifica el campo Data de un evento de integración en el tipo indicado.
func DecodeEvent[T any](data json.RawMessage) (T, error) {
	var evt T
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("failed to unmarshal event data: %w", err)
	}
	return evt, nil
}
