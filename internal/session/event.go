package session

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rpattn/sheetpattern/internal/domain"
)

// eventPayload is the inbound wire form of an edit event. Timestamp is a
// pointer so an omitted field can be told apart from logical time 0.
type eventPayload struct {
	domain.EditEvent
	Timestamp *int64 `json:"timestamp"`
}

// DecodeEvent reads one edit event. Only an event that carries no timestamp
// at all is stamped with the service clock; 0 is a valid logical time.
func (s *Service) DecodeEvent(r io.Reader) (domain.EditEvent, error) {
	var payload eventPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return domain.EditEvent{}, fmt.Errorf("invalid event: %w", err)
	}

	event := payload.EditEvent
	if payload.Timestamp != nil {
		event.Timestamp = *payload.Timestamp
	} else {
		event.Timestamp = s.clock().UnixMilli()
	}
	return event, nil
}
