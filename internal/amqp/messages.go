package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Event kinds published after a successful write.
const (
	EventUpserted = "transaction.upserted"
	EventDeleted  = "transaction.deleted"
)

// Event announces a change to one transaction. Consumers fetch the record
// themselves; the event carries identity only.
type Event struct {
	Kind      string    `json:"kind"`
	Owner     string    `json:"owner"`
	ID        int64     `json:"id"`
	Created   bool      `json:"created,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewUpsertedEvent(owner string, id int64, created bool) Event {
	return Event{Kind: EventUpserted, Owner: owner, ID: id, Created: created, Timestamp: time.Now()}
}

func NewDeletedEvent(owner string, id int64) Event {
	return Event{Kind: EventDeleted, Owner: owner, ID: id, Timestamp: time.Now()}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects unknown kinds.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if e.Kind != EventUpserted && e.Kind != EventDeleted {
		return Event{}, errors.New("unknown event kind " + e.Kind)
	}
	return e, nil
}
