package board

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire codec for the board socket protocol.
//
// Messages are a JSON envelope carrying an event kind and an entity payload
// matching the REST resource shapes. The transport uses snake_case field
// names throughout; the struct tags on the domain types perform the
// translation, so every recognized field round-trips losslessly.

// ErrUnknownEvent is returned by DecodeEvent for event kinds this client
// does not recognize. Callers log and drop the message; unknown kinds are
// expected from newer servers and are never fatal.
var ErrUnknownEvent = errors.New("unknown event kind")

// EventKind identifies one wire event.
type EventKind string

const (
	EventTaskCreated       EventKind = "card_created"
	EventTaskUpdated       EventKind = "card_updated"
	EventTaskDeleted       EventKind = "card_deleted"
	EventGroupCreated      EventKind = "group_created"
	EventGroupUpdated      EventKind = "group_updated"
	EventGroupDeleted      EventKind = "group_deleted"
	EventConnectionCreated EventKind = "connection_created"
	EventConnectionUpdated EventKind = "connection_updated"
	EventConnectionDeleted EventKind = "connection_deleted"
	EventPresenceChanged   EventKind = "presence_changed"
)

// EventResync is generated locally by the socket channel each time its
// subscription (re)opens, ordered in the events stream strictly before any
// delta from the new connection. It never appears on the wire: DecodeEvent
// never produces it and EncodeEvent rejects it. Consumers must re-fetch
// the full board before trusting the deltas that follow it.
const EventResync EventKind = "resync"

// Validate checks if the EventKind is a recognized value.
func (k EventKind) Validate() error {
	switch k {
	case EventTaskCreated, EventTaskUpdated, EventTaskDeleted,
		EventGroupCreated, EventGroupUpdated, EventGroupDeleted,
		EventConnectionCreated, EventConnectionUpdated, EventConnectionDeleted,
		EventPresenceChanged:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, k)
	}
}

// Presence is the payload of a presence_changed event.
type Presence struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

// Delta is a decoded wire event: one tagged variant of the closed event
// set. Exactly one of the entity pointers is set for create/update kinds;
// delete kinds carry only EntityID. Token echoes the client correlation
// token when the event is the server's echo of this client's own mutation.
type Delta struct {
	Kind       EventKind
	Task       *Task
	Group      *Group
	Connection *Connection
	Presence   *Presence
	EntityID   string // set for delete kinds
	Token      string // correlation token echo, empty for foreign events
}

// envelope is the raw wire shape of every socket message.
type envelope struct {
	Event       EventKind       `json:"event"`
	Payload     json.RawMessage `json:"payload"`
	ClientToken string          `json:"client_token,omitempty"`
}

// deletePayload is the payload shape shared by all delete events.
type deletePayload struct {
	ID string `json:"id"`
}

// DecodeEvent parses a raw socket message into a Delta.
// Returns ErrUnknownEvent (wrapped) for unrecognized kinds so callers can
// drop them without tearing down the channel.
func DecodeEvent(data []byte) (*Delta, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}

	d := &Delta{Kind: env.Event, Token: env.ClientToken}

	switch env.Event {
	case EventTaskCreated, EventTaskUpdated:
		var t Task
		if err := json.Unmarshal(env.Payload, &t); err != nil {
			return nil, fmt.Errorf("failed to decode task payload: %w", err)
		}
		if t.ID == "" {
			return nil, fmt.Errorf("task event missing id")
		}
		d.Task = &t
		d.EntityID = t.ID

	case EventGroupCreated, EventGroupUpdated:
		var g Group
		if err := json.Unmarshal(env.Payload, &g); err != nil {
			return nil, fmt.Errorf("failed to decode group payload: %w", err)
		}
		if g.ID == "" {
			return nil, fmt.Errorf("group event missing id")
		}
		d.Group = &g
		d.EntityID = g.ID

	case EventConnectionCreated, EventConnectionUpdated:
		var c Connection
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, fmt.Errorf("failed to decode connection payload: %w", err)
		}
		if c.ID == "" {
			return nil, fmt.Errorf("connection event missing id")
		}
		d.Connection = &c
		d.EntityID = c.ID

	case EventTaskDeleted, EventGroupDeleted, EventConnectionDeleted:
		var p deletePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode delete payload: %w", err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("delete event missing id")
		}
		d.EntityID = p.ID

	case EventPresenceChanged:
		var p Presence
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode presence payload: %w", err)
		}
		if p.UserID == "" {
			return nil, fmt.Errorf("presence event missing user_id")
		}
		d.Presence = &p
		d.EntityID = p.UserID

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	return d, nil
}

// EncodeEvent serializes a Delta into the wire envelope, the exact inverse
// of DecodeEvent for every recognized kind.
func EncodeEvent(d *Delta) ([]byte, error) {
	if err := d.Kind.Validate(); err != nil {
		return nil, err
	}

	var payload any
	switch d.Kind {
	case EventTaskCreated, EventTaskUpdated:
		if d.Task == nil {
			return nil, fmt.Errorf("task event requires a task payload")
		}
		payload = d.Task
	case EventGroupCreated, EventGroupUpdated:
		if d.Group == nil {
			return nil, fmt.Errorf("group event requires a group payload")
		}
		payload = d.Group
	case EventConnectionCreated, EventConnectionUpdated:
		if d.Connection == nil {
			return nil, fmt.Errorf("connection event requires a connection payload")
		}
		payload = d.Connection
	case EventTaskDeleted, EventGroupDeleted, EventConnectionDeleted:
		if d.EntityID == "" {
			return nil, fmt.Errorf("delete event requires an entity id")
		}
		payload = deletePayload{ID: d.EntityID}
	case EventPresenceChanged:
		if d.Presence == nil {
			return nil, fmt.Errorf("presence event requires a presence payload")
		}
		payload = d.Presence
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	data, err := json.Marshal(envelope{
		Event:       d.Kind,
		Payload:     raw,
		ClientToken: d.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	return data, nil
}
