package pushclient

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type EventKind string

const (
	EventCompleted    EventKind = "delivery-completed"
	EventFailed       EventKind = "delivery-error"
	EventDecodeFailed EventKind = "decode-failed"
)

const (
	errorPrefix         = "Error processing question: "
	unknownErrorMessage = "Unknown error"
)

// Event is a decoded inbound push message. Text is the assistant-facing text:
// the answer for completed deliveries, a synthesized message for errors.
type Event struct {
	Kind EventKind
	Text string
	// UserID is the user whose push channel delivered the event.
	UserID     string
	ReceivedAt time.Time
}

type inboundMessage struct {
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Answer       *string `json:"answer"`
	ErrorMessage string  `json:"error_message"`
}

var errUnrecognized = errors.New("unrecognized push message")

// Decode turns a raw push payload into an Event. Malformed JSON yields an
// EventDecodeFailed event together with the parse error; well-formed payloads
// of an unknown shape return errUnrecognized and no event.
func Decode(data []byte) (Event, error) {
	now := time.Now()
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{Kind: EventDecodeFailed, ReceivedAt: now}, errors.Wrap(err, "decode push message")
	}
	if msg.Type != "question_update" {
		return Event{}, errUnrecognized
	}
	switch msg.Status {
	case "completed":
		if msg.Answer == nil {
			return Event{}, errUnrecognized
		}
		return Event{Kind: EventCompleted, Text: *msg.Answer, ReceivedAt: now}, nil
	case "error":
		reason := msg.ErrorMessage
		if reason == "" {
			reason = unknownErrorMessage
		}
		return Event{Kind: EventFailed, Text: errorPrefix + reason, ReceivedAt: now}, nil
	default:
		return Event{}, errUnrecognized
	}
}
