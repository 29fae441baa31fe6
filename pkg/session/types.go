package session

import (
	"context"

	"github.com/go-go-golems/askchat/pkg/chatlog"
	"github.com/go-go-golems/askchat/pkg/pushclient"
	"github.com/go-go-golems/askchat/pkg/reveal"
	"github.com/go-go-golems/askchat/pkg/status"
)

const (
	DefaultWelcomeText = "Hello! I'm the Toro AI Assistant. How can I help with your investment questions?"
	DefaultAckText     = "Question sent! Waiting for the answer..."

	sendErrorText = "Error sending question"
)

// Connector is the push channel as seen by the controller.
type Connector interface {
	Connect(userID string) error
	Disconnect()
	States() <-chan pushclient.State
	Events() <-chan pushclient.Event
}

// Asker submits a question over the request channel.
type Asker interface {
	Ask(ctx context.Context, userID string, question string) error
}

type Revealer interface {
	Reveal(ctx context.Context, id int, text string) <-chan reveal.Frame
}

// Mirror receives every entry appended during a session.
type Mirror interface {
	Publish(ctx context.Context, userID string, e chatlog.Entry) error
}

type UpdateKind string

const (
	UpdateEntry      UpdateKind = "entry"
	UpdateCleared    UpdateKind = "cleared"
	UpdateStatus     UpdateKind = "status"
	UpdateConnection UpdateKind = "connection"
	UpdateReveal     UpdateKind = "reveal"
)

// Update is what the presentation layer renders. Only the fields matching
// Kind are set.
type Update struct {
	Kind       UpdateKind
	UserID     string
	Entry      chatlog.Entry
	EntryIndex int
	Replayed   bool
	// Animated is set on entries whose text will follow as reveal frames.
	Animated   bool
	Status     status.Status
	Connection pushclient.State
	Frame      reveal.Frame
}

// Snapshot is a point-in-time view of the active session.
type Snapshot struct {
	UserID     string
	Status     status.Status
	Connection pushclient.State
	Entries    []chatlog.Entry
}
