package chatlog

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Entry is one line of conversation.
type Entry struct {
	Text      string    `json:"text"`
	FromUser  bool      `json:"isUser"`
	CreatedAt time.Time `json:"timestamp"`
}

func UserEntry(text string, at time.Time) Entry {
	return Entry{Text: text, FromUser: true, CreatedAt: at}
}

func AssistantEntry(text string, at time.Time) Entry {
	return Entry{Text: text, FromUser: false, CreatedAt: at}
}

// SameContent reports whether two entries would be considered duplicates when adjacent.
func (e Entry) SameContent(other Entry) bool {
	return e.Text == other.Text && e.FromUser == other.FromUser
}

func encodeEntries(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.Wrap(err, "encode entries")
	}
	return b, nil
}

func decodeEntries(b []byte) ([]Entry, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, errors.Wrap(err, "decode entries")
	}
	return entries, nil
}
