package chatlog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/askchat/pkg/persistence/kvstore"
)

// DefaultKeyPrefix is prepended to the user id to form the durable record key.
const DefaultKeyPrefix = "chat_messages_"

const defaultSubscriberBuffer = 256

type EventKind string

const (
	EventReplayed EventKind = "replayed"
	EventAppended EventKind = "appended"
	EventCleared  EventKind = "cleared"
)

// Event is delivered to the subscriber whenever the log for a user changes or
// is hydrated. Cleared events carry no entry.
type Event struct {
	Kind   EventKind
	UserID string
	Entry  Entry
}

// Store is the per-user conversation log. Reads are served from an in-memory
// cache that is hydrated from the durable store at most once per user; every
// mutation is written through to the durable store before returning.
//
// Durable failures are logged and otherwise ignored: the cache stays
// authoritative for the lifetime of the Store.
type Store struct {
	kv        kvstore.Store
	keyPrefix string
	now       func() time.Time

	mu       sync.Mutex
	cache    map[string][]Entry
	hydrated map[string]bool

	subMu sync.Mutex
	sub   chan Event
}

type Option func(*Store)

func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.keyPrefix = prefix
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		keyPrefix: DefaultKeyPrefix,
		now:       time.Now,
		cache:     map[string][]Entry{},
		hydrated:  map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Key(userID string) string {
	return s.keyPrefix + userID
}

// Subscribe registers the single consumer of store events, replacing any
// previous subscription. The returned func cancels it.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, defaultSubscriberBuffer)
	s.subMu.Lock()
	if s.sub != nil {
		close(s.sub)
	}
	s.sub = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if s.sub == ch {
				close(ch)
				s.sub = nil
			}
		})
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.sub == nil {
		return
	}
	select {
	case s.sub <- ev:
	default:
		log.Warn().Str("component", "chatlog").Str("user_id", ev.UserID).Str("kind", string(ev.Kind)).Msg("subscriber buffer full, dropping event")
	}
}

// Load returns the full log for userID.
func (s *Store) Load(ctx context.Context, userID string) []Entry {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	s.mu.Lock()
	replay := s.hydrateLocked(ctx, userID)
	out := append([]Entry(nil), s.cache[userID]...)
	s.mu.Unlock()

	s.replay(userID, replay)
	return out
}

// hydrateLocked reads the durable record the first time a user is seen and
// returns the entries to replay, or nil if the user was already hydrated.
func (s *Store) hydrateLocked(ctx context.Context, userID string) []Entry {
	if s.hydrated[userID] {
		return nil
	}
	s.hydrated[userID] = true

	var entries []Entry
	if s.kv != nil {
		b, ok, err := s.kv.Get(ctx, s.Key(userID))
		switch {
		case err != nil:
			log.Warn().Err(err).Str("component", "chatlog").Str("user_id", userID).Msg("durable read failed, starting with empty log")
		case ok:
			entries, err = decodeEntries(b)
			if err != nil {
				log.Warn().Err(err).Str("component", "chatlog").Str("user_id", userID).Msg("durable record is corrupt, starting with empty log")
				entries = nil
			}
		}
	}
	s.cache[userID] = entries
	return append([]Entry(nil), entries...)
}

// Append adds e to the log unless it repeats the immediately preceding entry.
// It reports whether the entry was appended.
func (s *Store) Append(ctx context.Context, userID string, e Entry) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	s.mu.Lock()
	replay := s.hydrateLocked(ctx, userID)
	current := s.cache[userID]
	if n := len(current); n > 0 && current[n-1].SameContent(e) {
		s.mu.Unlock()
		s.replay(userID, replay)
		return false
	}
	updated := make([]Entry, len(current), len(current)+1)
	copy(updated, current)
	updated = append(updated, e)
	s.cache[userID] = updated
	s.persistLocked(ctx, userID, updated)
	s.mu.Unlock()

	s.replay(userID, replay)
	s.notify(Event{Kind: EventAppended, UserID: userID, Entry: e})
	return true
}

// Clear empties the log for userID, both cached and durable.
func (s *Store) Clear(ctx context.Context, userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}
	s.mu.Lock()
	s.cache[userID] = nil
	s.hydrated[userID] = true
	if s.kv != nil {
		if err := s.kv.Delete(ctx, s.Key(userID)); err != nil {
			log.Warn().Err(err).Str("component", "chatlog").Str("user_id", userID).Msg("durable delete failed")
		}
	}
	s.mu.Unlock()

	s.notify(Event{Kind: EventCleared, UserID: userID})
}

func (s *Store) persistLocked(ctx context.Context, userID string, entries []Entry) {
	if s.kv == nil {
		return
	}
	b, err := encodeEntries(entries)
	if err != nil {
		log.Warn().Err(err).Str("component", "chatlog").Str("user_id", userID).Msg("encode failed, durable record not updated")
		return
	}
	if err := s.kv.Put(ctx, s.Key(userID), b); err != nil {
		log.Warn().Err(err).Str("component", "chatlog").Str("user_id", userID).Msg("durable write failed")
	}
}

func (s *Store) replay(userID string, entries []Entry) {
	for _, e := range entries {
		s.notify(Event{Kind: EventReplayed, UserID: userID, Entry: e})
	}
}
