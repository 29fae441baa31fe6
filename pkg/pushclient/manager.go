package pushclient

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultPingInterval   = 30 * time.Second
	pingWriteWait         = 10 * time.Second
	streamBuffer          = 64
)

type Config struct {
	BaseURL string
	// ReconnectDelay is the fixed wait before redialing after an unexpected
	// close. There is no backoff and no retry cap.
	ReconnectDelay time.Duration
	// PingInterval <= 0 disables outbound pings.
	PingInterval time.Duration
	Dialer       Dialer
}

// handle is one dial attempt and the connection it produced. closing is set
// before any caller-requested close so the read loop can tell it apart from a
// dropped connection.
type handle struct {
	userID  string
	url     string
	conn    Conn
	closing atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Manager owns the push connection for one user at a time.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	userID    string
	current   *handle
	reconnect *time.Timer
	state     State

	states chan State
	events chan Event
}

func NewManager(cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("push client: base url is empty")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = WebsocketDialer{}
	}
	return &Manager{
		cfg:    cfg,
		state:  Disconnected,
		states: make(chan State, streamBuffer),
		events: make(chan Event, streamBuffer),
	}, nil
}

// States streams connection state changes. Single consumer.
func (m *Manager) States() <-chan State { return m.states }

// Events streams decoded inbound messages. Single consumer.
func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect opens the push channel for userID. It returns immediately; the dial
// happens in the background. Connecting again for the same user while a
// connection is live, in flight or scheduled is a no-op.
func (m *Manager) Connect(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("push client: user id is empty")
	}
	u, err := BuildURL(m.cfg.BaseURL, userID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userID == userID && (m.current != nil || m.reconnect != nil) {
		return nil
	}
	if m.current != nil || m.reconnect != nil {
		m.teardownLocked()
	}
	m.userID = userID
	m.startLocked(u)
	return nil
}

// Disconnect closes the current connection without scheduling a reconnect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
	m.userID = ""
}

func (m *Manager) teardownLocked() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	if h := m.current; h != nil {
		h.closing.Store(true)
		h.cancel()
		if h.conn != nil {
			_ = h.conn.Close()
		}
		m.current = nil
		log.Info().Str("component", "pushclient").Str("user_id", h.userID).Msg("push channel closed by caller")
	}
	m.drainEventsLocked()
	m.setStateLocked(Disconnected)
}

// drainEventsLocked discards events still buffered for the closed channel.
func (m *Manager) drainEventsLocked() {
	for {
		select {
		case ev := <-m.events:
			log.Debug().Str("component", "pushclient").Str("user_id", ev.UserID).Str("kind", string(ev.Kind)).Msg("discarding undelivered push event")
		default:
			return
		}
	}
}

func (m *Manager) startLocked(u string) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{userID: m.userID, url: u, ctx: ctx, cancel: cancel}
	m.current = h
	m.setStateLocked(Connecting)
	go m.run(h)
}

func (m *Manager) scheduleReconnectLocked(h *handle) {
	var t *time.Timer
	t = time.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.reconnect != t || m.userID != h.userID {
			return
		}
		m.reconnect = nil
		log.Info().Str("component", "pushclient").Str("user_id", h.userID).Msg("reconnecting push channel")
		m.startLocked(h.url)
	})
	m.reconnect = t
	log.Warn().Str("component", "pushclient").Str("user_id", h.userID).Dur("delay", m.cfg.ReconnectDelay).Msg("push channel lost, reconnect scheduled")
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	select {
	case m.states <- s:
	default:
		log.Warn().Str("component", "pushclient").Str("state", s.String()).Msg("state observer not keeping up, dropping state change")
	}
}

func (m *Manager) run(h *handle) {
	wsLog := log.With().Str("component", "pushclient").Str("user_id", h.userID).Str("url", h.url).Logger()

	conn, err := m.cfg.Dialer.Dial(h.ctx, h.url)

	m.mu.Lock()
	if h.closing.Load() || m.current != h {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		wsLog.Warn().Err(err).Msg("push channel dial failed")
		m.current = nil
		m.setStateLocked(Disconnected)
		m.scheduleReconnectLocked(h)
		m.mu.Unlock()
		return
	}
	h.conn = conn
	m.setStateLocked(Connected)
	m.mu.Unlock()
	wsLog.Info().Msg("push channel connected")

	if m.cfg.PingInterval > 0 {
		go m.pingLoop(h, conn)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			wsLog.Debug().Err(err).Msg("push read loop end")
			break
		}
		m.handleInbound(h, data)
	}
	h.cancel()

	m.mu.Lock()
	if m.current == h {
		m.current = nil
		m.setStateLocked(Disconnected)
		if !h.closing.Load() {
			m.scheduleReconnectLocked(h)
		}
	}
	m.mu.Unlock()
	_ = conn.Close()
}

func (m *Manager) handleInbound(h *handle, data []byte) {
	ev, err := Decode(data)
	if err != nil {
		if errors.Is(err, errUnrecognized) {
			log.Info().Str("component", "pushclient").Str("user_id", h.userID).Bytes("payload", data).Msg("ignoring unrecognized push message")
			return
		}
		log.Warn().Err(err).Str("component", "pushclient").Str("user_id", h.userID).Msg("failed to decode push message")
	}
	ev.UserID = h.userID
	if h.ctx.Err() != nil {
		return
	}
	select {
	case m.events <- ev:
	case <-h.ctx.Done():
	}
}

func (m *Manager) pingLoop(h *handle, conn Conn) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteWait)); err != nil {
				log.Warn().Err(err).Str("component", "pushclient").Str("user_id", h.userID).Msg("ping failed, closing push channel")
				_ = conn.Close()
				return
			}
		}
	}
}
