package session

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/askchat/pkg/askapi"
	"github.com/go-go-golems/askchat/pkg/chatlog"
	"github.com/go-go-golems/askchat/pkg/pushclient"
	"github.com/go-go-golems/askchat/pkg/status"
)

var (
	ErrNoUser     = errors.New("session: no user")
	ErrNotRunning = errors.New("session: controller is not running")
)

const (
	inboxBuffer   = 64
	updatesBuffer = 1024
)

type Config struct {
	Store     *chatlog.Store
	Connector Connector
	Asker     Asker
	Revealer  Revealer
	Mirror    Mirror

	WelcomeText string
	// AckText is appended when the request endpoint accepts a question.
	// Empty disables the acknowledgement entry.
	AckText string
	Now     func() time.Time
}

// Controller runs one session at a time. Every state change happens on the
// goroutine running Run; the exported methods only post commands to it.
type Controller struct {
	cfg     Config
	status  *status.Machine
	inbox   chan any
	updates chan Update
	done    chan struct{}

	// owned by the loop
	runCtx        context.Context
	userID        string
	gen           int
	connection    pushclient.State
	entryCount    int
	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	storeEvents   <-chan chatlog.Event
	storeCancel   func()
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: store is nil")
	}
	if cfg.Connector == nil {
		return nil, errors.New("session: connector is nil")
	}
	if cfg.Asker == nil {
		return nil, errors.New("session: asker is nil")
	}
	if cfg.WelcomeText == "" {
		cfg.WelcomeText = DefaultWelcomeText
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Controller{
		cfg:     cfg,
		status:  status.NewMachine(),
		inbox:   make(chan any, inboxBuffer),
		updates: make(chan Update, updatesBuffer),
		done:    make(chan struct{}),
	}
	c.status.OnChange(func(_, to status.Status, _ status.Trigger) {
		c.emit(Update{Kind: UpdateStatus, UserID: c.userID, Status: to})
	})
	return c, nil
}

// Updates streams everything the presentation layer needs. Single consumer.
func (c *Controller) Updates() <-chan Update { return c.updates }

// Status is safe to call from any goroutine.
func (c *Controller) Status() status.Status { return c.status.Current() }

type startCmd struct {
	userID string
	reply  chan error
}

type stopCmd struct {
	reply chan struct{}
}

type submitCmd struct {
	text  string
	reply chan bool
}

type clearCmd struct {
	confirmed bool
	reply     chan bool
}

type snapshotCmd struct {
	reply chan Snapshot
}

type askResult struct {
	gen int
	err error
}

type pushEvent struct {
	gen int
	ev  pushclient.Event
}

type connectionEvent struct {
	gen   int
	state pushclient.State
}

// Run processes commands and events until ctx is done, then stops the
// active session.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			c.stop()
			return ctx.Err()
		case msg := <-c.inbox:
			c.handle(ctx, msg)
		}
	}
}

func (c *Controller) handle(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case startCmd:
		m.reply <- c.start(ctx, m.userID)
	case stopCmd:
		c.stop()
		close(m.reply)
	case submitCmd:
		m.reply <- c.submit(ctx, m.text)
	case clearCmd:
		m.reply <- c.clearHistory(ctx, m.confirmed)
	case snapshotCmd:
		m.reply <- c.snapshot(ctx)
	case askResult:
		c.onAskResult(ctx, m)
	case pushEvent:
		c.onPushEvent(ctx, m)
	case connectionEvent:
		if m.gen == c.gen && c.userID != "" {
			c.connection = m.state
			c.emit(Update{Kind: UpdateConnection, UserID: c.userID, Connection: m.state})
		}
	default:
		log.Warn().Str("component", "session").Msgf("unexpected loop message %T", msg)
	}
}

func (c *Controller) post(ctx context.Context, msg any) error {
	select {
	case c.inbox <- msg:
		return nil
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, c *Controller, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-c.done:
		return zero, ErrNotRunning
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Start makes userID the active session, tearing down any other one.
func (c *Controller) Start(ctx context.Context, userID string) error {
	reply := make(chan error, 1)
	if err := c.post(ctx, startCmd{userID: userID, reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, c, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

func (c *Controller) Stop(ctx context.Context) error {
	reply := make(chan struct{})
	if err := c.post(ctx, stopCmd{reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit asks a question. It reports false when the text is blank, a question
// is already pending or no session is active.
func (c *Controller) Submit(ctx context.Context, text string) bool {
	reply := make(chan bool, 1)
	if err := c.post(ctx, submitCmd{text: text, reply: reply}); err != nil {
		return false
	}
	ok, _ := await(ctx, c, reply)
	return ok
}

// ClearHistory wipes the active user's log and re-seeds the welcome entry.
// confirmed is the presentation layer's yes/no answer.
func (c *Controller) ClearHistory(ctx context.Context, confirmed bool) bool {
	reply := make(chan bool, 1)
	if err := c.post(ctx, clearCmd{confirmed: confirmed, reply: reply}); err != nil {
		return false
	}
	ok, _ := await(ctx, c, reply)
	return ok
}

func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := c.post(ctx, snapshotCmd{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	return await(ctx, c, reply)
}

func (c *Controller) start(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrNoUser
	}
	if userID == c.userID {
		return nil
	}
	if c.userID != "" {
		c.stop()
	}

	c.gen++
	c.userID = userID
	c.connection = pushclient.Disconnected
	c.entryCount = 0
	c.status.Reset()
	c.emit(Update{Kind: UpdateStatus, UserID: userID, Status: status.Idle})

	// Load before subscribing: the store's own replay is bounded by the
	// subscriber buffer, the returned slice is not.
	entries := c.cfg.Store.Load(ctx, userID)
	c.storeEvents, c.storeCancel = c.cfg.Store.Subscribe()
	for _, e := range entries {
		c.forwardStoreEvent(chatlog.Event{Kind: chatlog.EventReplayed, UserID: userID, Entry: e}, false)
	}

	c.sessionCtx, c.sessionCancel = context.WithCancel(c.runCtx)
	go c.forward(c.sessionCtx, c.gen)

	if err := c.cfg.Connector.Connect(userID); err != nil {
		log.Warn().Err(err).Str("component", "session").Str("user_id", userID).Msg("push connect failed")
	}

	if len(entries) == 0 {
		c.append(ctx, chatlog.AssistantEntry(c.cfg.WelcomeText, c.cfg.Now()), false)
	}
	log.Info().Str("component", "session").Str("user_id", userID).Int("entries", len(entries)).Msg("session started")
	return nil
}

func (c *Controller) stop() {
	if c.userID == "" {
		return
	}
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
		c.sessionCtx = nil
	}
	if c.storeCancel != nil {
		c.storeCancel()
		c.storeCancel = nil
		c.storeEvents = nil
	}
	c.cfg.Connector.Disconnect()
	log.Info().Str("component", "session").Str("user_id", c.userID).Msg("session stopped")
	c.userID = ""
	c.connection = pushclient.Disconnected
}

func (c *Controller) submit(ctx context.Context, text string) bool {
	if c.userID == "" || strings.TrimSpace(text) == "" || !c.status.CanSubmit() {
		return false
	}
	c.append(ctx, chatlog.UserEntry(text, c.cfg.Now()), false)
	c.status.Fire(status.Submit)

	userID, gen := c.userID, c.gen
	askCtx := c.runCtx
	go func() {
		err := c.cfg.Asker.Ask(askCtx, userID, text)
		_ = c.post(askCtx, askResult{gen: gen, err: err})
	}()
	return true
}

func (c *Controller) clearHistory(ctx context.Context, confirmed bool) bool {
	if !confirmed || c.userID == "" {
		return false
	}
	c.cfg.Store.Clear(ctx, c.userID)
	c.flushStoreEvents(false)
	c.append(ctx, chatlog.AssistantEntry(c.cfg.WelcomeText, c.cfg.Now()), false)
	return true
}

func (c *Controller) snapshot(ctx context.Context) Snapshot {
	s := Snapshot{UserID: c.userID, Status: c.status.Current(), Connection: c.connection}
	if c.userID != "" {
		s.Entries = c.cfg.Store.Load(ctx, c.userID)
	}
	return s
}

func (c *Controller) onAskResult(ctx context.Context, r askResult) {
	if r.gen != c.gen || c.userID == "" {
		log.Debug().Str("component", "session").Msg("dropping ask result from a previous session")
		return
	}
	if r.err == nil {
		if c.cfg.AckText != "" {
			c.append(ctx, chatlog.AssistantEntry(c.cfg.AckText, c.cfg.Now()), false)
		}
		return
	}

	log.Warn().Err(r.err).Str("component", "session").Str("user_id", c.userID).Msg("sending question failed")
	text := sendErrorText
	var rejected *askapi.RejectedError
	if errors.As(r.err, &rejected) {
		text = sendErrorText + ": " + rejected.Reason
	}
	c.append(ctx, chatlog.AssistantEntry(text, c.cfg.Now()), false)
	c.status.Fire(status.SendFailed)
}

func (c *Controller) onPushEvent(ctx context.Context, p pushEvent) {
	if p.gen != c.gen || c.userID == "" {
		return
	}
	if p.ev.UserID != c.userID {
		log.Debug().Str("component", "session").Str("user_id", c.userID).Str("event_user_id", p.ev.UserID).Msg("dropping push event addressed to another user")
		return
	}
	switch p.ev.Kind {
	case pushclient.EventCompleted:
		c.append(ctx, chatlog.AssistantEntry(p.ev.Text, c.cfg.Now()), true)
		c.status.Fire(status.DeliveryCompleted)
	case pushclient.EventFailed:
		c.append(ctx, chatlog.AssistantEntry(p.ev.Text, c.cfg.Now()), true)
		c.status.Fire(status.DeliveryFailed)
	case pushclient.EventDecodeFailed:
		c.status.Fire(status.DecodeFailed)
	}
}

// append adds e to the active log, forwards the resulting store events and,
// when animate is set, starts a reveal of the new entry.
func (c *Controller) append(ctx context.Context, e chatlog.Entry, animate bool) {
	if !c.cfg.Store.Append(ctx, c.userID, e) {
		return
	}
	c.flushStoreEvents(animate)
	if c.cfg.Mirror != nil {
		if err := c.cfg.Mirror.Publish(ctx, c.userID, e); err != nil {
			log.Warn().Err(err).Str("component", "session").Str("user_id", c.userID).Msg("transcript publish failed")
		}
	}
}

func (c *Controller) flushStoreEvents(animate bool) {
	if c.storeEvents == nil {
		return
	}
	for {
		select {
		case ev, ok := <-c.storeEvents:
			if !ok {
				c.storeEvents = nil
				return
			}
			c.forwardStoreEvent(ev, animate)
		default:
			return
		}
	}
}

func (c *Controller) forwardStoreEvent(ev chatlog.Event, animate bool) {
	switch ev.Kind {
	case chatlog.EventCleared:
		c.entryCount = 0
		c.emit(Update{Kind: UpdateCleared, UserID: ev.UserID})
	case chatlog.EventReplayed, chatlog.EventAppended:
		idx := c.entryCount
		c.entryCount++
		replayed := ev.Kind == chatlog.EventReplayed
		animated := animate && !replayed && !ev.Entry.FromUser && c.cfg.Revealer != nil && c.sessionCtx != nil
		c.emit(Update{Kind: UpdateEntry, UserID: ev.UserID, Entry: ev.Entry, EntryIndex: idx, Replayed: replayed, Animated: animated})
		if animated {
			c.startReveal(idx, ev.Entry.Text)
		}
	}
}

func (c *Controller) startReveal(idx int, text string) {
	ctx := c.sessionCtx
	userID := c.userID
	frames := c.cfg.Revealer.Reveal(ctx, idx, text)
	go func() {
		for f := range frames {
			select {
			case c.updates <- Update{Kind: UpdateReveal, UserID: userID, EntryIndex: idx, Frame: f}:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Controller) forward(ctx context.Context, gen int) {
	events := c.cfg.Connector.Events()
	states := c.cfg.Connector.States()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := c.post(ctx, pushEvent{gen: gen, ev: ev}); err != nil {
				return
			}
		case s := <-states:
			if err := c.post(ctx, connectionEvent{gen: gen, state: s}); err != nil {
				return
			}
		}
	}
}

func (c *Controller) emit(u Update) {
	select {
	case c.updates <- u:
	default:
		log.Warn().Str("component", "session").Str("kind", string(u.Kind)).Msg("update consumer not keeping up, dropping update")
	}
}
