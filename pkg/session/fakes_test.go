package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-go-golems/askchat/pkg/pushclient"
)

type fakeConnector struct {
	mu          sync.Mutex
	connects    []string
	disconnects int
	states      chan pushclient.State
	events      chan pushclient.Event
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		states: make(chan pushclient.State, 16),
		events: make(chan pushclient.Event, 16),
	}
}

func (f *fakeConnector) Connect(userID string) error {
	f.mu.Lock()
	f.connects = append(f.connects, userID)
	f.mu.Unlock()
	f.states <- pushclient.Connecting
	f.states <- pushclient.Connected
	return nil
}

func (f *fakeConnector) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
}

func (f *fakeConnector) States() <-chan pushclient.State { return f.states }
func (f *fakeConnector) Events() <-chan pushclient.Event { return f.events }

func (f *fakeConnector) Connects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.connects...)
}

func (f *fakeConnector) Disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

type askCall struct {
	UserID   string
	Question string
}

type fakeAsker struct {
	mu    sync.Mutex
	calls []askCall
	err   error
	// gate, when set, holds every Ask until it is closed.
	gate chan struct{}
}

func (a *fakeAsker) Ask(ctx context.Context, userID string, question string) error {
	a.mu.Lock()
	a.calls = append(a.calls, askCall{UserID: userID, Question: question})
	gate := a.gate
	a.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *fakeAsker) Calls() []askCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]askCall(nil), a.calls...)
}

// scriptedDialer hands out connections the test can feed and drop.
type scriptedDialer struct {
	mu    sync.Mutex
	conns []*scriptedConn
}

func (d *scriptedDialer) Dial(ctx context.Context, _ string) (pushclient.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &scriptedConn{inbox: make(chan []byte, 16), closed: make(chan struct{})}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *scriptedDialer) Conn(i int) *scriptedConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func (d *scriptedDialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

type scriptedConn struct {
	inbox  chan []byte
	closed chan struct{}
	once   sync.Once
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	select {
	case <-c.closed:
		return 0, nil, errors.New("closed")
	case b := <-c.inbox:
		return 1, b, nil
	}
}

func (c *scriptedConn) WriteControl(int, []byte, time.Time) error { return nil }

func (c *scriptedConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}
