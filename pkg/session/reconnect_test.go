package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/askchat/pkg/chatlog"
	"github.com/go-go-golems/askchat/pkg/persistence/kvstore"
	"github.com/go-go-golems/askchat/pkg/pushclient"
	"github.com/go-go-golems/askchat/pkg/status"
)

func newManagerHarness(t *testing.T, ackText string) (*Controller, *scriptedDialer, *fakeAsker) {
	t.Helper()
	dialer := &scriptedDialer{}
	mgr, err := pushclient.NewManager(pushclient.Config{
		BaseURL:        "ws://push.test/prod",
		ReconnectDelay: 30 * time.Millisecond,
		Dialer:         dialer,
	})
	require.NoError(t, err)
	asker := &fakeAsker{}
	ctrl, err := NewController(Config{
		Store:     chatlog.NewStore(kvstore.NewInMemoryStore()),
		Connector: mgr,
		Asker:     asker,
		AckText:   ackText,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return ctrl, dialer, asker
}

func connectionUpdates(ctrl *Controller) []pushclient.State {
	var out []pushclient.State
	for {
		select {
		case u := <-ctrl.Updates():
			if u.Kind == UpdateConnection {
				out = append(out, u.Connection)
			}
		default:
			return out
		}
	}
}

func TestUnexpectedClose_WhilePending(t *testing.T) {
	ctrl, dialer, _ := newManagerHarness(t, "")
	ctx := context.Background()

	require.NoError(t, ctrl.Start(ctx, "u1"))
	require.Eventually(t, func() bool {
		snap, err := ctrl.Snapshot(ctx)
		return err == nil && snap.Connection == pushclient.Connected
	}, time.Second, 2*time.Millisecond)
	require.True(t, ctrl.Submit(ctx, "What is a CDB?"))
	connectionUpdates(ctrl)

	require.NoError(t, dialer.Conn(0).Close())

	var seen []pushclient.State
	require.Eventually(t, func() bool {
		seen = append(seen, connectionUpdates(ctrl)...)
		return len(seen) >= 3
	}, time.Second, 2*time.Millisecond)
	require.Equal(t, []pushclient.State{pushclient.Disconnected, pushclient.Connecting, pushclient.Connected}, seen[:3])
	require.Equal(t, status.Pending, ctrl.Status())

	dialer.Conn(1).inbox <- []byte(`{"type":"question_update","status":"completed","answer":"A CDB is..."}`)
	require.Eventually(t, func() bool { return ctrl.Status() == status.Completed }, time.Second, 2*time.Millisecond)

	snap, err := ctrl.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, "A CDB is...", snap.Entries[len(snap.Entries)-1].Text)
}

// Entries are appended in arrival order. Across a reconnect the acknowledgement
// of the request and the pushed answer may land in either order; both must be
// present exactly once after the question.
func TestArrivalOrderAcrossReconnect(t *testing.T) {
	ctrl, dialer, asker := newManagerHarness(t, DefaultAckText)
	ctx := context.Background()
	asker.gate = make(chan struct{})

	require.NoError(t, ctrl.Start(ctx, "u1"))
	require.Eventually(t, func() bool { return dialer.Count() == 1 }, time.Second, 2*time.Millisecond)
	require.True(t, ctrl.Submit(ctx, "q"))

	require.NoError(t, dialer.Conn(0).Close())
	require.Eventually(t, func() bool { return dialer.Count() == 2 }, time.Second, 2*time.Millisecond)

	go func() {
		dialer.Conn(1).inbox <- []byte(`{"type":"question_update","status":"completed","answer":"the answer"}`)
	}()
	close(asker.gate)

	var entries []chatlog.Entry
	require.Eventually(t, func() bool {
		snap, err := ctrl.Snapshot(ctx)
		if err != nil {
			return false
		}
		entries = snap.Entries
		return len(entries) == 4
	}, time.Second, 2*time.Millisecond)

	require.Equal(t, DefaultWelcomeText, entries[0].Text)
	require.Equal(t, "q", entries[1].Text)
	require.ElementsMatch(t, []string{DefaultAckText, "the answer"}, []string{entries[2].Text, entries[3].Text})
	require.Eventually(t, func() bool { return ctrl.Status() == status.Completed }, time.Second, 2*time.Millisecond)
}
