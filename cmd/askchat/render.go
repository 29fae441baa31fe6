package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/askchat/pkg/chatlog"
	"github.com/go-go-golems/askchat/pkg/pushclient"
	"github.com/go-go-golems/askchat/pkg/session"
	"github.com/go-go-golems/askchat/pkg/status"
)

var (
	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	timestampStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	noticeStyle         = lipgloss.NewStyle().Faint(true).Italic(true)
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	connectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	disconnectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

func renderEntry(e chatlog.Entry) string {
	label := assistantLabelStyle.Render("assistant")
	if e.FromUser {
		label = userLabelStyle.Render("you")
	}
	ts := ""
	if !e.CreatedAt.IsZero() {
		ts = " " + timestampStyle.Render(e.CreatedAt.Local().Format("15:04"))
	}
	return fmt.Sprintf("%s%s: %s", label, ts, e.Text)
}

func renderConnection(s pushclient.State) string {
	switch s {
	case pushclient.Connected:
		return connectedStyle.Render("● connected")
	case pushclient.Connecting:
		return noticeStyle.Render("○ connecting...")
	default:
		return disconnectedStyle.Render("○ disconnected")
	}
}

// printer turns session updates into terminal lines. Animated entries are
// printed incrementally from reveal frames instead of in one piece.
type printer struct {
	out io.Writer
	// revealed tracks how much of each animated entry has been written.
	revealed map[int]int
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, revealed: map[int]int{}}
}

func (p *printer) Handle(u session.Update) {
	switch u.Kind {
	case session.UpdateEntry:
		if u.Animated {
			p.revealed[u.EntryIndex] = 0
			_, _ = fmt.Fprint(p.out, renderEntry(chatlog.Entry{CreatedAt: u.Entry.CreatedAt}))
			return
		}
		_, _ = fmt.Fprintln(p.out, renderEntry(u.Entry))
	case session.UpdateReveal:
		n, ok := p.revealed[u.EntryIndex]
		if !ok {
			return
		}
		text := u.Frame.Text
		if len(text) > n {
			_, _ = fmt.Fprint(p.out, text[n:])
			p.revealed[u.EntryIndex] = len(text)
		}
		if u.Frame.Done {
			_, _ = fmt.Fprintln(p.out)
			delete(p.revealed, u.EntryIndex)
		}
	case session.UpdateCleared:
		_, _ = fmt.Fprintln(p.out, noticeStyle.Render("history cleared"))
	case session.UpdateStatus:
		switch u.Status {
		case status.Pending:
			_, _ = fmt.Fprintln(p.out, noticeStyle.Render("awaiting answer..."))
		case status.Error:
			_, _ = fmt.Fprintln(p.out, errorStyle.Render("the last question failed, you can ask again"))
		}
	case session.UpdateConnection:
		_, _ = fmt.Fprintln(p.out, renderConnection(u.Connection))
	}
}
