package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/askchat/pkg/config"
	"github.com/go-go-golems/askchat/pkg/session"
)

const (
	cmdQuit  = "/quit"
	cmdClear = "/clear"
	cmdHelp  = "/help"
)

type ChatCommand struct {
	*cmds.CommandDescription
}

type ChatSettings struct {
	User string `glazed:"user"`
}

var _ cmds.BareCommand = &ChatCommand{}

func NewChatCommand() (*ChatCommand, error) {
	sections, err := config.NewSections()
	if err != nil {
		return nil, err
	}
	return &ChatCommand{
		CommandDescription: cmds.NewCommandDescription(
			"chat",
			cmds.WithShort("Start an interactive chat session"),
			cmds.WithLong("Start an interactive chat session. Type a question and press enter.\n"+
				"Commands: /clear clears the history, /quit leaves."),
			cmds.WithFlags(
				fields.New(
					"user",
					fields.TypeString,
					fields.WithHelp("Log in as this username before chatting"),
					fields.WithDefault(""),
				),
			),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *ChatCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	cs := &ChatSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, cs); err != nil {
		return err
	}
	s, err := decodeSettings(parsedLayers)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runChat(ctx, s, cs.User, os.Stdin, os.Stdout)
}

// syncWriter serializes writes from the update printer and the input loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func runChat(ctx context.Context, s config.Settings, username string, in io.Reader, out io.Writer) error {
	a, err := openApp(s)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.currentUser(ctx, username)
	if err != nil {
		return err
	}
	ctrl, cleanup, err := a.newController()
	if err != nil {
		return err
	}
	defer cleanup()

	w := &syncWriter{w: out}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := ctrl.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		p := newPrinter(w)
		for {
			select {
			case <-gctx.Done():
				return nil
			case u := <-ctrl.Updates():
				p.Handle(u)
			}
		}
	})

	if err := ctrl.Start(gctx, user.ID); err != nil {
		cancel()
		_ = g.Wait()
		return errors.Wrap(err, "start session")
	}
	log.Debug().Str("component", "cli").Str("user_id", user.ID).Str("username", user.Username).Msg("chat started")

	lines := readLines(in)
	g.Go(func() error {
		defer cancel()
		return inputLoop(gctx, ctrl, lines, w)
	})

	return g.Wait()
}

// readLines feeds lines from r until EOF. The goroutine is left blocked on a
// read when the chat ends first, which is fine for a process about to exit.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

// lineReader hands the confirmation prompt one queued line per Read, so it
// never swallows input meant for the chat.
type lineReader struct {
	ctx   context.Context
	lines <-chan string
	buf   []byte
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		select {
		case <-r.ctx.Done():
			return 0, io.EOF
		case line, ok := <-r.lines:
			if !ok {
				return 0, io.EOF
			}
			r.buf = []byte(strings.TrimSpace(line) + "\n")
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func inputLoop(ctx context.Context, ctrl *session.Controller, lines <-chan string, w io.Writer) error {
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		switch line = strings.TrimSpace(line); line {
		case "":
			continue
		case cmdQuit:
			return nil
		case cmdHelp:
			_, _ = fmt.Fprintln(w, noticeStyle.Render("type a question, /clear to clear the history, /quit to leave"))
		case cmdClear:
			yes, err := askForClearConfirmation(&lineReader{ctx: ctx, lines: lines}, w)
			if err != nil {
				log.Debug().Err(err).Str("component", "cli").Msg("clear confirmation aborted")
				return nil
			}
			if !ctrl.ClearHistory(ctx, yes) {
				_, _ = fmt.Fprintln(w, noticeStyle.Render("history kept"))
			}
		default:
			if !ctrl.Submit(ctx, line) {
				_, _ = fmt.Fprintln(w, noticeStyle.Render("still waiting for the previous answer"))
			}
		}
	}
}
