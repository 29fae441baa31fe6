package main

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/askchat/pkg/askapi"
	"github.com/go-go-golems/askchat/pkg/chatlog"
	"github.com/go-go-golems/askchat/pkg/config"
	"github.com/go-go-golems/askchat/pkg/identity"
	"github.com/go-go-golems/askchat/pkg/persistence/kvstore"
	"github.com/go-go-golems/askchat/pkg/pushclient"
	"github.com/go-go-golems/askchat/pkg/reveal"
	"github.com/go-go-golems/askchat/pkg/session"
	"github.com/go-go-golems/askchat/pkg/transcript"
)

// app holds the pieces every command needs: the durable store, the chat log
// on top of it and the identity manager.
type app struct {
	settings config.Settings
	kv       kvstore.Store
	log      *chatlog.Store
	identity *identity.Manager
}

func openApp(s config.Settings) (*app, error) {
	kv, err := kvstore.Open(s.Store)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	return &app{
		settings: s,
		kv:       kv,
		log:      chatlog.NewStore(kv),
		identity: identity.NewManager(kv),
	}, nil
}

func openAppFromValues(parsed *values.Values) (*app, error) {
	s, err := decodeSettings(parsed)
	if err != nil {
		return nil, err
	}
	return openApp(s)
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		log.Warn().Err(err).Str("component", "cli").Msg("closing store failed")
	}
}

// currentUser returns the logged-in user, logging in as username when given.
func (a *app) currentUser(ctx context.Context, username string) (identity.User, error) {
	if username != "" {
		u, ok, err := a.identity.Current(ctx)
		if err != nil {
			return identity.User{}, err
		}
		if ok && u.Username == username {
			return u, nil
		}
		return a.identity.Login(ctx, username)
	}
	u, ok, err := a.identity.Current(ctx)
	if err != nil {
		return identity.User{}, err
	}
	if !ok {
		return identity.User{}, errors.New("not logged in, run `askchat login <username>` or pass --user")
	}
	return u, nil
}

// newController wires the session core to the configured collaborators.
// The returned cleanup closes the transcript publisher.
func (a *app) newController() (*session.Controller, func(), error) {
	s := a.settings
	push, err := pushclient.NewManager(pushclient.Config{
		BaseURL:        s.Push.URL,
		ReconnectDelay: s.Push.ReconnectDelay,
		PingInterval:   s.Push.PingInterval,
		Dialer:         pushclient.WebsocketDialer{},
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "create push client")
	}
	asker, err := askapi.NewClient(s.Request.Endpoint)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create request client")
	}

	pub, err := transcript.BuildPublisher(s.Transcript, transcript.NewWatermillLogger(log.Logger))
	if err != nil {
		return nil, nil, errors.Wrap(err, "build transcript publisher")
	}

	cfg := session.Config{
		Store:       a.log,
		Connector:   push,
		Asker:       asker,
		WelcomeText: s.Chat.WelcomeText,
		AckText:     s.Chat.ResolvedAckText(session.DefaultAckText),
	}
	if s.Chat.Animate {
		cfg.Revealer = reveal.NewScheduler()
	}
	cleanup := func() {}
	if pub != nil {
		mirror := transcript.NewMirror(pub, s.Transcript.Topic)
		cfg.Mirror = mirror
		cleanup = func() {
			if err := mirror.Close(); err != nil {
				log.Warn().Err(err).Str("component", "cli").Msg("closing transcript publisher failed")
			}
		}
	}

	ctrl, err := session.NewController(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return ctrl, cleanup, nil
}
