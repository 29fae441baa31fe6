// Package config declares the askchat settings as glazed sections and decodes
// parsed values back into Settings.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"

	"github.com/go-go-golems/askchat/pkg/persistence/kvstore"
	"github.com/go-go-golems/askchat/pkg/pushclient"
	"github.com/go-go-golems/askchat/pkg/transcript"
)

const (
	AppName   = "askchat"
	EnvPrefix = "ASKCHAT"
	fileName  = "config.yaml"

	PushSlug    = "push"
	RequestSlug = "request"
	ChatSlug    = "chat"

	DefaultPushURL         = "ws://localhost:8080/ws"
	DefaultRequestEndpoint = "http://localhost:8080/questions"
)

type PushSettings struct {
	URL            string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// pushFields is the raw push section; durations are parsed in FromValues.
type pushFields struct {
	URL            string `glazed:"push-url"`
	ReconnectDelay string `glazed:"push-reconnect-delay"`
	PingInterval   string `glazed:"push-ping-interval"`
}

type RequestSettings struct {
	Endpoint string `glazed:"request-endpoint"`
}

type ChatSettings struct {
	WelcomeText string `glazed:"welcome-text"`
	// AckText is shown once a question is accepted. Set it to "-" to disable.
	AckText string `glazed:"ack-text"`
	Animate bool   `glazed:"animate"`
}

type Settings struct {
	Push       PushSettings
	Request    RequestSettings
	Store      kvstore.Settings
	Transcript transcript.Settings
	Chat       ChatSettings
}

func NewPushSection() (schema.Section, error) {
	return schema.NewSection(
		PushSlug,
		"Push channel delivering answers",
		schema.WithFields(
			fields.New("push-url", fields.TypeString,
				fields.WithDefault(DefaultPushURL),
				fields.WithHelp("Push channel base URL, the user id is added as ?user_id=")),
			fields.New("push-reconnect-delay", fields.TypeString,
				fields.WithDefault(pushclient.DefaultReconnectDelay.String()),
				fields.WithHelp("Delay before reconnecting after the channel drops")),
			fields.New("push-ping-interval", fields.TypeString,
				fields.WithDefault(pushclient.DefaultPingInterval.String()),
				fields.WithHelp("Keepalive ping interval, 0 disables pings")),
		),
	)
}

func NewRequestSection() (schema.Section, error) {
	return schema.NewSection(
		RequestSlug,
		"Question request endpoint",
		schema.WithFields(
			fields.New("request-endpoint", fields.TypeString,
				fields.WithDefault(DefaultRequestEndpoint),
				fields.WithHelp("URL questions are POSTed to")),
		),
	)
}

func NewChatSection() (schema.Section, error) {
	return schema.NewSection(
		ChatSlug,
		"Chat presentation",
		schema.WithFields(
			fields.New("welcome-text", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Greeting seeded into an empty conversation")),
			fields.New("ack-text", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Entry appended when a question is accepted, - disables it")),
			fields.New("animate", fields.TypeBool,
				fields.WithDefault(true),
				fields.WithHelp("Reveal pushed answers progressively")),
		),
	)
}

// NewSections returns every section FromValues decodes, in flag-help order.
func NewSections() ([]schema.Section, error) {
	builders := []func() (schema.Section, error){
		NewPushSection,
		NewRequestSection,
		NewChatSection,
		func() (schema.Section, error) { return kvstore.NewSection(DefaultStorePath()) },
		transcript.NewSection,
	}
	sections := make([]schema.Section, 0, len(builders))
	for _, build := range builders {
		s, err := build()
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// FromValues decodes the sections returned by NewSections and validates the
// result.
func FromValues(parsed *values.Values) (Settings, error) {
	var s Settings
	if parsed == nil {
		return s, errors.New("parsed values are nil")
	}

	var push pushFields
	if err := parsed.DecodeSectionInto(PushSlug, &push); err != nil {
		return s, errors.Wrap(err, "decode push settings")
	}
	s.Push.URL = push.URL
	var err error
	if s.Push.ReconnectDelay, err = parseDuration("push-reconnect-delay", push.ReconnectDelay); err != nil {
		return s, err
	}
	if s.Push.PingInterval, err = parseDuration("push-ping-interval", push.PingInterval); err != nil {
		return s, err
	}

	if err := parsed.DecodeSectionInto(RequestSlug, &s.Request); err != nil {
		return s, errors.Wrap(err, "decode request settings")
	}
	if err := parsed.DecodeSectionInto(ChatSlug, &s.Chat); err != nil {
		return s, errors.Wrap(err, "decode chat settings")
	}
	if err := parsed.DecodeSectionInto(kvstore.SectionSlug, &s.Store); err != nil {
		return s, errors.Wrap(err, "decode store settings")
	}
	if err := parsed.DecodeSectionInto(transcript.SectionSlug, &s.Transcript); err != nil {
		return s, errors.Wrap(err, "decode transcript settings")
	}
	return s, s.Validate()
}

func parseDuration(name string, v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse --%s", name)
	}
	return d, nil
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.Push.URL) == "" {
		return errors.New("push url is empty")
	}
	if strings.TrimSpace(s.Request.Endpoint) == "" {
		return errors.New("request endpoint is empty")
	}
	if s.Push.ReconnectDelay <= 0 {
		return errors.Errorf("reconnect delay must be positive, got %s", s.Push.ReconnectDelay)
	}
	if s.Push.PingInterval < 0 {
		return errors.Errorf("ping interval must not be negative, got %s", s.Push.PingInterval)
	}
	return nil
}

// ResolvedAckText resolves the configured acknowledgement text. "-" disables it.
func (c ChatSettings) ResolvedAckText(fallback string) string {
	switch c.AckText {
	case "":
		return fallback
	case "-":
		return ""
	default:
		return c.AckText
	}
}

// DefaultConfigPath is $XDG_CONFIG_HOME/askchat/config.yaml. The file is
// optional and keyed by section slug.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppName, fileName)
}

// DefaultStorePath is $XDG_DATA_HOME/askchat/askchat.db.
func DefaultStorePath() string {
	return filepath.Join(dataDir(), AppName, AppName+".db")
}

func dataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}
