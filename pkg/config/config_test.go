package config

import (
	"testing"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/askchat/pkg/persistence/kvstore"
	"github.com/go-go-golems/askchat/pkg/transcript"
)

type testSection struct {
	slug string
}

func (s testSection) GetDefinitions() *fields.Definitions {
	return fields.NewDefinitions()
}
func (s testSection) GetName() string        { return s.slug }
func (s testSection) GetDescription() string { return "" }
func (s testSection) GetPrefix() string      { return "" }
func (s testSection) GetSlug() string        { return s.slug }

// baseFields are the values the default middleware chain produces.
func baseFields() map[string]map[string]any {
	return map[string]map[string]any{
		PushSlug: {
			"push-url":             DefaultPushURL,
			"push-reconnect-delay": "3s",
			"push-ping-interval":   "30s",
		},
		RequestSlug: {"request-endpoint": DefaultRequestEndpoint},
		ChatSlug: {
			"welcome-text": "",
			"ack-text":     "",
			"animate":      true,
		},
		kvstore.SectionSlug: {
			"store-backend":  kvstore.BackendSQLite,
			"store-path":     "/data/askchat/askchat.db",
			"store-redis-db": 0,
		},
		transcript.SectionSlug: {
			"transcript-backend": transcript.BackendNone,
			"transcript-topic":   transcript.DefaultTopic,
		},
	}
}

func testValues(t *testing.T, sections map[string]map[string]any) *values.Values {
	t.Helper()
	opts := make([]values.ValuesOption, 0, len(sections))
	for slug, fs := range sections {
		sectionValues, err := values.NewSectionValues(testSection{slug: slug})
		require.NoError(t, err)
		for name, v := range fs {
			sectionValues.Fields.Update(name, &fields.FieldValue{Value: v})
		}
		opts = append(opts, values.WithSectionValues(slug, sectionValues))
	}
	return values.New(opts...)
}

func TestNewSections(t *testing.T) {
	sections, err := NewSections()
	require.NoError(t, err)

	var slugs []string
	for _, s := range sections {
		slugs = append(slugs, s.GetSlug())
	}
	require.Equal(t, []string{PushSlug, RequestSlug, ChatSlug, kvstore.SectionSlug, transcript.SectionSlug}, slugs)
}

func TestFromValues_Defaults(t *testing.T) {
	s, err := FromValues(testValues(t, baseFields()))
	require.NoError(t, err)

	require.Equal(t, DefaultPushURL, s.Push.URL)
	require.Equal(t, 3*time.Second, s.Push.ReconnectDelay)
	require.Equal(t, 30*time.Second, s.Push.PingInterval)
	require.Equal(t, DefaultRequestEndpoint, s.Request.Endpoint)
	require.Equal(t, kvstore.BackendSQLite, s.Store.Backend)
	require.Equal(t, "/data/askchat/askchat.db", s.Store.Path)
	require.Equal(t, transcript.BackendNone, s.Transcript.Backend)
	require.Equal(t, transcript.DefaultTopic, s.Transcript.Topic)
	require.True(t, s.Chat.Animate)
}

func TestFromValues_Overrides(t *testing.T) {
	fs := baseFields()
	fs[PushSlug]["push-url"] = "wss://push.example.com/prod"
	fs[PushSlug]["push-reconnect-delay"] = "250ms"
	fs[PushSlug]["push-ping-interval"] = "0"
	fs[kvstore.SectionSlug]["store-backend"] = kvstore.BackendRedis
	fs[kvstore.SectionSlug]["store-redis-addr"] = "localhost:6380"
	fs[kvstore.SectionSlug]["store-redis-db"] = 2
	fs[transcript.SectionSlug]["transcript-backend"] = transcript.BackendGoChannel
	fs[ChatSlug]["ack-text"] = "-"
	fs[ChatSlug]["animate"] = false

	s, err := FromValues(testValues(t, fs))
	require.NoError(t, err)
	require.Equal(t, "wss://push.example.com/prod", s.Push.URL)
	require.Equal(t, 250*time.Millisecond, s.Push.ReconnectDelay)
	require.Zero(t, s.Push.PingInterval)
	require.Equal(t, kvstore.BackendRedis, s.Store.Backend)
	require.Equal(t, "localhost:6380", s.Store.RedisAddr)
	require.Equal(t, 2, s.Store.RedisDB)
	require.Equal(t, transcript.BackendGoChannel, s.Transcript.Backend)
	require.False(t, s.Chat.Animate)
	require.Equal(t, "", s.Chat.ResolvedAckText("ack"))
}

func TestFromValues_Errors(t *testing.T) {
	_, err := FromValues(nil)
	require.Error(t, err)

	fs := baseFields()
	fs[PushSlug]["push-ping-interval"] = "soon"
	_, err = FromValues(testValues(t, fs))
	require.ErrorContains(t, err, "push-ping-interval")

	fs = baseFields()
	fs[PushSlug]["push-reconnect-delay"] = "0s"
	_, err = FromValues(testValues(t, fs))
	require.ErrorContains(t, err, "reconnect delay")
}

func validSettings() Settings {
	return Settings{
		Push:    PushSettings{URL: DefaultPushURL, ReconnectDelay: time.Second},
		Request: RequestSettings{Endpoint: DefaultRequestEndpoint},
	}
}

func TestValidate(t *testing.T) {
	s := validSettings()
	require.NoError(t, s.Validate())

	bad := s
	bad.Push.URL = " "
	require.ErrorContains(t, bad.Validate(), "push url")

	bad = s
	bad.Request.Endpoint = ""
	require.ErrorContains(t, bad.Validate(), "request endpoint")

	bad = s
	bad.Push.PingInterval = -time.Second
	require.ErrorContains(t, bad.Validate(), "ping interval")
}

func TestDefaultStorePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	require.Equal(t, "/data/askchat/askchat.db", DefaultStorePath())
}

func TestResolvedAckText(t *testing.T) {
	require.Equal(t, "fallback", ChatSettings{}.ResolvedAckText("fallback"))
	require.Equal(t, "custom", ChatSettings{AckText: "custom"}.ResolvedAckText("fallback"))
	require.Equal(t, "", ChatSettings{AckText: "-"}.ResolvedAckText("fallback"))
}
