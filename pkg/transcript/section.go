package transcript

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

const SectionSlug = "transcript"

func NewSection() (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"Transcript mirroring over Watermill",
		schema.WithFields(
			fields.New("transcript-backend", fields.TypeChoice,
				fields.WithChoices(BackendNone, BackendGoChannel, BackendRedis),
				fields.WithDefault(BackendNone),
				fields.WithHelp("Mirror appended entries to a Watermill topic")),
			fields.New("transcript-redis-addr", fields.TypeString,
				fields.WithDefault("localhost:6379"),
				fields.WithHelp("Redis address for the redis backend")),
			fields.New("transcript-topic", fields.TypeString,
				fields.WithDefault(DefaultTopic),
				fields.WithHelp("Topic the entries are published on")),
		),
	)
}
