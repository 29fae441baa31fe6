package kvstore

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

const SectionSlug = "store"

// NewSection returns the section definition for Settings. defaultPath is the
// sqlite file used when no dsn is given.
func NewSection(defaultPath string) (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"Durable conversation store",
		schema.WithFields(
			fields.New("store-backend", fields.TypeChoice,
				fields.WithChoices(BackendSQLite, BackendRedis, BackendMemory),
				fields.WithDefault(BackendSQLite),
				fields.WithHelp("Where conversations and the current user are kept")),
			fields.New("store-path", fields.TypeString,
				fields.WithDefault(defaultPath),
				fields.WithHelp("sqlite database file")),
			fields.New("store-dsn", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("sqlite dsn, overrides --store-path")),
			fields.New("store-redis-addr", fields.TypeString,
				fields.WithDefault("localhost:6379"),
				fields.WithHelp("Redis address host:port")),
			fields.New("store-redis-db", fields.TypeInteger,
				fields.WithDefault(0),
				fields.WithHelp("Redis database number")),
			fields.New("store-redis-namespace", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Prefix for every Redis key")),
		),
	)
}
