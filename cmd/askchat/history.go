package main

import (
	"context"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"

	"github.com/go-go-golems/askchat/pkg/chatlog"
	"github.com/go-go-golems/askchat/pkg/config"
)

type HistoryCommand struct {
	*cmds.CommandDescription
}

type HistorySettings struct {
	User string `glazed:"user"`
}

var _ cmds.GlazeCommand = &HistoryCommand{}

func NewHistoryCommand() (*HistoryCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	sections, err := config.NewSections()
	if err != nil {
		return nil, err
	}

	return &HistoryCommand{
		CommandDescription: cmds.NewCommandDescription(
			"history",
			cmds.WithShort("Print the stored conversation of the current user"),
			cmds.WithFlags(
				fields.New(
					"user",
					fields.TypeString,
					fields.WithHelp("Show the history of this username"),
					fields.WithDefault(""),
				),
			),
			cmds.WithSections(append(sections, glazedSection)...),
		),
	}, nil
}

func (c *HistoryCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *values.Values,
	gp middlewares.Processor,
) error {
	hs := &HistorySettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, hs); err != nil {
		return err
	}
	a, err := openAppFromValues(parsedLayers)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.currentUser(ctx, hs.User)
	if err != nil {
		return err
	}
	return addHistoryRows(ctx, gp, a.log.Load(ctx, user.ID))
}

type rowAdder interface {
	AddRow(ctx context.Context, row types.Row) error
}

func addHistoryRows(ctx context.Context, gp rowAdder, entries []chatlog.Entry) error {
	for i, e := range entries {
		role := "assistant"
		if e.FromUser {
			role = "user"
		}
		createdAt := ""
		if !e.CreatedAt.IsZero() {
			createdAt = e.CreatedAt.Format(time.RFC3339)
		}
		row := types.NewRow(
			types.MRP("index", i),
			types.MRP("role", role),
			types.MRP("created_at", createdAt),
			types.MRP("text", e.Text),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
