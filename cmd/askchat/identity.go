package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"

	"github.com/go-go-golems/askchat/pkg/config"
)

var timeNow = time.Now

type LoginCommand struct {
	*cmds.CommandDescription
}

type LoginSettings struct {
	Username string `glazed:"username"`
}

var _ cmds.BareCommand = &LoginCommand{}

func NewLoginCommand() (*LoginCommand, error) {
	sections, err := config.NewSections()
	if err != nil {
		return nil, err
	}
	return &LoginCommand{
		CommandDescription: cmds.NewCommandDescription(
			"login",
			cmds.WithShort("Pick the username conversations are stored under"),
			cmds.WithArguments(
				fields.New(
					"username",
					fields.TypeString,
					fields.WithHelp("Username to log in as"),
					fields.WithRequired(true),
				),
			),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *LoginCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	ls := &LoginSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, ls); err != nil {
		return err
	}
	a, err := openAppFromValues(parsedLayers)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.identity.Login(ctx, ls.Username)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "logged in as %s (%s)\n", u.Username, u.ID)
	return nil
}

type LogoutCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = &LogoutCommand{}

func NewLogoutCommand() (*LogoutCommand, error) {
	sections, err := config.NewSections()
	if err != nil {
		return nil, err
	}
	return &LogoutCommand{
		CommandDescription: cmds.NewCommandDescription(
			"logout",
			cmds.WithShort("Forget the current user"),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *LogoutCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	a, err := openAppFromValues(parsedLayers)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.identity.Logout(ctx)
}

type WhoamiCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = &WhoamiCommand{}

func NewWhoamiCommand() (*WhoamiCommand, error) {
	sections, err := config.NewSections()
	if err != nil {
		return nil, err
	}
	return &WhoamiCommand{
		CommandDescription: cmds.NewCommandDescription(
			"whoami",
			cmds.WithShort("Print the current user"),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *WhoamiCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	a, err := openAppFromValues(parsedLayers)
	if err != nil {
		return err
	}
	defer a.Close()

	u, ok, err := a.identity.Current(ctx)
	if err != nil {
		return err
	}
	if !ok {
		_, _ = fmt.Fprintln(os.Stdout, "not logged in")
		return nil
	}
	_, _ = fmt.Fprintf(os.Stdout, "%s (%s)\n", u.Username, u.ID)
	return nil
}
