package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	input "github.com/tcnksm/go-input"

	"github.com/go-go-golems/askchat/pkg/chatlog"
	"github.com/go-go-golems/askchat/pkg/config"
	"github.com/go-go-golems/askchat/pkg/session"
)

type ClearCommand struct {
	*cmds.CommandDescription
}

type ClearSettings struct {
	Yes bool `glazed:"yes"`
}

var _ cmds.BareCommand = &ClearCommand{}

func NewClearCommand() (*ClearCommand, error) {
	sections, err := config.NewSections()
	if err != nil {
		return nil, err
	}
	return &ClearCommand{
		CommandDescription: cmds.NewCommandDescription(
			"clear",
			cmds.WithShort("Clear the stored conversation of the current user"),
			cmds.WithFlags(
				fields.New(
					"yes",
					fields.TypeBool,
					fields.WithShortFlag("y"),
					fields.WithHelp("Do not ask for confirmation"),
					fields.WithDefault(false),
				),
			),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *ClearCommand) Run(ctx context.Context, parsedLayers *values.Values) error {
	cs := &ClearSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, cs); err != nil {
		return err
	}
	a, err := openAppFromValues(parsedLayers)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.currentUser(ctx, "")
	if err != nil {
		return err
	}

	if !cs.Yes {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return errors.New("refusing to clear without a terminal, pass --yes")
		}
		ok, err := askForClearConfirmation(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(os.Stdout, noticeStyle.Render("history kept"))
			return nil
		}
	}

	welcome := a.settings.Chat.WelcomeText
	if welcome == "" {
		welcome = session.DefaultWelcomeText
	}
	a.log.Clear(ctx, user.ID)
	a.log.Append(ctx, user.ID, chatlog.AssistantEntry(welcome, timeNow()))
	_, _ = fmt.Fprintln(os.Stdout, noticeStyle.Render("history cleared"))
	return nil
}

func askForClearConfirmation(r io.Reader, w io.Writer) (bool, error) {
	ui := &input.UI{
		Writer: w,
		Reader: r,
	}
	answer, err := ui.Ask("Clear the conversation history? [y/N]", &input.Options{
		Default:     "n",
		HideDefault: true,
		Loop:        true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N", "":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to get user input")
	}
	return answer == "y" || answer == "Y", nil
}
