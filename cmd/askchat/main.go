package main

import (
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/askchat/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:          "askchat",
	Short:        "askchat asks questions and streams the answers back",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitLoggerFromCobra(cmd)
	},
}

func main() {
	if err := clay.InitGlazed(config.AppName, rootCmd); err != nil {
		cobra.CheckErr(err)
	}

	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	rootCmd.PersistentFlags().String(configFileFlag, "", "config file (default $XDG_CONFIG_HOME/askchat/config.yaml)")
	addCommands(rootCmd)

	cobra.CheckErr(rootCmd.Execute())
}

func addCommands(root *cobra.Command) {
	chatCmd, err := NewChatCommand()
	cobra.CheckErr(err)
	historyCmd, err := NewHistoryCommand()
	cobra.CheckErr(err)
	clearCmd, err := NewClearCommand()
	cobra.CheckErr(err)
	loginCmd, err := NewLoginCommand()
	cobra.CheckErr(err)
	logoutCmd, err := NewLogoutCommand()
	cobra.CheckErr(err)
	whoamiCmd, err := NewWhoamiCommand()
	cobra.CheckErr(err)

	cobraChatCmd, err := cli.BuildCobraCommand(chatCmd, cli.WithCobraMiddlewaresFunc(askchatMiddlewares))
	cobra.CheckErr(err)
	cobraHistoryCmd, err := cli.BuildCobraCommand(historyCmd, cli.WithCobraMiddlewaresFunc(askchatMiddlewares))
	cobra.CheckErr(err)
	cobraClearCmd, err := cli.BuildCobraCommand(clearCmd, cli.WithCobraMiddlewaresFunc(askchatMiddlewares))
	cobra.CheckErr(err)
	cobraLoginCmd, err := cli.BuildCobraCommand(loginCmd, cli.WithCobraMiddlewaresFunc(askchatMiddlewares))
	cobra.CheckErr(err)
	cobraLogoutCmd, err := cli.BuildCobraCommand(logoutCmd, cli.WithCobraMiddlewaresFunc(askchatMiddlewares))
	cobra.CheckErr(err)
	cobraWhoamiCmd, err := cli.BuildCobraCommand(whoamiCmd, cli.WithCobraMiddlewaresFunc(askchatMiddlewares))
	cobra.CheckErr(err)

	root.AddCommand(
		cobraChatCmd,
		cobraHistoryCmd,
		cobraClearCmd,
		cobraLoginCmd,
		cobraLogoutCmd,
		cobraWhoamiCmd,
	)
}
