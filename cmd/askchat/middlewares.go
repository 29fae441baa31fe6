package main

import (
	"os"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/sources"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/askchat/pkg/config"
)

const configFileFlag = "config-file"

// askchatMiddlewares resolves values from flags, arguments, ASKCHAT_* env,
// the config file and the field defaults, in that order of precedence.
func askchatMiddlewares(
	_ *values.Values,
	cmd *cobra.Command,
	args []string,
) ([]sources.Middleware, error) {
	mws := []sources.Middleware{
		sources.FromCobra(cmd),
		sources.FromArgs(args),
		sources.FromEnv(config.EnvPrefix,
			fields.WithSource("env"),
		),
	}
	path, err := configFilePath(cmd)
	if err != nil {
		return nil, err
	}
	if path != "" {
		mws = append(mws, sources.FromFile(path))
	}
	return append(mws, sources.FromDefaults()), nil
}

// configFilePath returns the explicit --config-file, which must exist, or the
// default path when a file is there.
func configFilePath(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString(configFileFlag)
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", errors.Wrap(err, "config file")
		}
		return path, nil
	}
	path = config.DefaultConfigPath()
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

func decodeSettings(parsed *values.Values) (config.Settings, error) {
	s, err := config.FromValues(parsed)
	if err != nil {
		return s, errors.Wrap(err, "load settings")
	}
	return s, nil
}
