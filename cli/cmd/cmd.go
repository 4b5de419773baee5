package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	currency "github.com/sunijk/sunij-currencyconversionapi"
	"github.com/sunijk/sunij-currencyconversionapi/config"
)

type (
	Options struct {
		Viper   *viper.Viper
		Logger  log.Logger
		Builder Builder
		Args    []string
		Out     io.Writer
		Err     io.Writer
	}

	state struct {
		options    Options
		app        *App
		cleanup    func()
		logger     log.Logger
		debug      bool
		configFile string
	}
)

func Execute(ctx context.Context, options Options) error {
	if options.Viper == nil {
		options.Viper = viper.New()
	}

	if options.Logger == nil {
		options.Logger = log.NewNopLogger()
	}

	if options.Builder == nil {
		options.Builder = Build
	}

	s := &state{options: options}
	defer s.close()

	rootCmd := &cobra.Command{
		Use:               "currency-converter",
		Short:             "Exchange rates, conversions and rate history",
		Version:           "v1.2.0",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: s.setup,
	}

	rootCmd.PersistentFlags().BoolVar(&s.debug, "debug", false, "Debug flag")
	rootCmd.PersistentFlags().StringVar(&s.configFile, "config", "./config.yml", "Path to config file")

	rootCmd.AddCommand(
		latest(s),
		convert(s),
		history(s),
		fetch(s),
		archived(s),
	)

	rootCmd.SetArgs(options.Args)
	if options.Out != nil {
		rootCmd.SetOut(options.Out)
	}
	if options.Err != nil {
		rootCmd.SetErr(options.Err)
	}

	return rootCmd.ExecuteContext(ctx)
}

func (s *state) setup(cmd *cobra.Command, _ []string) error {
	v := s.options.Viper
	config.SetDefaults(v)

	if err := readConfigFile(v, s.configFile, cmd.Flags().Changed("config")); err != nil {
		return err
	}

	c, err := config.Load(v)
	if err != nil {
		return err
	}

	filter := level.AllowInfo()
	if s.debug {
		filter = level.AllowDebug()
	}
	s.logger = level.NewFilter(s.options.Logger, filter)

	app, cleanup, err := s.options.Builder(cmd.Context(), c, s.logger)
	if err != nil {
		return err
	}

	s.app = app
	s.cleanup = cleanup

	return nil
}

func (s *state) close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// readConfigFile tolerates a missing default file; an explicit --config must exist.
func readConfigFile(v *viper.Viper, configFile string, explicit bool) error {
	absolutePath, err := filepath.Abs(configFile)
	if err != nil {
		return fmt.Errorf("%w: config path %q: %v", currency.ErrConfiguration, configFile, err)
	}

	if _, err := os.Stat(absolutePath); errors.Is(err, os.ErrNotExist) && !explicit {
		return nil
	}

	v.SetConfigFile(absolutePath)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: reading %s: %v", currency.ErrConfiguration, absolutePath, err)
	}

	return nil
}

func printJSON(w io.Writer, value interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}
