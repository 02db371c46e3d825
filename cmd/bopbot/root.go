package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tomyan/bopbot/internal/config"
	"github.com/tomyan/bopbot/internal/logging"
)

// app is the state shared by every command of one invocation.
type app struct {
	v           *viper.Viper
	cfgFile     string
	fingerprint string
	stdout      io.Writer
	stderr      io.Writer

	cfg    *config.Config
	logger *zap.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	v := viper.New()
	config.SetDefaults(v)
	return &app{v: v, stdout: stdout, stderr: stderr, logger: zap.NewNop()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bopbot",
		Short:         "Drive a fingerprinted Chrome through the DevTools protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./bopbot.yaml)")
	flags.StringVar(&a.fingerprint, "fingerprint", "", "JSON file of fingerprint overrides")
	flags.String("headless", "none", "headless mode: none, native or virtual (env: BOPBOT_BROWSER_HEADLESS)")
	flags.Bool("dev", false, "open DevTools for every tab")
	flags.String("platform", "", "mac or linux (default: detect)")
	flags.String("profile", "", "browser profile directory")
	flags.String("chrome", "", "browser executable, overriding the platform default")
	flags.Bool("discover", false, "search PATH for a browser instead of the platform default")
	flags.String("log-level", "info", "log level")

	for key, name := range map[string]string{
		"browser.headless":        "headless",
		"browser.dev_mode":        "dev",
		"browser.platform":        "platform",
		"browser.profile_path":    "profile",
		"browser.executable_path": "chrome",
		"browser.discover":        "discover",
		"logger.level":            "log-level",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		newVisitCmd(a),
		newExistsCmd(a),
		newFillCmd(a),
		newUserAgentCmd(a),
		newArgsCmd(a),
	)
	return root
}

// initialize reads the config file, environment and flags, then builds the
// logger.
func (a *app) initialize() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("bopbot")
		a.v.SetConfigType("yaml")
	}
	config.Bind(a.v)

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.NewWithWriter(cfg.Logger, a.stderr)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// fail logs err and hands it back to run, which prints it.
func (a *app) fail(err error) error {
	a.logger.Error("command failed", zap.Error(err))
	return err
}
