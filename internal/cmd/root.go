// Package cmd implements the ratefunc command line.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/throttled/ratefunc/internal/config"
	"github.com/throttled/ratefunc/internal/logging"
)

// configKey is the flag annotation naming the setting a flag overrides.
const configKey = "ratefunc/config-key"

// Version info set by main package
var versionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// app is the state shared by the commands of one invocation. cfg and log
// are set by the root command before any subcommand runs.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
}

// Execute runs the root command with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   filepath.Base(os.Args[0]),
		Short: "Debounce and throttle line and HTTP event streams",
		Long: `Debounce and throttle event streams.

Every line read on stdin is an event for the debounce and throttle commands;
serve throttles HTTP requests. Settings come from the --config file and
RATEFUNC_* environment variables, and flags override both.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	bindFlag(root.PersistentFlags(), "log-level", "logging.level")

	root.AddCommand(
		newDebounceCmd(a),
		newThrottleCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// bindFlag marks flag name of fs as an override for the config key.
func bindFlag(fs *pflag.FlagSet, name, key string) {
	_ = fs.SetAnnotation(name, configKey, []string{key})
}

func (a *app) init(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKey]
		if err != nil || len(keys) == 0 {
			return
		}
		err = a.v.BindPFlag(keys[0], f)
	})
	if err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.log.Debug("configuration loaded",
		zap.String("file", a.cfgFile),
		zap.String("store", cfg.Store.Driver))
	return nil
}
