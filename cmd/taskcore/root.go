package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tupyy/taskcore/internal/config"
)

func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TASKCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	defaults, err := config.NewConfigurationWithDefaults()
	if err != nil {
		panic(err)
	}

	cmd := &cobra.Command{
		Use:          "taskcore",
		Short:        "Drive the taskcore executors",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path := v.GetString("config"); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read config file %s: %w", path, err)
				}
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to a configuration file")
	flags.String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	flags.String("log-format", defaults.LogFormat, "Log format: console or json")
	_ = v.BindPFlags(flags)

	cmd.AddCommand(newBenchCommand(v, defaults))
	return cmd
}

func newLogger(cfg *config.Configuration) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	return zc.Build()
}
