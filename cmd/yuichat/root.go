package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yuichat/yuichat/internal/config"
	"github.com/yuichat/yuichat/internal/log"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "yuichat",
		Short:         "Multi-tab chat room over a broadcast channel",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	root.AddCommand(newRelayCmd(&cfgPath))
	root.AddCommand(newChatCmd(&cfgPath))
	root.AddCommand(newTailCmd(&cfgPath))
	return root
}

// loadConfig resolves configuration and builds the logger it configures.
func loadConfig(cfgPath string) (config.Config, *zerolog.Logger, error) {
	bootstrap := log.New("info")
	cfg, path, err := config.Load(bootstrap, cfgPath)
	if err != nil {
		return cfg, bootstrap, err
	}
	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}
