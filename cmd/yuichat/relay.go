package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yuichat/yuichat/internal/app"
)

func newRelayCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the broadcast relay server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info().Str("addr", cfg.Addr).Msg("starting relay")
			return app.New(&cfg, logger).Run(ctx)
		},
	}
}
