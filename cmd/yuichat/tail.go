package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuichat/yuichat/internal/chat"
	"github.com/yuichat/yuichat/internal/store/sqlite"
)

func newTailCmd(cfgPath *string) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow new entries landing in the mirror table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.DBPath == "" {
				return errors.New("no mirror configured: set db_path")
			}

			m, err := sqlite.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer m.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = m.Subscribe(ctx, interval, func(e chat.Entry) {
				stamp := time.UnixMilli(e.Time).Format("15:04:05")
				if e.System {
					fmt.Printf("[%s] * %s\n", stamp, e.Message)
				} else {
					fmt.Printf("[%s] <%s> %s\n", stamp, e.Name, e.Message)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	return cmd
}
