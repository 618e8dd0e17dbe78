package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuichat/yuichat/internal/bus"
	"github.com/yuichat/yuichat/internal/chat"
	"github.com/yuichat/yuichat/internal/relay"
	"github.com/yuichat/yuichat/internal/session"
	"github.com/yuichat/yuichat/internal/store"
	"github.com/yuichat/yuichat/internal/store/file"
	"github.com/yuichat/yuichat/internal/store/sqlite"
)

func newChatCmd(cfgPath *string) *cobra.Command {
	var (
		name  string
		color string
		email string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join the room from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := file.New(cfg.StorageDir, cfg.StorageKey, logger)
			if err != nil {
				return err
			}

			var mirror store.Mirror
			if cfg.DBPath != "" {
				m, err := sqlite.New(cfg.DBPath)
				if err != nil {
					return err
				}
				defer m.Close()
				mirror = m
			}

			var tr session.Transport
			if cfg.RelayURL != "" {
				c, err := relay.Dial(ctx, cfg.RelayURL+"?channel="+cfg.Channel, logger)
				if err != nil {
					return err
				}
				tr = c
			} else {
				// No relay: a private channel with no peers.
				tr = bus.New(cfg.Channel).Subscribe()
			}
			defer tr.Close()

			sess := session.New(tr, st, logger, session.Options{
				NameMaxLen:  cfg.NameMaxLen,
				ClearOnExit: cfg.ClearOnExit,
				Mirror:      mirror,
			})
			go sess.Run(ctx)

			sess.SetEmail(email)
			if err := sess.Enter(name, color); err != nil {
				return err
			}
			defer sess.Exit()

			go printNewEntries(ctx, sess)

			fmt.Println(`connected. type a message, or /who, /rank, /reload, /quit.`)
			return repl(ctx, sess)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&color, "color", "#ff69b4", "display color")
	cmd.Flags().StringVar(&email, "email", "", "optional email shown on entries")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func repl(ctx context.Context, sess *session.Session) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "/quit":
				return nil
			case "/reload":
				sess.Reload()
			case "/reload-remote":
				if err := sess.ReloadRemote(ctx); err != nil {
					fmt.Println("reload-remote:", err)
				}
			case "/who":
				printParticipants(sess.Snapshot())
			case "/rank":
				printRanking(sess.Snapshot())
			default:
				sess.Send(truncateRunes(line, chat.MaxMessageRunes))
			}
		}
	}
}

// printNewEntries tails the log by id, newest first, the way the log
// pane rerenders on every state change.
func printNewEntries(ctx context.Context, sess *session.Session) {
	seen := make(map[string]struct{})
	for _, e := range sess.Snapshot().Log {
		seen[e.ID] = struct{}{}
	}

	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := sess.Snapshot()
			// Oldest unseen first so output reads top to bottom.
			for i := len(snap.Log) - 1; i >= 0; i-- {
				e := snap.Log[i]
				if _, ok := seen[e.ID]; ok {
					continue
				}
				seen[e.ID] = struct{}{}
				stamp := time.UnixMilli(e.Time).Format("15:04:05")
				if e.System {
					fmt.Printf("[%s] * %s\n", stamp, e.Message)
				} else {
					fmt.Printf("[%s] <%s> %s\n", stamp, e.Name, e.Message)
				}
			}
		}
	}
}

func printParticipants(snap session.Snapshot) {
	if len(snap.Participants) == 0 {
		fmt.Println("nobody has spoken in the last 5 minutes")
		return
	}
	for _, p := range snap.Participants {
		fmt.Printf("  %s (%s)\n", p.Name, p.Color)
	}
}

func printRanking(snap session.Snapshot) {
	type row struct {
		name  string
		count int
	}
	rows := make([]row, 0, len(snap.Ranking))
	for name, count := range snap.Ranking {
		rows = append(rows, row{name, count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].name < rows[j].name
	})
	for i, r := range rows {
		fmt.Printf("  %d. %s: %d\n", i+1, r.name, r.count)
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
