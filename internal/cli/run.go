package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"photo-counter/internal/api/live"
	"photo-counter/internal/api/telegram"
)

func botCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:         "bot",
		Short:       "Run the Telegram bot",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{daemonAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.runBot(cmd.Context())
		},
	}
}

func serveCmd(st *state) *cobra.Command {
	var withBot bool
	cmd := &cobra.Command{
		Use:         "serve",
		Short:       "Run the live view HTTP server",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{daemonAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !withBot {
				return live.Serve(ctx, st.cfg.HTTPAddr, st.app.Hub, st.app.SessionService, st.app.ExportService, st.log)
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			errCh := make(chan error, 2)
			go func() { errCh <- live.Serve(ctx, st.cfg.HTTPAddr, st.app.Hub, st.app.SessionService, st.app.ExportService, st.log) }()
			go func() { errCh <- st.runBot(ctx) }()

			// первая ошибка останавливает обоих
			err := <-errCh
			cancel()
			return errors.Join(err, <-errCh)
		},
	}
	cmd.Flags().BoolVar(&withBot, "with-bot", false, "also run the Telegram bot in the same process")
	return cmd
}

func (st *state) runBot(ctx context.Context) error {
	if st.cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}

	bot, err := telegram.NewBot(st.cfg.TelegramToken, st.app)
	if err != nil {
		return err
	}

	st.log.Info("Bot is running...")
	return bot.Run(ctx)
}
