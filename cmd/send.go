package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/formrelay/internal/config"
	"github.com/shaharia-lab/formrelay/internal/logger"
	"github.com/shaharia-lab/formrelay/internal/notification"
	"github.com/shaharia-lab/formrelay/internal/phone"
	"github.com/shaharia-lab/formrelay/internal/readiness"
)

// NewSendCmd returns the "send" subcommand that delivers one message using
// the stored WhatsApp session.
func NewSendCmd(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "send <number> <text>",
		Short: "Send a single WhatsApp message",
		Long: `Send one WhatsApp message using the paired session, then exit.
Local numbers are given the configured country code.`,
		Example: `  formrelay send 0771234567 "Your order is ready"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd.Context(), cfg, args[0], args[1], cmd.OutOrStdout())
		},
	}
}

func runSend(ctx context.Context, cfg *config.AppConfig, number, text string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}

	log, closer, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel(), nil)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer closer.Close() //nolint:errcheck

	sess, err := openSession(ctx, cfg, nil, nil, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	if !sess.client.IsPaired() {
		return fmt.Errorf("no paired WhatsApp session; run 'formrelay serve' and scan the QR code first")
	}
	if err := sess.client.Start(ctx); err != nil {
		return err
	}

	gate := readiness.NewGate(sess.state, cfg.PollInterval)
	if !gate.WaitUntilReady(cfg.ReadyTimeout) {
		return fmt.Errorf("whatsapp client not ready after %s", cfg.ReadyTimeout)
	}

	recipient := phone.Recipient(phone.Normalize(number, cfg.CountryCode))
	outcomes := notification.NewDispatcher(sess.client, log).Dispatch(ctx, []string{recipient}, text)
	for _, o := range outcomes {
		if o.Sent() {
			fmt.Fprintf(out, "sent to %s\n", o.Recipient)
			continue
		}
		log.Error("send failed", slog.String("recipient", o.Recipient), slog.String("detail", *o.Detail))
		return fmt.Errorf("sending to %s: %s", o.Recipient, *o.Detail)
	}
	return nil
}
