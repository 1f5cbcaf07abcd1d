package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/formrelay/internal/api"
	"github.com/shaharia-lab/formrelay/internal/build"
	"github.com/shaharia-lab/formrelay/internal/config"
	"github.com/shaharia-lab/formrelay/internal/eventbus"
	"github.com/shaharia-lab/formrelay/internal/logger"
	"github.com/shaharia-lab/formrelay/internal/message"
	"github.com/shaharia-lab/formrelay/internal/metrics"
	"github.com/shaharia-lab/formrelay/internal/notification"
	"github.com/shaharia-lab/formrelay/internal/readiness"
	"github.com/shaharia-lab/formrelay/internal/scheduler"
	"github.com/shaharia-lab/formrelay/internal/server"
	"github.com/shaharia-lab/formrelay/internal/service"
	"github.com/shaharia-lab/formrelay/internal/telemetry"
)

// NewServeCmd returns the "serve" subcommand that starts the HTTP server and
// the WhatsApp client.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int
	var noQR bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the form relay HTTP server",
		Long: `Start the HTTP server and connect the WhatsApp linked device. On first
run a QR code is printed; scan it from WhatsApp > Linked devices.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			logFile := filepath.Join(cfg.LogDir(), "system.log")
			printBanner(cmd.OutOrStdout(), fmt.Sprintf("formrelay %s", build.Version), []bannerLine{
				{"Listening", fmt.Sprintf("http://localhost:%d", cfg.Port)},
				{"Recipients", strings.Join(cfg.Recipients, ", ")},
				{"Captcha", cfg.CaptchaMode()},
				{"Logs", logFile},
			})

			var qr io.Writer = cmd.OutOrStdout()
			if noQR {
				qr = nil
			}
			if err := runServe(cmd.Context(), cfg, qr); err != nil {
				fmt.Fprintf(os.Stderr, "An error occurred. Please check the logs at: %s\n", logFile)
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")
	cmd.Flags().BoolVar(&noQR, "no-qr", false, "Do not render the pairing QR code in the terminal")
	return cmd
}

func runServe(parent context.Context, cfg *config.AppConfig, qr io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}

	sysLogger, logCloser, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel(), os.Stderr)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logCloser.Close() //nolint:errcheck

	providers, err := telemetry.Setup(ctx, telemetry.Config{OTLPEnabled: cfg.OTLPEndpoint != ""})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	log := slog.New(logger.Tee(sysLogger.Handler(), providers.LogHandler()))
	slog.SetDefault(log)

	log.Info("formrelay starting",
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
		slog.String("build_date", build.BuildDate),
	)

	routes, err := config.LoadRoutes(cfg.RoutesFile)
	if err != nil {
		return fmt.Errorf("loading routes: %w", err)
	}

	bus := eventbus.New(2, log)
	defer bus.Close()
	bus.Subscribe(func(e eventbus.Event) {
		switch e.Type {
		case eventbus.EventWhatsAppReady:
			metrics.SetReady(true)
		case eventbus.EventWhatsAppLoggedOut:
			metrics.SetReady(false)
		}
	})
	if smtp := smtpConfig(cfg); smtp.Enabled() {
		mirror := notification.NewMailMirror(notification.NewSMTPProvider(smtp), log)
		bus.Subscribe(mirror.Handle)
		log.Info("email mirror enabled", "host", smtp.Host, "to", smtp.ToAddrs)
	}

	sess, err := openSession(ctx, cfg, bus, qr, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.client.Start(ctx); err != nil {
		return err
	}

	if cfg.WatchdogInterval > 0 {
		watchdog, err := scheduler.New(scheduler.Config{
			Connection: sess.client,
			Interval:   cfg.WatchdogInterval,
			Logger:     log,
		})
		if err != nil {
			return err
		}
		watchdog.Start(ctx)
		defer watchdog.Stop() //nolint:errcheck
	}

	verifier, err := buildVerifier(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initializing captcha verifier: %w", err)
	}

	relaySvc := service.NewRelayService(
		service.RelayConfig{
			Recipients:   cfg.Recipients,
			Routes:       routes,
			CountryCode:  cfg.CountryCode,
			ReadyTimeout: cfg.ReadyTimeout,
			MinScore:     cfg.RecaptchaMinScore,
		},
		service.RelayDeps{
			Gate:       readiness.NewGate(sess.state, cfg.PollInterval),
			Dispatcher: notification.NewDispatcher(sess.client, log),
			Verifier:   verifier,
			Renderer:   message.NewRenderer(cfg.Location()),
			Client:     sess.client,
			Publisher:  bus,
			Logger:     log,
		},
	)

	srv := server.New(api.New(relaySvc, log), cfg.Port, cfg.ReadyTimeout, log)
	log.Info("server ready", "url", "http://localhost:"+strconv.Itoa(cfg.Port))
	return srv.Run(ctx)
}
