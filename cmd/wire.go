package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/shaharia-lab/formrelay/internal/captcha"
	"github.com/shaharia-lab/formrelay/internal/config"
	"github.com/shaharia-lab/formrelay/internal/notification"
	"github.com/shaharia-lab/formrelay/internal/readiness"
	"github.com/shaharia-lab/formrelay/internal/storage"
	"github.com/shaharia-lab/formrelay/internal/whatsapp"
)

// session bundles the WhatsApp client with the state and database it owns.
type session struct {
	client *whatsapp.Client
	state  *readiness.State
	db     *sql.DB
}

func (s *session) Close() {
	s.client.Close()
	_ = s.db.Close()
}

// openSession opens the session database and builds an unstarted client.
func openSession(ctx context.Context, cfg *config.AppConfig, publisher whatsapp.EventPublisher, qr io.Writer, log *slog.Logger) (*session, error) {
	db, err := storage.OpenSQLite(ctx, cfg.SessionDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	state := readiness.NewState()
	client, err := whatsapp.New(ctx, db, state, publisher, log, whatsapp.Options{QRWriter: qr})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &session{client: client, state: state, db: db}, nil
}

// buildVerifier picks the CAPTCHA verifier the configuration asks for.
func buildVerifier(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (captcha.Verifier, error) {
	switch cfg.CaptchaMode() {
	case "enterprise":
		var opts []option.ClientOption
		switch {
		case cfg.RecaptchaEnterpriseCredentialsFile != "":
			credsOpt, err := captcha.CredentialsFileOption(ctx, cfg.RecaptchaEnterpriseCredentialsFile)
			if err != nil {
				return nil, err
			}
			opts = append(opts, credsOpt)
		case cfg.RecaptchaEnterpriseAPIKey != "":
			opts = append(opts, option.WithAPIKey(cfg.RecaptchaEnterpriseAPIKey))
		}
		v, err := captcha.NewEnterpriseVerifier(ctx, cfg.RecaptchaEnterpriseProject, cfg.RecaptchaSiteKey, opts...)
		if err != nil {
			return nil, err
		}
		log.Info("captcha verification enabled", "mode", "enterprise", "min_score", cfg.RecaptchaMinScore)
		return v, nil
	case "siteverify":
		log.Info("captcha verification enabled", "mode", "siteverify", "min_score", cfg.RecaptchaMinScore)
		return captcha.NewSiteVerifier(cfg.RecaptchaSecretKey, ""), nil
	default:
		log.Warn("RECAPTCHA_SECRET_KEY not set, reCAPTCHA verification will be skipped")
		return captcha.Noop{}, nil
	}
}

// smtpConfig maps the SMTP_* settings onto the mail provider config.
func smtpConfig(cfg *config.AppConfig) notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		FromAddr:   cfg.SMTPFrom,
		ToAddrs:    cfg.SMTPTo,
		Encryption: cfg.SMTPEncryption,
	}
}
