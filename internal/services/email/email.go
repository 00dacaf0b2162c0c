// Copyright 2025 The Paperdock Authors
// Licensed under the EUPL-1.2

// Package email delivers notification mails. It consumes events from the
// bus; the auth core never talks to SMTP directly.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"codeberg.org/paperdock/paperdock/internal/config"
	"codeberg.org/paperdock/paperdock/internal/events"
	"codeberg.org/paperdock/paperdock/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Service sends mails via SMTP using go-mail.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Subscribe registers the mailer on the notification bus.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.SubscribePasswordLost(func(ctx context.Context, ev events.PasswordLostEvent) {
		if err := s.SendPasswordLost(ctx, ev); err != nil {
			slog.Error("password_lost_mail_failed", "user_id", ev.User.ID, "error", err)
		}
	})
}

// SendPasswordLost mails the recovery key to the affected user.
func (s *Service) SendPasswordLost(ctx context.Context, ev events.PasswordLostEvent) error {
	if ev.User.Email == "" {
		return fmt.Errorf("user %s has no email address", ev.User.ID)
	}

	resetURL := fmt.Sprintf("%s/passwordreset?key=%s", s.baseURL, url.QueryEscape(ev.Key.Key))

	subject := i18n.T(ctx, "password_lost_subject")
	body := i18n.TData(ctx, "password_lost_body", map[string]any{
		"Username": ev.User.Username,
		"ResetURL": resetURL,
	})

	return s.send(ev.User.Email, subject, body)
}

// send sends an email via SMTP.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
