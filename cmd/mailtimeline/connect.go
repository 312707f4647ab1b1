package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/nhle/mail-timeline/internal/credential"
	"github.com/nhle/mail-timeline/internal/mailbox"
	"github.com/nhle/mail-timeline/internal/mailbox/gmail"
	"github.com/nhle/mail-timeline/internal/mailbox/imapmail"
	"github.com/nhle/mail-timeline/internal/mailbox/mboxdir"
	"github.com/nhle/mail-timeline/internal/model"
)

// resolvePassword fills in the IMAP password. Flags, the environment and
// the config file come first, then the keyring, then an interactive
// prompt.
func (a *app) resolvePassword(cfg *model.AppConfig) error {
	mb := &cfg.Mailbox
	if mb.Provider != model.ProviderIMAP || mb.Password != "" {
		return nil
	}
	if mb.Username == "" {
		return errors.New("no username configured: pass --username or set M365_USERNAME")
	}

	key := credential.PasswordKey(mb.Provider, mb.Username)
	pw, err := credential.Get(key)
	if err == nil {
		a.logger.Debug("password loaded from keyring", "key", key)
		mb.Password = pw
		return nil
	}
	if !errors.Is(err, credential.ErrNotFound) {
		a.logger.Warn("keyring unavailable", "error", err)
	}

	if !a.interactive {
		return fmt.Errorf("no password for %s: pass --password, set M365_PASSWORD or run mailtimeline login", mb.Username)
	}
	pw, err = a.promptPassword(fmt.Sprintf("Password for %s", mb.Username))
	if err != nil {
		return err
	}
	mb.Password = pw
	return nil
}

func (a *app) promptPassword(title string) (string, error) {
	var pw string
	err := a.prompt(huh.NewInput().
		Title(title).
		Description("An app password is recommended when MFA is enabled.").
		EchoMode(huh.EchoModePassword).
		Value(&pw).
		Validate(validateRequired("Password")))
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return pw, nil
}

// prompt runs a single field on the app's terminal.
func (a *app) prompt(field huh.Field) error {
	return huh.NewForm(huh.NewGroup(field)).
		WithInput(a.stdin).
		WithOutput(a.stderr).
		Run()
}

// dialer returns the session factory for the configured provider.
func (a *app) dialer(cfg *model.AppConfig) (mailbox.Dialer, error) {
	mb := cfg.Mailbox
	switch mb.Provider {
	case model.ProviderIMAP:
		if err := a.resolvePassword(cfg); err != nil {
			return nil, err
		}
		return imapmail.NewDialer(imapmail.ConfigFrom(cfg.Mailbox, a.logger)), nil
	case model.ProviderMbox:
		return mboxdir.NewDialer(mb.MboxDir), nil
	case model.ProviderGmail:
		return gmail.NewDialer(mb.GmailCredentials, mb.GmailToken), nil
	default:
		return nil, fmt.Errorf("unknown mailbox provider %q", mb.Provider)
	}
}

// account names the searched mailbox in logs and history.
func account(cfg *model.AppConfig) string {
	switch cfg.Mailbox.Provider {
	case model.ProviderMbox:
		return cfg.Mailbox.MboxDir
	case model.ProviderGmail:
		return "me"
	default:
		return cfg.Mailbox.Username
	}
}

// withSession dials one session and closes it after fn returns.
func (a *app) withSession(ctx context.Context, d mailbox.Dialer, fn func(mailbox.Session) error) error {
	sess, err := d.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			a.logger.Debug("closing session", "error", err)
		}
	}()
	return fn(sess)
}
