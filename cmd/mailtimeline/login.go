package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/mail-timeline/internal/credential"
	"github.com/nhle/mail-timeline/internal/mailbox/gmail"
	"github.com/nhle/mail-timeline/internal/model"
	"github.com/nhle/mail-timeline/internal/theme"
)

// runLogin stores account settings in the config file and the password
// in the keyring. For gmail it runs the OAuth consent flow instead.
func (a *app) runLogin(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "login", "")
	c := addCommonFlags(fs)
	forget := fs.Bool("forget", false, "remove the stored password instead")

	cfg, err := a.load(fs, c, args)
	if err != nil {
		return err
	}

	if cfg.Mailbox.Provider == model.ProviderGmail {
		return a.loginGmail(ctx, cfg)
	}
	if cfg.Mailbox.Provider != model.ProviderIMAP {
		return fmt.Errorf("the %s provider needs no login", cfg.Mailbox.Provider)
	}

	if *forget {
		if cfg.Mailbox.Username == "" {
			return errors.New("no username configured")
		}
		if err := credential.Delete(credential.PasswordKey(model.ProviderIMAP, cfg.Mailbox.Username)); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, theme.OKStyle.Render("✓ Password removed"))
		return nil
	}

	if !a.interactive {
		return errors.New("login needs an interactive terminal")
	}

	password := cfg.Mailbox.Password
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Description("IMAP server hostname").
				Placeholder("outlook.office365.com").
				Value(&cfg.Mailbox.Host).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Description("IMAP server port (e.g., 993)").
				Placeholder("993").
				Value(&cfg.Mailbox.Port).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Description("Mailbox account").
				Placeholder("you@example.com").
				Value(&cfg.Mailbox.Username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("An app password is recommended when MFA is enabled").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(validateRequired("Password")),
		),
	).WithInput(a.stdin).WithOutput(a.stderr)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(a.stdout, "Cancelled, nothing was saved.")
			return nil
		}
		return fmt.Errorf("reading login form: %w", err)
	}

	key := credential.PasswordKey(model.ProviderIMAP, cfg.Mailbox.Username)
	if err := credential.Set(key, password); err != nil {
		return err
	}
	if err := model.SaveConfig(c.configPath, cfg); err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, theme.OKStyle.Render("✓ Password saved to the keyring"))
	fmt.Fprintln(a.stdout, theme.HelpStyle.Render("Run `mailtimeline check` to test the connection."))
	return nil
}

func (a *app) loginGmail(ctx context.Context, cfg *model.AppConfig) error {
	oauthCfg, err := gmail.OAuthConfig(cfg.Mailbox.GmailCredentials)
	if err != nil {
		return err
	}
	if !a.interactive {
		return errors.New("login needs an interactive terminal")
	}

	fmt.Fprintln(a.stdout, "Open the following link in your browser and paste the authorization code:")
	fmt.Fprintln(a.stdout, gmail.AuthURL(oauthCfg))

	var code string
	err = a.prompt(huh.NewInput().
		Title("Authorization code").
		Value(&code).
		Validate(validateRequired("Authorization code")))
	if err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}

	if err := gmail.Authorize(ctx, oauthCfg, strings.TrimSpace(code), cfg.Mailbox.GmailToken); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, theme.OKStyle.Render("✓ Token saved to "+cfg.Mailbox.GmailToken))
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}
