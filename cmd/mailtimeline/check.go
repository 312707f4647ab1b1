package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mail-timeline/internal/mailbox"
	"github.com/nhle/mail-timeline/internal/model"
	"github.com/nhle/mail-timeline/internal/theme"
)

// checkFolderPreview is how many folders check lists by name.
const checkFolderPreview = 5

func (a *app) runFolders(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "folders", "")
	c := addCommonFlags(fs)

	cfg, err := a.load(fs, c, args)
	if err != nil {
		return err
	}
	d, err := a.dialer(cfg)
	if err != nil {
		return err
	}

	return a.withSession(ctx, d, func(sess mailbox.Session) error {
		folders, err := sess.ListFolders(ctx)
		if err != nil {
			return err
		}
		for _, f := range folders {
			fmt.Fprintln(a.stdout, f)
		}
		return nil
	})
}

// runCheck connects, lists folders and counts INBOX, printing
// troubleshooting hints when any step fails.
func (a *app) runCheck(ctx context.Context, args []string) error {
	fs := newFlagSet(a, "check", "")
	c := addCommonFlags(fs)
	guide := fs.Bool("guide", false, "print the Outlook IMAP and app password setup guide")

	cfg, err := a.load(fs, c, args)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, theme.HeaderStyle.Render("Mailbox connection check"))
	a.checkLine("Provider", cfg.Mailbox.Provider)
	a.checkLine("Account", account(cfg))
	if cfg.Mailbox.Provider == model.ProviderIMAP {
		a.checkLine("Server", cfg.Mailbox.Addr()+" ("+cfg.Mailbox.Security+")")
	}
	fmt.Fprintln(a.stdout)

	err = a.check(ctx, cfg)
	if err == nil {
		fmt.Fprintln(a.stdout, theme.OKStyle.Render("\n✓ All checks passed."))
		if *guide {
			a.printGuide()
		}
		return nil
	}

	fmt.Fprintln(a.stdout, theme.ErrorStyle.Render("\n✗ "+err.Error()))
	fmt.Fprintln(a.stdout, "\nPossible fixes:")
	for i, hint := range hints(err) {
		fmt.Fprintf(a.stdout, "%d. %s\n", i+1, hint)
	}
	if *guide || cfg.Mailbox.Provider == model.ProviderIMAP {
		a.printGuide()
	}
	return errors.New("connection check failed")
}

func (a *app) check(ctx context.Context, cfg *model.AppConfig) error {
	d, err := a.dialer(cfg)
	if err != nil {
		return err
	}
	return a.checkMailbox(ctx, d)
}

// checkMailbox logs in, lists the folders and counts the inbox.
func (a *app) checkMailbox(ctx context.Context, d mailbox.Dialer) error {
	start := a.now()
	return a.withSession(ctx, d, func(sess mailbox.Session) error {
		a.ok(fmt.Sprintf("Connected and logged in (%s)", a.now().Sub(start).Round(time.Millisecond)))

		folders, err := sess.ListFolders(ctx)
		if err != nil {
			return err
		}
		a.ok(fmt.Sprintf("Found %d folders:", len(folders)))
		for i, f := range folders {
			if i == checkFolderPreview {
				fmt.Fprintf(a.stdout, "  ... and %d more\n", len(folders)-i)
				break
			}
			fmt.Fprintln(a.stdout, "  - "+theme.FolderStyle.Render(f))
		}

		if err := sess.SelectFolder(ctx, model.DefaultInbox); err != nil {
			return fmt.Errorf("opening %s: %w", model.DefaultInbox, err)
		}
		ids, err := sess.SearchSince(ctx, time.Time{})
		if err != nil {
			return fmt.Errorf("counting %s: %w", model.DefaultInbox, err)
		}
		a.ok(fmt.Sprintf("%s has %d emails", model.DefaultInbox, len(ids)))
		return nil
	})
}

// hints suggests fixes for a failed check.
func hints(err error) []string {
	if errors.Is(err, mailbox.ErrAuthFailed) {
		return []string{
			"Make sure IMAP is enabled in the Outlook settings",
			"Use an app password if multi-factor authentication is enabled",
			"Check that the username and password are correct",
		}
	}
	if errors.Is(err, mailbox.ErrFolderNotFound) {
		return []string{
			"Run `mailtimeline folders` to see the available folder names",
		}
	}
	if mailbox.IsConnError(err) {
		return []string{
			"Check the network connection",
			"Make sure the server address and port are correct",
			"Check the firewall settings",
		}
	}
	return []string{"Check the configuration file and environment variables"}
}

func (a *app) printGuide() {
	fmt.Fprintln(a.stdout, theme.HeaderStyle.Render("\nOutlook IMAP setup"))
	fmt.Fprintln(a.stdout, `1. Sign in to Outlook on the web (https://outlook.office365.com)
2. Open Settings, then View all Outlook settings
3. Choose Mail, then Sync email
4. Make sure POP and IMAP is enabled`)
	fmt.Fprintln(a.stdout, theme.HeaderStyle.Render("\nApp password setup"))
	fmt.Fprintln(a.stdout, `1. Sign in to Microsoft account security (https://account.microsoft.com/security)
2. Choose Advanced security options
3. Under App passwords, create a new app password
4. Name it, for example Mail Timeline
5. Store it with "mailtimeline login" or set M365_PASSWORD`)
}

func (a *app) checkLine(label, value string) {
	fmt.Fprintln(a.stdout, theme.LabelStyle.Render(label)+theme.ValueStyle.Render(value))
}

func (a *app) ok(msg string) {
	fmt.Fprintln(a.stdout, theme.OKStyle.Render("✓ ")+msg)
}
