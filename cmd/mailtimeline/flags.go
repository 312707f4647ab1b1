package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/nhle/mail-timeline/internal/model"
)

// commonFlags are shared by every command that opens a mailbox.
type commonFlags struct {
	configPath string
	verbose    bool
}

func newFlagSet(a *app, name, args string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: mailtimeline %s [flags] %s\n\nFlags:\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// addCommonFlags registers the config and connection flags. Their names
// are bound to config keys by model.LoadConfig.
func addCommonFlags(fs *pflag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", model.DefaultConfigPath(), "config file")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log debug output")

	fs.String("provider", "", "mailbox provider: imap, mbox or gmail")
	fs.String("server", "", "IMAP server host (env IMAP_SERVER)")
	fs.String("port", "", "IMAP server port (env IMAP_PORT)")
	fs.String("security", "", "IMAP connection security: tls, starttls or none")
	fs.StringP("username", "u", "", "mailbox account (env M365_USERNAME)")
	fs.StringP("password", "p", "", "mailbox password, an app password is recommended (env M365_PASSWORD)")
	fs.String("mbox-dir", "", "directory of mbox files for the mbox provider")
	return c
}

// load parses args, builds the logger and loads the layered config.
func (a *app) load(fs *pflag.FlagSet, c *commonFlags, args []string) (*model.AppConfig, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	a.logger = newLogger(a.stderr, c.verbose)

	cfg, err := model.LoadConfig(c.configPath, fs)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a.logger.Debug("configuration loaded", "path", c.configPath, "provider", cfg.Mailbox.Provider)
	return cfg, nil
}
