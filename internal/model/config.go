package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Mailbox providers.
const (
	ProviderIMAP  = "imap"
	ProviderMbox  = "mbox"
	ProviderGmail = "gmail"
)

// IMAP connection security modes.
const (
	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

// MailboxConfig holds the settings needed to open a mailbox session.
type MailboxConfig struct {
	// Provider selects the transport: "imap", "mbox" or "gmail".
	Provider string `mapstructure:"provider" yaml:"provider"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Security string `mapstructure:"security" yaml:"security"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password is only read from the environment or flags and is never
	// written back to the config file.
	Password string `mapstructure:"password" yaml:"-"`

	// MboxDir is the directory holding one mbox file per folder.
	MboxDir string `mapstructure:"mbox_dir" yaml:"mbox_dir"`

	// GmailCredentials is the OAuth client secret JSON file and
	// GmailToken the previously authorized token file.
	GmailCredentials string `mapstructure:"gmail_credentials" yaml:"gmail_credentials"`
	GmailToken       string `mapstructure:"gmail_token" yaml:"gmail_token"`
}

// Addr returns host:port for network providers.
func (m MailboxConfig) Addr() string {
	return m.Host + ":" + m.Port
}

// SearchConfig holds the default search criteria and execution limits.
type SearchConfig struct {
	Keywords    []string `mapstructure:"keywords" yaml:"keywords"`
	Folders     []string `mapstructure:"folders" yaml:"folders"`
	Days        int      `mapstructure:"days" yaml:"days"`
	IncludeSent bool     `mapstructure:"include_sent" yaml:"include_sent"`
	SentFolder  string   `mapstructure:"sent_folder" yaml:"sent_folder"`

	// MaxSessions bounds how many mailbox sessions search folders in
	// parallel. Servers throttle or disconnect past their own limit.
	MaxSessions int `mapstructure:"max_sessions" yaml:"max_sessions"`

	// FetchTimeout bounds a single message fetch.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`

	// RPS caps message fetches per second; 0 disables the limiter.
	RPS int `mapstructure:"rps" yaml:"rps"`
}

// ReportConfig holds output preferences.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// HistoryConfig controls the local run history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
	Search  SearchConfig  `mapstructure:"search" yaml:"search"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// envBindings maps config keys to the environment variables the tool
// has always honoured.
var envBindings = map[string]string{
	"mailbox.username": "M365_USERNAME",
	"mailbox.password": "M365_PASSWORD",
	"mailbox.host":     "IMAP_SERVER",
	"mailbox.port":     "IMAP_PORT",
	"search.days":      "DEFAULT_DAYS_BACK",
	"report.format":    "DEFAULT_OUTPUT_FORMAT",
}

// flagBindings maps config keys to CLI flag names.
var flagBindings = map[string]string{
	"mailbox.provider":     "provider",
	"mailbox.host":         "server",
	"mailbox.port":         "port",
	"mailbox.security":     "security",
	"mailbox.username":     "username",
	"mailbox.password":     "password",
	"mailbox.mbox_dir":     "mbox-dir",
	"search.folders":       "folders",
	"search.days":          "days",
	"search.max_sessions":  "sessions",
	"search.fetch_timeout": "fetch-timeout",
	"search.rps":           "rps",
	"report.format":        "output",
	"report.output":        "save",
	"history.enabled":      "history",
}

// DefaultConfigDir returns ~/.config/mailtimeline.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailtimeline")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailtimeline/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Mailbox: MailboxConfig{
			Provider: ProviderIMAP,
			Host:     "outlook.office365.com",
			Port:     "993",
			Security: SecurityTLS,
		},
		Search: SearchConfig{
			Days:         30,
			IncludeSent:  true,
			SentFolder:   DefaultSentFolder,
			MaxSessions:  1,
			FetchTimeout: 30 * time.Second,
		},
		Report: ReportConfig{
			Format: "text",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(DefaultConfigDir(), "history.db"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("mailbox.provider", d.Mailbox.Provider)
	v.SetDefault("mailbox.host", d.Mailbox.Host)
	v.SetDefault("mailbox.port", d.Mailbox.Port)
	v.SetDefault("mailbox.security", d.Mailbox.Security)
	v.SetDefault("search.days", d.Search.Days)
	v.SetDefault("search.include_sent", d.Search.IncludeSent)
	v.SetDefault("search.sent_folder", d.Search.SentFolder)
	v.SetDefault("search.max_sessions", d.Search.MaxSessions)
	v.SetDefault("search.fetch_timeout", d.Search.FetchTimeout)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// layering environment variables and any changed flags on top. If the
// file does not exist, defaults are used.
func LoadConfig(path string, flags *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", key, env, err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Mailbox.Provider = strings.ToLower(strings.TrimSpace(cfg.Mailbox.Provider))
	cfg.Mailbox.Security = strings.ToLower(strings.TrimSpace(cfg.Mailbox.Security))
	cfg.Report.Format = strings.ToLower(strings.TrimSpace(cfg.Report.Format))
	if cfg.Search.MaxSessions < 1 {
		cfg.Search.MaxSessions = 1
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The password is never saved.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	mb := cfg.Mailbox
	v.Set("mailbox", map[string]any{
		"provider":          mb.Provider,
		"host":              mb.Host,
		"port":              mb.Port,
		"security":          mb.Security,
		"username":          mb.Username,
		"mbox_dir":          mb.MboxDir,
		"gmail_credentials": mb.GmailCredentials,
		"gmail_token":       mb.GmailToken,
	})
	v.Set("search", map[string]any{
		"keywords":      cfg.Search.Keywords,
		"folders":       cfg.Search.Folders,
		"days":          cfg.Search.Days,
		"include_sent":  cfg.Search.IncludeSent,
		"sent_folder":   cfg.Search.SentFolder,
		"max_sessions":  cfg.Search.MaxSessions,
		"fetch_timeout": cfg.Search.FetchTimeout.String(),
		"rps":           cfg.Search.RPS,
	})
	v.Set("report", cfg.Report)
	v.Set("history", cfg.History)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Validate checks the settings that do not depend on the command being run.
func (c *AppConfig) Validate() error {
	switch c.Mailbox.Provider {
	case ProviderIMAP:
		if c.Mailbox.Host == "" || c.Mailbox.Port == "" {
			return errors.New("imap provider requires host and port")
		}
		switch c.Mailbox.Security {
		case SecurityTLS, SecurityStartTLS, SecurityNone:
		default:
			return fmt.Errorf("unknown security mode %q", c.Mailbox.Security)
		}
	case ProviderMbox:
		if c.Mailbox.MboxDir == "" {
			return errors.New("mbox provider requires mbox_dir")
		}
	case ProviderGmail:
		if c.Mailbox.GmailCredentials == "" || c.Mailbox.GmailToken == "" {
			return errors.New("gmail provider requires gmail_credentials and gmail_token")
		}
	default:
		return fmt.Errorf("unknown mailbox provider %q", c.Mailbox.Provider)
	}

	if c.Search.Days < 1 {
		return fmt.Errorf("search days must be at least 1, got %d", c.Search.Days)
	}
	if c.Search.RPS < 0 {
		return fmt.Errorf("search rps must not be negative, got %d", c.Search.RPS)
	}
	return nil
}

// Criteria converts the search settings into SearchCriteria.
func (c *AppConfig) Criteria() SearchCriteria {
	return SearchCriteria{
		Keywords:    append([]string(nil), c.Search.Keywords...),
		Folders:     append([]string(nil), c.Search.Folders...),
		IncludeSent: c.Search.IncludeSent,
		SentFolder:  c.Search.SentFolder,
		Days:        c.Search.Days,
	}
}
