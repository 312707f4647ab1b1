package model

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := defaultAppConfig()
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("LoadConfig = %+v, want %+v", cfg, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoadConfigLayers(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `mailbox:
  host: imap.example.com
  username: file@example.com
search:
  days: 14
  keywords: [outage, incident]
  fetch_timeout: 5s
report:
  format: JSON
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("M365_USERNAME", "env@example.com")
	t.Setenv("DEFAULT_DAYS_BACK", "21")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("days", 0, "")
	fs.String("server", "", "")
	fs.StringSlice("folders", nil, "")
	if err := fs.Parse([]string{"--days", "3", "--folders", "INBOX,Archive"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path, fs)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Mailbox.Host != "imap.example.com" {
		t.Errorf("host = %q, unchanged flag must not override the file", cfg.Mailbox.Host)
	}
	if cfg.Mailbox.Username != "env@example.com" {
		t.Errorf("username = %q, environment must override the file", cfg.Mailbox.Username)
	}
	if cfg.Search.Days != 3 {
		t.Errorf("days = %d, flag must override the environment", cfg.Search.Days)
	}
	if !reflect.DeepEqual(cfg.Search.Folders, []string{"INBOX", "Archive"}) {
		t.Errorf("folders = %v", cfg.Search.Folders)
	}
	if !reflect.DeepEqual(cfg.Search.Keywords, []string{"outage", "incident"}) {
		t.Errorf("keywords = %v", cfg.Search.Keywords)
	}
	if cfg.Search.FetchTimeout != 5*time.Second {
		t.Errorf("fetch timeout = %v", cfg.Search.FetchTimeout)
	}
	if cfg.Report.Format != "json" {
		t.Errorf("format = %q, want lower-cased json", cfg.Report.Format)
	}
	if cfg.Mailbox.Port != "993" {
		t.Errorf("port = %q, want default", cfg.Mailbox.Port)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mailbox: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path, nil); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestSaveConfigOmitsPassword(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.Mailbox.Username = "alice@example.com"
	cfg.Mailbox.Password = "hunter2"
	cfg.Search.Keywords = []string{"outage"}
	cfg.Search.FetchTimeout = 10 * time.Second

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Errorf("password written to config:\n%s", data)
	}

	got, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Mailbox.Username != "alice@example.com" || got.Mailbox.Password != "" {
		t.Errorf("mailbox = %+v", got.Mailbox)
	}
	if got.Search.FetchTimeout != 10*time.Second {
		t.Errorf("fetch timeout = %v", got.Search.FetchTimeout)
	}
	if !reflect.DeepEqual(got.Search.Keywords, []string{"outage"}) {
		t.Errorf("keywords = %v", got.Search.Keywords)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*AppConfig)
		want   string
	}{
		{"unknown provider", func(c *AppConfig) { c.Mailbox.Provider = "pop3" }, "unknown mailbox provider"},
		{"imap without host", func(c *AppConfig) { c.Mailbox.Host = "" }, "host and port"},
		{"bad security", func(c *AppConfig) { c.Mailbox.Security = "ssl" }, "unknown security mode"},
		{"mbox without dir", func(c *AppConfig) { c.Mailbox.Provider = ProviderMbox }, "mbox_dir"},
		{"gmail without token", func(c *AppConfig) {
			c.Mailbox.Provider = ProviderGmail
			c.Mailbox.GmailCredentials = "credentials.json"
		}, "gmail_token"},
		{"zero days", func(c *AppConfig) { c.Search.Days = 0 }, "at least 1"},
		{"negative rps", func(c *AppConfig) { c.Search.RPS = -1 }, "rps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultAppConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestCriteria(t *testing.T) {
	cfg := defaultAppConfig()
	cfg.Search.Keywords = []string{"outage"}

	c := cfg.Criteria()
	if c.Days != 30 || !c.IncludeSent || c.SentFolder != DefaultSentFolder {
		t.Errorf("Criteria = %+v", c)
	}

	c.Keywords[0] = "changed"
	if cfg.Search.Keywords[0] != "outage" {
		t.Error("Criteria shares the keyword slice with the config")
	}
}
