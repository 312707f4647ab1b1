// Command mailtimeline searches a mailbox for keywords and reports the
// matching messages as a timeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const usage = `Usage: mailtimeline <command> [flags]

Commands:
  search     search folders for keywords and print a timeline report (default)
  folders    list the folders of the mailbox
  check      test the connection and print troubleshooting hints
  login      store the mailbox password in the OS keyring
  history    list previous runs, show a stored report or prune old runs

Run "mailtimeline <command> --help" for the flags of a command.
`

// app holds the process-level dependencies of every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	now func() time.Time

	// interactive reports whether prompts may be shown.
	interactive bool

	logger *slog.Logger
}

func main() {
	// A missing .env file is normal.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		now:         time.Now,
		interactive: isTerminal(os.Stdin),
	}

	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		if a.logger != nil {
			a.logger.Error("mailtimeline failed", "error", err)
		} else {
			fmt.Fprintf(os.Stderr, "mailtimeline: %v\n", err)
		}
		os.Exit(1)
	}
}

// run dispatches to a command. Arguments that start with a flag or a
// keyword run search, so "mailtimeline -d 7 outage" keeps working.
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return errors.New("no command given")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "search":
		return a.runSearch(ctx, rest)
	case "folders":
		return a.runFolders(ctx, rest)
	case "check":
		return a.runCheck(ctx, rest)
	case "login":
		return a.runLogin(ctx, rest)
	case "history":
		return a.runHistory(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return nil
	default:
		return a.runSearch(ctx, args)
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// newLogger builds the stderr text logger; verbose lowers the level to
// debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
