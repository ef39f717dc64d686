package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/popitgo/client/internal/app"
	"github.com/popitgo/client/internal/config"
)

const usage = `Usage: popitgo <command> [arguments]

Commands:
  login [kakao|google]        sign in through the browser
  logout                      end the session
  whoami                      show the signed-in user
  events list|add|rm|notify   manage tracked events and reminders
  notes list|save|rm          manage event notes
  visits list|status|export   manage booth visit reservations
  inbox list|read             read in-app alerts
`

// command runs one subcommand against a configured client
type command func(ctx context.Context, a *app.App, args []string, out io.Writer) error

var commands = map[string]command{
	"login":  runLogin,
	"logout": runLogout,
	"whoami": runWhoami,
	"events": runEvents,
	"notes":  runNotes,
	"visits": runVisits,
	"inbox":  runInbox,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	// Initialize structured logging
	logger := app.NewLogger(cfg.Log, stderr)
	slog.SetDefault(logger)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize client", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn("failed to close client", slog.String("error", err.Error()))
		}
	}()

	if err := cmd(ctx, a, args[1:], stdout); err != nil {
		fmt.Fprintf(stderr, "popitgo %s: %v\n", args[0], err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}
