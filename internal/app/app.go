// Package app wires configuration, backend, services and state containers
// into one handle.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/popitgo/client/internal/auth"
	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/backend/rest"
	"github.com/popitgo/client/internal/backend/surreal"
	"github.com/popitgo/client/internal/config"
	"github.com/popitgo/client/internal/service"
	"github.com/popitgo/client/internal/session"
	"github.com/popitgo/client/internal/store"
)

// App is a configured client
type App struct {
	Config *config.Config
	Client *backend.Client
	Logger *slog.Logger

	// Services
	Events        *service.EventService
	Notifications *service.NotificationService
	Notes         *service.NoteService
	Visits        *service.VisitReservationService
	Inbox         *service.InboxService
	Profiles      *service.ProfileService

	// State containers
	Auth              *auth.Container
	EventStore        *store.Events
	NotificationStore *store.Notifications
	NoteStore         *store.Notes
	VisitStore        *store.VisitReservations
	InboxStore        *store.Inbox

	sessions backend.SessionStore
}

// New builds the transport named by cfg.Backend.Driver, the auth API and
// the session store, then restores a persisted session
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var transport backend.Transport
	switch cfg.Backend.Driver {
	case config.DriverREST, "":
		t, err := rest.New(cfg.Backend, logger)
		if err != nil {
			return nil, err
		}
		transport = t
	case config.DriverSurreal:
		t, err := surreal.Open(ctx, cfg.Backend, logger)
		if err != nil {
			return nil, err
		}
		transport = t
	default:
		return nil, fmt.Errorf("%w: unknown backend driver %q", config.ErrConfiguration, cfg.Backend.Driver)
	}

	authAPI, err := rest.NewAuth(cfg.Backend.AuthEndpoint(), cfg.Backend.Key, cfg.Backend.Timeout, logger)
	if err != nil {
		_ = transport.Close(ctx)
		return nil, err
	}

	sessions, err := session.Open(cfg.Session, cfg.Backend.Key)
	if err != nil {
		_ = transport.Close(ctx)
		return nil, err
	}

	a := Assemble(cfg, transport, authAPI, sessions, logger)
	a.start(ctx)
	return a, nil
}

// start restores a persisted session and loads the signed-in user so the
// auth container leaves Loading. Failures are logged; the client stays
// usable signed out.
func (a *App) start(ctx context.Context) {
	if err := a.Client.Auth().Restore(ctx); err != nil {
		a.Logger.Warn("failed to restore session", slog.String("error", err.Error()))
	}
	if err := a.Auth.Refresh(ctx); err != nil {
		a.Logger.Warn("failed to load signed-in user", slog.String("error", err.Error()))
	}
}

// Assemble builds the services and containers over an existing transport
func Assemble(cfg *config.Config, transport backend.Transport, authAPI backend.Authenticator, sessions backend.SessionStore, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	client := backend.New(transport, backend.Options{
		Authenticator: authAPI,
		Sessions:      sessions,
		RedirectURL:   cfg.CallbackURL(),
		Logger:        logger,
	})

	a := &App{
		Config:        cfg,
		Client:        client,
		Logger:        logger,
		Events:        service.NewEventService(client),
		Notifications: service.NewNotificationService(client),
		Notes:         service.NewNoteService(client),
		Visits:        service.NewVisitReservationService(client),
		Inbox:         service.NewInboxService(client),
		Profiles:      service.NewProfileService(client, cfg.Auth.ProfileTable),
		sessions:      sessions,
	}
	a.Auth = auth.New(client.Auth(), a.Profiles, logger)
	a.EventStore = store.NewEvents(a.Events, a.Notifications, logger)
	a.NotificationStore = store.NewNotifications(a.Notifications, logger)
	a.NoteStore = store.NewNotes(a.Notes, logger)
	a.VisitStore = store.NewVisitReservations(a.Visits, a.Inbox, logger)
	a.InboxStore = store.NewInbox(a.Inbox, nil, logger)
	return a
}

// Close stops the auth container and releases the transport and session store
func (a *App) Close(ctx context.Context) error {
	a.Auth.Close()
	err := a.Client.Close(ctx)
	if c, ok := a.sessions.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// NewLogger builds the slog logger described by cfg. Unknown levels fall
// back to info and unknown formats to text.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
