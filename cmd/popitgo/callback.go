package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/popitgo/client/internal/middleware"
)

// callbackResult is what the provider sent back to the redirect URL
type callbackResult struct {
	Code  string
	State string
	Err   error
}

// newCallbackRouter serves the OAuth redirect at path and reports the first
// result on out
func newCallbackRouter(path string, out chan<- callbackResult) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		res := callbackResult{Code: q.Get("code"), State: q.Get("state")}
		switch {
		case q.Get("error") != "":
			res.Err = fmt.Errorf("%s: %s", q.Get("error"), q.Get("error_description"))
		case res.Code == "":
			res.Err = errors.New("callback carried no authorization code")
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if res.Err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, "Sign-in failed: %v\nYou can close this window.\n", res.Err)
		} else {
			_, _ = fmt.Fprintln(w, "Signed in. You can close this window and return to the terminal.")
		}

		select {
		case out <- res:
		default:
		}
	}).Methods(http.MethodGet)
	return r
}

// waitForCallback listens on the host of redirectURL until the provider
// returns or ctx ends
func waitForCallback(ctx context.Context, redirectURL string, logger *slog.Logger) (callbackResult, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return callbackResult{}, fmt.Errorf("invalid redirect url: %w", err)
	}
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return callbackResult{}, fmt.Errorf("listen on %s: %w", u.Host, err)
	}

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler: middleware.Chain(newCallbackRouter(u.Path, results),
			middleware.RequestID,
			middleware.Logger(logger),
			middleware.Recovery(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("callback server failed", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Debug("waiting for oauth callback", slog.String("addr", u.Host), slog.String("path", u.Path))
	select {
	case res := <-results:
		return res, res.Err
	case <-ctx.Done():
		return callbackResult{}, ctx.Err()
	}
}
