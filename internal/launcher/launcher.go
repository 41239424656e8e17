// Package launcher ties the pieces together: it serves a folder on
// loopback, opens the browser and waits for an interrupt.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/f4ah6o/servelocal/internal/config"
	"github.com/f4ah6o/servelocal/internal/console"
	"github.com/f4ah6o/servelocal/internal/server"
	"github.com/f4ah6o/servelocal/internal/site"
)

// Opener opens a URL in a browser.
type Opener interface {
	Open(url string) error
}

// StartError is returned when the server could not be started, for
// example because the port is already in use.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return e.Err.Error()
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// Launcher runs one serve session.
type Launcher struct {
	Config  config.Config
	Opener  Opener
	Console *console.Console
	Logger  *slog.Logger

	listen func(host string, port int) (net.Listener, error)
}

// Run serves Config.Dir until ctx is cancelled. Startup failures are
// returned as *StartError; an interrupt-triggered shutdown returns nil.
func (l *Launcher) Run(ctx context.Context) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root, err := site.Resolve(l.Config.Dir)
	if err != nil {
		return &StartError{Err: err}
	}
	if err := os.Chdir(root); err != nil {
		return &StartError{Err: fmt.Errorf("failed to change directory: %w", err)}
	}

	info, err := site.Inspect(root)
	if err != nil {
		logger.Debug("could not inspect site", slog.String("error", err.Error()))
	}
	if !info.HasIndex {
		logger.Debug("no index.html, browser will show a directory listing", slog.String("root", root))
	}

	listen := l.listen
	if listen == nil {
		listen = server.Listen
	}
	ln, err := listen(l.Config.Host, l.Config.Port)
	if err != nil {
		return &StartError{Err: err}
	}

	srv := server.New(ln, root, server.Options{
		Quiet:           l.Config.Quiet,
		ShutdownTimeout: l.Config.ShutdownTimeout,
		Logger:          logger,
	})
	url := srv.URL()

	l.Console.Serving(root, url, info.Title)

	if l.Config.OpenBrowser && l.Opener != nil {
		if err := l.Opener.Open(url); err != nil {
			logger.Debug("could not open browser", slog.String("url", url), slog.String("error", err.Error()))
			l.Console.BrowserFailed(url)
		}
	}

	err = srv.Serve(ctx)
	if ctx.Err() != nil {
		l.Console.ShuttingDown()
	}
	return err
}
