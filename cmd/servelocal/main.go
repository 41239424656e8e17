// Command servelocal serves a static folder on loopback and opens it in the
// default browser.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/f4ah6o/servelocal/internal/browser"
	"github.com/f4ah6o/servelocal/internal/config"
	"github.com/f4ah6o/servelocal/internal/console"
	"github.com/f4ah6o/servelocal/internal/launcher"
)

func main() {
	ctx, stop := interruptContext(context.Background())
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// interruptContext is cancelled by the first SIGINT or SIGTERM. Signal
// handling is then reset, so a second Ctrl+C during shutdown kills the
// process.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("servelocal", flag.ContinueOnError)
	fs.SetOutput(stderr)

	port := fs.Int("port", 0, "Port to bind to (0 = auto)")
	dir := fs.String("dir", ".", "Directory to serve")
	host := fs.String("host", config.DefaultHost, "Loopback address to bind to")
	noBrowser := fs.Bool("no-browser", false, "Do not open the browser")
	configPath := fs.String("config", "", "Config file (.toml, .yaml); defaults to servelocal.* in the served directory")
	quiet := fs.Bool("quiet", false, "Disable request logging")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// Only explicitly set flags override the config file.
	var flags config.Partial
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			flags.Port = port
		case "dir":
			flags.Dir = dir
		case "host":
			flags.Host = host
		case "no-browser":
			open := !*noBrowser
			flags.OpenBrowser = &open
		case "quiet":
			flags.Quiet = quiet
		case "no-color":
			flags.NoColor = noColor
		}
	})

	cfg, used, err := config.Resolve(*configPath, flags)
	if err != nil {
		console.New(stdout, stderr, *noColor).Failed(err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if used != "" {
		logger.Info("loaded config", slog.String("path", used))
	}

	l := &launcher.Launcher{
		Config:  cfg,
		Opener:  browser.New(),
		Console: console.New(stdout, stderr, cfg.NoColor),
		Logger:  logger,
	}

	if err := l.Run(ctx); err != nil {
		var startErr *launcher.StartError
		if errors.As(err, &startErr) {
			l.Console.Failed(startErr.Err)
		} else {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
		}
		return 1
	}
	return 0
}
