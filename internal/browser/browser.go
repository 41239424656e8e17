// Package browser opens URLs in the user's default web browser.
//
// Opening is best effort: headless machines, missing opener binaries and
// unknown platforms all yield an error the caller is expected to report
// and otherwise ignore.
package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var (
	// ErrNoDisplay is returned on X11/Wayland platforms when no display is available.
	ErrNoDisplay = errors.New("no display available")
	// ErrUnsupportedPlatform is returned when the OS has no known opener.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Opener launches the platform browser opener.
type Opener struct {
	// GOOS selects the opener command.
	GOOS string
	// Getenv looks up environment variables.
	Getenv func(string) string
	// Start runs a command without waiting for it to exit.
	Start func(name string, args ...string) error
}

// New returns an Opener for the running system.
func New() *Opener {
	return &Opener{
		GOOS:   runtime.GOOS,
		Getenv: os.Getenv,
		Start:  start,
	}
}

// Open launches the default browser at url and returns without waiting
// for the browser.
func (o *Opener) Open(url string) error {
	name, args, err := Command(o.GOOS, url)
	if err != nil {
		return err
	}
	if usesDisplay(o.GOOS) && o.Getenv("DISPLAY") == "" && o.Getenv("WAYLAND_DISPLAY") == "" {
		return ErrNoDisplay
	}
	if err := o.Start(name, args...); err != nil {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}

// Command returns the opener command for goos.
func Command(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos":
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, fmt.Errorf("%s: %w", goos, ErrUnsupportedPlatform)
	}
}

func usesDisplay(goos string) bool {
	return goos != "darwin" && goos != "windows"
}

func start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the opener; its exit status is irrelevant once it started.
	go cmd.Wait()
	return nil
}
