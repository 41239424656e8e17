// Package console prints the launcher's user-facing messages.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Console writes status messages to out and failures to errOut.
type Console struct {
	out    io.Writer
	errOut io.Writer

	url   *color.Color
	title *color.Color
	warn  *color.Color
	fail  *color.Color
}

// New creates a Console. Color follows color.NoColor unless noColor forces
// it off. Each stream also loses color when it is a file that is not a
// terminal, so redirecting only stderr keeps escape codes out of the log.
func New(out, errOut io.Writer, noColor bool) *Console {
	c := &Console{
		out:    out,
		errOut: errOut,
		url:    color.New(color.FgCyan, color.Underline),
		title:  color.New(color.Bold),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed, color.Bold),
	}
	if noColor || redirected(out) {
		for _, col := range []*color.Color{c.url, c.title, c.warn} {
			col.DisableColor()
		}
	}
	if noColor || redirected(errOut) {
		c.fail.DisableColor()
	}
	return c
}

// redirected reports whether w is a file other than a terminal.
func redirected(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// Serving announces the served folder and its URL.
func (c *Console) Serving(dir, url, title string) {
	if title != "" {
		fmt.Fprintf(c.out, "🌐 %s\n", c.title.Sprint(title))
	}
	fmt.Fprintf(c.out, "Serving %s at %s\n", dir, c.url.Sprint(url))
	fmt.Fprintln(c.out, "Press Ctrl+C to stop")
}

// BrowserFailed tells the user to open url manually.
func (c *Console) BrowserFailed(url string) {
	fmt.Fprintf(c.out, "%s %s\n", c.warn.Sprint("Could not open browser automatically. Visit:"), c.url.Sprint(url))
}

// ShuttingDown reports an interrupt-triggered shutdown.
func (c *Console) ShuttingDown() {
	fmt.Fprintln(c.out, "\nShutting down server")
}

// Failed reports a startup failure.
func (c *Console) Failed(err error) {
	fmt.Fprintf(c.errOut, "%s %v\n", c.fail.Sprint("Failed to start server:"), err)
}
