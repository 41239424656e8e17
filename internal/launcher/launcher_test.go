package launcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f4ah6o/servelocal/internal/config"
	"github.com/f4ah6o/servelocal/internal/console"
)

type fakeOpener struct {
	urls chan string
	err  error
}

func (f *fakeOpener) Open(url string) error {
	f.urls <- url
	return f.err
}

// syncBuffer is written by Run's goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newSite(t *testing.T) string {
	t.Helper()
	testChdir(t, t.TempDir())

	root := filepath.Join(t.TempDir(), "chem-lab")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"),
		[]byte("<html><head><title>Chemistry</title></head><body>atoms</body></html>"), 0o644))
	return root
}

func newLauncher(cfg config.Config, opener Opener, out *syncBuffer) *Launcher {
	return &Launcher{
		Config:  cfg,
		Opener:  opener,
		Console: console.New(out, out, true),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.Dir = dir
	cfg.Quiet = true
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestRunServesUntilCancelled(t *testing.T) {
	root := newSite(t)
	opener := &fakeOpener{urls: make(chan string, 1)}
	out := &syncBuffer{}
	l := newLauncher(testConfig(root), opener, out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var url string
	select {
	case url = <-opener.urls:
	case <-time.After(5 * time.Second):
		t.Fatal("browser was never opened")
	}
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:"), url)
	assert.NotEqual(t, "http://127.0.0.1:0", url, "URL carries the bound port")

	resp, err := http.Get(url + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "atoms")

	cwd, err := os.Getwd()
	require.NoError(t, err)
	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotCwd, err := filepath.EvalSymlinks(cwd)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotCwd, "Run changes into the served folder")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	got := out.String()
	assert.Contains(t, got, "Chemistry")
	assert.Contains(t, got, "Serving "+root+" at "+url)
	assert.Contains(t, got, "Shutting down server")
	assert.NotContains(t, got, "Could not open browser")
}

func TestRunBrowserFailureIsNotFatal(t *testing.T) {
	root := newSite(t)
	opener := &fakeOpener{urls: make(chan string, 1), err: errors.New("no display available")}
	out := &syncBuffer{}
	l := newLauncher(testConfig(root), opener, out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	url := <-opener.urls
	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, out.String(), "Could not open browser automatically. Visit: "+url)
}

func TestRunWithoutBrowser(t *testing.T) {
	root := newSite(t)
	opener := &fakeOpener{urls: make(chan string, 1)}
	cfg := testConfig(root)
	cfg.OpenBrowser = false
	l := newLauncher(cfg, opener, &syncBuffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Run(ctx))
	assert.Empty(t, opener.urls)
}

func TestRunPortInUse(t *testing.T) {
	root := newSite(t)
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := testConfig(root)
	cfg.Port = taken.Addr().(*net.TCPAddr).Port
	opener := &fakeOpener{urls: make(chan string, 1)}
	l := newLauncher(cfg, opener, &syncBuffer{})

	err = l.Run(context.Background())
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.Empty(t, opener.urls, "browser is not opened when bind fails")
}

func TestRunMissingDir(t *testing.T) {
	testChdir(t, t.TempDir())
	l := newLauncher(testConfig(filepath.Join(t.TempDir(), "missing")), nil, &syncBuffer{})

	err := l.Run(context.Background())
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunServeFailureIsNotAnInterrupt(t *testing.T) {
	root := newSite(t)
	out := &syncBuffer{}
	cfg := testConfig(root)
	cfg.OpenBrowser = false
	l := newLauncher(cfg, nil, out)
	l.listen = func(host string, port int) (net.Listener, error) {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
		if err != nil {
			return nil, err
		}
		// Accept fails at once, so Serve stops without any interrupt.
		ln.Close()
		return ln, nil
	}

	err := l.Run(context.Background())
	require.Error(t, err)
	var startErr *StartError
	assert.False(t, errors.As(err, &startErr))
	assert.NotContains(t, out.String(), "Shutting down server")
}
