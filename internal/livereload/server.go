// Package livereload serves the development proxy: requests are forwarded
// to the local WordPress site, HTML responses get a small client script, and
// connected browsers are told over a WebSocket to reload the page or swap
// stylesheets in place.
package livereload

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/logging"
)

const (
	socketPath = "/__wpforge/ws"
	scriptPath = "/__wpforge/client.js"
)

// Server is the live-reload proxy.
type Server struct {
	cfg    config.ServerConfig
	target *url.URL
	logger logging.Logger
	hub    *Hub

	mutex    sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}

	// openURL opens the browser; replaced in tests.
	openURL func(string) error
}

// New creates a server proxying localURL. Nothing listens until Start.
func New(cfg config.ServerConfig, localURL string, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	target, err := ParseTarget(localURL)
	if err != nil {
		return nil, forgeerrors.NewConfigError(forgeerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid local_url %q", localURL)).WithContext("cause", err.Error())
	}
	logger = logger.WithComponent("livereload")
	return &Server{
		cfg:     cfg,
		target:  target,
		logger:  logger,
		hub:     NewHub(logger),
		openURL: openBrowser,
	}, nil
}

// Handler returns the proxy's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(socketPath, s.hub)
	mux.HandleFunc(scriptPath, serveClient)
	mux.Handle("/", newProxy(s.target, scriptPath))
	return mux
}

// Start begins listening and returns once the socket is bound. The server
// shuts down when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.server != nil {
		return forgeerrors.NewInternalError(forgeerrors.ErrCodeInternalError, "live-reload server already started", nil)
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return forgeerrors.NewIOError(forgeerrors.ErrCodeInternalError,
			fmt.Sprintf("cannot listen on %s", addr), err)
	}

	s.listener = listener
	s.done = make(chan struct{})
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, err, "Live-reload server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	proxyURL := "http://" + listener.Addr().String()
	s.logger.Info(ctx, "Live reload proxy started", "url", proxyURL, "target", s.target.String())

	if s.cfg.Open {
		go func() {
			// Give the serve goroutine a moment before the browser connects.
			time.Sleep(100 * time.Millisecond)
			if err := s.openURL(proxyURL); err != nil {
				s.logger.Warn(ctx, err, "Failed to open browser", "url", proxyURL)
			}
		}()
	}
	return nil
}

func (s *Server) shutdown() {
	s.mutex.Lock()
	server, done := s.server, s.done
	s.mutex.Unlock()
	if server == nil {
		return
	}

	s.hub.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		_ = server.Close()
	}
	<-done
}

// Addr is the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Clients returns the number of connected browsers.
func (s *Server) Clients() int {
	return s.hub.Clients()
}

// Reload tells every browser to reload the page.
func (s *Server) Reload(ctx context.Context) {
	s.logger.Debug(ctx, "Reloading browsers", "clients", s.hub.Clients())
	s.hub.Broadcast(Message{Type: MessageReload})
}

// Stream injects changed stylesheets without a page reload. Anything other
// than CSS in files falls back to a full reload.
func (s *Server) Stream(ctx context.Context, files []string) {
	var css []string
	for _, f := range files {
		f = strings.TrimPrefix(path.Clean(strings.ReplaceAll(f, "\\", "/")), "./")
		switch path.Ext(f) {
		case ".css":
			css = append(css, f)
		case ".map":
		default:
			s.Reload(ctx)
			return
		}
	}
	if len(css) == 0 {
		return
	}
	s.logger.Debug(ctx, "Streaming stylesheets", "files", len(css))
	s.hub.Broadcast(Message{Type: MessageCSS, Paths: css})
}

// NotifyError shows a build failure as an overlay in connected browsers.
func (s *Server) NotifyError(_ context.Context, title string, err error) {
	if err == nil {
		return
	}
	s.hub.Broadcast(Message{Type: MessageError, Title: title, Message: err.Error()})
}

func openBrowser(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q", rawURL)
	}

	switch runtime.GOOS {
	case "linux":
		return exec.Command("xdg-open", u.String()).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", u.String()).Start()
	case "darwin":
		return exec.Command("open", u.String()).Start()
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}
