package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

type server struct {
	fsys    fs.FS
	files   http.Handler
	log     *slog.Logger
	metrics *metrics // nil when metrics are disabled
}

func newServer(fsys fs.FS, log *slog.Logger, m *metrics) *server {
	return &server{
		fsys:    fsys,
		files:   http.FileServerFS(fsys),
		log:     log,
		metrics: m,
	}
}

// ServeHTTP passes GET and HEAD straight to the file server; everything
// else is refused the way a handler with no method for the verb would.
func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if isIndex(r.URL.Path) {
			s.serveIndex(rec, r)
		} else {
			s.files.ServeHTTP(rec, r)
		}
	default:
		http.Error(rec, fmt.Sprintf("501 unsupported method (%s)", r.Method), http.StatusNotImplemented)
	}

	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	d := time.Since(start)
	s.log.Info("Request",
		slog.String("id", uuid.NewString()),
		slog.String("remote", r.RemoteAddr),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", rec.status),
		slog.Int64("bytes", rec.bytes),
		slog.Duration("duration", d),
	)
	s.metrics.observe(r.Method, rec.status, rec.bytes, d)
}

const indexPage = "index.html"

// isIndex reports whether p names an index.html file, which the file server
// would otherwise redirect to its directory.
func isIndex(p string) bool {
	return !strings.HasSuffix(p, "/") && path.Base(p) == indexPage
}

// serveIndex answers a request for an index.html file with the file itself.
func (s *server) serveIndex(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	f, err := s.fsys.Open(name)
	if err != nil {
		serveError(w, err)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		serveError(w, err)
		return
	}
	if fi.IsDir() {
		s.files.ServeHTTP(w, r)
		return
	}

	rs, ok := f.(io.ReadSeeker)
	if !ok {
		bs, err := io.ReadAll(f)
		if err != nil {
			serveError(w, err)
			return
		}
		rs = bytes.NewReader(bs)
	}
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), rs)
}

// serveError maps fs errors onto the statuses the file server uses.
func serveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		http.Error(w, "404 page not found", http.StatusNotFound)
	case errors.Is(err, fs.ErrPermission):
		http.Error(w, "403 Forbidden", http.StatusForbidden)
	default:
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
	}
}

// statusRecorder remembers what the wrapped handler sent.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

// ReadFrom keeps the sendfile path of the underlying writer reachable from
// http.ServeContent.
func (rec *statusRecorder) ReadFrom(r io.Reader) (int64, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := io.Copy(rec.ResponseWriter, r)
	rec.bytes += n
	return n, err
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// listen binds addr and limits it to one connection at a time, so requests
// are handled strictly in accept order.
func listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", addr, err)
	}
	return netutil.LimitListener(ln, 1), nil
}

func (s *server) serve(ln net.Listener) error {
	srv := &http.Server{Handler: s}
	// Each response closes its connection, otherwise an idle client would
	// hold the only accept slot.
	srv.SetKeepAlivesEnabled(false)
	return serveUntilClosed(srv, ln)
}

// serveUntilClosed treats a listener closed by us as a normal end.
func serveUntilClosed(srv *http.Server, ln net.Listener) error {
	err := srv.Serve(ln)
	if errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// announce prints the line a user watches for when starting the server.
func announce(w io.Writer, port int) {
	color.New(color.FgGreen, color.Bold).Fprintf(w, "Serving at port %d\n", port)
}

// run serves cfg.root on cfg.port until ctx is done or a listener fails.
// Binding happens before anything is announced, so a port in use is
// reported as an error and nothing is served.
func run(ctx context.Context, cfg config, stdout io.Writer, log *slog.Logger) error {
	root, err := os.OpenRoot(cfg.root)
	if err != nil {
		return fmt.Errorf("opening the serving root %q: %w", cfg.root, err)
	}
	defer root.Close()

	ln, err := listen(fmt.Sprintf(":%d", cfg.port))
	if err != nil {
		return fmt.Errorf("port %d: %w", cfg.port, err)
	}
	listeners := []net.Listener{ln}

	var m *metrics
	var mln net.Listener
	if cfg.metricsAddr != "" {
		m = newMetrics()
		mln, err = net.Listen("tcp", cfg.metricsAddr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("metrics listener %s: %w", cfg.metricsAddr, err)
		}
		listeners = append(listeners, mln)
	}

	s := newServer(rootFS{root.FS()}, log, m)

	announce(stdout, cfg.port)
	log.Info("Serving", slog.Int("port", cfg.port), slog.String("root", cfg.root))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := s.serve(ln); err != nil {
			return fmt.Errorf("serving files: %w", err)
		}
		return nil
	})
	if mln != nil {
		log.Info("Serving metrics", slog.String("addr", mln.Addr().String()))
		eg.Go(func() error {
			if err := m.serve(mln); err != nil {
				return fmt.Errorf("serving metrics: %w", err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-ctx.Done()
		for _, l := range listeners {
			l.Close()
		}
		return nil
	})

	return eg.Wait()
}
