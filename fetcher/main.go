package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"

	"staticserve/manifest"
)

type fetcher struct {
	base    *url.URL
	workers int
	client  http.Client
	bytes   atomic.Int64
}

func main() {
	var base, manifestPath, prof string
	var workers int
	flag.StringVar(&base, "base", "http://localhost:8000", "The server to fetch from")
	flag.StringVar(&manifestPath, "m", "manifest.yaml", "The manifest written by the generator")
	flag.IntVar(&workers, "w", 64, "The number of concurrent requests")
	flag.StringVar(&prof, "profile", "", "Collect a profile: cpu, mem or trace")
	flag.Parse()
	assert(workers > 0, "the number of workers must be positive")

	switch prof {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.MemProfileRate(1), profile.ProfilePath(".")).Stop()
	case "trace":
		defer profile.Start(profile.TraceProfile, profile.ProfilePath(".")).Stop()
	default:
		assert(false, "unknown profile %q, want cpu, mem or trace", prof)
	}

	u, err := url.Parse(base)
	assert(err == nil && u.Host != "", "the base URL %q is not usable: %v", base, err)

	m, err := manifest.Load(manifestPath)
	assert(err == nil, "loading the manifest: %v", err)

	slog.Info("Starting", slog.String("base", base), slog.Int("files", len(m.Files)), slog.Int("workers", workers))

	f := &fetcher{
		base:    u,
		workers: workers,
		client:  http.Client{Timeout: 30 * time.Second},
	}
	start := time.Now()
	err = f.run(m)
	assert(err == nil, "failed to finish running: %v", err)

	slog.Info("All files matched",
		slog.Int("files", len(m.Files)),
		slog.Int64("bytes", f.bytes.Load()),
		slog.Duration("took", time.Since(start)))
}

func assert(b bool, msg string, args ...any) {
	if !b {
		panic("assertion failed: " + fmt.Sprintf(msg, args...))
	}
}

func (f *fetcher) url(p string) string {
	return f.base.JoinPath(p).String()
}

// run checks every entry, then checks that a missing file really is missing.
func (f *fetcher) run(m manifest.Manifest) error {
	var eg errgroup.Group
	eg.SetLimit(f.workers)
	for _, e := range m.Files {
		eg.Go(func() error {
			if err := f.check(e); err != nil {
				return fmt.Errorf("checking %s: %w", e.Path, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	return f.checkMissing()
}

func (f *fetcher) check(e manifest.Entry) error {
	resp, err := f.client.Get(f.url(e.Path))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code (%d != 200)", resp.StatusCode)
	}

	h := sha256.New()
	n, err := io.Copy(h, resp.Body)
	if err != nil {
		return err
	}
	f.bytes.Add(n)

	if n != e.Size {
		return fmt.Errorf("size mismatch (%d != %d)", n, e.Size)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != e.SHA256 {
		return fmt.Errorf("checksum mismatch (%s != %s)", sum, e.SHA256)
	}
	if !sameMediaType(resp.Header.Get("Content-Type"), e.ContentType) {
		return fmt.Errorf("content type mismatch (%q != %q)", resp.Header.Get("Content-Type"), e.ContentType)
	}
	return nil
}

func (f *fetcher) checkMissing() error {
	p := "does-not-exist-" + uuid.NewString() + ".txt"
	resp, err := f.client.Get(f.url(p))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("%s: reading the body: %w", p, err)
	}

	if resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%s: unexpected status code (%d != 404)", p, resp.StatusCode)
	}
	return nil
}

// sameMediaType compares content types ignoring parameters such as charset.
func sameMediaType(a, b string) bool {
	ma, _, errA := mime.ParseMediaType(a)
	mb, _, errB := mime.ParseMediaType(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return ma == mb
}
