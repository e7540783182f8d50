package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"staticserve/manifest"
)

// The fixed pages every generated root carries, so that the content types
// of the common cases can be checked.
var pages = map[string]string{
	"hello.txt":  "hi",
	"index.html": "<!DOCTYPE html>\n<html><head><title>staticserve</title></head><body><p>It works.</p></body></html>\n",
	"data.json":  "{\"name\": \"staticserve\", \"files\": true}\n",
}

func main() {
	var dir string
	var files, size int
	flag.StringVar(&dir, "d", ".", "Directory to write the files into")
	flag.IntVar(&files, "n", 16, "Number of random text files to generate")
	flag.IntVar(&size, "s", 32_000, "Size in bytes of each random file")
	flag.Parse()
	assert(files > 0 && files <= 0x1000, "1..4096 files should be generated")
	assert(size > 0, "the file size must be positive")

	slog.Info("Generating files", slog.String("dir", dir), slog.Int("files", files), slog.Int("size", size))
	m, err := generate(dir, files, size)
	assert(err == nil, "failed to generate files: %v", err)

	err = manifest.Write(filepath.Join(dir, "manifest.yaml"), m)
	assert(err == nil, "failed to write the manifest: %v", err)
	slog.Info("Finished generating files", slog.Int("entries", len(m.Files)))
}

func assert(b bool, msg string, args ...any) {
	if !b {
		panic("assertion failed: " + fmt.Sprintf(msg, args...))
	}
}

func generate(dir string, files, size int) (manifest.Manifest, error) {
	var m manifest.Manifest

	if err := os.MkdirAll(filepath.Join(dir, "files"), 0o755); err != nil {
		return m, fmt.Errorf("%q could not be created: %w", filepath.Join(dir, "files"), err)
	}

	for name, body := range pages {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			return m, err
		}
		m.Add(name, []byte(body))
	}

	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < files; i++ {
		eg.Go(func() error {
			bs := make([]byte, size)
			if _, err := rand.Read(bs); err != nil {
				return err
			}
			text(bs)

			name := path.Join("files", fmt.Sprintf("%03x.txt", i))
			if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), bs, 0o644); err != nil {
				return err
			}

			mu.Lock()
			m.Add(name, bs)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return m, err
	}
	return m, nil
}

// text maps random bytes onto a..z with a newline every 50 bytes, so that
// curl produces readable output.
func text(bs []byte) {
	for i := range bs {
		if i > 0 && (i+1)%50 == 0 { // 49, 99, etc.
			bs[i] = '\n'
		} else {
			bs[i] = 97 + bs[i]%26
		}
	}
}
