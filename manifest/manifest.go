// Package manifest describes a tree of files prepared for serving, so that a
// client can check what a server sends back against what was written.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type Entry struct {
	// Path is slash separated and relative to the serving root.
	Path        string `yaml:"path"`
	Size        int64  `yaml:"size"`
	SHA256      string `yaml:"sha256"`
	ContentType string `yaml:"contentType"`
}

type Manifest struct {
	Files []Entry `yaml:"files"`
}

// Sum returns the hex SHA-256 of b.
func Sum(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

// ContentType is the type a standard file server sends for name with
// contents b: by extension first, sniffed otherwise.
func ContentType(name string, b []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(b)
}

// Add records the file at p with contents b.
func (m *Manifest) Add(p string, b []byte) {
	m.Files = append(m.Files, Entry{
		Path:        p,
		Size:        int64(len(b)),
		SHA256:      Sum(b),
		ContentType: ContentType(p, b),
	})
}

// Write stores m at p with its entries sorted by path.
func Write(p string, m Manifest) error {
	files := slices.Clone(m.Files)
	slices.SortFunc(files, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })

	bs, err := yaml.Marshal(Manifest{Files: files})
	if err != nil {
		return fmt.Errorf("encoding the manifest: %w", err)
	}
	if err := os.WriteFile(p, bs, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", p, err)
	}
	return nil
}

// Load reads the manifest at p. Entries that would resolve outside the
// serving root are rejected.
func Load(p string) (Manifest, error) {
	bs, err := os.ReadFile(p)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading %q: %w", p, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(bs, &m); err != nil {
		return Manifest{}, fmt.Errorf("decoding %q: %w", p, err)
	}

	for _, e := range m.Files {
		if err := checkPath(e.Path); err != nil {
			return Manifest{}, fmt.Errorf("%q: %w", p, err)
		}
	}
	return m, nil
}

func checkPath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("empty path")
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("path %q is absolute", p)
	case slices.Contains(strings.Split(p, "/"), ".."):
		return fmt.Errorf("path %q leaves the root", p)
	}
	return nil
}
