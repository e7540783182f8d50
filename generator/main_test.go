package main

import (
	"os"
	"path/filepath"
	"testing"

	"staticserve/manifest"
)

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	m, err := generate(dir, 5, 120)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if want := len(pages) + 5; len(m.Files) != want {
		t.Fatalf("manifest has %d entries, want %d", len(m.Files), want)
	}

	for _, e := range m.Files {
		bs, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(e.Path)))
		if err != nil {
			t.Errorf("reading %s: %v", e.Path, err)
			continue
		}
		if int64(len(bs)) != e.Size {
			t.Errorf("%s is %d bytes, manifest says %d", e.Path, len(bs), e.Size)
		}
		if sum := manifest.Sum(bs); sum != e.SHA256 {
			t.Errorf("%s sum %s, manifest says %s", e.Path, sum, e.SHA256)
		}
	}

	hello, err := os.ReadFile(filepath.Join(dir, "hello.txt"))
	if err != nil || string(hello) != "hi" {
		t.Errorf("hello.txt = %q, %v; want \"hi\"", hello, err)
	}
}

func TestText(t *testing.T) {
	bs := make([]byte, 256)
	for i := range bs {
		bs[i] = byte(i)
	}
	text(bs)

	for i, b := range bs {
		if (i+1)%50 == 0 {
			if b != '\n' {
				t.Errorf("byte %d = %q, want a newline", i, b)
			}
			continue
		}
		if b < 'a' || b > 'z' {
			t.Errorf("byte %d = %q, want a..z", i, b)
		}
	}
}
