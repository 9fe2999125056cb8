package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestArtifactKeyIndexing(t *testing.T) {
	if got := artifactKey("u1", "g1", 0, ".png"); got != "generations/u1/g1.png" {
		t.Errorf("index 0 key = %q", got)
	}
	if got := artifactKey("u1", "g1", 2, ".mp4"); got != "generations/u1/g1_2.mp4" {
		t.Errorf("index 2 key = %q", got)
	}
}

func TestExtForMIME(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":               ".jpg",
		"image/webp":               ".webp",
		"video/mp4":                ".mp4",
		"image/png":                ".png",
		"application/octet-stream": ".png",
	}
	for mime, want := range cases {
		if got := ExtForMIME(mime); got != want {
			t.Errorf("ExtForMIME(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestLocalProviderPutArtifact(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalProvider(dir, "http://localhost:8080/uploads")
	if err != nil {
		t.Fatalf("NewLocalProvider returned error: %v", err)
	}

	url, err := p.PutArtifact(context.Background(), "user-1", "gen-1", 0, []byte("pixels"), ".png")
	if err != nil {
		t.Fatalf("PutArtifact returned error: %v", err)
	}
	if url != "http://localhost:8080/uploads/generations/user-1/gen-1.png" {
		t.Errorf("unexpected url: %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generations", "user-1", "gen-1.png"))
	if err != nil {
		t.Fatalf("artifact file not written: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("artifact content = %q", data)
	}
}
