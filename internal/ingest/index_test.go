package ingest

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHashFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.png", "abc")
	hash, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if hash != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("HashFile() = %s", hash)
	}

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestIndex_Add(t *testing.T) {
	src := t.TempDir()
	ix := New(filepath.Join(t.TempDir(), "index"))

	first, err := ix.Add(writeFile(t, src, "Photo.PNG", "pixels"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if first.Duplicate || filepath.Base(first.Path) != first.Hash+".png" {
		t.Errorf("Add() = %+v", first)
	}
	data, err := os.ReadFile(first.Path)
	if err != nil || string(data) != "pixels" {
		t.Errorf("indexed copy = (%q, %v)", data, err)
	}

	// same content under another name
	second, err := ix.Add(writeFile(t, src, "copy.png", "pixels"))
	if !apperrors.IsType(err, apperrors.ErrorTypeDuplicateImage) {
		t.Fatalf("expected duplicate image, got %v", err)
	}
	if !second.Duplicate || second.Path != first.Path {
		t.Errorf("duplicate result = %+v", second)
	}

	entries, err := os.ReadDir(ix.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("index holds %d files, want 1", len(entries))
	}
}

func TestIndex_AddMissingSource(t *testing.T) {
	ix := New(t.TempDir())
	if _, err := ix.Add(filepath.Join(t.TempDir(), "nope.png")); !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
