package onnxrt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveLibraryConfiguredFile(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "custom.so")
	if err := os.WriteFile(lib, []byte("elf"), 0o644); err != nil {
		t.Fatalf("write lib: %v", err)
	}
	got, err := ResolveLibrary(lib)
	if err != nil {
		t.Fatalf("ResolveLibrary: %v", err)
	}
	if got != lib {
		t.Fatalf("got %q, want %q", got, lib)
	}
}

func TestResolveLibraryConfiguredDirectory(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, LibraryFilename())
	if err := os.WriteFile(lib, []byte("elf"), 0o644); err != nil {
		t.Fatalf("write lib: %v", err)
	}
	got, err := ResolveLibrary(" " + dir + " ")
	if err != nil {
		t.Fatalf("ResolveLibrary: %v", err)
	}
	if got != lib {
		t.Fatalf("got %q, want %q", got, lib)
	}
}

func TestResolveLibraryConfiguredMissing(t *testing.T) {
	if _, err := ResolveLibrary("/nonexistent/ort"); err == nil {
		t.Fatal("expected error for missing location")
	}
	_, err := ResolveLibrary(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), LibraryFilename()) {
		t.Fatalf("expected missing filename error, got %v", err)
	}
}

func TestResolveLibraryUnconfiguredNotFound(t *testing.T) {
	_, err := ResolveLibrary("")
	if err == nil {
		t.Skip("runtime library present next to test binary")
	}
	if !strings.Contains(err.Error(), "LIPSYNC_ORT_LIB_DIR") {
		t.Fatalf("expected hint in error, got %v", err)
	}
}
