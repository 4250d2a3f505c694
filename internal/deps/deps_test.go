package deps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present", "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.onnx")
	if err := os.WriteFile(model, []byte("onnx"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	results := CheckFiles([]Requirement{
		{Name: "Graph", Command: model},
		{Name: "Detector", Command: filepath.Join(dir, "missing.onnx"), Optional: true},
		{Name: "Dir", Command: dir},
		{Name: "Unset"},
	})
	if !results[0].Available {
		t.Fatalf("expected graph available: %#v", results[0])
	}
	if results[1].Available || !results[1].Optional {
		t.Fatalf("expected optional missing detector: %#v", results[1])
	}
	if results[2].Available || !strings.Contains(results[2].Detail, "directory") {
		t.Fatalf("expected directory rejection: %#v", results[2])
	}
	if results[3].Detail != "path not configured" {
		t.Fatalf("unexpected unset detail: %q", results[3].Detail)
	}
}

func TestResolveFFmpegPrefersWorkingConfiguredBinary(t *testing.T) {
	dir := t.TempDir()
	custom := writeStub(t, dir, "custom-ffmpeg", "exit 0")
	t.Setenv("PATH", t.TempDir())

	got, err := ResolveFFmpeg(context.Background(), custom)
	if err != nil {
		t.Fatalf("ResolveFFmpeg: %v", err)
	}
	if got != custom {
		t.Fatalf("expected configured binary, got %q", got)
	}
}

func TestResolveFFmpegFallsBackToPath(t *testing.T) {
	broken := writeStub(t, t.TempDir(), "broken-ffmpeg", "exit 1")
	pathDir := t.TempDir()
	writeStub(t, pathDir, "ffmpeg", "exit 0")
	t.Setenv("PATH", pathDir)

	got, err := ResolveFFmpeg(context.Background(), broken)
	if err != nil {
		t.Fatalf("ResolveFFmpeg: %v", err)
	}
	if got != "ffmpeg" {
		t.Fatalf("expected PATH fallback, got %q", got)
	}
	status := CheckFFmpeg(context.Background(), broken)
	if !status.Available || !strings.Contains(status.Detail, "unusable") {
		t.Fatalf("expected fallback detail, got %#v", status)
	}
	if DirOf("ffmpeg") != pathDir {
		t.Fatalf("DirOf = %q, want %q", DirOf("ffmpeg"), pathDir)
	}
}

func TestResolveFFmpegFailsWhenNothingWorks(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := ResolveFFmpeg(context.Background(), "/nonexistent/ffmpeg"); err == nil {
		t.Fatal("expected error when no ffmpeg is usable")
	}
	if status := CheckFFmpeg(context.Background(), ""); status.Available {
		t.Fatalf("expected unavailable status, got %#v", status)
	}
	if DirOf("") != "" {
		t.Fatal("DirOf should be empty for blank binary")
	}
}
