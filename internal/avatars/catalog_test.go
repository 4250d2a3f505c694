package avatars

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lipsync/internal/services"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestListGroupsByExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "zed.png", "anna_smith.jpg", "b-roll.mp4", "a.mp4", "notes.txt", "c.jpeg")
	if err := os.Mkdir(filepath.Join(dir, "sub.mp4"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	list, err := Catalog{Dir: dir}.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	want := []string{"a", "b-roll", "anna_smith", "c", "zed"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
	if list[1].Name != "B Roll" || list[1].Kind != KindVideo {
		t.Fatalf("unexpected avatar %+v", list[1])
	}
	if list[2].Name != "Anna Smith" || list[2].Kind != KindImage {
		t.Fatalf("unexpected avatar %+v", list[2])
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	list, err := Catalog{Dir: filepath.Join(t.TempDir(), "missing")}.List()
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v, %v", list, err)
	}
}

func TestResolveDefaultPrefersVideo(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.png", "b.jpg")
	c := Catalog{Dir: dir}
	got, err := c.Resolve(DefaultID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(got) != "b.jpg" {
		t.Fatalf("default resolved to %s, want b.jpg", got)
	}
	touch(t, dir, "z.mp4")
	if got, _ := c.Resolve(""); filepath.Base(got) != "z.mp4" {
		t.Fatalf("default resolved to %s, want z.mp4", got)
	}
}

func TestResolveByID(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "host.jpeg", "host.png")
	got, err := Catalog{Dir: dir}.Resolve("host")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(got) != "host.jpeg" {
		t.Fatalf("resolved %s, want host.jpeg", got)
	}
}

func TestResolveErrors(t *testing.T) {
	c := Catalog{Dir: t.TempDir()}
	if _, err := c.Resolve(DefaultID); !errors.Is(err, ErrNoAvatars) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNoAvatars, got %v", err)
	}
	if _, err := c.Resolve("ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := c.Resolve("../etc/passwd"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"anna_smith":  "Anna Smith",
		"news-anchor": "News Anchor",
		"BOB":         "Bob",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}
