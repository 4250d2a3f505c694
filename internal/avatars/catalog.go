// Package avatars resolves avatar identifiers to face source files.
package avatars

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lipsync/internal/media/video"
	"lipsync/internal/services"
)

// DefaultID selects the first available avatar.
const DefaultID = "default"

// Kind distinguishes video avatars from still images.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// ErrNoAvatars is returned when the catalog directory holds no usable files.
var ErrNoAvatars = errors.New("no avatar files found; add an MP4 video or JPG/PNG image")

// extensions lists supported avatar files in lookup order.
var extensions = []string{".mp4", ".jpg", ".jpeg", ".png"}

// defaultExtensions is the preference order for the default avatar.
var defaultExtensions = []string{".mp4", ".jpg", ".png"}

// Avatar describes one avatar file.
type Avatar struct {
	ID   string
	Name string
	Path string
	Kind Kind
}

// Catalog lists and resolves avatars stored in a directory.
type Catalog struct {
	Dir string
}

// List returns every avatar grouped by extension order, sorted by ID within
// each group. A missing directory yields an empty list.
func (c Catalog) List() ([]Avatar, error) {
	var out []Avatar
	for _, ext := range extensions {
		paths, err := c.glob(ext)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			out = append(out, describe(path))
		}
	}
	return out, nil
}

// Resolve returns the file backing id. DefaultID picks the first video,
// then the first JPG, then the first PNG.
func (c Catalog) Resolve(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == DefaultID {
		for _, ext := range defaultExtensions {
			paths, err := c.glob(ext)
			if err != nil {
				return "", err
			}
			if len(paths) > 0 {
				return paths[0], nil
			}
		}
		return "", services.Wrap(services.ErrNotFound, "avatars", "resolve", c.Dir, ErrNoAvatars)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", services.Wrap(services.ErrValidation, "avatars", "resolve", fmt.Sprintf("invalid avatar id %q", id), nil)
	}
	for _, ext := range extensions {
		path := filepath.Join(c.Dir, id+ext)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", services.Wrap(services.ErrNotFound, "avatars", "resolve", fmt.Sprintf("avatar not found: %s", id), nil)
}

func (c Catalog) glob(ext string) ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read avatars dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ext {
			paths = append(paths, filepath.Join(c.Dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func describe(path string) Avatar {
	base := filepath.Base(path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	kind := KindVideo
	if video.IsStillImage(path) {
		kind = KindImage
	}
	return Avatar{ID: id, Name: DisplayName(id), Path: path, Kind: kind}
}

// DisplayName turns an avatar ID into a title-cased label.
func DisplayName(id string) string {
	name := strings.NewReplacer("_", " ", "-", " ").Replace(id)
	return cases.Title(language.Und).String(name)
}
