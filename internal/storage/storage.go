// Package storage persists rendered memes to the user's documents folder or
// to a cache folder used for sharing, and keeps a journal of what was written.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Area names a destination folder.
type Area string

const (
	// AreaCache holds files written only so they can be shared.
	AreaCache Area = "cache"
	// AreaDocuments holds files the user saved.
	AreaDocuments Area = "documents"
)

// ParseArea accepts cache or documents.
func ParseArea(s string) (Area, error) {
	switch a := Area(strings.ToLower(strings.TrimSpace(s))); a {
	case AreaCache, AreaDocuments:
		return a, nil
	default:
		return "", fmt.Errorf("unknown storage area %q", s)
	}
}

// Location is where a file ended up.
type Location struct {
	Path string `json:"path"`
	URI  string `json:"uri"`
}

// Name returns the base name of the location.
func (l Location) Name() string { return filepath.Base(l.Path) }

// Writer stores named data in an area.
type Writer interface {
	Write(ctx context.Context, area Area, name string, data []byte) (Location, error)
}

// Dir writes files below one directory per area.
type Dir struct {
	Documents string
	Cache     string
}

var (
	userHomeDir  = os.UserHomeDir
	userCacheDir = os.UserCacheDir
)

// DefaultDir uses $XDG_DOCUMENTS_DIR (or ~/Documents) and the user cache
// directory. Either may be overridden by documents and cache.
func DefaultDir(documents, cache string) (Dir, error) {
	d := Dir{Documents: strings.TrimSpace(documents), Cache: strings.TrimSpace(cache)}
	if d.Documents == "" {
		if v := strings.TrimSpace(os.Getenv("XDG_DOCUMENTS_DIR")); v != "" {
			d.Documents = v
		} else {
			home, err := userHomeDir()
			if err != nil {
				return Dir{}, fmt.Errorf("documents dir: %w", err)
			}
			d.Documents = filepath.Join(home, "Documents")
		}
	}
	if d.Cache == "" {
		base, err := userCacheDir()
		if err != nil {
			return Dir{}, fmt.Errorf("cache dir: %w", err)
		}
		d.Cache = filepath.Join(base, "memeshot")
	}
	return d, nil
}

// Path returns the directory for area.
func (d Dir) Path(area Area) (string, error) {
	switch area {
	case AreaDocuments:
		return d.Documents, nil
	case AreaCache:
		return d.Cache, nil
	default:
		return "", fmt.Errorf("unknown storage area %q", area)
	}
}

// Write stores data as name inside the area directory, adding a -N suffix
// when name is taken. The file appears complete or not at all.
func (d Dir) Write(ctx context.Context, area Area, name string, data []byte) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	dir, err := d.Path(area)
	if err != nil {
		return Location{}, err
	}
	if dir == "" {
		return Location{}, fmt.Errorf("no directory configured for %s", area)
	}
	if name == "" || name != filepath.Base(name) {
		return Location{}, fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Location{}, fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return Location{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if rerr := os.Remove(tmpName); rerr != nil && !os.IsNotExist(rerr) {
			fmt.Fprintf(os.Stderr, "remove %s: %v\n", tmpName, rerr)
		}
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return Location{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return Location{}, fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return Location{}, fmt.Errorf("chmod %s: %w", name, err)
	}
	path, err := claim(tmpName, dir, name)
	cleanup()
	if err != nil {
		return Location{}, err
	}
	return NewLocation(path), nil
}

// maxSuffix bounds the name-N attempts made when name is taken.
const maxSuffix = 1000

// claim links tmp into dir under name, or name-1, name-2 and so on when an
// earlier file already holds it. Existing files are never replaced.
func claim(tmp, dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i <= maxSuffix; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		err := os.Link(tmp, path)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		// Some filesystems refuse hard links; fall back to a checked rename.
		if _, serr := os.Lstat(path); serr == nil {
			continue
		}
		if rerr := os.Rename(tmp, path); rerr != nil {
			return "", fmt.Errorf("rename %s: %w", candidate, rerr)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free name for %s in %s", name, dir)
}

// NewLocation builds a Location with a file:// URI for path.
func NewLocation(path string) Location {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return Location{Path: path, URI: u.String()}
}
