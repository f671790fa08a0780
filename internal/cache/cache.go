// Package cache persists the last observed public address set between runs.
package cache

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/renameio/v2"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/address"
)

// File stores an address set as plain text, one address per line.
type File struct {
	Path string
	Log  logr.Logger
}

// New returns a cache stored at path.
func New(path string, log logr.Logger) *File {
	return &File{Path: path, Log: log}
}

// Exists reports whether a cache was written before.
func (f *File) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// Load returns the cached set. A missing file is the first run and yields an
// empty set. Lines that do not hold a public address are skipped.
func (f *File) Load() (address.Set, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return address.NewSet(), nil
	}
	if err != nil {
		return address.NewSet(), fmt.Errorf("cache: reading %s: %w", f.Path, err)
	}

	set := address.NewSet()
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		addr, err := netip.ParseAddr(line)
		if err != nil {
			f.Log.Info("skipping malformed cache line", "path", f.Path, "line", n, "value", line)
			continue
		}
		if !address.IsPublic(addr) {
			f.Log.Info("skipping non-public cache entry", "path", f.Path, "line", n, "value", line)
			continue
		}
		set.Insert(addr.Unmap())
	}
	if err := sc.Err(); err != nil {
		return address.NewSet(), fmt.Errorf("cache: scanning %s: %w", f.Path, err)
	}
	return set, nil
}

// Save replaces the cached set. The file is synced to disk and renamed into
// place so a crash never leaves a partial cache behind.
func (f *File) Save(set address.Set) error {
	var b strings.Builder
	for _, s := range address.Strings(set) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	if err := renameio.WriteFile(f.Path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("cache: replacing %s: %w", f.Path, err)
	}
	return nil
}

// Invalidate removes the cache so the next Load starts from an empty set.
func (f *File) Invalidate() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: removing %s: %w", f.Path, err)
	}
	return nil
}
