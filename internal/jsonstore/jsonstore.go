// Package jsonstore reads and writes the small JSON documents the attendance
// data lives in. Every save rewrites the whole document.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LoadOrSeed decodes the JSON document at path into target.
//
// When the file does not exist, or exists but cannot be decoded, seed is called
// to fill target and the result is written to path immediately so the next
// load returns the same data. A document that failed to decode is moved to
// <path>.corrupt-<unix seconds> first. The returned bool reports whether the
// seed was used.
func LoadOrSeed(path string, target any, seed func()) (bool, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// first run
	case err != nil:
		return false, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, target); err == nil {
			return false, nil
		}
		backup := path + ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
		if err := os.Rename(path, backup); err != nil {
			return false, fmt.Errorf("move unreadable %s aside: %w", path, err)
		}
	}

	seed()
	if err := Save(path, target); err != nil {
		return true, err
	}
	return true, nil
}

// Save writes v to path as indented JSON. The document is written to a
// temporary file in the same directory and renamed over path.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
