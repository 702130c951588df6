package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/openthread-go/tncctl/internal/tncerr"
)

// store owns the on-disk JSON file backing a Registry. Every mutating call
// takes an exclusive flock for the duration of the read-modify-write cycle
// so two commissioner processes sharing a store file never interleave
// writes; readers also take the lock since a torn read of a half-written
// file is just as unsafe as a torn write.
//
// The write path always goes through a temp file + rename so a crash mid
// write leaves the previous, complete file in place rather than a
// truncated one (the same pattern a content-addressed cache uses for its
// index file).
type store struct {
	path string
}

func newStore(path string) *store {
	return &store{path: path}
}

func (s *store) withLock(write bool, fn func(*os.File) error) error {
	flags := os.O_RDONLY
	if write {
		flags = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(s.path, flags, 0o644)
	if os.IsNotExist(err) && !write {
		return tncerr.Wrap(tncerr.NotFound, err, "registry: store file %s does not exist", s.path)
	}
	if err != nil {
		return tncerr.Wrap(tncerr.IOError, err, "registry: open store file")
	}
	defer f.Close()

	lockType := unix.LOCK_SH
	if write {
		lockType = unix.LOCK_EX
	}
	if err := unix.Flock(int(f.Fd()), lockType); err != nil {
		return tncerr.Wrap(tncerr.IOError, err, "registry: flock store file")
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return fn(f)
}

// load reads the current file contents under a shared lock. A missing or
// empty file yields a fresh, empty file{} rather than an error, so a brand
// new store path can be opened for the first time.
func (s *store) load() (*file, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return &file{}, nil
	}

	var out file
	err := s.withLock(false, func(f *os.File) error {
		info, err := f.Stat()
		if err != nil {
			return tncerr.Wrap(tncerr.IOError, err, "registry: stat store file")
		}
		if info.Size() == 0 {
			return nil
		}
		dec := json.NewDecoder(f)
		if err := dec.Decode(&out); err != nil {
			return tncerr.Wrap(tncerr.BadFormat, err, "registry: decode store file")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// mutate loads the file, lets fn modify it in place, then atomically
// replaces the store file with the result — all under a single exclusive
// lock so concurrent writers from other processes serialize cleanly.
func (s *store) mutate(fn func(*file) error) error {
	return s.withLock(true, func(f *os.File) error {
		var current file
		info, err := f.Stat()
		if err != nil {
			return tncerr.Wrap(tncerr.IOError, err, "registry: stat store file")
		}
		if info.Size() > 0 {
			if err := json.NewDecoder(f).Decode(&current); err != nil {
				return tncerr.Wrap(tncerr.BadFormat, err, "registry: decode store file")
			}
		}

		if err := fn(&current); err != nil {
			return err
		}

		tmpPath := s.path + ".tmp"
		tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return tncerr.Wrap(tncerr.IOError, err, "registry: create temp store file")
		}
		enc := json.NewEncoder(tmp)
		enc.SetIndent("", "  ")
		if err := enc.Encode(current); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return tncerr.Wrap(tncerr.IOError, err, "registry: encode store file")
		}
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return tncerr.Wrap(tncerr.IOError, err, "registry: sync temp store file")
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpPath)
			return tncerr.Wrap(tncerr.IOError, err, "registry: close temp store file")
		}
		if err := os.Rename(tmpPath, s.path); err != nil {
			os.Remove(tmpPath)
			return tncerr.Wrap(tncerr.IOError, err, "registry: rename temp store file")
		}
		return nil
	})
}

// ensureDir creates the parent directory of path if missing.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return tncerr.Wrap(tncerr.IOError, err, "registry: create store directory")
	}
	return nil
}
