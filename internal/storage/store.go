package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"GoMatch/internal/patternset"
)

const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644

	// ChecksumPrefix is the prefix for SHA-256 checksums.
	ChecksumPrefix = "sha256:"

	// Extension of the files written by a Store.
	Extension = ".yaml"
)

// managedHeader opens every file a Store writes. Files without it belong to
// whoever deployed them and are never replaced or removed.
const managedHeader = "# Managed by gomatch: created through the pattern set API.\n"

// ErrNotOwned reports a file at the store path that the store did not write.
var ErrNotOwned = errors.New("pattern file not managed by the store")

// Checksum represents a hex-encoded SHA-256 hash with the "sha256:" prefix.
type Checksum string

// ComputeChecksum computes SHA-256 over a byte slice.
func ComputeChecksum(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return Checksum(ChecksumPrefix + hex.EncodeToString(sum[:]))
}

// Store persists pattern set definitions as one YAML file per set, in the
// same directory and format patternset.LoadDir reads at start-up.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return nil, fmt.Errorf("create pattern store %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a set named name is stored in.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+Extension)
}

// Save writes def atomically, replacing a previous file the store wrote for
// the same name, and returns the checksum of the written bytes. It returns
// ErrNotOwned rather than overwrite a deployed file.
func (s *Store) Save(def *patternset.Definition) (Checksum, error) {
	_, owned, err := s.owned(def.Name)
	if err != nil {
		return "", err
	}
	if !owned && s.Exists(def.Name) {
		return "", fmt.Errorf("save pattern set %s: %w", def.Name, ErrNotOwned)
	}

	body, err := patternset.Marshal(def)
	if err != nil {
		return "", err
	}
	data := append([]byte(managedHeader), body...)
	if err := atomicWriteFile(s.Path(def.Name), data, s.dir); err != nil {
		return "", err
	}
	return ComputeChecksum(data), nil
}

// Owned reports whether the file for name was written by a Store, and its
// checksum if so.
func (s *Store) Owned(name string) (Checksum, bool) {
	sum, owned, _ := s.owned(name)
	return sum, owned
}

func (s *Store) owned(name string) (Checksum, bool, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read pattern set %s: %w", name, err)
	}
	if !bytes.HasPrefix(data, []byte(managedHeader)) {
		return "", false, nil
	}
	return ComputeChecksum(data), true, nil
}

// Remove deletes the file for name. A missing file is not an error; a file
// the store did not write is left in place and reported as ErrNotOwned.
func (s *Store) Remove(name string) error {
	_, owned, err := s.owned(name)
	if err != nil {
		return err
	}
	if !owned {
		if s.Exists(name) {
			return fmt.Errorf("remove pattern set %s: %w", name, ErrNotOwned)
		}
		return nil
	}
	if err := os.Remove(s.Path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove pattern set %s: %w", name, err)
	}
	return fsyncDir(s.dir)
}

// Exists reports whether a file for name is present.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// fsyncDir opens the directory at path and calls fsync on it.
// This ensures directory entries (file names) are durable.
func fsyncDir(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("fsync dir open %s: %w", path, err)
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return fmt.Errorf("fsync dir sync %s: %w", path, err)
	}
	if err := d.Close(); err != nil {
		return fmt.Errorf("fsync dir close %s: %w", path, err)
	}
	return nil
}

// atomicWriteFile writes data to a temporary file in tmpDir, fsyncs it,
// renames it to finalPath and fsyncs the parent directory. The temporary
// name carries no pattern file extension, so a crash never leaves a
// half-written set for LoadDir to pick up.
func atomicWriteFile(finalPath string, data []byte, tmpDir string) error {
	tmp, err := os.CreateTemp(tmpDir, ".pending-*")
	if err != nil {
		return fmt.Errorf("atomic write create temp in %s: %w", tmpDir, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("atomic write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("atomic write fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("atomic write close: %w", err)
	}
	if err := os.Chmod(tmpPath, FilePerm); err != nil {
		return fmt.Errorf("atomic write chmod: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("atomic write rename %s -> %s: %w", tmpPath, finalPath, err)
	}
	if err := fsyncDir(filepath.Dir(finalPath)); err != nil {
		return fmt.Errorf("atomic write fsync parent dir: %w", err)
	}

	success = true
	return nil
}
