// Package jsonfile reads and rewrites the JSON documents the OPC-UA server
// shares with Aerion Control.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	dirPermissions = 0755

	// FilePermissions is applied to documents this package creates. The
	// OPC-UA server may run as another user and must be able to read them.
	FilePermissions = 0644
)

// ReadOrCreate decodes the document at path into v. When the file does not
// exist, initial is written there first and then decoded into v.
func ReadOrCreate(path string, v any, initial any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := Write(path, initial); err != nil {
			return err
		}
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// Write encodes v as indented JSON and rewrites path in place. The OPC-UA
// server reloads a document on modify events for its name, which a
// rename-over does not produce, so the file keeps its inode. An existing
// file also keeps its mode; new files get FilePermissions. Callers
// serialize writes to the same path.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	_, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FilePermissions)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if created {
		// umask may have narrowed the create mode.
		if err := f.Chmod(FilePermissions); err != nil {
			f.Close() //nolint:errcheck // Chmod error takes precedence
			return fmt.Errorf("setting permissions on %s: %w", path, err)
		}
	}
	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck // Write error takes precedence
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck // Sync error takes precedence
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
