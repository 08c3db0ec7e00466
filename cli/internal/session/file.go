package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FilePersister stores blobs in a single JSON file mapping key to blob,
// optionally sealed with a passphrase.
type FilePersister struct {
	mu         sync.Mutex
	path       string
	passphrase string
}

// NewFilePersister returns a FilePersister writing to path. An empty
// passphrase stores plain JSON.
func NewFilePersister(path, passphrase string) *FilePersister {
	return &FilePersister{path: path, passphrase: passphrase}
}

// Path returns the backing file path.
func (f *FilePersister) Path() string {
	return f.path
}

func (f *FilePersister) Load(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return nil, err
	}
	data, ok := entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (f *FilePersister) Save(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		// Unreadable files are overwritten.
		entries = make(map[string]json.RawMessage)
	}
	entries[key] = json.RawMessage(data)

	out, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	if f.passphrase != "" {
		if out, err = seal(f.passphrase, out); err != nil {
			return err
		}
	}
	return writeFileAtomic(f.path, out)
}

func (f *FilePersister) read() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	if isSealed(raw) {
		if f.passphrase == "" {
			return nil, ErrSealed
		}
		if raw, err = unseal(f.passphrase, raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	entries := make(map[string]json.RawMessage)
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode session file: %v", ErrCorrupt, err)
	}
	return entries, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
