// Package fskv provides a local filesystem KV backend.
//
// One file per key, named by the hex encoding of the key and sharded
// into subdirectories by the first hex byte. Writes go through a
// temporary file and an atomic rename, with an fsync before the
// rename, so a crash never leaves a half-written value under a live
// key. This backend is offline and deterministic: it never uses the
// network and never depends on wall-clock time.
package fskv

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"contractum.io/stash/storage"
)

type KV struct {
	root string
}

var _ storage.KV = (*KV)(nil)

// New constructs a filesystem KV rooted at root. The directory is
// created if needed.
func New(root string) (*KV, error) {
	if root == "" {
		return nil, errors.New("fskv: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &KV{root: root}, nil
}

func (c *KV) pathFor(key []byte) string {
	name := hex.EncodeToString(key)
	if len(name) < 2 {
		return filepath.Join(c.root, name)
	}
	return filepath.Join(c.root, name[:2], name)
}

func (c *KV) Get(key []byte) ([]byte, error) {
	b, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (c *KV) Put(key, value []byte) error {
	path := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (c *KV) Has(key []byte) bool {
	_, err := os.Stat(c.pathFor(key))
	return err == nil
}

func (c *KV) Delete(key []byte) error {
	err := os.Remove(c.pathFor(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *KV) Scan(prefix []byte, fn func(key, value []byte) error) error {
	// Hex encoding preserves byte order and prefix relationships, so
	// filtering and sorting file names is equivalent to scanning keys.
	hexPrefix := hex.EncodeToString(prefix)

	var names []string
	err := filepath.WalkDir(c.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		if strings.HasPrefix(d.Name(), hexPrefix) {
			names = append(names, d.Name())
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		key, err := hex.DecodeString(name)
		if err != nil {
			// Foreign file in the data directory; not ours to report.
			continue
		}
		value, err := c.Get(key)
		if err != nil {
			if storage.IsNotFound(err) {
				continue
			}
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *KV) Close() error { return nil }
