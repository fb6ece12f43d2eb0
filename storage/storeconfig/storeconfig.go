// Package storeconfig opens one or more registered storage backends
// from a JSON configuration file, for setups where a stash replicates
// its persistence or reads through a chain of backends.
package storeconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"contractum.io/stash/storage"
	"contractum.io/stash/storage/kvregistry"
)

// Config describes how to open one or more KV backends via kvregistry.
//
// Callers still need to link desired backend plugins via blank imports.
//
// WritePolicy values:
//   - "first" (default): write only to the first backend; reads fall
//     back in order (storage.FallbackKV)
//   - "all": write to all backends (storage.ReplicatingKV)
//
// Example:
//
//	{
//	  "write_policy": "all",
//	  "backends": [
//	    {"name":"ldbkv", "config":{"ldbkv-path":"/var/lib/stash/db"}},
//	    {"name":"fskv", "config":{"fskv-dir":"/mnt/backup/stash"}}
//	  ]
//	}
//
// Config values are backend-specific; each backend documents accepted
// keys (usually mirroring its CLI flag names).
type Config struct {
	WritePolicy string          `json:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends"`
}

type BackendConfig struct {
	// Name is the kvregistry backend name to open (e.g. "ldbkv").
	Name string `json:"name"`
	// ID is an optional stable alias used for identification when the
	// same backend kind appears twice.
	ID     string            `json:"id,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("storeconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("storeconfig: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("storeconfig: backend name is required")
		}
		id := b.Name
		if b.ID != "" {
			id = b.ID
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("storeconfig: duplicate backend id %q", id)
		}
		seen[id] = struct{}{}
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("storeconfig: invalid write_policy %q", c.WritePolicy)
	}
}

// Open opens a KV per config.
func (c Config) Open(usage kvregistry.Usage) (storage.KV, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	named := make([]storage.NamedKV, 0, len(c.Backends))
	closers := make([]func() error, 0, len(c.Backends))
	for _, b := range c.Backends {
		kv, closeFn, err := kvregistry.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
			return nil, nil, err
		}
		name := b.Name
		if b.ID != "" {
			name = b.ID
		}
		named = append(named, storage.NamedKV{Name: name, KV: kv})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	if len(named) == 1 {
		return named[0].KV, closeAll, nil
	}

	switch c.WritePolicy {
	case "", "first":
		kvs := make([]storage.KV, 0, len(named))
		for _, n := range named {
			kvs = append(kvs, n.KV)
		}
		return storage.FallbackKV{Backends: kvs}, closeAll, nil
	case "all":
		return storage.ReplicatingKV{Backends: named}, closeAll, nil
	default:
		return nil, nil, fmt.Errorf("storeconfig: invalid write_policy %q", c.WritePolicy)
	}
}
