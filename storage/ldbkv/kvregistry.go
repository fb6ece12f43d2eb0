package ldbkv

import (
	"flag"
	"fmt"
	"strconv"

	"contractum.io/stash/storage"
	"contractum.io/stash/storage/kvregistry"
)

var (
	flagPath    string
	flagCacheMB int
	flagHandles int
)

func init() {
	kvregistry.MustRegister(kvregistry.Backend{
		Name:        "ldbkv",
		Description: "leveldb backend (default persistent choice)",
		Usage:       kvregistry.UsageCLI | kvregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagPath, "ldbkv-path", "", "Database directory (for -backend=ldbkv)")
			fs.IntVar(&flagCacheMB, "ldbkv-cache-mb", 0, "Cache budget in MB; 0 uses the minimum")
			fs.IntVar(&flagHandles, "ldbkv-handles", 0, "Open file handle cap; 0 uses the minimum")
		},
		Open: func() (storage.KV, func() error, error) {
			return open(flagPath, flagCacheMB, flagHandles)
		},
		OpenWithConfig: func(config map[string]string) (storage.KV, func() error, error) {
			cache, _ := strconv.Atoi(config["ldbkv-cache-mb"])
			handles, _ := strconv.Atoi(config["ldbkv-handles"])
			return open(config["ldbkv-path"], cache, handles)
		},
	})
}

func open(path string, cacheMB, handles int) (storage.KV, func() error, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("missing -ldbkv-path")
	}
	kv, err := Open(path, Options{CacheMB: cacheMB, Handles: handles})
	if err != nil {
		return nil, nil, err
	}
	return kv, kv.Close, nil
}
