package fskv

import (
	"flag"
	"fmt"

	"contractum.io/stash/storage"
	"contractum.io/stash/storage/kvregistry"
)

var flagDir string

func init() {
	kvregistry.MustRegister(kvregistry.Backend{
		Name:        "fskv",
		Description: "local filesystem backend (one file per key)",
		Usage:       kvregistry.UsageCLI | kvregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagDir, "fskv-dir", "", "Data directory (for -backend=fskv)")
		},
		Open: func() (storage.KV, func() error, error) {
			return open(flagDir)
		},
		OpenWithConfig: func(config map[string]string) (storage.KV, func() error, error) {
			return open(config["fskv-dir"])
		},
	})
}

func open(dir string) (storage.KV, func() error, error) {
	if dir == "" {
		return nil, nil, fmt.Errorf("missing -fskv-dir")
	}
	kv, err := New(dir)
	if err != nil {
		return nil, nil, err
	}
	return kv, kv.Close, nil
}
