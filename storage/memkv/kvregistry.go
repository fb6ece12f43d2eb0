package memkv

import (
	"flag"

	"contractum.io/stash/storage"
	"contractum.io/stash/storage/kvregistry"
)

func init() {
	kvregistry.MustRegister(kvregistry.Backend{
		Name:        "memkv",
		Description: "in-memory backend (ephemeral; testing only)",
		Usage:       kvregistry.UsageCLI | kvregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			// No flags: the backend has no state to configure.
		},
		Open: func() (storage.KV, func() error, error) {
			kv := New()
			return kv, kv.Close, nil
		},
		OpenWithConfig: func(config map[string]string) (storage.KV, func() error, error) {
			kv := New()
			return kv, kv.Close, nil
		},
	})
}
