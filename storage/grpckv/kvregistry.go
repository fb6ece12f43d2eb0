package grpckv

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"contractum.io/stash/storage"
	"contractum.io/stash/storage/kvregistry"
)

var (
	flagTarget      string
	flagDialTimeout time.Duration
	flagTimeout     time.Duration
	flagMaxMsgBytes int
)

func init() {
	kvregistry.MustRegister(kvregistry.Backend{
		Name:        "grpc",
		Description: "gRPC KV client (talks to a stash-stored daemon)",
		Usage:       kvregistry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagTarget, "grpc-target", "", "gRPC target host:port (for -backend=grpc)")
			fs.DurationVar(&flagDialTimeout, "grpc-dial-timeout", 5*time.Second, "Dial timeout (for -backend=grpc)")
			fs.DurationVar(&flagTimeout, "grpc-timeout", 0, "Per-RPC timeout (for -backend=grpc)")
			fs.IntVar(&flagMaxMsgBytes, "grpc-max-msg-bytes", 0, "Max gRPC message size in bytes (send+recv); 0 uses grpc defaults")
		},
		Open: func() (storage.KV, func() error, error) {
			return open(flagTarget, flagDialTimeout, flagTimeout, flagMaxMsgBytes)
		},
		OpenWithConfig: func(config map[string]string) (storage.KV, func() error, error) {
			dialTimeout := 5 * time.Second
			if v := config["grpc-dial-timeout"]; v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return nil, nil, fmt.Errorf("invalid grpc-dial-timeout: %w", err)
				}
				dialTimeout = d
			}
			var timeout time.Duration
			if v := config["grpc-timeout"]; v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return nil, nil, fmt.Errorf("invalid grpc-timeout: %w", err)
				}
				timeout = d
			}
			maxMsg, _ := strconv.Atoi(config["grpc-max-msg-bytes"])
			return open(config["grpc-target"], dialTimeout, timeout, maxMsg)
		},
	})
}

func open(target string, dialTimeout, timeout time.Duration, maxMsgBytes int) (storage.KV, func() error, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, nil, fmt.Errorf("missing -grpc-target")
	}
	client, err := Dial(target, DialOptions{Timeout: dialTimeout, MaxMsgBytes: maxMsgBytes})
	if err != nil {
		return nil, nil, err
	}
	client.Timeout = timeout
	return client, client.Close, nil
}
