// stash-stored serves a stash KV backend over gRPC, so remote stash
// instances can use it for persistence through storage/grpckv.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"contractum.io/stash/storage"
	"contractum.io/stash/storage/grpckv"
	"contractum.io/stash/storage/kvregistry"
	"contractum.io/stash/storage/storeconfig"

	_ "contractum.io/stash/storage/fskv"
	_ "contractum.io/stash/storage/ldbkv"
	_ "contractum.io/stash/storage/memkv"
)

func main() {
	fs := flag.NewFlagSet("stash-stored", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7701", "listen address")
	backend := fs.String("backend", "ldbkv", "KV backend name")
	storeConfig := fs.String("store-config", "", "JSON store config (overrides -backend; supports replication)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	verbose := fs.Bool("verbose", false, "Enable debug logging")

	kvregistry.RegisterFlags(fs, kvregistry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range kvregistry.List(kvregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	log := logrus.WithField("daemon", "stash-stored")
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	var (
		kv      storage.KV
		closeFn func() error
		err     error
	)
	if *storeConfig != "" {
		var cfg storeconfig.Config
		cfg, err = storeconfig.LoadFile(*storeConfig)
		if err == nil {
			kv, closeFn, err = cfg.Open(kvregistry.UsageDaemon)
		}
	} else {
		kv, closeFn, err = kvregistry.Open(*backend, kvregistry.UsageDaemon)
	}
	if err != nil {
		log.WithError(err).Error("opening backend")
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.WithError(err).Error("listening")
		os.Exit(1)
	}
	defer lis.Close()

	srv := grpc.NewServer()
	grpckv.RegisterKVServer(srv, &grpckv.Server{KV: kv})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.WithField("signal", s.String()).Info("shutting down")
		srv.GracefulStop()
	}()

	source := *backend
	if *storeConfig != "" {
		source = "config:" + *storeConfig
	}
	log.WithFields(logrus.Fields{
		"listen":  lis.Addr().String(),
		"backend": source,
	}).Info("serving")
	if err := srv.Serve(lis); err != nil {
		log.WithError(err).Error("serve")
		os.Exit(1)
	}
	log.Info("stopped")
}
