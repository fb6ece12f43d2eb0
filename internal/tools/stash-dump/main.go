// stash-dump walks a stash backend and prints every stored object's
// kind and identifier, as a debugging and backup aid.
package main

import (
	"flag"
	"fmt"
	"os"

	"contractum.io/stash/index"
	"contractum.io/stash/stash"
	"contractum.io/stash/storage"
	"contractum.io/stash/storage/kvregistry"

	_ "contractum.io/stash/storage/fskv"
	_ "contractum.io/stash/storage/grpckv"
	_ "contractum.io/stash/storage/ldbkv"
)

func main() {
	fs := flag.NewFlagSet("stash-dump", flag.ExitOnError)
	backend := fs.String("backend", "ldbkv", "KV backend name")
	kvregistry.RegisterFlags(fs, kvregistry.UsageCLI)
	_ = fs.Parse(os.Args[1:])

	kv, closeFn, err := kvregistry.Open(*backend, kvregistry.UsageCLI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}

	s := stash.New(storage.New(kv), index.NewKV(kv))
	if err := dump(s); err != nil {
		fmt.Fprintf(os.Stderr, "dump: %v\n", err)
		os.Exit(1)
	}
}

func dump(s *stash.Stash) error {
	git, err := s.GenesisIter()
	if err != nil {
		return err
	}
	for git.Next() {
		g := git.Genesis()
		fmt.Printf("genesis\t%s\tschema=%s network=%s\n", g.ContractID(), g.Schema, g.Network)
	}
	if err := git.Err(); err != nil {
		return err
	}

	tit, err := s.TransitionIter()
	if err != nil {
		return err
	}
	for tit.Next() {
		t := tit.Transition()
		fmt.Printf("transition\t%s\ttype=%d parents=%d\n", t.ID(), t.Type, len(t.Parents()))
	}
	if err := tit.Err(); err != nil {
		return err
	}

	eit, err := s.ExtensionIter()
	if err != nil {
		return err
	}
	for eit.Next() {
		e := eit.Extension()
		fmt.Printf("extension\t%s\ttype=%d contract=%s\n", e.ID(), e.Type, e.Contract)
	}
	if err := eit.Err(); err != nil {
		return err
	}

	ait, err := s.AnchorIter()
	if err != nil {
		return err
	}
	for ait.Next() {
		a := ait.Anchor()
		fmt.Printf("anchor\t%s\ttxid=%x commits=%d\n", a.ID(), a.Txid[:4], len(a.Commits))
	}
	return ait.Err()
}
