// Package testkit provides a reusable conformance suite verifying
// that a storage.KV implementation honors the interface contract.
package testkit

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"contractum.io/stash/storage"
)

// NewKV constructs a fresh, empty KV instance for a test.
// The returned KV MUST be isolated from other tests.
type NewKV func(t *testing.T) storage.KV

func RunKVConformance(t *testing.T, newKV NewKV) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		kv := newKV(t)
		key := []byte("alpha")
		want := []byte("hello, stash storage")

		if err := kv.Put(key, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := kv.Get(key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch: got %q want %q", got, want)
		}
	})

	t.Run("PutReplaces", func(t *testing.T) {
		kv := newKV(t)
		key := []byte("alpha")

		if err := kv.Put(key, []byte("one")); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := kv.Put(key, []byte("two")); err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		got, err := kv.Get(key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, []byte("two")) {
			t.Fatalf("Put did not replace: got %q", got)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		kv := newKV(t)
		key := []byte("missing")

		if kv.Has(key) {
			t.Fatalf("Has returned true for missing key")
		}
		_, err := kv.Get(key)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if err := kv.Put(key, []byte("now present")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !kv.Has(key) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		kv := newKV(t)
		key := []byte("doomed")

		if err := kv.Put(key, []byte("v")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := kv.Delete(key); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if kv.Has(key) {
			t.Fatalf("Has returned true after Delete")
		}
		if err := kv.Delete(key); err != nil {
			t.Fatalf("Delete of absent key should succeed, got %v", err)
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		kv := newKV(t)
		key := []byte("shared")

		if err := kv.Put(key, []byte("original")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		first, err := kv.Get(key)
		if err != nil {
			t.Fatalf("Get(1) failed: %v", err)
		}
		for i := range first {
			first[i] = 'x'
		}
		second, err := kv.Get(key)
		if err != nil {
			t.Fatalf("Get(2) failed: %v", err)
		}
		if !bytes.Equal(second, []byte("original")) {
			t.Fatalf("stored value mutated through returned slice: %q", second)
		}
	})

	t.Run("ScanPrefixOrdered", func(t *testing.T) {
		kv := newKV(t)

		// Interleave two prefixes so the scan has to filter.
		for i := 0; i < 5; i++ {
			ka := []byte(fmt.Sprintf("a%03d", i))
			kb := []byte(fmt.Sprintf("b%03d", i))
			if err := kv.Put(ka, []byte{byte(i)}); err != nil {
				t.Fatalf("Put(%q) failed: %v", ka, err)
			}
			if err := kv.Put(kb, []byte{byte(i)}); err != nil {
				t.Fatalf("Put(%q) failed: %v", kb, err)
			}
		}

		var keys [][]byte
		err := kv.Scan([]byte("a"), func(key, value []byte) error {
			keys = append(keys, append([]byte(nil), key...))
			return nil
		})
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(keys) != 5 {
			t.Fatalf("Scan visited %d keys, want 5", len(keys))
		}
		for i, k := range keys {
			want := []byte(fmt.Sprintf("a%03d", i))
			if !bytes.Equal(k, want) {
				t.Fatalf("Scan key %d: got %q want %q", i, k, want)
			}
		}
	})

	t.Run("ScanStopsOnError", func(t *testing.T) {
		kv := newKV(t)
		for i := 0; i < 5; i++ {
			key := []byte(fmt.Sprintf("k%03d", i))
			if err := kv.Put(key, []byte("v")); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
		}

		sentinel := errors.New("stop here")
		var visited int
		err := kv.Scan(nil, func(key, value []byte) error {
			visited++
			if visited == 2 {
				return sentinel
			}
			return nil
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("Scan error: got %v want %v", err, sentinel)
		}
		if visited != 2 {
			t.Fatalf("Scan visited %d keys after error, want 2", visited)
		}
	})

	t.Run("EmptyScan", func(t *testing.T) {
		kv := newKV(t)
		err := kv.Scan([]byte("nothing"), func(key, value []byte) error {
			t.Fatalf("callback invoked on empty prefix: key=%q", key)
			return nil
		})
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
	})
}
