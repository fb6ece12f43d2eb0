// Package ldbkv provides a goleveldb-backed KV backend, the default
// persistent choice for a long-lived stash.
package ldbkv

import (
	"errors"

	"github.com/sirupsen/logrus"
	goleveldb "github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"contractum.io/stash/storage"
)

const (
	// minCache is the minimum memory in megabytes allocated to leveldb
	// block caching and write buffering.
	minCache = 16

	// minHandles is the minimum number of file handles allocated to
	// open database files.
	minHandles = 16
)

type KV struct {
	path  string
	lvldb *goleveldb.DB
}

var _ storage.KV = (*KV)(nil)

// Options tunes the database; the zero value applies the defaults.
type Options struct {
	// CacheMB is the cache budget in megabytes, split between block
	// cache and write buffer.
	CacheMB int
	// Handles caps open file handles.
	Handles int
	// ReadOnly opens the database without write access.
	ReadOnly bool
}

// Open opens (or creates) a leveldb-backed KV at path, recovering the
// database when it was left corrupted by a crash.
func Open(path string, o Options) (*KV, error) {
	if path == "" {
		return nil, errors.New("ldbkv: database path is required")
	}
	cache := o.CacheMB
	if cache < minCache {
		cache = minCache
	}
	handles := o.Handles
	if handles < minHandles {
		handles = minHandles
	}
	options := &opt.Options{
		Filter:                 filter.NewBloomFilter(10),
		DisableSeeksCompaction: true,
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		ReadOnly:               o.ReadOnly,
	}

	logrus.WithFields(logrus.Fields{
		"database": path,
		"cacheMB":  cache,
		"handles":  handles,
		"readonly": o.ReadOnly,
	}).Info("opening stash database")

	db, err := goleveldb.OpenFile(path, options)
	if dberrors.IsCorrupted(err) {
		logrus.WithField("database", path).Warn("database corrupted, recovering")
		db, err = goleveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	return &KV{path: path, lvldb: db}, nil
}

func (db *KV) Get(key []byte) ([]byte, error) {
	v, err := db.lvldb.Get(key, nil)
	if err != nil {
		if errors.Is(err, dberrors.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (db *KV) Put(key, value []byte) error {
	return db.lvldb.Put(key, value, nil)
}

func (db *KV) Has(key []byte) bool {
	ok, err := db.lvldb.Has(key, nil)
	return err == nil && ok
}

func (db *KV) Delete(key []byte) error {
	return db.lvldb.Delete(key, nil)
}

func (db *KV) Scan(prefix []byte, fn func(key, value []byte) error) error {
	var slice *util.Range
	if len(prefix) > 0 {
		slice = util.BytesPrefix(prefix)
	}
	iter := db.lvldb.NewIterator(slice, nil)
	defer iter.Release()
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (db *KV) Close() error {
	logrus.WithField("database", db.path).Info("closing stash database")
	return db.lvldb.Close()
}
