// Package store persists index snapshots in an embedded BadgerDB so list
// and lookup commands can read the last scan without rescanning. The
// in-memory index stays authoritative within a process; this is a cache
// of its last published state.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/apilens/apilens/internal/endpoint"
)

const prefixEntry = "ep:"

// record is the stored form of one entry. Seq preserves the index's
// insertion order across the key-ordered iteration badger gives us.
type record struct {
	Seq   int            `json:"seq"`
	Entry endpoint.Entry `json:"entry"`
}

// Store is a snapshot store over one BadgerDB directory.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the snapshot database at dbPath.
func Open(dbPath string) (*Store, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// entryKey derives the storage key from the entry's canonical identity, so
// a raw-spelling lookup and the stored snapshot agree.
func entryKey(path, method string) []byte {
	return []byte(prefixEntry + endpoint.Key(path, method))
}

// ReplaceAll drops the previous snapshot and writes the given entries in
// order.
func (s *Store) ReplaceAll(entries []endpoint.Entry) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixEntry)})
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		for i, e := range entries {
			data, err := json.Marshal(record{Seq: i, Entry: e})
			if err != nil {
				return fmt.Errorf("marshal entry %s: %w", e.Endpoint, err)
			}
			if err := txn.Set(entryKey(e.Endpoint, e.HTTPMethod), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// All returns the stored entries in their original index order.
func (s *Store) All() ([]endpoint.Entry, error) {
	var records []record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(prefixEntry),
			PrefetchValues: true,
			PrefetchSize:   64,
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var r record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	entries := make([]endpoint.Entry, len(records))
	for i, r := range records {
		entries[i] = r.Entry
	}
	return entries, nil
}

// Get looks up one stored entry by path and method, normalizing the same
// way the index does.
func (s *Store) Get(path, method string) (endpoint.Entry, bool, error) {
	var r record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(path, method))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return endpoint.Entry{}, false, nil
		}
		return endpoint.Entry{}, false, fmt.Errorf("get %s %s: %w", path, method, err)
	}
	return r.Entry, true, nil
}
