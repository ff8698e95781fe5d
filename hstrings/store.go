package hstrings

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// Store is the backing hash to text table of a Pool.
type Store interface {
	Get(hash uint64) (text string, ok bool, err error)
	Put(hash uint64, text string) error
	Close() error
}

type MemoryStore struct {
	m *xsync.MapOf[uint64, string]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: xsync.NewMapOf[uint64, string]()}
}

func (s *MemoryStore) Get(hash uint64) (string, bool, error) {
	text, ok := s.m.Load(hash)
	return text, ok, nil
}

func (s *MemoryStore) Put(hash uint64, text string) error {
	s.m.Store(hash, text)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// PebbleStore keeps the table on disk so hashes saved elsewhere
// resolve across restarts.
type PebbleStore struct {
	db *pebble.DB
}

const hashKeyLen = 1 + 8

func hashKey(hash uint64) []byte {
	var ret = [hashKeyLen]byte{'H'}
	binary.BigEndian.PutUint64(ret[1:], hash)
	return ret[:]
}

func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open hash store %s", dir)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Get(hash uint64) (string, bool, error) {
	val, closer, err := s.db.Get(hashKey(hash))
	if closer != nil {
		defer closer.Close()
	}
	if err == pebble.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "hash store get")
	}
	return string(val), true, nil
}

func (s *PebbleStore) Put(hash uint64, text string) error {
	return errors.Wrap(s.db.Set(hashKey(hash), []byte(text), pebble.Sync), "hash store put")
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
