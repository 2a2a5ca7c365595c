// Package traps provides persistent custody of assets abandoned during
// message execution.
//
// When an execution finishes with assets still in the holding register,
// the interpreter drops them here. The trap is keyed by a BLAKE3 digest of
// the effective origin and the canonical asset set, so the same origin can
// later reclaim exactly what it lost with a ClaimAsset instruction. Equal
// drops stack as a count under one key.
package traps

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fortiblox/X1-Conduit/internal/types"
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

var (
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("trap store closed")
)

// Bucket names for BoltDB.
var (
	// bucketTraps stores trap counts keyed by claim hash.
	bucketTraps = []byte("traps")

	// bucketRecords stores the origin and assets behind each claim hash,
	// for operator inspection.
	bucketRecords = []byte("trap_records")
)

// Config holds trap store configuration options.
type Config struct {
	// Path is the file path for the trap database.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// TrapWeight is the weight charged for trapping one holding register.
	TrapWeight xcm.Weight
}

// DefaultConfig returns the default trap store configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		NoSync:     false,
		TrapWeight: xcm.NewWeight(10_000, 64),
	}
}

// Store is the BoltDB-backed trap custodian. It implements
// executor.AssetTrap and executor.AssetClaims.
type Store struct {
	db     *bolt.DB
	config Config

	mu     sync.Mutex
	closed bool
}

// Open creates or opens a trap store at the configured path.
func Open(config Config) (*Store, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	opts := &bolt.Options{
		Timeout: 5 * time.Second,
		NoSync:  config.NoSync,
	}
	db, err := bolt.Open(config.Path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, config: config}
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return s, nil
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketTraps, bucketRecords} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the trap store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return s.db.Close()
}

// claimHash is the trap key: a digest binding the origin to the exact
// canonical asset set.
func claimHash(origin xcm.Location, assets xcm.Assets) []byte {
	h := types.HashConcat(xcm.EncodeLocation(origin), xcm.EncodeAssets(assets))
	return h.Bytes()
}

// record is the inspectable payload behind a claim hash.
type record struct {
	origin xcm.Location
	assets xcm.Assets
}

func encodeRecord(origin xcm.Location, assets xcm.Assets) []byte {
	loc := xcm.EncodeLocation(origin)
	as := xcm.EncodeAssets(assets)
	out := make([]byte, 4, 4+len(loc)+len(as))
	binary.LittleEndian.PutUint32(out, uint32(len(loc)))
	out = append(out, loc...)
	out = append(out, as...)
	return out
}

func decodeRecord(data []byte) (record, error) {
	if len(data) < 4 {
		return record{}, xcm.ErrTruncated
	}
	n := binary.LittleEndian.Uint32(data)
	if uint32(len(data)-4) < n {
		return record{}, xcm.ErrTruncated
	}
	origin, err := xcm.DecodeLocation(data[4 : 4+n])
	if err != nil {
		return record{}, err
	}
	assets, err := xcm.DecodeAssets(data[4+n:])
	if err != nil {
		return record{}, err
	}
	return record{origin: origin, assets: assets}, nil
}

// DropAssets implements executor.AssetTrap.
func (s *Store) DropAssets(origin xcm.Location, assets xcm.Assets) xcm.Weight {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || assets.Len() == 0 {
		return xcm.Weight{}
	}

	key := claimHash(origin, assets)
	_ = s.db.Update(func(tx *bolt.Tx) error {
		traps := tx.Bucket(bucketTraps)
		var count uint64
		if v := traps.Get(key); len(v) >= 8 {
			count = binary.LittleEndian.Uint64(v)
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, count+1)
		if err := traps.Put(key, buf); err != nil {
			return err
		}
		return tx.Bucket(bucketRecords).Put(key, encodeRecord(origin, assets))
	})
	return s.config.TrapWeight
}

// ClaimAssets implements executor.AssetClaims. The ticket must be Here;
// versioned claim tickets are not supported.
func (s *Store) ClaimAssets(origin xcm.Location, ticket xcm.Location, what xcm.Assets) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !ticket.IsHere() || what.Len() == 0 {
		return false
	}

	key := claimHash(origin, what)
	claimed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		traps := tx.Bucket(bucketTraps)
		v := traps.Get(key)
		if len(v) < 8 {
			return nil
		}
		count := binary.LittleEndian.Uint64(v)
		if count == 0 {
			return nil
		}
		claimed = true
		if count == 1 {
			if err := traps.Delete(key); err != nil {
				return err
			}
			return tx.Bucket(bucketRecords).Delete(key)
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, count-1)
		return traps.Put(key, buf)
	})
	if err != nil {
		return false
	}
	return claimed
}

// Trapped is one outstanding trap entry.
type Trapped struct {
	// Origin is the location entitled to claim.
	Origin xcm.Location

	// Assets is the exact asset set that must be claimed.
	Assets xcm.Assets

	// Count is how many identical drops are outstanding.
	Count uint64
}

// List returns every outstanding trap entry.
func (s *Store) List() ([]Trapped, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []Trapped
	err := s.db.View(func(tx *bolt.Tx) error {
		traps := tx.Bucket(bucketTraps)
		records := tx.Bucket(bucketRecords)
		return traps.ForEach(func(k, v []byte) error {
			if len(v) < 8 {
				return nil
			}
			data := records.Get(k)
			rec, err := decodeRecord(data)
			if err != nil {
				return err
			}
			out = append(out, Trapped{
				Origin: rec.origin,
				Assets: rec.assets,
				Count:  binary.LittleEndian.Uint64(v),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var (
	_ executor.AssetTrap   = (*Store)(nil)
	_ executor.AssetClaims = (*Store)(nil)
)
