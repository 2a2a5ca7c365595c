package ledger

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

// Key prefixes for BadgerDB storage.
// Using prefixes allows efficient iteration over specific data types.
var (
	// prefixBalance is the prefix for balance entries.
	// Key format: prefixBalance + account (32 bytes) + asset entry key
	prefixBalance = []byte{0x01}

	// prefixTeleport is the prefix for checked-out teleport amounts.
	// Key format: prefixTeleport + asset entry key
	prefixTeleport = []byte{0x02}

	// prefixLock is the prefix for locked amounts.
	// Key format: prefixLock + unlocker (32) + owner (32) + asset entry key
	prefixLock = []byte{0x03}

	// prefixNote is the prefix for remotely noted lockable amounts.
	// Key format: prefixNote + locker (32) + owner (32) + asset entry key
	prefixNote = []byte{0x04}
)

// BadgerConfig contains configuration for the underlying BadgerDB.
type BadgerConfig struct {
	// Path is the directory path for the database.
	Path string

	// InMemory runs the database in memory (for testing).
	InMemory bool

	// SyncWrites ensures writes are synced to disk.
	// Setting to false improves performance but risks data loss on crash.
	SyncWrites bool

	// NumCompactors is the number of compaction workers.
	NumCompactors int

	// NumMemtables is the number of memtables.
	NumMemtables int

	// ValueLogFileSize is the size of each value log file.
	ValueLogFileSize int64

	// Logger is an optional logger. Set to nil to disable logging.
	Logger badger.Logger
}

// DefaultBadgerConfig returns default configuration.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:             path,
		InMemory:         false,
		SyncWrites:       false, // Async for performance
		NumCompactors:    4,
		NumMemtables:     5,
		ValueLogFileSize: 256 << 20, // 256MB
		Logger:           nil,       // Disable logging by default
	}
}

// Ledger is the BadgerDB-backed asset store. It implements
// executor.TransactAsset and executor.AssetLocker.
//
// Balances are stored as little-endian uint64 values keyed by sovereign
// account and canonical asset entry key. Non-fungible holdings store the
// value 1; their presence is what matters. Checked-out teleport amounts
// and locks use their own prefixes so each concern can be iterated
// independently.
type Ledger struct {
	db *badger.DB

	// mu serializes read-modify-write cycles on balances.
	mu sync.Mutex

	// closed indicates if the ledger is closed.
	closed atomic.Bool
}

// Open opens the ledger database.
func Open(cfg BadgerConfig) (*Ledger, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumCompactors(cfg.NumCompactors).
		WithNumMemtables(cfg.NumMemtables).
		WithValueLogFileSize(cfg.ValueLogFileSize).
		WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the ledger.
func (l *Ledger) Close() error {
	if l.closed.Swap(true) {
		return ErrClosed
	}
	return l.db.Close()
}

// getUint64 reads a little-endian counter, zero when absent.
func (l *Ledger) getUint64(key []byte) (uint64, error) {
	var out uint64
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) >= 8 {
				out = binary.LittleEndian.Uint64(val)
			}
			return nil
		})
	})
	return out, err
}

// setUint64 writes a little-endian counter, deleting the key at zero so
// empty entries do not accumulate.
func setUint64(txn *badger.Txn, key []byte, v uint64) error {
	if v == 0 {
		err := txn.Delete(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return txn.Set(key, buf)
}

// update rewrites the counter at key inside one transaction; f receives
// the current value and returns the next one.
func (l *Ledger) update(key []byte, f func(current uint64) (uint64, error)) error {
	if l.closed.Load() {
		return ErrClosed
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Update(func(txn *badger.Txn) error {
		var current uint64
		item, err := txn.Get(key)
		if err == nil {
			err = item.Value(func(val []byte) error {
				if len(val) >= 8 {
					current = binary.LittleEndian.Uint64(val)
				}
				return nil
			})
			if err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		next, err := f(current)
		if err != nil {
			return err
		}
		return setUint64(txn, key, next)
	})
}

// credit adds amount to the counter at key, saturating at the maximum
// representable balance like the holding register does.
func (l *Ledger) credit(key []byte, amount uint64) error {
	return l.update(key, func(current uint64) (uint64, error) {
		sum := current + amount
		if sum < current {
			sum = ^uint64(0)
		}
		return sum, nil
	})
}

// debit subtracts amount from the counter at key. A balance below amount
// fails with underflowErr and leaves the counter unchanged.
func (l *Ledger) debit(key []byte, amount uint64, underflowErr error) error {
	return l.update(key, func(current uint64) (uint64, error) {
		if current < amount {
			return 0, underflowErr
		}
		return current - amount, nil
	})
}

// Balance returns the held amount of one fungible asset class, or 1/0 for
// a non-fungible instance.
func (l *Ledger) Balance(who xcm.Location, a xcm.Asset) (uint64, error) {
	if l.closed.Load() {
		return 0, ErrClosed
	}
	return l.getUint64(balanceKey(who, a))
}

// Deposit implements executor.TransactAsset.
func (l *Ledger) Deposit(what xcm.Asset, who xcm.Location) error {
	if what.IsFungible() {
		return l.credit(balanceKey(who, what), what.Amount)
	}
	if l.closed.Load() {
		return ErrClosed
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Update(func(txn *badger.Txn) error {
		return setUint64(txn, balanceKey(who, what), 1)
	})
}

// Withdraw implements executor.TransactAsset.
func (l *Ledger) Withdraw(what xcm.Asset, who xcm.Location) error {
	amount := what.Amount
	if !what.IsFungible() {
		amount = 1
	}
	return l.debit(balanceKey(who, what), amount, ErrInsufficientBalance)
}

// Transfer implements executor.TransactAsset. The withdrawal is re-applied
// on a failed deposit so a half-finished transfer cannot stick.
func (l *Ledger) Transfer(what xcm.Asset, from, to xcm.Location) error {
	if err := l.Withdraw(what, from); err != nil {
		return err
	}
	if err := l.Deposit(what, to); err != nil {
		_ = l.Deposit(what, from)
		return err
	}
	return nil
}

// CanCheckOut implements executor.TransactAsset. Anything the ledger holds
// can leave by teleport.
func (l *Ledger) CanCheckOut(xcm.Location, xcm.Asset) error {
	if l.closed.Load() {
		return ErrClosed
	}
	return nil
}

// CheckOut implements executor.TransactAsset; it records the amount as
// away so a later check-in can be validated.
func (l *Ledger) CheckOut(_ xcm.Location, what xcm.Asset) {
	amount := what.Amount
	if !what.IsFungible() {
		amount = 1
	}
	_ = l.credit(teleportKey(what), amount)
}

// CanCheckIn implements executor.TransactAsset. A teleported asset may
// only come back if at least that much was checked out.
func (l *Ledger) CanCheckIn(_ xcm.Location, what xcm.Asset) error {
	if l.closed.Load() {
		return ErrClosed
	}
	amount := what.Amount
	if !what.IsFungible() {
		amount = 1
	}
	away, err := l.getUint64(teleportKey(what))
	if err != nil {
		return err
	}
	if away < amount {
		return ErrNotCheckedOut
	}
	return nil
}

// CheckIn implements executor.TransactAsset.
func (l *Ledger) CheckIn(_ xcm.Location, what xcm.Asset) {
	amount := what.Amount
	if !what.IsFungible() {
		amount = 1
	}
	_ = l.debit(teleportKey(what), amount, ErrNotCheckedOut)
}

// CheckedOut returns the amount of one asset class currently away by
// teleport.
func (l *Ledger) CheckedOut(a xcm.Asset) (uint64, error) {
	if l.closed.Load() {
		return 0, ErrClosed
	}
	return l.getUint64(teleportKey(a))
}
