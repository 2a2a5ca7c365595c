package router

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

// Bucket names for BoltDB.
var (
	// bucketOutbox stores pending deliveries keyed by sequence number.
	bucketOutbox = []byte("outbox")
)

// OutboxConfig configures the persistent outbox.
type OutboxConfig struct {
	// Path is the file path for the outbox database.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// Fees prices deliveries accepted into the outbox.
	Fees FeeSchedule
}

// DefaultOutboxConfig returns the default outbox configuration.
func DefaultOutboxConfig(path string) OutboxConfig {
	return OutboxConfig{Path: path}
}

// Outbox is a durable delivery queue. Accepted messages survive restarts
// and are forwarded to an inner sender when the transport is available. It
// implements executor.MessageSender.
//
// Entries are zstd-compressed; reanchored asset lists repeat location
// prefixes heavily and compress well.
type Outbox struct {
	config OutboxConfig
	db     *bolt.DB

	enc *zstd.Encoder
	dec *zstd.Decoder

	mu     sync.Mutex
	closed bool
}

// OpenOutbox creates or opens an outbox at the configured path.
func OpenOutbox(config OutboxConfig) (*Outbox, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := bolt.Open(config.Path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
		NoSync:  config.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}

	o := &Outbox{config: config, db: db, enc: enc, dec: dec}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketOutbox)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return o, nil
}

// Close closes the outbox.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	o.closed = true
	o.enc.Close()
	o.dec.Close()
	return o.db.Close()
}

// frame is the stored form of one pending delivery: destination length,
// destination, payload.
func frame(dest xcm.Location, payload []byte) []byte {
	loc := xcm.EncodeLocation(dest)
	out := make([]byte, 4, 4+len(loc)+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(loc)))
	out = append(out, loc...)
	out = append(out, payload...)
	return out
}

func unframe(data []byte) (xcm.Location, []byte, error) {
	if len(data) < 4 {
		return xcm.Location{}, nil, xcm.ErrTruncated
	}
	n := binary.LittleEndian.Uint32(data)
	if uint32(len(data)-4) < n {
		return xcm.Location{}, nil, xcm.ErrTruncated
	}
	dest, err := xcm.DecodeLocation(data[4 : 4+n])
	if err != nil {
		return xcm.Location{}, nil, err
	}
	return dest, data[4+n:], nil
}

// Validate implements executor.MessageSender.
func (o *Outbox) Validate(dest xcm.Location, msg xcm.Message) (executor.DeliveryTicket, xcm.Assets, error) {
	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return nil, nil, ErrClosed
	}
	encoded, err := xcm.EncodeMessage(msg)
	if err != nil {
		return nil, nil, err
	}
	return &outboxTicket{o: o, dest: dest.Clone(), encoded: encoded}, o.config.Fees.Price(encoded), nil
}

type outboxTicket struct {
	o       *Outbox
	dest    xcm.Location
	encoded []byte
}

func (t *outboxTicket) Deliver() ([32]byte, error) {
	o := t.o
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return [32]byte{}, ErrClosed
	}

	compressed := o.enc.EncodeAll(frame(t.dest, t.encoded), nil)
	err := o.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, compressed)
	})
	if err != nil {
		return [32]byte{}, fmt.Errorf("enqueue: %w", err)
	}
	return MessageID(t.dest, t.encoded), nil
}

// Len returns the number of pending deliveries.
func (o *Outbox) Len() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, ErrClosed
	}
	n := 0
	err := o.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketOutbox).Stats().KeyN
		return nil
	})
	return n, err
}

// Forward drains up to limit pending deliveries to the inner sender in
// enqueue order, stopping at the first failure so ordering is preserved.
// It returns how many were forwarded. Execution-layer fees were already
// charged on enqueue; the inner sender's price is not re-charged.
func (o *Outbox) Forward(sender executor.MessageSender, limit int) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, ErrClosed
	}

	forwarded := 0
	for forwarded < limit {
		var key, value []byte
		err := o.db.View(func(tx *bolt.Tx) error {
			k, v := tx.Bucket(bucketOutbox).Cursor().First()
			if k != nil {
				key = append([]byte(nil), k...)
				value = append([]byte(nil), v...)
			}
			return nil
		})
		if err != nil {
			return forwarded, err
		}
		if key == nil {
			return forwarded, nil
		}

		raw, err := o.dec.DecodeAll(value, nil)
		if err != nil {
			return forwarded, fmt.Errorf("decompress entry: %w", err)
		}
		dest, payload, err := unframe(raw)
		if err != nil {
			return forwarded, fmt.Errorf("decode entry: %w", err)
		}
		msg, err := xcm.DecodeMessage(payload)
		if err != nil {
			return forwarded, fmt.Errorf("decode message: %w", err)
		}

		ticket, _, err := sender.Validate(dest, msg)
		if err != nil {
			return forwarded, err
		}
		if _, err := ticket.Deliver(); err != nil {
			return forwarded, err
		}

		err = o.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketOutbox).Delete(key)
		})
		if err != nil {
			return forwarded, err
		}
		forwarded++
	}
	return forwarded, nil
}

var _ executor.MessageSender = (*Outbox)(nil)
