// Package router moves messages between consensus systems.
//
// Every sender is two-phase: Validate prices and prepares a delivery
// without side effects, and the returned ticket performs it. The
// interpreter charges the delivery fee between the two phases, so a
// refused fee never leaves a half-sent message.
//
// Three senders are provided. MemoryRouter delivers in-process and backs
// tests and local loopback. Uplink delivers over gRPC to a relay endpoint.
// Outbox persists validated messages to disk and forwards them to an inner
// sender, decoupling execution from transport availability.
package router

import (
	"errors"
	"sync"

	"github.com/fortiblox/X1-Conduit/internal/types"
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

var (
	// ErrUnroutable is returned when no route exists to the destination.
	ErrUnroutable = errors.New("router: no route to destination")

	// ErrMessageTooLarge is returned when an encoded message exceeds the
	// transport's size limit.
	ErrMessageTooLarge = errors.New("router: message too large")

	// ErrClosed is returned when operating on a closed router.
	ErrClosed = errors.New("router: closed")
)

// FeeSchedule prices deliveries in one asset class: a flat base plus a
// per-byte charge on the encoded message.
type FeeSchedule struct {
	// Asset is the class the fee is charged in.
	Asset xcm.AssetID

	// Base is the flat charge per delivery.
	Base uint64

	// PerByte is the additional charge per encoded byte.
	PerByte uint64
}

// Price returns the delivery fee for an encoded message. A zero schedule
// prices everything at nothing.
func (f FeeSchedule) Price(encoded []byte) xcm.Assets {
	amount := f.Base + f.PerByte*uint64(len(encoded))
	if amount == 0 {
		return nil
	}
	return xcm.MustNewAssets(xcm.Asset{ID: f.Asset, Amount: amount})
}

// MessageID derives the identity of an outbound message from its
// destination and payload.
func MessageID(dest xcm.Location, payload []byte) [32]byte {
	return [32]byte(types.HashConcat(xcm.EncodeLocation(dest), payload))
}

// Inbound is one message delivered to a MemoryRouter destination.
type Inbound struct {
	Dest    xcm.Location
	Message xcm.Message
}

// MemoryRouter delivers messages to in-process queues keyed by
// destination. Destinations must be registered before they are routable.
// It implements executor.MessageSender.
type MemoryRouter struct {
	mu     sync.Mutex
	fees   FeeSchedule
	queues map[string][]Inbound
}

// NewMemoryRouter returns an empty in-process router.
func NewMemoryRouter(fees FeeSchedule) *MemoryRouter {
	return &MemoryRouter{fees: fees, queues: make(map[string][]Inbound)}
}

func destKey(dest xcm.Location) string {
	return string(xcm.EncodeLocation(dest))
}

// Register makes a destination routable.
func (r *MemoryRouter) Register(dest xcm.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := destKey(dest)
	if _, ok := r.queues[key]; !ok {
		r.queues[key] = nil
	}
}

// Validate implements executor.MessageSender.
func (r *MemoryRouter) Validate(dest xcm.Location, msg xcm.Message) (executor.DeliveryTicket, xcm.Assets, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.queues[destKey(dest)]; !ok {
		return nil, nil, ErrUnroutable
	}
	encoded, err := xcm.EncodeMessage(msg)
	if err != nil {
		return nil, nil, err
	}
	return &memoryTicket{r: r, dest: dest.Clone(), msg: msg, encoded: encoded}, r.fees.Price(encoded), nil
}

type memoryTicket struct {
	r       *MemoryRouter
	dest    xcm.Location
	msg     xcm.Message
	encoded []byte
}

func (t *memoryTicket) Deliver() ([32]byte, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	key := destKey(t.dest)
	if _, ok := t.r.queues[key]; !ok {
		return [32]byte{}, ErrUnroutable
	}
	t.r.queues[key] = append(t.r.queues[key], Inbound{Dest: t.dest, Message: t.msg})
	return MessageID(t.dest, t.encoded), nil
}

// Drain removes and returns every message queued for a destination.
func (r *MemoryRouter) Drain(dest xcm.Location) []Inbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := destKey(dest)
	out := r.queues[key]
	r.queues[key] = nil
	return out
}

var _ executor.MessageSender = (*MemoryRouter)(nil)
