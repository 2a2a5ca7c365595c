package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fortiblox/X1-Conduit/pkg/router"
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

// deliveryServer executes inbound messages. Everything arrives through
// the relay uplink, so the proximal origin of every message is the
// parent; senders descend or alias from there.
type deliveryServer struct {
	log  zerolog.Logger
	exec *executor.Executor

	// mu serializes executions; the interpreter keeps per-run state.
	mu sync.Mutex

	executed uint64
	failed   uint64
}

func newDeliveryServer(log zerolog.Logger, exec *executor.Executor) *deliveryServer {
	return &deliveryServer{log: log, exec: exec}
}

// Deliver implements router.UplinkHandler.
func (s *deliveryServer) Deliver(_ context.Context, destBytes, payload []byte) ([32]byte, error) {
	dest, err := xcm.DecodeLocation(destBytes)
	if err != nil {
		return [32]byte{}, status.Errorf(codes.InvalidArgument, "decode destination: %v", err)
	}
	msg, err := xcm.DecodeMessage(payload)
	if err != nil {
		return [32]byte{}, status.Errorf(codes.InvalidArgument, "decode message: %v", err)
	}

	id := router.MessageID(dest, payload)
	origin := xcm.Parent()

	s.mu.Lock()
	outcome := s.exec.Execute(origin, msg, id, xcm.Weight{})
	s.executed++
	if !outcome.Succeeded() {
		s.failed++
	}
	s.mu.Unlock()

	evt := s.log.Info()
	if !outcome.Succeeded() {
		evt = s.log.Warn()
	}
	evt.
		Hex("id", id[:]).
		Stringer("dest", dest).
		Int("instructions", len(msg)).
		Str("outcome", outcome.String()).
		Msg("message executed")

	// An execution failure is still a completed delivery; only transport
	// and decode problems surface as RPC errors.
	return id, nil
}

// Stats returns executed and failed message counts.
func (s *deliveryServer) Stats() (executed, failed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executed, s.failed
}
