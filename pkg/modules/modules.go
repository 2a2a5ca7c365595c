// Package modules provides the call dispatch registry behind Transact.
//
// An embedded call is two index bytes followed by module-specific
// arguments: the first byte selects the module, the second the call within
// it. Modules register in a Registry, which implements the interpreter's
// CallDispatcher and PalletsInfoAccess collaborators. A failed call is
// reported as a two-byte module error, never as a dispatch panic.
package modules

import (
	"errors"
	"fmt"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

var (
	// ErrCallTooShort is returned when a call lacks the two index bytes.
	ErrCallTooShort = errors.New("modules: call too short")

	// ErrUnknownModule is returned when no module has the given index.
	ErrUnknownModule = errors.New("modules: unknown module index")

	// ErrDuplicateIndex is returned when two modules claim one index.
	ErrDuplicateIndex = errors.New("modules: duplicate module index")
)

// Module error codes shared by all modules.
const (
	// errCodeUnknownCall is reported for an out-of-range call index.
	errCodeUnknownCall uint8 = 0x00

	// errCodeBadArgs is reported for undecodable call arguments.
	errCodeBadArgs uint8 = 0x01
)

// Module is one dispatchable runtime module.
type Module interface {
	// Info returns the module's metadata.
	Info() xcm.PalletInfo

	// WeighCall returns the declared weight of one call, or an error if
	// the call index or arguments are invalid.
	WeighCall(call uint8, args []byte) (xcm.Weight, error)

	// Dispatch executes one call with the given origin. It returns the
	// weight used and, if the call failed, a module error payload.
	Dispatch(origin xcm.Location, kind xcm.OriginKind, call uint8, args []byte) (xcm.Weight, []byte)
}

// CallFilter decides whether an origin may dispatch a call.
type CallFilter func(origin xcm.Location, kind xcm.OriginKind, module, call uint8) bool

// SafeCallFilter admits everything except superuser dispatches, which
// remote origins never get.
func SafeCallFilter(_ xcm.Location, kind xcm.OriginKind, _, _ uint8) bool {
	return kind != xcm.OriginKindSuperuser
}

// moduleError encodes a failed dispatch: module index plus error code.
func moduleError(module, code uint8) []byte {
	return []byte{module, code}
}

// Registry routes calls to registered modules. It implements
// executor.CallDispatcher and executor.PalletsInfoAccess.
type Registry struct {
	modules map[uint8]Module
	order   []uint8
	filter  CallFilter
}

// NewRegistry returns an empty registry using the given filter; nil means
// SafeCallFilter.
func NewRegistry(filter CallFilter) *Registry {
	if filter == nil {
		filter = SafeCallFilter
	}
	return &Registry{modules: make(map[uint8]Module), filter: filter}
}

// Register adds a module under its metadata index.
func (r *Registry) Register(m Module) error {
	idx := uint8(m.Info().Index)
	if _, ok := r.modules[idx]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateIndex, idx)
	}
	r.modules[idx] = m
	r.order = append(r.order, idx)
	return nil
}

// split separates the two index bytes from the arguments.
func split(call []byte) (module, idx uint8, args []byte, err error) {
	if len(call) < 2 {
		return 0, 0, nil, ErrCallTooShort
	}
	return call[0], call[1], call[2:], nil
}

// WeighCall implements executor.CallDispatcher.
func (r *Registry) WeighCall(call []byte) (xcm.Weight, error) {
	module, idx, args, err := split(call)
	if err != nil {
		return xcm.Weight{}, err
	}
	m, ok := r.modules[module]
	if !ok {
		return xcm.Weight{}, fmt.Errorf("%w: %d", ErrUnknownModule, module)
	}
	return m.WeighCall(idx, args)
}

// IsCallAllowed implements executor.CallDispatcher.
func (r *Registry) IsCallAllowed(origin xcm.Location, kind xcm.OriginKind, call []byte) bool {
	module, idx, _, err := split(call)
	if err != nil {
		return false
	}
	if _, ok := r.modules[module]; !ok {
		return false
	}
	return r.filter(origin, kind, module, idx)
}

// Dispatch implements executor.CallDispatcher.
func (r *Registry) Dispatch(origin xcm.Location, kind xcm.OriginKind, call []byte, maxWeight xcm.Weight) (xcm.Weight, []byte) {
	module, idx, args, err := split(call)
	if err != nil {
		return xcm.Weight{}, moduleError(0, errCodeBadArgs)
	}
	m, ok := r.modules[module]
	if !ok {
		return xcm.Weight{}, moduleError(module, errCodeUnknownCall)
	}
	used, dispatchErr := m.Dispatch(origin, kind, idx, args)
	if used.AnyGreater(maxWeight) {
		used = maxWeight
	}
	return used, dispatchErr
}

// Pallets implements executor.PalletsInfoAccess, in registration order.
func (r *Registry) Pallets() []xcm.PalletInfo {
	out := make([]xcm.PalletInfo, 0, len(r.order))
	for _, idx := range r.order {
		out = append(out, r.modules[idx].Info())
	}
	return out
}

var (
	_ executor.CallDispatcher    = (*Registry)(nil)
	_ executor.PalletsInfoAccess = (*Registry)(nil)
)
