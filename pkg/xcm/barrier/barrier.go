// Package barrier provides admission policies deciding whether a message
// may begin execution.
package barrier

import (
	"errors"
	"fmt"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

var (
	// ErrRefused is the generic admission refusal.
	ErrRefused = errors.New("barrier: refused")

	// ErrInsufficientCredit means the message's weight exceeds the
	// remaining weight credit.
	ErrInsufficientCredit = errors.New("barrier: insufficient weight credit")

	// ErrNoPayment means the message does not arrange to pay for its
	// execution.
	ErrNoPayment = errors.New("barrier: execution not paid for")
)

// LocationFilter admits locations; used to scope barriers to origins.
type LocationFilter func(xcm.Location) bool

// AnyLocation admits every origin.
func AnyLocation(xcm.Location) bool { return true }

// OneOf admits exactly the listed origins.
func OneOf(locations ...xcm.Location) LocationFilter {
	return func(l xcm.Location) bool {
		for _, candidate := range locations {
			if candidate.Equal(l) {
				return true
			}
		}
		return false
	}
}

// TakeWeightCredit admits a message by drawing its weight from the
// caller-supplied weight credit. Used for locally originated programs.
type TakeWeightCredit struct{}

// ShouldExecute implements executor.Barrier.
func (TakeWeightCredit) ShouldExecute(_ xcm.Location, _ xcm.Message, maxWeight xcm.Weight, props *executor.Properties) error {
	if maxWeight.AnyGreater(props.WeightCredit) {
		return ErrInsufficientCredit
	}
	props.WeightCredit = props.WeightCredit.Sub(maxWeight)
	return nil
}

// AllowTopLevelPaidExecutionFrom admits messages from allowed origins that
// begin by placing assets into holding and promptly buy enough execution
// weight with them. The BuyExecution limit is rewritten to exactly the
// message weight before admission, so the purchase can be neither skipped
// via Unlimited nor inflated past what the message needs.
type AllowTopLevelPaidExecutionFrom struct {
	Allowed LocationFilter
}

// ShouldExecute implements executor.Barrier.
func (b AllowTopLevelPaidExecutionFrom) ShouldExecute(origin xcm.Location, msg xcm.Message, maxWeight xcm.Weight, _ *executor.Properties) error {
	if b.Allowed == nil || !b.Allowed(origin) {
		return fmt.Errorf("%w: origin %v not allowed", ErrRefused, origin)
	}
	if len(msg) == 0 {
		return ErrRefused
	}
	switch msg[0].(type) {
	case xcm.WithdrawAsset, xcm.ReserveAssetDeposited, xcm.ReceiveTeleportedAsset, xcm.ClaimAsset:
	default:
		return ErrNoPayment
	}
	i := 1
	for i < len(msg) {
		if _, ok := msg[i].(xcm.ClearOrigin); !ok {
			break
		}
		i++
	}
	if i >= len(msg) {
		return ErrNoPayment
	}
	buy, ok := msg[i].(xcm.BuyExecution)
	if !ok {
		return ErrNoPayment
	}
	// The purchase must cover the whole message. Rewrite the limit so
	// the interpreter buys exactly the message weight: an unlimited or
	// oversized limit becomes Limited(maxWeight), anything smaller is
	// refused.
	switch {
	case !buy.WeightLimit.Limited:
		buy.WeightLimit = xcm.Limited(maxWeight)
	case !maxWeight.AnyGreater(buy.WeightLimit.Weight):
		buy.WeightLimit.Weight = maxWeight
	default:
		return ErrNoPayment
	}
	msg[i] = buy
	return nil
}

// AllowUnpaidExecutionFrom admits any message from the allowed origins
// without payment. Reserve for origins under the same governance.
type AllowUnpaidExecutionFrom struct {
	Allowed LocationFilter
}

// ShouldExecute implements executor.Barrier.
func (b AllowUnpaidExecutionFrom) ShouldExecute(origin xcm.Location, _ xcm.Message, _ xcm.Weight, _ *executor.Properties) error {
	if b.Allowed == nil || !b.Allowed(origin) {
		return fmt.Errorf("%w: origin %v not allowed", ErrRefused, origin)
	}
	return nil
}

// AllowExplicitUnpaidExecutionFrom admits messages from the allowed
// origins that lead with an UnpaidExecution instruction covering the
// message's weight.
type AllowExplicitUnpaidExecutionFrom struct {
	Allowed LocationFilter
}

// ShouldExecute implements executor.Barrier.
func (b AllowExplicitUnpaidExecutionFrom) ShouldExecute(origin xcm.Location, msg xcm.Message, maxWeight xcm.Weight, _ *executor.Properties) error {
	if b.Allowed == nil || !b.Allowed(origin) {
		return fmt.Errorf("%w: origin %v not allowed", ErrRefused, origin)
	}
	if len(msg) == 0 {
		return ErrRefused
	}
	unpaid, ok := msg[0].(xcm.UnpaidExecution)
	if !ok {
		return ErrNoPayment
	}
	if unpaid.WeightLimit.Limited && maxWeight.AnyGreater(unpaid.WeightLimit.Weight) {
		return ErrNoPayment
	}
	return nil
}

// AllowKnownQueryResponses admits messages that consist of a single
// QueryResponse answering a query the local system is expecting.
type AllowKnownQueryResponses struct {
	// Expecting reports whether the local system awaits a response with
	// the given ID from the given origin.
	Expecting func(origin xcm.Location, queryID uint64) bool
}

// ShouldExecute implements executor.Barrier.
func (b AllowKnownQueryResponses) ShouldExecute(origin xcm.Location, msg xcm.Message, _ xcm.Weight, _ *executor.Properties) error {
	if len(msg) != 1 || b.Expecting == nil {
		return ErrRefused
	}
	qr, ok := msg[0].(xcm.QueryResponse)
	if !ok {
		return ErrRefused
	}
	if !b.Expecting(origin, qr.QueryID) {
		return ErrRefused
	}
	return nil
}

// Any admits a message if at least one member barrier admits it, trying
// them in order.
type Any []executor.Barrier

// ShouldExecute implements executor.Barrier.
func (bs Any) ShouldExecute(origin xcm.Location, msg xcm.Message, maxWeight xcm.Weight, props *executor.Properties) error {
	var firstErr error
	for _, b := range bs {
		err := b.ShouldExecute(origin, msg, maxWeight, props)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		return ErrRefused
	}
	return firstErr
}
