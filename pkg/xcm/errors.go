package xcm

import "fmt"

// ErrorCode identifies a class of execution failure. Codes are part of the
// wire format: they travel inside QueryResponse messages reporting the
// outcome of a remote execution.
type ErrorCode uint8

const (
	// CodeOverflow signals an arithmetic overflow, typically while fusing
	// fungible amounts.
	CodeOverflow ErrorCode = iota
	// CodeUnimplemented signals an instruction the executor recognises but
	// does not support.
	CodeUnimplemented
	// CodeUntrustedReserveLocation signals a reserve claim from a location
	// the trust policy rejects.
	CodeUntrustedReserveLocation
	// CodeUntrustedTeleportLocation signals a teleport claim from a
	// location the trust policy rejects.
	CodeUntrustedTeleportLocation
	// CodeLocationFull signals that a location could not absorb another
	// junction without exceeding the interior capacity.
	CodeLocationFull
	// CodeLocationNotInvertible signals a reanchoring context too shallow
	// to invert the target location.
	CodeLocationNotInvertible
	// CodeBadOrigin signals an operation attempted with a missing or
	// unauthorised origin.
	CodeBadOrigin
	// CodeInvalidLocation signals a location that is structurally valid
	// but unusable for the operation at hand.
	CodeInvalidLocation
	// CodeAssetNotFound signals an asset the operation expected to exist.
	CodeAssetNotFound
	// CodeFailedToTransactAsset signals a transactor-level failure while
	// moving an asset.
	CodeFailedToTransactAsset
	// CodeNotWithdrawable signals an asset that cannot be withdrawn from
	// its owner.
	CodeNotWithdrawable
	// CodeLocationCannotHold signals a beneficiary that cannot receive the
	// deposited asset.
	CodeLocationCannotHold
	// CodeTransport signals a routing-layer failure while sending an
	// onward message.
	CodeTransport
	// CodeUnroutable signals a destination no configured route can reach.
	CodeUnroutable
	// CodeUnknownClaim signals a claim ticket that matches no trapped
	// assets.
	CodeUnknownClaim
	// CodeFailedToDecode signals an embedded call that could not be
	// decoded.
	CodeFailedToDecode
	// CodeMaxWeightInvalid signals a Transact whose declared weight bound
	// is below the call's actual requirement.
	CodeMaxWeightInvalid
	// CodeNotHoldingFees signals a fee payment the holding register cannot
	// cover.
	CodeNotHoldingFees
	// CodeTooExpensive signals weight purchase the supplied payment cannot
	// cover.
	CodeTooExpensive
	// CodeTrap signals a deliberate abort via the Trap instruction.
	CodeTrap
	// CodeExpectationFalse signals a failed Expect* assertion.
	CodeExpectationFalse
	// CodePalletNotFound signals a module query for an index that is not
	// registered.
	CodePalletNotFound
	// CodeNameMismatch signals a module whose metadata does not match the
	// asserted name.
	CodeNameMismatch
	// CodeVersionIncompatible signals module version metadata outside the
	// asserted range.
	CodeVersionIncompatible
	// CodeHoldingWouldOverflow signals an operation that would push the
	// holding register past its entry bound.
	CodeHoldingWouldOverflow
	// CodeNoDeal signals an asset exchange the exchanger declined.
	CodeNoDeal
	// CodeFeesNotMet signals delivery fees that could not be paid.
	CodeFeesNotMet
	// CodeLockError signals a lock, unlock or note operation the locker
	// rejected.
	CodeLockError
	// CodeNoPermission signals an operation the origin is not entitled to
	// perform.
	CodeNoPermission
	// CodeUnanchored signals an asset that could not be reanchored to the
	// destination's context.
	CodeUnanchored
	// CodeReanchorFailed signals a location that could not be reanchored.
	CodeReanchorFailed
	// CodeWeightLimitReached signals execution that ran out of purchased
	// weight.
	CodeWeightLimitReached
	// CodeBarrier signals a message refused by the admission barrier.
	CodeBarrier
	// CodeWeightNotComputable signals a message whose weight could not be
	// determined up front.
	CodeWeightNotComputable
	// CodeExceedsStackLimit signals nested execution beyond the maximum
	// recursion depth.
	CodeExceedsStackLimit
)

var errorCodeNames = map[ErrorCode]string{
	CodeOverflow:                  "overflow",
	CodeUnimplemented:             "unimplemented",
	CodeUntrustedReserveLocation:  "untrusted reserve location",
	CodeUntrustedTeleportLocation: "untrusted teleport location",
	CodeLocationFull:              "location full",
	CodeLocationNotInvertible:     "location not invertible",
	CodeBadOrigin:                 "bad origin",
	CodeInvalidLocation:           "invalid location",
	CodeAssetNotFound:             "asset not found",
	CodeFailedToTransactAsset:     "failed to transact asset",
	CodeNotWithdrawable:           "not withdrawable",
	CodeLocationCannotHold:        "location cannot hold",
	CodeTransport:                 "transport error",
	CodeUnroutable:                "unroutable",
	CodeUnknownClaim:              "unknown claim",
	CodeFailedToDecode:            "failed to decode call",
	CodeMaxWeightInvalid:          "max weight invalid",
	CodeNotHoldingFees:            "not holding fees",
	CodeTooExpensive:              "too expensive",
	CodeTrap:                      "trap",
	CodeExpectationFalse:          "expectation false",
	CodePalletNotFound:            "pallet not found",
	CodeNameMismatch:              "name mismatch",
	CodeVersionIncompatible:       "version incompatible",
	CodeHoldingWouldOverflow:      "holding would overflow",
	CodeNoDeal:                    "no deal",
	CodeFeesNotMet:                "fees not met",
	CodeLockError:                 "lock error",
	CodeNoPermission:              "no permission",
	CodeUnanchored:                "unanchored",
	CodeReanchorFailed:            "reanchor failed",
	CodeWeightLimitReached:        "weight limit reached",
	CodeBarrier:                   "barrier",
	CodeWeightNotComputable:       "weight not computable",
	CodeExceedsStackLimit:         "exceeds stack limit",
}

// String returns the human-readable name of the code.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown error code %d", c)
}

// Error is the value carried by every execution failure. It is a comparable
// value type so instructions such as ExpectError can assert exact equality,
// and it satisfies the standard error interface so collaborators can return
// it directly.
type Error struct {
	// Code classifies the failure.
	Code ErrorCode

	// TrapCode is the payload of a Trap failure; zero otherwise.
	TrapCode uint64
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Code == CodeTrap {
		return fmt.Sprintf("trap: %d", e.TrapCode)
	}
	return e.Code.String()
}

// Sentinel values for the error taxonomy. Compare with errors.Is or plain
// equality; both work since Error is comparable.
var (
	ErrOverflow                  = Error{Code: CodeOverflow}
	ErrUnimplemented             = Error{Code: CodeUnimplemented}
	ErrUntrustedReserveLocation  = Error{Code: CodeUntrustedReserveLocation}
	ErrUntrustedTeleportLocation = Error{Code: CodeUntrustedTeleportLocation}
	ErrLocationFull              = Error{Code: CodeLocationFull}
	ErrLocationNotInvertible     = Error{Code: CodeLocationNotInvertible}
	ErrBadOrigin                 = Error{Code: CodeBadOrigin}
	ErrInvalidLocation           = Error{Code: CodeInvalidLocation}
	ErrAssetNotFound             = Error{Code: CodeAssetNotFound}
	ErrFailedToTransactAsset     = Error{Code: CodeFailedToTransactAsset}
	ErrNotWithdrawable           = Error{Code: CodeNotWithdrawable}
	ErrLocationCannotHold        = Error{Code: CodeLocationCannotHold}
	ErrTransport                 = Error{Code: CodeTransport}
	ErrUnroutable                = Error{Code: CodeUnroutable}
	ErrUnknownClaim              = Error{Code: CodeUnknownClaim}
	ErrFailedToDecode            = Error{Code: CodeFailedToDecode}
	ErrMaxWeightInvalid          = Error{Code: CodeMaxWeightInvalid}
	ErrNotHoldingFees            = Error{Code: CodeNotHoldingFees}
	ErrTooExpensive              = Error{Code: CodeTooExpensive}
	ErrExpectationFalse          = Error{Code: CodeExpectationFalse}
	ErrPalletNotFound            = Error{Code: CodePalletNotFound}
	ErrNameMismatch              = Error{Code: CodeNameMismatch}
	ErrVersionIncompatible       = Error{Code: CodeVersionIncompatible}
	ErrHoldingWouldOverflow      = Error{Code: CodeHoldingWouldOverflow}
	ErrNoDeal                    = Error{Code: CodeNoDeal}
	ErrFeesNotMet                = Error{Code: CodeFeesNotMet}
	ErrLockError                 = Error{Code: CodeLockError}
	ErrNoPermission              = Error{Code: CodeNoPermission}
	ErrUnanchored                = Error{Code: CodeUnanchored}
	ErrReanchorFailed            = Error{Code: CodeReanchorFailed}
	ErrWeightLimitReached        = Error{Code: CodeWeightLimitReached}
	ErrBarrier                   = Error{Code: CodeBarrier}
	ErrWeightNotComputable       = Error{Code: CodeWeightNotComputable}
	ErrExceedsStackLimit         = Error{Code: CodeExceedsStackLimit}
)

// TrapError returns the error produced by Trap with the given code.
func TrapError(code uint64) Error {
	return Error{Code: CodeTrap, TrapCode: code}
}

// AsError normalises an arbitrary error from a collaborator into an Error.
// Values that already are an Error pass through; anything else is classified
// under fallback.
func AsError(err error, fallback ErrorCode) Error {
	if e, ok := err.(Error); ok {
		return e
	}
	return Error{Code: fallback}
}
