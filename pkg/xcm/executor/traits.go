// Package executor implements the deterministic cross-consensus message
// interpreter. A message is a program of instructions operating over a
// holding register of assets and a small set of state registers; the
// interpreter is single-threaded and metered by weight. All interaction
// with the outside world goes through the collaborator interfaces in this
// file, injected via Config.
package executor

import (
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

// TransactAsset moves assets between locations and the holding register.
// Implementations are expected to be synchronous and deterministic.
type TransactAsset interface {
	// CanCheckIn returns nil if the given asset, teleported from origin,
	// could be checked in without violating accounting.
	CanCheckIn(origin xcm.Location, what xcm.Asset) error

	// CheckIn records the arrival of a teleported asset from origin. It
	// must succeed if CanCheckIn returned nil and nothing changed since.
	CheckIn(origin xcm.Location, what xcm.Asset)

	// CanCheckOut returns nil if the given asset could be checked out for
	// teleport to dest.
	CanCheckOut(dest xcm.Location, what xcm.Asset) error

	// CheckOut records the departure of a teleported asset to dest.
	CheckOut(dest xcm.Location, what xcm.Asset)

	// Deposit credits an asset to the account of who.
	Deposit(what xcm.Asset, who xcm.Location) error

	// Withdraw debits an asset from the account of who.
	Withdraw(what xcm.Asset, who xcm.Location) error

	// Transfer moves an asset between two accounts without passing
	// through the holding register.
	Transfer(what xcm.Asset, from, to xcm.Location) error
}

// Properties carries mutable state the barrier may consult and update.
type Properties struct {
	// WeightCredit is unpurchased weight the message may consume without
	// paying; barriers such as TakeWeightCredit draw it down.
	WeightCredit xcm.Weight

	// MessageID is the identity of the message, if known.
	MessageID *[32]byte
}

// Barrier decides whether a message may begin execution at all. A non-nil
// error refuses the message before any instruction runs.
type Barrier interface {
	ShouldExecute(origin xcm.Location, msg xcm.Message, maxWeight xcm.Weight, props *Properties) error
}

// WeightBounds determines the worst-case weight of programs and single
// instructions before execution.
type WeightBounds interface {
	// Weight returns the worst-case weight of the whole program,
	// including nested programs.
	Weight(msg xcm.Message) (xcm.Weight, error)

	// InstrWeight returns the worst-case weight of one instruction.
	InstrWeight(instr xcm.Instruction) (xcm.Weight, error)
}

// WeightTrader converts assets into execution weight and back. A trader is
// instantiated per message execution and accumulates state across multiple
// BuyWeight calls within it.
type WeightTrader interface {
	// BuyWeight purchases weight with up to payment, returning the
	// unspent remainder. An error leaves the payment untouched.
	BuyWeight(weight xcm.Weight, payment xcm.Assets) (xcm.Assets, error)

	// RefundWeight gives back some previously purchased weight, returning
	// the refunded asset if the trader supports refunds.
	RefundWeight(weight xcm.Weight) (xcm.Asset, bool)
}

// AssetExchange swaps one set of assets for another.
type AssetExchange interface {
	// Exchange trades give for at least want. Maximal asks for the best
	// obtainable amount rather than the minimum. On success the received
	// assets are returned; on error the give assets remain with the
	// caller.
	Exchange(origin *xcm.Location, give xcm.Assets, want xcm.Assets, maximal bool) (xcm.Assets, error)
}

// AssetTrap takes custody of assets abandoned in the holding register at
// the end of execution.
type AssetTrap interface {
	// DropAssets stores the assets under the given origin and returns the
	// weight consumed doing so.
	DropAssets(origin xcm.Location, assets xcm.Assets) xcm.Weight
}

// AssetClaims pays out previously trapped assets.
type AssetClaims interface {
	// ClaimAssets returns true if origin may claim the given assets with
	// the given ticket, removing them from custody.
	ClaimAssets(origin xcm.Location, ticket xcm.Location, what xcm.Assets) bool
}

// LockTicket is a prepared lock operation; Enact applies it.
type LockTicket interface {
	Enact() error
}

// AssetLocker manages asset locks on behalf of remote systems.
type AssetLocker interface {
	// PrepareLock checks that asset owned by owner can be locked with
	// unlocker as the party entitled to undo it, returning a ticket that
	// enacts the lock.
	PrepareLock(unlocker xcm.Location, asset xcm.Asset, owner xcm.Location) (LockTicket, error)

	// PrepareUnlock checks that a lock previously placed by locker on
	// owner's asset can be removed, returning a ticket that enacts the
	// unlock.
	PrepareUnlock(locker xcm.Location, asset xcm.Asset, owner xcm.Location) (LockTicket, error)

	// NoteUnlockable records that owner may later request unlock of an
	// asset held locked here on their behalf by locker.
	NoteUnlockable(locker xcm.Location, asset xcm.Asset, owner xcm.Location) error

	// PrepareReduceUnlockable checks that a previously noted unlockable
	// balance of owner can be reduced, returning a ticket that enacts the
	// reduction.
	PrepareReduceUnlockable(locker xcm.Location, asset xcm.Asset, owner xcm.Location) (LockTicket, error)
}

// DeliveryTicket is a validated outbound message; Deliver hands it to the
// transport and returns the message identity.
type DeliveryTicket interface {
	Deliver() ([32]byte, error)
}

// MessageSender routes messages to other consensus systems.
type MessageSender interface {
	// Validate checks that dest is reachable and msg deliverable,
	// returning a ticket and the delivery price. No state changes until
	// the ticket is delivered.
	Validate(dest xcm.Location, msg xcm.Message) (DeliveryTicket, xcm.Assets, error)
}

// MessageExporter delivers messages to destinations under other global
// consensus systems.
type MessageExporter interface {
	// ValidateExport checks that the message can be exported to dest
	// under network, returning a ticket and the export price. Channel
	// disambiguates independent lanes between the same pair of systems.
	ValidateExport(network xcm.NetworkID, channel uint32, universalSource xcm.InteriorLocation, dest xcm.InteriorLocation, msg xcm.Message) (DeliveryTicket, xcm.Assets, error)
}

// FeeReason says what a fee payment was for, so the fee manager can apply
// differentiated policy.
type FeeReason uint8

const (
	// FeeReasonChargeFees is an explicit fee charge.
	FeeReasonChargeFees FeeReason = iota
	// FeeReasonTransferReserveAsset pays for the notification sent by
	// TransferReserveAsset.
	FeeReasonTransferReserveAsset
	// FeeReasonDepositReserveAsset pays for the notification sent by
	// DepositReserveAsset.
	FeeReasonDepositReserveAsset
	// FeeReasonInitiateReserveWithdraw pays for the withdrawal order.
	FeeReasonInitiateReserveWithdraw
	// FeeReasonInitiateTeleport pays for the teleport notification.
	FeeReasonInitiateTeleport
	// FeeReasonQueryPallet pays for a module metadata response.
	FeeReasonQueryPallet
	// FeeReasonReport pays for an error, holding or status report.
	FeeReasonReport
	// FeeReasonExport pays for bridging a message to another consensus
	// system.
	FeeReasonExport
	// FeeReasonLockAsset pays for the lock notification.
	FeeReasonLockAsset
	// FeeReasonRequestUnlock pays for the unlock request.
	FeeReasonRequestUnlock
)

// FeeManager decides whether fees are owed and disposes of paid fees.
type FeeManager interface {
	// IsWaived returns true if the given origin owes no fee for the given
	// reason.
	IsWaived(origin *xcm.Location, reason FeeReason) bool

	// HandleFee disposes of fees that have already been collected.
	HandleFee(fees xcm.Assets, reason FeeReason)
}

// CallDispatcher decodes and executes embedded calls for Transact.
type CallDispatcher interface {
	// WeighCall returns the declared weight of the encoded call, or an
	// error if it cannot be decoded.
	WeighCall(call []byte) (xcm.Weight, error)

	// IsCallAllowed returns true if the origin may dispatch the call
	// under the given origin kind.
	IsCallAllowed(origin xcm.Location, kind xcm.OriginKind, call []byte) bool

	// Dispatch executes the call. It returns the weight actually used
	// and, if the call itself failed, its encoded error. A failed call is
	// not an execution error; the failure is recorded in the transact
	// status register.
	Dispatch(origin xcm.Location, kind xcm.OriginKind, call []byte, maxWeight xcm.Weight) (xcm.Weight, []byte)
}

// ReservePolicy says which origins are trusted reserves for which assets.
type ReservePolicy interface {
	IsReserve(asset xcm.Asset, origin xcm.Location) bool
}

// TeleportPolicy says which origins are trusted to teleport which assets.
type TeleportPolicy interface {
	IsTeleporter(asset xcm.Asset, origin xcm.Location) bool
}

// AliasPolicy says which origins may rewrite themselves to which targets.
type AliasPolicy interface {
	IsAuthorizedAlias(origin, target xcm.Location) bool
}

// UniversalAliasPolicy says which origins stand for which global consensus
// junctions.
type UniversalAliasPolicy interface {
	Contains(origin xcm.Location, junction xcm.Junction) bool
}

// ResponseHandler consumes QueryResponse instructions.
type ResponseHandler interface {
	// OnResponse handles a response to an earlier query, returning the
	// weight used.
	OnResponse(origin xcm.Location, queryID uint64, querier *xcm.Location, response xcm.Response, maxWeight xcm.Weight) xcm.Weight
}

// SubscriptionService manages format version change subscriptions.
type SubscriptionService interface {
	Start(origin xcm.Location, queryID uint64, maxResponseWeight xcm.Weight) error
	Stop(origin xcm.Location) error
}

// PalletsInfoAccess exposes the metadata of the runtime modules installed
// locally.
type PalletsInfoAccess interface {
	Pallets() []xcm.PalletInfo
}

// TransactionalProcessor wraps state-changing instruction bodies so that
// collaborator side effects roll back when the body fails. The holding
// register is snapshotted separately by the interpreter.
type TransactionalProcessor interface {
	Process(f func() error) error
}

// NonTransactional runs bodies directly with no rollback of collaborator
// state.
type NonTransactional struct{}

// Process implements TransactionalProcessor.
func (NonTransactional) Process(f func() error) error {
	return f()
}
