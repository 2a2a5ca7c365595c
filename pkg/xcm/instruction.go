package xcm

import "bytes"

// OriginKind tells the call dispatcher how to interpret the message origin
// when executing a Transact.
type OriginKind uint8

const (
	// OriginKindNative dispatches with a native origin derived from the
	// location.
	OriginKindNative OriginKind = iota
	// OriginKindSovereignAccount dispatches as the location's sovereign
	// account.
	OriginKindSovereignAccount
	// OriginKindSuperuser dispatches with root privileges; reserved for
	// highly trusted origins.
	OriginKindSuperuser
	// OriginKindXcm dispatches with a dedicated cross-consensus origin.
	OriginKindXcm
)

// Message is an ordered program of instructions.
type Message []Instruction

// Clone returns a shallow copy of the instruction list.
func (m Message) Clone() Message {
	if m == nil {
		return nil
	}
	out := make(Message, len(m))
	copy(out, m)
	return out
}

// Instruction is one step of a message program. It is a sealed interface;
// the variants below are the complete set.
type Instruction interface {
	instruction()
}

// IndexedError pairs an instruction index with the error it produced.
type IndexedError struct {
	Index uint32
	Error Error
}

// TransactStatusKind tags the variant held by a TransactStatus.
type TransactStatusKind uint8

const (
	// TransactStatusNotSet means no Transact has completed since the
	// register was last cleared.
	TransactStatusNotSet TransactStatusKind = iota
	// TransactStatusSuccess means the last dispatch succeeded.
	TransactStatusSuccess
	// TransactStatusError means the last dispatch failed; the encoded
	// error is carried as payload.
	TransactStatusError
)

// TransactStatus records the outcome of the most recent Transact dispatch.
type TransactStatus struct {
	Kind  TransactStatusKind
	Error []byte // encoded dispatch error for TransactStatusError
}

// TransactSuccess returns the success status.
func TransactSuccess() TransactStatus {
	return TransactStatus{Kind: TransactStatusSuccess}
}

// TransactFailure returns an error status carrying the encoded dispatch
// error.
func TransactFailure(encoded []byte) TransactStatus {
	return TransactStatus{Kind: TransactStatusError, Error: encoded}
}

// Equal reports whether two statuses are identical.
func (ts TransactStatus) Equal(other TransactStatus) bool {
	return ts.Kind == other.Kind && bytes.Equal(ts.Error, other.Error)
}

// ResponseKind tags the variant held by a Response.
type ResponseKind uint8

const (
	// ResponseNull carries no information.
	ResponseNull ResponseKind = iota
	// ResponseAssets reports the contents of the holding register.
	ResponseAssets
	// ResponseExecutionResult reports the first error of an execution, if
	// any.
	ResponseExecutionResult
	// ResponseVersion reports a supported message format version.
	ResponseVersion
	// ResponsePalletsInfo reports module metadata.
	ResponsePalletsInfo
	// ResponseDispatchResult reports the status of a dispatched call.
	ResponseDispatchResult
)

// PalletInfo describes one runtime module for QueryPallet responses.
type PalletInfo struct {
	Index      uint32
	Name       string
	ModuleName string
	Major      uint32
	Minor      uint32
	Patch      uint32
}

// Response is the payload of a QueryResponse instruction.
type Response struct {
	Kind ResponseKind

	// Assets is set for ResponseAssets.
	Assets Assets

	// ExecutionResult is set for ResponseExecutionResult; nil means the
	// execution completed without error.
	ExecutionResult *IndexedError

	// Version is set for ResponseVersion.
	Version uint32

	// Pallets is set for ResponsePalletsInfo.
	Pallets []PalletInfo

	// DispatchResult is set for ResponseDispatchResult.
	DispatchResult TransactStatus
}

// NullResponse returns the empty response.
func NullResponse() Response {
	return Response{Kind: ResponseNull}
}

// AssetsResponse returns a response reporting assets.
func AssetsResponse(assets Assets) Response {
	return Response{Kind: ResponseAssets, Assets: assets}
}

// ExecutionResultResponse returns a response reporting an execution
// outcome.
func ExecutionResultResponse(result *IndexedError) Response {
	return Response{Kind: ResponseExecutionResult, ExecutionResult: result}
}

// QueryResponseInfo tells a reporting instruction where to send its
// response.
type QueryResponseInfo struct {
	// Destination is the location to send the QueryResponse to.
	Destination Location

	// QueryID correlates the response with the query on the destination.
	QueryID uint64

	// MaxWeight is the maximum weight the response handler may use.
	MaxWeight Weight
}

// WithdrawAsset moves assets from the origin's account into the holding
// register.
type WithdrawAsset struct {
	Assets Assets
}

// ReserveAssetDeposited notes assets placed into the local sovereign
// account of the origin, which must be a trusted reserve for them, and
// mints their derivatives into holding.
type ReserveAssetDeposited struct {
	Assets Assets
}

// ReceiveTeleportedAsset notes assets removed from circulation on the
// origin, which must be trusted as a teleporter for them, and mints them
// into holding.
type ReceiveTeleportedAsset struct {
	Assets Assets
}

// TransferAsset moves assets directly from the origin's account to a
// beneficiary, bypassing holding.
type TransferAsset struct {
	Assets      Assets
	Beneficiary Location
}

// TransferReserveAsset moves assets from the origin's account into the
// sovereign account of dest, then notifies dest with a
// ReserveAssetDeposited message followed by the given program.
type TransferReserveAsset struct {
	Assets Assets
	Dest   Location
	XCM    Message
}

// Transact dispatches an encoded call on the local system.
type Transact struct {
	OriginKind         OriginKind
	RequireWeightAtMost Weight
	Call               []byte
}

// QueryResponse delivers the answer to an earlier query.
type QueryResponse struct {
	QueryID   uint64
	Response  Response
	MaxWeight Weight

	// Querier is the responder's view of the original asker; nil means
	// the responder cannot state one.
	Querier *Location
}

// DescendOrigin mutates the origin by descending into the given interior
// path.
type DescendOrigin struct {
	Path InteriorLocation
}

// ClearOrigin discards the origin register.
type ClearOrigin struct{}

// ReportError reports the current error register to a destination.
type ReportError struct {
	Info QueryResponseInfo
}

// DepositAsset removes matching assets from holding and credits them to a
// beneficiary.
type DepositAsset struct {
	Assets      AssetFilter
	Beneficiary Location
}

// DepositReserveAsset removes matching assets from holding, credits them to
// the sovereign account of dest, and notifies dest with a
// ReserveAssetDeposited message followed by the given program.
type DepositReserveAsset struct {
	Assets AssetFilter
	Dest   Location
	XCM    Message
}

// ExchangeAsset swaps matching assets in holding for the wanted set using
// the configured exchanger.
type ExchangeAsset struct {
	Give    AssetFilter
	Want    Assets
	Maximal bool
}

// InitiateReserveWithdraw removes matching assets from holding and asks
// their reserve to withdraw the real assets and run the given program.
type InitiateReserveWithdraw struct {
	Assets  AssetFilter
	Reserve Location
	XCM     Message
}

// InitiateTeleport burns matching assets from holding and asks dest to mint
// them and run the given program. Dest must trust the local system as a
// teleporter.
type InitiateTeleport struct {
	Assets AssetFilter
	Dest   Location
	XCM    Message
}

// ReportHolding reports the portion of holding matching the filter to a
// destination.
type ReportHolding struct {
	Info   QueryResponseInfo
	Assets AssetFilter
}

// BuyExecution pays for execution weight out of holding using the
// configured trader.
type BuyExecution struct {
	Fees        Asset
	WeightLimit WeightLimit
}

// RefundSurplus repurchases unspent surplus weight from the trader back
// into holding.
type RefundSurplus struct{}

// SetErrorHandler installs a program to run if a later instruction fails.
type SetErrorHandler struct {
	Handler Message
}

// SetAppendix installs a program to run when the current program finishes,
// regardless of outcome.
type SetAppendix struct {
	Appendix Message
}

// ClearError clears the error register.
type ClearError struct{}

// ClaimAsset claims previously trapped assets into holding.
type ClaimAsset struct {
	Assets Assets
	Ticket Location
}

// Trap aborts with the given code.
type Trap struct {
	Code uint64
}

// SubscribeVersion asks the local system to notify the origin about format
// version changes.
type SubscribeVersion struct {
	QueryID           uint64
	MaxResponseWeight Weight
}

// UnsubscribeVersion cancels a version subscription held by the origin.
type UnsubscribeVersion struct{}

// BurnAsset destroys up to the given assets from holding, without error if
// holding contains less.
type BurnAsset struct {
	Assets Assets
}

// ExpectAsset fails with ExpectationFalse unless holding contains at least
// the given assets.
type ExpectAsset struct {
	Assets Assets
}

// ExpectOrigin fails with ExpectationFalse unless the origin register
// equals the given value (nil expects a cleared origin).
type ExpectOrigin struct {
	Origin *Location
}

// ExpectError fails with ExpectationFalse unless the error register equals
// the given value (nil expects no recorded error).
type ExpectError struct {
	Error *IndexedError
}

// ExpectTransactStatus fails with ExpectationFalse unless the transact
// status register equals the given value.
type ExpectTransactStatus struct {
	Status TransactStatus
}

// QueryPallet reports metadata of modules matching the given name to a
// destination.
type QueryPallet struct {
	ModuleName []byte
	Info       QueryResponseInfo
}

// ExpectPallet fails unless the module at the given index matches the
// asserted name, module name and version range.
type ExpectPallet struct {
	Index      uint32
	Name       []byte
	ModuleName []byte
	CrateMajor uint32
	MinCrateMinor uint32
}

// ReportTransactStatus reports the transact status register to a
// destination.
type ReportTransactStatus struct {
	Info QueryResponseInfo
}

// ClearTransactStatus resets the transact status register.
type ClearTransactStatus struct{}

// UniversalOrigin rewrites the origin as a child of the universal location
// under the given consensus junction. The origin must be authorised as an
// alias for that consensus system.
type UniversalOrigin struct {
	Junction Junction
}

// ExportMessage delivers a program to a destination under another global
// consensus system via the configured exporter.
type ExportMessage struct {
	Network     NetworkID
	Destination InteriorLocation
	XCM         Message
}

// LockAsset locks an asset in place and notifies the unlocker.
type LockAsset struct {
	Asset    Asset
	Unlocker Location
}

// UnlockAsset removes a lock previously placed on behalf of the origin.
type UnlockAsset struct {
	Asset  Asset
	Target Location
}

// NoteUnlockable records that the origin may later request unlock of an
// asset the local system holds locked on its behalf.
type NoteUnlockable struct {
	Asset Asset
	Owner Location
}

// RequestUnlock asks a locker to unlock an asset previously noted as
// unlockable by the origin.
type RequestUnlock struct {
	Asset  Asset
	Locker Location
}

// SetFeesMode chooses how fees are paid for the remainder of the program.
type SetFeesMode struct {
	// JITWithdraw pays fees by withdrawing from the origin's account at
	// the moment they are due, instead of from holding.
	JITWithdraw bool
}

// SetTopic sets the topic register used to correlate log and event trails.
type SetTopic struct {
	Topic [32]byte
}

// ClearTopic clears the topic register.
type ClearTopic struct{}

// AliasOrigin rewrites the origin register to another location the origin
// is authorised to alias.
type AliasOrigin struct {
	Location Location
}

// UnpaidExecution asserts that the origin is entitled to free execution.
type UnpaidExecution struct {
	WeightLimit WeightLimit
	CheckOrigin *Location
}

// HrmpNewChannelOpenRequest notifies of a channel open request between two
// sibling chains.
type HrmpNewChannelOpenRequest struct {
	Sender         uint32
	MaxMessageSize uint32
	MaxCapacity    uint32
}

// HrmpChannelAccepted notifies that a channel open request was accepted.
type HrmpChannelAccepted struct {
	Recipient uint32
}

// HrmpChannelClosing notifies that a channel is being closed.
type HrmpChannelClosing struct {
	Initiator uint32
	Sender    uint32
	Recipient uint32
}

func (WithdrawAsset) instruction()             {}
func (ReserveAssetDeposited) instruction()     {}
func (ReceiveTeleportedAsset) instruction()    {}
func (TransferAsset) instruction()             {}
func (TransferReserveAsset) instruction()      {}
func (Transact) instruction()                  {}
func (QueryResponse) instruction()             {}
func (DescendOrigin) instruction()             {}
func (ClearOrigin) instruction()               {}
func (ReportError) instruction()               {}
func (DepositAsset) instruction()              {}
func (DepositReserveAsset) instruction()       {}
func (ExchangeAsset) instruction()             {}
func (InitiateReserveWithdraw) instruction()   {}
func (InitiateTeleport) instruction()          {}
func (ReportHolding) instruction()             {}
func (BuyExecution) instruction()              {}
func (RefundSurplus) instruction()             {}
func (SetErrorHandler) instruction()           {}
func (SetAppendix) instruction()               {}
func (ClearError) instruction()                {}
func (ClaimAsset) instruction()                {}
func (Trap) instruction()                      {}
func (SubscribeVersion) instruction()          {}
func (UnsubscribeVersion) instruction()        {}
func (BurnAsset) instruction()                 {}
func (ExpectAsset) instruction()               {}
func (ExpectOrigin) instruction()              {}
func (ExpectError) instruction()               {}
func (ExpectTransactStatus) instruction()      {}
func (QueryPallet) instruction()               {}
func (ExpectPallet) instruction()              {}
func (ReportTransactStatus) instruction()      {}
func (ClearTransactStatus) instruction()       {}
func (UniversalOrigin) instruction()           {}
func (ExportMessage) instruction()             {}
func (LockAsset) instruction()                 {}
func (UnlockAsset) instruction()               {}
func (NoteUnlockable) instruction()            {}
func (RequestUnlock) instruction()             {}
func (SetFeesMode) instruction()               {}
func (SetTopic) instruction()                  {}
func (ClearTopic) instruction()                {}
func (AliasOrigin) instruction()               {}
func (UnpaidExecution) instruction()           {}
func (HrmpNewChannelOpenRequest) instruction() {}
func (HrmpChannelAccepted) instruction()       {}
func (HrmpChannelClosing) instruction()        {}
