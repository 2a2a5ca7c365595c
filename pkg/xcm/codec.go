package xcm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FormatVersion is the wire format version of encoded messages.
const FormatVersion = 5

// MaxDecodedInstructions bounds the instruction count accepted by the
// decoder, including nested programs.
const MaxDecodedInstructions = 1024

var (
	// ErrTruncated means the input ended before the value was complete.
	ErrTruncated = errors.New("xcm: truncated input")

	// ErrBadFormat means the input is structurally invalid.
	ErrBadFormat = errors.New("xcm: malformed input")

	// ErrUnsupportedVersion means the input declares a format version this
	// implementation does not speak.
	ErrUnsupportedVersion = errors.New("xcm: unsupported format version")
)

// Instruction opcodes as they appear on the wire.
const (
	opWithdrawAsset uint8 = iota
	opReserveAssetDeposited
	opReceiveTeleportedAsset
	opQueryResponse
	opTransferAsset
	opTransferReserveAsset
	opTransact
	opHrmpNewChannelOpenRequest
	opHrmpChannelAccepted
	opHrmpChannelClosing
	opClearOrigin
	opDescendOrigin
	opReportError
	opDepositAsset
	opDepositReserveAsset
	opExchangeAsset
	opInitiateReserveWithdraw
	opInitiateTeleport
	opReportHolding
	opBuyExecution
	opRefundSurplus
	opSetErrorHandler
	opSetAppendix
	opClearError
	opClaimAsset
	opTrap
	opSubscribeVersion
	opUnsubscribeVersion
	opBurnAsset
	opExpectAsset
	opExpectOrigin
	opExpectError
	opExpectTransactStatus
	opQueryPallet
	opExpectPallet
	opReportTransactStatus
	opClearTransactStatus
	opUniversalOrigin
	opExportMessage
	opLockAsset
	opUnlockAsset
	opNoteUnlockable
	opRequestUnlock
	opSetFeesMode
	opSetTopic
	opClearTopic
	opAliasOrigin
	opUnpaidExecution
)

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *encoder) bool(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) uvarint(v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	e.buf.Write(b[:n])
}

func (e *encoder) bytes(v []byte) {
	e.uvarint(uint64(len(v)))
	e.buf.Write(v)
}

type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) u8() uint8 {
	if d.err != nil {
		return 0
	}
	b, err := d.r.ReadByte()
	if err != nil {
		d.fail(ErrTruncated)
		return 0
	}
	return b
}

func (d *decoder) bool() bool {
	switch d.u8() {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail(ErrBadFormat)
		return false
	}
}

func (d *decoder) u32() uint32 {
	var b [4]byte
	if d.err != nil {
		return 0
	}
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		d.fail(ErrTruncated)
		return 0
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (d *decoder) u64() uint64 {
	var b [8]byte
	if d.err != nil {
		return 0
	}
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		d.fail(ErrTruncated)
		return 0
	}
	return binary.LittleEndian.Uint64(b[:])
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(d.r)
	if err != nil {
		d.fail(ErrTruncated)
		return 0
	}
	return v
}

func (d *decoder) bytes() []byte {
	n := d.uvarint()
	if d.err != nil {
		return nil
	}
	if n > uint64(d.r.Len()) {
		d.fail(ErrTruncated)
		return nil
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(d.r, out); err != nil {
		d.fail(ErrTruncated)
		return nil
	}
	return out
}

func (e *encoder) network(n NetworkID) {
	e.u8(uint8(n.Kind))
	switch n.Kind {
	case NetworkByGenesis:
		e.buf.Write(n.Genesis[:])
	case NetworkEthereum:
		e.u64(n.ChainID)
	}
}

func (d *decoder) network() NetworkID {
	var n NetworkID
	n.Kind = NetworkKind(d.u8())
	switch n.Kind {
	case NetworkUnset, NetworkX1:
	case NetworkByGenesis:
		if d.err == nil {
			if _, err := io.ReadFull(d.r, n.Genesis[:]); err != nil {
				d.fail(ErrTruncated)
			}
		}
	case NetworkEthereum:
		n.ChainID = d.u64()
	default:
		d.fail(ErrBadFormat)
	}
	return n
}

func (e *encoder) junction(j Junction) {
	e.u8(uint8(j.Kind))
	switch j.Kind {
	case JunctionParachain, JunctionPalletInstance, JunctionGeneralIndex:
		e.u64(j.Index)
	case JunctionAccountID32:
		e.network(j.Network)
		e.buf.Write(j.ID[:])
	case JunctionAccountKey20:
		e.network(j.Network)
		e.buf.Write(j.Key[:])
	case JunctionGeneralKey:
		e.bytes(j.Data[:j.DataLen])
	case JunctionOnlyChild:
	case JunctionGlobalConsensus:
		e.network(j.Network)
	}
}

func (d *decoder) junction() Junction {
	var j Junction
	j.Kind = JunctionKind(d.u8())
	switch j.Kind {
	case JunctionParachain, JunctionPalletInstance, JunctionGeneralIndex:
		j.Index = d.u64()
	case JunctionAccountID32:
		j.Network = d.network()
		if d.err == nil {
			if _, err := io.ReadFull(d.r, j.ID[:]); err != nil {
				d.fail(ErrTruncated)
			}
		}
	case JunctionAccountKey20:
		j.Network = d.network()
		if d.err == nil {
			if _, err := io.ReadFull(d.r, j.Key[:]); err != nil {
				d.fail(ErrTruncated)
			}
		}
	case JunctionGeneralKey:
		data := d.bytes()
		if len(data) > 32 {
			d.fail(ErrBadFormat)
			break
		}
		j.DataLen = uint8(copy(j.Data[:], data))
	case JunctionOnlyChild:
	case JunctionGlobalConsensus:
		j.Network = d.network()
	default:
		d.fail(ErrBadFormat)
	}
	return j
}

func (e *encoder) interior(il InteriorLocation) {
	e.u8(uint8(len(il)))
	for _, j := range il {
		e.junction(j)
	}
}

func (d *decoder) interior() InteriorLocation {
	n := d.u8()
	if n > MaxJunctions {
		d.fail(ErrBadFormat)
		return nil
	}
	if n == 0 {
		return nil
	}
	out := make(InteriorLocation, 0, n)
	for i := 0; i < int(n); i++ {
		out = append(out, d.junction())
	}
	return out
}

func (e *encoder) location(l Location) {
	e.u8(l.Parents)
	e.interior(l.Interior)
}

func (d *decoder) location() Location {
	var l Location
	l.Parents = d.u8()
	l.Interior = d.interior()
	return l
}

func (e *encoder) optLocation(l *Location) {
	if l == nil {
		e.bool(false)
		return
	}
	e.bool(true)
	e.location(*l)
}

func (d *decoder) optLocation() *Location {
	if !d.bool() {
		return nil
	}
	l := d.location()
	return &l
}

func (e *encoder) instance(ai AssetInstance) {
	e.u8(uint8(ai.Kind))
	switch ai.Kind {
	case InstanceIndex:
		e.u64(ai.Index)
	case InstanceRaw:
		e.bytes(ai.Raw[:ai.RawLen])
	}
}

func (d *decoder) instance() AssetInstance {
	var ai AssetInstance
	ai.Kind = InstanceKind(d.u8())
	switch ai.Kind {
	case InstanceNone, InstanceUndefined:
	case InstanceIndex:
		ai.Index = d.u64()
	case InstanceRaw:
		data := d.bytes()
		if len(data) > 32 {
			d.fail(ErrBadFormat)
			break
		}
		ai.RawLen = uint8(copy(ai.Raw[:], data))
	default:
		d.fail(ErrBadFormat)
	}
	return ai
}

func (e *encoder) asset(a Asset) {
	e.location(a.ID.Location)
	e.instance(a.Instance)
	if a.IsFungible() {
		e.u64(a.Amount)
	}
}

func (d *decoder) asset() Asset {
	var a Asset
	a.ID.Location = d.location()
	a.Instance = d.instance()
	if a.Instance.Kind == InstanceNone {
		a.Amount = d.u64()
	}
	return a
}

func (e *encoder) assets(as Assets) {
	e.uvarint(uint64(len(as)))
	for _, a := range as {
		e.asset(a)
	}
}

func (d *decoder) assets() Assets {
	n := d.uvarint()
	if d.err != nil {
		return nil
	}
	if n > uint64(d.r.Len()) {
		d.fail(ErrTruncated)
		return nil
	}
	raw := make([]Asset, 0, n)
	for i := uint64(0); i < n; i++ {
		raw = append(raw, d.asset())
	}
	if d.err != nil {
		return nil
	}
	out, err := NewAssets(raw...)
	if err != nil {
		d.fail(ErrBadFormat)
		return nil
	}
	return out
}

func (e *encoder) filter(f AssetFilter) {
	e.u8(uint8(f.Kind))
	switch f.Kind {
	case FilterDefinite:
		e.assets(f.Assets)
	case FilterAllOf:
		e.location(f.ID.Location)
	case FilterAllCounted:
		e.u32(f.Count)
	case FilterAllOfCounted:
		e.location(f.ID.Location)
		e.u32(f.Count)
	}
}

func (d *decoder) filter() AssetFilter {
	var f AssetFilter
	f.Kind = FilterKind(d.u8())
	switch f.Kind {
	case FilterDefinite:
		f.Assets = d.assets()
	case FilterAll:
	case FilterAllOf:
		f.ID.Location = d.location()
	case FilterAllCounted:
		f.Count = d.u32()
	case FilterAllOfCounted:
		f.ID.Location = d.location()
		f.Count = d.u32()
	default:
		d.fail(ErrBadFormat)
	}
	return f
}

func (e *encoder) weight(w Weight) {
	e.u64(w.RefTime)
	e.u64(w.ProofSize)
}

func (d *decoder) weight() Weight {
	return Weight{RefTime: d.u64(), ProofSize: d.u64()}
}

func (e *encoder) weightLimit(wl WeightLimit) {
	e.bool(wl.Limited)
	if wl.Limited {
		e.weight(wl.Weight)
	}
}

func (d *decoder) weightLimit() WeightLimit {
	var wl WeightLimit
	wl.Limited = d.bool()
	if wl.Limited {
		wl.Weight = d.weight()
	}
	return wl
}

func (e *encoder) responseInfo(info QueryResponseInfo) {
	e.location(info.Destination)
	e.u64(info.QueryID)
	e.weight(info.MaxWeight)
}

func (d *decoder) responseInfo() QueryResponseInfo {
	return QueryResponseInfo{
		Destination: d.location(),
		QueryID:     d.u64(),
		MaxWeight:   d.weight(),
	}
}

func (e *encoder) indexedError(ie *IndexedError) {
	if ie == nil {
		e.bool(false)
		return
	}
	e.bool(true)
	e.u32(ie.Index)
	e.u8(uint8(ie.Error.Code))
	e.u64(ie.Error.TrapCode)
}

func (d *decoder) indexedError() *IndexedError {
	if !d.bool() {
		return nil
	}
	return &IndexedError{
		Index: d.u32(),
		Error: Error{Code: ErrorCode(d.u8()), TrapCode: d.u64()},
	}
}

func (e *encoder) transactStatus(ts TransactStatus) {
	e.u8(uint8(ts.Kind))
	if ts.Kind == TransactStatusError {
		e.bytes(ts.Error)
	}
}

func (d *decoder) transactStatus() TransactStatus {
	var ts TransactStatus
	ts.Kind = TransactStatusKind(d.u8())
	switch ts.Kind {
	case TransactStatusNotSet, TransactStatusSuccess:
	case TransactStatusError:
		ts.Error = d.bytes()
	default:
		d.fail(ErrBadFormat)
	}
	return ts
}

func (e *encoder) response(r Response) {
	e.u8(uint8(r.Kind))
	switch r.Kind {
	case ResponseAssets:
		e.assets(r.Assets)
	case ResponseExecutionResult:
		e.indexedError(r.ExecutionResult)
	case ResponseVersion:
		e.u32(r.Version)
	case ResponsePalletsInfo:
		e.uvarint(uint64(len(r.Pallets)))
		for _, p := range r.Pallets {
			e.u32(p.Index)
			e.bytes([]byte(p.Name))
			e.bytes([]byte(p.ModuleName))
			e.u32(p.Major)
			e.u32(p.Minor)
			e.u32(p.Patch)
		}
	case ResponseDispatchResult:
		e.transactStatus(r.DispatchResult)
	}
}

func (d *decoder) response() Response {
	var r Response
	r.Kind = ResponseKind(d.u8())
	switch r.Kind {
	case ResponseNull:
	case ResponseAssets:
		r.Assets = d.assets()
	case ResponseExecutionResult:
		r.ExecutionResult = d.indexedError()
	case ResponseVersion:
		r.Version = d.u32()
	case ResponsePalletsInfo:
		n := d.uvarint()
		if d.err != nil {
			return r
		}
		if n > uint64(d.r.Len()) {
			d.fail(ErrTruncated)
			return r
		}
		r.Pallets = make([]PalletInfo, 0, n)
		for i := uint64(0); i < n; i++ {
			r.Pallets = append(r.Pallets, PalletInfo{
				Index:      d.u32(),
				Name:       string(d.bytes()),
				ModuleName: string(d.bytes()),
				Major:      d.u32(),
				Minor:      d.u32(),
				Patch:      d.u32(),
			})
		}
	case ResponseDispatchResult:
		r.DispatchResult = d.transactStatus()
	default:
		d.fail(ErrBadFormat)
	}
	return r
}

func (e *encoder) instruction(in Instruction) error {
	switch v := in.(type) {
	case WithdrawAsset:
		e.u8(opWithdrawAsset)
		e.assets(v.Assets)
	case ReserveAssetDeposited:
		e.u8(opReserveAssetDeposited)
		e.assets(v.Assets)
	case ReceiveTeleportedAsset:
		e.u8(opReceiveTeleportedAsset)
		e.assets(v.Assets)
	case QueryResponse:
		e.u8(opQueryResponse)
		e.u64(v.QueryID)
		e.response(v.Response)
		e.weight(v.MaxWeight)
		e.optLocation(v.Querier)
	case TransferAsset:
		e.u8(opTransferAsset)
		e.assets(v.Assets)
		e.location(v.Beneficiary)
	case TransferReserveAsset:
		e.u8(opTransferReserveAsset)
		e.assets(v.Assets)
		e.location(v.Dest)
		if err := e.message(v.XCM); err != nil {
			return err
		}
	case Transact:
		e.u8(opTransact)
		e.u8(uint8(v.OriginKind))
		e.weight(v.RequireWeightAtMost)
		e.bytes(v.Call)
	case HrmpNewChannelOpenRequest:
		e.u8(opHrmpNewChannelOpenRequest)
		e.u32(v.Sender)
		e.u32(v.MaxMessageSize)
		e.u32(v.MaxCapacity)
	case HrmpChannelAccepted:
		e.u8(opHrmpChannelAccepted)
		e.u32(v.Recipient)
	case HrmpChannelClosing:
		e.u8(opHrmpChannelClosing)
		e.u32(v.Initiator)
		e.u32(v.Sender)
		e.u32(v.Recipient)
	case ClearOrigin:
		e.u8(opClearOrigin)
	case DescendOrigin:
		e.u8(opDescendOrigin)
		e.interior(v.Path)
	case ReportError:
		e.u8(opReportError)
		e.responseInfo(v.Info)
	case DepositAsset:
		e.u8(opDepositAsset)
		e.filter(v.Assets)
		e.location(v.Beneficiary)
	case DepositReserveAsset:
		e.u8(opDepositReserveAsset)
		e.filter(v.Assets)
		e.location(v.Dest)
		if err := e.message(v.XCM); err != nil {
			return err
		}
	case ExchangeAsset:
		e.u8(opExchangeAsset)
		e.filter(v.Give)
		e.assets(v.Want)
		e.bool(v.Maximal)
	case InitiateReserveWithdraw:
		e.u8(opInitiateReserveWithdraw)
		e.filter(v.Assets)
		e.location(v.Reserve)
		if err := e.message(v.XCM); err != nil {
			return err
		}
	case InitiateTeleport:
		e.u8(opInitiateTeleport)
		e.filter(v.Assets)
		e.location(v.Dest)
		if err := e.message(v.XCM); err != nil {
			return err
		}
	case ReportHolding:
		e.u8(opReportHolding)
		e.responseInfo(v.Info)
		e.filter(v.Assets)
	case BuyExecution:
		e.u8(opBuyExecution)
		e.asset(v.Fees)
		e.weightLimit(v.WeightLimit)
	case RefundSurplus:
		e.u8(opRefundSurplus)
	case SetErrorHandler:
		e.u8(opSetErrorHandler)
		if err := e.message(v.Handler); err != nil {
			return err
		}
	case SetAppendix:
		e.u8(opSetAppendix)
		if err := e.message(v.Appendix); err != nil {
			return err
		}
	case ClearError:
		e.u8(opClearError)
	case ClaimAsset:
		e.u8(opClaimAsset)
		e.assets(v.Assets)
		e.location(v.Ticket)
	case Trap:
		e.u8(opTrap)
		e.u64(v.Code)
	case SubscribeVersion:
		e.u8(opSubscribeVersion)
		e.u64(v.QueryID)
		e.weight(v.MaxResponseWeight)
	case UnsubscribeVersion:
		e.u8(opUnsubscribeVersion)
	case BurnAsset:
		e.u8(opBurnAsset)
		e.assets(v.Assets)
	case ExpectAsset:
		e.u8(opExpectAsset)
		e.assets(v.Assets)
	case ExpectOrigin:
		e.u8(opExpectOrigin)
		e.optLocation(v.Origin)
	case ExpectError:
		e.u8(opExpectError)
		e.indexedError(v.Error)
	case ExpectTransactStatus:
		e.u8(opExpectTransactStatus)
		e.transactStatus(v.Status)
	case QueryPallet:
		e.u8(opQueryPallet)
		e.bytes(v.ModuleName)
		e.responseInfo(v.Info)
	case ExpectPallet:
		e.u8(opExpectPallet)
		e.u32(v.Index)
		e.bytes(v.Name)
		e.bytes(v.ModuleName)
		e.u32(v.CrateMajor)
		e.u32(v.MinCrateMinor)
	case ReportTransactStatus:
		e.u8(opReportTransactStatus)
		e.responseInfo(v.Info)
	case ClearTransactStatus:
		e.u8(opClearTransactStatus)
	case UniversalOrigin:
		e.u8(opUniversalOrigin)
		e.junction(v.Junction)
	case ExportMessage:
		e.u8(opExportMessage)
		e.network(v.Network)
		e.interior(v.Destination)
		if err := e.message(v.XCM); err != nil {
			return err
		}
	case LockAsset:
		e.u8(opLockAsset)
		e.asset(v.Asset)
		e.location(v.Unlocker)
	case UnlockAsset:
		e.u8(opUnlockAsset)
		e.asset(v.Asset)
		e.location(v.Target)
	case NoteUnlockable:
		e.u8(opNoteUnlockable)
		e.asset(v.Asset)
		e.location(v.Owner)
	case RequestUnlock:
		e.u8(opRequestUnlock)
		e.asset(v.Asset)
		e.location(v.Locker)
	case SetFeesMode:
		e.u8(opSetFeesMode)
		e.bool(v.JITWithdraw)
	case SetTopic:
		e.u8(opSetTopic)
		e.buf.Write(v.Topic[:])
	case ClearTopic:
		e.u8(opClearTopic)
	case AliasOrigin:
		e.u8(opAliasOrigin)
		e.location(v.Location)
	case UnpaidExecution:
		e.u8(opUnpaidExecution)
		e.weightLimit(v.WeightLimit)
		e.optLocation(v.CheckOrigin)
	default:
		return fmt.Errorf("%w: unknown instruction %T", ErrBadFormat, in)
	}
	return nil
}

func (e *encoder) message(m Message) error {
	e.uvarint(uint64(len(m)))
	for _, in := range m {
		if err := e.instruction(in); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) instruction(budget *int) Instruction {
	*budget--
	if *budget < 0 {
		d.fail(ErrBadFormat)
		return nil
	}
	op := d.u8()
	if d.err != nil {
		return nil
	}
	switch op {
	case opWithdrawAsset:
		return WithdrawAsset{Assets: d.assets()}
	case opReserveAssetDeposited:
		return ReserveAssetDeposited{Assets: d.assets()}
	case opReceiveTeleportedAsset:
		return ReceiveTeleportedAsset{Assets: d.assets()}
	case opQueryResponse:
		return QueryResponse{
			QueryID:   d.u64(),
			Response:  d.response(),
			MaxWeight: d.weight(),
			Querier:   d.optLocation(),
		}
	case opTransferAsset:
		return TransferAsset{Assets: d.assets(), Beneficiary: d.location()}
	case opTransferReserveAsset:
		return TransferReserveAsset{
			Assets: d.assets(),
			Dest:   d.location(),
			XCM:    d.message(budget),
		}
	case opTransact:
		return Transact{
			OriginKind:         OriginKind(d.u8()),
			RequireWeightAtMost: d.weight(),
			Call:               d.bytes(),
		}
	case opHrmpNewChannelOpenRequest:
		return HrmpNewChannelOpenRequest{
			Sender:         d.u32(),
			MaxMessageSize: d.u32(),
			MaxCapacity:    d.u32(),
		}
	case opHrmpChannelAccepted:
		return HrmpChannelAccepted{Recipient: d.u32()}
	case opHrmpChannelClosing:
		return HrmpChannelClosing{
			Initiator: d.u32(),
			Sender:    d.u32(),
			Recipient: d.u32(),
		}
	case opClearOrigin:
		return ClearOrigin{}
	case opDescendOrigin:
		return DescendOrigin{Path: d.interior()}
	case opReportError:
		return ReportError{Info: d.responseInfo()}
	case opDepositAsset:
		return DepositAsset{Assets: d.filter(), Beneficiary: d.location()}
	case opDepositReserveAsset:
		return DepositReserveAsset{
			Assets: d.filter(),
			Dest:   d.location(),
			XCM:    d.message(budget),
		}
	case opExchangeAsset:
		return ExchangeAsset{Give: d.filter(), Want: d.assets(), Maximal: d.bool()}
	case opInitiateReserveWithdraw:
		return InitiateReserveWithdraw{
			Assets:  d.filter(),
			Reserve: d.location(),
			XCM:     d.message(budget),
		}
	case opInitiateTeleport:
		return InitiateTeleport{
			Assets: d.filter(),
			Dest:   d.location(),
			XCM:    d.message(budget),
		}
	case opReportHolding:
		return ReportHolding{Info: d.responseInfo(), Assets: d.filter()}
	case opBuyExecution:
		return BuyExecution{Fees: d.asset(), WeightLimit: d.weightLimit()}
	case opRefundSurplus:
		return RefundSurplus{}
	case opSetErrorHandler:
		return SetErrorHandler{Handler: d.message(budget)}
	case opSetAppendix:
		return SetAppendix{Appendix: d.message(budget)}
	case opClearError:
		return ClearError{}
	case opClaimAsset:
		return ClaimAsset{Assets: d.assets(), Ticket: d.location()}
	case opTrap:
		return Trap{Code: d.u64()}
	case opSubscribeVersion:
		return SubscribeVersion{QueryID: d.u64(), MaxResponseWeight: d.weight()}
	case opUnsubscribeVersion:
		return UnsubscribeVersion{}
	case opBurnAsset:
		return BurnAsset{Assets: d.assets()}
	case opExpectAsset:
		return ExpectAsset{Assets: d.assets()}
	case opExpectOrigin:
		return ExpectOrigin{Origin: d.optLocation()}
	case opExpectError:
		return ExpectError{Error: d.indexedError()}
	case opExpectTransactStatus:
		return ExpectTransactStatus{Status: d.transactStatus()}
	case opQueryPallet:
		return QueryPallet{ModuleName: d.bytes(), Info: d.responseInfo()}
	case opExpectPallet:
		return ExpectPallet{
			Index:         d.u32(),
			Name:          d.bytes(),
			ModuleName:    d.bytes(),
			CrateMajor:    d.u32(),
			MinCrateMinor: d.u32(),
		}
	case opReportTransactStatus:
		return ReportTransactStatus{Info: d.responseInfo()}
	case opClearTransactStatus:
		return ClearTransactStatus{}
	case opUniversalOrigin:
		return UniversalOrigin{Junction: d.junction()}
	case opExportMessage:
		return ExportMessage{
			Network:     d.network(),
			Destination: d.interior(),
			XCM:         d.message(budget),
		}
	case opLockAsset:
		return LockAsset{Asset: d.asset(), Unlocker: d.location()}
	case opUnlockAsset:
		return UnlockAsset{Asset: d.asset(), Target: d.location()}
	case opNoteUnlockable:
		return NoteUnlockable{Asset: d.asset(), Owner: d.location()}
	case opRequestUnlock:
		return RequestUnlock{Asset: d.asset(), Locker: d.location()}
	case opSetFeesMode:
		return SetFeesMode{JITWithdraw: d.bool()}
	case opSetTopic:
		var t SetTopic
		if _, err := io.ReadFull(d.r, t.Topic[:]); err != nil {
			d.fail(ErrTruncated)
			return nil
		}
		return t
	case opClearTopic:
		return ClearTopic{}
	case opAliasOrigin:
		return AliasOrigin{Location: d.location()}
	case opUnpaidExecution:
		return UnpaidExecution{WeightLimit: d.weightLimit(), CheckOrigin: d.optLocation()}
	default:
		d.fail(fmt.Errorf("%w: unknown opcode %d", ErrBadFormat, op))
		return nil
	}
}

func (d *decoder) message(budget *int) Message {
	n := d.uvarint()
	if d.err != nil {
		return nil
	}
	if n > uint64(*budget) {
		d.fail(ErrBadFormat)
		return nil
	}
	out := make(Message, 0, n)
	for i := uint64(0); i < n; i++ {
		in := d.instruction(budget)
		if d.err != nil {
			return nil
		}
		out = append(out, in)
	}
	return out
}

// EncodeMessage serialises a message in the versioned wire format.
func EncodeMessage(m Message) ([]byte, error) {
	var e encoder
	e.u8(FormatVersion)
	if err := e.message(m); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// DecodeMessage parses a message from the versioned wire format. It rejects
// trailing garbage.
func DecodeMessage(data []byte) (Message, error) {
	d := decoder{r: bytes.NewReader(data)}
	if v := d.u8(); d.err == nil && v != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	budget := MaxDecodedInstructions
	m := d.message(&budget)
	if d.err != nil {
		return nil, d.err
	}
	if d.r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadFormat, d.r.Len())
	}
	return m, nil
}

// EncodeLocation serialises a location.
func EncodeLocation(l Location) []byte {
	var e encoder
	e.location(l)
	return e.buf.Bytes()
}

// DecodeLocation parses a location, rejecting trailing garbage.
func DecodeLocation(data []byte) (Location, error) {
	d := decoder{r: bytes.NewReader(data)}
	l := d.location()
	if d.err != nil {
		return Location{}, d.err
	}
	if d.r.Len() != 0 {
		return Location{}, fmt.Errorf("%w: %d trailing bytes", ErrBadFormat, d.r.Len())
	}
	return l, nil
}

// EncodeAssets serialises an asset set.
func EncodeAssets(as Assets) []byte {
	var e encoder
	e.assets(as)
	return e.buf.Bytes()
}

// DecodeAssets parses an asset set, rejecting trailing garbage.
func DecodeAssets(data []byte) (Assets, error) {
	d := decoder{r: bytes.NewReader(data)}
	as := d.assets()
	if d.err != nil {
		return nil, d.err
	}
	if d.r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadFormat, d.r.Len())
	}
	return as, nil
}

// EncodeKey returns the canonical key identifying the asset class, used for
// map keys and sort order.
func (id AssetID) EncodeKey() []byte {
	return EncodeLocation(id.Location)
}

// EncodeKey returns the canonical key identifying this asset entry:
// fungible entries are keyed by class, non-fungible entries by class and
// instance.
func (a Asset) EncodeKey() []byte {
	var e encoder
	e.location(a.ID.Location)
	e.instance(a.Instance)
	return e.buf.Bytes()
}
