package modules

import (
	"encoding/binary"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

// Balances module error codes.
const (
	// ErrCodeTransferFailed is reported when the ledger refuses the
	// movement, typically for insufficient balance.
	ErrCodeTransferFailed uint8 = 0x10
)

// Balances call indexes.
const (
	// CallTransfer moves an amount from the origin to a beneficiary.
	// Arguments: amount (8 bytes LE) + encoded beneficiary location.
	CallTransfer uint8 = 0

	// CallBurn withdraws an amount from the origin without depositing it
	// anywhere. Arguments: amount (8 bytes LE).
	CallBurn uint8 = 1
)

// Balances dispatches transfers of one asset class over the ledger. It
// exists so Transact has something real to call: a remote chain can embed
// a transfer from its sovereign account into a message.
type Balances struct {
	index uint32
	asset xcm.AssetID
	store executor.TransactAsset
}

// NewBalances returns a balances module at the given index operating on
// the given asset class.
func NewBalances(index uint32, asset xcm.AssetID, store executor.TransactAsset) *Balances {
	return &Balances{index: index, asset: asset, store: store}
}

// Info implements Module.
func (b *Balances) Info() xcm.PalletInfo {
	return xcm.PalletInfo{
		Index:      b.index,
		Name:       "Balances",
		ModuleName: "balances",
		Major:      1,
	}
}

// Per-call weights. Transfers touch two accounts, burns one.
var (
	weightTransfer = xcm.NewWeight(50_000, 128)
	weightBurn     = xcm.NewWeight(25_000, 64)
)

// WeighCall implements Module.
func (b *Balances) WeighCall(call uint8, args []byte) (xcm.Weight, error) {
	switch call {
	case CallTransfer:
		if _, _, err := decodeTransfer(args); err != nil {
			return xcm.Weight{}, err
		}
		return weightTransfer, nil
	case CallBurn:
		if len(args) != 8 {
			return xcm.Weight{}, ErrCallTooShort
		}
		return weightBurn, nil
	default:
		return xcm.Weight{}, ErrUnknownModule
	}
}

// Dispatch implements Module.
func (b *Balances) Dispatch(origin xcm.Location, _ xcm.OriginKind, call uint8, args []byte) (xcm.Weight, []byte) {
	module := uint8(b.index)
	switch call {
	case CallTransfer:
		amount, to, err := decodeTransfer(args)
		if err != nil {
			return xcm.Weight{}, moduleError(module, errCodeBadArgs)
		}
		what := xcm.Asset{ID: b.asset, Amount: amount}
		if err := b.store.Transfer(what, origin, to); err != nil {
			return weightTransfer, moduleError(module, ErrCodeTransferFailed)
		}
		return weightTransfer, nil
	case CallBurn:
		if len(args) != 8 {
			return xcm.Weight{}, moduleError(module, errCodeBadArgs)
		}
		amount := binary.LittleEndian.Uint64(args)
		what := xcm.Asset{ID: b.asset, Amount: amount}
		if err := b.store.Withdraw(what, origin); err != nil {
			return weightBurn, moduleError(module, ErrCodeTransferFailed)
		}
		return weightBurn, nil
	default:
		return xcm.Weight{}, moduleError(module, errCodeUnknownCall)
	}
}

// EncodeTransfer builds the full call bytes for a transfer through a
// registry where the module sits at moduleIndex.
func EncodeTransfer(moduleIndex uint8, amount uint64, to xcm.Location) []byte {
	loc := xcm.EncodeLocation(to)
	out := make([]byte, 2+8, 2+8+len(loc))
	out[0] = moduleIndex
	out[1] = CallTransfer
	binary.LittleEndian.PutUint64(out[2:], amount)
	return append(out, loc...)
}

// EncodeBurn builds the full call bytes for a burn.
func EncodeBurn(moduleIndex uint8, amount uint64) []byte {
	out := make([]byte, 2+8)
	out[0] = moduleIndex
	out[1] = CallBurn
	binary.LittleEndian.PutUint64(out[2:], amount)
	return out
}

func decodeTransfer(args []byte) (uint64, xcm.Location, error) {
	if len(args) < 8 {
		return 0, xcm.Location{}, ErrCallTooShort
	}
	amount := binary.LittleEndian.Uint64(args)
	to, err := xcm.DecodeLocation(args[8:])
	if err != nil {
		return 0, xcm.Location{}, err
	}
	return amount, to, nil
}
