// Package weigher provides weight bounding for message programs.
package weigher

import (
	"errors"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

// ErrTooManyInstructions means a program exceeds the instruction budget,
// counting nested programs.
var ErrTooManyInstructions = errors.New("weigher: too many instructions")

// DefaultMaxInstructions is the default instruction budget per program.
const DefaultMaxInstructions = 100

// FixedWeightBounds charges one fixed unit per instruction, recursing into
// nested programs. It implements executor.WeightBounds.
type FixedWeightBounds struct {
	// UnitWeight is the weight charged per instruction.
	UnitWeight xcm.Weight

	// MaxInstructions bounds the total instruction count of one program,
	// including nested programs.
	MaxInstructions int
}

// New returns fixed-unit weight bounds.
func New(unit xcm.Weight, maxInstructions int) *FixedWeightBounds {
	if maxInstructions <= 0 {
		maxInstructions = DefaultMaxInstructions
	}
	return &FixedWeightBounds{UnitWeight: unit, MaxInstructions: maxInstructions}
}

// Weight returns the worst-case weight of the program.
func (b *FixedWeightBounds) Weight(msg xcm.Message) (xcm.Weight, error) {
	budget := b.MaxInstructions
	return b.weight(msg, &budget)
}

// InstrWeight returns the worst-case weight of one instruction, including
// any program nested within it.
func (b *FixedWeightBounds) InstrWeight(instr xcm.Instruction) (xcm.Weight, error) {
	budget := b.MaxInstructions
	return b.instrWeight(instr, &budget)
}

func (b *FixedWeightBounds) weight(msg xcm.Message, budget *int) (xcm.Weight, error) {
	total := xcm.Weight{}
	for _, instr := range msg {
		w, err := b.instrWeight(instr, budget)
		if err != nil {
			return xcm.Weight{}, err
		}
		total = total.Add(w)
	}
	return total, nil
}

func (b *FixedWeightBounds) instrWeight(instr xcm.Instruction, budget *int) (xcm.Weight, error) {
	*budget--
	if *budget < 0 {
		return xcm.Weight{}, ErrTooManyInstructions
	}
	w := b.UnitWeight
	var nested xcm.Message
	switch v := instr.(type) {
	case xcm.TransferReserveAsset:
		nested = v.XCM
	case xcm.DepositReserveAsset:
		nested = v.XCM
	case xcm.InitiateReserveWithdraw:
		nested = v.XCM
	case xcm.InitiateTeleport:
		nested = v.XCM
	case xcm.ExportMessage:
		nested = v.XCM
	case xcm.SetErrorHandler:
		nested = v.Handler
	case xcm.SetAppendix:
		nested = v.Appendix
	case xcm.Transact:
		w = w.Add(v.RequireWeightAtMost)
	case xcm.QueryResponse:
		w = w.Add(v.MaxWeight)
	}
	if len(nested) > 0 {
		nw, err := b.weight(nested, budget)
		if err != nil {
			return xcm.Weight{}, err
		}
		w = w.Add(nw)
	}
	return w, nil
}
