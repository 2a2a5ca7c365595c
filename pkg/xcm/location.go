package xcm

import (
	"fmt"
	"strings"

	"github.com/fortiblox/X1-Conduit/internal/types"
)

// MaxJunctions is the maximum number of junctions an interior location can
// carry.
const MaxJunctions = 8

// NetworkKind distinguishes the consensus systems a NetworkID can name.
type NetworkKind uint8

const (
	// NetworkUnset means no network is specified; the junction is
	// interpreted relative to the enclosing context.
	NetworkUnset NetworkKind = iota
	// NetworkByGenesis identifies a chain by its genesis hash.
	NetworkByGenesis
	// NetworkX1 is the X1 relay network.
	NetworkX1
	// NetworkEthereum identifies an Ethereum-compatible chain by chain ID.
	NetworkEthereum
)

// NetworkID names a top-level consensus system. The zero value means "no
// network specified".
type NetworkID struct {
	Kind    NetworkKind
	Genesis types.Hash // set for NetworkByGenesis
	ChainID uint64     // set for NetworkEthereum
}

// ByGenesis returns a NetworkID naming a chain by genesis hash.
func ByGenesis(genesis types.Hash) NetworkID {
	return NetworkID{Kind: NetworkByGenesis, Genesis: genesis}
}

// EthereumNetwork returns a NetworkID for an Ethereum chain.
func EthereumNetwork(chainID uint64) NetworkID {
	return NetworkID{Kind: NetworkEthereum, ChainID: chainID}
}

// X1Network returns the NetworkID of the X1 relay.
func X1Network() NetworkID {
	return NetworkID{Kind: NetworkX1}
}

// IsSet returns true if the network names a concrete consensus system.
func (n NetworkID) IsSet() bool {
	return n.Kind != NetworkUnset
}

// JunctionKind tags the variant held by a Junction.
type JunctionKind uint8

const (
	// JunctionParachain selects a parachain by index.
	JunctionParachain JunctionKind = iota + 1
	// JunctionAccountID32 selects a 32-byte account.
	JunctionAccountID32
	// JunctionAccountKey20 selects a 20-byte account key.
	JunctionAccountKey20
	// JunctionPalletInstance selects a runtime module by instance index.
	JunctionPalletInstance
	// JunctionGeneralIndex selects a nondescript index.
	JunctionGeneralIndex
	// JunctionGeneralKey selects a nondescript datum of at most 32 bytes.
	JunctionGeneralKey
	// JunctionOnlyChild selects the sole child, if one exists.
	JunctionOnlyChild
	// JunctionGlobalConsensus selects a global consensus system; only
	// valid as the first junction of a universal location.
	JunctionGlobalConsensus
)

// Junction is a single step of an interior path. It is a tagged union
// flattened into one comparable struct so junctions, interiors and
// locations can be compared with ==.
type Junction struct {
	Kind JunctionKind

	// Index carries the parachain index, pallet instance or general index.
	Index uint64

	// Network scopes account junctions, and names the consensus system of
	// a GlobalConsensus junction.
	Network NetworkID

	// ID is the account of an AccountID32 junction.
	ID types.AccountID

	// Key is the account key of an AccountKey20 junction.
	Key types.EthAddress

	// Data and DataLen carry the datum of a GeneralKey junction.
	Data    [32]byte
	DataLen uint8
}

// Parachain returns a junction selecting the parachain with the given index.
func Parachain(index uint32) Junction {
	return Junction{Kind: JunctionParachain, Index: uint64(index)}
}

// AccountID32 returns a junction selecting a 32-byte account.
func AccountID32(id types.AccountID) Junction {
	return Junction{Kind: JunctionAccountID32, ID: id}
}

// AccountKey20 returns a junction selecting a 20-byte account key.
func AccountKey20(key types.EthAddress) Junction {
	return Junction{Kind: JunctionAccountKey20, Key: key}
}

// PalletInstance returns a junction selecting a runtime module.
func PalletInstance(index uint8) Junction {
	return Junction{Kind: JunctionPalletInstance, Index: uint64(index)}
}

// GeneralIndex returns a junction carrying a nondescript index.
func GeneralIndex(index uint64) Junction {
	return Junction{Kind: JunctionGeneralIndex, Index: index}
}

// GeneralKey returns a junction carrying a nondescript datum. Data longer
// than 32 bytes is truncated.
func GeneralKey(data []byte) Junction {
	j := Junction{Kind: JunctionGeneralKey}
	n := copy(j.Data[:], data)
	j.DataLen = uint8(n)
	return j
}

// OnlyChild returns the junction selecting the sole child.
func OnlyChild() Junction {
	return Junction{Kind: JunctionOnlyChild}
}

// GlobalConsensus returns a junction naming a global consensus system.
func GlobalConsensus(network NetworkID) Junction {
	return Junction{Kind: JunctionGlobalConsensus, Network: network}
}

// String renders the junction for logs and errors.
func (j Junction) String() string {
	switch j.Kind {
	case JunctionParachain:
		return fmt.Sprintf("Parachain(%d)", j.Index)
	case JunctionAccountID32:
		return fmt.Sprintf("AccountID32(%s)", j.ID)
	case JunctionAccountKey20:
		return fmt.Sprintf("AccountKey20(%s)", j.Key)
	case JunctionPalletInstance:
		return fmt.Sprintf("PalletInstance(%d)", j.Index)
	case JunctionGeneralIndex:
		return fmt.Sprintf("GeneralIndex(%d)", j.Index)
	case JunctionGeneralKey:
		return fmt.Sprintf("GeneralKey(%x)", j.Data[:j.DataLen])
	case JunctionOnlyChild:
		return "OnlyChild"
	case JunctionGlobalConsensus:
		return fmt.Sprintf("GlobalConsensus(%d)", j.Network.Kind)
	default:
		return fmt.Sprintf("Junction(%d)", j.Kind)
	}
}

// InteriorLocation is a path of junctions descending within a consensus
// system. It never exceeds MaxJunctions entries.
type InteriorLocation []Junction

// Here is the empty interior.
func Here() InteriorLocation {
	return nil
}

// Interior builds an interior from the given junctions.
func Interior(junctions ...Junction) InteriorLocation {
	return InteriorLocation(junctions)
}

// Len returns the number of junctions.
func (il InteriorLocation) Len() int {
	return len(il)
}

// At returns the i-th junction, or false if out of range.
func (il InteriorLocation) At(i int) (Junction, bool) {
	if i < 0 || i >= len(il) {
		return Junction{}, false
	}
	return il[i], true
}

// First returns the first junction, or false if empty.
func (il InteriorLocation) First() (Junction, bool) {
	return il.At(0)
}

// Last returns the last junction, or false if empty.
func (il InteriorLocation) Last() (Junction, bool) {
	return il.At(len(il) - 1)
}

// Clone returns a copy that shares no storage with il.
func (il InteriorLocation) Clone() InteriorLocation {
	if il == nil {
		return nil
	}
	out := make(InteriorLocation, len(il))
	copy(out, il)
	return out
}

// Equal reports whether two interiors are identical.
func (il InteriorLocation) Equal(other InteriorLocation) bool {
	if len(il) != len(other) {
		return false
	}
	for i := range il {
		if il[i] != other[i] {
			return false
		}
	}
	return true
}

// Push appends a junction, failing if the interior is full.
func (il InteriorLocation) Push(j Junction) (InteriorLocation, error) {
	if len(il) >= MaxJunctions {
		return il, ErrLocationFull
	}
	out := make(InteriorLocation, 0, len(il)+1)
	out = append(out, il...)
	out = append(out, j)
	return out, nil
}

// PushFront prepends a junction, failing if the interior is full.
func (il InteriorLocation) PushFront(j Junction) (InteriorLocation, error) {
	if len(il) >= MaxJunctions {
		return il, ErrLocationFull
	}
	out := make(InteriorLocation, 0, len(il)+1)
	out = append(out, j)
	out = append(out, il...)
	return out, nil
}

// SplitLast returns the interior without its last junction, and that
// junction if one existed.
func (il InteriorLocation) SplitLast() (InteriorLocation, Junction, bool) {
	if len(il) == 0 {
		return il, Junction{}, false
	}
	return il[:len(il)-1].Clone(), il[len(il)-1], true
}

// SplitFirst returns the interior without its first junction, and that
// junction if one existed.
func (il InteriorLocation) SplitFirst() (InteriorLocation, Junction, bool) {
	if len(il) == 0 {
		return il, Junction{}, false
	}
	return il[1:].Clone(), il[0], true
}

// InvertTarget computes the location one would follow from target to reach
// the context described by il, where target is expressed relative to il.
// It fails if il is too shallow to ascend target's parent count.
func (il InteriorLocation) InvertTarget(target Location) (Location, error) {
	var junctions InteriorLocation
	for i := 0; i < int(target.Parents); i++ {
		idx := len(il) - len(junctions) - 1
		if idx < 0 {
			return Location{}, ErrLocationNotInvertible
		}
		var err error
		junctions, err = junctions.PushFront(il[idx])
		if err != nil {
			return Location{}, err
		}
	}
	if len(target.Interior) > 255 {
		return Location{}, ErrLocationNotInvertible
	}
	return Location{Parents: uint8(len(target.Interior)), Interior: junctions}, nil
}

// RelativeTo expresses il as a location relative to viewer, assuming both
// are rooted in the same context.
func (il InteriorLocation) RelativeTo(viewer InteriorLocation) Location {
	i := 0
	for i < len(il) && i < len(viewer) && il[i] == viewer[i] {
		i++
	}
	return Location{
		Parents:  uint8(len(viewer) - i),
		Interior: il[i:].Clone(),
	}
}

// WithinGlobal resolves a location relative to il into an absolute interior
// path, ascending for each parent and then descending the interior. It
// fails if the relative location ascends above il's root.
func (il InteriorLocation) WithinGlobal(relative Location) (InteriorLocation, error) {
	if int(relative.Parents) > len(il) {
		return nil, ErrLocationNotInvertible
	}
	out := il[:len(il)-int(relative.Parents)].Clone()
	for _, j := range relative.Interior {
		var err error
		out, err = out.Push(j)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GlobalConsensusNetwork returns the network of the leading GlobalConsensus
// junction, if the interior is a universal location.
func (il InteriorLocation) GlobalConsensusNetwork() (NetworkID, bool) {
	first, ok := il.First()
	if !ok || first.Kind != JunctionGlobalConsensus {
		return NetworkID{}, false
	}
	return first.Network, true
}

// String renders the interior as a slash-separated path.
func (il InteriorLocation) String() string {
	if len(il) == 0 {
		return "Here"
	}
	parts := make([]string, len(il))
	for i, j := range il {
		parts[i] = j.String()
	}
	return strings.Join(parts, "/")
}

// Location identifies a point in the consensus universe relative to the
// local context: ascend Parents times, then descend the Interior path.
type Location struct {
	Parents  uint8
	Interior InteriorLocation
}

// NewLocation builds a location from a parent count and junctions.
func NewLocation(parents uint8, junctions ...Junction) Location {
	return Location{Parents: parents, Interior: Interior(junctions...)}
}

// LocationHere is the local context itself.
func LocationHere() Location {
	return Location{}
}

// Parent is the location one level up.
func Parent() Location {
	return Location{Parents: 1}
}

// IsHere returns true if the location names the local context.
func (l Location) IsHere() bool {
	return l.Parents == 0 && len(l.Interior) == 0
}

// Clone returns a copy that shares no storage with l.
func (l Location) Clone() Location {
	return Location{Parents: l.Parents, Interior: l.Interior.Clone()}
}

// Equal reports whether two locations are identical.
func (l Location) Equal(other Location) bool {
	return l.Parents == other.Parents && l.Interior.Equal(other.Interior)
}

// FirstInterior returns the first interior junction, or false if none.
func (l Location) FirstInterior() (Junction, bool) {
	return l.Interior.First()
}

// Push appends a junction to the interior.
func (l Location) Push(j Junction) (Location, error) {
	interior, err := l.Interior.Push(j)
	if err != nil {
		return l, err
	}
	return Location{Parents: l.Parents, Interior: interior}, nil
}

// AppendWith extends l with suffix: each parent of suffix cancels a
// trailing interior junction of l, or adds a parent once the interior is
// exhausted, and then suffix's interior is appended.
func (l Location) AppendWith(suffix Location) (Location, error) {
	out := l.Clone()
	for i := 0; i < int(suffix.Parents); i++ {
		if rest, _, ok := out.Interior.SplitLast(); ok {
			out.Interior = rest
			continue
		}
		if out.Parents == 255 {
			return l, ErrLocationFull
		}
		out.Parents++
	}
	for _, j := range suffix.Interior {
		var err error
		out.Interior, err = out.Interior.Push(j)
		if err != nil {
			return l, err
		}
	}
	return out, nil
}

// PrependWith prefixes l with prefix, first cancelling matched pairs: each
// parent of l consumes a trailing interior junction of prefix, and once
// prefix's interior is exhausted further parents of l stack onto prefix's
// parents.
func (l Location) PrependWith(prefix Location) (Location, error) {
	pfx := prefix.Clone()
	body := l.Clone()

	// Count how many of body's parents are cancelled by prefix interior
	// junctions, and how many survive to stack onto prefix's parents.
	cancelled := int(body.Parents)
	if cancelled > len(pfx.Interior) {
		cancelled = len(pfx.Interior)
	}
	surviving := int(body.Parents) - cancelled

	finalParents := int(pfx.Parents) + surviving
	finalInterior := len(pfx.Interior) - cancelled + len(body.Interior)
	if finalParents > 255 {
		return l, ErrLocationFull
	}
	if finalInterior > MaxJunctions {
		return l, ErrLocationFull
	}

	out := Location{
		Parents:  uint8(finalParents),
		Interior: pfx.Interior[:len(pfx.Interior)-cancelled].Clone(),
	}
	for _, j := range body.Interior {
		var err error
		out.Interior, err = out.Interior.Push(j)
		if err != nil {
			return l, err
		}
	}
	return out, nil
}

// Simplify strips the leading portion of the location that merely retraces
// the given context: while the location ascends into the context and then
// immediately descends along the same junction, both cancel out.
func (l Location) Simplify(context InteriorLocation) Location {
	out := l.Clone()
	for out.Parents > 0 && len(context) > 0 {
		// The junction of context that parent ascent lands above.
		ctxIdx := len(context) - int(out.Parents)
		if ctxIdx < 0 {
			break
		}
		first, ok := out.Interior.First()
		if !ok || first != context[ctxIdx] {
			break
		}
		rest, _, _ := out.Interior.SplitFirst()
		out.Interior = rest
		out.Parents--
	}
	return out
}

// Reanchored re-expresses l (currently relative to the local context) as a
// location relative to target, where target is also relative to the local
// context and context is the local context's universal interior.
func (l Location) Reanchored(target Location, context InteriorLocation) (Location, error) {
	inverted, err := context.InvertTarget(target)
	if err != nil {
		return Location{}, err
	}
	out, err := l.PrependWith(inverted)
	if err != nil {
		return Location{}, ErrReanchorFailed
	}
	return out.Simplify(target.Interior), nil
}

// ChainPart returns the consensus-system portion of the location, dropping
// any junctions below chain level (accounts, pallets, keys).
func (l Location) ChainPart() (Location, bool) {
	first, ok := l.Interior.First()
	if ok && first.Kind == JunctionParachain {
		return Location{Parents: l.Parents, Interior: Interior(first)}, true
	}
	if l.Parents > 0 {
		return Location{Parents: l.Parents}, true
	}
	return Location{}, false
}

// String renders the location for logs and errors.
func (l Location) String() string {
	if l.IsHere() {
		return "Here"
	}
	var b strings.Builder
	for i := 0; i < int(l.Parents); i++ {
		b.WriteString("../")
	}
	if len(l.Interior) == 0 {
		b.WriteString(".")
	} else {
		b.WriteString(l.Interior.String())
	}
	return b.String()
}
