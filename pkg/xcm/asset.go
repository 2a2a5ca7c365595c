package xcm

import (
	"fmt"
	"sort"
)

// AssetID identifies an asset class by the location of its issuing system.
type AssetID struct {
	Location Location
}

// NewAssetID builds an asset ID from a location.
func NewAssetID(loc Location) AssetID {
	return AssetID{Location: loc}
}

// Equal reports whether two asset IDs name the same class.
func (id AssetID) Equal(other AssetID) bool {
	return id.Location.Equal(other.Location)
}

// Reanchored re-expresses the ID relative to target.
func (id AssetID) Reanchored(target Location, context InteriorLocation) (AssetID, error) {
	loc, err := id.Location.Reanchored(target, context)
	if err != nil {
		return AssetID{}, err
	}
	return AssetID{Location: loc}, nil
}

// String renders the ID for logs and errors.
func (id AssetID) String() string {
	return id.Location.String()
}

// InstanceKind tags the variant held by an AssetInstance.
type InstanceKind uint8

const (
	// InstanceNone marks a fungible asset, which has no instance.
	InstanceNone InstanceKind = iota
	// InstanceUndefined is the undefined instance.
	InstanceUndefined
	// InstanceIndex identifies an instance by integer index.
	InstanceIndex
	// InstanceRaw identifies an instance by a raw datum of up to 32 bytes.
	InstanceRaw
)

// AssetInstance identifies one unit within a non-fungible asset class. It
// is a flattened comparable struct.
type AssetInstance struct {
	Kind   InstanceKind
	Index  uint64
	Raw    [32]byte
	RawLen uint8
}

// UndefinedInstance returns the undefined instance.
func UndefinedInstance() AssetInstance {
	return AssetInstance{Kind: InstanceUndefined}
}

// IndexInstance returns an instance identified by index.
func IndexInstance(index uint64) AssetInstance {
	return AssetInstance{Kind: InstanceIndex, Index: index}
}

// RawInstance returns an instance identified by a raw datum. Data longer
// than 32 bytes is truncated.
func RawInstance(data []byte) AssetInstance {
	ai := AssetInstance{Kind: InstanceRaw}
	n := copy(ai.Raw[:], data)
	ai.RawLen = uint8(n)
	return ai
}

// Asset is a quantity of a fungible asset class or a single unit of a
// non-fungible one.
type Asset struct {
	// ID names the asset class.
	ID AssetID

	// Amount is the fungible quantity; meaningful only for fungible
	// assets.
	Amount uint64

	// Instance identifies the unit of a non-fungible asset; its Kind is
	// InstanceNone for fungible assets.
	Instance AssetInstance
}

// NewFungibleAsset builds a fungible asset of the class issued at loc.
func NewFungibleAsset(loc Location, amount uint64) Asset {
	return Asset{ID: NewAssetID(loc), Amount: amount}
}

// NewNonFungibleAsset builds a non-fungible asset unit.
func NewNonFungibleAsset(loc Location, instance AssetInstance) Asset {
	return Asset{ID: NewAssetID(loc), Instance: instance}
}

// IsFungible returns true for fungible assets.
func (a Asset) IsFungible() bool {
	return a.Instance.Kind == InstanceNone
}

// Equal reports whether two assets are identical in class and quantity or
// instance.
func (a Asset) Equal(other Asset) bool {
	return a.ID.Equal(other.ID) && a.Amount == other.Amount && a.Instance == other.Instance
}

// Reanchored re-expresses the asset relative to target.
func (a Asset) Reanchored(target Location, context InteriorLocation) (Asset, error) {
	id, err := a.ID.Reanchored(target, context)
	if err != nil {
		return Asset{}, err
	}
	out := a
	out.ID = id
	return out, nil
}

// String renders the asset for logs and errors.
func (a Asset) String() string {
	if a.IsFungible() {
		return fmt.Sprintf("%s:%d", a.ID, a.Amount)
	}
	return fmt.Sprintf("%s:nft(%d)", a.ID, a.Instance.Kind)
}

// Assets is a set of assets in canonical order: sorted by encoded key, with
// at most one entry per fungible class and per non-fungible unit.
type Assets []Asset

// NewAssets normalises the given assets into canonical form, fusing
// duplicate fungible classes. It fails with ErrOverflow if fusing
// overflows.
func NewAssets(assets ...Asset) (Assets, error) {
	fungible := make(map[string]Asset)
	nonFungible := make(map[string]Asset)
	for _, a := range assets {
		if a.IsFungible() {
			if a.Amount == 0 {
				continue
			}
			key := string(a.ID.EncodeKey())
			if have, ok := fungible[key]; ok {
				sum := have.Amount + a.Amount
				if sum < have.Amount {
					return nil, ErrOverflow
				}
				have.Amount = sum
				fungible[key] = have
			} else {
				fungible[key] = a
			}
		} else {
			nonFungible[string(a.EncodeKey())] = a
		}
	}
	out := make(Assets, 0, len(fungible)+len(nonFungible))
	for _, a := range fungible {
		out = append(out, a)
	}
	for _, a := range nonFungible {
		out = append(out, a)
	}
	out.sortCanonical()
	return out, nil
}

// MustNewAssets is NewAssets for callers with known-good inputs; it panics
// on overflow.
func MustNewAssets(assets ...Asset) Assets {
	out, err := NewAssets(assets...)
	if err != nil {
		panic(err)
	}
	return out
}

func (as Assets) sortCanonical() {
	sort.Slice(as, func(i, j int) bool {
		return string(as[i].EncodeKey()) < string(as[j].EncodeKey())
	})
}

// Len returns the number of distinct asset entries.
func (as Assets) Len() int {
	return len(as)
}

// Clone returns a copy that shares no storage with as.
func (as Assets) Clone() Assets {
	if as == nil {
		return nil
	}
	out := make(Assets, len(as))
	for i, a := range as {
		out[i] = a
		out[i].ID.Location = a.ID.Location.Clone()
	}
	return out
}

// Equal reports whether two canonical asset sets are identical.
func (as Assets) Equal(other Assets) bool {
	if len(as) != len(other) {
		return false
	}
	for i := range as {
		if !as[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Reanchored re-expresses every asset relative to target, returning the
// result in canonical order.
func (as Assets) Reanchored(target Location, context InteriorLocation) (Assets, error) {
	out := make([]Asset, 0, len(as))
	for _, a := range as {
		ra, err := a.Reanchored(target, context)
		if err != nil {
			return nil, err
		}
		out = append(out, ra)
	}
	return NewAssets(out...)
}

// FilterKind tags the variant held by an AssetFilter.
type FilterKind uint8

const (
	// FilterDefinite selects an explicit set of assets.
	FilterDefinite FilterKind = iota + 1
	// FilterAll selects every asset.
	FilterAll
	// FilterAllOf selects every asset of one class.
	FilterAllOf
	// FilterAllCounted selects every asset, capped at a number of
	// distinct entries.
	FilterAllCounted
	// FilterAllOfCounted selects every asset of one class, capped at a
	// number of distinct entries.
	FilterAllOfCounted
)

// AssetFilter selects assets from a larger set, either by explicit listing
// or by wildcard.
type AssetFilter struct {
	Kind   FilterKind
	Assets Assets  // FilterDefinite
	ID     AssetID // FilterAllOf, FilterAllOfCounted
	Count  uint32  // FilterAllCounted, FilterAllOfCounted
}

// Definite returns a filter selecting exactly the given assets.
func Definite(assets Assets) AssetFilter {
	return AssetFilter{Kind: FilterDefinite, Assets: assets}
}

// AllAssets returns the wildcard filter selecting everything.
func AllAssets() AssetFilter {
	return AssetFilter{Kind: FilterAll}
}

// AllOf returns the wildcard filter selecting every asset of one class.
func AllOf(id AssetID) AssetFilter {
	return AssetFilter{Kind: FilterAllOf, ID: id}
}

// AllCounted returns the wildcard filter selecting everything, capped at
// count distinct entries.
func AllCounted(count uint32) AssetFilter {
	return AssetFilter{Kind: FilterAllCounted, Count: count}
}

// AllOfCounted returns the wildcard filter selecting every asset of one
// class, capped at count distinct entries.
func AllOfCounted(id AssetID, count uint32) AssetFilter {
	return AssetFilter{Kind: FilterAllOfCounted, ID: id, Count: count}
}

// IsDefinite returns true for explicit filters.
func (f AssetFilter) IsDefinite() bool {
	return f.Kind == FilterDefinite
}

// CountLimit returns the entry cap of a counted wildcard, or false when the
// filter is uncapped.
func (f AssetFilter) CountLimit() (uint32, bool) {
	switch f.Kind {
	case FilterAllCounted, FilterAllOfCounted:
		return f.Count, true
	default:
		return 0, false
	}
}

// MatchesID reports whether the filter admits assets of the given class.
func (f AssetFilter) MatchesID(id AssetID) bool {
	switch f.Kind {
	case FilterAll, FilterAllCounted:
		return true
	case FilterAllOf, FilterAllOfCounted:
		return f.ID.Equal(id)
	case FilterDefinite:
		for _, a := range f.Assets {
			if a.ID.Equal(id) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Reanchored re-expresses every location within the filter relative to
// target.
func (f AssetFilter) Reanchored(target Location, context InteriorLocation) (AssetFilter, error) {
	out := f
	switch f.Kind {
	case FilterDefinite:
		assets, err := f.Assets.Reanchored(target, context)
		if err != nil {
			return AssetFilter{}, err
		}
		out.Assets = assets
	case FilterAllOf, FilterAllOfCounted:
		id, err := f.ID.Reanchored(target, context)
		if err != nil {
			return AssetFilter{}, err
		}
		out.ID = id
	}
	return out, nil
}
