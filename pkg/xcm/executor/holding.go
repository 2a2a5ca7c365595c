package executor

import (
	"sort"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

// Holding is the asset register of one execution. Unlike xcm.Assets it is
// mutable and optimised for repeated subsume and take operations. Entries
// are keyed canonically so iteration order is deterministic.
type Holding struct {
	// fungible maps the canonical class key to the held asset; Amount
	// carries the balance.
	fungible map[string]xcm.Asset

	// nonFungible maps the canonical entry key to the held unit.
	nonFungible map[string]xcm.Asset
}

// NewHolding returns an empty holding register.
func NewHolding() *Holding {
	return &Holding{
		fungible:    make(map[string]xcm.Asset),
		nonFungible: make(map[string]xcm.Asset),
	}
}

// HoldingFromAssets returns a holding register containing the given
// canonical set.
func HoldingFromAssets(assets xcm.Assets) *Holding {
	h := NewHolding()
	h.SubsumeAssets(assets)
	return h
}

// Len returns the number of distinct entries.
func (h *Holding) Len() int {
	return len(h.fungible) + len(h.nonFungible)
}

// IsEmpty returns true if nothing is held.
func (h *Holding) IsEmpty() bool {
	return h.Len() == 0
}

// Clone returns a deep copy.
func (h *Holding) Clone() *Holding {
	out := NewHolding()
	for k, v := range h.fungible {
		out.fungible[k] = v
	}
	for k, v := range h.nonFungible {
		out.nonFungible[k] = v
	}
	return out
}

// Subsume merges one asset into the register. Fungible amounts of the same
// class fuse, saturating at the maximum representable amount.
func (h *Holding) Subsume(a xcm.Asset) {
	if a.IsFungible() {
		if a.Amount == 0 {
			return
		}
		key := string(a.ID.EncodeKey())
		if have, ok := h.fungible[key]; ok {
			sum := have.Amount + a.Amount
			if sum < have.Amount {
				sum = ^uint64(0)
			}
			have.Amount = sum
			h.fungible[key] = have
			return
		}
		h.fungible[key] = a
		return
	}
	h.nonFungible[string(a.EncodeKey())] = a
}

// SubsumeAssets merges a whole set into the register.
func (h *Holding) SubsumeAssets(assets xcm.Assets) {
	for _, a := range assets {
		h.Subsume(a)
	}
}

// SubsumeHolding merges another holding register into this one.
func (h *Holding) SubsumeHolding(other *Holding) {
	for _, a := range other.fungible {
		h.Subsume(a)
	}
	for _, a := range other.nonFungible {
		h.Subsume(a)
	}
}

// Assets returns the contents as a canonical set.
func (h *Holding) Assets() xcm.Assets {
	out := make([]xcm.Asset, 0, h.Len())
	for _, a := range h.fungible {
		out = append(out, a)
	}
	for _, a := range h.nonFungible {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].EncodeKey()) < string(out[j].EncodeKey())
	})
	return xcm.Assets(out)
}

// ContainsAsset returns true if the register holds at least the given
// asset.
func (h *Holding) ContainsAsset(a xcm.Asset) bool {
	if a.IsFungible() {
		have, ok := h.fungible[string(a.ID.EncodeKey())]
		return ok && have.Amount >= a.Amount
	}
	_, ok := h.nonFungible[string(a.EncodeKey())]
	return ok
}

// ContainsClass returns true if any entry of the given class is held.
func (h *Holding) ContainsClass(id xcm.AssetID) bool {
	if _, ok := h.fungible[string(id.EncodeKey())]; ok {
		return true
	}
	for _, a := range h.nonFungible {
		if a.ID.Equal(id) {
			return true
		}
	}
	return false
}

// EnsureContains returns an error unless every asset of the set is fully
// held.
func (h *Holding) EnsureContains(assets xcm.Assets) error {
	for _, a := range assets {
		if !h.ContainsAsset(a) {
			return xcm.ErrExpectationFalse
		}
	}
	return nil
}

// sortedFungibleKeys returns the fungible keys in canonical order.
func (h *Holding) sortedFungibleKeys() []string {
	keys := make([]string, 0, len(h.fungible))
	for k := range h.fungible {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (h *Holding) sortedNonFungibleKeys() []string {
	keys := make([]string, 0, len(h.nonFungible))
	for k := range h.nonFungible {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// takeFungible moves up to amount of one class into out, returning the
// amount actually taken.
func (h *Holding) takeFungible(out *Holding, key string, amount uint64) uint64 {
	have, ok := h.fungible[key]
	if !ok {
		return 0
	}
	taken := amount
	if taken > have.Amount {
		taken = have.Amount
	}
	if taken == have.Amount {
		delete(h.fungible, key)
	} else {
		have.Amount -= taken
		h.fungible[key] = have
	}
	got := have
	got.Amount = taken
	out.Subsume(got)
	return taken
}

// generalTake implements both exact and saturating removal by filter. When
// saturate is false the whole operation fails without mutation if any
// definite asset is not fully held.
func (h *Holding) generalTake(filter xcm.AssetFilter, saturate bool) (*Holding, error) {
	out := NewHolding()
	switch filter.Kind {
	case xcm.FilterDefinite:
		if !saturate {
			if err := h.EnsureContains(filter.Assets); err != nil {
				return nil, xcm.ErrAssetNotFound
			}
		}
		for _, a := range filter.Assets {
			if a.IsFungible() {
				h.takeFungible(out, string(a.ID.EncodeKey()), a.Amount)
			} else {
				key := string(a.EncodeKey())
				if unit, ok := h.nonFungible[key]; ok {
					delete(h.nonFungible, key)
					out.Subsume(unit)
				}
			}
		}
	case xcm.FilterAll, xcm.FilterAllCounted:
		limit, counted := filter.CountLimit()
		taken := uint32(0)
		for _, k := range h.sortedFungibleKeys() {
			if counted && taken >= limit {
				break
			}
			out.Subsume(h.fungible[k])
			delete(h.fungible, k)
			taken++
		}
		for _, k := range h.sortedNonFungibleKeys() {
			if counted && taken >= limit {
				break
			}
			out.Subsume(h.nonFungible[k])
			delete(h.nonFungible, k)
			taken++
		}
	case xcm.FilterAllOf, xcm.FilterAllOfCounted:
		limit, counted := filter.CountLimit()
		taken := uint32(0)
		classKey := string(filter.ID.EncodeKey())
		if a, ok := h.fungible[classKey]; ok && (!counted || taken < limit) {
			out.Subsume(a)
			delete(h.fungible, classKey)
			taken++
		}
		for _, k := range h.sortedNonFungibleKeys() {
			if counted && taken >= limit {
				break
			}
			a := h.nonFungible[k]
			if !a.ID.Equal(filter.ID) {
				continue
			}
			out.Subsume(a)
			delete(h.nonFungible, k)
			taken++
		}
	default:
		return nil, xcm.ErrAssetNotFound
	}
	return out, nil
}

// SaturatingTake removes whatever matches the filter, up to what is held.
func (h *Holding) SaturatingTake(filter xcm.AssetFilter) *Holding {
	out, _ := h.generalTake(filter, true)
	return out
}

// TryTake removes exactly what the filter demands, failing without
// mutation if a definite asset is not fully held.
func (h *Holding) TryTake(filter xcm.AssetFilter) (*Holding, error) {
	return h.generalTake(filter, false)
}

// Min returns the intersection of the register with the filter, without
// removing anything.
func (h *Holding) Min(filter xcm.AssetFilter) xcm.Assets {
	probe := h.Clone()
	taken := probe.SaturatingTake(filter)
	return taken.Assets()
}

// Reanchored re-expresses every held asset relative to target, returning
// the result in canonical order along with any assets that could not be
// reanchored.
func (h *Holding) Reanchored(target xcm.Location, context xcm.InteriorLocation) (xcm.Assets, xcm.Assets) {
	ok := make([]xcm.Asset, 0, h.Len())
	var failed []xcm.Asset
	for _, a := range h.Assets() {
		ra, err := a.Reanchored(target, context)
		if err != nil {
			failed = append(failed, a)
			continue
		}
		ok = append(ok, ra)
	}
	out, err := xcm.NewAssets(ok...)
	if err != nil {
		return nil, h.Assets()
	}
	return out, xcm.Assets(failed)
}
