package executor

import (
	"math"
	"testing"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

func classAsset(para uint32, amount uint64) xcm.Asset {
	return xcm.NewFungibleAsset(xcm.NewLocation(1, xcm.Parachain(para)), amount)
}

func nftAsset(para uint32, index uint64) xcm.Asset {
	return xcm.NewNonFungibleAsset(xcm.NewLocation(1, xcm.Parachain(para)), xcm.IndexInstance(index))
}

func TestHoldingSubsumeFuses(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, 40))
	h.Subsume(classAsset(100, 60))
	h.Subsume(classAsset(200, 5))

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
	want := xcm.MustNewAssets(classAsset(100, 100), classAsset(200, 5))
	if got := h.Assets(); !got.Equal(want) {
		t.Errorf("Assets() = %v, want %v", got, want)
	}
}

func TestHoldingSubsumeSaturates(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, math.MaxUint64))
	h.Subsume(classAsset(100, 10))

	got := h.Assets()
	if got.Len() != 1 || got[0].Amount != math.MaxUint64 {
		t.Errorf("Assets() = %v, want one entry at max", got)
	}
}

func TestHoldingTryTakeDefinite(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, 100))

	taken, err := h.TryTake(xcm.Definite(xcm.MustNewAssets(classAsset(100, 30))))
	if err != nil {
		t.Fatalf("TryTake() error = %v", err)
	}
	if got := taken.Assets(); !got.Equal(xcm.MustNewAssets(classAsset(100, 30))) {
		t.Errorf("taken = %v, want 30", got)
	}
	if got := h.Assets(); !got.Equal(xcm.MustNewAssets(classAsset(100, 70))) {
		t.Errorf("remaining = %v, want 70", got)
	}
}

func TestHoldingTryTakeInsufficient(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, 20))

	_, err := h.TryTake(xcm.Definite(xcm.MustNewAssets(classAsset(100, 30))))
	if err != xcm.ErrAssetNotFound {
		t.Fatalf("TryTake() error = %v, want asset not found", err)
	}
	// The register must be untouched after a failed exact take.
	if got := h.Assets(); !got.Equal(xcm.MustNewAssets(classAsset(100, 20))) {
		t.Errorf("remaining = %v, want the original 20", got)
	}
}

func TestHoldingSaturatingTakeDefinite(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, 20))

	taken := h.SaturatingTake(xcm.Definite(xcm.MustNewAssets(classAsset(100, 30))))
	if got := taken.Assets(); !got.Equal(xcm.MustNewAssets(classAsset(100, 20))) {
		t.Errorf("taken = %v, want all 20", got)
	}
	if !h.IsEmpty() {
		t.Errorf("remaining = %v, want empty", h.Assets())
	}
}

func TestHoldingTakeAllCounted(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, 1))
	h.Subsume(classAsset(200, 2))
	h.Subsume(classAsset(300, 3))

	taken := h.SaturatingTake(xcm.AllCounted(2))
	if taken.Len() != 2 {
		t.Errorf("taken %d entries, want 2", taken.Len())
	}
	if h.Len() != 1 {
		t.Errorf("remaining %d entries, want 1", h.Len())
	}

	// A zero count takes nothing.
	rest := h.SaturatingTake(xcm.AllCounted(0))
	if !rest.IsEmpty() {
		t.Errorf("taken = %v, want nothing", rest.Assets())
	}
	if h.Len() != 1 {
		t.Errorf("remaining %d entries, want 1", h.Len())
	}
}

func TestHoldingTakeAllOf(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, 50))
	h.Subsume(nftAsset(100, 1))
	h.Subsume(nftAsset(100, 2))
	h.Subsume(classAsset(200, 5))

	id := xcm.NewAssetID(xcm.NewLocation(1, xcm.Parachain(100)))
	taken := h.SaturatingTake(xcm.AllOf(id))
	if taken.Len() != 3 {
		t.Errorf("taken %d entries, want fungible and both instances", taken.Len())
	}
	if got := h.Assets(); !got.Equal(xcm.MustNewAssets(classAsset(200, 5))) {
		t.Errorf("remaining = %v, want only the other class", got)
	}
}

func TestHoldingTakeAllOfCounted(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, 50))
	h.Subsume(nftAsset(100, 1))
	h.Subsume(nftAsset(100, 2))

	id := xcm.NewAssetID(xcm.NewLocation(1, xcm.Parachain(100)))
	taken := h.SaturatingTake(xcm.AllOfCounted(id, 2))
	if taken.Len() != 2 {
		t.Errorf("taken %d entries, want 2", taken.Len())
	}
	if h.Len() != 1 {
		t.Errorf("remaining %d entries, want 1", h.Len())
	}
}

func TestHoldingMinDoesNotMutate(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, 100))

	got := h.Min(xcm.Definite(xcm.MustNewAssets(classAsset(100, 250))))
	if !got.Equal(xcm.MustNewAssets(classAsset(100, 100))) {
		t.Errorf("Min() = %v, want the held 100", got)
	}
	if got := h.Assets(); !got.Equal(xcm.MustNewAssets(classAsset(100, 100))) {
		t.Errorf("register after Min = %v, want unchanged", got)
	}
}

func TestHoldingEnsureContains(t *testing.T) {
	h := NewHolding()
	h.Subsume(classAsset(100, 100))
	h.Subsume(nftAsset(200, 7))

	ok := xcm.MustNewAssets(classAsset(100, 40), nftAsset(200, 7))
	if err := h.EnsureContains(ok); err != nil {
		t.Errorf("EnsureContains(%v) = %v, want nil", ok, err)
	}
	missing := xcm.MustNewAssets(nftAsset(200, 8))
	if err := h.EnsureContains(missing); err != xcm.ErrExpectationFalse {
		t.Errorf("EnsureContains(%v) = %v, want expectation false", missing, err)
	}
}

func TestHoldingNonFungibleTake(t *testing.T) {
	h := NewHolding()
	h.Subsume(nftAsset(100, 1))
	h.Subsume(nftAsset(100, 1))

	// Instances do not fuse; the same unit held twice is one entry.
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	taken, err := h.TryTake(xcm.Definite(xcm.MustNewAssets(nftAsset(100, 1))))
	if err != nil {
		t.Fatalf("TryTake() error = %v", err)
	}
	if taken.Len() != 1 || !h.IsEmpty() {
		t.Errorf("taken %d entries, remaining %d, want 1 and 0", taken.Len(), h.Len())
	}
}

func TestHoldingReanchoredSplitsFailures(t *testing.T) {
	context := xcm.Interior(xcm.GlobalConsensus(xcm.X1Network()), xcm.Parachain(1000))
	target := xcm.NewLocation(1, xcm.Parachain(2000))

	h := NewHolding()
	h.Subsume(xcm.NewFungibleAsset(xcm.Parent(), 10))

	ok, failed := h.Reanchored(target, context)
	if len(failed) != 0 {
		t.Fatalf("failed = %v, want none", failed)
	}
	if !ok.Equal(xcm.MustNewAssets(xcm.NewFungibleAsset(xcm.Parent(), 10))) {
		t.Errorf("reanchored = %v, want parent asset unchanged", ok)
	}
}
