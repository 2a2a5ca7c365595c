package xcm

import (
	"testing"
)

func nativeAsset(amount uint64) Asset {
	return NewFungibleAsset(Parent(), amount)
}

func TestNewAssetsFusesFungibles(t *testing.T) {
	got, err := NewAssets(nativeAsset(10), nativeAsset(32))
	if err != nil {
		t.Fatalf("NewAssets() error = %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", got.Len())
	}
	if got[0].Amount != 42 {
		t.Errorf("Amount = %d, want 42", got[0].Amount)
	}
}

func TestNewAssetsOverflow(t *testing.T) {
	if _, err := NewAssets(nativeAsset(^uint64(0)), nativeAsset(1)); err != ErrOverflow {
		t.Errorf("NewAssets() error = %v, want %v", err, ErrOverflow)
	}
}

func TestNewAssetsDropsZero(t *testing.T) {
	got, err := NewAssets(nativeAsset(0))
	if err != nil {
		t.Fatalf("NewAssets() error = %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestNewAssetsCanonicalOrder(t *testing.T) {
	a := NewFungibleAsset(NewLocation(0, Parachain(2)), 1)
	b := NewFungibleAsset(NewLocation(0, Parachain(1)), 1)
	nft := NewNonFungibleAsset(NewLocation(0, Parachain(1)), IndexInstance(7))

	first, err := NewAssets(a, b, nft)
	if err != nil {
		t.Fatalf("NewAssets() error = %v", err)
	}
	second, err := NewAssets(nft, b, a)
	if err != nil {
		t.Fatalf("NewAssets() error = %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("order dependent: %v vs %v", first, second)
	}
}

func TestAssetFilterMatchesID(t *testing.T) {
	native := NewAssetID(Parent())
	sibling := NewAssetID(NewLocation(1, Parachain(2000)))

	tests := []struct {
		name   string
		filter AssetFilter
		id     AssetID
		want   bool
	}{
		{"all matches anything", AllAssets(), sibling, true},
		{"all-of same class", AllOf(native), native, true},
		{"all-of other class", AllOf(native), sibling, false},
		{"definite listed", Definite(MustNewAssets(nativeAsset(5))), native, true},
		{"definite unlisted", Definite(MustNewAssets(nativeAsset(5))), sibling, false},
		{"counted wildcard", AllCounted(1), native, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.MatchesID(tt.id); got != tt.want {
				t.Errorf("MatchesID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssetReanchored(t *testing.T) {
	context := Interior(GlobalConsensus(X1Network()), Parachain(1000))
	target := NewLocation(1, Parachain(2000))

	local := NewFungibleAsset(LocationHere(), 100)
	got, err := local.Reanchored(target, context)
	if err != nil {
		t.Fatalf("Reanchored() error = %v", err)
	}
	want := NewFungibleAsset(NewLocation(1, Parachain(1000)), 100)
	if !got.Equal(want) {
		t.Errorf("Reanchored() = %v, want %v", got, want)
	}
	if got.Amount != 100 {
		t.Errorf("Amount changed to %d", got.Amount)
	}
}
