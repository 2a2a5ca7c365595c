package policy

import (
	"testing"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

var (
	relay    = xcm.Parent()
	sibling  = xcm.NewLocation(1, xcm.Parachain(2000))
	stranger = xcm.NewLocation(1, xcm.Parachain(9999))
)

func TestNativeAssetReserve(t *testing.T) {
	p := NativeAsset{}

	if !p.IsReserve(xcm.NewFungibleAsset(relay, 100), relay) {
		t.Error("relay refused as reserve for its own asset")
	}
	if p.IsReserve(xcm.NewFungibleAsset(relay, 100), sibling) {
		t.Error("sibling accepted as reserve for a relay asset")
	}
}

func TestTrustedReservesTable(t *testing.T) {
	table := TrustedReserves{
		{Assets: xcm.AllOf(xcm.NewAssetID(relay)), Origin: relay},
		{Assets: xcm.AllAssets(), Origin: sibling},
	}

	cases := []struct {
		name   string
		asset  xcm.Asset
		origin xcm.Location
		want   bool
	}{
		{"relay asset from relay", xcm.NewFungibleAsset(relay, 1), relay, true},
		{"sibling asset from relay", xcm.NewFungibleAsset(sibling, 1), relay, false},
		{"anything from sibling", xcm.NewFungibleAsset(relay, 1), sibling, true},
		{"anything from stranger", xcm.NewFungibleAsset(relay, 1), stranger, false},
	}
	for _, tc := range cases {
		if got := table.IsReserve(tc.asset, tc.origin); got != tc.want {
			t.Errorf("%s: IsReserve = %v, want %v", tc.name, got, tc.want)
		}
	}

	if TrustedReserves(nil).IsReserve(xcm.NewFungibleAsset(relay, 1), relay) {
		t.Error("empty table trusted an origin")
	}
}

func TestTrustedTeleporters(t *testing.T) {
	table := TrustedTeleporters{
		{Assets: xcm.AllOf(xcm.NewAssetID(relay)), Origin: sibling},
	}

	if !table.IsTeleporter(xcm.NewFungibleAsset(relay, 1), sibling) {
		t.Error("listed teleporter refused")
	}
	if table.IsTeleporter(xcm.NewFungibleAsset(sibling, 1), sibling) {
		t.Error("unlisted asset class accepted")
	}
}

func TestAnyReserve(t *testing.T) {
	p := AnyReserve{
		TrustedReserves{{Assets: xcm.AllAssets(), Origin: sibling}},
		NativeAsset{},
	}

	if !p.IsReserve(xcm.NewFungibleAsset(relay, 1), relay) {
		t.Error("native rule not consulted")
	}
	if !p.IsReserve(xcm.NewFungibleAsset(relay, 1), sibling) {
		t.Error("table rule not consulted")
	}
	if p.IsReserve(xcm.NewFungibleAsset(relay, 1), stranger) {
		t.Error("stranger accepted")
	}
}

func TestFeeManagerWaiving(t *testing.T) {
	var handled xcm.Assets
	m := FeeManager{
		WaivedOrigins: []xcm.Location{sibling},
		Sink: func(fees xcm.Assets, _ executor.FeeReason) {
			handled = fees
		},
	}

	if !m.IsWaived(&sibling, executor.FeeReasonChargeFees) {
		t.Error("waived origin charged")
	}
	if m.IsWaived(&stranger, executor.FeeReasonChargeFees) {
		t.Error("stranger waived")
	}
	if m.IsWaived(nil, executor.FeeReasonChargeFees) {
		t.Error("cleared origin waived")
	}

	fees := xcm.MustNewAssets(xcm.NewFungibleAsset(relay, 7))
	m.HandleFee(fees, executor.FeeReasonChargeFees)
	if len(handled) != 1 || handled[0].Amount != 7 {
		t.Errorf("sink got %v, want the 7-unit fee", handled)
	}

	// Nil sink burns silently.
	FeeManager{}.HandleFee(fees, executor.FeeReasonChargeFees)
}
