package trader

import (
	"testing"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

func feeID() xcm.AssetID {
	return xcm.NewAssetID(xcm.Parent())
}

func payment(amount uint64) xcm.Assets {
	return xcm.MustNewAssets(xcm.NewFungibleAsset(xcm.Parent(), amount))
}

func TestBuyWeightReturnsChange(t *testing.T) {
	tr := NewFixedRate(feeID(), Rate{RefTimePerToken: 10, ProofSizePerToken: 1})

	// 100 ref time at 10 per token plus 3 proof size at 1 per token.
	unspent, err := tr.BuyWeight(xcm.NewWeight(100, 3), payment(50))
	if err != nil {
		t.Fatalf("BuyWeight() error = %v", err)
	}
	if !unspent.Equal(payment(37)) {
		t.Errorf("unspent = %v, want 37", unspent)
	}
}

func TestBuyWeightRoundsUp(t *testing.T) {
	tr := NewFixedRate(feeID(), Rate{RefTimePerToken: 10, ProofSizePerToken: 1})

	// 101 ref time needs 11 tokens.
	if _, err := tr.BuyWeight(xcm.NewWeight(101, 0), payment(10)); err != xcm.ErrTooExpensive {
		t.Fatalf("BuyWeight() error = %v, want too expensive", err)
	}
	unspent, err := tr.BuyWeight(xcm.NewWeight(101, 0), payment(11))
	if err != nil {
		t.Fatalf("BuyWeight() error = %v", err)
	}
	if unspent.Len() != 0 {
		t.Errorf("unspent = %v, want none", unspent)
	}
}

func TestBuyWeightWrongAsset(t *testing.T) {
	tr := NewFixedRate(feeID(), Rate{RefTimePerToken: 1, ProofSizePerToken: 1})
	other := xcm.MustNewAssets(xcm.NewFungibleAsset(xcm.NewLocation(1, xcm.Parachain(500)), 100))

	if _, err := tr.BuyWeight(xcm.NewWeight(10, 0), other); err != xcm.ErrTooExpensive {
		t.Errorf("BuyWeight() error = %v, want too expensive", err)
	}
}

func TestBuyWeightPassesOtherAssetsThrough(t *testing.T) {
	tr := NewFixedRate(feeID(), Rate{RefTimePerToken: 1, ProofSizePerToken: 1})
	other := xcm.NewFungibleAsset(xcm.NewLocation(1, xcm.Parachain(500)), 100)
	mixed := xcm.MustNewAssets(xcm.NewFungibleAsset(xcm.Parent(), 40), other)

	unspent, err := tr.BuyWeight(xcm.NewWeight(40, 0), mixed)
	if err != nil {
		t.Fatalf("BuyWeight() error = %v", err)
	}
	if !unspent.Equal(xcm.MustNewAssets(other)) {
		t.Errorf("unspent = %v, want only the foreign asset", unspent)
	}
}

func TestRefundWeightCaps(t *testing.T) {
	tr := NewFixedRate(feeID(), Rate{RefTimePerToken: 1, ProofSizePerToken: 1})

	if _, ok := tr.RefundWeight(xcm.NewWeight(10, 0)); ok {
		t.Fatal("RefundWeight() before any purchase succeeded")
	}

	if _, err := tr.BuyWeight(xcm.NewWeight(100, 0), payment(100)); err != nil {
		t.Fatalf("BuyWeight() error = %v", err)
	}

	// Asking for more than was bought refunds only what was bought.
	refund, ok := tr.RefundWeight(xcm.NewWeight(250, 0))
	if !ok {
		t.Fatal("RefundWeight() failed")
	}
	if refund.Amount != 100 || !refund.ID.Equal(feeID()) {
		t.Errorf("refund = %v, want 100 of the fee asset", refund)
	}

	// Everything is refunded; a second refund yields nothing.
	if _, ok := tr.RefundWeight(xcm.NewWeight(1, 0)); ok {
		t.Error("second RefundWeight() succeeded, want failure")
	}
}

func TestRefundWeightPartial(t *testing.T) {
	tr := NewFixedRate(feeID(), Rate{RefTimePerToken: 1, ProofSizePerToken: 1})
	if _, err := tr.BuyWeight(xcm.NewWeight(100, 0), payment(100)); err != nil {
		t.Fatalf("BuyWeight() error = %v", err)
	}

	refund, ok := tr.RefundWeight(xcm.NewWeight(30, 0))
	if !ok || refund.Amount != 30 {
		t.Fatalf("first refund = %v, %v, want 30", refund, ok)
	}
	refund, ok = tr.RefundWeight(xcm.NewWeight(100, 0))
	if !ok || refund.Amount != 70 {
		t.Errorf("second refund = %v, %v, want the remaining 70", refund, ok)
	}
}
