// Package trader provides weight traders converting assets into execution
// weight.
package trader

import (
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

// Rate prices weight in units of one asset class.
type Rate struct {
	// RefTimePerToken is how much computation one token buys.
	RefTimePerToken uint64

	// ProofSizePerToken is how much proof size one token buys.
	ProofSizePerToken uint64
}

// FixedRate sells weight for a single asset class at a fixed rate. One
// instance serves one message execution; it remembers what was bought so
// surplus can be refunded. It implements executor.WeightTrader.
type FixedRate struct {
	id   xcm.AssetID
	rate Rate

	bought xcm.Weight
	spent  uint64
}

// NewFixedRate returns a trader selling weight for the given asset class.
func NewFixedRate(id xcm.AssetID, rate Rate) *FixedRate {
	if rate.RefTimePerToken == 0 {
		rate.RefTimePerToken = 1
	}
	if rate.ProofSizePerToken == 0 {
		rate.ProofSizePerToken = 1
	}
	return &FixedRate{id: id, rate: rate}
}

// amountFor prices a weight, rounding up per component.
func (t *FixedRate) amountFor(w xcm.Weight) uint64 {
	refCost := ceilDiv(w.RefTime, t.rate.RefTimePerToken)
	proofCost := ceilDiv(w.ProofSize, t.rate.ProofSizePerToken)
	sum := refCost + proofCost
	if sum < refCost {
		return ^uint64(0)
	}
	return sum
}

// BuyWeight implements executor.WeightTrader. Payment must include enough
// of the trader's asset class; the unspent remainder is returned.
func (t *FixedRate) BuyWeight(weight xcm.Weight, payment xcm.Assets) (xcm.Assets, error) {
	cost := t.amountFor(weight)
	var unspent []xcm.Asset
	paid := false
	for _, a := range payment {
		if !paid && a.IsFungible() && a.ID.Equal(t.id) {
			if a.Amount < cost {
				return nil, xcm.ErrTooExpensive
			}
			paid = true
			if change := a.Amount - cost; change > 0 {
				rest := a
				rest.Amount = change
				unspent = append(unspent, rest)
			}
			continue
		}
		unspent = append(unspent, a)
	}
	if !paid {
		if cost == 0 {
			return payment, nil
		}
		return nil, xcm.ErrTooExpensive
	}
	t.bought = t.bought.Add(weight)
	t.spent += cost
	return xcm.NewAssets(unspent...)
}

// RefundWeight implements executor.WeightTrader. The refund is capped by
// what was actually bought and spent.
func (t *FixedRate) RefundWeight(weight xcm.Weight) (xcm.Asset, bool) {
	if t.spent == 0 {
		return xcm.Asset{}, false
	}
	w := weight
	if w.RefTime > t.bought.RefTime {
		w.RefTime = t.bought.RefTime
	}
	if w.ProofSize > t.bought.ProofSize {
		w.ProofSize = t.bought.ProofSize
	}
	amount := t.amountFor(w)
	if amount > t.spent {
		amount = t.spent
	}
	if amount == 0 {
		return xcm.Asset{}, false
	}
	t.spent -= amount
	t.bought = t.bought.Sub(w)
	return xcm.Asset{ID: t.id, Amount: amount}, true
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}
