// Package policy provides reference trust and fee policies for the
// executor: case tables mapping asset filters to trusted origins, the
// native-asset reserve rule, and a configurable fee manager.
package policy

import (
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

// NativeAsset trusts every location as the reserve for its own asset: an
// asset is accepted from origin when its class is issued at origin.
type NativeAsset struct{}

// IsReserve implements executor.ReservePolicy.
func (NativeAsset) IsReserve(asset xcm.Asset, origin xcm.Location) bool {
	return asset.ID.Location.Equal(origin)
}

// Case pairs an asset filter with the one origin trusted for the assets it
// admits.
type Case struct {
	Assets xcm.AssetFilter
	Origin xcm.Location
}

func (c Case) matches(asset xcm.Asset, origin xcm.Location) bool {
	return origin.Equal(c.Origin) && c.Assets.MatchesID(asset.ID)
}

// TrustedReserves is a case table implementing executor.ReservePolicy. The
// empty table trusts nobody.
type TrustedReserves []Case

// IsReserve implements executor.ReservePolicy.
func (t TrustedReserves) IsReserve(asset xcm.Asset, origin xcm.Location) bool {
	for _, c := range t {
		if c.matches(asset, origin) {
			return true
		}
	}
	return false
}

// TrustedTeleporters is a case table implementing executor.TeleportPolicy.
type TrustedTeleporters []Case

// IsTeleporter implements executor.TeleportPolicy.
func (t TrustedTeleporters) IsTeleporter(asset xcm.Asset, origin xcm.Location) bool {
	for _, c := range t {
		if c.matches(asset, origin) {
			return true
		}
	}
	return false
}

// AnyReserve admits a reserve claim when any member policy does.
type AnyReserve []executor.ReservePolicy

// IsReserve implements executor.ReservePolicy.
func (ps AnyReserve) IsReserve(asset xcm.Asset, origin xcm.Location) bool {
	for _, p := range ps {
		if p.IsReserve(asset, origin) {
			return true
		}
	}
	return false
}

// FeeManager waives fees for listed origins and hands everything else to a
// sink. A nil sink burns the fees.
type FeeManager struct {
	// WaivedOrigins owe no fees. Fees with no origin are never waived.
	WaivedOrigins []xcm.Location

	// Sink receives collected fees.
	Sink func(fees xcm.Assets, reason executor.FeeReason)
}

// IsWaived implements executor.FeeManager.
func (m FeeManager) IsWaived(origin *xcm.Location, _ executor.FeeReason) bool {
	if origin == nil {
		return false
	}
	for _, loc := range m.WaivedOrigins {
		if loc.Equal(*origin) {
			return true
		}
	}
	return false
}

// HandleFee implements executor.FeeManager.
func (m FeeManager) HandleFee(fees xcm.Assets, reason executor.FeeReason) {
	if m.Sink != nil {
		m.Sink(fees, reason)
	}
}

// ResponseFunc adapts a function to executor.ResponseHandler.
type ResponseFunc func(origin xcm.Location, queryID uint64, querier *xcm.Location, response xcm.Response, maxWeight xcm.Weight) xcm.Weight

// OnResponse implements executor.ResponseHandler.
func (f ResponseFunc) OnResponse(origin xcm.Location, queryID uint64, querier *xcm.Location, response xcm.Response, maxWeight xcm.Weight) xcm.Weight {
	if f == nil {
		return xcm.Weight{}
	}
	return f(origin, queryID, querier, response, maxWeight)
}

var (
	_ executor.ReservePolicy   = NativeAsset{}
	_ executor.ReservePolicy   = TrustedReserves(nil)
	_ executor.ReservePolicy   = AnyReserve(nil)
	_ executor.TeleportPolicy  = TrustedTeleporters(nil)
	_ executor.FeeManager      = FeeManager{}
	_ executor.ResponseHandler = ResponseFunc(nil)
)
