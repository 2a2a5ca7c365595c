// Package ledger implements the BadgerDB-backed asset ledger.
//
// The ledger stores fungible balances and non-fungible holdings per
// location, the amounts checked out for teleportation per asset class, and
// asset locks. It is the concrete asset transactor behind the message
// interpreter: every WithdrawAsset, DepositAsset and TransferAsset
// ultimately lands here.
//
// Accounts are keyed by the sovereign account of a location, a BLAKE3
// digest of its canonical encoding. Two locations that encode identically
// share an account, so reanchoring must happen before the ledger is
// touched.
package ledger

import (
	"errors"

	"github.com/fortiblox/X1-Conduit/internal/types"
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

var (
	// ErrInsufficientBalance is returned when a withdrawal exceeds the
	// held amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotCheckedOut is returned when a teleport check-in exceeds what
	// was checked out.
	ErrNotCheckedOut = errors.New("asset not checked out")

	// ErrInsufficientLocked is returned when an unlock exceeds the locked
	// amount.
	ErrInsufficientLocked = errors.New("insufficient locked amount")

	// ErrNonFungibleLock is returned when locking a non-fungible asset,
	// which the ledger does not support.
	ErrNonFungibleLock = errors.New("cannot lock non-fungible asset")

	// ErrClosed is returned when operating on a closed ledger.
	ErrClosed = errors.New("ledger closed")
)

// SovereignAccount derives the account identifier controlled by a location.
func SovereignAccount(loc xcm.Location) types.AccountID {
	return types.AccountID(types.HashBytes(xcm.EncodeLocation(loc)))
}

// balanceKey identifies one asset entry of one account. Fungible entries
// are keyed by asset class, non-fungible entries by class and instance.
func balanceKey(who xcm.Location, a xcm.Asset) []byte {
	account := SovereignAccount(who)
	entry := a.EncodeKey()
	key := make([]byte, 0, 1+len(account)+len(entry))
	key = append(key, prefixBalance...)
	key = append(key, account[:]...)
	key = append(key, entry...)
	return key
}

// teleportKey identifies the checked-out amount of one asset class.
func teleportKey(a xcm.Asset) []byte {
	entry := a.EncodeKey()
	key := make([]byte, 0, 1+len(entry))
	key = append(key, prefixTeleport...)
	key = append(key, entry...)
	return key
}

// lockKey identifies the amount of one asset class locked by one owner on
// behalf of one unlocker.
func lockKey(unlocker, owner xcm.Location, a xcm.Asset) []byte {
	u := SovereignAccount(unlocker)
	o := SovereignAccount(owner)
	entry := a.EncodeKey()
	key := make([]byte, 0, 1+len(u)+len(o)+len(entry))
	key = append(key, prefixLock...)
	key = append(key, u[:]...)
	key = append(key, o[:]...)
	key = append(key, entry...)
	return key
}

// noteKey identifies the amount of one asset class a remote locker has
// reported as locked for a local owner.
func noteKey(locker, owner xcm.Location, a xcm.Asset) []byte {
	l := SovereignAccount(locker)
	o := SovereignAccount(owner)
	entry := a.EncodeKey()
	key := make([]byte, 0, 1+len(l)+len(o)+len(entry))
	key = append(key, prefixNote...)
	key = append(key, l[:]...)
	key = append(key, o[:]...)
	key = append(key, entry...)
	return key
}
