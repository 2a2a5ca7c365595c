package ledger

import (
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
)

// Locking moves fungible amounts from the owner's spendable balance into a
// lock record keyed by the unlocker. Locked amounts cannot be withdrawn or
// transferred until the same unlocker releases them. Non-fungible assets
// cannot be locked.

// lockTicket enacts a prepared lock-state change.
type lockTicket struct {
	apply func() error
}

func (t *lockTicket) Enact() error { return t.apply() }

// PrepareLock implements executor.AssetLocker.
func (l *Ledger) PrepareLock(unlocker xcm.Location, asset xcm.Asset, owner xcm.Location) (executor.LockTicket, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if !asset.IsFungible() {
		return nil, ErrNonFungibleLock
	}
	held, err := l.getUint64(balanceKey(owner, asset))
	if err != nil {
		return nil, err
	}
	if held < asset.Amount {
		return nil, ErrInsufficientBalance
	}
	return &lockTicket{apply: func() error {
		if err := l.debit(balanceKey(owner, asset), asset.Amount, ErrInsufficientBalance); err != nil {
			return err
		}
		return l.credit(lockKey(unlocker, owner, asset), asset.Amount)
	}}, nil
}

// PrepareUnlock implements executor.AssetLocker.
func (l *Ledger) PrepareUnlock(locker xcm.Location, asset xcm.Asset, owner xcm.Location) (executor.LockTicket, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if !asset.IsFungible() {
		return nil, ErrNonFungibleLock
	}
	locked, err := l.getUint64(lockKey(locker, owner, asset))
	if err != nil {
		return nil, err
	}
	if locked < asset.Amount {
		return nil, ErrInsufficientLocked
	}
	return &lockTicket{apply: func() error {
		if err := l.debit(lockKey(locker, owner, asset), asset.Amount, ErrInsufficientLocked); err != nil {
			return err
		}
		return l.credit(balanceKey(owner, asset), asset.Amount)
	}}, nil
}

// NoteUnlockable implements executor.AssetLocker.
func (l *Ledger) NoteUnlockable(locker xcm.Location, asset xcm.Asset, owner xcm.Location) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if !asset.IsFungible() {
		return ErrNonFungibleLock
	}
	return l.credit(noteKey(locker, owner, asset), asset.Amount)
}

// PrepareReduceUnlockable implements executor.AssetLocker.
func (l *Ledger) PrepareReduceUnlockable(locker xcm.Location, asset xcm.Asset, owner xcm.Location) (executor.LockTicket, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if !asset.IsFungible() {
		return nil, ErrNonFungibleLock
	}
	noted, err := l.getUint64(noteKey(locker, owner, asset))
	if err != nil {
		return nil, err
	}
	if noted < asset.Amount {
		return nil, ErrInsufficientLocked
	}
	return &lockTicket{apply: func() error {
		return l.debit(noteKey(locker, owner, asset), asset.Amount, ErrInsufficientLocked)
	}}, nil
}

// Locked returns the amount of one asset class locked by unlocker on
// owner's account.
func (l *Ledger) Locked(unlocker, owner xcm.Location, asset xcm.Asset) (uint64, error) {
	if l.closed.Load() {
		return 0, ErrClosed
	}
	return l.getUint64(lockKey(unlocker, owner, asset))
}

// Unlockable returns the amount of one asset class a remote locker holds
// unlockable for owner.
func (l *Ledger) Unlockable(locker, owner xcm.Location, asset xcm.Asset) (uint64, error) {
	if l.closed.Load() {
		return 0, ErrClosed
	}
	return l.getUint64(noteKey(locker, owner, asset))
}

var (
	_ executor.TransactAsset = (*Ledger)(nil)
	_ executor.AssetLocker   = (*Ledger)(nil)
)
