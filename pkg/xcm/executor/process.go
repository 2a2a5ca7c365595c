package executor

import (
	"bytes"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

// processInstruction executes a single instruction against the machine
// state. The recursion counter lives on the Executor so that re-entrant
// execution through a dispatched call counts against the same budget.
func (m *vm) processInstruction(instr xcm.Instruction) error {
	if m.x.recursion >= m.x.cfg.MaxRecursionDepth {
		return xcm.ErrExceedsStackLimit
	}
	m.x.recursion++
	defer func() { m.x.recursion-- }()

	switch v := instr.(type) {
	case xcm.WithdrawAsset:
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		if err := m.ensureCanSubsume(v.Assets.Len()); err != nil {
			return err
		}
		return m.transactionalHolding(func() error {
			for _, a := range v.Assets {
				if err := m.x.cfg.AssetTransactor.Withdraw(a, origin); err != nil {
					return xcm.AsError(err, xcm.CodeFailedToTransactAsset)
				}
				m.holding.Subsume(a)
			}
			return nil
		})

	case xcm.ReserveAssetDeposited:
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		for _, a := range v.Assets {
			if !m.x.cfg.Reserves.IsReserve(a, origin) {
				return xcm.ErrUntrustedReserveLocation
			}
		}
		if err := m.ensureCanSubsume(v.Assets.Len()); err != nil {
			return err
		}
		m.holding.SubsumeAssets(v.Assets)
		return nil

	case xcm.ReceiveTeleportedAsset:
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		for _, a := range v.Assets {
			if !m.x.cfg.Teleporters.IsTeleporter(a, origin) {
				return xcm.ErrUntrustedTeleportLocation
			}
		}
		if err := m.ensureCanSubsume(v.Assets.Len()); err != nil {
			return err
		}
		return m.transactionalHolding(func() error {
			for _, a := range v.Assets {
				if err := m.x.cfg.AssetTransactor.CanCheckIn(origin, a); err != nil {
					return xcm.AsError(err, xcm.CodeFailedToTransactAsset)
				}
			}
			for _, a := range v.Assets {
				m.x.cfg.AssetTransactor.CheckIn(origin, a)
				m.holding.Subsume(a)
			}
			return nil
		})

	case xcm.TransferAsset:
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		return m.transactionalHolding(func() error {
			for _, a := range v.Assets {
				if err := m.x.cfg.AssetTransactor.Transfer(a, origin, v.Beneficiary); err != nil {
					return xcm.AsError(err, xcm.CodeFailedToTransactAsset)
				}
			}
			return nil
		})

	case xcm.TransferReserveAsset:
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		return m.transactionalHolding(func() error {
			for _, a := range v.Assets {
				if err := m.x.cfg.AssetTransactor.Transfer(a, origin, v.Dest); err != nil {
					return xcm.AsError(err, xcm.CodeFailedToTransactAsset)
				}
			}
			reanchored, err := v.Assets.Reanchored(v.Dest, m.x.cfg.UniversalLocation)
			if err != nil {
				return xcm.ErrReanchorFailed
			}
			msg := subMessage(xcm.ReserveAssetDeposited{Assets: reanchored}, v.XCM)
			_, err = m.send(v.Dest, msg, FeeReasonTransferReserveAsset)
			return err
		})

	case xcm.Transact:
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		if !m.x.cfg.Dispatcher.IsCallAllowed(origin, v.OriginKind, v.Call) {
			return xcm.ErrNoPermission
		}
		callWeight, err := m.x.cfg.Dispatcher.WeighCall(v.Call)
		if err != nil {
			return xcm.ErrFailedToDecode
		}
		if callWeight.AnyGreater(v.RequireWeightAtMost) {
			return xcm.ErrMaxWeightInvalid
		}
		used, dispatchErr := m.x.cfg.Dispatcher.Dispatch(origin, v.OriginKind, v.Call, v.RequireWeightAtMost)
		if used.AnyGreater(v.RequireWeightAtMost) {
			used = v.RequireWeightAtMost
		}
		m.totalSurplus = m.totalSurplus.Add(v.RequireWeightAtMost.Sub(used))
		if dispatchErr == nil {
			m.transactStatus = xcm.TransactSuccess()
		} else {
			m.transactStatus = xcm.TransactFailure(dispatchErr)
		}
		return nil

	case xcm.QueryResponse:
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		_ = m.x.cfg.Responses.OnResponse(origin, v.QueryID, v.Querier, v.Response, v.MaxWeight)
		return nil

	case xcm.DescendOrigin:
		if m.origin == nil {
			return xcm.ErrBadOrigin
		}
		descended, err := m.origin.AppendWith(xcm.Location{Interior: v.Path})
		if err != nil {
			return xcm.ErrLocationFull
		}
		m.origin = &descended
		return nil

	case xcm.ClearOrigin:
		m.origin = nil
		return nil

	case xcm.ReportError:
		return m.respond(m.origin, xcm.ExecutionResultResponse(m.err), v.Info, FeeReasonReport)

	case xcm.DepositAsset:
		return m.transactionalHolding(func() error {
			deposited := m.holding.SaturatingTake(v.Assets)
			return m.depositAssetsWithRetry(deposited, v.Beneficiary)
		})

	case xcm.DepositReserveAsset:
		return m.transactionalHolding(func() error {
			deposited := m.holding.SaturatingTake(v.Assets)
			if err := m.depositAssetsWithRetry(deposited, v.Dest); err != nil {
				return err
			}
			assets := m.reanchored(deposited, v.Dest)
			msg := subMessage(xcm.ReserveAssetDeposited{Assets: assets}, v.XCM)
			_, err := m.send(v.Dest, msg, FeeReasonDepositReserveAsset)
			return err
		})

	case xcm.ExchangeAsset:
		if m.x.cfg.Exchanger == nil {
			return xcm.ErrUnimplemented
		}
		give := m.holding.SaturatingTake(v.Give)
		if err := m.ensureCanSubsume(v.Want.Len()); err != nil {
			m.holding.SubsumeHolding(give)
			return err
		}
		received, err := m.x.cfg.Exchanger.Exchange(m.originRef(), give.Assets(), v.Want, v.Maximal)
		if err != nil {
			m.holding.SubsumeHolding(give)
			return xcm.ErrNoDeal
		}
		m.holding.SubsumeAssets(received)
		return nil

	case xcm.InitiateReserveWithdraw:
		return m.transactionalHolding(func() error {
			taken := m.holding.SaturatingTake(v.Assets)
			assets := m.reanchored(taken, v.Reserve)
			msg := subMessage(xcm.WithdrawAsset{Assets: assets}, v.XCM)
			_, err := m.send(v.Reserve, msg, FeeReasonInitiateReserveWithdraw)
			return err
		})

	case xcm.InitiateTeleport:
		return m.transactionalHolding(func() error {
			taken := m.holding.SaturatingTake(v.Assets)
			for _, a := range taken.Assets() {
				if err := m.x.cfg.AssetTransactor.CanCheckOut(v.Dest, a); err != nil {
					return xcm.AsError(err, xcm.CodeFailedToTransactAsset)
				}
			}
			for _, a := range taken.Assets() {
				m.x.cfg.AssetTransactor.CheckOut(v.Dest, a)
			}
			assets := m.reanchored(taken, v.Dest)
			msg := subMessage(xcm.ReceiveTeleportedAsset{Assets: assets}, v.XCM)
			_, err := m.send(v.Dest, msg, FeeReasonInitiateTeleport)
			return err
		})

	case xcm.ReportHolding:
		return m.transactionalHolding(func() error {
			matched := HoldingFromAssets(m.holding.Min(v.Assets))
			assets := m.reanchored(matched, v.Info.Destination)
			return m.respond(m.origin, xcm.AssetsResponse(assets), v.Info, FeeReasonReport)
		})

	case xcm.BuyExecution:
		// An unlimited weight limit means the barrier admitted the
		// message for some other reason; nothing to buy.
		if !v.WeightLimit.Limited {
			return nil
		}
		fees, err := xcm.NewAssets(v.Fees)
		if err != nil {
			return err
		}
		snapshot := m.holding.Clone()
		maxFee, err := m.holding.TryTake(xcm.Definite(fees))
		if err != nil {
			return xcm.ErrNotHoldingFees
		}
		err = m.x.cfg.Transactional.Process(func() error {
			unspent, err := m.trader.BuyWeight(v.WeightLimit.Weight, maxFee.Assets())
			if err != nil {
				return xcm.AsError(err, xcm.CodeTooExpensive)
			}
			m.holding.SubsumeAssets(unspent)
			return nil
		})
		if err != nil {
			m.holding = snapshot
			return err
		}
		return nil

	case xcm.RefundSurplus:
		return m.refundSurplus()

	case xcm.SetErrorHandler:
		w, err := m.x.cfg.Weigher.Weight(v.Handler)
		if err != nil {
			return xcm.ErrWeightNotComputable
		}
		m.totalSurplus = m.totalSurplus.Add(m.errorHandlerWeight)
		m.errorHandler = v.Handler
		m.errorHandlerWeight = w
		return nil

	case xcm.SetAppendix:
		w, err := m.x.cfg.Weigher.Weight(v.Appendix)
		if err != nil {
			return xcm.ErrWeightNotComputable
		}
		m.totalSurplus = m.totalSurplus.Add(m.appendixWeight)
		m.appendix = v.Appendix
		m.appendixWeight = w
		return nil

	case xcm.ClearError:
		m.err = nil
		return nil

	case xcm.ClaimAsset:
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		if err := m.ensureCanSubsume(v.Assets.Len()); err != nil {
			return err
		}
		if !m.x.cfg.Claims.ClaimAssets(origin, v.Ticket, v.Assets) {
			return xcm.ErrUnknownClaim
		}
		m.holding.SubsumeAssets(v.Assets)
		return nil

	case xcm.Trap:
		return xcm.TrapError(v.Code)

	case xcm.SubscribeVersion:
		if m.x.cfg.Subscriptions == nil {
			return xcm.ErrUnimplemented
		}
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		if err := m.x.cfg.Subscriptions.Start(origin, v.QueryID, v.MaxResponseWeight); err != nil {
			return xcm.AsError(err, xcm.CodeInvalidLocation)
		}
		return nil

	case xcm.UnsubscribeVersion:
		if m.x.cfg.Subscriptions == nil {
			return xcm.ErrUnimplemented
		}
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		if err := m.x.cfg.Subscriptions.Stop(origin); err != nil {
			return xcm.AsError(err, xcm.CodeInvalidLocation)
		}
		return nil

	case xcm.BurnAsset:
		_ = m.holding.SaturatingTake(xcm.Definite(v.Assets))
		return nil

	case xcm.ExpectAsset:
		return m.holding.EnsureContains(v.Assets)

	case xcm.ExpectOrigin:
		match := (m.origin == nil) == (v.Origin == nil)
		if match && m.origin != nil {
			match = m.origin.Equal(*v.Origin)
		}
		if !match {
			return xcm.ErrExpectationFalse
		}
		return nil

	case xcm.ExpectError:
		match := (m.err == nil) == (v.Error == nil)
		if match && m.err != nil {
			match = *m.err == *v.Error
		}
		if !match {
			return xcm.ErrExpectationFalse
		}
		return nil

	case xcm.ExpectTransactStatus:
		if !m.transactStatus.Equal(v.Status) {
			return xcm.ErrExpectationFalse
		}
		return nil

	case xcm.QueryPallet:
		var matched []xcm.PalletInfo
		if m.x.cfg.PalletsInfo != nil {
			for _, p := range m.x.cfg.PalletsInfo.Pallets() {
				if p.ModuleName == string(v.ModuleName) {
					matched = append(matched, p)
				}
			}
		}
		response := xcm.Response{Kind: xcm.ResponsePalletsInfo, Pallets: matched}
		return m.respond(m.origin, response, v.Info, FeeReasonQueryPallet)

	case xcm.ExpectPallet:
		if m.x.cfg.PalletsInfo == nil {
			return xcm.ErrPalletNotFound
		}
		for _, p := range m.x.cfg.PalletsInfo.Pallets() {
			if p.Index != v.Index {
				continue
			}
			if !bytes.Equal([]byte(p.Name), v.Name) {
				return xcm.ErrNameMismatch
			}
			if !bytes.Equal([]byte(p.ModuleName), v.ModuleName) {
				return xcm.ErrNameMismatch
			}
			if p.Major != v.CrateMajor {
				return xcm.ErrVersionIncompatible
			}
			if p.Minor < v.MinCrateMinor {
				return xcm.ErrVersionIncompatible
			}
			return nil
		}
		return xcm.ErrPalletNotFound

	case xcm.ReportTransactStatus:
		response := xcm.Response{Kind: xcm.ResponseDispatchResult, DispatchResult: m.transactStatus}
		return m.respond(m.origin, response, v.Info, FeeReasonReport)

	case xcm.ClearTransactStatus:
		m.transactStatus = xcm.TransactStatus{}
		return nil

	case xcm.UniversalOrigin:
		if m.x.cfg.UniversalAliases == nil {
			return xcm.ErrInvalidLocation
		}
		if first, ok := m.x.cfg.UniversalLocation.First(); ok && first == v.Junction {
			return xcm.ErrInvalidLocation
		}
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		if !m.x.cfg.UniversalAliases.Contains(origin, v.Junction) {
			return xcm.ErrInvalidLocation
		}
		newOrigin := xcm.Interior(v.Junction).RelativeTo(m.x.cfg.UniversalLocation)
		m.origin = &newOrigin
		return nil

	case xcm.ExportMessage:
		if m.x.cfg.Exporter == nil {
			return xcm.ErrUnimplemented
		}
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		universalSource, err := m.x.cfg.UniversalLocation.WithinGlobal(origin)
		if err != nil {
			return xcm.ErrUnanchored
		}
		channel := exportChannel(m.originRef(), v.Destination)
		ticket, price, err := m.x.cfg.Exporter.ValidateExport(v.Network, channel, universalSource, v.Destination, v.XCM)
		if err != nil {
			return xcm.AsError(err, xcm.CodeUnroutable)
		}
		return m.transactionalHolding(func() error {
			if err := m.takeFee(price, FeeReasonExport); err != nil {
				return err
			}
			if _, err := ticket.Deliver(); err != nil {
				return xcm.AsError(err, xcm.CodeTransport)
			}
			return nil
		})

	case xcm.LockAsset:
		if m.x.cfg.Locker == nil {
			return xcm.ErrUnimplemented
		}
		return m.transactionalHolding(func() error {
			origin, err := m.requireOrigin()
			if err != nil {
				return err
			}
			remoteAsset, err := m.tryReanchorAsset(v.Asset, v.Unlocker)
			if err != nil {
				return err
			}
			lockTicket, err := m.x.cfg.Locker.PrepareLock(v.Unlocker, v.Asset, origin)
			if err != nil {
				return xcm.AsError(err, xcm.CodeLockError)
			}
			owner, err := m.tryReanchorLocation(origin, v.Unlocker)
			if err != nil {
				return err
			}
			msg := xcm.Message{xcm.NoteUnlockable{Asset: remoteAsset, Owner: owner}}
			ticket, price, err := m.x.cfg.Sender.Validate(v.Unlocker, msg)
			if err != nil {
				return xcm.AsError(err, xcm.CodeUnroutable)
			}
			if err := m.takeFee(price, FeeReasonLockAsset); err != nil {
				return err
			}
			if err := lockTicket.Enact(); err != nil {
				return xcm.AsError(err, xcm.CodeLockError)
			}
			if _, err := ticket.Deliver(); err != nil {
				return xcm.AsError(err, xcm.CodeTransport)
			}
			return nil
		})

	case xcm.UnlockAsset:
		if m.x.cfg.Locker == nil {
			return xcm.ErrUnimplemented
		}
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		ticket, err := m.x.cfg.Locker.PrepareUnlock(origin, v.Asset, v.Target)
		if err != nil {
			return xcm.AsError(err, xcm.CodeLockError)
		}
		if err := ticket.Enact(); err != nil {
			return xcm.AsError(err, xcm.CodeLockError)
		}
		return nil

	case xcm.NoteUnlockable:
		if m.x.cfg.Locker == nil {
			return xcm.ErrUnimplemented
		}
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		if err := m.x.cfg.Locker.NoteUnlockable(origin, v.Asset, v.Owner); err != nil {
			return xcm.AsError(err, xcm.CodeLockError)
		}
		return nil

	case xcm.RequestUnlock:
		if m.x.cfg.Locker == nil {
			return xcm.ErrUnimplemented
		}
		return m.transactionalHolding(func() error {
			origin, err := m.requireOrigin()
			if err != nil {
				return err
			}
			remoteAsset, err := m.tryReanchorAsset(v.Asset, v.Locker)
			if err != nil {
				return err
			}
			remoteTarget, err := m.tryReanchorLocation(origin, v.Locker)
			if err != nil {
				return err
			}
			reduceTicket, err := m.x.cfg.Locker.PrepareReduceUnlockable(v.Locker, v.Asset, origin)
			if err != nil {
				return xcm.AsError(err, xcm.CodeLockError)
			}
			msg := xcm.Message{xcm.UnlockAsset{Asset: remoteAsset, Target: remoteTarget}}
			ticket, price, err := m.x.cfg.Sender.Validate(v.Locker, msg)
			if err != nil {
				return xcm.AsError(err, xcm.CodeUnroutable)
			}
			if err := m.takeFee(price, FeeReasonRequestUnlock); err != nil {
				return err
			}
			if err := reduceTicket.Enact(); err != nil {
				return xcm.AsError(err, xcm.CodeLockError)
			}
			if _, err := ticket.Deliver(); err != nil {
				return xcm.AsError(err, xcm.CodeTransport)
			}
			return nil
		})

	case xcm.SetFeesMode:
		m.jitWithdraw = v.JITWithdraw
		return nil

	case xcm.SetTopic:
		topic := v.Topic
		m.topic = &topic
		return nil

	case xcm.ClearTopic:
		m.topic = nil
		return nil

	case xcm.AliasOrigin:
		if m.x.cfg.Aliasers == nil {
			return xcm.ErrNoPermission
		}
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		if !m.x.cfg.Aliasers.IsAuthorizedAlias(origin, v.Location) {
			return xcm.ErrNoPermission
		}
		target := v.Location.Clone()
		m.origin = &target
		return nil

	case xcm.UnpaidExecution:
		if v.CheckOrigin != nil && (m.origin == nil || !m.origin.Equal(*v.CheckOrigin)) {
			return xcm.ErrBadOrigin
		}
		return nil

	case xcm.HrmpNewChannelOpenRequest, xcm.HrmpChannelAccepted, xcm.HrmpChannelClosing:
		return xcm.ErrUnimplemented

	default:
		return xcm.ErrUnimplemented
	}
}
