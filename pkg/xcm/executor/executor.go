package executor

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

// Executor runs cross-consensus message programs under one configuration.
// It is not safe for concurrent use; the recursion counter assumes
// single-threaded execution, matching the deterministic execution model.
type Executor struct {
	cfg       Config
	recursion int
}

// New validates the configuration and returns an executor.
func New(cfg Config) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Executor{cfg: cfg}, nil
}

// Config returns the executor's configuration.
func (x *Executor) Config() Config {
	return x.cfg
}

// Prepare returns the worst-case weight of the message without executing
// it.
func (x *Executor) Prepare(msg xcm.Message) (xcm.Weight, error) {
	w, err := x.cfg.Weigher.Weight(msg)
	if err != nil {
		return xcm.Weight{}, xcm.ErrWeightNotComputable
	}
	return w, nil
}

// ChargeFees collects fees directly from origin's account, outside any
// message execution. Waived origins pay nothing; otherwise every fee
// asset is withdrawn before the batch is handed to the fee manager, so a
// failed withdrawal charges nothing to it.
func (x *Executor) ChargeFees(origin xcm.Location, fees xcm.Assets) error {
	if x.cfg.Fees.IsWaived(&origin, FeeReasonChargeFees) {
		return nil
	}
	for _, a := range fees {
		if err := x.cfg.AssetTransactor.Withdraw(a, origin); err != nil {
			return xcm.AsError(err, xcm.CodeFailedToTransactAsset)
		}
	}
	x.cfg.Fees.HandleFee(fees, FeeReasonChargeFees)
	return nil
}

// vm is the state of one message execution: the holding register, the
// origin and error registers, surplus accounting and the installed error
// handler and appendix programs.
type vm struct {
	x *Executor

	originalOrigin xcm.Location
	origin         *xcm.Location

	holding *Holding
	trader  WeightTrader

	err            *xcm.IndexedError
	transactStatus xcm.TransactStatus

	totalSurplus  xcm.Weight
	totalRefunded xcm.Weight

	errorHandler       xcm.Message
	errorHandlerWeight xcm.Weight
	appendix           xcm.Message
	appendixWeight     xcm.Weight

	jitWithdraw bool
	topic       *[32]byte
	messageID   [32]byte
}

// processError carries the failure of one program pass: the index of the
// failed instruction, the error, and the worst-case weight of the
// instructions after it that never ran.
type processError struct {
	index  uint32
	err    xcm.Error
	weight xcm.Weight
}

func (x *Executor) newVM(origin xcm.Location, messageID [32]byte) *vm {
	o := origin.Clone()
	return &vm{
		x:              x,
		originalOrigin: origin.Clone(),
		origin:         &o,
		holding:        NewHolding(),
		trader:         x.cfg.NewTrader(),
		messageID:      messageID,
	}
}

// Execute weighs the message, consults the barrier and runs the program to
// completion, including any installed error handler and appendix. The
// returned outcome carries the weight used.
func (x *Executor) Execute(origin xcm.Location, msg xcm.Message, messageID [32]byte, weightCredit xcm.Weight) Outcome {
	xcmWeight, err := x.cfg.Weigher.Weight(msg)
	if err != nil {
		return ErrorOutcome(xcm.ErrWeightNotComputable)
	}
	props := Properties{WeightCredit: weightCredit, MessageID: &messageID}
	if err := x.cfg.Barrier.ShouldExecute(origin, msg, xcmWeight, &props); err != nil {
		x.cfg.Logger.Debug().
			Stringer("origin", origin).
			Err(err).
			Msg("message refused by barrier")
		return ErrorOutcome(xcm.ErrBarrier)
	}

	m := x.newVM(origin, messageID)
	remaining := msg
	for len(remaining) > 0 {
		if perr := m.process(remaining); perr != nil {
			m.totalSurplus = m.totalSurplus.Add(perr.weight)
			m.err = &xcm.IndexedError{Index: perr.index, Error: perr.err}
			x.cfg.Logger.Debug().
				Stringer("origin", origin).
				Uint32("index", perr.index).
				Err(perr.err).
				Msg("instruction failed")
			remaining = m.takeErrorHandler()
			if len(remaining) == 0 {
				remaining = m.takeAppendix()
			}
		} else {
			m.dropErrorHandler()
			remaining = m.takeAppendix()
		}
	}
	return m.postProcess(xcmWeight)
}

// process runs each instruction in order. After the first failure the
// remaining instructions are not executed; their worst-case weight is
// accumulated so the caller can return it as surplus.
func (m *vm) process(msg xcm.Message) *processError {
	var result *processError
	for i, instr := range msg {
		if result == nil {
			if err := m.processInstruction(instr); err != nil {
				result = &processError{
					index: uint32(i),
					err:   xcm.AsError(err, xcm.CodeFailedToTransactAsset),
				}
			}
			continue
		}
		if w, werr := m.x.cfg.Weigher.InstrWeight(instr); werr == nil {
			result.weight = result.weight.Add(w)
		}
	}
	return result
}

// postProcess refunds surplus weight best-effort, traps any assets left in
// holding and produces the outcome. Weight used is the message weight less
// the accumulated surplus, plus the weight of trapping.
func (m *vm) postProcess(xcmWeight xcm.Weight) Outcome {
	// Refunding is charitable, so a failure here is not an execution
	// error.
	_ = m.refundSurplus()

	used := xcmWeight.Sub(m.totalSurplus)

	if !m.holding.IsEmpty() {
		effectiveOrigin := m.originalOrigin
		if m.origin != nil {
			effectiveOrigin = *m.origin
		}
		trapped := m.holding.Assets()
		trapWeight := m.x.cfg.Trap.DropAssets(effectiveOrigin, trapped)
		used = used.Add(trapWeight)
		m.x.cfg.Logger.Debug().
			Stringer("origin", effectiveOrigin).
			Int("entries", trapped.Len()).
			Msg("trapped leftover holding")
	}

	if m.err == nil {
		return CompleteOutcome(used)
	}
	return IncompleteOutcome(used, m.err.Error)
}

// takeErrorHandler removes and returns the installed error handler. Its
// reserved weight is not refunded since the handler is about to run.
func (m *vm) takeErrorHandler() xcm.Message {
	handler := m.errorHandler
	m.errorHandler = nil
	m.errorHandlerWeight = xcm.Weight{}
	return handler
}

// dropErrorHandler discards the installed error handler, refunding its
// reserved weight as surplus.
func (m *vm) dropErrorHandler() {
	m.totalSurplus = m.totalSurplus.Add(m.errorHandlerWeight)
	m.errorHandler = nil
	m.errorHandlerWeight = xcm.Weight{}
}

// takeAppendix removes and returns the installed appendix.
func (m *vm) takeAppendix() xcm.Message {
	appendix := m.appendix
	m.appendix = nil
	m.appendixWeight = xcm.Weight{}
	return appendix
}

func (m *vm) originRef() *xcm.Location {
	return m.origin
}

// requireOrigin returns the current origin or fails with BadOrigin.
func (m *vm) requireOrigin() (xcm.Location, error) {
	if m.origin == nil {
		return xcm.Location{}, xcm.ErrBadOrigin
	}
	return m.origin.Clone(), nil
}

// ensureCanSubsume fails unless n more entries fit in holding. The bound
// is twice the nominal limit: a take-then-subsume cycle can transiently
// hold both populations.
func (m *vm) ensureCanSubsume(n int) error {
	if m.holding.Len()+n > m.x.cfg.HoldingLimit*2 {
		return xcm.ErrHoldingWouldOverflow
	}
	return nil
}

// transactionalHolding runs f under the transactional processor with the
// holding register snapshotted; any failure restores it.
func (m *vm) transactionalHolding(f func() error) error {
	snapshot := m.holding.Clone()
	if err := m.x.cfg.Transactional.Process(f); err != nil {
		m.holding = snapshot
		return err
	}
	return nil
}

// refundSurplus asks the trader to give back the surplus weight not yet
// refunded, subsuming the refunded asset into holding. If holding cannot
// absorb the refund, the weight is re-bought so the trader's books stay
// consistent, and the refund fails.
func (m *vm) refundSurplus() error {
	current := m.totalSurplus.Sub(m.totalRefunded)
	if !current.AnyGreater(xcm.Weight{}) {
		return nil
	}
	refund, ok := m.trader.RefundWeight(current)
	if !ok {
		return nil
	}
	probe := refund
	probe.Amount = 1
	if !m.holding.ContainsAsset(probe) && m.ensureCanSubsume(1) != nil {
		payment, err := xcm.NewAssets(refund)
		if err == nil {
			_, _ = m.trader.BuyWeight(current, payment)
		}
		return xcm.ErrHoldingWouldOverflow
	}
	m.totalRefunded = m.totalRefunded.Add(current)
	m.holding.Subsume(refund)
	return nil
}

// takeFee collects fees for the given reason, unless waived. In JIT mode
// the fee is withdrawn from the origin's account; otherwise it must be
// present in holding.
func (m *vm) takeFee(fees xcm.Assets, reason FeeReason) error {
	if fees.Len() == 0 {
		return nil
	}
	if m.x.cfg.Fees.IsWaived(m.originRef(), reason) {
		return nil
	}
	var paid xcm.Assets
	if m.jitWithdraw {
		origin, err := m.requireOrigin()
		if err != nil {
			return err
		}
		for _, fee := range fees {
			if err := m.x.cfg.AssetTransactor.Withdraw(fee, origin); err != nil {
				return xcm.AsError(err, xcm.CodeFailedToTransactAsset)
			}
		}
		paid = fees
	} else {
		taken, err := m.holding.TryTake(xcm.Definite(fees))
		if err != nil {
			return xcm.ErrNotHoldingFees
		}
		paid = taken.Assets()
	}
	m.x.cfg.Fees.HandleFee(paid, reason)
	return nil
}

// send validates the outbound message, charges the delivery fee and
// delivers, returning the message identity.
func (m *vm) send(dest xcm.Location, msg xcm.Message, reason FeeReason) ([32]byte, error) {
	ticket, price, err := m.x.cfg.Sender.Validate(dest, msg)
	if err != nil {
		return [32]byte{}, xcm.AsError(err, xcm.CodeUnroutable)
	}
	if err := m.takeFee(price, reason); err != nil {
		return [32]byte{}, err
	}
	id, err := ticket.Deliver()
	if err != nil {
		return [32]byte{}, xcm.AsError(err, xcm.CodeTransport)
	}
	return id, nil
}

// toQuerier re-expresses the local querier relative to the response
// destination.
func (m *vm) toQuerier(localQuerier *xcm.Location, destination xcm.Location) (*xcm.Location, error) {
	if localQuerier == nil {
		return nil, nil
	}
	q, err := localQuerier.Reanchored(destination, m.x.cfg.UniversalLocation)
	if err != nil {
		return nil, xcm.ErrReanchorFailed
	}
	return &q, nil
}

// respond sends a QueryResponse answering info to its destination.
func (m *vm) respond(localQuerier *xcm.Location, response xcm.Response, info xcm.QueryResponseInfo, reason FeeReason) error {
	querier, err := m.toQuerier(localQuerier, info.Destination)
	if err != nil {
		return err
	}
	msg := xcm.Message{xcm.QueryResponse{
		QueryID:   info.QueryID,
		Response:  response,
		MaxWeight: info.MaxWeight,
		Querier:   querier,
	}}
	_, err = m.send(info.Destination, msg, reason)
	return err
}

// reanchored re-expresses the taken holding contents relative to dest.
// Assets that cannot be reanchored are dropped from the result.
func (m *vm) reanchored(taken *Holding, dest xcm.Location) xcm.Assets {
	assets, failed := taken.Reanchored(dest, m.x.cfg.UniversalLocation)
	if failed.Len() > 0 {
		m.x.cfg.Logger.Warn().
			Stringer("dest", dest).
			Int("dropped", failed.Len()).
			Msg("assets dropped during reanchoring")
	}
	return assets
}

// tryReanchorAsset re-expresses an asset relative to target, also
// returning the reanchoring context used.
func (m *vm) tryReanchorAsset(asset xcm.Asset, target xcm.Location) (xcm.Asset, error) {
	out, err := asset.Reanchored(target, m.x.cfg.UniversalLocation)
	if err != nil {
		return xcm.Asset{}, xcm.ErrReanchorFailed
	}
	return out, nil
}

// tryReanchorLocation re-expresses a location relative to target.
func (m *vm) tryReanchorLocation(loc xcm.Location, target xcm.Location) (xcm.Location, error) {
	out, err := loc.Reanchored(target, m.x.cfg.UniversalLocation)
	if err != nil {
		return xcm.Location{}, xcm.ErrReanchorFailed
	}
	return out, nil
}

// depositAssetsWithRetry deposits every asset, collecting failures, then
// retries each failure once. A second failure is final. The retry covers
// deposits whose success depends on an earlier deposit in the same batch,
// such as an account existing only once it holds a native balance.
func (m *vm) depositAssetsWithRetry(taken *Holding, beneficiary xcm.Location) error {
	var failed []xcm.Asset
	var firstErr error
	for _, asset := range taken.Assets() {
		if err := m.x.cfg.AssetTransactor.Deposit(asset, beneficiary); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failed = append(failed, asset)
		}
	}
	if len(failed) == taken.Len() && firstErr != nil {
		return xcm.AsError(firstErr, xcm.CodeFailedToTransactAsset)
	}
	for _, asset := range failed {
		if err := m.x.cfg.AssetTransactor.Deposit(asset, beneficiary); err != nil {
			return xcm.AsError(err, xcm.CodeFailedToTransactAsset)
		}
	}
	return nil
}

// exportChannel derives a stable lane identifier for an origin and export
// destination pair, so distinct pairs generally get distinct lanes.
func exportChannel(origin *xcm.Location, dest xcm.InteriorLocation) uint32 {
	h := blake3.New()
	if origin != nil {
		_, _ = h.Write(xcm.EncodeLocation(*origin))
	}
	_, _ = h.Write(xcm.EncodeLocation(xcm.Location{Interior: dest}))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint32(sum[:4])
}

// subMessage builds the derived program sent onward by asset-moving
// instructions: the given prologue, ClearOrigin, then the caller-supplied
// continuation.
func subMessage(prologue xcm.Instruction, onward xcm.Message) xcm.Message {
	msg := make(xcm.Message, 0, len(onward)+2)
	msg = append(msg, prologue, xcm.ClearOrigin{})
	msg = append(msg, onward...)
	return msg
}

func (m *vm) String() string {
	return fmt.Sprintf("vm(origin=%v, holding=%d)", m.origin, m.holding.Len())
}
