package executor_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fortiblox/X1-Conduit/internal/types"
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/barrier"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/trader"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/weigher"
)

// Test fixture constants: the local system is Parachain(1000) under the X1
// relay, the usual remote origin is its sibling Parachain(2000), and the
// fee asset is the relay's native token.
var (
	universalLocation = xcm.Interior(xcm.GlobalConsensus(xcm.X1Network()), xcm.Parachain(1000))
	siblingOrigin     = xcm.NewLocation(1, xcm.Parachain(2000))
	unitWeight        = xcm.NewWeight(10, 0)
)

func nativeLocation() xcm.Location { return xcm.Parent() }

func nativeID() xcm.AssetID { return xcm.NewAssetID(nativeLocation()) }

func native(amount uint64) xcm.Asset {
	return xcm.NewFungibleAsset(nativeLocation(), amount)
}

func account(b byte) xcm.Location {
	var id types.AccountID
	for i := range id {
		id[i] = b
	}
	return xcm.NewLocation(0, xcm.AccountID32(id))
}

var errInsufficient = errors.New("insufficient balance")

// testLedger is an in-memory asset transactor keyed by encoded location and
// canonical asset entry key.
type testLedger struct {
	balances map[string]map[string]uint64
}

func newTestLedger() *testLedger {
	return &testLedger{balances: make(map[string]map[string]uint64)}
}

func locKey(l xcm.Location) string { return string(xcm.EncodeLocation(l)) }

func (l *testLedger) account(who xcm.Location) map[string]uint64 {
	k := locKey(who)
	if l.balances[k] == nil {
		l.balances[k] = make(map[string]uint64)
	}
	return l.balances[k]
}

func (l *testLedger) fund(who xcm.Location, what xcm.Asset) {
	acct := l.account(who)
	acct[string(what.EncodeKey())] += what.Amount
}

func (l *testLedger) balance(who xcm.Location, what xcm.Asset) uint64 {
	return l.account(who)[string(what.EncodeKey())]
}

func (l *testLedger) CanCheckIn(xcm.Location, xcm.Asset) error  { return nil }
func (l *testLedger) CheckIn(xcm.Location, xcm.Asset)           {}
func (l *testLedger) CanCheckOut(xcm.Location, xcm.Asset) error { return nil }
func (l *testLedger) CheckOut(xcm.Location, xcm.Asset)          {}

func (l *testLedger) Deposit(what xcm.Asset, who xcm.Location) error {
	acct := l.account(who)
	if what.IsFungible() {
		acct[string(what.EncodeKey())] += what.Amount
	} else {
		acct[string(what.EncodeKey())] = 1
	}
	return nil
}

func (l *testLedger) Withdraw(what xcm.Asset, who xcm.Location) error {
	acct := l.account(who)
	key := string(what.EncodeKey())
	need := what.Amount
	if !what.IsFungible() {
		need = 1
	}
	if acct[key] < need {
		return errInsufficient
	}
	acct[key] -= need
	return nil
}

func (l *testLedger) Transfer(what xcm.Asset, from, to xcm.Location) error {
	if err := l.Withdraw(what, from); err != nil {
		return err
	}
	return l.Deposit(what, to)
}

type sentMessage struct {
	dest xcm.Location
	msg  xcm.Message
}

type testTicket struct {
	s    *testSender
	rec  sentMessage
	fail bool
}

func (t *testTicket) Deliver() ([32]byte, error) {
	if t.fail {
		return [32]byte{}, errors.New("delivery failed")
	}
	t.s.sent = append(t.s.sent, t.rec)
	return [32]byte{}, nil
}

// testSender records every delivered message and charges a fixed fee.
type testSender struct {
	fee         xcm.Assets
	sent        []sentMessage
	failDeliver bool
}

func (s *testSender) Validate(dest xcm.Location, msg xcm.Message) (executor.DeliveryTicket, xcm.Assets, error) {
	return &testTicket{s: s, rec: sentMessage{dest: dest.Clone(), msg: msg}, fail: s.failDeliver}, s.fee, nil
}

// testTraps records trapped assets per origin and pays out exact matches.
type testTraps struct {
	trapped map[string][]xcm.Assets
	weight  xcm.Weight
}

func newTestTraps() *testTraps {
	return &testTraps{trapped: make(map[string][]xcm.Assets)}
}

func (tr *testTraps) DropAssets(origin xcm.Location, assets xcm.Assets) xcm.Weight {
	tr.trapped[locKey(origin)] = append(tr.trapped[locKey(origin)], assets)
	return tr.weight
}

func (tr *testTraps) ClaimAssets(origin xcm.Location, ticket xcm.Location, what xcm.Assets) bool {
	if !ticket.IsHere() {
		return false
	}
	entries := tr.trapped[locKey(origin)]
	for i, e := range entries {
		if e.Equal(what) {
			tr.trapped[locKey(origin)] = append(entries[:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

type testFees struct {
	waive   bool
	handled []xcm.Assets
	reasons []executor.FeeReason
}

func (f *testFees) IsWaived(*xcm.Location, executor.FeeReason) bool { return f.waive }

func (f *testFees) HandleFee(fees xcm.Assets, reason executor.FeeReason) {
	f.handled = append(f.handled, fees)
	f.reasons = append(f.reasons, reason)
}

// testDispatcher runs calls through an optional hook; by default a call is
// a single byte used as a weight multiplier.
type testDispatcher struct {
	disallow   bool
	weighErr   error
	onDispatch func(origin xcm.Location, kind xcm.OriginKind, call []byte, maxWeight xcm.Weight) (xcm.Weight, []byte)
	calls      int
}

func (d *testDispatcher) WeighCall(call []byte) (xcm.Weight, error) {
	if d.weighErr != nil {
		return xcm.Weight{}, d.weighErr
	}
	if len(call) == 0 {
		return xcm.Weight{}, errors.New("empty call")
	}
	return xcm.NewWeight(uint64(call[0])*10, 0), nil
}

func (d *testDispatcher) IsCallAllowed(xcm.Location, xcm.OriginKind, []byte) bool {
	return !d.disallow
}

func (d *testDispatcher) Dispatch(origin xcm.Location, kind xcm.OriginKind, call []byte, maxWeight xcm.Weight) (xcm.Weight, []byte) {
	d.calls++
	if d.onDispatch != nil {
		return d.onDispatch(origin, kind, call, maxWeight)
	}
	w, _ := d.WeighCall(call)
	return w, nil
}

type allowAll struct{}

func (allowAll) IsReserve(xcm.Asset, xcm.Location) bool    { return true }
func (allowAll) IsTeleporter(xcm.Asset, xcm.Location) bool { return true }

type denyAll struct{}

func (denyAll) IsReserve(xcm.Asset, xcm.Location) bool    { return false }
func (denyAll) IsTeleporter(xcm.Asset, xcm.Location) bool { return false }

type recordedResponse struct {
	origin  xcm.Location
	queryID uint64
	resp    xcm.Response
}

type testResponses struct {
	got []recordedResponse
}

func (r *testResponses) OnResponse(origin xcm.Location, queryID uint64, _ *xcm.Location, resp xcm.Response, _ xcm.Weight) xcm.Weight {
	r.got = append(r.got, recordedResponse{origin: origin, queryID: queryID, resp: resp})
	return xcm.Weight{}
}

type env struct {
	x      *executor.Executor
	ledger *testLedger
	sender *testSender
	traps  *testTraps
	fees   *testFees
	disp   *testDispatcher
	resp   *testResponses
}

func newEnv(t *testing.T, mutate func(*executor.Config, *env)) *env {
	t.Helper()
	e := &env{
		ledger: newTestLedger(),
		sender: &testSender{},
		traps:  newTestTraps(),
		fees:   &testFees{waive: true},
		disp:   &testDispatcher{},
		resp:   &testResponses{},
	}
	cfg := executor.DefaultConfig()
	cfg.AssetTransactor = e.ledger
	cfg.Barrier = barrier.AllowUnpaidExecutionFrom{Allowed: barrier.AnyLocation}
	cfg.Weigher = weigher.New(unitWeight, 100)
	cfg.NewTrader = func() executor.WeightTrader {
		return trader.NewFixedRate(nativeID(), trader.Rate{RefTimePerToken: 1, ProofSizePerToken: 1})
	}
	cfg.Sender = e.sender
	cfg.Trap = e.traps
	cfg.Claims = e.traps
	cfg.Fees = e.fees
	cfg.Dispatcher = e.disp
	cfg.Reserves = allowAll{}
	cfg.Teleporters = allowAll{}
	cfg.Responses = e.resp
	cfg.UniversalLocation = universalLocation
	if mutate != nil {
		mutate(&cfg, e)
	}
	x, err := executor.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	e.x = x
	return e
}

func (e *env) execute(msg xcm.Message) executor.Outcome {
	return e.x.Execute(siblingOrigin, msg, [32]byte{}, xcm.Weight{})
}

func TestWithdrawBuyDeposit(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(1000))
	beneficiary := account(1)

	msg := xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(100))},
		xcm.BuyExecution{Fees: native(100), WeightLimit: xcm.Limited(xcm.NewWeight(30, 0))},
		xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: beneficiary},
	}
	outcome := e.execute(msg)
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
	if want := xcm.NewWeight(30, 0); outcome.Used != want {
		t.Errorf("Used = %v, want %v", outcome.Used, want)
	}
	if got := e.ledger.balance(siblingOrigin, native(0)); got != 900 {
		t.Errorf("origin balance = %d, want 900", got)
	}
	// 30 of the 100 paid for weight; the remainder was deposited.
	if got := e.ledger.balance(beneficiary, native(0)); got != 70 {
		t.Errorf("beneficiary balance = %d, want 70", got)
	}
	if len(e.traps.trapped) != 0 {
		t.Errorf("unexpected trapped assets: %v", e.traps.trapped)
	}
}

func TestBuyExecutionWithoutFunds(t *testing.T) {
	e := newEnv(t, nil)
	msg := xcm.Message{
		xcm.BuyExecution{Fees: native(10), WeightLimit: xcm.Limited(unitWeight)},
	}
	outcome := e.execute(msg)
	if outcome.Kind != executor.OutcomeIncomplete {
		t.Fatalf("outcome = %v, want incomplete", outcome)
	}
	if outcome.Error != xcm.ErrNotHoldingFees {
		t.Errorf("Error = %v, want %v", outcome.Error, xcm.ErrNotHoldingFees)
	}
}

func TestInsufficientPaymentKeepsFees(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(5))

	msg := xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(5))},
		xcm.BuyExecution{Fees: native(5), WeightLimit: xcm.Limited(xcm.NewWeight(30, 0))},
		xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: account(1)},
	}
	outcome := e.execute(msg)
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrTooExpensive {
		t.Fatalf("outcome = %v, want incomplete too expensive", outcome)
	}
	// The failed purchase must leave the fee in holding, which is then
	// trapped since nothing deposits it.
	entries := e.traps.trapped[locKey(siblingOrigin)]
	if len(entries) != 1 || !entries[0].Equal(xcm.MustNewAssets(native(5))) {
		t.Errorf("trapped = %v, want the withdrawn 5", entries)
	}
}

func TestErrorHandlerAndReport(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(1000))

	info := xcm.QueryResponseInfo{Destination: siblingOrigin, QueryID: 9, MaxWeight: xcm.Weight{}}
	msg := xcm.Message{
		xcm.SetErrorHandler{Handler: xcm.Message{xcm.ReportError{Info: info}}},
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(100))},
		xcm.Trap{Code: 7},
		xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: account(1)},
	}
	outcome := e.execute(msg)

	if outcome.Kind != executor.OutcomeIncomplete {
		t.Fatalf("outcome = %v, want incomplete", outcome)
	}
	if outcome.Error != xcm.TrapError(7) {
		t.Errorf("Error = %v, want trap 7", outcome.Error)
	}
	// Message weight is 50 (handler included); the unexecuted deposit
	// becomes surplus, so 40 was used.
	if want := xcm.NewWeight(40, 0); outcome.Used != want {
		t.Errorf("Used = %v, want %v", outcome.Used, want)
	}

	// The handler reported the error back to the origin.
	if len(e.sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(e.sender.sent))
	}
	sent := e.sender.sent[0]
	if !sent.dest.Equal(siblingOrigin) {
		t.Errorf("report dest = %v, want %v", sent.dest, siblingOrigin)
	}
	qr, ok := sent.msg[0].(xcm.QueryResponse)
	if !ok {
		t.Fatalf("sent %T, want QueryResponse", sent.msg[0])
	}
	if qr.QueryID != 9 {
		t.Errorf("QueryID = %d, want 9", qr.QueryID)
	}
	want := &xcm.IndexedError{Index: 2, Error: xcm.TrapError(7)}
	if !reflect.DeepEqual(qr.Response.ExecutionResult, want) {
		t.Errorf("ExecutionResult = %v, want %v", qr.Response.ExecutionResult, want)
	}

	// The withdrawn assets were never deposited and must be trapped.
	entries := e.traps.trapped[locKey(siblingOrigin)]
	if len(entries) != 1 || !entries[0].Equal(xcm.MustNewAssets(native(100))) {
		t.Errorf("trapped = %v, want the withdrawn 100", entries)
	}
}

func TestAppendixRunsOnFailure(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(100))
	rescue := account(2)

	msg := xcm.Message{
		xcm.SetAppendix{Appendix: xcm.Message{
			xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: rescue},
		}},
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(100))},
		xcm.Trap{Code: 1},
	}
	outcome := e.execute(msg)
	if outcome.Kind != executor.OutcomeIncomplete {
		t.Fatalf("outcome = %v, want incomplete", outcome)
	}
	if got := e.ledger.balance(rescue, native(0)); got != 100 {
		t.Errorf("rescue balance = %d, want 100", got)
	}
	if len(e.traps.trapped) != 0 {
		t.Errorf("trapped = %v, want none", e.traps.trapped)
	}
}

func TestAppendixRunsOnSuccess(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(50))
	rescue := account(3)

	msg := xcm.Message{
		xcm.SetAppendix{Appendix: xcm.Message{
			xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: rescue},
		}},
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(50))},
	}
	outcome := e.execute(msg)
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
	if got := e.ledger.balance(rescue, native(0)); got != 50 {
		t.Errorf("rescue balance = %d, want 50", got)
	}
}

func TestTrapAndClaim(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(100))

	// First execution abandons the holding register.
	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(100))},
	})
	if !outcome.Succeeded() {
		t.Fatalf("first outcome = %v, want complete", outcome)
	}
	if len(e.traps.trapped[locKey(siblingOrigin)]) != 1 {
		t.Fatalf("trapped = %v, want one entry", e.traps.trapped)
	}

	// Second execution claims them back and deposits.
	beneficiary := account(4)
	outcome = e.execute(xcm.Message{
		xcm.ClaimAsset{Assets: xcm.MustNewAssets(native(100)), Ticket: xcm.LocationHere()},
		xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: beneficiary},
	})
	if !outcome.Succeeded() {
		t.Fatalf("second outcome = %v, want complete", outcome)
	}
	if got := e.ledger.balance(beneficiary, native(0)); got != 100 {
		t.Errorf("beneficiary balance = %d, want 100", got)
	}
	if len(e.traps.trapped[locKey(siblingOrigin)]) != 0 {
		t.Errorf("trapped = %v, want empty", e.traps.trapped)
	}
}

func TestClaimUnknownTicket(t *testing.T) {
	e := newEnv(t, nil)
	outcome := e.execute(xcm.Message{
		xcm.ClaimAsset{Assets: xcm.MustNewAssets(native(1)), Ticket: xcm.LocationHere()},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrUnknownClaim {
		t.Errorf("outcome = %v, want unknown claim", outcome)
	}
}

func TestRecursionLimit(t *testing.T) {
	var e *env
	var outcomes []executor.Outcome
	nested := xcm.Message{xcm.Transact{
		OriginKind:          xcm.OriginKindSovereignAccount,
		RequireWeightAtMost: xcm.NewWeight(10, 0),
		Call:                []byte{1},
	}}
	e = newEnv(t, func(cfg *executor.Config, env *env) {
		env.disp.onDispatch = func(origin xcm.Location, _ xcm.OriginKind, _ []byte, _ xcm.Weight) (xcm.Weight, []byte) {
			out := env.x.Execute(origin, nested, [32]byte{}, xcm.Weight{})
			outcomes = append(outcomes, out)
			if !out.Succeeded() {
				return xcm.NewWeight(10, 0), []byte("nested failure")
			}
			return xcm.NewWeight(10, 0), nil
		}
	})

	outcome := e.execute(nested)
	if !outcome.Succeeded() {
		t.Fatalf("top-level outcome = %v, want complete", outcome)
	}
	// Depth 10 is the deepest instruction allowed; the next dispatch's
	// program must fail without executing.
	if e.disp.calls != 10 {
		t.Errorf("dispatched %d times, want 10", e.disp.calls)
	}
	if len(outcomes) == 0 {
		t.Fatal("no nested executions recorded")
	}
	deepest := outcomes[0]
	if deepest.Kind != executor.OutcomeIncomplete || deepest.Error != xcm.ErrExceedsStackLimit {
		t.Errorf("deepest outcome = %v, want exceeds stack limit", deepest)
	}
}

func TestReserveTransferDerivedMessage(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(500))
	dest := xcm.NewLocation(1, xcm.Parachain(3000))
	beneficiary := account(5)

	onward := xcm.Message{xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: beneficiary}}
	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(200))},
		xcm.DepositReserveAsset{Assets: xcm.AllCounted(1), Dest: dest, XCM: onward},
	})
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}

	// The taken assets are credited to the destination's local account.
	if got := e.ledger.balance(dest, native(0)); got != 200 {
		t.Errorf("dest sovereign balance = %d, want 200", got)
	}

	// The derived program leads with the reanchored deposit notice and a
	// ClearOrigin before the caller's continuation.
	if len(e.sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(e.sender.sent))
	}
	sent := e.sender.sent[0]
	if !sent.dest.Equal(dest) {
		t.Errorf("dest = %v, want %v", sent.dest, dest)
	}
	if len(sent.msg) != 3 {
		t.Fatalf("derived message has %d instructions, want 3", len(sent.msg))
	}
	deposited, ok := sent.msg[0].(xcm.ReserveAssetDeposited)
	if !ok {
		t.Fatalf("first instruction is %T, want ReserveAssetDeposited", sent.msg[0])
	}
	// The relay-native asset keeps its shape when viewed from a sibling.
	want := xcm.MustNewAssets(native(200))
	if !deposited.Assets.Equal(want) {
		t.Errorf("reanchored assets = %v, want %v", deposited.Assets, want)
	}
	if _, ok := sent.msg[1].(xcm.ClearOrigin); !ok {
		t.Errorf("second instruction is %T, want ClearOrigin", sent.msg[1])
	}
	if !reflect.DeepEqual(sent.msg[2], onward[0]) {
		t.Errorf("continuation = %#v, want %#v", sent.msg[2], onward[0])
	}
}

func TestTransferReserveAsset(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(300))
	dest := xcm.NewLocation(1, xcm.Parachain(3000))

	outcome := e.execute(xcm.Message{
		xcm.TransferReserveAsset{
			Assets: xcm.MustNewAssets(native(300)),
			Dest:   dest,
			XCM:    xcm.Message{xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: account(6)}},
		},
	})
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
	if got := e.ledger.balance(siblingOrigin, native(0)); got != 0 {
		t.Errorf("origin balance = %d, want 0", got)
	}
	if got := e.ledger.balance(dest, native(0)); got != 300 {
		t.Errorf("dest balance = %d, want 300", got)
	}
	if len(e.sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(e.sender.sent))
	}
	if _, ok := e.sender.sent[0].msg[0].(xcm.ReserveAssetDeposited); !ok {
		t.Errorf("first instruction is %T, want ReserveAssetDeposited", e.sender.sent[0].msg[0])
	}
}

func TestInitiateTeleportDerivedMessage(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(50))
	dest := xcm.NewLocation(1, xcm.Parachain(3000))

	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(50))},
		xcm.InitiateTeleport{Assets: xcm.AllAssets(), Dest: dest, XCM: nil},
	})
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
	sent := e.sender.sent[0]
	if _, ok := sent.msg[0].(xcm.ReceiveTeleportedAsset); !ok {
		t.Errorf("first instruction is %T, want ReceiveTeleportedAsset", sent.msg[0])
	}
	if _, ok := sent.msg[1].(xcm.ClearOrigin); !ok {
		t.Errorf("second instruction is %T, want ClearOrigin", sent.msg[1])
	}
}

func TestUntrustedReserve(t *testing.T) {
	e := newEnv(t, func(cfg *executor.Config, _ *env) {
		cfg.Reserves = denyAll{}
	})
	outcome := e.execute(xcm.Message{
		xcm.ReserveAssetDeposited{Assets: xcm.MustNewAssets(native(10))},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrUntrustedReserveLocation {
		t.Errorf("outcome = %v, want untrusted reserve", outcome)
	}
}

func TestTransactSurplusAndRefund(t *testing.T) {
	e := newEnv(t, func(_ *executor.Config, env *env) {
		env.disp.onDispatch = func(_ xcm.Location, _ xcm.OriginKind, _ []byte, _ xcm.Weight) (xcm.Weight, []byte) {
			return xcm.NewWeight(40, 0), nil
		}
	})
	e.ledger.fund(siblingOrigin, native(1000))
	beneficiary := account(7)

	msg := xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(1000))},
		xcm.BuyExecution{Fees: native(1000), WeightLimit: xcm.Limited(xcm.NewWeight(160, 0))},
		xcm.Transact{
			OriginKind:          xcm.OriginKindSovereignAccount,
			RequireWeightAtMost: xcm.NewWeight(100, 0),
			Call:                []byte{10},
		},
		xcm.RefundSurplus{},
		xcm.RefundSurplus{},
		xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: beneficiary},
	}
	outcome := e.execute(msg)
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
	// Message weight 160, call used 40 of its reserved 100: surplus 60.
	if want := xcm.NewWeight(100, 0); outcome.Used != want {
		t.Errorf("Used = %v, want %v", outcome.Used, want)
	}
	// 1000 withdrawn, 160 bought, 60 refunded. The second RefundSurplus
	// must not refund again.
	if got := e.ledger.balance(beneficiary, native(0)); got != 900 {
		t.Errorf("beneficiary balance = %d, want 900", got)
	}
}

func TestTransactStatusRegister(t *testing.T) {
	dispatchErr := []byte("module error 3")
	e := newEnv(t, func(_ *executor.Config, env *env) {
		env.disp.onDispatch = func(_ xcm.Location, _ xcm.OriginKind, _ []byte, _ xcm.Weight) (xcm.Weight, []byte) {
			return xcm.NewWeight(10, 0), dispatchErr
		}
	})

	info := xcm.QueryResponseInfo{Destination: siblingOrigin, QueryID: 1}
	msg := xcm.Message{
		xcm.Transact{
			OriginKind:          xcm.OriginKindSovereignAccount,
			RequireWeightAtMost: xcm.NewWeight(10, 0),
			Call:                []byte{1},
		},
		// A failed dispatch is not an execution error; it lands in the
		// status register.
		xcm.ExpectTransactStatus{Status: xcm.TransactFailure(dispatchErr)},
		xcm.ReportTransactStatus{Info: info},
		xcm.ClearTransactStatus{},
		xcm.ExpectTransactStatus{Status: xcm.TransactStatus{}},
	}
	outcome := e.execute(msg)
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
	sent := e.sender.sent[0]
	qr := sent.msg[0].(xcm.QueryResponse)
	if qr.Response.Kind != xcm.ResponseDispatchResult {
		t.Fatalf("response kind = %d, want dispatch result", qr.Response.Kind)
	}
	if !qr.Response.DispatchResult.Equal(xcm.TransactFailure(dispatchErr)) {
		t.Errorf("DispatchResult = %v, want failure", qr.Response.DispatchResult)
	}
}

func TestTransactWeightInvalid(t *testing.T) {
	e := newEnv(t, nil)
	outcome := e.execute(xcm.Message{
		xcm.Transact{
			OriginKind:          xcm.OriginKindSovereignAccount,
			RequireWeightAtMost: xcm.NewWeight(10, 0),
			Call:                []byte{100}, // weighs 1000
		},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrMaxWeightInvalid {
		t.Errorf("outcome = %v, want max weight invalid", outcome)
	}
}

func TestHoldingEntryBound(t *testing.T) {
	e := newEnv(t, func(cfg *executor.Config, _ *env) {
		cfg.HoldingLimit = 1
	})
	for i := 0; i < 3; i++ {
		e.ledger.fund(siblingOrigin, xcm.NewFungibleAsset(xcm.NewLocation(1, xcm.Parachain(uint32(100+i))), 10))
	}
	assets := xcm.MustNewAssets(
		xcm.NewFungibleAsset(xcm.NewLocation(1, xcm.Parachain(100)), 10),
		xcm.NewFungibleAsset(xcm.NewLocation(1, xcm.Parachain(101)), 10),
		xcm.NewFungibleAsset(xcm.NewLocation(1, xcm.Parachain(102)), 10),
	)
	outcome := e.execute(xcm.Message{xcm.WithdrawAsset{Assets: assets}})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrHoldingWouldOverflow {
		t.Errorf("outcome = %v, want holding would overflow", outcome)
	}
	// Nothing may have been withdrawn.
	for i := 0; i < 3; i++ {
		a := xcm.NewFungibleAsset(xcm.NewLocation(1, xcm.Parachain(uint32(100+i))), 0)
		if got := e.ledger.balance(siblingOrigin, a); got != 10 {
			t.Errorf("balance %d = %d, want 10", i, got)
		}
	}
}

func TestOriginRegisters(t *testing.T) {
	e := newEnv(t, nil)
	descended, err := siblingOrigin.AppendWith(xcm.NewLocation(0, xcm.PalletInstance(8)))
	if err != nil {
		t.Fatalf("AppendWith() error = %v", err)
	}

	msg := xcm.Message{
		xcm.ExpectOrigin{Origin: &siblingOrigin},
		xcm.DescendOrigin{Path: xcm.Interior(xcm.PalletInstance(8))},
		xcm.ExpectOrigin{Origin: &descended},
		xcm.ClearOrigin{},
		xcm.ExpectOrigin{Origin: nil},
	}
	if outcome := e.execute(msg); !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}

	// Once cleared, origin-requiring instructions must fail.
	outcome := e.execute(xcm.Message{
		xcm.ClearOrigin{},
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(1))},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrBadOrigin {
		t.Errorf("outcome = %v, want bad origin", outcome)
	}
}

func TestExpectErrorRegister(t *testing.T) {
	e := newEnv(t, nil)
	msg := xcm.Message{
		xcm.SetErrorHandler{Handler: xcm.Message{
			xcm.ExpectError{Error: &xcm.IndexedError{Index: 1, Error: xcm.TrapError(3)}},
			xcm.ClearError{},
			xcm.ExpectError{Error: nil},
		}},
		xcm.Trap{Code: 3},
	}
	outcome := e.execute(msg)
	// The handler itself succeeded, but the original trap error stands.
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.TrapError(3) {
		t.Errorf("outcome = %v, want trap 3", outcome)
	}
}

func TestBarrierRefusal(t *testing.T) {
	e := newEnv(t, func(cfg *executor.Config, _ *env) {
		cfg.Barrier = barrier.TakeWeightCredit{}
	})
	// No weight credit supplied, so the barrier must refuse outright.
	outcome := e.execute(xcm.Message{xcm.ClearOrigin{}})
	if outcome.Kind != executor.OutcomeError || outcome.Error != xcm.ErrBarrier {
		t.Errorf("outcome = %v, want barrier error", outcome)
	}
	if !outcome.Used.IsZero() {
		t.Errorf("Used = %v, want zero", outcome.Used)
	}
}

func TestQueryResponseDelivered(t *testing.T) {
	e := newEnv(t, nil)
	resp := xcm.ExecutionResultResponse(nil)
	outcome := e.execute(xcm.Message{
		xcm.QueryResponse{QueryID: 42, Response: resp, MaxWeight: xcm.Weight{}},
	})
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
	if len(e.resp.got) != 1 || e.resp.got[0].queryID != 42 {
		t.Fatalf("responses = %v, want one with id 42", e.resp.got)
	}
	if !e.resp.got[0].origin.Equal(siblingOrigin) {
		t.Errorf("response origin = %v, want %v", e.resp.got[0].origin, siblingOrigin)
	}
}

func TestExchangeAsset(t *testing.T) {
	sibling := xcm.NewFungibleAsset(xcm.NewLocation(1, xcm.Parachain(2000)), 5)
	e := newEnv(t, func(cfg *executor.Config, _ *env) {
		cfg.Exchanger = exchangeFunc(func(_ *xcm.Location, give xcm.Assets, want xcm.Assets, _ bool) (xcm.Assets, error) {
			if err := executor.HoldingFromAssets(give).EnsureContains(xcm.MustNewAssets(native(50))); err != nil {
				return nil, err
			}
			return want, nil
		})
	})
	e.ledger.fund(siblingOrigin, native(100))

	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(100))},
		xcm.ExchangeAsset{
			Give:    xcm.Definite(xcm.MustNewAssets(native(50))),
			Want:    xcm.MustNewAssets(sibling),
			Maximal: false,
		},
		xcm.ExpectAsset{Assets: xcm.MustNewAssets(native(50), sibling)},
	})
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
}

type exchangeFunc func(*xcm.Location, xcm.Assets, xcm.Assets, bool) (xcm.Assets, error)

func (f exchangeFunc) Exchange(o *xcm.Location, give, want xcm.Assets, maximal bool) (xcm.Assets, error) {
	return f(o, give, want, maximal)
}

func TestExchangeAssetNoDeal(t *testing.T) {
	e := newEnv(t, func(cfg *executor.Config, _ *env) {
		cfg.Exchanger = exchangeFunc(func(*xcm.Location, xcm.Assets, xcm.Assets, bool) (xcm.Assets, error) {
			return nil, errors.New("refused")
		})
	})
	e.ledger.fund(siblingOrigin, native(100))

	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(100))},
		xcm.ExchangeAsset{Give: xcm.AllAssets(), Want: xcm.MustNewAssets(native(1))},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrNoDeal {
		t.Fatalf("outcome = %v, want no deal", outcome)
	}
	// The refused give assets go back into holding and end up trapped.
	entries := e.traps.trapped[locKey(siblingOrigin)]
	if len(entries) != 1 || !entries[0].Equal(xcm.MustNewAssets(native(100))) {
		t.Errorf("trapped = %v, want the original 100", entries)
	}
}

func TestUnpaidExecutionCheckOrigin(t *testing.T) {
	e := newEnv(t, nil)
	other := xcm.NewLocation(1, xcm.Parachain(9999))

	outcome := e.execute(xcm.Message{
		xcm.UnpaidExecution{WeightLimit: xcm.Unlimited(), CheckOrigin: &other},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrBadOrigin {
		t.Errorf("outcome = %v, want bad origin", outcome)
	}

	if outcome := e.execute(xcm.Message{
		xcm.UnpaidExecution{WeightLimit: xcm.Unlimited(), CheckOrigin: &siblingOrigin},
	}); !outcome.Succeeded() {
		t.Errorf("outcome = %v, want complete", outcome)
	}
}

func TestHrmpUnimplemented(t *testing.T) {
	e := newEnv(t, nil)
	outcome := e.execute(xcm.Message{
		xcm.HrmpNewChannelOpenRequest{Sender: 1, MaxMessageSize: 64, MaxCapacity: 8},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrUnimplemented {
		t.Errorf("outcome = %v, want unimplemented", outcome)
	}
}

func TestDeliveryFeePaidFromHolding(t *testing.T) {
	e := newEnv(t, func(cfg *executor.Config, env *env) {
		env.fees.waive = false
		env.sender.fee = xcm.MustNewAssets(native(7))
	})
	e.ledger.fund(siblingOrigin, native(100))
	dest := xcm.NewLocation(1, xcm.Parachain(3000))

	// The delivery fee is paid from whatever remains in holding after
	// the transferred assets are taken out.
	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(100))},
		xcm.InitiateReserveWithdraw{Assets: xcm.Definite(xcm.MustNewAssets(native(93))), Reserve: dest, XCM: nil},
	})
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
	if len(e.fees.handled) != 1 || !e.fees.handled[0].Equal(xcm.MustNewAssets(native(7))) {
		t.Fatalf("handled fees = %v, want 7 native", e.fees.handled)
	}
	if e.fees.reasons[0] != executor.FeeReasonInitiateReserveWithdraw {
		t.Errorf("fee reason = %d, want initiate reserve withdraw", e.fees.reasons[0])
	}
}

func TestTransactCallFiltered(t *testing.T) {
	e := newEnv(t, func(_ *executor.Config, env *env) {
		env.disp.disallow = true
	})

	// The error handler observes the status register: a refused call is
	// never dispatched, so the register stays unset.
	outcome := e.execute(xcm.Message{
		xcm.SetErrorHandler{Handler: xcm.Message{
			xcm.ExpectTransactStatus{Status: xcm.TransactStatus{}},
		}},
		xcm.Transact{
			OriginKind:          xcm.OriginKindSovereignAccount,
			RequireWeightAtMost: xcm.NewWeight(100, 0),
			Call:                []byte{1, 2, 3},
		},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrNoPermission {
		t.Fatalf("outcome = %v, want no permission", outcome)
	}
	if e.disp.calls != 0 {
		t.Errorf("dispatcher ran %d times, want 0", e.disp.calls)
	}
}

func TestDeliveryFeeExceedsHolding(t *testing.T) {
	e := newEnv(t, func(_ *executor.Config, env *env) {
		env.fees.waive = false
		env.sender.fee = xcm.MustNewAssets(native(50))
	})
	e.ledger.fund(siblingOrigin, native(100))
	dest := xcm.NewLocation(1, xcm.Parachain(3000))

	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(100))},
		xcm.DepositReserveAsset{Assets: xcm.Definite(xcm.MustNewAssets(native(60))), Dest: dest, XCM: nil},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrNotHoldingFees {
		t.Fatalf("outcome = %v, want not holding fees", outcome)
	}
	if len(e.sender.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(e.sender.sent))
	}
	if len(e.fees.handled) != 0 {
		t.Errorf("handled fees = %v, want none", e.fees.handled)
	}

	// The holding snapshot is restored before the trap, so all 100 units
	// land there.
	entries := e.traps.trapped[locKey(siblingOrigin)]
	if len(entries) != 1 || !entries[0].Equal(xcm.MustNewAssets(native(100))) {
		t.Errorf("trapped = %v, want 100 native", entries)
	}
}

func TestPaidExecutionCannotSkipPurchase(t *testing.T) {
	e := newEnv(t, func(cfg *executor.Config, _ *env) {
		cfg.Barrier = barrier.AllowTopLevelPaidExecutionFrom{Allowed: barrier.AnyLocation}
	})
	e.ledger.fund(siblingOrigin, native(1000))
	beneficiary := account(1)

	// An unlimited purchase limit is rewritten by the barrier, so the
	// message weight is still bought out of the fees.
	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(1000))},
		xcm.BuyExecution{Fees: native(1000), WeightLimit: xcm.Unlimited()},
		xcm.DepositAsset{Assets: xcm.AllAssets(), Beneficiary: beneficiary},
	})
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}
	if want := xcm.NewWeight(30, 0); outcome.Used != want {
		t.Errorf("used = %v, want %v", outcome.Used, want)
	}
	if got := e.ledger.balance(beneficiary, native(0)); got != 970 {
		t.Errorf("beneficiary = %d, want 970 after 30 paid", got)
	}
}

func TestExchangeAssetHoldingBound(t *testing.T) {
	exchanged := false
	e := newEnv(t, func(cfg *executor.Config, _ *env) {
		cfg.HoldingLimit = 2
		cfg.Exchanger = exchangeFunc(func(_ *xcm.Location, _ xcm.Assets, want xcm.Assets, _ bool) (xcm.Assets, error) {
			exchanged = true
			return want, nil
		})
	})
	e.ledger.fund(siblingOrigin, native(100))

	want := make([]xcm.Asset, 0, 5)
	for i := byte(1); i <= 5; i++ {
		want = append(want, xcm.NewFungibleAsset(account(i), 1))
	}

	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(100))},
		xcm.ExchangeAsset{
			Give: xcm.Definite(xcm.MustNewAssets(native(100))),
			Want: xcm.MustNewAssets(want...),
		},
	})
	if outcome.Kind != executor.OutcomeIncomplete || outcome.Error != xcm.ErrHoldingWouldOverflow {
		t.Fatalf("outcome = %v, want holding would overflow", outcome)
	}
	if exchanged {
		t.Error("exchanger ran despite the bound")
	}

	// The given assets go back into holding and end up trapped whole.
	entries := e.traps.trapped[locKey(siblingOrigin)]
	if len(entries) != 1 || !entries[0].Equal(xcm.MustNewAssets(native(100))) {
		t.Errorf("trapped = %v, want 100 native", entries)
	}
}

func TestChargeFees(t *testing.T) {
	e := newEnv(t, func(_ *executor.Config, env *env) {
		env.fees.waive = false
	})
	e.ledger.fund(siblingOrigin, native(100))

	if err := e.x.ChargeFees(siblingOrigin, xcm.MustNewAssets(native(30))); err != nil {
		t.Fatalf("ChargeFees() error = %v", err)
	}
	if got := e.ledger.balance(siblingOrigin, native(0)); got != 70 {
		t.Errorf("balance = %d, want 70", got)
	}
	if len(e.fees.handled) != 1 || !e.fees.handled[0].Equal(xcm.MustNewAssets(native(30))) {
		t.Fatalf("handled fees = %v, want 30 native", e.fees.handled)
	}
	if e.fees.reasons[0] != executor.FeeReasonChargeFees {
		t.Errorf("fee reason = %d, want charge fees", e.fees.reasons[0])
	}

	// An unpayable charge collects nothing.
	if err := e.x.ChargeFees(siblingOrigin, xcm.MustNewAssets(native(1000))); err == nil {
		t.Error("ChargeFees() over balance = nil, want error")
	}
	if len(e.fees.handled) != 1 {
		t.Errorf("handled fees after failed charge = %d entries, want 1", len(e.fees.handled))
	}

	// Waived origins keep their balance.
	e.fees.waive = true
	if err := e.x.ChargeFees(siblingOrigin, xcm.MustNewAssets(native(30))); err != nil {
		t.Fatalf("ChargeFees() waived error = %v", err)
	}
	if got := e.ledger.balance(siblingOrigin, native(0)); got != 70 {
		t.Errorf("balance after waived charge = %d, want 70", got)
	}
}

func TestAssetConservation(t *testing.T) {
	e := newEnv(t, nil)
	e.ledger.fund(siblingOrigin, native(1000))
	beneficiary := account(1)

	outcome := e.execute(xcm.Message{
		xcm.WithdrawAsset{Assets: xcm.MustNewAssets(native(500))},
		xcm.BuyExecution{Fees: native(500), WeightLimit: xcm.Limited(xcm.NewWeight(30, 0))},
		xcm.DepositAsset{Assets: xcm.Definite(xcm.MustNewAssets(native(300))), Beneficiary: beneficiary},
	})
	if !outcome.Succeeded() {
		t.Fatalf("outcome = %v, want complete", outcome)
	}

	withdrawn := uint64(1000) - e.ledger.balance(siblingOrigin, native(0))
	deposited := e.ledger.balance(beneficiary, native(0))
	var trapped uint64
	for _, entries := range e.traps.trapped {
		for _, assets := range entries {
			for _, a := range assets {
				trapped += a.Amount
			}
		}
	}

	// Everything withdrawn is accounted for: external deposits, trapped
	// remainder, and the weight purchase at one token per ref-time.
	paid := outcome.Used.RefTime
	if withdrawn != deposited+trapped+paid {
		t.Errorf("withdrawn %d != deposited %d + trapped %d + paid %d",
			withdrawn, deposited, trapped, paid)
	}
	if withdrawn != 500 || deposited != 300 || trapped != 170 || paid != 30 {
		t.Errorf("flows = %d/%d/%d/%d, want 500/300/170/30",
			withdrawn, deposited, trapped, paid)
	}
}
