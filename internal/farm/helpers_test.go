package farm

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/solstice-fi/emissary/internal/config"
	"github.com/solstice-fi/emissary/internal/gov"
	"github.com/solstice-fi/emissary/internal/ledger"
	"github.com/solstice-fi/emissary/internal/types"
)

const (
	testEpoch = int64(1_700_000_000)
	treasury  = "treasury"
)

// manualClock drives the controller deterministically in tests.
type manualClock struct {
	now int64
}

func (m *manualClock) Now() int64 {
	return m.now
}

func (m *manualClock) Advance(seconds int64) {
	m.now += seconds
}

// faultyLedger wraps the bank and fails batches on demand, standing in for a
// transfer collaborator that rejects mid-operation.
type faultyLedger struct {
	*ledger.Bank
	fail bool
}

func (f *faultyLedger) TransferBatch(movements []ledger.Movement) error {
	if f.fail {
		return ledger.ErrInsufficientBalance
	}
	return f.Bank.TransferBatch(movements)
}

type fixture struct {
	t      *testing.T
	clock  *manualClock
	bank   *ledger.Bank
	ledger *faultyLedger
	oracle *gov.StaticOracle
	events *Collector
	ctrl   *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &manualClock{now: testEpoch}
	bank := ledger.NewBank()
	faulty := &faultyLedger{Bank: bank}
	oracle := gov.NewStaticOracle()
	events := NewCollector(0)

	ctrl, err := NewController(Config{
		Ledger: faulty,
		Power:  oracle,
		Params: config.DefaultFarmParameters,
		Now:    clock.Now,
		Sinks:  []EventSink{events},
	})
	require.NoError(t, err)

	return &fixture{
		t:      t,
		clock:  clock,
		bank:   bank,
		ledger: faulty,
		oracle: oracle,
		events: events,
		ctrl:   ctrl,
	}
}

func (f *fixture) mint(account, denom string, amount int64) {
	f.t.Helper()
	require.NoError(f.t, f.bank.Mint(denom, account, sdkmath.NewInt(amount)))
}

// startEmissions funds the treasury with exactly ratePerSecond for the whole
// window and starts the stream, so the global rate lands on ratePerSecond
// with no flooring loss.
func (f *fixture) startEmissions(ratePerSecond int64) {
	f.t.Helper()
	supply := ratePerSecond * f.ctrl.Params().EmissionWindowSeconds
	f.mint(treasury, f.ctrl.Params().RewardDenom, supply)
	require.NoError(f.t, f.ctrl.StartEmissions(treasury, sdkmath.NewInt(supply)))
}

func (f *fixture) registerPool(denom string, reserved int64) types.PoolID {
	f.t.Helper()
	id, err := f.ctrl.RegisterPool(denom, sdkmath.NewInt(reserved), false)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) deposit(account string, id types.PoolID, amount int64) sdkmath.Int {
	f.t.Helper()
	paid, err := f.ctrl.Deposit(account, id, sdkmath.NewInt(amount))
	require.NoError(f.t, err)
	return paid
}

func (f *fixture) pending(account string, id types.PoolID) sdkmath.Int {
	f.t.Helper()
	pending, err := f.ctrl.PendingReward(account, id)
	require.NoError(f.t, err)
	return pending
}

// committedPool reads a pool's committed state without the refresh every
// public view performs.
func (f *fixture) committedPool(id types.PoolID) types.Pool {
	f.t.Helper()
	require.LessOrEqual(f.t, int(id), len(f.ctrl.pools))
	return f.ctrl.pools[id-1]
}

func (f *fixture) committedPosition(account string, id types.PoolID) (types.Position, bool) {
	f.t.Helper()
	pos, ok := f.ctrl.positions[positionKey{pool: id, account: account}]
	return pos, ok
}

func (f *fixture) rewardBalance(account string) sdkmath.Int {
	return f.bank.Balance(f.ctrl.Params().RewardDenom, account)
}
