package epoch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solstice-fi/emissary/internal/config"
	"github.com/solstice-fi/emissary/internal/farm"
	"github.com/solstice-fi/emissary/internal/gov"
	"github.com/solstice-fi/emissary/internal/ledger"
	"github.com/solstice-fi/emissary/internal/metrics"
	"github.com/solstice-fi/emissary/internal/types"
)

// fakeStore records persistence calls and fails on demand.
type fakeStore struct {
	mu        sync.Mutex
	epoch     int
	snapshots []types.EngineSnapshot
	epochIDs  []string
	failNext  bool
}

func (s *fakeStore) IncrementEpochNumber() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		return 0, errors.New("store down")
	}
	s.epoch++
	return s.epoch, nil
}

func (s *fakeStore) SaveEngineSnapshot(epochNumber int, epochID string, snapshot types.EngineSnapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		return 0, errors.New("store down")
	}
	s.snapshots = append(s.snapshots, snapshot)
	s.epochIDs = append(s.epochIDs, epochID)
	return int64(len(s.snapshots)), nil
}

func (s *fakeStore) saved() []types.EngineSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.EngineSnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// newEngine assembles a controller with one funded pool and live votes, so an
// epoch has rates to recompute.
func newEngine(t *testing.T) *farm.Controller {
	t.Helper()

	bank := ledger.NewBank()
	oracle := gov.NewStaticOracle()

	ctrl, err := farm.NewController(farm.Config{
		Ledger: bank,
		Power:  oracle,
		Params: config.DefaultFarmParameters,
	})
	require.NoError(t, err)

	id, err := ctrl.RegisterPool("ulp", sdkmath.NewInt(100), false)
	require.NoError(t, err)

	supply := sdkmath.NewInt(10 * config.DefaultFarmParameters.EmissionWindowSeconds)
	require.NoError(t, bank.Mint(config.DefaultFarmParameters.RewardDenom, "treasury", supply))
	require.NoError(t, ctrl.StartEmissions("treasury", supply))

	require.NoError(t, bank.Mint("ulp", "alice", sdkmath.NewInt(1_000)))
	_, err = ctrl.Deposit("alice", id, sdkmath.NewInt(1_000))
	require.NoError(t, err)

	return ctrl
}

func TestNewRunnerRequiresController(t *testing.T) {
	_, err := NewRunner(Config{})
	require.Error(t, err)

	runner, err := NewRunner(Config{Controller: newEngine(t)})
	require.NoError(t, err)
	assert.NotNil(t, runner)
}

func TestRunEpochRebalancesAndPersists(t *testing.T) {
	ctrl := newEngine(t)
	store := &fakeStore{}
	meters := metrics.New()

	runner, err := NewRunner(Config{Controller: ctrl, Meters: meters, Store: store})
	require.NoError(t, err)

	runner.RunEpoch(context.Background())

	// The reserved weight carried the whole allocation: the single pool got
	// the full global rate.
	view, err := ctrl.PoolView(1)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(10), view.EmissionRate)

	saved := store.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, 1, store.epoch)
	assert.NotEmpty(t, store.epochIDs[0])
	assert.Len(t, saved[0].Pools, 1)
	assert.Equal(t, sdkmath.NewInt(10), saved[0].TotalEmissionRate)
	assert.Equal(t, sdkmath.NewInt(1_000), saved[0].Pools[0].TotalStaked)
}

func TestRunEpochWithoutStoreOrMeters(t *testing.T) {
	ctrl := newEngine(t)
	runner, err := NewRunner(Config{Controller: ctrl})
	require.NoError(t, err)

	// Nothing to persist or count; the rebalance still lands.
	runner.RunEpoch(context.Background())

	view, err := ctrl.PoolView(1)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(10), view.EmissionRate)
}

func TestRunEpochSurvivesStoreFailure(t *testing.T) {
	ctrl := newEngine(t)
	store := &fakeStore{failNext: true}

	runner, err := NewRunner(Config{Controller: ctrl, Store: store})
	require.NoError(t, err)

	runner.RunEpoch(context.Background())

	// Persistence failed; the engine-side effects still happened.
	view, err := ctrl.PoolView(1)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(10), view.EmissionRate)
	assert.Empty(t, store.saved())
}

func TestRunLoopStopsOnContextCancel(t *testing.T) {
	ctrl := newEngine(t)
	store := &fakeStore{}
	runner, err := NewRunner(Config{Controller: ctrl, Store: store})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.RunLoop(ctx, 10*time.Millisecond)
		close(done)
	}()

	// Let the immediate first epoch and at least one ticker epoch run.
	require.Eventually(t, func() bool {
		return len(store.saved()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after context cancellation")
	}
}
