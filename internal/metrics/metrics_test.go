package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solstice-fi/emissary/internal/types"
)

func TestRecordCountsEvents(t *testing.T) {
	m := New()

	require.NoError(t, m.Record(types.Event{
		Kind:   types.EventDeposit,
		PoolID: types.PoolID(1),
		Amount: sdkmath.NewInt(1_000),
	}))
	require.NoError(t, m.Record(types.Event{
		Kind:   types.EventRewardPaid,
		PoolID: types.PoolID(1),
		Amount: sdkmath.NewInt(400),
	}))
	require.NoError(t, m.Record(types.Event{
		Kind:   types.EventWithdraw,
		PoolID: types.PoolID(1),
		Amount: sdkmath.NewInt(250),
	}))

	assert.Equal(t, float64(1_000), testutil.ToFloat64(m.staked.WithLabelValues("1")))
	assert.Equal(t, float64(400), testutil.ToFloat64(m.rewardsPaid))
	assert.Equal(t, float64(250), testutil.ToFloat64(m.withdrawn.WithLabelValues("1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("DEPOSIT")))
}

func TestObserveSnapshotSyncsGauges(t *testing.T) {
	m := New()

	m.ObserveSnapshot(types.EngineSnapshot{
		TotalEmissionRate: sdkmath.NewInt(10),
		TotalWeight:       sdkmath.NewInt(400),
		RewardEscrow:      sdkmath.NewInt(9_999),
		PositionCount:     3,
		VoterCount:        2,
		Pools: []types.PoolSnapshot{{
			Pool: types.Pool{
				ID:             types.PoolID(1),
				EmissionRate:   sdkmath.NewInt(7),
				ReservedWeight: sdkmath.NewInt(100),
				VotedWeight:    sdkmath.NewInt(300),
			},
			TotalStaked: sdkmath.NewInt(5_000),
		}},
	})

	assert.Equal(t, float64(10), testutil.ToFloat64(m.totalRate))
	assert.Equal(t, float64(400), testutil.ToFloat64(m.totalWeight))
	assert.Equal(t, float64(9_999), testutil.ToFloat64(m.escrow))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.positions))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.poolRate.WithLabelValues("1")))
	assert.Equal(t, float64(5_000), testutil.ToFloat64(m.poolStaked.WithLabelValues("1")))
	assert.Equal(t, float64(400), testutil.ToFloat64(m.poolWeight.WithLabelValues("1")))
}

func TestHandlerServesScrape(t *testing.T) {
	m := New()
	m.CountEpoch()
	m.CountRequest("GET", "/v1/status", 200)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, recorder.Code)
	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "emissary_epochs_total 1")
	assert.Contains(t, string(body), "emissary_http_requests_total")
}
