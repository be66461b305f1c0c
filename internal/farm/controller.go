/*

Controller is the reward-distribution and governance-weighting engine. It owns
every pool, position and vote record, and it is the only writer of that state.

All public operations take the controller mutex, refresh the affected pool
accumulators before reading anything else, stage their mutations on working
copies, move assets through the ledger as one all-or-nothing batch, and only
then commit the staged state. An operation that fails at any point commits
nothing.

*/

package farm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solstice-fi/emissary/internal/gov"
	"github.com/solstice-fi/emissary/internal/ledger"
	"github.com/solstice-fi/emissary/internal/logger"
	"github.com/solstice-fi/emissary/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidConfig          = errors.New("controller configuration is invalid")
	ErrInvalidParameters      = errors.New("engine parameters are invalid")
	ErrInvalidAccount         = errors.New("account is invalid")
	ErrInvalidAmount          = errors.New("amount is invalid")
	ErrInvalidDenom           = errors.New("denom is invalid")
	ErrPoolNotFound           = errors.New("pool does not exist")
	ErrPoolExists             = errors.New("pool already exists for staked asset")
	ErrNoPosition             = errors.New("no position for account in pool")
	ErrInsufficientStake      = errors.New("withdrawal exceeds staked amount")
	ErrVoteLengthMismatch     = errors.New("pool and weight lists differ in length")
	ErrInvalidWeight          = errors.New("vote weight is invalid")
	ErrZeroWeightSum          = errors.New("vote weights sum to zero")
	ErrDuplicatePool          = errors.New("duplicate pool in request")
	ErrEmissionsStarted       = errors.New("emissions already started")
	ErrReservedWeightReleased = errors.New("reserved weight already released")
	ErrTransferRejected       = errors.New("asset transfer rejected")
)

var farmLogger = logger.GetForComponent("farm_controller")

// positionKey identifies one position record.
type positionKey struct {
	pool    types.PoolID
	account string
}

// Config carries the controller's collaborators and parameters.
type Config struct {
	// Ledger moves and reports assets. Required.
	Ledger ledger.Ledger

	// Power reports live governance power. Required.
	Power gov.PowerOracle

	// Params are the engine constants; see ValidateParameters.
	Params types.FarmParameters

	// Now returns the current unix time in seconds. Defaults to the wall
	// clock; tests inject a manual clock.
	Now func() int64

	// Sinks receive events after each committed operation. Optional.
	Sinks []EventSink
}

// Controller implements the accumulator engine, position ledger, boost
// calculator, weight allocator and pool registry over in-process state.
type Controller struct {
	mu sync.Mutex

	ledger ledger.Ledger
	power  gov.PowerOracle
	params types.FarmParameters
	now    func() int64
	sinks  []EventSink

	// pools is an append-only arena; PoolID n lives at index n-1.
	pools        []types.Pool
	poolsByDenom map[string]types.PoolID
	positions    map[positionKey]types.Position
	voters       map[string]types.VoterState

	totalEmissionRate sdkmath.Int
	totalWeight       sdkmath.Int
	emissionsStarted  bool
}

// NewController creates an engine with no pools and no emissions running.
func NewController(cfg Config) (*Controller, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	farmLogger.Info().
		Str("reward_denom", cfg.Params.RewardDenom).
		Str("precision_factor", cfg.Params.PrecisionFactor.String()).
		Int64("boost_base_bps", cfg.Params.BoostBaseBps).
		Int64("boost_extra_bps", cfg.Params.BoostExtraBps).
		Int64("emission_window_seconds", cfg.Params.EmissionWindowSeconds).
		Msg("Farm controller initialized")

	return &Controller{
		ledger:            cfg.Ledger,
		power:             cfg.Power,
		params:            cfg.Params,
		now:               now,
		sinks:             cfg.Sinks,
		poolsByDenom:      make(map[string]types.PoolID),
		positions:         make(map[positionKey]types.Position),
		voters:            make(map[string]types.VoterState),
		totalEmissionRate: sdkmath.ZeroInt(),
		totalWeight:       sdkmath.ZeroInt(),
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.Ledger == nil {
		return errors.Join(ErrInvalidConfig, errors.New("ledger is nil"))
	}
	if cfg.Power == nil {
		return errors.Join(ErrInvalidConfig, errors.New("power oracle is nil"))
	}
	if err := ValidateParameters(cfg.Params); err != nil {
		return err
	}
	return nil
}

// ValidateParameters rejects parameter sets the engine cannot run on.
func ValidateParameters(params types.FarmParameters) error {
	if params.PrecisionFactor.IsNil() || !params.PrecisionFactor.IsPositive() {
		return errors.Join(ErrInvalidParameters, errors.New("precision factor must be positive"))
	}
	if params.BoostBaseBps <= 0 || params.BoostBaseBps > types.BpsDenominator {
		return errors.Join(ErrInvalidParameters,
			fmt.Errorf("boost base bps %d outside (0, %d]", params.BoostBaseBps, types.BpsDenominator))
	}
	if params.BoostExtraBps < 0 || params.BoostExtraBps > types.BpsDenominator {
		return errors.Join(ErrInvalidParameters,
			fmt.Errorf("boost extra bps %d outside [0, %d]", params.BoostExtraBps, types.BpsDenominator))
	}
	if params.BoostBaseBps+params.BoostExtraBps != types.BpsDenominator {
		return errors.Join(ErrInvalidParameters,
			fmt.Errorf("boost bps %d + %d do not sum to %d",
				params.BoostBaseBps, params.BoostExtraBps, types.BpsDenominator))
	}
	if params.EmissionWindowSeconds <= 0 {
		return errors.Join(ErrInvalidParameters, errors.New("emission window must be positive"))
	}
	if params.RewardDenom == "" {
		return errors.Join(ErrInvalidParameters, errors.New("reward denom is empty"))
	}
	return nil
}

// Params returns the engine constants.
func (c *Controller) Params() types.FarmParameters {
	return c.params
}

// loadPool returns a working copy of a pool. Callers mutate the copy and
// write it back through commitPool; nothing is visible until then.
func (c *Controller) loadPool(id types.PoolID) (types.Pool, error) {
	if id == 0 || int(id) > len(c.pools) {
		return types.Pool{}, errors.Join(ErrPoolNotFound, fmt.Errorf("pool id %d", id))
	}
	return c.pools[id-1], nil
}

// commitPool writes a working copy back as one visible transition.
func (c *Controller) commitPool(pool types.Pool) {
	c.pools[pool.ID-1] = pool
}

// loadPosition returns a working copy of a position, or a zeroed record if
// the participant has none in this pool.
func (c *Controller) loadPosition(id types.PoolID, account string) (types.Position, bool) {
	pos, exists := c.positions[positionKey{pool: id, account: account}]
	if !exists {
		return types.Position{
			PoolID:       id,
			Account:      account,
			StakedAmount: sdkmath.ZeroInt(),
			DerivedStake: sdkmath.ZeroInt(),
			RewardDebt:   sdkmath.ZeroInt(),
		}, false
	}
	return pos, true
}

// commitPosition writes a working copy back, deleting the record when the
// position has fully unwound.
func (c *Controller) commitPosition(pos types.Position) {
	key := positionKey{pool: pos.PoolID, account: pos.Account}
	if pos.StakedAmount.IsZero() && pos.RewardDebt.IsZero() {
		delete(c.positions, key)
		return
	}
	c.positions[key] = pos
}
