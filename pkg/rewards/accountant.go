package rewards

import (
	"fmt"
	"math/big"

	"github.com/jonboulle/clockwork"
)

// RewardScale is the fixed-point precision of the reward-per-token
// accumulator. It matches the deployed staking program and must never change
// while the program is live.
const RewardScale = 1_000_000_000

var (
	rewardScaleBig = big.NewInt(RewardScale)
	maxU64         = new(big.Int).SetUint64(^uint64(0))
	maxU128        = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// Accountant projects staking rewards forward to the current wall clock
// without mutating chain state. All arithmetic is integer with floor
// division; any value leaving the on-chain integer domain fails with
// ErrArithmeticOverflow instead of saturating.
type Accountant struct {
	clock clockwork.Clock
}

func NewAccountant(clock clockwork.Clock) *Accountant {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Accountant{clock: clock}
}

// ProjectedRewardPerToken extends the pool's stored accumulator to now.
// A paused pool (zero rate), an empty pool, or a stale clock contributes
// nothing; the accumulator never decreases.
func (a *Accountant) ProjectedRewardPerToken(pool *StakingPool) (*big.Int, error) {
	stored := pool.RewardPerTokenStored.BigInt()
	elapsed := a.clock.Now().Unix() - pool.LastUpdateTs
	if elapsed <= 0 || pool.TotalStaked == 0 || pool.RewardRate == 0 {
		return stored, nil
	}

	delta := new(big.Int).SetInt64(elapsed)
	delta.Mul(delta, new(big.Int).SetUint64(pool.RewardRate))
	delta.Mul(delta, rewardScaleBig)
	delta.Div(delta, new(big.Int).SetUint64(pool.TotalStaked))

	projected := new(big.Int).Add(stored, delta)
	if projected.Cmp(maxU128) > 0 {
		return nil, fmt.Errorf("projected reward per token exceeds u128: %w", ErrArithmeticOverflow)
	}
	return projected, nil
}

// PendingRewards computes the total claimable rewards for a position against
// its pool: the already-banked pendingRewards plus the accrual since the
// position last synced with the accumulator. A position that is ahead of the
// projection (stale pool data from the caller) accrues zero rather than
// going negative.
func (a *Accountant) PendingRewards(pool *StakingPool, position *StakePosition) (uint64, error) {
	projected, err := a.ProjectedRewardPerToken(pool)
	if err != nil {
		return 0, err
	}

	paid := position.RewardPerTokenPaid.BigInt()
	owed := new(big.Int).Sub(projected, paid)
	if owed.Sign() < 0 {
		owed.SetInt64(0)
	}

	accrued := new(big.Int).SetUint64(position.Amount)
	accrued.Mul(accrued, owed)
	accrued.Div(accrued, rewardScaleBig)

	total := new(big.Int).SetUint64(position.PendingRewards)
	total.Add(total, accrued)
	if total.Cmp(maxU64) > 0 {
		return 0, fmt.Errorf("pending rewards exceed u64: %w", ErrArithmeticOverflow)
	}
	return total.Uint64(), nil
}
