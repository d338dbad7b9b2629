package incentive

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

const (
	// DefaultValidatorCount is the number of validators a claim carries unless configured otherwise.
	DefaultValidatorCount = 1
	// DefaultIncentiveDuration is 30 days in seconds.
	DefaultIncentiveDuration = 60 * 60 * 24 * 30
	// MaxIncentiveDuration is 100 years in seconds. It keeps now + duration far
	// from uint64 overflow.
	MaxIncentiveDuration = 60 * 60 * 24 * 365 * 100
)

var (
	// DefaultDepositValue is 32 ether in wei.
	DefaultDepositValue = new(uint256.Int).Mul(uint256.NewInt(32), uint256.NewInt(1_000_000_000_000_000_000))
	// DefaultRewardAmount is 500 ether in wei.
	DefaultRewardAmount = new(uint256.Int).Mul(uint256.NewInt(500), uint256.NewInt(1_000_000_000_000_000_000))
)

// Record is the incentive state of one beneficiary. The zero value is the
// unenrolled state.
type Record struct {
	Claimed bool
	EndTime uint64
}

// Unenrolled reports whether the record has never been enrolled or revoked.
func (r Record) Unenrolled() bool {
	return r.EndTime == 0 && !r.Claimed
}

// Pending reports whether the record is enrolled and not terminal.
func (r Record) Pending() bool {
	return r.EndTime != 0 && !r.Claimed
}

// Config holds the owner-controlled settings.
type Config struct {
	ValidatorCount    uint64
	IncentiveDuration uint64
	Distributor       common.Address
	Owner             common.Address
}

// Params are fixed when the contract is created.
type Params struct {
	// DepositValue is forwarded with every validator deposit, in wei.
	DepositValue *uint256.Int
	// RewardAmount is allocated to a beneficiary after a successful claim.
	RewardAmount *uint256.Int
	// DepositAsset backs deposits. The zero address means native currency.
	DepositAsset common.Address
	// Self is the contract's own ledger account.
	Self common.Address
}

// DepositSink accepts validator deposits.
type DepositSink interface {
	Address() common.Address
	Submit(ctx context.Context, pubkey, withdrawalCredentials, signature []byte, root [32]byte, value *uint256.Int) error
}

// RewardDistributor grants secondary token rewards.
type RewardDistributor interface {
	Allocate(ctx context.Context, source, beneficiary common.Address, amount *uint256.Int) error
}

// DistributorDirectory resolves a configured distributor address.
type DistributorDirectory interface {
	Lookup(addr common.Address) (RewardDistributor, bool)
}

// Distributors is a static DistributorDirectory.
type Distributors map[common.Address]RewardDistributor

// Lookup returns the distributor registered at addr.
func (d Distributors) Lookup(addr common.Address) (RewardDistributor, bool) {
	dist, ok := d[addr]

	return dist, ok
}

// Ledger holds the balances that back deposits.
type Ledger interface {
	BalanceOf(asset, account common.Address) *uint256.Int
	Mint(asset, account common.Address, amount *uint256.Int)
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
}

// GlobalConfig is the single mutable configuration shared by the registry, the
// claim processor and the admin surface. Only Admin writes to it.
type GlobalConfig struct {
	mu      sync.RWMutex
	journal *state.Journal
	values  Config
}

// NewGlobalConfig wraps initial configuration values.
func NewGlobalConfig(values Config, journal *state.Journal) *GlobalConfig {
	return &GlobalConfig{
		journal: journal,
		values:  values,
	}
}

// Snapshot returns a copy of the current values.
func (g *GlobalConfig) Snapshot() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.values
}

func (g *GlobalConfig) ValidatorCount() uint64 {
	return g.Snapshot().ValidatorCount
}

func (g *GlobalConfig) IncentiveDuration() uint64 {
	return g.Snapshot().IncentiveDuration
}

func (g *GlobalConfig) Distributor() common.Address {
	return g.Snapshot().Distributor
}

func (g *GlobalConfig) Owner() common.Address {
	return g.Snapshot().Owner
}

// update applies fn to the values and journals the previous state.
func (g *GlobalConfig) update(fn func(c *Config)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.values
	fn(&g.values)

	if g.journal == nil {
		return
	}

	g.journal.Append(func() {
		g.mu.Lock()
		defer g.mu.Unlock()

		g.values = prev
	})
}
