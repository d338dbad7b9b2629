package incentive

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

// Options configure a Contract.
type Options struct {
	Config       Config
	Params       Params
	Clock        clockwork.Clock
	Ledger       Ledger
	Sink         DepositSink
	Distributors DistributorDirectory
}

// Contract binds the registry, the claim processor and the admin surface to
// one executor and one configuration.
type Contract struct {
	*Admin

	exec     *state.Executor
	config   *GlobalConfig
	params   Params
	registry *Registry
	claims   *ClaimProcessor
	events   *EventLog
	ledger   Ledger
}

// New creates a contract. Ledger and sink must record their changes in the
// executor's journal for claims to be atomic.
func New(exec *state.Executor, opts Options) (*Contract, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	distributors := opts.Distributors
	if distributors == nil {
		distributors = Distributors{}
	}

	params := Params{
		DepositValue: new(uint256.Int).Set(opts.Params.DepositValue),
		RewardAmount: new(uint256.Int).Set(opts.Params.RewardAmount),
		DepositAsset: opts.Params.DepositAsset,
		Self:         opts.Params.Self,
	}

	journal := exec.Journal()
	config := NewGlobalConfig(opts.Config, journal)
	events := NewEventLog(journal)
	registry := NewRegistry(config, clock, journal, events)

	c := &Contract{
		exec:     exec,
		config:   config,
		params:   params,
		registry: registry,
		events:   events,
		ledger:   opts.Ledger,
		claims: &ClaimProcessor{
			exec:         exec,
			clock:        clock,
			config:       config,
			params:       params,
			registry:     registry,
			ledger:       opts.Ledger,
			sink:         opts.Sink,
			distributors: distributors,
			events:       events,
		},
		Admin: &Admin{
			exec:         exec,
			clock:        clock,
			config:       config,
			params:       params,
			registry:     registry,
			ledger:       opts.Ledger,
			distributors: distributors,
			events:       events,
		},
	}

	log.WithFields(logrus.Fields{
		"self":               params.Self.Hex(),
		"owner":              opts.Config.Owner.Hex(),
		"validator_count":    opts.Config.ValidatorCount,
		"incentive_duration": opts.Config.IncentiveDuration,
		"deposit_asset":      params.DepositAsset.Hex(),
	}).Debug("Created incentive contract")

	return c, nil
}

func validateOptions(opts Options) error {
	switch {
	case opts.Ledger == nil:
		return errors.Wrap(ErrInvalidConfig, "ledger is required")
	case opts.Sink == nil:
		return errors.Wrap(ErrInvalidConfig, "deposit sink is required")
	case opts.Params.DepositValue == nil || opts.Params.DepositValue.IsZero():
		return errors.Wrap(ErrInvalidConfig, "deposit value is required")
	case opts.Params.RewardAmount == nil:
		return errors.Wrap(ErrInvalidConfig, "reward amount is required")
	case opts.Params.Self == (common.Address{}):
		return errors.Wrap(ErrInvalidConfig, "contract address is required")
	}

	return validateConfig(opts.Config)
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Owner == (common.Address{}):
		return errors.Wrap(ErrInvalidConfig, "owner is required")
	case cfg.ValidatorCount == 0 || cfg.ValidatorCount > MaxValidatorCount:
		return errors.Wrapf(ErrInvalidConfig, "validator count must be between 1 and %d", MaxValidatorCount)
	case cfg.IncentiveDuration > MaxIncentiveDuration:
		return errors.Wrapf(ErrInvalidConfig, "incentive duration must be at most %d seconds", MaxIncentiveDuration)
	}

	return nil
}

// Claim runs a claim for caller.
func (c *Contract) Claim(ctx context.Context, caller common.Address, payload []byte) error {
	return c.claims.Claim(ctx, caller, payload)
}

// StatusOf returns the incentive record of addr.
func (c *Contract) StatusOf(addr common.Address) Record {
	return c.registry.StatusOf(addr)
}

// Fund credits amount of asset to the contract account, the way an incoming
// transfer would.
func (c *Contract) Fund(ctx context.Context, asset common.Address, amount *uint256.Int) error {
	return c.exec.Execute(ctx, func(ctx context.Context) error {
		c.ledger.Mint(asset, c.params.Self, amount)

		return nil
	})
}

// Balance returns the contract's balance of asset.
func (c *Contract) Balance(asset common.Address) *uint256.Int {
	return c.ledger.BalanceOf(asset, c.params.Self)
}

func (c *Contract) Config() Config {
	return c.config.Snapshot()
}

func (c *Contract) Params() Params {
	return c.params
}

func (c *Contract) DepositValue() *uint256.Int {
	return new(uint256.Int).Set(c.params.DepositValue)
}

func (c *Contract) RewardAmount() *uint256.Int {
	return new(uint256.Int).Set(c.params.RewardAmount)
}

// Events returns the contract's notification log.
func (c *Contract) Events() *EventLog {
	return c.events
}

// Registry returns the beneficiary registry for reads and persistence.
func (c *Contract) Registry() *Registry {
	return c.registry
}

// LoadConfig replaces the configuration with persisted values. It is not
// journaled. Values outside the bounds New enforces are rejected.
func (c *Contract) LoadConfig(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	c.config.mu.Lock()
	defer c.config.mu.Unlock()

	c.config.values = cfg

	return nil
}
