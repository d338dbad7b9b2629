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

// Admin is the owner-gated surface. Every operation fails with ErrUnauthorized
// unless caller is the configured owner.
type Admin struct {
	exec         *state.Executor
	clock        clockwork.Clock
	config       *GlobalConfig
	params       Params
	registry     *Registry
	ledger       Ledger
	distributors DistributorDirectory
	events       *EventLog
}

// SetValidatorCount sets how many validator records a claim must carry.
func (a *Admin) SetValidatorCount(ctx context.Context, caller common.Address, n uint64) error {
	return a.run(ctx, caller, "set_validator_count", func(ctx context.Context) error {
		if n == 0 || n > MaxValidatorCount {
			return errors.Wrapf(ErrInvalidConfig, "validator count must be between 1 and %d, got %d", MaxValidatorCount, n)
		}

		a.config.update(func(c *Config) { c.ValidatorCount = n })
		a.events.emit(Event{Kind: EventSetValidatorNum, Value: n, Time: a.now()})

		return nil
	})
}

// SetIncentiveDuration sets the window length used by later enrollments and extensions.
func (a *Admin) SetIncentiveDuration(ctx context.Context, caller common.Address, seconds uint64) error {
	return a.run(ctx, caller, "set_incentive_duration", func(ctx context.Context) error {
		if seconds > MaxIncentiveDuration {
			return errors.Wrapf(ErrInvalidConfig, "incentive duration must be at most %d seconds, got %d", MaxIncentiveDuration, seconds)
		}

		a.config.update(func(c *Config) { c.IncentiveDuration = seconds })
		a.events.emit(Event{Kind: EventSetIncentiveDuration, Value: seconds, Time: a.now()})

		return nil
	})
}

// SetDistributor points reward allocation at addr. The zero address disables rewards.
func (a *Admin) SetDistributor(ctx context.Context, caller, addr common.Address) error {
	return a.run(ctx, caller, "set_distributor", func(ctx context.Context) error {
		a.config.update(func(c *Config) { c.Distributor = addr })
		a.events.emit(Event{Kind: EventSetDistributor, Addresses: []common.Address{addr}, Time: a.now()})

		return nil
	})
}

// TransferOwnership hands the admin surface to newOwner in a single step.
func (a *Admin) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	return a.run(ctx, caller, "transfer_ownership", func(ctx context.Context) error {
		if newOwner == (common.Address{}) {
			return errors.Wrap(ErrInvalidConfig, "new owner is the zero address")
		}

		a.config.update(func(c *Config) { c.Owner = newOwner })
		a.events.emit(Event{Kind: EventOwnershipTransferred, Addresses: []common.Address{caller, newOwner}, Time: a.now()})

		return nil
	})
}

// Enroll opens an incentive window for every unenrolled address.
func (a *Admin) Enroll(ctx context.Context, caller common.Address, addrs []common.Address) error {
	var changed int

	err := a.run(ctx, caller, "enroll", func(ctx context.Context) error {
		changed = a.registry.Enroll(addrs)

		return nil
	})
	if err == nil {
		RegistryUpdatesTotal.WithLabelValues("enroll").Add(float64(changed))
	}

	return err
}

// Extend restarts the window of every pending address.
func (a *Admin) Extend(ctx context.Context, caller common.Address, addrs []common.Address) error {
	var changed int

	err := a.run(ctx, caller, "extend", func(ctx context.Context) error {
		changed = a.registry.Extend(addrs)

		return nil
	})
	if err == nil {
		RegistryUpdatesTotal.WithLabelValues("extend").Add(float64(changed))
	}

	return err
}

// Revoke makes every address terminal so it can never claim.
func (a *Admin) Revoke(ctx context.Context, caller common.Address, addrs []common.Address) error {
	var changed int

	err := a.run(ctx, caller, "revoke", func(ctx context.Context) error {
		changed = a.registry.Revoke(addrs)

		return nil
	})
	if err == nil {
		RegistryUpdatesTotal.WithLabelValues("revoke").Add(float64(changed))
	}

	return err
}

// Rescue moves the contract's whole balance of asset to recipient and returns
// the amount moved. The zero asset address means native currency.
func (a *Admin) Rescue(ctx context.Context, caller, asset, recipient common.Address) (*uint256.Int, error) {
	var amount *uint256.Int

	err := a.run(ctx, caller, "rescue", func(ctx context.Context) error {
		amount = a.ledger.BalanceOf(asset, a.params.Self)

		if err := a.ledger.Transfer(asset, a.params.Self, recipient, amount); err != nil {
			return withKind(ErrInsufficientFunds, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"asset":     asset.Hex(),
		"recipient": recipient.Hex(),
		"amount":    amount.ToBig().String(),
	}).Info("Rescued funds")

	return amount, nil
}

// AllocateMany forwards one distributor allocation per address/amount pair, in
// order. It does not look at the incentive registry.
func (a *Admin) AllocateMany(ctx context.Context, caller common.Address, addrs []common.Address, amounts []*uint256.Int) error {
	return a.run(ctx, caller, "allocate_many", func(ctx context.Context) error {
		if len(addrs) != len(amounts) {
			return errors.Wrapf(ErrLengthMismatch, "%d addresses, %d amounts", len(addrs), len(amounts))
		}

		distAddr := a.config.Distributor()
		if distAddr == (common.Address{}) {
			return withKind(ErrDistributorFailure, errors.New("distributor is disabled"))
		}

		dist, ok := a.distributors.Lookup(distAddr)
		if !ok {
			return withKind(ErrDistributorFailure, errors.Errorf("no distributor at %s", distAddr.Hex()))
		}

		for i, addr := range addrs {
			if err := dist.Allocate(ctx, a.params.Self, addr, amounts[i]); err != nil {
				return withKind(ErrDistributorFailure, errors.Wrapf(err, "allocation %d to %s", i, addr.Hex()))
			}
		}

		return nil
	})
}

func (a *Admin) run(ctx context.Context, caller common.Address, op string, fn func(ctx context.Context) error) error {
	err := a.exec.Execute(ctx, func(ctx context.Context) error {
		if owner := a.config.Owner(); caller != owner {
			return errors.Wrapf(ErrUnauthorized, "%s called by %s", op, caller.Hex())
		}

		return fn(ctx)
	})
	if err != nil {
		log.WithFields(logrus.Fields{
			"operation": op,
			"caller":    caller.Hex(),
		}).WithError(err).Warn("Admin operation failed")

		return err
	}

	log.WithFields(logrus.Fields{
		"operation": op,
		"caller":    caller.Hex(),
	}).Debug("Admin operation committed")

	return nil
}

func (a *Admin) now() uint64 {
	return uint64(a.clock.Now().Unix())
}
