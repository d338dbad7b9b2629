package deployment

import (
	"context"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/incentive-deposit/pkg/deposit"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
	"github.com/ethpandaops/incentive-deposit/pkg/ledger"
	"github.com/ethpandaops/incentive-deposit/pkg/reward"
	"github.com/ethpandaops/incentive-deposit/pkg/state"
	"github.com/ethpandaops/incentive-deposit/pkg/store"
)

// Deployment is one incentive contract together with the ledger, deposit sink
// and reward distributor it talks to, backed by a store.
type Deployment struct {
	cfg         *Config
	exec        *state.Executor
	bank        *ledger.Bank
	sink        *deposit.Sink
	distributor *reward.Distributor
	contract    *incentive.Contract
	store       *store.Store
}

// Open opens the LevelDB store under cfg.DataDir and restores or initialises
// the deployment in it.
func Open(ctx context.Context, cfg *Config, clock clockwork.Clock) (*Deployment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	st, err := store.OpenLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return nil, err
	}

	d, err := New(ctx, cfg, clock, st)
	if err != nil {
		st.Close()

		return nil, err
	}

	return d, nil
}

// New builds a deployment on st. A store without a snapshot is initialised
// from cfg; otherwise the stored state wins over cfg for everything the owner
// can change.
func New(ctx context.Context, cfg *Config, clock clockwork.Clock, st *store.Store) (*Deployment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	params, err := cfg.params()
	if err != nil {
		return nil, err
	}

	budget, err := cfg.budget()
	if err != nil {
		return nil, err
	}

	journal := state.NewJournal()

	d := &Deployment{
		cfg:   cfg,
		exec:  state.NewExecutor(journal),
		bank:  ledger.NewBank(journal),
		sink:  deposit.NewSink(common.HexToAddress(cfg.Sink), journal),
		store: st,
	}

	distributors := incentive.Distributors{}

	if addr := cfg.DistributorAddress(); addr != (common.Address{}) {
		d.distributor = reward.NewDistributor(addr, budget, journal)
		distributors[addr] = d.distributor
	}

	d.contract, err = incentive.New(d.exec, incentive.Options{
		Config: incentive.Config{
			ValidatorCount:    cfg.ValidatorCount,
			IncentiveDuration: cfg.IncentiveDuration,
			Distributor:       cfg.DistributorAddress(),
			Owner:             common.HexToAddress(cfg.Owner),
		},
		Params:       params,
		Clock:        clock,
		Ledger:       d.bank,
		Sink:         d.sink,
		Distributors: distributors,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create contract")
	}

	snap, err := st.Load(ctx)

	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		if err := d.initialise(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, errors.Wrap(err, "failed to load state")
	default:
		if err := d.restore(snap); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (d *Deployment) initialise(ctx context.Context) error {
	if d.distributor != nil {
		if err := d.exec.Execute(ctx, func(context.Context) error {
			d.distributor.GrantRole(d.contract.Params().Self)

			return nil
		}); err != nil {
			return err
		}
	}

	if err := d.Save(ctx); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"self":        d.contract.Params().Self.Hex(),
		"owner":       d.cfg.Owner,
		"distributor": d.cfg.Distributor.Address,
	}).Info("Initialised new deployment")

	return nil
}

func (d *Deployment) restore(snap *store.Snapshot) error {
	if err := d.contract.LoadConfig(snap.Config); err != nil {
		return errors.Wrap(err, "stored config")
	}

	d.contract.Registry().Load(snap.Records)
	d.contract.Events().Load(snap.Events)
	d.bank.Load(snap.Balances)
	d.sink.Load(snap.Deposits)

	if d.distributor != nil {
		d.distributor.Load(snap.Roles, snap.Allocations)
	}

	log.WithFields(logrus.Fields{
		"records":  len(snap.Records),
		"deposits": len(snap.Deposits),
		"events":   len(snap.Events),
	}).Debug("Restored deployment state")

	return nil
}

// Snapshot captures the current committed state.
func (d *Deployment) Snapshot() *store.Snapshot {
	snap := &store.Snapshot{
		Config:   d.contract.Config(),
		Records:  d.contract.Registry().Records(),
		Events:   d.contract.Events().Events(),
		Balances: d.bank.Balances(),
		Deposits: d.sink.Deposits(),
	}

	if d.distributor != nil {
		snap.Roles = d.distributor.Roles()
		snap.Allocations = d.distributor.Allocations()
	}

	return snap
}

// Save persists the current state.
func (d *Deployment) Save(ctx context.Context) error {
	return errors.Wrap(d.store.Save(ctx, d.Snapshot()), "failed to save state")
}

// Run calls fn and saves the state when it succeeds. A failed call leaves the
// store untouched.
func (d *Deployment) Run(ctx context.Context, fn func(ctx context.Context, c *incentive.Contract) error) error {
	if err := fn(ctx, d.contract); err != nil {
		return err
	}

	return d.Save(ctx)
}

func (d *Deployment) Close() error {
	return d.store.Close()
}

func (d *Deployment) Contract() *incentive.Contract {
	return d.contract
}

func (d *Deployment) Bank() *ledger.Bank {
	return d.bank
}

func (d *Deployment) Sink() *deposit.Sink {
	return d.sink
}

// Distributor is nil when the deployment was configured without rewards.
func (d *Deployment) Distributor() *reward.Distributor {
	return d.distributor
}
