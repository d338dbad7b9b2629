package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	dsq "github.com/ipfs/go-datastore/query"
	levelds "github.com/ipfs/go-ds-leveldb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ldbopts "github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/ethpandaops/incentive-deposit/pkg/deposit"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
	"github.com/ethpandaops/incentive-deposit/pkg/ledger"
	"github.com/ethpandaops/incentive-deposit/pkg/reward"
)

var ErrNoSnapshot = errors.New("no stored state")

var (
	rootKey       = datastore.NewKey("/incentive-deposit")
	configKey     = datastore.NewKey("/config")
	ledgerKey     = datastore.NewKey("/ledger")
	rewardKey     = datastore.NewKey("/reward")
	incentivesKey = datastore.NewKey("/incentives")
	sinkKey       = datastore.NewKey("/sink")
	eventsKey     = datastore.NewKey("/events")
)

// Snapshot is the complete committed state of a deployment.
type Snapshot struct {
	Config      incentive.Config
	Records     map[common.Address]incentive.Record
	Events      []incentive.Event
	Balances    []ledger.Balance
	Deposits    []*deposit.Record
	Roles       []common.Address
	Allocations []reward.Allocation
}

// Store persists snapshots in a datastore. Each incentive record, deposit and
// event is its own key so a save only rewrites what it has to.
type Store struct {
	ds     datastore.Batching
	closer func() error
}

// New wraps ds. Keys live under /incentive-deposit.
func New(ds datastore.Batching) *Store {
	return &Store{ds: namespace.Wrap(ds, rootKey), closer: ds.Close}
}

// OpenLevelDB opens or creates a LevelDB backed store at path.
func OpenLevelDB(path string) (*Store, error) {
	ds, err := levelds.NewDatastore(path, &levelds.Options{
		Compression: ldbopts.NoCompression,
		NoSync:      false,
		Strict:      ldbopts.StrictAll,
		ReadOnly:    false,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open leveldb at %s", path)
	}

	log.WithField("path", path).Debug("Opened leveldb datastore")

	return New(ds), nil
}

func (s *Store) Close() error {
	return s.closer()
}

// Save writes snap in a single batch.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	batch, err := s.ds.Batch(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to create batch")
	}

	if err := putJSON(ctx, batch, configKey, toConfigDTO(snap.Config)); err != nil {
		return err
	}

	if err := putJSON(ctx, batch, ledgerKey, toBalanceDTOs(snap.Balances)); err != nil {
		return err
	}

	if err := putJSON(ctx, batch, rewardKey, toRewardDTO(snap.Roles, snap.Allocations)); err != nil {
		return err
	}

	for addr, rec := range snap.Records {
		if err := batch.Put(ctx, addressKey(addr), encodeRecord(rec)); err != nil {
			return errors.Wrapf(err, "failed to put record of %s", addr.Hex())
		}
	}

	for _, d := range snap.Deposits {
		if err := putJSON(ctx, batch, indexKey(sinkKey, d.Index), toDepositDTO(d)); err != nil {
			return err
		}
	}

	for _, ev := range snap.Events {
		dto := eventDTO{Seq: ev.Seq, Kind: ev.Kind, Addresses: ev.Addresses, Value: ev.Value, Time: ev.Time}
		if err := putJSON(ctx, batch, indexKey(eventsKey, ev.Seq), dto); err != nil {
			return err
		}
	}

	if err := batch.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit batch")
	}

	log.WithFields(logrus.Fields{
		"records":  len(snap.Records),
		"deposits": len(snap.Deposits),
		"events":   len(snap.Events),
	}).Debug("Saved state")

	return nil
}

// Load reads the stored snapshot, or returns ErrNoSnapshot when nothing was
// saved yet.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	var cfg configDTO
	if err := s.getJSON(ctx, configKey, &cfg); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, ErrNoSnapshot
		}

		return nil, err
	}

	config, err := cfg.config()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Config:  config,
		Records: make(map[common.Address]incentive.Record),
	}

	var balances []balanceDTO
	if err := s.getJSON(ctx, ledgerKey, &balances); err != nil && !errors.Is(err, datastore.ErrNotFound) {
		return nil, err
	}

	if snap.Balances, err = fromBalanceDTOs(balances); err != nil {
		return nil, err
	}

	var rw rewardDTO
	if err := s.getJSON(ctx, rewardKey, &rw); err != nil && !errors.Is(err, datastore.ErrNotFound) {
		return nil, err
	}

	snap.Roles = rw.Roles
	if snap.Allocations, err = rw.allocations(); err != nil {
		return nil, err
	}

	if err := s.each(ctx, incentivesKey, func(key string, value []byte) error {
		addr, err := parseAddressKey(key)
		if err != nil {
			return err
		}

		rec, err := decodeRecord(value)
		if err != nil {
			return errors.Wrapf(err, "record of %s", addr.Hex())
		}

		snap.Records[addr] = rec

		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.each(ctx, sinkKey, func(key string, value []byte) error {
		var d depositDTO
		if err := json.Unmarshal(value, &d); err != nil {
			return errors.Wrapf(ErrCorrupt, "deposit %s: %v", key, err)
		}

		snap.Deposits = append(snap.Deposits, d.record())

		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.each(ctx, eventsKey, func(key string, value []byte) error {
		var d eventDTO
		if err := json.Unmarshal(value, &d); err != nil {
			return errors.Wrapf(ErrCorrupt, "event %s: %v", key, err)
		}

		snap.Events = append(snap.Events, incentive.Event{
			Seq:       d.Seq,
			Kind:      d.Kind,
			Addresses: d.Addresses,
			Value:     d.Value,
			Time:      d.Time,
		})

		return nil
	}); err != nil {
		return nil, err
	}

	if err := checkSequence(snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// each visits every entry under prefix in key order.
func (s *Store) each(ctx context.Context, prefix datastore.Key, fn func(key string, value []byte) error) error {
	res, err := s.ds.Query(ctx, dsq.Query{
		Prefix: prefix.String(),
		Orders: []dsq.Order{dsq.OrderByKey{}},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to query %s", prefix)
	}
	defer res.Close()

	for {
		r, ok := res.NextSync()
		if !ok {
			return nil
		}

		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to iterate %s", prefix)
		}

		if err := fn(r.Key, r.Value); err != nil {
			return err
		}
	}
}

func (s *Store) getJSON(ctx context.Context, key datastore.Key, v interface{}) error {
	raw, err := s.ds.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(ErrCorrupt, "%s: %v", key, err)
	}

	return nil
}

func putJSON(ctx context.Context, batch datastore.Batch, key datastore.Key, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", key)
	}

	if err := batch.Put(ctx, key, raw); err != nil {
		return errors.Wrapf(err, "failed to put %s", key)
	}

	return nil
}

// Sequence keys are zero padded so key order is numeric order.
func indexKey(prefix datastore.Key, i uint64) datastore.Key {
	return prefix.ChildString(fmt.Sprintf("%020d", i))
}

func addressKey(addr common.Address) datastore.Key {
	return incentivesKey.ChildString(hex.EncodeToString(addr[:]))
}

func parseAddressKey(key string) (common.Address, error) {
	name := key[strings.LastIndex(key, "/")+1:]

	raw, err := hex.DecodeString(name)
	if err != nil || len(raw) != common.AddressLength {
		return common.Address{}, errors.Wrapf(ErrCorrupt, "bad incentive key %s", key)
	}

	return common.BytesToAddress(raw), nil
}

func checkSequence(snap *Snapshot) error {
	for i, d := range snap.Deposits {
		if d.Index != uint64(i) {
			return errors.Wrapf(ErrCorrupt, "deposit %d stored at position %d", d.Index, i)
		}
	}

	for i, ev := range snap.Events {
		if ev.Seq != uint64(i) {
			return errors.Wrapf(ErrCorrupt, "event %d stored at position %d", ev.Seq, i)
		}
	}

	return nil
}
