package incentive

import (
	"context"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

// ClaimProcessor turns a beneficiary's claim into validator deposits.
type ClaimProcessor struct {
	exec         *state.Executor
	clock        clockwork.Clock
	config       *GlobalConfig
	params       Params
	registry     *Registry
	ledger       Ledger
	sink         DepositSink
	distributors DistributorDirectory
	events       *EventLog
}

// Claim validates payload against the caller's incentive record, forwards one
// deposit per validator record and marks the record claimed. The whole call is
// atomic: on any error nothing it did remains.
func (p *ClaimProcessor) Claim(ctx context.Context, caller common.Address, payload []byte) error {
	var forwarded int

	nested := p.exec.Nested(ctx)

	err := p.exec.Execute(ctx, func(ctx context.Context) error {
		n, err := p.claim(ctx, caller, payload)
		forwarded = n

		return err
	})

	// Nested frames are committed or reverted by the outermost call, so only
	// that call is counted.
	if !nested {
		ClaimsTotal.WithLabelValues(Reason(err)).Inc()
	}

	entry := log.WithFields(logrus.Fields{
		"beneficiary": caller.Hex(),
		"result":      Reason(err),
	})

	if err != nil {
		entry.WithError(err).Warn("Claim failed")

		return err
	}

	if !nested {
		DepositsForwardedTotal.Add(float64(forwarded))
	}

	entry.WithField("validators", forwarded).Info("Claimed incentive")

	return nil
}

func (p *ClaimProcessor) claim(ctx context.Context, caller common.Address, payload []byte) (int, error) {
	now := uint64(p.clock.Now().Unix())
	rec := p.registry.StatusOf(caller)

	if now >= rec.EndTime {
		return 0, errors.Wrapf(ErrIncentiveTimeout, "beneficiary %s window ended at %d, now %d", caller.Hex(), rec.EndTime, now)
	}

	if rec.Claimed {
		return 0, errors.Wrapf(ErrAlreadyClaimed, "beneficiary %s", caller.Hex())
	}

	decoded, err := DecodePayload(payload, p.config.ValidatorCount())
	if err != nil {
		return 0, err
	}

	// Terminal before any external call: a re-entrant claim sees it and fails.
	p.registry.markClaimed(caller)

	for i, v := range decoded.Validators {
		if err := p.ledger.Transfer(p.params.DepositAsset, p.params.Self, p.sink.Address(), p.params.DepositValue); err != nil {
			return i, withKind(ErrInsufficientFunds, errors.Wrapf(err, "validator %d", i))
		}

		if err := p.sink.Submit(ctx, v.Pubkey, decoded.WithdrawalCredentials, v.Signature, v.Root, p.params.DepositValue); err != nil {
			return i, withKind(ErrDepositRejected, errors.Wrapf(err, "validator %d (pubkey %s)", i, hex.EncodeToString(v.Pubkey)))
		}
	}

	if err := p.reward(ctx, caller); err != nil {
		return len(decoded.Validators), err
	}

	p.events.emit(Event{Kind: EventClaimedIncentive, Addresses: []common.Address{caller}, Time: now})

	return len(decoded.Validators), nil
}

func (p *ClaimProcessor) reward(ctx context.Context, beneficiary common.Address) error {
	addr := p.config.Distributor()
	if addr == (common.Address{}) {
		return nil
	}

	dist, ok := p.distributors.Lookup(addr)
	if !ok {
		return withKind(ErrDistributorFailure, errors.Errorf("no distributor at %s", addr.Hex()))
	}

	if err := dist.Allocate(ctx, p.params.Self, beneficiary, p.params.RewardAmount); err != nil {
		return withKind(ErrDistributorFailure, err)
	}

	return nil
}
