package incentive_test

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/incentive-deposit/pkg/deposit"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
	"github.com/ethpandaops/incentive-deposit/pkg/ledger"
	"github.com/ethpandaops/incentive-deposit/pkg/reward"
	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

const withdrawalCredentials = "0x0100000000000000000000000ae055097c6d159879521c384f1d2123d1f195e6"

type validator struct {
	pubkey    string
	signature string
	root      string
}

var (
	firstValidator = validator{
		pubkey:    "0x85e52247873439b180471ceb94ef9966c2cef1c194cc926e7d6494fecccbcdc076bcd751309f174dd8b7e21402c85ac0",
		signature: "0x869a92ea96afe7a08e19c0b89259c52d156f83b9af83d6e411f5f39ad857a06a3b9885d5f8d7ddb9371256fe181df4e011463e93b23af2653b501b9ebcfc32131ae7b8a1c815c6d8b2e7accb890f06f0a0bc4604050d658241ffb78220a2db58",
		root:      "0xdcc623abcf86090d33c63845a83b13064e558ea9aa38d5db07d2dd412bebc9f0",
	}
	secondValidator = validator{
		pubkey:    "0xa9529f1f7ac7e6607ac605e2152053e3d3a8ce7c48308654d452f5cb8a1eb5e238c4b9e992caf8ec6923994b07e4d236",
		signature: "0xb4c4fa967494ad174355ea8da67ddd73e49f0936ffbf95f4096031cd00a44a45a89d12f17c58b80de6db465581635c5412876fb12ed882eaa1f744cf5c71f493d8a2c5eee30d7181f8e70a5ebd9b43d2015e1dfbc1b466e307faf850601930f1",
		root:      "0xef472710da79583c8f513e816e178a746afe060a2ed5b0032696d898909d1d83",
	}
	badRootValidator = validator{
		pubkey:    firstValidator.pubkey,
		signature: firstValidator.signature,
		root:      "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef",
	}

	owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	self     = common.HexToAddress("0x6C68322cf55f5f025F2aebd93a28761182d077c3")
	token    = common.HexToAddress("0x722fc4DAABFEaff81b97894fC623f91814a1BF68")
	sinkAddr = common.HexToAddress("0x0B98057eA310F4d31F2a452B414647007d1645d9")
	distAddr = common.HexToAddress("0x70b2219f8099f63e4259d9ec331b8efb433cf3d2")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000000c0")

	start = time.Unix(1_700_000_000, 0)
	day   = 24 * time.Hour
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		panic(err)
	}

	return b
}

func payloadOf(t *testing.T, validators ...validator) []byte {
	t.Helper()

	p := &incentive.Payload{WithdrawalCredentials: mustHex(withdrawalCredentials)}

	for _, v := range validators {
		rec := incentive.ValidatorRecord{
			Pubkey:    mustHex(v.pubkey),
			Signature: mustHex(v.signature),
		}
		copy(rec.Root[:], mustHex(v.root))

		p.Validators = append(p.Validators, rec)
	}

	raw, err := p.Encode()
	require.NoError(t, err)

	return raw
}

type fixture struct {
	exec     *state.Executor
	clock    *clockwork.FakeClock
	bank     *ledger.Bank
	sink     *deposit.Sink
	dist     *reward.Distributor
	contract *incentive.Contract
}

type fixtureOption func(opts *incentive.Options)

func withSink(wrap func(inner *deposit.Sink) incentive.DepositSink) fixtureOption {
	return func(opts *incentive.Options) {
		opts.Sink = wrap(opts.Sink.(*deposit.Sink))
	}
}

func withAsset(asset common.Address) fixtureOption {
	return func(opts *incentive.Options) {
		opts.Params.DepositAsset = asset
	}
}

func newFixture(t *testing.T, options ...fixtureOption) *fixture {
	t.Helper()

	journal := state.NewJournal()

	f := &fixture{
		exec:  state.NewExecutor(journal),
		clock: clockwork.NewFakeClockAt(start),
		bank:  ledger.NewBank(journal),
		sink:  deposit.NewSink(sinkAddr, journal),
		dist:  reward.NewDistributor(distAddr, nil, journal),
	}

	f.dist.GrantRole(self)
	journal.Commit()

	opts := incentive.Options{
		Config: incentive.Config{
			ValidatorCount:    incentive.DefaultValidatorCount,
			IncentiveDuration: incentive.DefaultIncentiveDuration,
			Distributor:       distAddr,
			Owner:             owner,
		},
		Params: incentive.Params{
			DepositValue: incentive.DefaultDepositValue,
			RewardAmount: incentive.DefaultRewardAmount,
			DepositAsset: token,
			Self:         self,
		},
		Clock:        f.clock,
		Ledger:       f.bank,
		Sink:         f.sink,
		Distributors: incentive.Distributors{distAddr: f.dist},
	}

	for _, option := range options {
		option(&opts)
	}

	contract, err := incentive.New(f.exec, opts)
	require.NoError(t, err)

	f.contract = contract

	return f
}

func (f *fixture) fund(t *testing.T, asset common.Address, amount *uint256.Int) {
	t.Helper()

	require.NoError(t, f.contract.Fund(context.Background(), asset, amount))
}

func (f *fixture) enroll(t *testing.T, addrs ...common.Address) {
	t.Helper()

	require.NoError(t, f.contract.Enroll(context.Background(), owner, addrs))
}

// observed captures everything a failed claim must leave untouched.
type observed struct {
	records     map[common.Address]incentive.Record
	events      int
	deposits    uint64
	selfBalance string
	sinkBalance string
	allocations int
}

func (f *fixture) observe(asset common.Address) observed {
	return observed{
		records:     f.contract.Registry().Records(),
		events:      len(f.contract.Events().Events()),
		deposits:    f.sink.Count(),
		selfBalance: f.bank.BalanceOf(asset, self).ToBig().String(),
		sinkBalance: f.bank.BalanceOf(asset, sinkAddr).ToBig().String(),
		allocations: len(f.dist.Allocations()),
	}
}
