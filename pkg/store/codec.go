package store

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/ethpandaops/incentive-deposit/pkg/deposit"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
	"github.com/ethpandaops/incentive-deposit/pkg/ledger"
	"github.com/ethpandaops/incentive-deposit/pkg/reward"
)

// Stored layouts only ever grow: new fields are appended and older entries
// decode with the new fields zeroed.
const (
	recordVersion = 1
	recordLength  = 1 + 1 + 8

	configVersion = 1
)

var ErrCorrupt = errors.New("corrupt stored value")

func encodeRecord(rec incentive.Record) []byte {
	buf := make([]byte, recordLength)
	buf[0] = recordVersion

	if rec.Claimed {
		buf[1] = 1
	}

	binary.BigEndian.PutUint64(buf[2:], rec.EndTime)

	return buf
}

func decodeRecord(buf []byte) (incentive.Record, error) {
	if len(buf) < recordLength {
		return incentive.Record{}, errors.Wrapf(ErrCorrupt, "record is %d bytes", len(buf))
	}

	if buf[0] == 0 || buf[0] > recordVersion {
		return incentive.Record{}, errors.Wrapf(ErrCorrupt, "unknown record version %d", buf[0])
	}

	return incentive.Record{
		Claimed: buf[1] == 1,
		EndTime: binary.BigEndian.Uint64(buf[2:10]),
	}, nil
}

type configDTO struct {
	Version           int            `json:"version"`
	ValidatorCount    uint64         `json:"validator_count"`
	IncentiveDuration uint64         `json:"incentive_duration"`
	Distributor       common.Address `json:"distributor"`
	Owner             common.Address `json:"owner"`
}

func toConfigDTO(c incentive.Config) configDTO {
	return configDTO{
		Version:           configVersion,
		ValidatorCount:    c.ValidatorCount,
		IncentiveDuration: c.IncentiveDuration,
		Distributor:       c.Distributor,
		Owner:             c.Owner,
	}
}

func (d configDTO) config() (incentive.Config, error) {
	if d.Version == 0 || d.Version > configVersion {
		return incentive.Config{}, errors.Wrapf(ErrCorrupt, "unknown config version %d", d.Version)
	}

	return incentive.Config{
		ValidatorCount:    d.ValidatorCount,
		IncentiveDuration: d.IncentiveDuration,
		Distributor:       d.Distributor,
		Owner:             d.Owner,
	}, nil
}

type balanceDTO struct {
	Asset   common.Address `json:"asset"`
	Account common.Address `json:"account"`
	Amount  string         `json:"amount"`
}

type depositDTO struct {
	Index                 uint64        `json:"index"`
	Pubkey                hexutil.Bytes `json:"pubkey"`
	WithdrawalCredentials hexutil.Bytes `json:"withdrawal_credentials"`
	Signature             hexutil.Bytes `json:"signature"`
	Amount                uint64        `json:"amount"`
	Root                  common.Hash   `json:"deposit_data_root"`
}

func toDepositDTO(r *deposit.Record) depositDTO {
	return depositDTO{
		Index:                 r.Index,
		Pubkey:                r.Pubkey,
		WithdrawalCredentials: r.WithdrawalCredentials,
		Signature:             r.Signature,
		Amount:                r.Amount,
		Root:                  common.Hash(r.Root),
	}
}

func (d depositDTO) record() *deposit.Record {
	return &deposit.Record{
		Index:                 d.Index,
		Pubkey:                d.Pubkey,
		WithdrawalCredentials: d.WithdrawalCredentials,
		Signature:             d.Signature,
		Amount:                d.Amount,
		Root:                  d.Root,
	}
}

type allocationDTO struct {
	Source      common.Address `json:"source"`
	Beneficiary common.Address `json:"beneficiary"`
	Amount      string         `json:"amount"`
}

type rewardDTO struct {
	Roles       []common.Address `json:"roles"`
	Allocations []allocationDTO  `json:"allocations"`
}

type eventDTO struct {
	Seq       uint64              `json:"seq"`
	Kind      incentive.EventKind `json:"kind"`
	Addresses []common.Address    `json:"addresses"`
	Value     uint64              `json:"value"`
	Time      uint64              `json:"time"`
}

func toBalanceDTOs(balances []ledger.Balance) []balanceDTO {
	out := make([]balanceDTO, len(balances))
	for i, b := range balances {
		out[i] = balanceDTO{Asset: b.Asset, Account: b.Account, Amount: formatAmount(b.Amount)}
	}

	return out
}

func fromBalanceDTOs(dtos []balanceDTO) ([]ledger.Balance, error) {
	out := make([]ledger.Balance, len(dtos))

	for i, d := range dtos {
		amount, err := ParseAmount(d.Amount)
		if err != nil {
			return nil, errors.Wrapf(err, "balance of %s", d.Account.Hex())
		}

		out[i] = ledger.Balance{Asset: d.Asset, Account: d.Account, Amount: amount}
	}

	return out, nil
}

func toRewardDTO(roles []common.Address, allocations []reward.Allocation) rewardDTO {
	dto := rewardDTO{
		Roles:       roles,
		Allocations: make([]allocationDTO, len(allocations)),
	}

	for i, a := range allocations {
		dto.Allocations[i] = allocationDTO{Source: a.Source, Beneficiary: a.Beneficiary, Amount: formatAmount(a.Amount)}
	}

	return dto
}

func (d rewardDTO) allocations() ([]reward.Allocation, error) {
	out := make([]reward.Allocation, len(d.Allocations))

	for i, a := range d.Allocations {
		amount, err := ParseAmount(a.Amount)
		if err != nil {
			return nil, errors.Wrapf(err, "allocation %d", i)
		}

		out[i] = reward.Allocation{Source: a.Source, Beneficiary: a.Beneficiary, Amount: amount}
	}

	return out, nil
}

func formatAmount(v *uint256.Int) string {
	return v.ToBig().String()
}

// ParseAmount parses a base-10 wei amount.
func ParseAmount(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, errors.Errorf("invalid amount %q", s)
	}

	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, errors.Errorf("amount %q does not fit 256 bits", s)
	}

	return v, nil
}
