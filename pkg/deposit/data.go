package deposit

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/prysm/v5/beacon-chain/core/signing"
	"github.com/prysmaticlabs/prysm/v5/config/params"
	"github.com/prysmaticlabs/prysm/v5/contracts/deposit"
	ethpb "github.com/prysmaticlabs/prysm/v5/proto/prysm/v1alpha1"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

// Data is a deposit_data.json file as produced by the staking deposit CLI,
// together with what the claim it feeds expects of it.
type Data struct {
	DepositData  []*ParsedData
	ExpectedData *ExpectedData
}

type ExpectedData struct {
	Network        string
	Amount         uint64
	WithdrawalCred string
	Count          int
}

type ParsedData struct {
	Deposit *Deposit
	PBData  *ethpb.Deposit_Data
	Root    [32]byte
}

type Deposit struct {
	PubKey                string `json:"pubkey"`
	WithdrawalCredentials string `json:"withdrawal_credentials"`
	Amount                uint64 `json:"amount"`
	Signature             string `json:"signature"`
	DepositMessageRoot    string `json:"deposit_message_root"`
	DepositDataRoot       string `json:"deposit_data_root"`
	NetworkName           string `json:"network_name"`
	DepositCliVersion     string `json:"deposit_cli_version"`
	ForkVersion           string `json:"fork_version"`
}

func NewDepositData(path, expectedNetwork, expectedWithdrawalCred string, expectedAmount uint64, expectedCount int) (*Data, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read deposit data file")
	}

	var deposits []*Deposit
	if err := json.Unmarshal(data, &deposits); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal deposit data")
	}

	depositData := make([]*ParsedData, len(deposits))

	for i, d := range deposits {
		parsed, err := d.Parse()
		if err != nil {
			return nil, errors.Wrapf(err, "deposit %d", i)
		}

		depositData[i] = parsed
	}

	log.WithFields(logrus.Fields{
		"path":     path,
		"deposits": len(depositData),
	}).Debug("Loaded deposit data")

	return &Data{
		DepositData: depositData,
		ExpectedData: &ExpectedData{
			Network:        expectedNetwork,
			Amount:         expectedAmount,
			WithdrawalCred: strings.TrimPrefix(expectedWithdrawalCred, "0x"),
			Count:          expectedCount,
		},
	}, nil
}

// Parse decodes the hex fields of a deposit.
func (d *Deposit) Parse() (*ParsedData, error) {
	pubkey, err := decodeHex(d.PubKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode pubkey")
	}

	withdrawalCreds, err := decodeHex(d.WithdrawalCredentials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode withdrawal credentials")
	}

	signature, err := decodeHex(d.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode signature")
	}

	parsed := &ParsedData{
		Deposit: d,
		PBData: &ethpb.Deposit_Data{
			PublicKey:             pubkey,
			WithdrawalCredentials: withdrawalCreds,
			Amount:                d.Amount,
			Signature:             signature,
		},
	}

	if d.DepositDataRoot != "" {
		root, err := decodeHex(d.DepositDataRoot)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode deposit data root")
		}

		if len(root) != RootLength {
			return nil, errors.Wrapf(ErrInvalidLength, "deposit data root is %d bytes", len(root))
		}

		copy(parsed.Root[:], root)
	}

	return parsed, nil
}

// Validate checks the file against the expectations and against what a single
// claim can carry: every deposit must share one withdrawal credential and carry
// a deposit_data_root matching its contents.
func (d *Data) Validate() error {
	if d.ExpectedData.Count > 0 && len(d.DepositData) != d.ExpectedData.Count {
		return errors.Errorf("count mismatch: expected %d, got %d", d.ExpectedData.Count, len(d.DepositData))
	}

	for _, set := range d.DepositData {
		if err := set.Deposit.Validate(d.ExpectedData); err != nil {
			return errors.Wrapf(err, "invalid deposit for pubkey %s", set.Deposit.PubKey)
		}

		if err := set.ValidateRoot(); err != nil {
			return errors.Wrapf(err, "invalid deposit for pubkey %s", set.Deposit.PubKey)
		}
	}

	if len(d.DepositData) > 1 {
		first := d.DepositData[0].PBData.WithdrawalCredentials

		for _, set := range d.DepositData[1:] {
			if !bytes.Equal(first, set.PBData.WithdrawalCredentials) {
				return errors.Errorf("withdrawal credentials differ: %s and %s",
					d.DepositData[0].Deposit.WithdrawalCredentials, set.Deposit.WithdrawalCredentials)
			}
		}
	}

	return nil
}

func (d *Deposit) Validate(expectedData *ExpectedData) error {
	if expectedData.Network != "" && d.NetworkName != expectedData.Network {
		return errors.Errorf("network mismatch: expected %s, got %s", expectedData.Network, d.NetworkName)
	}

	if d.Amount != expectedData.Amount {
		return errors.Errorf("amount mismatch: expected %d, got %d", expectedData.Amount, d.Amount)
	}

	if expectedData.WithdrawalCred != "" && strings.TrimPrefix(d.WithdrawalCredentials, "0x") != expectedData.WithdrawalCred {
		return errors.Errorf("withdrawal credentials mismatch: expected %s, got %s", expectedData.WithdrawalCred, d.WithdrawalCredentials)
	}

	return nil
}

// ValidateRoot recomputes the deposit_data_root the way the sink will.
func (p *ParsedData) ValidateRoot() error {
	computed, err := DataRoot(p.PBData.PublicKey, p.PBData.WithdrawalCredentials, p.PBData.Signature, p.PBData.Amount)
	if err != nil {
		return err
	}

	if computed != p.Root {
		return errors.Wrapf(ErrRootMismatch, "supplied %s, computed %s",
			hex.EncodeToString(p.Root[:]), hex.EncodeToString(computed[:]))
	}

	return nil
}

// Payload assembles the claim payload for the deposits, in file order.
func (d *Data) Payload() (*incentive.Payload, error) {
	if len(d.DepositData) == 0 {
		return nil, errors.New("no deposits")
	}

	p := &incentive.Payload{
		WithdrawalCredentials: d.DepositData[0].PBData.WithdrawalCredentials,
		Validators:            make([]incentive.ValidatorRecord, len(d.DepositData)),
	}

	for i, set := range d.DepositData {
		if !bytes.Equal(p.WithdrawalCredentials, set.PBData.WithdrawalCredentials) {
			return nil, errors.Errorf("deposit %d has withdrawal credentials %s, expected %s",
				i, set.Deposit.WithdrawalCredentials, d.DepositData[0].Deposit.WithdrawalCredentials)
		}

		p.Validators[i] = incentive.ValidatorRecord{
			Pubkey:    set.PBData.PublicKey,
			Signature: set.PBData.Signature,
			Root:      set.Root,
		}
	}

	return p, nil
}

func IsValidDepositSignature(data *ethpb.Deposit_Data, forkVersion []byte) (bool, error) {
	domain, err := signing.ComputeDomain(params.BeaconConfig().DomainDeposit, forkVersion, nil)
	if err != nil {
		return false, err
	}

	if err := deposit.VerifyDepositSignature(data, domain); err != nil {
		return false, err
	}

	return true, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
