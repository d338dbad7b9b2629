package deployment

import (
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
	"github.com/ethpandaops/incentive-deposit/pkg/ledger"
	"github.com/ethpandaops/incentive-deposit/pkg/store"
)

// NativeAsset selects native currency as the deposit asset.
const NativeAsset = "native"

// Config describes a deployment. Amounts are decimal wei strings.
type Config struct {
	Owner             string            `yaml:"owner"`
	Self              string            `yaml:"self"`
	Sink              string            `yaml:"sink"`
	DepositAsset      string            `yaml:"depositAsset"`
	DepositValue      string            `yaml:"depositValue"`
	RewardAmount      string            `yaml:"rewardAmount"`
	ValidatorCount    uint64            `yaml:"validatorCount"`
	IncentiveDuration uint64            `yaml:"incentiveDuration"`
	Distributor       DistributorConfig `yaml:"distributor"`
	DataDir           string            `yaml:"dataDir"`
}

type DistributorConfig struct {
	// Address is empty when rewards are disabled.
	Address string `yaml:"address"`
	// Budget caps the total allocated. Empty means unlimited.
	Budget string `yaml:"budget"`
}

// DefaultConfig returns a config with every optional field set.
func DefaultConfig() *Config {
	return &Config{
		Self:              "0x6C68322cf55f5f025F2aebd93a28761182d077c3",
		Sink:              "0x0B98057eA310F4d31F2a452B414647007d1645d9",
		DepositAsset:      NativeAsset,
		DepositValue:      incentive.DefaultDepositValue.ToBig().String(),
		RewardAmount:      incentive.DefaultRewardAmount.ToBig().String(),
		ValidatorCount:    incentive.DefaultValidatorCount,
		IncentiveDuration: incentive.DefaultIncentiveDuration,
		DataDir:           "./data",
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return cfg, nil
}

// Validate reports every problem with the config at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if !isAddress(c.Owner) || common.HexToAddress(c.Owner) == (common.Address{}) {
		result = multierror.Append(result, errors.Errorf("owner: %q is not a non-zero address", c.Owner))
	}

	if !isAddress(c.Self) || common.HexToAddress(c.Self) == (common.Address{}) {
		result = multierror.Append(result, errors.Errorf("self: %q is not a non-zero address", c.Self))
	}

	if !isAddress(c.Sink) {
		result = multierror.Append(result, errors.Errorf("sink: %q is not an address", c.Sink))
	}

	if c.DepositAsset != NativeAsset && !isAddress(c.DepositAsset) {
		result = multierror.Append(result, errors.Errorf("depositAsset: %q is neither %q nor an address", c.DepositAsset, NativeAsset))
	}

	if v, err := store.ParseAmount(c.DepositValue); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "depositValue"))
	} else if v.IsZero() {
		result = multierror.Append(result, errors.New("depositValue: must be positive"))
	}

	if _, err := store.ParseAmount(c.RewardAmount); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "rewardAmount"))
	}

	if c.ValidatorCount == 0 || c.ValidatorCount > incentive.MaxValidatorCount {
		result = multierror.Append(result, errors.Errorf("validatorCount: must be between 1 and %d", incentive.MaxValidatorCount))
	}

	if c.IncentiveDuration > incentive.MaxIncentiveDuration {
		result = multierror.Append(result, errors.Errorf("incentiveDuration: must be at most %d seconds", incentive.MaxIncentiveDuration))
	}

	if c.Distributor.Address != "" && !isAddress(c.Distributor.Address) {
		result = multierror.Append(result, errors.Errorf("distributor.address: %q is not an address", c.Distributor.Address))
	}

	if c.Distributor.Budget != "" {
		if _, err := store.ParseAmount(c.Distributor.Budget); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "distributor.budget"))
		}
	}

	if c.DataDir == "" {
		result = multierror.Append(result, errors.New("dataDir: required"))
	}

	return result.ErrorOrNil()
}

// AssetAddress resolves the deposit asset to its ledger address.
func (c *Config) AssetAddress() common.Address {
	if c.DepositAsset == NativeAsset {
		return ledger.Native
	}

	return common.HexToAddress(c.DepositAsset)
}

// DistributorAddress is the zero address when rewards are disabled.
func (c *Config) DistributorAddress() common.Address {
	if c.Distributor.Address == "" {
		return common.Address{}
	}

	return common.HexToAddress(c.Distributor.Address)
}

func (c *Config) params() (incentive.Params, error) {
	depositValue, err := store.ParseAmount(c.DepositValue)
	if err != nil {
		return incentive.Params{}, err
	}

	rewardAmount, err := store.ParseAmount(c.RewardAmount)
	if err != nil {
		return incentive.Params{}, err
	}

	return incentive.Params{
		DepositValue: depositValue,
		RewardAmount: rewardAmount,
		DepositAsset: c.AssetAddress(),
		Self:         common.HexToAddress(c.Self),
	}, nil
}

func (c *Config) budget() (*uint256.Int, error) {
	if c.Distributor.Budget == "" {
		return nil, nil
	}

	return store.ParseAmount(c.Distributor.Budget)
}

func isAddress(s string) bool {
	return common.IsHexAddress(strings.TrimSpace(s))
}
