package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/deployment"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the contract configuration",
	Long:  `Show or change the owner-controlled contract configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	Long:  `Prints the persisted configuration and the fixed contract parameters.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeployment(cmd.Context(), func(ctx context.Context, d *deployment.Deployment) error {
			cfg := d.Contract().Config()
			params := d.Contract().Params()

			fmt.Printf("Owner:              %s\n", cfg.Owner.Hex())
			fmt.Printf("Validator count:    %d\n", cfg.ValidatorCount)
			fmt.Printf("Incentive duration: %ds\n", cfg.IncentiveDuration)
			fmt.Printf("Distributor:        %s\n", cfg.Distributor.Hex())
			fmt.Printf("Contract:           %s\n", params.Self.Hex())
			fmt.Printf("Deposit asset:      %s\n", params.DepositAsset.Hex())
			fmt.Printf("Deposit value:      %s wei\n", params.DepositValue.ToBig().String())
			fmt.Printf("Reward amount:      %s wei\n", params.RewardAmount.ToBig().String())

			return nil
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <validator-count|incentive-duration|distributor|owner> <value>",
	Short: "Change one configuration value",
	Long: `Changes one configuration value. Only the owner may do this. Setting the
distributor to the zero address disables rewards. Setting the owner transfers
ownership in a single step.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}

		set, err := configSetter(args[0], args[1])
		if err != nil {
			return err
		}

		if err := transact(cmd.Context(), func(ctx context.Context, c *incentive.Contract) error {
			return set(ctx, c, from)
		}); err != nil {
			return err
		}

		log.WithField(args[0], args[1]).Info("Updated configuration")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd)
}

type setter func(ctx context.Context, c *incentive.Contract, from common.Address) error

func configSetter(key, value string) (setter, error) {
	switch key {
	case "validator-count", "incentive-duration":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", key)
		}

		if key == "validator-count" {
			return func(ctx context.Context, c *incentive.Contract, from common.Address) error {
				return c.SetValidatorCount(ctx, from, n)
			}, nil
		}

		return func(ctx context.Context, c *incentive.Contract, from common.Address) error {
			return c.SetIncentiveDuration(ctx, from, n)
		}, nil
	case "distributor", "owner":
		addr, err := parseAddress(value)
		if err != nil {
			return nil, err
		}

		if key == "distributor" {
			return func(ctx context.Context, c *incentive.Contract, from common.Address) error {
				return c.SetDistributor(ctx, from, addr)
			}, nil
		}

		return func(ctx context.Context, c *incentive.Contract, from common.Address) error {
			return c.TransferOwnership(ctx, from, addr)
		}, nil
	default:
		return nil, errors.Errorf("unknown config key %q", key)
	}
}
