package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
	"github.com/ethpandaops/incentive-deposit/pkg/store"
)

var (
	fundAsset  string
	fundAmount string
)

var fundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Credit the contract",
	Long: `Credits the contract account with an amount of native currency or a token, the
way an incoming transfer would. Claims draw deposit value from this balance.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asset, err := parseAsset(fundAsset)
		if err != nil {
			return err
		}

		amount, err := store.ParseAmount(fundAmount)
		if err != nil {
			return err
		}

		if err := transact(cmd.Context(), func(ctx context.Context, c *incentive.Contract) error {
			return c.Fund(ctx, asset, amount)
		}); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"asset":  fundAsset,
			"amount": fundAmount,
		}).Info("Funded contract")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(fundCmd)

	fundCmd.Flags().StringVar(&fundAsset, "asset", "native", "Asset to credit: native or a token address")
	fundCmd.Flags().StringVar(&fundAmount, "amount", "", "Amount in wei")

	if err := fundCmd.MarkFlagRequired("amount"); err != nil {
		log.WithError(err).Fatalf("Failed to mark flag %s as required", "amount")
	}
}
