package cmd

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

type registryOp func(ctx context.Context, c *incentive.Contract, caller common.Address, addrs []common.Address) error

func registryCmd(use, short, long string, op registryOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <address>...",
		Short: short,
		Long:  long,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := caller()
			if err != nil {
				return err
			}

			addrs, err := parseAddresses(args)
			if err != nil {
				return err
			}

			if err := transact(cmd.Context(), func(ctx context.Context, c *incentive.Contract) error {
				return op(ctx, c, from, addrs)
			}); err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"operation": use,
				"addresses": len(addrs),
			}).Info("Updated incentives")

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(
		registryCmd("enroll", "Enroll beneficiaries",
			`Opens an incentive window of the configured duration for every address that
has never been enrolled. Already enrolled or revoked addresses are left alone.`,
			func(ctx context.Context, c *incentive.Contract, from common.Address, addrs []common.Address) error {
				return c.Enroll(ctx, from, addrs)
			}),
		registryCmd("extend", "Extend incentive windows",
			`Restarts the window of every pending beneficiary so it ends the configured
duration from now. Unenrolled and claimed addresses are left alone.`,
			func(ctx context.Context, c *incentive.Contract, from common.Address, addrs []common.Address) error {
				return c.Extend(ctx, from, addrs)
			}),
		registryCmd("revoke", "Revoke incentives",
			`Marks every address as claimed so it can never claim. Works for addresses that
were never enrolled.`,
			func(ctx context.Context, c *incentive.Contract, from common.Address, addrs []common.Address) error {
				return c.Revoke(ctx, from, addrs)
			}),
	)
}
