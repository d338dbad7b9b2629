package cmd

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
	"github.com/ethpandaops/incentive-deposit/pkg/store"
)

var allocateAmount string

var allocateManyCmd = &cobra.Command{
	Use:   "allocate-many <address[=amount]>...",
	Short: "Allocate rewards to many addresses",
	Long: `Forwards one reward allocation per address to the configured distributor, in
order. An address without an explicit amount gets --amount. Only the owner may do
this, and any failed allocation undoes the whole batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := caller()
		if err != nil {
			return err
		}

		addrs, amounts, err := parseAllocations(args, allocateAmount)
		if err != nil {
			return err
		}

		if err := transact(cmd.Context(), func(ctx context.Context, c *incentive.Contract) error {
			return c.AllocateMany(ctx, from, addrs, amounts)
		}); err != nil {
			return err
		}

		log.WithField("allocations", len(addrs)).Info("Allocated rewards")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(allocateManyCmd)

	allocateManyCmd.Flags().StringVar(&allocateAmount, "amount", "", "Default amount in wei for addresses given without one")
}

func parseAllocations(args []string, fallback string) ([]common.Address, []*uint256.Int, error) {
	addrs := make([]common.Address, 0, len(args))
	amounts := make([]*uint256.Int, 0, len(args))

	for _, arg := range args {
		addrPart, amountPart, found := strings.Cut(arg, "=")
		if !found {
			if fallback == "" {
				return nil, nil, errors.Errorf("no amount for %s and no --amount given", arg)
			}

			amountPart = fallback
		}

		addr, err := parseAddress(addrPart)
		if err != nil {
			return nil, nil, err
		}

		amount, err := store.ParseAmount(amountPart)
		if err != nil {
			return nil, nil, err
		}

		addrs = append(addrs, addr)
		amounts = append(amounts, amount)
	}

	log.WithFields(logrus.Fields{
		"addresses": len(addrs),
	}).Debug("Parsed allocations")

	return addrs, amounts, nil
}
