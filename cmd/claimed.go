package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/incentive-deposit/pkg/deployment"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

var claimedGroups int

var claimedCmd = &cobra.Command{
	Use:   "claimed",
	Short: "List beneficiaries that claimed",
	Long: `Lists every beneficiary with a successful claim, in claim order, split into
--groups batches. Each printed line is ready to pass to allocate-many.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeployment(cmd.Context(), func(ctx context.Context, d *deployment.Deployment) error {
			claimed := d.Contract().Events().ClaimedBeneficiaries()

			plan, err := incentive.PlanAllocations(claimed, claimedGroups)
			if err != nil {
				return err
			}

			log.WithField("beneficiaries", len(claimed)).Info("Collected claimed beneficiaries")

			for _, group := range plan {
				hexes := make([]string, len(group))
				for i, addr := range group {
					hexes[i] = addr.Hex()
				}

				fmt.Println(strings.Join(hexes, " "))
			}

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(claimedCmd)

	claimedCmd.Flags().IntVar(&claimedGroups, "groups", 1, "Number of batches to split the list into")
}
