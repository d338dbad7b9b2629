package cmd

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var depositDataFlagSet depositDataFlags

var depositDataCmd = &cobra.Command{
	Use:   "data",
	Short: "Check deposit data",
	Long: `Verifies and validates deposit data file format and contents, and checks the
deposits can be claimed together.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		depositData, err := depositDataFlagSet.load()
		if err != nil {
			return err
		}

		if _, err := depositData.Payload(); err != nil {
			return err
		}

		pubkeys := make([]string, len(depositData.DepositData))
		for i, d := range depositData.DepositData {
			pubkeys[i] = "0x" + d.Deposit.PubKey
		}

		log.WithFields(logrus.Fields{
			"deposit_count": len(depositData.DepositData),
		}).Info("✅ Successfully verified deposit data")

		fmt.Println("Pubkeys one line for copy paste:")
		fmt.Printf("[\"%s\"]\n", strings.Join(pubkeys, "\", \""))

		return nil
	},
}

func init() {
	depositCmd.AddCommand(depositDataCmd)

	depositDataFlagSet.register(depositDataCmd)

	err := depositDataCmd.MarkFlagRequired("deposit-data")
	if err != nil {
		log.WithError(err).Fatalf("Failed to mark flag %s as required", "deposit-data")
	}
}
