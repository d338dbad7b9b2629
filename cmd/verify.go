package cmd

import (
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify claim material offline",
	Long:  `Verify claim material offline, without touching the contract state.`,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
