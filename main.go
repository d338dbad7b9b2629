package main

import "github.com/ethpandaops/incentive-deposit/cmd"

func main() {
	cmd.Execute()
}
