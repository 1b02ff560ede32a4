package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/statepath/internal/cli"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Print the value at a memory path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Get(optionsFromFlags(cmd), args[0])
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
