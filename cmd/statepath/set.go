package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/statepath/internal/cli"
)

var setCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Write a value at a memory path",
	Long: `Writes a value, read as YAML, at the path and prints the resulting memory.
Missing intermediate objects are created. With --write the memory file is
updated instead.`,
	Example: `  statepath set -m memory.yaml user.profile.city Lisbon
  statepath set -m memory.yaml --write user.tags '[a, b]'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		write, _ := cmd.Flags().GetBool("write")
		return cli.Set(optionsFromFlags(cmd), args[0], args[1], write)
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().BoolP("write", "w", false, "Update the memory file in place")
}
