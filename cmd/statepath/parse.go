package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/statepath/internal/cli"
)

var parseCmd = &cobra.Command{
	Use:   "parse <text>",
	Short: "Show how text is classified and parsed",
	Long: `Prints whether the text is a literal, a path or an expression, with its
canonical form. --graph prints a Mermaid diagram (graph TD) of the expression
tree instead, annotated with values when --memory is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showGraph, _ := cmd.Flags().GetBool("graph")
		return cli.Parse(optionsFromFlags(cmd), strings.Join(args, " "), showGraph)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Bool("graph", false, "Print a Mermaid diagram of the expression tree")
}
