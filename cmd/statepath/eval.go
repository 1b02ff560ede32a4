package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/statepath/internal/cli"
)

var evalCmd = &cobra.Command{
	Use:   "eval <text>",
	Short: "Evaluate an expression, template or path",
	Long: `Evaluates the argument against the memory file. Text starting with "=" is an
expression, text containing ${...} is a template, a well-formed path is looked up
and anything else is returned as-is.`,
	Example: `  statepath eval -m memory.yaml '=user.todos[dialog.i]'
  statepath eval -m memory.yaml 'Hello ${user.name}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Eval(optionsFromFlags(cmd), strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
