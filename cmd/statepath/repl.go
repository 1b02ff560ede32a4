package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/statepath/internal/cli"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Evaluate lines interactively against one memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.Repl(ctx, optionsFromFlags(cmd), cli.ReplOptions{
			In:          cmd.InOrStdin(),
			Interactive: term.IsTerminal(int(os.Stdin.Fd())),
			Version:     version,
		})
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
