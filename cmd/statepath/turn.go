package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/statepath/internal/cli"
)

var turnCmd = &cobra.Command{
	Use:   "turn <statement>...",
	Short: "Run statements in a turn with persisted user and conversation scopes",
	Long: `Loads the user and conversation scopes, runs each statement and saves the
scopes that changed. "path=value" writes a YAML value; any other statement is
evaluated and printed. Scopes are kept under --store, or in Redis with --redis.`,
	Example: `  statepath turn --user u1 'user.visits=1'
  statepath turn --user u1 '=user.visits + 1'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		conversation, _ := cmd.Flags().GetString("conversation")
		store, _ := cmd.Flags().GetString("store")
		redisURL, _ := cmd.Flags().GetString("redis")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.Turn(ctx, optionsFromFlags(cmd), cli.TurnOptions{
			UserID:         user,
			ConversationID: conversation,
			StoreDir:       store,
			RedisURL:       redisURL,
		}, args)
	},
}

func init() {
	rootCmd.AddCommand(turnCmd)
	turnCmd.Flags().String("user", "", "User ID whose scope is loaded and saved")
	turnCmd.Flags().String("conversation", "", "Conversation ID whose scope is loaded and saved")
	turnCmd.Flags().String("store", "", "Directory for persisted scopes (default .statepath/scopes)")
	turnCmd.Flags().String("redis", "", "Redis URL, e.g. redis://localhost:6379/0")
}
