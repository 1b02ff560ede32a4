/*
Package statepath evaluates expressions and state paths against the layered
memory of a conversation.

An expression is written with a leading "=" ("=user.age + 1"), text holding
"${...}" is a template ("Hello ${user.name}"), and plain text such as
"user.todos[0].title" addresses a value directly. Values live in scopes:

  - turn: discarded at the end of the turn
  - dialog: state of the active dialog; $name reads the parent dialog
  - class: declared properties of the active dialog, also %name
  - user, conversation: persisted between turns
  - settings: configuration with secrets removed, copied per turn

@name and #name are shortcuts for turn.recognized.entities.name and
turn.recognized.intents.name.

# Usage

	eng, err := statepath.New(statepath.WithSettings(settings.WithFile("settings.yaml")))
	if err != nil {
		log.Fatal(err)
	}

	err = eng.RunTurn(ctx, session.TurnKey{ConversationID: "c1", UserID: "u1"},
		func(ctx context.Context, sm *memory.StateManager) error {
			if err := sm.SetValue("user.name", "Joe"); err != nil {
				return err
			}
			greeting, err := eng.Evaluate("Hello ${user.name}", sm)
			if err != nil {
				return err
			}
			fmt.Println(greeting)
			return nil
		})

The building blocks are usable on their own: pkg/expression parses and
evaluates, pkg/memory implements the scopes and resolvers, pkg/properties
wraps typed values that may be expressions, and pkg/session persists scopes
between turns through a ports.ScopeStore. Stores live under pkg/adapters
(inmemory, file, redis); cmd/statepath is a command line front end.
*/
package statepath
