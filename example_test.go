package statepath_test

import (
	"fmt"

	"github.com/aretw0/statepath"
	"github.com/aretw0/statepath/pkg/memory"
)

func Example() {
	eng, err := statepath.New()
	if err != nil {
		panic(err)
	}

	turn := eng.NewTurn(memory.WithScope("user", map[string]any{"name": "Ann"}))
	dc := memory.NewDialogContext(turn).Begin(&memory.DialogInstance{
		ID:    "greet",
		State: map[string]any{"count": 2},
	})
	sm := eng.StateManager(dc)

	greeting, _ := eng.Evaluate("Hello ${user.name}, visit #${dialog.count + 1}", sm)
	fmt.Println(greeting)

	_ = sm.SetValue("user.profile.city", "Lisbon")
	city, _ := eng.Evaluate("=toUpper(user.profile.city)", sm)
	fmt.Println(city)
	// Output:
	// Hello Ann, visit #3
	// LISBON
}
