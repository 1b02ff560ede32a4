package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/statepath/internal/presentation/graph"
	"github.com/aretw0/statepath/pkg/expression"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		contains []string
	}{
		{
			name: "Operator And Constant",
			text: "1 + 2",
			contains: []string{
				"graph TD",
				"n0{\"+\"}",
				"n1((\"1\"))",
				"n0 --> n1",
				"n0 --> n2",
			},
		},
		{
			name: "Path Is One Node",
			text: "user.todos[0].title",
			contains: []string{
				"n0[/\"user.todos[0].title\"/]",
				"class n0 path;",
			},
		},
		{
			name: "Computed Index Is Expanded",
			text: "user.todos[dialog.i]",
			contains: []string{
				"n0[\"[ ]\"]",
				"n0 -- \"of\" --> n1",
				"n0 -- \"index\" --> n2",
				"n2[/\"dialog.i\"/]",
			},
		},
		{
			name: "Function Call",
			text: "join(user.tags, ',')",
			contains: []string{
				"n0[[\"join()\"]]",
				"n0 -- \"0\" --> n1",
				"n2((\"','\"))",
			},
		},
		{
			name: "Conditional",
			text: "flag ? 'yes' : 'no'",
			contains: []string{
				"-- \"if\" -->",
				"-- \"then\" -->",
				"-- \"else\" -->",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := expression.ParseExpression(tt.text)
			if err != nil {
				t.Fatal(err)
			}
			got := graph.GenerateMermaid(expr, nil)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Expected output to contain %q\nGot:\n%s", want, got)
				}
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	expr, err := expression.ParseExpression("user.name + user.missing")
	if err != nil {
		t.Fatal(err)
	}
	mem := expression.NewSimpleMemory(map[string]any{"user": map[string]any{"name": "Joe"}})

	got := graph.GenerateMermaid(expr, &graph.Overlay{Memory: mem})

	for _, want := range []string{
		"user.name <br/> = Joe",
		"user.missing <br/> (missing)",
		"class n2 missing;",
		"class n1,n2 path;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q\nGot:\n%s", want, got)
		}
	}
}
