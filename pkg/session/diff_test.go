package session_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aretw0/statepath/pkg/session"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		prev map[string]any
		next map[string]any
		want map[string]any
	}{
		{
			name: "Initial Load",
			prev: nil,
			next: map[string]any{"a": 1},
			want: map[string]any{"a": 1},
		},
		{
			name: "No Changes",
			prev: map[string]any{"a": 1, "b": map[string]any{"c": []any{1}}},
			next: map[string]any{"a": 1, "b": map[string]any{"c": []any{1}}},
			want: map[string]any{},
		},
		{
			name: "Nested Change",
			prev: map[string]any{"b": map[string]any{"c": 1}},
			next: map[string]any{"b": map[string]any{"c": 2}},
			want: map[string]any{"b": map[string]any{"c": 2}},
		},
		{
			name: "Deletion",
			prev: map[string]any{"a": 1, "b": 2},
			next: map[string]any{"a": 1},
			want: map[string]any{"b": nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, session.Diff(tt.prev, tt.next)); diff != "" {
				t.Errorf("Diff mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
