package session

import (
	"reflect"
)

// Diff returns the top-level keys of next that were added or changed
// relative to prev. Keys removed from prev are present with a nil value.
// An empty result means the scope is unchanged.
func Diff(prev, next map[string]any) map[string]any {
	delta := make(map[string]any)
	for k, v := range next {
		old, ok := prev[k]
		if !ok || !reflect.DeepEqual(old, v) {
			delta[k] = v
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			delta[k] = nil
		}
	}
	return delta
}
