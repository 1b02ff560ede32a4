package memory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/statepath/pkg/expression"
)

const (
	// EventCounterPath holds the dialog's event counter, the watermark
	// recorded when a tracked path changes.
	EventCounterPath = "dialog.eventCounter"

	trackerKey = "_tracker"
	pathsKey   = "paths"
)

// PathTransformer is implemented by resolvers that can rewrite a path
// without resolving it. Tracking uses it to normalise aliases.
type PathTransformer interface {
	TransformPath(path string) string
}

// TransformPath returns the path with the alias replaced.
func (r *AliasResolver) TransformPath(path string) string {
	return r.mapper(path)
}

func (sm *StateManager) transformPath(path string) string {
	if t, ok := sm.registry.match(path).(PathTransformer); ok {
		return t.TransformPath(path)
	}
	return path
}

// TrackPaths starts tracking changes to paths and returns their normalised
// forms for AnyPathChanged. Private dialog paths, whose second segment
// starts with '_', are skipped.
func (sm *StateManager) TrackPaths(paths []string) ([]string, error) {
	if sm.dc.Dialog == nil {
		return nil, fmt.Errorf("%w: tracking requires an active dialog", ErrInvalidOperation)
	}
	var out []string
	for _, path := range paths {
		p, err := expression.ParsePath(sm.transformPath(path), nil)
		if err != nil {
			return nil, fmt.Errorf("cannot track %q: %w", path, err)
		}
		if len(p) > 1 && p[1].Kind == expression.NameSegment && strings.HasPrefix(p[1].Name, "_") {
			continue
		}
		key := trackingKey(p)
		sm.setTracker(key, 0)
		out = append(out, key)
	}
	return out, nil
}

// AnyPathChanged reports whether any tracked path changed after counter.
func (sm *StateManager) AnyPathChanged(counter int, paths []string) bool {
	tracker := sm.tracker()
	for _, key := range paths {
		if n, ok := expression.ToNumber(tracker[key]); ok && int(n) > counter {
			return true
		}
	}
	return false
}

func trackingKey(p expression.Path) string {
	parts := make([]string, len(p))
	for i, seg := range p {
		switch seg.Kind {
		case expression.IndexSegment:
			parts[i] = strconv.Itoa(seg.Index)
		case expression.FirstSegment:
			parts[i] = "first()"
		default:
			parts[i] = seg.Name
		}
	}
	return strings.ToLower(strings.Join(parts, "_"))
}

func (sm *StateManager) tracker() map[string]any {
	if sm.dc.Dialog == nil {
		return nil
	}
	v, _ := expression.Walker{}.Get(sm.dialogState(), expression.Path{expression.Name(trackerKey), expression.Name(pathsKey)})
	m, _ := v.(map[string]any)
	return m
}

func (sm *StateManager) setTracker(key string, counter int) {
	p := expression.Path{expression.Name(trackerKey), expression.Name(pathsKey), expression.Name(key)}
	_ = expression.Walker{CaseSensitive: true}.Set(sm.dialogState(), p, counter)
}

// trackChange stamps every tracked path at or below p with the current
// event counter.
func (sm *StateManager) trackChange(p expression.Path) {
	tracker := sm.tracker()
	if len(tracker) == 0 {
		return
	}
	prefix := trackingKey(p) + "_"
	counter := -1
	for key := range tracker {
		if !strings.HasPrefix(key+"_", prefix) {
			continue
		}
		if counter < 0 {
			v, _, _ := sm.lookup(EventCounterPath)
			n, _ := expression.ToNumber(v)
			counter = int(n)
		}
		sm.setTracker(key, counter)
	}
}
