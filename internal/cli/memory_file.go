package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/statepath"
	"github.com/aretw0/statepath/pkg/memory"
)

// readDocument reads a YAML or JSON object. JSON is picked by extension.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc map[string]any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// writeDocument writes doc in the format its extension selects.
func writeDocument(path string, doc map[string]any) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}

// asObject accepts the map shapes YAML and JSON decoders produce.
func asObject(v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	}
	return nil, fmt.Errorf("expected an object, got %T", v)
}

// loadMemory builds a state manager from the memory file. Top-level keys
// become scopes; "dialog" and "class" seed the active dialog. Without a
// file the memory starts empty.
func loadMemory(engine *statepath.Engine, path string) (*memory.StateManager, error) {
	doc := map[string]any{}
	if path != "" {
		d, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		if d != nil {
			doc = d
		}
	}

	dialog := &memory.DialogInstance{ID: "cli"}
	var turnOpts []memory.TurnOption
	var errs []error
	for name, value := range doc {
		switch strings.ToLower(name) {
		case memory.ScopeDialog:
			state, err := asObject(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("dialog: %w", err))
				continue
			}
			dialog.State = state
		case memory.ScopeClass:
			class, err := asObject(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("class: %w", err))
				continue
			}
			dialog.Class = class
		case memory.ScopeSettings:
			errs = append(errs, errors.New("settings come from --settings files, not the memory file"))
		default:
			turnOpts = append(turnOpts, memory.WithScope(name, value))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid memory file %s: %w", path, err)
	}
	if dialog.State == nil {
		dialog.State = map[string]any{}
	}

	dc := memory.NewDialogContext(engine.NewTurn(turnOpts...)).Begin(dialog)
	return engine.StateManager(dc), nil
}
