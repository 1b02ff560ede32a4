package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/statepath/pkg/ports"
)

// Store implements ports.ScopeStore on the local filesystem. Each value
// lives in <BasePath>/<scope>/<id>.json.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath, ".statepath/scopes" when empty.
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".statepath", "scopes")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(key ports.ScopeKey) (string, error) {
	if err := checkName(key.Scope); err != nil {
		return "", err
	}
	if err := checkName(key.ID); err != nil {
		return "", err
	}
	return filepath.Join(s.BasePath, key.Scope, key.ID+".json"), nil
}

// checkName rejects empty names, path separators and a leading '.', which
// is reserved for temp files.
func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid scope key component %q", name)
	}
	return nil
}

// Save writes value atomically: a temp file in the same directory is
// synced and then renamed over the destination.
func (s *Store) Save(ctx context.Context, key ports.ScopeKey, value map[string]any) error {
	dest, err := s.path(key)
	if err != nil {
		return err
	}
	if value == nil {
		value = map[string]any{}
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure scope directory: %w", err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scope %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+key.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename scope file: %w", err)
	}
	return nil
}

// Load reads the value stored under key.
func (s *Store) Load(ctx context.Context, key ports.ScopeKey) (map[string]any, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ports.ErrScopeNotFound, key)
		}
		return nil, fmt.Errorf("failed to read scope file: %w", err)
	}

	var value map[string]any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scope %s: %w", key, err)
	}
	if value == nil {
		value = map[string]any{}
	}
	return value, nil
}

// Delete removes the file for key.
func (s *Store) Delete(ctx context.Context, key ports.ScopeKey) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete scope file: %w", err)
	}
	return nil
}

// List returns the IDs stored for scope.
func (s *Store) List(ctx context.Context, scope string) ([]string, error) {
	if err := checkName(scope); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.BasePath, scope))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
