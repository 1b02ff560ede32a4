package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/statepath/internal/logging"
)

// BlockingList names settings that are never exposed, as flat keys.
// Matching is case-insensitive.
var BlockingList = []string{
	"MicrosoftAppPassword",
	"cosmosDb:authKey",
	"blobStorage:connectionString",
	"BlobsStorage:connectionString",
	"CosmosDbPartitionedStorage:authKey",
	"applicationInsights:connectionString",
	"applicationInsights:InstrumentationKey",
	"runtimeSettings:telemetry:options:connectionString",
	"runtimeSettings:telemetry:options:instrumentationKey",
	"runtimeSettings:features:blobTranscript:connectionString",
}

type loader struct {
	files     []string
	env       bool
	envPrefix string
	values    []map[string]any
	blocked   []string
	logger    *slog.Logger
}

// Option configures Load.
type Option func(*loader)

// WithFile merges a YAML or JSON file. A missing file is skipped.
func WithFile(path string) Option {
	return func(l *loader) {
		l.files = append(l.files, path)
	}
}

// WithEnv merges environment variables starting with prefix, with the
// prefix removed. "__" in a name is read as the key separator.
func WithEnv(prefix string) Option {
	return func(l *loader) {
		l.env, l.envPrefix = true, prefix
	}
}

// WithValues merges v last, over files and environment.
func WithValues(v map[string]any) Option {
	return func(l *loader) {
		l.values = append(l.values, v)
	}
}

// WithBlocked adds flat keys to remove on top of BlockingList.
func WithBlocked(keys ...string) Option {
	return func(l *loader) {
		l.blocked = append(l.blocked, keys...)
	}
}

// WithLogger configures a logger for the loader.
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		l.logger = logger
	}
}

// Load builds a settings map from the configured sources.
func Load(opts ...Option) (map[string]any, error) {
	l := &loader{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}

	settings := make(map[string]any)
	for _, path := range l.files {
		v, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if v == nil {
			l.logger.Debug("Settings file not found", "path", path)
			continue
		}
		merge(settings, v)
	}
	if l.env {
		merge(settings, FromFlat(environ(l.envPrefix)))
	}
	for _, v := range l.values {
		merge(settings, deepcopy.Copy(v).(map[string]any))
	}

	remove(settings, BlockingList)
	remove(settings, l.blocked)
	return settings, nil
}

// Filter returns a copy of settings without the BlockingList entries.
func Filter(settings map[string]any) map[string]any {
	if settings == nil {
		return map[string]any{}
	}
	out := deepcopy.Copy(settings).(map[string]any)
	remove(out, BlockingList)
	return out
}

// Decode binds settings (or a sub-tree of them) into out, which must be a
// pointer. Field names match `json` tags case-insensitively and strings are
// converted to the field type.
func Decode(settings any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}
	return nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	v := make(map[string]any)
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return v, nil
}

func environ(prefix string) map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		key = strings.TrimPrefix(key, prefix)
		key = strings.ReplaceAll(key, "__", Separator)
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// merge copies src into dst, descending into maps present on both sides.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				merge(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

func remove(settings map[string]any, keys []string) {
	for _, key := range keys {
		removePath(settings, strings.Split(key, Separator))
	}
}

func removePath(m map[string]any, path []string) {
	for k, v := range m {
		if !strings.EqualFold(k, path[0]) {
			continue
		}
		if len(path) == 1 {
			delete(m, k)
			continue
		}
		if child, ok := v.(map[string]any); ok {
			removePath(child, path[1:])
		}
	}
}
