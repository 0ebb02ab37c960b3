// Package config implements the flat configuration mappings that
// parameterize every tetramind composite. A Config is a plain key→value
// record; composites read the keys they need at construction time and
// construction fails on the first absent key. Validation is presence-only:
// values are never range-checked here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a flat key→value mapping consumed at construction time.
type Config map[string]any

// MissingKeyError reports a key a constructor dereferenced but the
// supplied mapping did not contain.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required config key %q", e.Key)
}

// Int returns the integer value stored under key. YAML and JSON decoders
// may surface numbers as int, int64 or float64; all are accepted.
func (c Config) Int(key string) (int, error) {
	v, ok := c[key]
	if !ok {
		return 0, &MissingKeyError{Key: key}
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	default:
		return 0, fmt.Errorf("config key %q: expected integer, got %T", key, v)
	}
}

// Float returns the float32 value stored under key.
func (c Config) Float(key string) (float32, error) {
	v, ok := c[key]
	if !ok {
		return 0, &MissingKeyError{Key: key}
	}
	switch n := v.(type) {
	case float32:
		return n, nil
	case float64:
		return float32(n), nil
	case int:
		return float32(n), nil
	case int64:
		return float32(n), nil
	default:
		return 0, fmt.Errorf("config key %q: expected number, got %T", key, v)
	}
}

// Str returns the string value stored under key.
func (c Config) Str(key string) (string, error) {
	v, ok := c[key]
	if !ok {
		return "", &MissingKeyError{Key: key}
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config key %q: expected string, got %T", key, v)
	}
	return s, nil
}

// Bool returns the boolean value stored under key.
func (c Config) Bool(key string) (bool, error) {
	v, ok := c[key]
	if !ok {
		return false, &MissingKeyError{Key: key}
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("config key %q: expected bool, got %T", key, v)
	}
	return b, nil
}

// Ints returns the integer-slice value stored under key. Slices decoded
// from YAML arrive as []any and are converted element-wise.
func (c Config) Ints(key string) ([]int, error) {
	v, ok := c[key]
	if !ok {
		return nil, &MissingKeyError{Key: key}
	}
	switch s := v.(type) {
	case []int:
		out := make([]int, len(s))
		copy(out, s)
		return out, nil
	case []any:
		out := make([]int, len(s))
		for i, e := range s {
			switch n := e.(type) {
			case int:
				out[i] = n
			case int64:
				out[i] = int(n)
			case float64:
				out[i] = int(n)
			default:
				return nil, fmt.Errorf("config key %q: element %d is %T, expected integer", key, i, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("config key %q: expected integer list, got %T", key, v)
	}
}

// Clone returns a shallow copy of the mapping. Values are scalars or
// freshly converted slices, so a clone is safe to mutate key-wise.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// LoadYAML reads a flat YAML mapping from path.
func LoadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a flat YAML mapping.
func ParseYAML(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg := make(Config, len(raw))
	for k, v := range raw {
		cfg[k] = v
	}
	return cfg, nil
}
