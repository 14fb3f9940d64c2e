// Package secrets reads named credentials from an external store.
// Secrets are only read here; their lifecycle belongs to the store.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultName is the secret the weather flow loads.
const DefaultName = "extremely-secret-information"

// ErrNotFound is returned when a secret is not defined in the store.
var ErrNotFound = errors.New("secret not found")

// Store is a read-only view of a secret store.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// Load reads name from store. Any failure, including a missing secret, is
// returned wrapped with the secret name.
func Load(ctx context.Context, store Store, name string) (string, error) {
	if store == nil {
		return "", fmt.Errorf("load secret %q: no secret store configured", name)
	}
	v, err := store.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("load secret %q: %w", name, err)
	}
	return v, nil
}

// Mask hides all but the length of a secret for logging.
func Mask(v string) string {
	return fmt.Sprintf("%s (%d chars)", strings.Repeat("*", 8), len(v))
}

// EnvStore resolves secrets from environment variables.
// "extremely-secret-information" maps to SECRET_EXTREMELY_SECRET_INFORMATION.
type EnvStore struct {
	Prefix string
}

// NewEnvStore creates an EnvStore with the SECRET_ prefix.
func NewEnvStore() *EnvStore {
	return &EnvStore{Prefix: "SECRET_"}
}

// VarName returns the environment variable holding name.
func (s *EnvStore) VarName(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_", "/", "_", " ", "_")
	return s.Prefix + strings.ToUpper(r.Replace(name))
}

func (s *EnvStore) Get(ctx context.Context, name string) (string, error) {
	v, ok := os.LookupEnv(s.VarName(name))
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// YAMLStore reads secrets from a YAML document mapping names to values.
// The file is read lazily on first use.
type YAMLStore struct {
	path string

	once    sync.Once
	values  map[string]string
	loadErr error
}

// NewYAMLStore creates a YAMLStore for path.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

func (s *YAMLStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.loadErr = fmt.Errorf("read secrets file: %w", err)
		return
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		s.loadErr = fmt.Errorf("parse secrets file %s: %w", s.path, err)
		return
	}
	s.values = values
}

func (s *YAMLStore) Get(ctx context.Context, name string) (string, error) {
	s.once.Do(s.load)
	if s.loadErr != nil {
		return "", s.loadErr
	}
	v, ok := s.values[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}
